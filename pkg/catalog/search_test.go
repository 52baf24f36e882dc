package catalog

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/laptime-logger/pkg/model"
)

type fakeSource struct {
	cars      []*model.CarModel
	lastLimit int
	lastQuery string
}

func (f *fakeSource) LoadLimited(_ context.Context, limit int) ([]*model.CarModel, error) {
	f.lastLimit = limit
	return lo.Subset(f.cars, 0, uint(limit)), nil
}

func (f *fakeSource) Search(_ context.Context, query string, limit int) (
	[]*model.CarModel, error,
) {
	f.lastQuery = query
	f.lastLimit = limit
	return nil, nil
}

func car(carMake, carModel string, trim *string) *model.CarModel {
	return &model.CarModel{Make: carMake, Model: carModel, Trim: trim}
}

func keys(cars []*model.CarModel) []string {
	return lo.Map(cars, func(c *model.CarModel, _ int) string {
		return c.Make + "/" + c.Model + "/" + lo.FromPtr(c.Trim)
	})
}

func TestWindowSearch(t *testing.T) {
	src := &fakeSource{cars: []*model.CarModel{
		car("BMW", "M3", lo.ToPtr("Competition")),
		car("Porsche", "911", lo.ToPtr("GT3 RS")),
		car("Toyota", "GR86", nil),
		car("Toyota", "Supra", lo.ToPtr("GR")),
	}}
	s := NewWindowSearch(src)
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty returns window", "", []string{
			"BMW/M3/Competition", "Porsche/911/GT3 RS", "Toyota/GR86/", "Toyota/Supra/GR",
		}},
		{"make case insensitive", "toyota", []string{"Toyota/GR86/", "Toyota/Supra/GR"}},
		{"model", "gr86", []string{"Toyota/GR86/"}},
		{"trim", "gt3", []string{"Porsche/911/GT3 RS"}},
		{"trim and model", "GR", []string{"Toyota/GR86/", "Toyota/Supra/GR"}},
		{"no match", "ferrari", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(context.Background(), tt.query)
			assert.NilError(t, err)
			assert.DeepEqual(t, tt.want, keys(got))
			assert.Equal(t, SearchWindow, src.lastLimit)
		})
	}
}

func TestWindowSearchIgnoresEntriesBeyondWindow(t *testing.T) {
	cars := make([]*model.CarModel, 0, SearchWindow+1)
	for range SearchWindow {
		cars = append(cars, car("Mazda", "MX-5", nil))
	}
	cars = append(cars, car("Lotus", "Elise", nil))
	s := NewWindowSearch(&fakeSource{cars: cars})

	got, err := s.Search(context.Background(), "lotus")
	assert.NilError(t, err)
	assert.Equal(t, 0, len(got))
}

func TestSQLSearch(t *testing.T) {
	src := &fakeSource{}
	_, err := NewSQLSearch(src).Search(context.Background(), "  gt3 ")
	assert.NilError(t, err)
	assert.Assert(t, cmp.Equal("gt3", src.lastQuery))
	assert.Equal(t, SearchWindow, src.lastLimit)
}
