//nolint:funlen,errcheck // ok for this test code
package carmodel

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/samber/lo"
	"github.com/stephenafamo/bob"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	tcpg "github.com/mpapenbr/laptime-logger/testsupport/tcpostgres"
	"github.com/mpapenbr/laptime-logger/testsupport/testdb"
)

func TestInsertIfAbsent(t *testing.T) {
	pool := testdb.InitTestDB()
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))
	r := NewCarModelRepository(db)
	ctx := context.Background()

	first, err := r.InsertIfAbsent(ctx, &model.CarModel{
		Make: "Toyota", Model: "GR86",
		Drivetrain: lo.ToPtr(model.DrivetrainRWD),
		PowerHp:    lo.ToPtr(int32(234)),
	})
	assert.NilError(t, err)
	assert.Equal(t, *first.Drivetrain, model.DrivetrainRWD)
	assert.Assert(t, first.Trim == nil)

	tests := []struct {
		name         string
		trim         *string
		wantConflict bool
	}{
		{name: "absent trim again", trim: nil, wantConflict: true},
		{name: "present trim", trim: lo.ToPtr("Premium")},
		{name: "other trim", trim: lo.ToPtr("Base")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.InsertIfAbsent(ctx,
				&model.CarModel{Make: "Toyota", Model: "GR86", Trim: tt.trim})
			if tt.wantConflict {
				assert.Assert(t, errors.Is(err, api.ErrConflict))
			} else {
				assert.NilError(t, err)
			}
		})
	}
	all, err := r.LoadAll(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(all), 3)
}

func TestFindByKey(t *testing.T) {
	pool := testdb.InitTestDB()
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))
	r := NewCarModelRepository(db)
	ctx := context.Background()
	noTrim, _ := r.InsertIfAbsent(ctx, &model.CarModel{Make: "Mazda", Model: "MX-5"})
	withTrim, _ := r.InsertIfAbsent(ctx,
		&model.CarModel{Make: "Mazda", Model: "MX-5", Trim: lo.ToPtr("RF")})

	tests := []struct {
		name    string
		trim    *string
		want    *model.CarModel
		wantErr error
	}{
		{name: "nil trim matches null only", trim: nil, want: noTrim},
		{name: "exact trim", trim: lo.ToPtr("RF"), want: withTrim},
		{name: "case sensitive", trim: lo.ToPtr("rf"), wantErr: api.ErrNoRows},
		{name: "unknown", trim: lo.ToPtr("ND"), wantErr: api.ErrNoRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.FindByKey(ctx, "Mazda", "MX-5", tt.trim)
			if tt.wantErr != nil {
				assert.Assert(t, errors.Is(err, tt.wantErr))
				return
			}
			assert.NilError(t, err)
			assert.Equal(t, got.ID, tt.want.ID)
		})
	}
}

func TestSearch(t *testing.T) {
	pool := testdb.InitTestDB()
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))
	r := NewCarModelRepository(db)
	ctx := context.Background()
	for _, c := range []struct{ make, model, trim string }{
		{"Porsche", "911", "GT3 RS"},
		{"Porsche", "Cayman", "GT4"},
		{"BMW", "M2", ""},
		{"Ford", "Mustang", "100%"},
	} {
		var trim *string
		if c.trim != "" {
			trim = lo.ToPtr(c.trim)
		}
		_, err := r.InsertIfAbsent(ctx, &model.CarModel{Make: c.make, Model: c.model, Trim: trim})
		assert.NilError(t, err)
	}

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{"make", "porsche", 50, []string{"911", "Cayman"}},
		{"trim", "gt", 50, []string{"911", "Cayman"}},
		{"model", "m2", 50, []string{"M2"}},
		{"limit", "porsche", 1, []string{"911"}},
		{"like wildcard is literal", "%", 50, []string{"Mustang"}},
		{"nothing", "ferrari", 50, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Search(ctx, tt.query, tt.limit)
			assert.NilError(t, err)
			assert.DeepEqual(t, lo.Map(got, func(c *model.CarModel, _ int) string {
				return c.Model
			}), tt.want)
		})
	}
}

func TestDeleteByID(t *testing.T) {
	pool := testdb.InitTestDB()
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))
	r := NewCarModelRepository(db)
	ctx := context.Background()
	car, _ := r.InsertIfAbsent(ctx, &model.CarModel{Make: "Honda", Model: "Civic"})

	n, err := r.DeleteByID(ctx, car.ID)
	assert.NilError(t, err)
	assert.Equal(t, n, 1)
	n, err = r.DeleteByID(ctx, car.ID)
	assert.NilError(t, err)
	assert.Equal(t, n, 0)
	tcpg.ClearAllTables(pool)
}
