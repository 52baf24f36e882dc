//nolint:funlen // ok for this test code
package history

import (
	"context"
	"testing"
	"time"

	"github.com/aarondl/opt/omit"
	"github.com/gofrs/uuid/v5"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/service/svcerr"
	"github.com/mpapenbr/laptime-logger/testsupport/basedata"
	"github.com/mpapenbr/laptime-logger/testsupport/testdb"
)

type sample struct {
	svc      *Service
	spa      *model.Track
	monza    *model.Track
	gr86     *model.CarModel
	mx5      *model.CarModel
	spaTimes []*model.LapTime
	monzaLap *model.LapTime
}

func setup(t *testing.T) *sample {
	t.Helper()
	f := basedata.NewFixture(testdb.InitTestDB())
	s := &sample{}
	user := f.User("driver1")
	other := f.User("driver2")
	var spaMain, monzaMain *model.TrackLayout
	s.spa, spaMain = f.Track("Spa-Francorchamps", "spa")
	s.monza, monzaMain = f.Track("Monza", "monza")
	s.gr86 = f.CarModel("Toyota", "GR86", nil)
	s.mx5 = f.CarModel("Mazda", "MX-5", lo.ToPtr("RF"))
	base := basedata.TestTime()
	s.spaTimes = []*model.LapTime{
		f.LapTime(user.ID, spaMain.ID, s.gr86.ID, 155000, model.StatusVerified, base),
		f.LapTime(user.ID, spaMain.ID, s.mx5.ID, 158000, model.StatusPending,
			base.Add(time.Hour)),
	}
	s.monzaLap = f.LapTime(user.ID, monzaMain.ID, s.gr86.ID, 110000,
		model.StatusVerified, base.Add(2*time.Hour))
	f.LapTime(other.ID, spaMain.ID, s.gr86.ID, 149000, model.StatusVerified, base)
	s.svc = NewService(WithLapTimeRepository(f.Repos.LapTime()))
	return s
}

func entryIDs(entries []*model.HistoryEntry) []uuid.UUID {
	return lo.Map(entries, func(e *model.HistoryEntry, _ int) uuid.UUID { return e.ID })
}

func TestHistoryFilters(t *testing.T) {
	s := setup(t)
	tests := []struct {
		name   string
		filter model.HistoryFilter
		want   []uuid.UUID
	}{
		{
			name: "default newest first",
			want: []uuid.UUID{s.monzaLap.ID, s.spaTimes[1].ID, s.spaTimes[0].ID},
		},
		{
			name:   "verified only",
			filter: model.HistoryFilter{Status: omit.From(model.StatusVerified)},
			want:   []uuid.UUID{s.monzaLap.ID, s.spaTimes[0].ID},
		},
		{
			name:   "track",
			filter: model.HistoryFilter{TrackID: omit.From(s.spa.ID)},
			want:   []uuid.UUID{s.spaTimes[1].ID, s.spaTimes[0].ID},
		},
		{
			name: "track and car",
			filter: model.HistoryFilter{
				TrackID:    omit.From(s.spa.ID),
				CarModelID: omit.From(s.mx5.ID),
			},
			want: []uuid.UUID{s.spaTimes[1].ID},
		},
		{
			name:   "by time across tracks",
			filter: model.HistoryFilter{SortBy: model.SortByTime},
			want:   []uuid.UUID{s.monzaLap.ID, s.spaTimes[0].ID, s.spaTimes[1].ID},
		},
		{
			name:   "rejected none",
			filter: model.HistoryFilter{Status: omit.From(model.StatusRejected)},
			want:   []uuid.UUID{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.svc.History(context.Background(), "driver1", tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, entryIDs(got))
		})
	}
}

func TestHistoryEntryContent(t *testing.T) {
	s := setup(t)
	got, err := s.svc.History(context.Background(), "driver1",
		model.HistoryFilter{CarModelID: omit.From(s.mx5.ID)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	e := got[0]
	assert.Equal(t, "spa", e.Track.Slug)
	assert.Equal(t, "Main configuration", e.Layout.Name)
	assert.Equal(t, "Mazda", e.CarModel.Make)
	assert.Equal(t, "RF", *e.CarModel.Trim)
	assert.Equal(t, model.StatusPending, e.Status)
}

func TestHistoryInvalidInput(t *testing.T) {
	s := setup(t)
	_, err := s.svc.History(context.Background(), "driver1",
		model.HistoryFilter{SortBy: "fastest"})
	assert.ErrorIs(t, err, svcerr.ErrValidation)
	_, err = s.svc.History(context.Background(), "driver1",
		model.HistoryFilter{Status: omit.From(model.Status("approved"))})
	assert.ErrorIs(t, err, svcerr.ErrValidation)
}

func TestHistoryUnknownUser(t *testing.T) {
	s := setup(t)
	got, err := s.svc.History(context.Background(), "nobody", model.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDistinctCarsAndTracks(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	cars, err := s.svc.UserCarModels(ctx, "driver1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{s.gr86.ID, s.mx5.ID},
		lo.Map(cars, func(c *model.CarModelRef, _ int) uuid.UUID { return c.ID }))

	tracks, err := s.svc.UserTracks(ctx, "driver1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"spa", "monza"},
		lo.Map(tracks, func(tr *model.TrackRef, _ int) string { return tr.Slug }))

	tracks, err = s.svc.UserTracks(ctx, "driver2")
	require.NoError(t, err)
	assert.Len(t, tracks, 1)
}
