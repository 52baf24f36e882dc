//nolint:funlen,errcheck // ok for this test code
package laptime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aarondl/opt/omit"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/samber/lo"
	"github.com/stephenafamo/bob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	"github.com/mpapenbr/laptime-logger/pkg/repository/bob/laptime"
	"github.com/mpapenbr/laptime-logger/testsupport/basedata"
	"github.com/mpapenbr/laptime-logger/testsupport/testdb"
)

type sampleData struct {
	user       *model.User
	other      *model.User
	spa        *model.Track
	spaMain    *model.TrackLayout
	spaGP      *model.TrackLayout
	monza      *model.Track
	monzaMain  *model.TrackLayout
	gr86       *model.CarModel
	mx5        *model.CarModel
	spaTimes   []*model.LapTime
	monzaTimes []*model.LapTime
}

func setupSample(t *testing.T) (api.LapTimeRepository, *sampleData) {
	t.Helper()
	pool := testdb.InitTestDB()
	f := basedata.NewFixture(pool)
	s := &sampleData{}
	s.user = f.User("driver1")
	s.other = f.User("driver2")
	s.spa, s.spaMain = f.Track("Spa-Francorchamps", "spa")
	s.spaGP = f.Layout(s.spa.ID, "Grand Prix", "gp", false)
	s.monza, s.monzaMain = f.Track("Monza", "monza")
	s.gr86 = f.CarModel("Toyota", "GR86", nil)
	s.mx5 = f.CarModel("Mazda", "MX-5", lo.ToPtr("RF"))
	base := basedata.TestTime()
	s.spaTimes = []*model.LapTime{
		f.LapTime(s.user.ID, s.spaMain.ID, s.gr86.ID, 155000, model.StatusVerified, base),
		f.LapTime(s.user.ID, s.spaGP.ID, s.mx5.ID, 150000, model.StatusPending,
			base.Add(time.Hour)),
		f.LapTime(s.other.ID, s.spaMain.ID, s.gr86.ID, 149000, model.StatusVerified,
			base.Add(2*time.Hour)),
		f.LapTime(s.other.ID, s.spaGP.ID, s.gr86.ID, 148000, model.StatusRejected,
			base.Add(3*time.Hour)),
	}
	s.monzaTimes = []*model.LapTime{
		f.LapTime(s.user.ID, s.monzaMain.ID, s.gr86.ID, 120000, model.StatusVerified,
			base.Add(4*time.Hour)),
	}
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))
	return laptime.NewLapTimeRepository(db), s
}

func ids[T any](items []T, id func(T) uuid.UUID) []uuid.UUID {
	return lo.Map(items, func(item T, _ int) uuid.UUID { return id(item) })
}

func historyIDs(items []*model.HistoryEntry) []uuid.UUID {
	return ids(items, func(e *model.HistoryEntry) uuid.UUID { return e.ID })
}

func TestCreateIsPending(t *testing.T) {
	r, s := setupSample(t)
	ctx := context.Background()
	got, err := r.Create(ctx, &model.LapTime{
		UserID:        s.user.ID,
		TrackLayoutID: s.spaMain.ID,
		CarModelID:    s.gr86.ID,
		TimeMs:        151234,
		DrivenAt:      basedata.TestTime(),
		Source:        model.SourceTransponder,
		Status:        model.StatusVerified,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, model.SourceTransponder, got.Source)
	assert.Nil(t, got.VerifiedBy)

	loaded, err := r.LoadByID(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ID, loaded.ID)

	locked, err := r.LoadByIDForUpdate(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ID, locked.ID)
}

func TestCreateInvalidReference(t *testing.T) {
	r, s := setupSample(t)
	_, err := r.Create(context.Background(), &model.LapTime{
		UserID:        s.user.ID,
		TrackLayoutID: uuid.Must(uuid.NewV4()),
		CarModelID:    s.gr86.ID,
		TimeMs:        1000,
		DrivenAt:      basedata.TestTime(),
		Source:        model.SourceManual,
	})
	assert.True(t, errors.Is(err, api.ErrForeignKey))
}

func TestHistory(t *testing.T) {
	r, s := setupSample(t)
	ctx := context.Background()
	tests := []struct {
		name   string
		filter model.HistoryFilter
		want   []uuid.UUID
	}{
		{
			name:   "default order drivenAt desc",
			filter: model.HistoryFilter{},
			want: []uuid.UUID{
				s.monzaTimes[0].ID, s.spaTimes[1].ID, s.spaTimes[0].ID,
			},
		},
		{
			name:   "sort by time across tracks",
			filter: model.HistoryFilter{SortBy: model.SortByTime},
			want: []uuid.UUID{
				s.monzaTimes[0].ID, s.spaTimes[1].ID, s.spaTimes[0].ID,
			},
		},
		{
			name:   "verified only",
			filter: model.HistoryFilter{Status: omit.From(model.StatusVerified)},
			want:   []uuid.UUID{s.monzaTimes[0].ID, s.spaTimes[0].ID},
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
			name: "conjunctive without match",
			filter: model.HistoryFilter{
				TrackID: omit.From(s.monza.ID),
				Status:  omit.From(model.StatusPending),
			},
			want: []uuid.UUID{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.History(ctx, s.user.ID, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, historyIDs(got))
			for _, e := range got {
				assert.NotEmpty(t, e.Track.Name)
				assert.NotEmpty(t, e.Layout.Name)
				assert.NotEmpty(t, e.CarModel.Make)
			}
		})
	}
}

func TestSortByTimeIsAscending(t *testing.T) {
	r, s := setupSample(t)
	got, err := r.History(context.Background(), s.user.ID,
		model.HistoryFilter{SortBy: model.SortByTime})
	require.NoError(t, err)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].TimeMs, got[i].TimeMs)
	}
}

func TestUserCarModelsAndTracks(t *testing.T) {
	r, s := setupSample(t)
	ctx := context.Background()

	cars, err := r.UserCarModels(ctx, s.user.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{s.mx5.ID, s.gr86.ID},
		ids(cars, func(c *model.CarModelRef) uuid.UUID { return c.ID }))

	tracks, err := r.UserTracks(ctx, s.user.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{s.monza.ID, s.spa.ID},
		ids(tracks, func(c *model.TrackRef) uuid.UUID { return c.ID }))

	tracks, err = r.UserTracks(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestLeaderboard(t *testing.T) {
	r, s := setupSample(t)
	got, err := r.Leaderboard(context.Background(), s.spa.ID)
	require.NoError(t, err)
	assert.Equal(t,
		[]uuid.UUID{s.spaTimes[2].ID, s.spaTimes[0].ID},
		ids(got, func(e *model.LeaderboardEntry) uuid.UUID { return e.ID }))
	assert.Equal(t, s.other.Name, got[0].User.Name)
	assert.Equal(t, s.spaMain.ID, got[0].Layout.ID)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].TimeMs, got[i].TimeMs)
	}
}

func TestUserCounts(t *testing.T) {
	r, s := setupSample(t)
	ctx := context.Background()

	got, err := r.UserCounts(ctx, s.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 2, got.Verified)
	assert.Equal(t, int32(120000), *got.Best)

	got, err = r.UserCounts(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Total)
	assert.Nil(t, got.Best)
}

func TestUpdateStatus(t *testing.T) {
	r, s := setupSample(t)
	ctx := context.Background()
	pending := s.spaTimes[1]

	rejected, err := r.UpdateStatus(ctx, pending.ID, api.StatusChange{
		Status:          model.StatusRejected,
		ModeratorID:     basedata.ModeratorID,
		RejectionReason: lo.ToPtr("blurry video"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)
	assert.Equal(t, "blurry video", *rejected.RejectionReason)
	assert.NotNil(t, rejected.VerifiedAt)

	verified, err := r.UpdateStatus(ctx, pending.ID, api.StatusChange{
		Status:          model.StatusVerified,
		ModeratorID:     basedata.ModeratorID,
		RejectionReason: lo.ToPtr("ignored"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusVerified, verified.Status)
	assert.Nil(t, verified.RejectionReason)
	assert.Equal(t, basedata.ModeratorID, *verified.VerifiedBy)

	_, err = r.UpdateStatus(ctx, uuid.Must(uuid.NewV4()),
		api.StatusChange{Status: model.StatusVerified, ModeratorID: basedata.ModeratorID})
	assert.ErrorIs(t, err, api.ErrNoRows)
}
