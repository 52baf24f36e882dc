package stats

import (
	"context"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/service/svcerr"
	"github.com/mpapenbr/laptime-logger/testsupport/basedata"
	"github.com/mpapenbr/laptime-logger/testsupport/testdb"
)

func TestStats(t *testing.T) {
	f := basedata.NewFixture(testdb.InitTestDB())
	user := f.User("driver1")
	f.User("rookie")
	_, layout := f.Track("Spa-Francorchamps", "spa")
	car := f.CarModel("Toyota", "GR86", nil)
	base := basedata.TestTime()
	f.LapTime(user.ID, layout.ID, car.ID, 92345, model.StatusPending, base)
	f.LapTime(user.ID, layout.ID, car.ID, 91000, model.StatusVerified, base.Add(time.Hour))
	f.LapTime(user.ID, layout.ID, car.ID, 95500, model.StatusVerified,
		base.Add(2*time.Hour))
	f.LapTime(user.ID, layout.ID, car.ID, 89000, model.StatusRejected,
		base.Add(3*time.Hour))

	s := NewService(WithRepositories(f.Repos))
	ctx := context.Background()

	got, err := s.Stats(ctx, user.ID)
	assert.NilError(t, err)
	assert.Equal(t, got.User.ID, user.ID)
	assert.Equal(t, got.TotalTimes, 4)
	assert.Equal(t, got.VerifiedTimes, 2)
	assert.Equal(t, *got.BestTime, int32(91000))

	rookie, err := s.Stats(ctx, "rookie")
	assert.NilError(t, err)
	assert.Equal(t, rookie.TotalTimes, 0)
	assert.Equal(t, rookie.VerifiedTimes, 0)
	assert.Assert(t, rookie.BestTime == nil)

	_, err = s.Stats(ctx, "ghost")
	assert.ErrorIs(t, err, svcerr.ErrUserNotFound)
}

func TestStatsScenario(t *testing.T) {
	f := basedata.NewFixture(testdb.InitTestDB())
	user := f.User("driver1")
	_, layout := f.Track("Spa-Francorchamps", "spa")
	car := f.CarModel("Toyota", "GR86", nil)
	base := basedata.TestTime()
	f.LapTime(user.ID, layout.ID, car.ID, 92345, model.StatusPending, base)
	f.LapTime(user.ID, layout.ID, car.ID, 91000, model.StatusVerified, base)
	f.LapTime(user.ID, layout.ID, car.ID, 95500, model.StatusVerified, base)

	got, err := NewService(WithRepositories(f.Repos)).Stats(context.Background(), user.ID)
	assert.NilError(t, err)
	assert.Equal(t, got.TotalTimes, 3)
	assert.Equal(t, got.VerifiedTimes, 2)
	assert.Equal(t, *got.BestTime, int32(91000))
}
