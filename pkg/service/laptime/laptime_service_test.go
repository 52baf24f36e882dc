//nolint:funlen // ok for this test code
package laptime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/permission"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	bobRepos "github.com/mpapenbr/laptime-logger/pkg/repository/bob"
	"github.com/mpapenbr/laptime-logger/pkg/service/carmodel"
	"github.com/mpapenbr/laptime-logger/pkg/service/svcerr"
	"github.com/mpapenbr/laptime-logger/testsupport/basedata"
	"github.com/mpapenbr/laptime-logger/testsupport/testdb"
)

var (
	driver    = &model.Identity{UserID: "driver1", Name: "Driver", Email: "d@example.com"}
	moderator = &model.Identity{
		UserID: "mod1", Name: "Mod", Email: "m@example.com",
		Roles: []string{string(permission.RoleModerator)},
	}
	now = basedata.TestTime()
)

type env struct {
	svc    *Service
	repos  api.Repositories
	layout *model.TrackLayout
	car    *model.CarModel
}

func setup(t *testing.T) *env {
	t.Helper()
	pool := testdb.InitTestDB()
	f := basedata.NewFixture(pool)
	_, layout := f.Track("Spa-Francorchamps", "spa")
	car := f.CarModel("Toyota", "GR86", nil)
	pe, err := permission.NewOpaPermissionEvaluator()
	require.NoError(t, err)
	svc := NewService(
		WithRepositories(f.Repos),
		WithTxManager(bobRepos.NewTransactionManagerFromPool(pool)),
		WithPermissionEvaluator(pe),
		WithClock(func() time.Time { return now }),
	)
	return &env{svc: svc, repos: f.Repos, layout: layout, car: car}
}

func (e *env) request() RecordRequest {
	return RecordRequest{
		TrackLayoutID: e.layout.ID,
		CarModelID:    e.car.ID,
		TimeMs:        92345,
	}
}

func TestRecordIsPending(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	for _, source := range []model.Source{
		"", model.SourceTransponder, model.SourceOfficialTiming, model.SourceGPS,
	} {
		t.Run(string(source), func(t *testing.T) {
			req := e.request()
			req.Source = source
			got, err := e.svc.Record(ctx, driver, req)
			require.NoError(t, err)
			assert.Equal(t, model.StatusPending, got.Status)
			assert.Equal(t, driver.UserID, got.UserID)
			assert.True(t, got.DrivenAt.Equal(now))
			if source == "" {
				assert.Equal(t, model.SourceManual, got.Source)
			}
		})
	}
	user, err := e.repos.User().LoadByID(ctx, driver.UserID)
	require.NoError(t, err)
	assert.Equal(t, driver.Email, user.Email)
}

func TestRecordValidation(t *testing.T) {
	e := setup(t)
	tests := []struct {
		name   string
		modify func(r *RecordRequest)
	}{
		{"zero time", func(r *RecordRequest) { r.TimeMs = 0 }},
		{"negative time", func(r *RecordRequest) { r.TimeMs = -5 }},
		{"time overflow", func(r *RecordRequest) { r.TimeMs = 1 << 40 }},
		{"missing layout", func(r *RecordRequest) { r.TrackLayoutID = uuid.Nil }},
		{"missing car", func(r *RecordRequest) { r.CarModelID = uuid.Nil }},
		{"bad source", func(r *RecordRequest) { r.Source = "stopwatch" }},
		{"bad proof url", func(r *RecordRequest) { r.ProofURL = lo.ToPtr("ftp://x/y") }},
		{"relative proof url", func(r *RecordRequest) { r.ProofURL = lo.ToPtr("/video") }},
		{"future", func(r *RecordRequest) {
			r.DrivenAt = lo.ToPtr(now.Add(time.Hour))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := e.request()
			tt.modify(&req)
			_, err := e.svc.Record(context.Background(), driver, req)
			assert.ErrorIs(t, err, svcerr.ErrValidation)
		})
	}
	// nothing was written, not even the user
	_, err := e.repos.User().LoadByID(context.Background(), driver.UserID)
	assert.ErrorIs(t, err, api.ErrNoRows)
}

func TestRecordAccepted(t *testing.T) {
	e := setup(t)
	req := e.request()
	req.ProofURL = lo.ToPtr(" https://youtu.be/lap ")
	req.DrivenAt = lo.ToPtr(now.Add(time.Minute)) // within skew
	got, err := e.svc.Record(context.Background(), driver, req)
	require.NoError(t, err)
	assert.Equal(t, "https://youtu.be/lap", *got.ProofURL)

	req.ProofURL = lo.ToPtr("  ")
	got, err = e.svc.Record(context.Background(), driver, req)
	require.NoError(t, err)
	assert.Nil(t, got.ProofURL)
}

func TestRecordUnknownReference(t *testing.T) {
	e := setup(t)
	tests := []struct {
		name   string
		modify func(r *RecordRequest)
	}{
		{"layout", func(r *RecordRequest) { r.TrackLayoutID = uuid.Must(uuid.NewV4()) }},
		{"car", func(r *RecordRequest) { r.CarModelID = uuid.Must(uuid.NewV4()) }},
		{"tire", func(r *RecordRequest) { r.TireCompoundID = lo.ToPtr(uuid.Must(uuid.NewV4())) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := e.request()
			tt.modify(&req)
			_, err := e.svc.Record(context.Background(), driver, req)
			assert.ErrorIs(t, err, svcerr.ErrInvalidReference)
			assert.ErrorIs(t, err, svcerr.ErrValidation)
		})
	}
}

func TestRecordRequiresIdentity(t *testing.T) {
	e := setup(t)
	_, err := e.svc.Record(context.Background(), nil, e.request())
	assert.ErrorIs(t, err, svcerr.ErrUnauthenticated)
}

func TestRecordWithCar(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	req := RecordWithCarRequest{
		RecordRequest: RecordRequest{TrackLayoutID: e.layout.ID, TimeMs: 150000},
		Car:           carmodel.ResolveRequest{Make: "Mazda", Model: "MX-5", Trim: lo.ToPtr("")},
	}
	lt, car, err := e.svc.RecordWithCar(ctx, driver, req)
	require.NoError(t, err)
	assert.Equal(t, car.ID, lt.CarModelID)
	assert.Nil(t, car.Trim)

	lt2, car2, err := e.svc.RecordWithCar(ctx, driver, req)
	require.NoError(t, err)
	assert.Equal(t, car.ID, car2.ID)
	assert.NotEqual(t, lt.ID, lt2.ID)

	// a failing insert rolls back the created car model
	req.Car.Model = "RX-7"
	req.TrackLayoutID = uuid.Must(uuid.NewV4())
	_, _, err = e.svc.RecordWithCar(ctx, driver, req)
	assert.ErrorIs(t, err, svcerr.ErrInvalidReference)
	_, err = e.repos.CarModel().FindByKey(ctx, "Mazda", "RX-7", nil)
	assert.ErrorIs(t, err, api.ErrNoRows)
}

func TestModeration(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lt, err := e.svc.Record(ctx, driver, e.request())
	require.NoError(t, err)

	_, err = e.svc.Verify(ctx, driver, lt.ID)
	assert.ErrorIs(t, err, svcerr.ErrPermissionDenied)

	verified, err := e.svc.Verify(ctx, moderator, lt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusVerified, verified.Status)
	assert.Equal(t, moderator.UserID, *verified.VerifiedBy)
	assert.NotNil(t, verified.VerifiedAt)
	assert.Nil(t, verified.RejectionReason)

	_, err = e.svc.Verify(ctx, moderator, lt.ID)
	assert.ErrorIs(t, err, svcerr.ErrValidation, "already verified")

	_, err = e.svc.Reject(ctx, moderator, lt.ID, "   ")
	assert.ErrorIs(t, err, svcerr.ErrValidation)

	rejected, err := e.svc.Reject(ctx, moderator, lt.ID, " no proof ")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)
	assert.Equal(t, "no proof", *rejected.RejectionReason)

	reverified, err := e.svc.Verify(ctx, moderator, lt.ID)
	require.NoError(t, err)
	assert.Nil(t, reverified.RejectionReason)

	_, err = e.svc.Verify(ctx, moderator, uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, svcerr.ErrLapTimeNotFound)
	assert.ErrorIs(t, err, svcerr.ErrNotFound)
}

func TestConcurrentVerifyTransitionsOnce(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lt, err := e.svc.Record(ctx, driver, e.request())
	require.NoError(t, err)

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.svc.Verify(ctx, moderator, lt.ID)
		}()
	}
	wg.Wait()

	succeeded := lo.CountBy(errs, func(err error) bool { return err == nil })
	assert.Equal(t, 1, succeeded)
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, svcerr.ErrValidation)
		}
	}
}

func TestRecordEmailUsedByOtherAccount(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	_, err := e.svc.Record(ctx, driver, e.request())
	require.NoError(t, err)

	other := &model.Identity{UserID: "driver2", Name: "Other", Email: driver.Email}
	_, err = e.svc.Record(ctx, other, e.request())
	assert.ErrorIs(t, err, svcerr.ErrValidation)
	assert.ErrorContains(t, err, "email")
}

func TestAdminMayModerate(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lt, err := e.svc.Record(ctx, driver, e.request())
	require.NoError(t, err)
	admin := &model.Identity{UserID: "admin", Name: "Admin", Email: "a@example.com", IsAdmin: true}
	_, err = e.svc.Reject(ctx, admin, lt.ID, "wrong car")
	require.NoError(t, err)
}
