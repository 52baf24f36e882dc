//nolint:funlen // ok for this test code
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/laptime-logger/pkg/auth"
	"github.com/mpapenbr/laptime-logger/pkg/catalog"
	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/permission"
	bobRepos "github.com/mpapenbr/laptime-logger/pkg/repository/bob"
	"github.com/mpapenbr/laptime-logger/pkg/service/carmodel"
	"github.com/mpapenbr/laptime-logger/pkg/service/history"
	"github.com/mpapenbr/laptime-logger/pkg/service/laptime"
	"github.com/mpapenbr/laptime-logger/pkg/service/leaderboard"
	"github.com/mpapenbr/laptime-logger/pkg/service/profile"
	"github.com/mpapenbr/laptime-logger/pkg/service/stats"
	"github.com/mpapenbr/laptime-logger/pkg/service/track"
	"github.com/mpapenbr/laptime-logger/testsupport/basedata"
	"github.com/mpapenbr/laptime-logger/testsupport/testdb"
)

const (
	adminToken = "secret"
	userHeader = "x-test-user"
)

// headerProvider trusts the user id given in a header
type headerProvider struct{}

func (headerProvider) Lookup(_ context.Context, r *http.Request) (*model.Identity, error) {
	uid := r.Header.Get(userHeader)
	if uid == "" {
		return nil, nil
	}
	return &model.Identity{UserID: uid, Name: "Driver " + uid, Email: uid + "@example.com"}, nil
}

type env struct {
	t        *testing.T
	srv      *httptest.Server
	fixture  *basedata.Fixture
	layout   *model.TrackLayout
	car      *model.CarModel
	upstream atomic.Int32 // status returned by the fake catalog, 0: ok
}

func setup(t *testing.T) *env {
	t.Helper()
	pool := testdb.InitTestDB()
	f := basedata.NewFixture(pool)
	e := &env{t: t, fixture: f}
	_, e.layout = f.Track("Spa-Francorchamps", "spa")
	e.car = f.CarModel("Toyota", "GR86", nil)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := e.upstream.Load(); s != 0 {
			w.WriteHeader(int(s))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"name":"Toyota"},{"name":"BMW"}]}`))
	}))
	t.Cleanup(upstream.Close)

	pe, err := permission.NewOpaPermissionEvaluator()
	require.NoError(t, err)
	txMgr := bobRepos.NewTransactionManagerFromPool(pool)
	cars := carmodel.NewService(carmodel.WithCarModelRepository(f.Repos.CarModel()))
	srv := NewServer(
		WithServices(Services{
			Tracks: track.NewService(
				track.WithRepositories(f.Repos),
				track.WithTxManager(txMgr),
				track.WithPermissionEvaluator(pe)),
			Leaderboard: leaderboard.NewService(leaderboard.WithRepositories(f.Repos)),
			LapTimes: laptime.NewService(
				laptime.WithRepositories(f.Repos),
				laptime.WithTxManager(txMgr),
				laptime.WithPermissionEvaluator(pe),
				laptime.WithCarModelService(cars)),
			History: history.NewService(history.WithLapTimeRepository(f.Repos.LapTime())),
			Profiles: profile.NewService(
				profile.WithUserRepository(f.Repos.User()),
				profile.WithPermissionEvaluator(pe)),
			Stats:     stats.NewService(stats.WithRepositories(f.Repos)),
			CarModels: cars,
			Catalog:   catalog.NewClient(upstream.URL, catalog.WithRateLimit(0)),
		}),
		WithAuthProvider(auth.Chain(auth.NewAdminTokenProvider(adminToken), headerProvider{})),
		WithHealthCheck(pool.Ping),
	)
	e.srv = httptest.NewServer(srv.Handler())
	t.Cleanup(e.srv.Close)
	return e
}

// do sends the request as user ("" for anonymous, "admin" for the admin token)
// and decodes the data of the response into out if given
func (e *env) do(method, path, user string, body, out any) int {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	switch user {
	case "":
	case auth.AdminUserID:
		req.Header.Set("api-token", adminToken)
	default:
		req.Header.Set(userHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		var wrapper struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&wrapper))
		require.NoError(e.t, json.Unmarshal(wrapper.Data, out))
	}
	return resp.StatusCode
}

func (e *env) record(user string, timeMs int) *model.LapTime {
	e.t.Helper()
	var ret recordResponse
	status := e.do(http.MethodPost, "/api/v1/laptimes", user, map[string]any{
		"trackLayoutId": e.layout.ID,
		"carModelId":    e.car.ID,
		"timeMs":        timeMs,
	}, &ret)
	require.Equal(e.t, http.StatusCreated, status)
	return ret.LapTime
}

func TestHealthAndMetrics(t *testing.T) {
	e := setup(t)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/healthz", "", nil, nil))
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/v1/tracks", "", nil, nil))

	resp, err := http.Get(e.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ltl_http_requests_total{method="GET",route="/api/v1/tracks",status="200"}`)
}

func TestRecordAndModerate(t *testing.T) {
	e := setup(t)

	lap := e.record("driver1", 92345)
	assert.Equal(t, model.StatusPending, lap.Status)
	assert.Equal(t, "driver1", lap.UserID)

	verifyPath := fmt.Sprintf("/api/v1/laptimes/%s/verify", lap.ID)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, verifyPath, "driver1", nil, nil))

	var verified model.LapTime
	require.Equal(t, http.StatusOK,
		e.do(http.MethodPost, verifyPath, auth.AdminUserID, nil, &verified))
	assert.Equal(t, model.StatusVerified, verified.Status)
	// same status again
	assert.Equal(t, http.StatusBadRequest,
		e.do(http.MethodPost, verifyPath, auth.AdminUserID, nil, nil))

	pending := e.record("driver1", 95000)
	rejectPath := fmt.Sprintf("/api/v1/laptimes/%s/reject", pending.ID)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, rejectPath,
		auth.AdminUserID, map[string]string{"reason": "  "}, nil))
	var rejected model.LapTime
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, rejectPath,
		auth.AdminUserID, map[string]string{"reason": "no proof"}, &rejected))
	assert.Equal(t, model.StatusRejected, rejected.Status)

	var board model.TrackBoard
	require.Equal(t, http.StatusOK,
		e.do(http.MethodGet, "/api/v1/tracks/spa/leaderboard?top=5", "", nil, &board))
	require.Len(t, board.Boards, 1)
	require.Len(t, board.Boards[0].Entries, 1)
	assert.Equal(t, int32(92345), board.Boards[0].Entries[0].TimeMs)

	var hist []*model.HistoryEntry
	require.Equal(t, http.StatusOK,
		e.do(http.MethodGet, "/api/v1/me/history?status=verified", "driver1", nil, &hist))
	require.Len(t, hist, 1)
	assert.Equal(t, lap.ID, hist[0].ID)

	var st model.UserStats
	require.Equal(t, http.StatusOK,
		e.do(http.MethodGet, "/api/v1/users/driver1/stats", "", nil, &st))
	assert.Equal(t, 2, st.TotalTimes)
	assert.Equal(t, 1, st.VerifiedTimes)
	assert.Equal(t, int32(92345), *st.BestTime)

	assert.Equal(t, http.StatusNotFound,
		e.do(http.MethodGet, "/api/v1/users/ghost/stats", "", nil, nil))
	assert.Equal(t, http.StatusNotFound,
		e.do(http.MethodGet, "/api/v1/tracks/nowhere/leaderboard", "", nil, nil))
}

func TestRecordWithCar(t *testing.T) {
	e := setup(t)

	var ret recordResponse
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/v1/laptimes", "driver1",
		map[string]any{
			"trackLayoutId": e.layout.ID,
			"timeMs":        101000,
			"car":           map[string]any{"make": " Mazda ", "model": "MX-5", "trim": "ND2"},
		}, &ret))
	require.NotNil(t, ret.CarModel)
	assert.Equal(t, "Mazda", ret.CarModel.Make)
	assert.Equal(t, ret.CarModel.ID, ret.LapTime.CarModelID)

	var resolved resolveResponse
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/api/v1/cars", "driver1",
		map[string]any{"make": "Mazda", "model": "MX-5", "trim": "ND2"}, &resolved))
	assert.True(t, resolved.Existed)
	assert.Equal(t, ret.CarModel.ID, resolved.CarModel.ID)

	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/v1/cars", "driver1",
		map[string]any{"make": "Mazda", "model": "MX-5"}, &resolved))
	assert.False(t, resolved.Existed)

	var found []*model.CarModel
	require.Equal(t, http.StatusOK,
		e.do(http.MethodGet, "/api/v1/cars/search?q=mx-5", "", nil, &found))
	assert.Len(t, found, 2)

	var mine []*model.CarModelRef
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/v1/me/cars", "driver1", nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "MX-5", mine[0].Model)
}

func TestRequestValidation(t *testing.T) {
	e := setup(t)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/v1/laptimes", "driver1",
		map[string]any{"trackLayoutId": e.layout.ID, "carModelId": e.car.ID, "timeMs": -1}, nil))
	assert.Equal(t, http.StatusBadRequest,
		e.do(http.MethodPost, "/api/v1/laptimes/not-an-id/verify", auth.AdminUserID, nil, nil))
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost,
		"/api/v1/laptimes/6ba7b810-9dad-11d1-80b4-00c04fd430c8/verify",
		auth.AdminUserID, nil, nil))
	assert.Equal(t, http.StatusBadRequest,
		e.do(http.MethodGet, "/api/v1/me/history?sort=speed", "driver1", nil, nil))
	assert.Equal(t, http.StatusBadRequest,
		e.do(http.MethodGet, "/api/v1/tracks/spa/leaderboard?top=many", "", nil, nil))

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api/v1/laptimes",
		strings.NewReader("{not json"))
	require.NoError(t, err)
	req.Header.Set(userHeader, "driver1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthentication(t *testing.T) {
	e := setup(t)

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/api/v1/laptimes", "",
		map[string]any{"trackLayoutId": e.layout.ID, "carModelId": e.car.ID, "timeMs": 1}, nil))
	assert.Equal(t, http.StatusUnauthorized,
		e.do(http.MethodGet, "/api/v1/me/history", "", nil, nil))

	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/api/v1/tracks", nil)
	require.NoError(t, err)
	req.Header.Set("api-token", "wrong")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTrackManagement(t *testing.T) {
	e := setup(t)
	newTrack := map[string]any{"name": "Zandvoort", "slug": "zandvoort", "lengthKm": "4.259"}

	assert.Equal(t, http.StatusForbidden,
		e.do(http.MethodPost, "/api/v1/tracks", "driver1", newTrack, nil))
	var created model.Track
	require.Equal(t, http.StatusCreated,
		e.do(http.MethodPost, "/api/v1/tracks", auth.AdminUserID, newTrack, &created))
	assert.Equal(t, "zandvoort", created.Slug)
	assert.Equal(t, http.StatusConflict,
		e.do(http.MethodPost, "/api/v1/tracks", auth.AdminUserID, newTrack, nil))

	var seeded []*model.TrackLayout
	require.Equal(t, http.StatusOK,
		e.do(http.MethodPost, "/api/v1/admin/seed-layouts", auth.AdminUserID, nil, &seeded))
	require.Len(t, seeded, 1)
	assert.Equal(t, created.ID, seeded[0].TrackID)
	assert.True(t, seeded[0].IsMain)

	var layout model.TrackLayout
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost,
		"/api/v1/tracks/zandvoort/layouts", auth.AdminUserID,
		map[string]any{"name": "National", "slug": "national"}, &layout))

	var detail struct {
		model.Track
		Layouts []*model.TrackLayout `json:"layouts"`
	}
	require.Equal(t, http.StatusOK,
		e.do(http.MethodGet, "/api/v1/tracks/zandvoort", "", nil, &detail))
	assert.Len(t, detail.Layouts, 2)

	var tracks []*model.Track
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/v1/tracks", "", nil, &tracks))
	assert.Len(t, tracks, 2)
}

func TestReferenceData(t *testing.T) {
	e := setup(t)

	tire := map[string]any{"brand": "Michelin", "name": "Pilot Sport Cup 2", "type": "semi_slick"}
	assert.Equal(t, http.StatusForbidden,
		e.do(http.MethodPost, "/api/v1/tires", "driver1", tire, nil))
	require.Equal(t, http.StatusCreated,
		e.do(http.MethodPost, "/api/v1/tires", auth.AdminUserID, tire, nil))
	var tires []*model.TireCompound
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/v1/tires", "", nil, &tires))
	assert.Len(t, tires, 1)

	var cond model.Condition
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/v1/conditions", "driver1",
		map[string]any{"weather": "dry", "airTempC": "21.5", "humidityPct": 40}, &cond))
	var loaded model.Condition
	require.Equal(t, http.StatusOK, e.do(http.MethodGet,
		"/api/v1/conditions/"+cond.ID.String(), "", nil, &loaded))
	assert.Equal(t, model.WeatherDry, loaded.Weather)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/v1/conditions", "driver1",
		map[string]any{"weather": "dry", "humidityPct": 140}, nil))
}

func TestUpdateBio(t *testing.T) {
	e := setup(t)

	var user model.User
	require.Equal(t, http.StatusOK, e.do(http.MethodPut, "/api/v1/me/bio", "newbie",
		map[string]string{"bio": "  weekend warrior  "}, &user))
	require.NotNil(t, user.Bio)
	assert.Equal(t, "weekend warrior", *user.Bio)

	require.Equal(t, http.StatusOK, e.do(http.MethodPut, "/api/v1/me/bio", "newbie",
		map[string]string{"bio": ""}, &user))
	assert.Nil(t, user.Bio)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPut, "/api/v1/me/bio", "newbie",
		map[string]string{"bio": strings.Repeat("x", 501)}, nil))
}

func TestCatalog(t *testing.T) {
	e := setup(t)

	var makes []string
	require.Equal(t, http.StatusOK,
		e.do(http.MethodGet, "/api/v1/catalog/makes", "", nil, &makes))
	assert.Equal(t, []string{"BMW", "Toyota"}, makes)

	e.upstream.Store(http.StatusInternalServerError)
	assert.Equal(t, http.StatusBadGateway,
		e.do(http.MethodGet, "/api/v1/catalog/models?make=Toyota", "", nil, nil))
	resp, err := http.Get(e.srv.URL + "/api/v1/catalog/models?make=BMW")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.JSONEq(t, `{"error":{"code":"upstream_failed","message":"Bad Gateway"}}`, string(body))
	assert.Equal(t, http.StatusBadRequest,
		e.do(http.MethodGet, "/api/v1/catalog/models?make=Toyota&year=new", "", nil, nil))
	assert.Equal(t, http.StatusBadRequest,
		e.do(http.MethodGet, "/api/v1/catalog/models", "", nil, nil))
}
