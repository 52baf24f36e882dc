//nolint:whitespace // can't make both editor and linter happy
package laptime

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"

	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
)

type (
	historyRow struct {
		ID         uuid.UUID `db:"id"`
		TimeMs     int32     `db:"time_ms"`
		DrivenAt   time.Time `db:"driven_at"`
		Status     string    `db:"status"`
		Source     string    `db:"source"`
		ProofURL   *string   `db:"proof_url"`
		CreatedAt  time.Time `db:"created_at"`
		TrackID    uuid.UUID `db:"track_id"`
		TrackName  string    `db:"track_name"`
		TrackSlug  string    `db:"track_slug"`
		LayoutID   uuid.UUID `db:"layout_id"`
		LayoutName string    `db:"layout_name"`
		CarID      uuid.UUID `db:"car_id"`
		CarMake    string    `db:"car_make"`
		CarModel   string    `db:"car_model"`
		CarTrim    *string   `db:"car_trim"`
	}
	leaderboardRow struct {
		ID         uuid.UUID `db:"id"`
		TimeMs     int32     `db:"time_ms"`
		DrivenAt   time.Time `db:"driven_at"`
		LayoutID   uuid.UUID `db:"layout_id"`
		LayoutName string    `db:"layout_name"`
		UserID     string    `db:"user_id"`
		UserName   string    `db:"user_name"`
		CarID      uuid.UUID `db:"car_id"`
		CarMake    string    `db:"car_make"`
		CarModel   string    `db:"car_model"`
		CarTrim    *string   `db:"car_trim"`
	}
	carRefRow struct {
		ID    uuid.UUID `db:"id"`
		Make  string    `db:"make"`
		Model string    `db:"model"`
		Trim  *string   `db:"trim"`
	}
	trackRefRow struct {
		ID   uuid.UUID `db:"id"`
		Name string    `db:"name"`
		Slug string    `db:"slug"`
	}
	countsRow struct {
		Total    int64  `db:"total"`
		Verified int64  `db:"verified"`
		Best     *int32 `db:"best"`
	}
)

// column helpers for the aliases used in the joins below
func lt(col string) dialect.Expression { return psql.Quote("lt", col) }
func tr(col string) dialect.Expression { return psql.Quote("t", col) }
func ly(col string) dialect.Expression { return psql.Quote("l", col) }
func cm(col string) dialect.Expression { return psql.Quote("c", col) }

// joins lap_times with layout, track and car model
func baseJoins() []bob.Mod[*dialect.SelectQuery] {
	return []bob.Mod[*dialect.SelectQuery]{
		sm.From(tableName).As("lt"),
		sm.InnerJoin("track_layouts").As("l").On(ly("id").EQ(lt("track_layout_id"))),
		sm.InnerJoin("tracks").As("t").On(tr("id").EQ(ly("track_id"))),
		sm.InnerJoin("car_models").As("c").On(cm("id").EQ(lt("car_model_id"))),
	}
}

// History returns the lap times of a user. Filters are combined with AND.
// Default order is drivenAt desc, SortByTime orders by timeMs asc.
// The id is used as last key to get a stable ordering.
func (r *repo) History(
	ctx context.Context,
	userID string,
	filter model.HistoryFilter,
) ([]*model.HistoryEntry, error) {
	conds := []bob.Expression{lt("user_id").EQ(psql.Arg(userID))}
	if v, ok := filter.TrackID.Get(); ok {
		conds = append(conds, tr("id").EQ(psql.Arg(v)))
	}
	if v, ok := filter.Status.Get(); ok {
		conds = append(conds, lt("status").EQ(psql.Arg(string(v))))
	}
	if v, ok := filter.CarModelID.Get(); ok {
		conds = append(conds, lt("car_model_id").EQ(psql.Arg(v)))
	}

	mods := []bob.Mod[*dialect.SelectQuery]{
		sm.Columns(
			lt("id"), lt("time_ms"), lt("driven_at"), lt("status"),
			lt("source"), lt("proof_url"), lt("created_at"),
			tr("id").As("track_id"),
			tr("name").As("track_name"),
			tr("slug").As("track_slug"),
			ly("id").As("layout_id"),
			ly("name").As("layout_name"),
			cm("id").As("car_id"),
			cm("make").As("car_make"),
			cm("model").As("car_model"),
			cm("trim").As("car_trim"),
		),
	}
	mods = append(mods, baseJoins()...)
	mods = append(mods, sm.Where(psql.And(conds...)))
	if filter.SortBy == model.SortByTime {
		mods = append(mods, sm.OrderBy(lt("time_ms")).Asc())
	} else {
		mods = append(mods, sm.OrderBy(lt("driven_at")).Desc())
	}
	mods = append(mods, sm.OrderBy(lt("id")).Asc())

	data, err := bob.All(ctx, r.getExecutor(ctx), psql.Select(mods...),
		scan.StructMapper[historyRow]())
	if err != nil {
		return nil, err
	}
	ret := make([]*model.HistoryEntry, 0, len(data))
	for i := range data {
		ret = append(ret, data[i].toModel())
	}
	return ret, nil
}

// UserCarModels returns the distinct car models a user has logged lap times with
func (r *repo) UserCarModels(ctx context.Context, userID string) (
	[]*model.CarModelRef, error,
) {
	mods := []bob.Mod[*dialect.SelectQuery]{
		sm.Distinct(),
		sm.Columns(cm("id"), cm("make"), cm("model"), cm("trim")),
	}
	mods = append(mods, baseJoins()...)
	mods = append(mods,
		sm.Where(lt("user_id").EQ(psql.Arg(userID))),
		sm.OrderBy(cm("make")).Asc(),
		sm.OrderBy(cm("model")).Asc(),
		sm.OrderBy(cm("trim")).Asc(),
		sm.OrderBy(cm("id")).Asc(),
	)
	data, err := bob.All(ctx, r.getExecutor(ctx), psql.Select(mods...),
		scan.StructMapper[carRefRow]())
	if err != nil {
		return nil, err
	}
	ret := make([]*model.CarModelRef, 0, len(data))
	for i := range data {
		ret = append(ret, &model.CarModelRef{
			ID:    data[i].ID,
			Make:  data[i].Make,
			Model: data[i].Model,
			Trim:  data[i].Trim,
		})
	}
	return ret, nil
}

// UserTracks returns the distinct tracks a user has logged lap times at
func (r *repo) UserTracks(ctx context.Context, userID string) (
	[]*model.TrackRef, error,
) {
	mods := []bob.Mod[*dialect.SelectQuery]{
		sm.Distinct(),
		sm.Columns(tr("id"), tr("name"), tr("slug")),
	}
	mods = append(mods, baseJoins()...)
	mods = append(mods,
		sm.Where(lt("user_id").EQ(psql.Arg(userID))),
		sm.OrderBy(tr("name")).Asc(),
		sm.OrderBy(tr("id")).Asc(),
	)
	data, err := bob.All(ctx, r.getExecutor(ctx), psql.Select(mods...),
		scan.StructMapper[trackRefRow]())
	if err != nil {
		return nil, err
	}
	ret := make([]*model.TrackRef, 0, len(data))
	for i := range data {
		ret = append(ret, &model.TrackRef{
			ID:   data[i].ID,
			Name: data[i].Name,
			Slug: data[i].Slug,
		})
	}
	return ret, nil
}

// Leaderboard returns all verified lap times on any layout of the track
// ordered by timeMs. Ties are broken by drivenAt and id.
func (r *repo) Leaderboard(ctx context.Context, trackID uuid.UUID) (
	[]*model.LeaderboardEntry, error,
) {
	mods := []bob.Mod[*dialect.SelectQuery]{
		sm.Columns(
			lt("id"), lt("time_ms"), lt("driven_at"),
			ly("id").As("layout_id"),
			ly("name").As("layout_name"),
			psql.Quote("u", "id").As("user_id"),
			psql.Quote("u", "name").As("user_name"),
			cm("id").As("car_id"),
			cm("make").As("car_make"),
			cm("model").As("car_model"),
			cm("trim").As("car_trim"),
		),
		sm.From(tableName).As("lt"),
		sm.InnerJoin("track_layouts").As("l").On(ly("id").EQ(lt("track_layout_id"))),
		sm.InnerJoin("users").As("u").On(psql.Quote("u", "id").EQ(lt("user_id"))),
		sm.InnerJoin("car_models").As("c").On(cm("id").EQ(lt("car_model_id"))),
		sm.Where(psql.And(
			ly("track_id").EQ(psql.Arg(trackID)),
			lt("status").EQ(psql.Arg(string(model.StatusVerified))),
		)),
		sm.OrderBy(lt("time_ms")).Asc(),
		sm.OrderBy(lt("driven_at")).Asc(),
		sm.OrderBy(lt("id")).Asc(),
	}
	data, err := bob.All(ctx, r.getExecutor(ctx), psql.Select(mods...),
		scan.StructMapper[leaderboardRow]())
	if err != nil {
		return nil, err
	}
	ret := make([]*model.LeaderboardEntry, 0, len(data))
	for i := range data {
		ret = append(ret, data[i].toModel())
	}
	return ret, nil
}

// UserCounts aggregates the lap times of a user in the database
func (r *repo) UserCounts(ctx context.Context, userID string) (
	*api.LapTimeCounts, error,
) {
	q := psql.RawQuery(`
SELECT count(*) AS total,
       count(*) FILTER (WHERE status = 'verified') AS verified,
       min(time_ms) FILTER (WHERE status = 'verified') AS best
FROM lap_times
WHERE user_id = ?`,
		psql.Arg(userID))
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[countsRow]())
	if err != nil {
		return nil, err
	}
	return &api.LapTimeCounts{
		Total:    int(ret.Total),
		Verified: int(ret.Verified),
		Best:     ret.Best,
	}, nil
}

func (h historyRow) toModel() *model.HistoryEntry {
	return &model.HistoryEntry{
		ID:        h.ID,
		TimeMs:    h.TimeMs,
		DrivenAt:  h.DrivenAt,
		Status:    model.Status(h.Status),
		Source:    model.Source(h.Source),
		ProofURL:  h.ProofURL,
		CreatedAt: h.CreatedAt,
		Track:     model.TrackRef{ID: h.TrackID, Name: h.TrackName, Slug: h.TrackSlug},
		Layout:    model.LayoutRef{ID: h.LayoutID, Name: h.LayoutName},
		CarModel: model.CarModelRef{
			ID:    h.CarID,
			Make:  h.CarMake,
			Model: h.CarModel,
			Trim:  h.CarTrim,
		},
	}
}

func (l leaderboardRow) toModel() *model.LeaderboardEntry {
	return &model.LeaderboardEntry{
		ID:       l.ID,
		TimeMs:   l.TimeMs,
		DrivenAt: l.DrivenAt,
		Layout:   model.LayoutRef{ID: l.LayoutID, Name: l.LayoutName},
		User:     model.UserRef{ID: l.UserID, Name: l.UserName},
		CarModel: model.CarModelRef{
			ID:    l.CarID,
			Make:  l.CarMake,
			Model: l.CarModel,
			Trim:  l.CarTrim,
		},
	}
}
