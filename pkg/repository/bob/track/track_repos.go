//nolint:whitespace // can't make both editor and linter happy
package track

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"

	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	bobCtx "github.com/mpapenbr/laptime-logger/pkg/repository/bob/context"
	"github.com/mpapenbr/laptime-logger/pkg/repository/bob/pgerr"
)

const tableName = "tracks"

type (
	repo struct {
		conn bob.Executor
	}
	trackRow struct {
		ID            uuid.UUID           `db:"id"`
		Name          string              `db:"name"`
		Slug          string              `db:"slug"`
		Country       string              `db:"country"`
		Region        string              `db:"region"`
		City          string              `db:"city"`
		PhotoCoverURL *string             `db:"photo_cover_url"`
		WebsiteURL    *string             `db:"website_url"`
		LengthKm      decimal.NullDecimal `db:"length_km"`
		TurnCount     *int32              `db:"turn_count"`
		Direction     string              `db:"direction"`
		SurfaceType   string              `db:"surface_type"`
		TrackType     string              `db:"track_type"`
		AltitudeMinM  *int32              `db:"altitude_min_m"`
		AltitudeMaxM  *int32              `db:"altitude_max_m"`
		OpenedAt      *time.Time          `db:"opened_at"`
		IsActive      bool                `db:"is_active"`
		CreatedAt     time.Time           `db:"created_at"`
		UpdatedAt     time.Time           `db:"updated_at"`
	}
)

var _ api.TrackRepository = (*repo)(nil)

func NewTrackRepository(conn bob.Executor) api.TrackRepository {
	return &repo{
		conn: conn,
	}
}

func (r *repo) Create(ctx context.Context, track *model.Track) (*model.Track, error) {
	q := psql.Insert(
		im.Into(tableName,
			"name", "slug", "country", "region", "city",
			"photo_cover_url", "website_url", "length_km", "turn_count",
			"direction", "surface_type", "track_type",
			"altitude_min_m", "altitude_max_m", "opened_at", "is_active"),
		im.Values(
			psql.Arg(track.Name),
			psql.Arg(track.Slug),
			psql.Arg(track.Country),
			psql.Arg(track.Region),
			psql.Arg(track.City),
			psql.Arg(track.PhotoCoverURL),
			psql.Arg(track.WebsiteURL),
			psql.Arg(track.LengthKm),
			psql.Arg(track.TurnCount),
			psql.Arg(orDefault(track.Direction, "clockwise")),
			psql.Arg(orDefault(track.SurfaceType, "asphalt")),
			psql.Arg(orDefault(track.TrackType, "circuit")),
			psql.Arg(track.AltitudeMinM),
			psql.Arg(track.AltitudeMaxM),
			psql.Arg(track.OpenedAt),
			psql.Arg(track.IsActive),
		),
		im.Returning("*"),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[trackRow]())
	if err != nil {
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

// LoadAll returns tracks ordered by name
func (r *repo) LoadAll(ctx context.Context, activeOnly bool) (
	[]*model.Track, error,
) {
	mods := []bob.Mod[*dialect.SelectQuery]{
		sm.Columns("*"),
		sm.From(tableName),
		sm.OrderBy(psql.Quote("name")).Asc(),
	}
	if activeOnly {
		mods = append(mods, sm.Where(psql.Quote("is_active").EQ(psql.Arg(true))))
	}
	data, err := bob.All(ctx, r.getExecutor(ctx),
		psql.Select(mods...), scan.StructMapper[trackRow]())
	if err != nil {
		return nil, err
	}
	ret := make([]*model.Track, 0, len(data))
	for i := range data {
		ret = append(ret, data[i].toModel())
	}
	return ret, nil
}

func (r *repo) LoadByID(ctx context.Context, id uuid.UUID) (*model.Track, error) {
	return r.loadOne(ctx, sm.Where(psql.Quote("id").EQ(psql.Arg(id))))
}

func (r *repo) LoadBySlug(ctx context.Context, slug string) (*model.Track, error) {
	return r.loadOne(ctx, sm.Where(psql.Quote("slug").EQ(psql.Arg(slug))))
}

// deletes an entry from the database, returns number of rows deleted.
// Layouts and their lap times are removed by the database.
func (r *repo) DeleteByID(ctx context.Context, id uuid.UUID) (int, error) {
	q := psql.Delete(
		dm.From(tableName),
		dm.Where(psql.Quote("id").EQ(psql.Arg(id))),
		dm.Returning("id"),
	)
	ret, err := bob.All(ctx, r.getExecutor(ctx), q, scan.SingleColumnMapper[uuid.UUID])
	return len(ret), err
}

func (r *repo) loadOne(ctx context.Context, where bob.Mod[*dialect.SelectQuery]) (
	*model.Track, error,
) {
	q := psql.Select(
		sm.Columns("*"),
		sm.From(tableName),
		where,
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[trackRow]())
	if err != nil {
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

func (t trackRow) toModel() *model.Track {
	return &model.Track{
		ID:            t.ID,
		Name:          t.Name,
		Slug:          t.Slug,
		Country:       t.Country,
		Region:        t.Region,
		City:          t.City,
		PhotoCoverURL: t.PhotoCoverURL,
		WebsiteURL:    t.WebsiteURL,
		LengthKm:      t.LengthKm,
		TurnCount:     t.TurnCount,
		Direction:     t.Direction,
		SurfaceType:   t.SurfaceType,
		TrackType:     t.TrackType,
		AltitudeMinM:  t.AltitudeMinM,
		AltitudeMaxM:  t.AltitudeMaxM,
		OpenedAt:      t.OpenedAt,
		IsActive:      t.IsActive,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (r *repo) getExecutor(ctx context.Context) bob.Executor {
	return bobCtx.Executor(ctx, r.conn)
}
