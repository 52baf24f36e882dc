//nolint:whitespace // can't make both editor and linter happy
package layout

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"

	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	bobCtx "github.com/mpapenbr/laptime-logger/pkg/repository/bob/context"
	"github.com/mpapenbr/laptime-logger/pkg/repository/bob/pgerr"
)

const tableName = "track_layouts"

type (
	repo struct {
		conn bob.Executor
	}
	layoutRow struct {
		ID        uuid.UUID           `db:"id"`
		TrackID   uuid.UUID           `db:"track_id"`
		Name      string              `db:"name"`
		Slug      string              `db:"slug"`
		LengthKm  decimal.NullDecimal `db:"length_km"`
		TurnCount *int32              `db:"turn_count"`
		IsMain    bool                `db:"is_main"`
		CreatedAt time.Time           `db:"created_at"`
	}
	layoutTrackRow struct {
		ID        uuid.UUID           `db:"id"`
		TrackID   uuid.UUID           `db:"track_id"`
		Name      string              `db:"name"`
		Slug      string              `db:"slug"`
		LengthKm  decimal.NullDecimal `db:"length_km"`
		TurnCount *int32              `db:"turn_count"`
		IsMain    bool                `db:"is_main"`
		CreatedAt time.Time           `db:"created_at"`
		TrackName string              `db:"track_name"`
	}
)

var _ api.LayoutRepository = (*repo)(nil)

func NewLayoutRepository(conn bob.Executor) api.LayoutRepository {
	return &repo{
		conn: conn,
	}
}

func (r *repo) Create(ctx context.Context, layout *model.TrackLayout) (
	*model.TrackLayout, error,
) {
	q := psql.Insert(
		im.Into(tableName,
			"track_id", "name", "slug", "length_km", "turn_count", "is_main"),
		im.Values(
			psql.Arg(layout.TrackID),
			psql.Arg(layout.Name),
			psql.Arg(layout.Slug),
			psql.Arg(layout.LengthKm),
			psql.Arg(layout.TurnCount),
			psql.Arg(layout.IsMain),
		),
		im.Returning("*"),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[layoutRow]())
	if err != nil {
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

func (r *repo) LoadByTrackID(ctx context.Context, trackID uuid.UUID) (
	[]*model.TrackLayout, error,
) {
	q := psql.Select(
		sm.Columns("*"),
		sm.From(tableName),
		sm.Where(psql.Quote("track_id").EQ(psql.Arg(trackID))),
		sm.OrderBy(psql.Quote("is_main")).Desc(),
		sm.OrderBy(psql.Quote("name")).Asc(),
	)
	data, err := bob.All(ctx, r.getExecutor(ctx), q, scan.StructMapper[layoutRow]())
	if err != nil {
		return nil, err
	}
	ret := make([]*model.TrackLayout, 0, len(data))
	for i := range data {
		ret = append(ret, data[i].toModel())
	}
	return ret, nil
}

func (r *repo) LoadBySlug(ctx context.Context, trackID uuid.UUID, slug string) (
	*model.TrackLayout, error,
) {
	q := psql.Select(
		sm.Columns("*"),
		sm.From(tableName),
		sm.Where(psql.And(
			psql.Quote("track_id").EQ(psql.Arg(trackID)),
			psql.Quote("slug").EQ(psql.Arg(slug)),
		)),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[layoutRow]())
	if err != nil {
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

// LoadAll returns all layouts ordered by track name, main layout first
func (r *repo) LoadAll(ctx context.Context) ([]*model.LayoutWithTrack, error) {
	q := psql.Select(
		sm.Columns(
			psql.Quote("l", "id"),
			psql.Quote("l", "track_id"),
			psql.Quote("l", "name"),
			psql.Quote("l", "slug"),
			psql.Quote("l", "length_km"),
			psql.Quote("l", "turn_count"),
			psql.Quote("l", "is_main"),
			psql.Quote("l", "created_at"),
			psql.Quote("t", "name").As("track_name"),
		),
		sm.From(tableName).As("l"),
		sm.InnerJoin("tracks").As("t").On(
			psql.Quote("t", "id").EQ(psql.Quote("l", "track_id"))),
		sm.OrderBy(psql.Quote("t", "name")).Asc(),
		sm.OrderBy(psql.Quote("l", "is_main")).Desc(),
		sm.OrderBy(psql.Quote("l", "name")).Asc(),
	)
	data, err := bob.All(ctx, r.getExecutor(ctx), q,
		scan.StructMapper[layoutTrackRow]())
	if err != nil {
		return nil, err
	}
	ret := make([]*model.LayoutWithTrack, 0, len(data))
	for i := range data {
		ret = append(ret, &model.LayoutWithTrack{
			TrackLayout: *data[i].layout().toModel(),
			TrackName:   data[i].TrackName,
		})
	}
	return ret, nil
}

func (l layoutRow) toModel() *model.TrackLayout {
	return &model.TrackLayout{
		ID:        l.ID,
		TrackID:   l.TrackID,
		Name:      l.Name,
		Slug:      l.Slug,
		LengthKm:  l.LengthKm,
		TurnCount: l.TurnCount,
		IsMain:    l.IsMain,
		CreatedAt: l.CreatedAt,
	}
}

func (l layoutTrackRow) layout() layoutRow {
	return layoutRow{
		ID:        l.ID,
		TrackID:   l.TrackID,
		Name:      l.Name,
		Slug:      l.Slug,
		LengthKm:  l.LengthKm,
		TurnCount: l.TurnCount,
		IsMain:    l.IsMain,
		CreatedAt: l.CreatedAt,
	}
}

func (r *repo) getExecutor(ctx context.Context) bob.Executor {
	return bobCtx.Executor(ctx, r.conn)
}
