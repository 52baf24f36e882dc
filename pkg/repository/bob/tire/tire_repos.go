//nolint:whitespace // can't make both editor and linter happy
package tire

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
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

const tableName = "tire_compounds"

type (
	repo struct {
		conn bob.Executor
	}
	tireRow struct {
		ID        uuid.UUID `db:"id"`
		Brand     string    `db:"brand"`
		Name      string    `db:"name"`
		Type      string    `db:"type"`
		Notes     *string   `db:"notes"`
		CreatedAt time.Time `db:"created_at"`
	}
)

var _ api.TireCompoundRepository = (*repo)(nil)

func NewTireCompoundRepository(conn bob.Executor) api.TireCompoundRepository {
	return &repo{
		conn: conn,
	}
}

func (r *repo) Create(ctx context.Context, tire *model.TireCompound) (
	*model.TireCompound, error,
) {
	q := psql.Insert(
		im.Into(tableName, "brand", "name", "type", "notes"),
		im.Values(
			psql.Arg(tire.Brand),
			psql.Arg(tire.Name),
			psql.Arg(string(tire.Type)),
			psql.Arg(tire.Notes),
		),
		im.Returning("*"),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[tireRow]())
	if err != nil {
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

func (r *repo) LoadAll(ctx context.Context) ([]*model.TireCompound, error) {
	q := psql.Select(
		sm.Columns("*"),
		sm.From(tableName),
		sm.OrderBy(psql.Quote("brand")).Asc(),
		sm.OrderBy(psql.Quote("name")).Asc(),
	)
	data, err := bob.All(ctx, r.getExecutor(ctx), q, scan.StructMapper[tireRow]())
	if err != nil {
		return nil, err
	}
	ret := make([]*model.TireCompound, 0, len(data))
	for i := range data {
		ret = append(ret, data[i].toModel())
	}
	return ret, nil
}

func (r *repo) LoadByID(ctx context.Context, id uuid.UUID) (
	*model.TireCompound, error,
) {
	q := psql.Select(
		sm.Columns("*"),
		sm.From(tableName),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[tireRow]())
	if err != nil {
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

func (t tireRow) toModel() *model.TireCompound {
	return &model.TireCompound{
		ID:        t.ID,
		Brand:     t.Brand,
		Name:      t.Name,
		Type:      model.TireType(t.Type),
		Notes:     t.Notes,
		CreatedAt: t.CreatedAt,
	}
}

func (r *repo) getExecutor(ctx context.Context) bob.Executor {
	return bobCtx.Executor(ctx, r.conn)
}
