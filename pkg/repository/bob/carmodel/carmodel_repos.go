//nolint:whitespace // can't make both editor and linter happy
package carmodel

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
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

const tableName = "car_models"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type (
	repo struct {
		conn bob.Executor
	}
	carModelRow struct {
		ID         uuid.UUID `db:"id"`
		Make       string    `db:"make"`
		Model      string    `db:"model"`
		Trim       *string   `db:"trim"`
		YearFrom   *int32    `db:"year_from"`
		YearTo     *int32    `db:"year_to"`
		PowerHp    *int32    `db:"power_hp"`
		WeightKg   *int32    `db:"weight_kg"`
		Drivetrain *string   `db:"drivetrain"`
		CreatedAt  time.Time `db:"created_at"`
	}
)

var _ api.CarModelRepository = (*repo)(nil)

func NewCarModelRepository(conn bob.Executor) api.CarModelRepository {
	return &repo{
		conn: conn,
	}
}

func (r *repo) FindByKey(
	ctx context.Context,
	carMake, carModel string,
	trim *string,
) (*model.CarModel, error) {
	trimCond := psql.Quote("trim").IsNull()
	if trim != nil {
		trimCond = psql.Quote("trim").EQ(psql.Arg(*trim))
	}
	return r.loadOne(ctx, sm.Where(psql.And(
		psql.Quote("make").EQ(psql.Arg(carMake)),
		psql.Quote("model").EQ(psql.Arg(carModel)),
		trimCond,
	)))
}

// InsertIfAbsent inserts the car model unless an entry with the same
// (make, model, trim) exists. In that case ErrConflict is returned.
func (r *repo) InsertIfAbsent(ctx context.Context, car *model.CarModel) (
	*model.CarModel, error,
) {
	var drivetrain *string
	if car.Drivetrain != nil {
		d := string(*car.Drivetrain)
		drivetrain = &d
	}
	q := psql.Insert(
		im.Into(tableName,
			"make", "model", "trim", "year_from", "year_to",
			"power_hp", "weight_kg", "drivetrain"),
		im.Values(
			psql.Arg(car.Make),
			psql.Arg(car.Model),
			psql.Arg(car.Trim),
			psql.Arg(car.YearFrom),
			psql.Arg(car.YearTo),
			psql.Arg(car.PowerHp),
			psql.Arg(car.WeightKg),
			psql.Arg(drivetrain),
		),
		im.OnConflict("make", "model", "trim").DoNothing(),
		im.Returning("*"),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[carModelRow]())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrConflict
	}
	if err != nil {
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

func (r *repo) LoadByID(ctx context.Context, id uuid.UUID) (*model.CarModel, error) {
	return r.loadOne(ctx, sm.Where(psql.Quote("id").EQ(psql.Arg(id))))
}

// LoadAll returns all car models ordered by make, model and trim
func (r *repo) LoadAll(ctx context.Context) ([]*model.CarModel, error) {
	return r.loadMany(ctx, r.defaultOrder()...)
}

// LoadLimited returns at most limit car models in storage order
func (r *repo) LoadLimited(ctx context.Context, limit int) (
	[]*model.CarModel, error,
) {
	return r.loadMany(ctx, sm.Limit(limit))
}

func (r *repo) Search(ctx context.Context, query string, limit int) (
	[]*model.CarModel, error,
) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	mods := append([]bob.Mod[*dialect.SelectQuery]{
		sm.Where(psql.Or(
			psql.Raw("make ILIKE ?", psql.Arg(pattern)),
			psql.Raw("model ILIKE ?", psql.Arg(pattern)),
			psql.Raw("trim ILIKE ?", psql.Arg(pattern)),
		)),
		sm.Limit(limit),
	}, r.defaultOrder()...)
	return r.loadMany(ctx, mods...)
}

// deletes an entry from the database, returns number of rows deleted.
// Fails while lap times reference the car model.
func (r *repo) DeleteByID(ctx context.Context, id uuid.UUID) (int, error) {
	q := psql.Delete(
		dm.From(tableName),
		dm.Where(psql.Quote("id").EQ(psql.Arg(id))),
		dm.Returning("id"),
	)
	ret, err := bob.All(ctx, r.getExecutor(ctx), q, scan.SingleColumnMapper[uuid.UUID])
	return len(ret), pgerr.Translate(err)
}

func (r *repo) defaultOrder() []bob.Mod[*dialect.SelectQuery] {
	return []bob.Mod[*dialect.SelectQuery]{
		sm.OrderBy(psql.Quote("make")).Asc(),
		sm.OrderBy(psql.Quote("model")).Asc(),
		sm.OrderBy(psql.Quote("trim")).Asc(),
	}
}

func (r *repo) loadOne(ctx context.Context, mods ...bob.Mod[*dialect.SelectQuery]) (
	*model.CarModel, error,
) {
	q := psql.Select(append([]bob.Mod[*dialect.SelectQuery]{
		sm.Columns("*"),
		sm.From(tableName),
	}, mods...)...)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[carModelRow]())
	if err != nil {
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

func (r *repo) loadMany(ctx context.Context, mods ...bob.Mod[*dialect.SelectQuery]) (
	[]*model.CarModel, error,
) {
	q := psql.Select(append([]bob.Mod[*dialect.SelectQuery]{
		sm.Columns("*"),
		sm.From(tableName),
	}, mods...)...)
	data, err := bob.All(ctx, r.getExecutor(ctx), q, scan.StructMapper[carModelRow]())
	if err != nil {
		return nil, err
	}
	ret := make([]*model.CarModel, 0, len(data))
	for i := range data {
		ret = append(ret, data[i].toModel())
	}
	return ret, nil
}

func (c carModelRow) toModel() *model.CarModel {
	ret := &model.CarModel{
		ID:        c.ID,
		Make:      c.Make,
		Model:     c.Model,
		Trim:      c.Trim,
		YearFrom:  c.YearFrom,
		YearTo:    c.YearTo,
		PowerHp:   c.PowerHp,
		WeightKg:  c.WeightKg,
		CreatedAt: c.CreatedAt,
	}
	if c.Drivetrain != nil {
		d := model.Drivetrain(*c.Drivetrain)
		ret.Drivetrain = &d
	}
	return ret
}

func (r *repo) getExecutor(ctx context.Context) bob.Executor {
	return bobCtx.Executor(ctx, r.conn)
}
