//nolint:whitespace // can't make both editor and linter happy
package condition

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

const tableName = "conditions"

type (
	repo struct {
		conn bob.Executor
	}
	conditionRow struct {
		ID          uuid.UUID           `db:"id"`
		Weather     string              `db:"weather"`
		AirTempC    decimal.NullDecimal `db:"air_temp_c"`
		TrackTempC  decimal.NullDecimal `db:"track_temp_c"`
		HumidityPct *int32              `db:"humidity_pct"`
		WindKph     *int32              `db:"wind_kph"`
		TrackState  *string             `db:"track_state"`
		Notes       *string             `db:"notes"`
		MeasuredAt  time.Time           `db:"measured_at"`
	}
)

var _ api.ConditionRepository = (*repo)(nil)

func NewConditionRepository(conn bob.Executor) api.ConditionRepository {
	return &repo{
		conn: conn,
	}
}

// Create stores the condition, a zero MeasuredAt is replaced by now
func (r *repo) Create(ctx context.Context, cond *model.Condition) (
	*model.Condition, error,
) {
	measuredAt := cond.MeasuredAt
	if measuredAt.IsZero() {
		measuredAt = time.Now()
	}
	q := psql.Insert(
		im.Into(tableName,
			"weather", "air_temp_c", "track_temp_c", "humidity_pct",
			"wind_kph", "track_state", "notes", "measured_at"),
		im.Values(
			psql.Arg(string(cond.Weather)),
			psql.Arg(cond.AirTempC),
			psql.Arg(cond.TrackTempC),
			psql.Arg(cond.HumidityPct),
			psql.Arg(cond.WindKph),
			psql.Arg(cond.TrackState),
			psql.Arg(cond.Notes),
			psql.Arg(measuredAt),
		),
		im.Returning("*"),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[conditionRow]())
	if err != nil {
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

func (r *repo) LoadByID(ctx context.Context, id uuid.UUID) (*model.Condition, error) {
	q := psql.Select(
		sm.Columns("*"),
		sm.From(tableName),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[conditionRow]())
	if err != nil {
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

func (c conditionRow) toModel() *model.Condition {
	return &model.Condition{
		ID:          c.ID,
		Weather:     model.Weather(c.Weather),
		AirTempC:    c.AirTempC,
		TrackTempC:  c.TrackTempC,
		HumidityPct: c.HumidityPct,
		WindKph:     c.WindKph,
		TrackState:  c.TrackState,
		Notes:       c.Notes,
		MeasuredAt:  c.MeasuredAt,
	}
}

func (r *repo) getExecutor(ctx context.Context) bob.Executor {
	return bobCtx.Executor(ctx, r.conn)
}
