//nolint:whitespace // can't make both editor and linter happy
package laptime

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/scan"

	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	bobCtx "github.com/mpapenbr/laptime-logger/pkg/repository/bob/context"
	"github.com/mpapenbr/laptime-logger/pkg/repository/bob/pgerr"
)

const tableName = "lap_times"

type (
	repo struct {
		conn bob.Executor
	}
	lapTimeRow struct {
		ID              uuid.UUID  `db:"id"`
		UserID          string     `db:"user_id"`
		TrackLayoutID   uuid.UUID  `db:"track_layout_id"`
		CarModelID      uuid.UUID  `db:"car_model_id"`
		TireCompoundID  *uuid.UUID `db:"tire_compound_id"`
		ConditionsID    *uuid.UUID `db:"conditions_id"`
		TimeMs          int32      `db:"time_ms"`
		DrivenAt        time.Time  `db:"driven_at"`
		ProofURL        *string    `db:"proof_url"`
		Source          string     `db:"source"`
		Status          string     `db:"status"`
		VerifiedBy      *string    `db:"verified_by"`
		VerifiedAt      *time.Time `db:"verified_at"`
		RejectionReason *string    `db:"rejection_reason"`
		CreatedAt       time.Time  `db:"created_at"`
	}
)

var _ api.LapTimeRepository = (*repo)(nil)

func NewLapTimeRepository(conn bob.Executor) api.LapTimeRepository {
	return &repo{
		conn: conn,
	}
}

// Create stores a new lap time. The status is always pending.
func (r *repo) Create(ctx context.Context, lapTime *model.LapTime) (
	*model.LapTime, error,
) {
	q := psql.Insert(
		im.Into(tableName,
			"user_id", "track_layout_id", "car_model_id",
			"tire_compound_id", "conditions_id", "time_ms", "driven_at",
			"proof_url", "source", "status"),
		im.Values(
			psql.Arg(lapTime.UserID),
			psql.Arg(lapTime.TrackLayoutID),
			psql.Arg(lapTime.CarModelID),
			psql.Arg(lapTime.TireCompoundID),
			psql.Arg(lapTime.ConditionsID),
			psql.Arg(lapTime.TimeMs),
			psql.Arg(lapTime.DrivenAt),
			psql.Arg(lapTime.ProofURL),
			psql.Arg(string(lapTime.Source)),
			psql.Arg(string(model.StatusPending)),
		),
		im.Returning("*"),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[lapTimeRow]())
	if err != nil {
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

func (r *repo) LoadByID(ctx context.Context, id uuid.UUID) (*model.LapTime, error) {
	return r.loadByID(ctx, psql.RawQuery("SELECT * FROM lap_times WHERE id = ?", psql.Arg(id)))
}

func (r *repo) LoadByIDForUpdate(ctx context.Context, id uuid.UUID) (
	*model.LapTime, error,
) {
	return r.loadByID(ctx,
		psql.RawQuery("SELECT * FROM lap_times WHERE id = ? FOR UPDATE", psql.Arg(id)))
}

func (r *repo) loadByID(ctx context.Context, q bob.Query) (*model.LapTime, error) {
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[lapTimeRow]())
	if err != nil {
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

// UpdateStatus applies a moderation decision. The moderator and timestamp are
// recorded for both verify and reject, the rejection reason is cleared on verify.
func (r *repo) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	change api.StatusChange,
) (*model.LapTime, error) {
	var reason *string
	if change.Status == model.StatusRejected {
		reason = change.RejectionReason
	}
	q := psql.Update(
		um.Table(tableName),
		um.SetCol("status").To(psql.Arg(string(change.Status))),
		um.SetCol("verified_by").To(psql.Arg(change.ModeratorID)),
		um.SetCol("verified_at").To(psql.Raw("now()")),
		um.SetCol("rejection_reason").To(psql.Arg(reason)),
		um.Where(psql.Quote("id").EQ(psql.Arg(id))),
		um.Returning("*"),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[lapTimeRow]())
	if err != nil {
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

// deletes an entry from the database, returns number of rows deleted.
func (r *repo) DeleteByID(ctx context.Context, id uuid.UUID) (int, error) {
	q := psql.Delete(
		dm.From(tableName),
		dm.Where(psql.Quote("id").EQ(psql.Arg(id))),
		dm.Returning("id"),
	)
	ret, err := bob.All(ctx, r.getExecutor(ctx), q, scan.SingleColumnMapper[uuid.UUID])
	return len(ret), err
}

func (l lapTimeRow) toModel() *model.LapTime {
	return &model.LapTime{
		ID:              l.ID,
		UserID:          l.UserID,
		TrackLayoutID:   l.TrackLayoutID,
		CarModelID:      l.CarModelID,
		TireCompoundID:  l.TireCompoundID,
		ConditionsID:    l.ConditionsID,
		TimeMs:          l.TimeMs,
		DrivenAt:        l.DrivenAt,
		ProofURL:        l.ProofURL,
		Source:          model.Source(l.Source),
		Status:          model.Status(l.Status),
		VerifiedBy:      l.VerifiedBy,
		VerifiedAt:      l.VerifiedAt,
		RejectionReason: l.RejectionReason,
		CreatedAt:       l.CreatedAt,
	}
}

func (r *repo) getExecutor(ctx context.Context) bob.Executor {
	return bobCtx.Executor(ctx, r.conn)
}
