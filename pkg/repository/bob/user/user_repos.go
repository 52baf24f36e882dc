//nolint:whitespace // can't make both editor and linter happy
package user

import (
	"context"
	"fmt"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/scan"

	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	bobCtx "github.com/mpapenbr/laptime-logger/pkg/repository/bob/context"
	"github.com/mpapenbr/laptime-logger/pkg/repository/bob/pgerr"
)

const (
	tableName = "users"
	// name postgres assigns to the unique constraint on email
	emailConstraint = "users_email_key"
)

type (
	repo struct {
		conn bob.Executor
	}
	userRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		Email     string    `db:"email"`
		Bio       *string   `db:"bio"`
		IsAdmin   bool      `db:"is_admin"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
)

var _ api.UserRepository = (*repo)(nil)

func NewUserRepository(conn bob.Executor) api.UserRepository {
	return &repo{
		conn: conn,
	}
}

func (r *repo) Upsert(ctx context.Context, user *model.User) (*model.User, error) {
	q := psql.Insert(
		im.Into(tableName, "id", "name", "email", "is_admin"),
		im.Values(
			psql.Arg(user.ID),
			psql.Arg(user.Name),
			psql.Arg(user.Email),
			psql.Arg(user.IsAdmin)),
		im.OnConflict("id").DoUpdate(
			im.SetCol("name").To(psql.Raw("EXCLUDED.name")),
			im.SetCol("email").To(psql.Raw("EXCLUDED.email")),
			im.SetCol("is_admin").To(psql.Raw("EXCLUDED.is_admin")),
			im.SetCol("updated_at").To(psql.Raw("now()")),
		),
		im.Returning("*"),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[userRow]())
	if err != nil {
		if pgerr.IsUniqueViolation(err) && pgerr.Constraint(err) == emailConstraint {
			return nil, fmt.Errorf("%w: %w", api.ErrEmailInUse, err)
		}
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

func (r *repo) LoadByID(ctx context.Context, id string) (*model.User, error) {
	q := psql.Select(
		sm.Columns("*"),
		sm.From(tableName),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	ret, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[userRow]())
	if err != nil {
		return nil, pgerr.Translate(err)
	}
	return ret.toModel(), nil
}

// UpdateBio sets the bio of a user, a null value clears it.
// Returns the number of updated rows.
func (r *repo) UpdateBio(ctx context.Context, id string, bio null.Val[string]) (
	int, error,
) {
	q := psql.Update(
		um.Table(tableName),
		um.SetCol("bio").To(psql.Arg(bio.Ptr())),
		um.SetCol("updated_at").To(psql.Raw("now()")),
		um.Where(psql.Quote("id").EQ(psql.Arg(id))),
		um.Returning("id"),
	)
	ret, err := bob.All(ctx, r.getExecutor(ctx), q, scan.SingleColumnMapper[string])
	return len(ret), err
}

// deletes an entry from the database, returns number of rows deleted.
func (r *repo) DeleteByID(ctx context.Context, id string) (int, error) {
	q := psql.Delete(
		dm.From(tableName),
		dm.Where(psql.Quote("id").EQ(psql.Arg(id))),
		dm.Returning("id"),
	)
	ret, err := bob.All(ctx, r.getExecutor(ctx), q, scan.SingleColumnMapper[string])
	return len(ret), err
}

func (u userRow) toModel() *model.User {
	return &model.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Bio:       u.Bio,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (r *repo) getExecutor(ctx context.Context) bob.Executor {
	return bobCtx.Executor(ctx, r.conn)
}
