package bob

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stephenafamo/bob"

	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	"github.com/mpapenbr/laptime-logger/pkg/repository/bob/carmodel"
	"github.com/mpapenbr/laptime-logger/pkg/repository/bob/condition"
	"github.com/mpapenbr/laptime-logger/pkg/repository/bob/laptime"
	"github.com/mpapenbr/laptime-logger/pkg/repository/bob/layout"
	"github.com/mpapenbr/laptime-logger/pkg/repository/bob/tire"
	"github.com/mpapenbr/laptime-logger/pkg/repository/bob/track"
	"github.com/mpapenbr/laptime-logger/pkg/repository/bob/user"
)

type bobRepositories struct {
	userRepository         api.UserRepository
	trackRepository        api.TrackRepository
	layoutRepository       api.LayoutRepository
	carModelRepository     api.CarModelRepository
	lapTimeRepository      api.LapTimeRepository
	tireCompoundRepository api.TireCompoundRepository
	conditionRepository    api.ConditionRepository
}

var _ api.Repositories = (*bobRepositories)(nil)

func NewRepositoriesFromPool(pool *pgxpool.Pool) api.Repositories {
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))
	return NewRepositories(db)
}

func NewRepositories(db bob.DB) api.Repositories {
	return &bobRepositories{
		userRepository:         user.NewUserRepository(db),
		trackRepository:        track.NewTrackRepository(db),
		layoutRepository:       layout.NewLayoutRepository(db),
		carModelRepository:     carmodel.NewCarModelRepository(db),
		lapTimeRepository:      laptime.NewLapTimeRepository(db),
		tireCompoundRepository: tire.NewTireCompoundRepository(db),
		conditionRepository:    condition.NewConditionRepository(db),
	}
}

func (r *bobRepositories) User() api.UserRepository {
	return r.userRepository
}

func (r *bobRepositories) Track() api.TrackRepository {
	return r.trackRepository
}

func (r *bobRepositories) Layout() api.LayoutRepository {
	return r.layoutRepository
}

func (r *bobRepositories) CarModel() api.CarModelRepository {
	return r.carModelRepository
}

func (r *bobRepositories) LapTime() api.LapTimeRepository {
	return r.lapTimeRepository
}

func (r *bobRepositories) TireCompound() api.TireCompoundRepository {
	return r.tireCompoundRepository
}

func (r *bobRepositories) Condition() api.ConditionRepository {
	return r.conditionRepository
}
