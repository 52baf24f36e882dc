package stats

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	"github.com/mpapenbr/laptime-logger/pkg/service/svcerr"
)

type Option func(*Service)

func WithRepositories(repos api.Repositories) Option {
	return func(s *Service) {
		s.users = repos.User()
		s.lapTimes = repos.LapTime()
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

type Service struct {
	users    api.UserRepository
	lapTimes api.LapTimeRepository
	log      *log.Logger
	tracer   trace.Tracer
}

func NewService(opts ...Option) *Service {
	ret := &Service{
		log: log.Default().Named("service.stats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("ltl")
	}
	return ret
}

// Stats returns the user with the number of lap times, the number of
// verified lap times and the best verified time. BestTime is nil if the user
// has no verified lap time. Unknown users yield svcerr.ErrUserNotFound.
func (s *Service) Stats(ctx context.Context, userID string) (*model.UserStats, error) {
	ctx, span := s.tracer.Start(ctx, "stats.Stats",
		trace.WithAttributes(attribute.String("user", userID)))
	defer span.End()

	user, err := s.users.LoadByID(ctx, userID)
	if err != nil {
		return nil, svcerr.FromRepository(s.log, "load user", err, svcerr.ErrUserNotFound)
	}
	counts, err := s.lapTimes.UserCounts(ctx, userID)
	if err != nil {
		return nil, svcerr.FromRepository(s.log, "user counts", err, nil)
	}
	return &model.UserStats{
		User:          user,
		TotalTimes:    counts.Total,
		VerifiedTimes: counts.Verified,
		BestTime:      counts.Best,
	}, nil
}
