package history

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

func WithLapTimeRepository(repo api.LapTimeRepository) Option {
	return func(s *Service) {
		s.repo = repo
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// Service provides the lap time history of a user
type Service struct {
	repo   api.LapTimeRepository
	log    *log.Logger
	tracer trace.Tracer
}

func NewService(opts ...Option) *Service {
	ret := &Service{
		log: log.Default().Named("service.history"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("ltl")
	}
	return ret
}

// History returns the lap times of the user matching all set filter values.
// An unknown user has an empty history.
//
//nolint:whitespace // editor/linter issue
func (s *Service) History(
	ctx context.Context,
	userID string,
	filter model.HistoryFilter,
) ([]*model.HistoryEntry, error) {
	ctx, span := s.tracer.Start(ctx, "history.History",
		trace.WithAttributes(
			attribute.String("user", userID),
			attribute.String("sortBy", string(filter.SortBy))))
	defer span.End()

	if filter.SortBy == "" {
		filter.SortBy = model.SortByDate
	}
	if !filter.SortBy.Valid() {
		return nil, svcerr.Validation("sort", "invalid value %q", filter.SortBy)
	}
	if st, ok := filter.Status.Get(); ok && !st.Valid() {
		return nil, svcerr.Validation("status", "invalid value %q", st)
	}
	ret, err := s.repo.History(ctx, userID, filter)
	return ret, svcerr.FromRepository(s.log, "history", err, nil)
}

// UserCarModels returns the distinct car models the user has logged lap times with
func (s *Service) UserCarModels(ctx context.Context, userID string) (
	[]*model.CarModelRef, error,
) {
	ret, err := s.repo.UserCarModels(ctx, userID)
	return ret, svcerr.FromRepository(s.log, "user car models", err, nil)
}

// UserTracks returns the distinct tracks the user has logged lap times at
func (s *Service) UserTracks(ctx context.Context, userID string) (
	[]*model.TrackRef, error,
) {
	ret, err := s.repo.UserTracks(ctx, userID)
	return ret, svcerr.FromRepository(s.log, "user tracks", err, nil)
}
