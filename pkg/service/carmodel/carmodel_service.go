package carmodel

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/catalog"
	"github.com/mpapenbr/laptime-logger/pkg/metrics"
	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	"github.com/mpapenbr/laptime-logger/pkg/service/svcerr"
)

// ResolveRequest describes a car model. Make, model and trim form the natural key,
// the other values are only used when the car model is created.
type ResolveRequest struct {
	Make       string            `json:"make"`
	Model      string            `json:"model"`
	Trim       *string           `json:"trim"`
	YearFrom   *int32            `json:"yearFrom"`
	YearTo     *int32            `json:"yearTo"`
	PowerHp    *int32            `json:"powerHp"`
	WeightKg   *int32            `json:"weightKg"`
	Drivetrain *model.Drivetrain `json:"drivetrain"`
}

type Option func(*Service)

func WithCarModelRepository(repo api.CarModelRepository) Option {
	return func(s *Service) {
		s.repo = repo
	}
}

func WithSearcher(searcher catalog.Searcher) Option {
	return func(s *Service) {
		s.searcher = searcher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

type Service struct {
	repo     api.CarModelRepository
	searcher catalog.Searcher
	log      *log.Logger
	tracer   trace.Tracer
}

func NewService(opts ...Option) *Service {
	ret := &Service{
		log: log.Default().Named("service.carmodel"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("ltl")
	}
	if ret.searcher == nil && ret.repo != nil {
		ret.searcher = catalog.NewWindowSearch(ret.repo)
	}
	return ret
}

// NormalizeKey trims surrounding whitespace. A trim that is empty afterwards
// is treated as absent.
func NormalizeKey(carMake, carModel string, trim *string) (
	normMake, normModel string, normTrim *string,
) {
	normMake = strings.TrimSpace(carMake)
	normModel = strings.TrimSpace(carModel)
	if trim != nil {
		if t := strings.TrimSpace(*trim); t != "" {
			normTrim = &t
		}
	}
	return normMake, normModel, normTrim
}

func (r *ResolveRequest) validate() error {
	if r.Make == "" {
		return svcerr.Validation("make", "is required")
	}
	if r.Model == "" {
		return svcerr.Validation("model", "is required")
	}
	if r.Drivetrain != nil && !r.Drivetrain.Valid() {
		return svcerr.Validation("drivetrain", "invalid value %q", *r.Drivetrain)
	}
	if r.YearFrom != nil && r.YearTo != nil && *r.YearFrom > *r.YearTo {
		return svcerr.Validation("yearTo", "must not be before yearFrom")
	}
	for name, v := range map[string]*int32{
		"powerHp": r.PowerHp, "weightKg": r.WeightKg,
	} {
		if v != nil && *v <= 0 {
			return svcerr.Validation(name, "must be positive")
		}
	}
	return nil
}

// Resolve returns the car model with the natural key of req, creating it if
// it does not exist yet. existed reports whether the entry was already present.
// Concurrent calls for the same key yield the same entry.
//
//nolint:whitespace // editor/linter issue
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (
	car *model.CarModel, existed bool, err error,
) {
	ctx, span := s.tracer.Start(ctx, "carmodel.Resolve")
	defer span.End()

	req.Make, req.Model, req.Trim = NormalizeKey(req.Make, req.Model, req.Trim)
	if err = req.validate(); err != nil {
		return nil, false, err
	}
	span.SetAttributes(
		attribute.String("make", req.Make),
		attribute.String("model", req.Model))

	car, err = s.repo.FindByKey(ctx, req.Make, req.Model, req.Trim)
	if err == nil {
		metrics.CarModelResolved(ctx, "existing")
		return car, true, nil
	}
	if !errors.Is(err, api.ErrNoRows) {
		return nil, false, svcerr.FromRepository(s.log, "find car model", err, nil)
	}

	car, err = s.repo.InsertIfAbsent(ctx, &model.CarModel{
		Make:       req.Make,
		Model:      req.Model,
		Trim:       req.Trim,
		YearFrom:   req.YearFrom,
		YearTo:     req.YearTo,
		PowerHp:    req.PowerHp,
		WeightKg:   req.WeightKg,
		Drivetrain: req.Drivetrain,
	})
	switch {
	case err == nil:
		s.log.Debug("created car model",
			log.String("id", car.ID.String()),
			log.String("make", car.Make),
			log.String("model", car.Model))
		metrics.CarModelResolved(ctx, "created")
		return car, false, nil
	case errors.Is(err, api.ErrConflict):
		// someone else created the entry in the meantime
		s.log.Debug("car model created concurrently, loading",
			log.String("make", req.Make), log.String("model", req.Model))
		car, err = s.repo.FindByKey(ctx, req.Make, req.Model, req.Trim)
		if err != nil {
			return nil, false, svcerr.FromRepository(s.log, "reload car model", err, nil)
		}
		metrics.CarModelResolved(ctx, "raced")
		return car, true, nil
	default:
		return nil, false, svcerr.FromRepository(s.log, "insert car model", err, nil)
	}
}

func (s *Service) List(ctx context.Context) ([]*model.CarModel, error) {
	ret, err := s.repo.LoadAll(ctx)
	return ret, svcerr.FromRepository(s.log, "list car models", err, nil)
}

// Search matches the query against make, model and trim
func (s *Service) Search(ctx context.Context, query string) ([]*model.CarModel, error) {
	ctx, span := s.tracer.Start(ctx, "carmodel.Search")
	defer span.End()
	ret, err := s.searcher.Search(ctx, strings.TrimSpace(query))
	return ret, svcerr.FromRepository(s.log, "search car models", err, nil)
}
