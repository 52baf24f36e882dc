package laptime

import (
	"context"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/metrics"
	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/permission"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	"github.com/mpapenbr/laptime-logger/pkg/service/carmodel"
	"github.com/mpapenbr/laptime-logger/pkg/service/svcerr"
)

const (
	DefaultClockSkew   = 5 * time.Minute
	MaxRejectionReason = 500
)

//nolint:lll // readability
type RecordRequest struct {
	TrackLayoutID  uuid.UUID    `json:"trackLayoutId"`
	CarModelID     uuid.UUID    `json:"carModelId"`
	TimeMs         int64        `json:"timeMs"`
	DrivenAt       *time.Time   `json:"drivenAt"`
	TireCompoundID *uuid.UUID   `json:"tireCompoundId"`
	ConditionsID   *uuid.UUID   `json:"conditionsId"`
	ProofURL       *string      `json:"proofUrl"`
	Source         model.Source `json:"source"` // empty: manual
}

// RecordWithCarRequest records a lap time for a car model which is
// resolved (and created if needed) in the same transaction
type RecordWithCarRequest struct {
	RecordRequest
	Car carmodel.ResolveRequest `json:"car"`
}

type Option func(*Service)

func WithRepositories(repos api.Repositories) Option {
	return func(s *Service) {
		s.repos = repos
	}
}

func WithTxManager(txMgr api.TransactionManager) Option {
	return func(s *Service) {
		s.txMgr = txMgr
	}
}

func WithPermissionEvaluator(pe permission.PermissionEvaluator) Option {
	return func(s *Service) {
		s.pe = pe
	}
}

func WithCarModelService(cs *carmodel.Service) Option {
	return func(s *Service) {
		s.cars = cs
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithClockSkew sets how far drivenAt may lie in the future
func WithClockSkew(d time.Duration) Option {
	return func(s *Service) {
		s.skew = d
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

type Service struct {
	repos  api.Repositories
	txMgr  api.TransactionManager
	pe     permission.PermissionEvaluator
	cars   *carmodel.Service
	now    func() time.Time
	skew   time.Duration
	log    *log.Logger
	tracer trace.Tracer
}

func NewService(opts ...Option) *Service {
	ret := &Service{
		now:  time.Now,
		skew: DefaultClockSkew,
		log:  log.Default().Named("service.laptime"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("ltl")
	}
	if ret.cars == nil && ret.repos != nil {
		ret.cars = carmodel.NewService(
			carmodel.WithCarModelRepository(ret.repos.CarModel()),
			carmodel.WithTracer(ret.tracer))
	}
	return ret
}

// Record stores a new lap time owned by the identity. The lap time always
// starts as pending, independent of its source.
//
//nolint:whitespace // editor/linter issue
func (s *Service) Record(
	ctx context.Context,
	id *model.Identity,
	req RecordRequest,
) (*model.LapTime, error) {
	ctx, span := s.tracer.Start(ctx, "laptime.Record")
	defer span.End()

	if err := s.checkPermission(id, permission.PermissionRecordLapTime); err != nil {
		return nil, err
	}
	lapTime, err := s.prepare(id, &req, true)
	if err != nil {
		return nil, err
	}
	var ret *model.LapTime
	err = s.runInTx(ctx, func(ctx context.Context) error {
		ret, err = s.insert(ctx, id, lapTime)
		return err
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("id", ret.ID.String()))
	return ret, nil
}

// RecordWithCar resolves the car model of req and records the lap time for it
//
//nolint:whitespace // editor/linter issue
func (s *Service) RecordWithCar(
	ctx context.Context,
	id *model.Identity,
	req RecordWithCarRequest,
) (lapTime *model.LapTime, car *model.CarModel, err error) {
	ctx, span := s.tracer.Start(ctx, "laptime.RecordWithCar")
	defer span.End()

	if err = s.checkPermission(id, permission.PermissionRecordLapTime); err != nil {
		return nil, nil, err
	}
	toStore, err := s.prepare(id, &req.RecordRequest, false)
	if err != nil {
		return nil, nil, err
	}
	err = s.runInTx(ctx, func(ctx context.Context) error {
		var txErr error
		if car, _, txErr = s.cars.Resolve(ctx, req.Car); txErr != nil {
			return txErr
		}
		toStore.CarModelID = car.ID
		lapTime, txErr = s.insert(ctx, id, toStore)
		return txErr
	})
	if err != nil {
		return nil, nil, err
	}
	return lapTime, car, nil
}

// Verify marks a pending or rejected lap time as verified
//
//nolint:whitespace // editor/linter issue
func (s *Service) Verify(
	ctx context.Context,
	moderator *model.Identity,
	lapTimeID uuid.UUID,
) (*model.LapTime, error) {
	return s.moderate(ctx, moderator, lapTimeID, api.StatusChange{
		Status: model.StatusVerified,
	})
}

// Reject marks a pending or verified lap time as rejected. A reason is required.
//
//nolint:whitespace // editor/linter issue
func (s *Service) Reject(
	ctx context.Context,
	moderator *model.Identity,
	lapTimeID uuid.UUID,
	reason string,
) (*model.LapTime, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, svcerr.Validation("reason", "is required")
	}
	if len([]rune(reason)) > MaxRejectionReason {
		return nil, svcerr.Validation("reason", "must not exceed %d characters",
			MaxRejectionReason)
	}
	return s.moderate(ctx, moderator, lapTimeID, api.StatusChange{
		Status:          model.StatusRejected,
		RejectionReason: &reason,
	})
}

//nolint:whitespace // editor/linter issue
func (s *Service) moderate(
	ctx context.Context,
	moderator *model.Identity,
	lapTimeID uuid.UUID,
	change api.StatusChange,
) (*model.LapTime, error) {
	ctx, span := s.tracer.Start(ctx, "laptime.moderate",
		trace.WithAttributes(
			attribute.String("id", lapTimeID.String()),
			attribute.String("status", string(change.Status))))
	defer span.End()

	if err := s.checkPermission(moderator,
		permission.PermissionModerateLapTime); err != nil {
		return nil, err
	}
	change.ModeratorID = moderator.UserID
	var ret *model.LapTime
	err := s.runInTx(ctx, func(ctx context.Context) error {
		// concurrent moderations of the same lap time are serialized here
		current, err := s.repos.LapTime().LoadByIDForUpdate(ctx, lapTimeID)
		if err != nil {
			return svcerr.FromRepository(s.log, "load lap time", err,
				svcerr.ErrLapTimeNotFound)
		}
		if current.Status == change.Status {
			return svcerr.Validation("status", "lap time is already %s", change.Status)
		}
		if _, err = s.repos.User().Upsert(ctx, moderator.User()); err != nil {
			return svcerr.FromRepository(s.log, "upsert moderator", err, nil)
		}
		ret, err = s.repos.LapTime().UpdateStatus(ctx, lapTimeID, change)
		return svcerr.FromRepository(s.log, "update status", err,
			svcerr.ErrLapTimeNotFound)
	})
	if err != nil {
		return nil, err
	}
	metrics.LapTimeModerated(ctx, string(change.Status))
	s.log.Info("lap time moderated",
		log.String("id", lapTimeID.String()),
		log.String("status", string(change.Status)),
		log.String("moderator", moderator.UserID))
	return ret, nil
}

//nolint:whitespace // editor/linter issue
func (s *Service) insert(
	ctx context.Context,
	id *model.Identity,
	lapTime *model.LapTime,
) (*model.LapTime, error) {
	if _, err := s.repos.User().Upsert(ctx, id.User()); err != nil {
		return nil, svcerr.FromRepository(s.log, "upsert user", err, nil)
	}
	ret, err := s.repos.LapTime().Create(ctx, lapTime)
	if err != nil {
		return nil, svcerr.FromRepository(s.log, "create lap time", err, nil)
	}
	metrics.LapTimeRecorded(ctx)
	s.log.Debug("lap time recorded",
		log.String("id", ret.ID.String()),
		log.String("user", ret.UserID),
		log.String("time", model.FormatLapTime(ret.TimeMs)))
	return ret, nil
}

// prepare validates req and builds the lap time to store
//
//nolint:whitespace // editor/linter issue
func (s *Service) prepare(
	id *model.Identity,
	req *RecordRequest,
	requireCar bool,
) (*model.LapTime, error) {
	if req.TimeMs <= 0 {
		return nil, svcerr.Validation("timeMs", "must be positive")
	}
	if req.TimeMs > math.MaxInt32 {
		return nil, svcerr.Validation("timeMs", "out of range")
	}
	if req.TrackLayoutID == uuid.Nil {
		return nil, svcerr.Validation("trackLayoutId", "is required")
	}
	if requireCar && req.CarModelID == uuid.Nil {
		return nil, svcerr.Validation("carModelId", "is required")
	}
	source := req.Source
	if source == "" {
		source = model.SourceManual
	}
	if !source.Valid() {
		return nil, svcerr.Validation("source", "invalid value %q", source)
	}
	proofURL, err := normalizeProofURL(req.ProofURL)
	if err != nil {
		return nil, err
	}
	now := s.now()
	drivenAt := now
	if req.DrivenAt != nil {
		drivenAt = *req.DrivenAt
		if drivenAt.After(now.Add(s.skew)) {
			return nil, svcerr.Validation("drivenAt", "must not be in the future")
		}
	}
	return &model.LapTime{
		UserID:         id.UserID,
		TrackLayoutID:  req.TrackLayoutID,
		CarModelID:     req.CarModelID,
		TireCompoundID: nilIfZero(req.TireCompoundID),
		ConditionsID:   nilIfZero(req.ConditionsID),
		TimeMs:         int32(req.TimeMs),
		DrivenAt:       drivenAt,
		ProofURL:       proofURL,
		Source:         source,
	}, nil
}

func normalizeProofURL(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil, nil
	}
	u, err := url.ParseRequestURI(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, svcerr.Validation("proofUrl", "must be an http(s) url")
	}
	return &v, nil
}

func nilIfZero(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}

func (s *Service) checkPermission(id *model.Identity, perm permission.Permission) error {
	if id == nil || id.UserID == "" {
		return svcerr.ErrUnauthenticated
	}
	if s.pe != nil && !s.pe.HasPermission(id, perm) {
		return svcerr.ErrPermissionDenied
	}
	return nil
}

func (s *Service) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txMgr == nil {
		return fn(ctx)
	}
	err := s.txMgr.RunInTx(ctx, fn)
	if err != nil && !svcerr.Classified(err) {
		return svcerr.FromRepository(s.log, "transaction", err, nil)
	}
	return err
}
