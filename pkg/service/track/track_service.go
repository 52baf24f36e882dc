package track

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/permission"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	"github.com/mpapenbr/laptime-logger/pkg/service/svcerr"
)

const (
	MainLayoutSlug = "main"
	MainLayoutName = "Main configuration"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

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

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// Service manages tracks with their layouts and the reference data
// (tire compounds, conditions) used when recording lap times
type Service struct {
	repos  api.Repositories
	txMgr  api.TransactionManager
	pe     permission.PermissionEvaluator
	log    *log.Logger
	tracer trace.Tracer
}

func NewService(opts ...Option) *Service {
	ret := &Service{
		log: log.Default().Named("service.track"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("ltl")
	}
	return ret
}

// Tracks returns the active tracks ordered by name
func (s *Service) Tracks(ctx context.Context) ([]*model.Track, error) {
	ret, err := s.repos.Track().LoadAll(ctx, true)
	return ret, svcerr.FromRepository(s.log, "load tracks", err, nil)
}

func (s *Service) TrackBySlug(ctx context.Context, slug string) (*model.Track, error) {
	ret, err := s.repos.Track().LoadBySlug(ctx, strings.TrimSpace(slug))
	return ret, svcerr.FromRepository(s.log, "load track", err, svcerr.ErrTrackNotFound)
}

// Layouts returns the layouts of a track, main layout first
func (s *Service) Layouts(ctx context.Context, trackID uuid.UUID) (
	[]*model.TrackLayout, error,
) {
	ret, err := s.repos.Layout().LoadByTrackID(ctx, trackID)
	return ret, svcerr.FromRepository(s.log, "load layouts", err, nil)
}

// AllLayouts returns the layouts of all tracks together with the track name
func (s *Service) AllLayouts(ctx context.Context) ([]*model.LayoutWithTrack, error) {
	ret, err := s.repos.Layout().LoadAll(ctx)
	return ret, svcerr.FromRepository(s.log, "load all layouts", err, nil)
}

//nolint:whitespace // editor/linter issue
func (s *Service) CreateTrack(
	ctx context.Context,
	id *model.Identity,
	track *model.Track,
) (*model.Track, error) {
	if err := s.checkPermission(id, permission.PermissionManageTrack); err != nil {
		return nil, err
	}
	track.Name = strings.TrimSpace(track.Name)
	track.Slug = strings.TrimSpace(track.Slug)
	if track.Name == "" {
		return nil, svcerr.Validation("name", "is required")
	}
	if !slugPattern.MatchString(track.Slug) {
		return nil, svcerr.Validation("slug", "invalid value %q", track.Slug)
	}
	if !lo.Contains([]string{"", "clockwise", "counterclockwise"}, track.Direction) {
		return nil, svcerr.Validation("direction", "invalid value %q", track.Direction)
	}
	if track.LengthKm.Valid && !track.LengthKm.Decimal.IsPositive() {
		return nil, svcerr.Validation("lengthKm", "must be positive")
	}
	ret, err := s.repos.Track().Create(ctx, track)
	if err != nil {
		return nil, svcerr.FromRepository(s.log, "create track", err, nil)
	}
	s.log.Info("track created",
		log.String("slug", ret.Slug), log.String("by", id.UserID))
	return ret, nil
}

// CreateLayout adds a layout to the track with the given slug.
// A main layout must be the only main layout of the track.
//
//nolint:whitespace // editor/linter issue
func (s *Service) CreateLayout(
	ctx context.Context,
	id *model.Identity,
	trackSlug string,
	layout *model.TrackLayout,
) (*model.TrackLayout, error) {
	if err := s.checkPermission(id, permission.PermissionManageTrack); err != nil {
		return nil, err
	}
	layout.Name = strings.TrimSpace(layout.Name)
	layout.Slug = strings.TrimSpace(layout.Slug)
	if layout.Name == "" {
		return nil, svcerr.Validation("name", "is required")
	}
	if !slugPattern.MatchString(layout.Slug) {
		return nil, svcerr.Validation("slug", "invalid value %q", layout.Slug)
	}
	var ret *model.TrackLayout
	err := s.runInTx(ctx, func(ctx context.Context) error {
		track, err := s.repos.Track().LoadBySlug(ctx, trackSlug)
		if err != nil {
			return svcerr.FromRepository(s.log, "load track", err, svcerr.ErrTrackNotFound)
		}
		if layout.IsMain {
			existing, err := s.repos.Layout().LoadByTrackID(ctx, track.ID)
			if err != nil {
				return svcerr.FromRepository(s.log, "load layouts", err, nil)
			}
			for _, l := range existing {
				if l.IsMain {
					return svcerr.Validation("isMain", "track already has a main layout")
				}
			}
		}
		_, err = s.repos.Layout().LoadBySlug(ctx, track.ID, layout.Slug)
		switch {
		case err == nil:
			return fmt.Errorf("%w: layout %s/%s", svcerr.ErrAlreadyExists, trackSlug, layout.Slug)
		case !errors.Is(err, api.ErrNoRows):
			return svcerr.FromRepository(s.log, "load layout", err, nil)
		}
		layout.TrackID = track.ID
		ret, err = s.repos.Layout().Create(ctx, layout)
		return svcerr.FromRepository(s.log, "create layout", err, nil)
	})
	return ret, err
}

// SeedMainLayouts creates the main layout for every track which has none.
// Length and turn count are taken from the track. Running it again creates
// nothing. It fails with svcerr.ErrTrackNotFound if there are no tracks at all.
func (s *Service) SeedMainLayouts(ctx context.Context, id *model.Identity) (
	[]*model.TrackLayout, error,
) {
	ctx, span := s.tracer.Start(ctx, "track.SeedMainLayouts")
	defer span.End()
	if err := s.checkPermission(id, permission.PermissionManageTrack); err != nil {
		return nil, err
	}
	ret := []*model.TrackLayout{}
	err := s.runInTx(ctx, func(ctx context.Context) error {
		tracks, err := s.repos.Track().LoadAll(ctx, false)
		if err != nil {
			return svcerr.FromRepository(s.log, "load tracks", err, nil)
		}
		if len(tracks) == 0 {
			return svcerr.ErrTrackNotFound
		}
		for _, t := range tracks {
			existing, err := s.repos.Layout().LoadByTrackID(ctx, t.ID)
			if err != nil {
				return svcerr.FromRepository(s.log, "load layouts", err, nil)
			}
			// a main layout may use any slug; "main" must stay free for ours
			if lo.ContainsBy(existing, func(l *model.TrackLayout) bool {
				return l.IsMain || l.Slug == MainLayoutSlug
			}) {
				continue
			}
			layout, err := s.repos.Layout().Create(ctx, &model.TrackLayout{
				TrackID:   t.ID,
				Name:      MainLayoutName,
				Slug:      MainLayoutSlug,
				LengthKm:  t.LengthKm,
				TurnCount: t.TurnCount,
				IsMain:    true,
			})
			if err != nil {
				return svcerr.FromRepository(s.log, "create main layout", err, nil)
			}
			ret = append(ret, layout)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("seeded main layouts", log.Int("created", len(ret)))
	return ret, nil
}

func (s *Service) TireCompounds(ctx context.Context) ([]*model.TireCompound, error) {
	ret, err := s.repos.TireCompound().LoadAll(ctx)
	return ret, svcerr.FromRepository(s.log, "load tire compounds", err, nil)
}

//nolint:whitespace // editor/linter issue
func (s *Service) CreateTireCompound(
	ctx context.Context,
	id *model.Identity,
	tire *model.TireCompound,
) (*model.TireCompound, error) {
	if err := s.checkPermission(id, permission.PermissionManageCatalog); err != nil {
		return nil, err
	}
	tire.Brand = strings.TrimSpace(tire.Brand)
	tire.Name = strings.TrimSpace(tire.Name)
	if tire.Brand == "" || tire.Name == "" {
		return nil, svcerr.Validation("brand/name", "are required")
	}
	tireType, err := model.ParseTireType(string(tire.Type))
	if err != nil {
		return nil, svcerr.Validation("type", "%v", err)
	}
	tire.Type = tireType
	ret, err := s.repos.TireCompound().Create(ctx, tire)
	return ret, svcerr.FromRepository(s.log, "create tire compound", err, nil)
}

// CreateCondition stores the conditions of a session. Any authenticated
// driver may do this since conditions are attached to own lap times.
//
//nolint:whitespace // editor/linter issue
func (s *Service) CreateCondition(
	ctx context.Context,
	id *model.Identity,
	cond *model.Condition,
) (*model.Condition, error) {
	if err := s.checkPermission(id, permission.PermissionRecordLapTime); err != nil {
		return nil, err
	}
	weather, err := model.ParseWeather(string(cond.Weather))
	if err != nil {
		return nil, svcerr.Validation("weather", "%v", err)
	}
	cond.Weather = weather
	if cond.HumidityPct != nil && (*cond.HumidityPct < 0 || *cond.HumidityPct > 100) {
		return nil, svcerr.Validation("humidityPct", "must be between 0 and 100")
	}
	if cond.WindKph != nil && *cond.WindKph < 0 {
		return nil, svcerr.Validation("windKph", "must not be negative")
	}
	ret, err := s.repos.Condition().Create(ctx, cond)
	return ret, svcerr.FromRepository(s.log, "create condition", err, nil)
}

func (s *Service) ConditionByID(ctx context.Context, id uuid.UUID) (
	*model.Condition, error,
) {
	ret, err := s.repos.Condition().LoadByID(ctx, id)
	return ret, svcerr.FromRepository(s.log, "load condition", err, svcerr.ErrNotFound)
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
