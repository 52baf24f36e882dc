package leaderboard

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	"github.com/mpapenbr/laptime-logger/pkg/service/svcerr"
)

// DefaultTopN is the number of entries shown per layout
const DefaultTopN = 10

type Option func(*Service)

func WithRepositories(repos api.Repositories) Option {
	return func(s *Service) {
		s.tracks = repos.Track()
		s.layouts = repos.Layout()
		s.lapTimes = repos.LapTime()
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

type Service struct {
	tracks   api.TrackRepository
	layouts  api.LayoutRepository
	lapTimes api.LapTimeRepository
	log      *log.Logger
	tracer   trace.Tracer
}

func NewService(opts ...Option) *Service {
	ret := &Service{
		log: log.Default().Named("service.leaderboard"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("ltl")
	}
	return ret
}

// Leaderboard returns all verified lap times driven on any layout of the
// track, fastest first. Ties are ordered by drivenAt.
//
//nolint:whitespace // editor/linter issue
func (s *Service) Leaderboard(ctx context.Context, trackID uuid.UUID) (
	[]*model.LeaderboardEntry, error,
) {
	ctx, span := s.tracer.Start(ctx, "leaderboard.Leaderboard",
		trace.WithAttributes(attribute.String("track", trackID.String())))
	defer span.End()
	ret, err := s.lapTimes.Leaderboard(ctx, trackID)
	return ret, svcerr.FromRepository(s.log, "leaderboard", err, nil)
}

// TrackBoard loads the track by slug and groups its leaderboard per layout.
// topN <= 0 uses DefaultTopN.
//
//nolint:whitespace // editor/linter issue
func (s *Service) TrackBoard(ctx context.Context, slug string, topN int) (
	*model.TrackBoard, error,
) {
	ctx, span := s.tracer.Start(ctx, "leaderboard.TrackBoard",
		trace.WithAttributes(attribute.String("slug", slug)))
	defer span.End()

	track, err := s.tracks.LoadBySlug(ctx, slug)
	if err != nil {
		return nil, svcerr.FromRepository(s.log, "load track", err,
			svcerr.ErrTrackNotFound)
	}

	var layouts []*model.TrackLayout
	var entries []*model.LeaderboardEntry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var gErr error
		layouts, gErr = s.layouts.LoadByTrackID(gctx, track.ID)
		return svcerr.FromRepository(s.log, "load layouts", gErr, nil)
	})
	g.Go(func() error {
		var gErr error
		entries, gErr = s.Leaderboard(gctx, track.ID)
		return gErr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &model.TrackBoard{
		Track:  track,
		Boards: GroupByLayout(layouts, entries, topN),
	}, nil
}

// GroupByLayout distributes the ordered entries to their layouts keeping the
// order and at most topN entries per layout. Every layout gets a board, even
// without entries. Entries of unknown layouts are dropped.
//
//nolint:whitespace // editor/linter issue
func GroupByLayout(
	layouts []*model.TrackLayout,
	entries []*model.LeaderboardEntry,
	topN int,
) []*model.LayoutBoard {
	if topN <= 0 {
		topN = DefaultTopN
	}
	byLayout := lo.GroupBy(entries, func(e *model.LeaderboardEntry) uuid.UUID {
		return e.Layout.ID
	})
	return lo.Map(layouts, func(l *model.TrackLayout, _ int) *model.LayoutBoard {
		items := byLayout[l.ID]
		if len(items) > topN {
			items = items[:topN]
		}
		if items == nil {
			items = []*model.LeaderboardEntry{}
		}
		return &model.LayoutBoard{Layout: *l, Entries: items}
	})
}
