package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"

	"github.com/mpapenbr/laptime-logger/pkg/model"
)

var (
	ErrNoRows = errors.New("no rows in result set")
	// ErrConflict is returned when a unique constraint prevents a write
	ErrConflict = errors.New("conflicting entry")
	// ErrForeignKey is returned when a referenced entity does not exist
	ErrForeignKey = errors.New("referenced entry does not exist")
	// ErrCheck is returned when a value violates a check constraint
	ErrCheck = errors.New("value violates a check constraint")
	// ErrEmailInUse is returned when another user already has the email
	ErrEmailInUse = fmt.Errorf("%w: email in use", ErrConflict)
)

type Repositories interface {
	User() UserRepository
	Track() TrackRepository
	Layout() LayoutRepository
	CarModel() CarModelRepository
	LapTime() LapTimeRepository
	TireCompound() TireCompoundRepository
	Condition() ConditionRepository
}

type UserRepository interface {
	// Upsert inserts the user or refreshes name, email and admin flag
	Upsert(ctx context.Context, user *model.User) (*model.User, error)
	LoadByID(ctx context.Context, id string) (*model.User, error)
	UpdateBio(ctx context.Context, id string, bio null.Val[string]) (int, error)
	DeleteByID(ctx context.Context, id string) (int, error)
}

type TrackRepository interface {
	Create(ctx context.Context, track *model.Track) (*model.Track, error)
	LoadAll(ctx context.Context, activeOnly bool) ([]*model.Track, error)
	LoadByID(ctx context.Context, id uuid.UUID) (*model.Track, error)
	LoadBySlug(ctx context.Context, slug string) (*model.Track, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (int, error)
}

type LayoutRepository interface {
	Create(ctx context.Context, layout *model.TrackLayout) (*model.TrackLayout, error)
	// LoadByTrackID returns the layouts of a track, main layout first
	LoadByTrackID(ctx context.Context, trackID uuid.UUID) ([]*model.TrackLayout, error)
	LoadBySlug(
		ctx context.Context,
		trackID uuid.UUID,
		slug string,
	) (*model.TrackLayout, error)
	LoadAll(ctx context.Context) ([]*model.LayoutWithTrack, error)
}

type CarModelRepository interface {
	// FindByKey looks up the natural key. A nil trim only matches a NULL trim.
	FindByKey(
		ctx context.Context,
		carMake, carModel string,
		trim *string,
	) (*model.CarModel, error)
	// InsertIfAbsent returns ErrConflict if the natural key already exists
	InsertIfAbsent(ctx context.Context, car *model.CarModel) (*model.CarModel, error)
	LoadByID(ctx context.Context, id uuid.UUID) (*model.CarModel, error)
	LoadAll(ctx context.Context) ([]*model.CarModel, error)
	LoadLimited(ctx context.Context, limit int) ([]*model.CarModel, error)
	// Search matches make, model or trim case-insensitively
	Search(ctx context.Context, query string, limit int) ([]*model.CarModel, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (int, error)
}

// LapTimeCounts holds the aggregated lap time values of a user
type LapTimeCounts struct {
	Total    int
	Verified int
	Best     *int32
}

// StatusChange describes a moderation transition
type StatusChange struct {
	Status          model.Status
	ModeratorID     string
	RejectionReason *string
}

type LapTimeRepository interface {
	Create(ctx context.Context, lapTime *model.LapTime) (*model.LapTime, error)
	LoadByID(ctx context.Context, id uuid.UUID) (*model.LapTime, error)
	// LoadByIDForUpdate locks the row until the surrounding transaction ends
	LoadByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.LapTime, error)
	UpdateStatus(
		ctx context.Context,
		id uuid.UUID,
		change StatusChange,
	) (*model.LapTime, error)
	History(
		ctx context.Context,
		userID string,
		filter model.HistoryFilter,
	) ([]*model.HistoryEntry, error)
	UserCarModels(ctx context.Context, userID string) ([]*model.CarModelRef, error)
	UserTracks(ctx context.Context, userID string) ([]*model.TrackRef, error)
	Leaderboard(ctx context.Context, trackID uuid.UUID) ([]*model.LeaderboardEntry, error)
	UserCounts(ctx context.Context, userID string) (*LapTimeCounts, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (int, error)
}

type TireCompoundRepository interface {
	Create(ctx context.Context, tire *model.TireCompound) (*model.TireCompound, error)
	LoadAll(ctx context.Context) ([]*model.TireCompound, error)
	LoadByID(ctx context.Context, id uuid.UUID) (*model.TireCompound, error)
}

type ConditionRepository interface {
	Create(ctx context.Context, cond *model.Condition) (*model.Condition, error)
	LoadByID(ctx context.Context, id uuid.UUID) (*model.Condition, error)
}

type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
