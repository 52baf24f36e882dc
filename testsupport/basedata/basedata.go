package basedata

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	bobRepos "github.com/mpapenbr/laptime-logger/pkg/repository/bob"
)

const ModeratorID = "moderator"

func TestTime() time.Time {
	t, _ := time.Parse(time.RFC3339, "2024-04-28T11:10:12Z")
	return t
}

func SampleUser(id string) *model.User {
	return &model.User{
		ID:    id,
		Name:  "Driver " + id,
		Email: id + "@example.com",
	}
}

func SampleTrack(name, slug string) *model.Track {
	return &model.Track{
		Name:      name,
		Slug:      slug,
		Country:   "DE",
		City:      "Nürburg",
		LengthKm:  decimal.NewNullDecimal(decimal.RequireFromString("5.148")),
		TurnCount: lo.ToPtr(int32(15)),
		IsActive:  true,
	}
}

// Fixture bundles the repositories used to create sample data
type Fixture struct {
	Repos api.Repositories
}

func NewFixture(pool *pgxpool.Pool) *Fixture {
	return &Fixture{Repos: bobRepos.NewRepositoriesFromPool(pool)}
}

func (f *Fixture) User(id string) *model.User {
	ret, err := f.Repos.User().Upsert(context.Background(), SampleUser(id))
	must(err)
	return ret
}

// Track creates a track with a main layout
func (f *Fixture) Track(name, slug string) (*model.Track, *model.TrackLayout) {
	ctx := context.Background()
	track, err := f.Repos.Track().Create(ctx, SampleTrack(name, slug))
	must(err)
	return track, f.Layout(track.ID, "Main configuration", "main", true)
}

func (f *Fixture) Layout(
	trackID uuid.UUID,
	name, slug string,
	isMain bool,
) *model.TrackLayout {
	ret, err := f.Repos.Layout().Create(context.Background(), &model.TrackLayout{
		TrackID: trackID,
		Name:    name,
		Slug:    slug,
		IsMain:  isMain,
	})
	must(err)
	return ret
}

func (f *Fixture) CarModel(carMake, carModel string, trim *string) *model.CarModel {
	ret, err := f.Repos.CarModel().InsertIfAbsent(context.Background(),
		&model.CarModel{Make: carMake, Model: carModel, Trim: trim})
	must(err)
	return ret
}

// LapTime records a lap time and moves it to the requested status
//
//nolint:whitespace // editor/linter issue
func (f *Fixture) LapTime(
	userID string,
	layoutID, carID uuid.UUID,
	timeMs int32,
	status model.Status,
	drivenAt time.Time,
) *model.LapTime {
	ctx := context.Background()
	ret, err := f.Repos.LapTime().Create(ctx, &model.LapTime{
		UserID:        userID,
		TrackLayoutID: layoutID,
		CarModelID:    carID,
		TimeMs:        timeMs,
		DrivenAt:      drivenAt,
		Source:        model.SourceManual,
	})
	must(err)
	if status == model.StatusPending {
		return ret
	}
	f.User(ModeratorID)
	change := api.StatusChange{Status: status, ModeratorID: ModeratorID}
	if status == model.StatusRejected {
		change.RejectionReason = lo.ToPtr("no proof")
	}
	ret, err = f.Repos.LapTime().UpdateStatus(ctx, ret.ID, change)
	must(err)
	return ret
}

func must(err error) {
	if err != nil {
		log.Fatal(fmt.Errorf("basedata: %w", err))
	}
}
