package model

import (
	"time"

	"github.com/aarondl/opt/omit"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Bio       *string   `json:"bio"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

//nolint:lll // readability
type Track struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	Slug          string              `json:"slug"`
	Country       string              `json:"country"`
	Region        string              `json:"region"`
	City          string              `json:"city"`
	PhotoCoverURL *string             `json:"photoCoverUrl"`
	WebsiteURL    *string             `json:"websiteUrl"`
	LengthKm      decimal.NullDecimal `json:"lengthKm"`
	TurnCount     *int32              `json:"turnCount"`
	Direction     string              `json:"direction"`
	SurfaceType   string              `json:"surfaceType"`
	TrackType     string              `json:"trackType"`
	AltitudeMinM  *int32              `json:"altitudeMinM"`
	AltitudeMaxM  *int32              `json:"altitudeMaxM"`
	OpenedAt      *time.Time          `json:"openedAt"`
	IsActive      bool                `json:"isActive"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

type TrackLayout struct {
	ID        uuid.UUID           `json:"id"`
	TrackID   uuid.UUID           `json:"trackId"`
	Name      string              `json:"name"`
	Slug      string              `json:"slug"`
	LengthKm  decimal.NullDecimal `json:"lengthKm"`
	TurnCount *int32              `json:"turnCount"`
	IsMain    bool                `json:"isMain"`
	CreatedAt time.Time           `json:"createdAt"`
}

// LayoutWithTrack is a layout together with the name of its track
type LayoutWithTrack struct {
	TrackLayout
	TrackName string `json:"trackName"`
}

type CarModel struct {
	ID         uuid.UUID   `json:"id"`
	Make       string      `json:"make"`
	Model      string      `json:"model"`
	Trim       *string     `json:"trim"`
	YearFrom   *int32      `json:"yearFrom"`
	YearTo     *int32      `json:"yearTo"`
	PowerHp    *int32      `json:"powerHp"`
	WeightKg   *int32      `json:"weightKg"`
	Drivetrain *Drivetrain `json:"drivetrain"`
	CreatedAt  time.Time   `json:"createdAt"`
}

type TireCompound struct {
	ID        uuid.UUID `json:"id"`
	Brand     string    `json:"brand"`
	Name      string    `json:"name"`
	Type      TireType  `json:"type"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

type Condition struct {
	ID          uuid.UUID           `json:"id"`
	Weather     Weather             `json:"weather"`
	AirTempC    decimal.NullDecimal `json:"airTempC"`
	TrackTempC  decimal.NullDecimal `json:"trackTempC"`
	HumidityPct *int32              `json:"humidityPct"`
	WindKph     *int32              `json:"windKph"`
	TrackState  *string             `json:"trackState"`
	Notes       *string             `json:"notes"`
	MeasuredAt  time.Time           `json:"measuredAt"`
}

type LapTime struct {
	ID              uuid.UUID  `json:"id"`
	UserID          string     `json:"userId"`
	TrackLayoutID   uuid.UUID  `json:"trackLayoutId"`
	CarModelID      uuid.UUID  `json:"carModelId"`
	TireCompoundID  *uuid.UUID `json:"tireCompoundId"`
	ConditionsID    *uuid.UUID `json:"conditionsId"`
	TimeMs          int32      `json:"timeMs"`
	DrivenAt        time.Time  `json:"drivenAt"`
	ProofURL        *string    `json:"proofUrl"`
	Source          Source     `json:"source"`
	Status          Status     `json:"status"`
	VerifiedBy      *string    `json:"verifiedBy"`
	VerifiedAt      *time.Time `json:"verifiedAt"`
	RejectionReason *string    `json:"rejectionReason"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type TrackRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type LayoutRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type CarModelRef struct {
	ID    uuid.UUID `json:"id"`
	Make  string    `json:"make"`
	Model string    `json:"model"`
	Trim  *string   `json:"trim"`
}

type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HistoryEntry is a lap time of a user enriched with track, layout and car
type HistoryEntry struct {
	ID        uuid.UUID   `json:"id"`
	TimeMs    int32       `json:"timeMs"`
	DrivenAt  time.Time   `json:"drivenAt"`
	Status    Status      `json:"status"`
	Source    Source      `json:"source"`
	ProofURL  *string     `json:"proofUrl"`
	CreatedAt time.Time   `json:"createdAt"`
	Track     TrackRef    `json:"track"`
	Layout    LayoutRef   `json:"layout"`
	CarModel  CarModelRef `json:"carModel"`
}

// LeaderboardEntry is a verified lap time on a track
type LeaderboardEntry struct {
	ID       uuid.UUID   `json:"id"`
	TimeMs   int32       `json:"timeMs"`
	DrivenAt time.Time   `json:"drivenAt"`
	Layout   LayoutRef   `json:"layout"`
	User     UserRef     `json:"user"`
	CarModel CarModelRef `json:"carModel"`
}

// LayoutBoard holds the best entries of a single layout
type LayoutBoard struct {
	Layout  TrackLayout         `json:"layout"`
	Entries []*LeaderboardEntry `json:"entries"`
}

type TrackBoard struct {
	Track  *Track         `json:"track"`
	Boards []*LayoutBoard `json:"boards"`
}

type UserStats struct {
	User          *User  `json:"user"`
	TotalTimes    int    `json:"totalTimes"`
	VerifiedTimes int    `json:"verifiedTimes"`
	BestTime      *int32 `json:"bestTime"`
}

// Identity is the authenticated principal of a request
type Identity struct {
	UserID  string
	Name    string
	Email   string
	IsAdmin bool
	Roles   []string // additional roles granted by the identity provider
}

// HistoryFilter restricts a lap time history. Unset values don't restrict.
type HistoryFilter struct {
	TrackID    omit.Val[uuid.UUID]
	Status     omit.Val[Status]
	CarModelID omit.Val[uuid.UUID]
	SortBy     SortBy
}

// User returns the user entry backing the identity
func (i *Identity) User() *User {
	return &User{
		ID:      i.UserID,
		Name:    i.Name,
		Email:   i.Email,
		IsAdmin: i.IsAdmin,
	}
}
