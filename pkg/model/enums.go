package model

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

type Source string

const (
	SourceTransponder    Source = "transponder"
	SourceOfficialTiming Source = "official_timing"
	SourceGPS            Source = "gps"
	SourceManual         Source = "manual"
)

type Drivetrain string

const (
	DrivetrainFWD Drivetrain = "fwd"
	DrivetrainRWD Drivetrain = "rwd"
	DrivetrainAWD Drivetrain = "awd"
)

type TireType string

const (
	TireSlick     TireType = "slick"
	TireSemiSlick TireType = "semi_slick"
	TireStreet    TireType = "street"
	TireRain      TireType = "rain"
)

type Weather string

const (
	WeatherDry   Weather = "dry"
	WeatherDamp  Weather = "damp"
	WeatherWet   Weather = "wet"
	WeatherMixed Weather = "mixed"
)

// SortBy controls the ordering of a lap time history
type SortBy string

const (
	SortByDate SortBy = "date" // drivenAt desc
	SortByTime SortBy = "time" // timeMs asc
)

var (
	statuses    = []Status{StatusPending, StatusVerified, StatusRejected}
	sources     = []Source{SourceTransponder, SourceOfficialTiming, SourceGPS, SourceManual}
	drivetrains = []Drivetrain{DrivetrainFWD, DrivetrainRWD, DrivetrainAWD}
	tireTypes   = []TireType{TireSlick, TireSemiSlick, TireStreet, TireRain}
	weathers    = []Weather{WeatherDry, WeatherDamp, WeatherWet, WeatherMixed}
	sortBys     = []SortBy{SortByDate, SortByTime}
)

func ParseStatus(s string) (Status, error)         { return parseEnum(s, "status", statuses) }
func ParseSource(s string) (Source, error)         { return parseEnum(s, "source", sources) }
func ParseDrivetrain(s string) (Drivetrain, error) { return parseEnum(s, "drivetrain", drivetrains) }
func ParseTireType(s string) (TireType, error)     { return parseEnum(s, "tire type", tireTypes) }
func ParseWeather(s string) (Weather, error)       { return parseEnum(s, "weather", weathers) }

// ParseSortBy maps an empty value to SortByDate
func ParseSortBy(s string) (SortBy, error) {
	if strings.TrimSpace(s) == "" {
		return SortByDate, nil
	}
	return parseEnum(s, "sort", sortBys)
}

func (s Status) Valid() bool     { return lo.Contains(statuses, s) }
func (s Source) Valid() bool     { return lo.Contains(sources, s) }
func (d Drivetrain) Valid() bool { return lo.Contains(drivetrains, d) }
func (s SortBy) Valid() bool     { return lo.Contains(sortBys, s) }

func parseEnum[T ~string](s, kind string, valid []T) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(s)))
	if lo.Contains(valid, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, s)
}
