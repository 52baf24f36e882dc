package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/service/svcerr"
	"github.com/mpapenbr/laptime-logger/pkg/service/track"
)

//go:embed tracks.yml
var defaultTracks []byte

type File struct {
	Tracks []TrackDef `yaml:"tracks"`
}

type TrackDef struct {
	Name       string      `yaml:"name"`
	Slug       string      `yaml:"slug"`
	Country    string      `yaml:"country"`
	Region     string      `yaml:"region"`
	City       string      `yaml:"city"`
	LengthKm   string      `yaml:"lengthKm"`
	TurnCount  *int32      `yaml:"turnCount"`
	Direction  string      `yaml:"direction"`
	WebsiteURL *string     `yaml:"websiteUrl"`
	Layouts    []LayoutDef `yaml:"layouts"`
}

type LayoutDef struct {
	Name      string `yaml:"name"`
	Slug      string `yaml:"slug"`
	LengthKm  string `yaml:"lengthKm"`
	TurnCount *int32 `yaml:"turnCount"`
}

// Result reports what was created by Apply
type Result struct {
	Tracks      int
	Layouts     int
	MainLayouts int
}

// Default returns the embedded track definitions
func Default() (*File, error) {
	return parse(defaultTracks)
}

func Load(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*File, error) {
	var ret File
	if err := yaml.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}
	dups := lo.FindDuplicatesBy(ret.Tracks, func(t TrackDef) string { return t.Slug })
	if len(dups) > 0 {
		return nil, fmt.Errorf("invalid seed file: duplicate slug %q", dups[0].Slug)
	}
	return &ret, nil
}

// Apply creates the tracks and layouts of f which don't exist yet and adds
// a main layout to every track without one. Existing entries are left untouched.
//
//nolint:whitespace // editor/linter issue
func Apply(
	ctx context.Context,
	svc *track.Service,
	id *model.Identity,
	f *File,
) (*Result, error) {
	l := log.Default().Named("seed")
	ret := &Result{}
	for i := range f.Tracks {
		def := &f.Tracks[i]
		t, err := svc.TrackBySlug(ctx, def.Slug)
		switch {
		case err == nil:
			l.Debug("track exists", log.String("slug", def.Slug))
		case errors.Is(err, svcerr.ErrNotFound):
			toCreate, convErr := def.toTrack()
			if convErr != nil {
				return nil, convErr
			}
			if t, err = svc.CreateTrack(ctx, id, toCreate); err != nil {
				return nil, fmt.Errorf("track %s: %w", def.Slug, err)
			}
			ret.Tracks++
		default:
			return nil, err
		}
		existing, err := svc.Layouts(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		for j := range def.Layouts {
			ld := &def.Layouts[j]
			if lo.ContainsBy(existing, func(el *model.TrackLayout) bool {
				return el.Slug == ld.Slug
			}) {
				continue
			}
			layout, convErr := ld.toLayout()
			if convErr != nil {
				return nil, fmt.Errorf("track %s: %w", def.Slug, convErr)
			}
			if _, err = svc.CreateLayout(ctx, id, t.Slug, layout); err != nil {
				return nil, fmt.Errorf("layout %s/%s: %w", def.Slug, ld.Slug, err)
			}
			ret.Layouts++
		}
	}
	mains, err := svc.SeedMainLayouts(ctx, id)
	if err != nil {
		return nil, err
	}
	ret.MainLayouts = len(mains)
	return ret, nil
}

func (d *TrackDef) toTrack() (*model.Track, error) {
	length, err := parseLength(d.LengthKm)
	if err != nil {
		return nil, fmt.Errorf("track %s: %w", d.Slug, err)
	}
	return &model.Track{
		Name:       d.Name,
		Slug:       d.Slug,
		Country:    d.Country,
		Region:     d.Region,
		City:       d.City,
		LengthKm:   length,
		TurnCount:  d.TurnCount,
		Direction:  d.Direction,
		WebsiteURL: d.WebsiteURL,
		IsActive:   true,
	}, nil
}

func (d *LayoutDef) toLayout() (*model.TrackLayout, error) {
	length, err := parseLength(d.LengthKm)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", d.Slug, err)
	}
	return &model.TrackLayout{
		Name:      d.Name,
		Slug:      d.Slug,
		LengthKm:  length,
		TurnCount: d.TurnCount,
	}, nil
}

func parseLength(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("lengthKm: %w", err)
	}
	return decimal.NewNullDecimal(v), nil
}
