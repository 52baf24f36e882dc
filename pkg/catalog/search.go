package catalog

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/mpapenbr/laptime-logger/pkg/model"
)

// SearchWindow is the maximum number of car models considered by a search
const SearchWindow = 50

// Searcher finds car models matching a free text query
type Searcher interface {
	Search(ctx context.Context, query string) ([]*model.CarModel, error)
}

type windowSource interface {
	LoadLimited(ctx context.Context, limit int) ([]*model.CarModel, error)
}

type sqlSource interface {
	Search(ctx context.Context, query string, limit int) ([]*model.CarModel, error)
}

// WindowSearch loads the first SearchWindow car models and filters them in
// memory. Matching entries beyond the window are not found.
type WindowSearch struct {
	src windowSource
}

func NewWindowSearch(src windowSource) *WindowSearch {
	return &WindowSearch{src: src}
}

func (w *WindowSearch) Search(ctx context.Context, query string) ([]*model.CarModel, error) {
	cars, err := w.src.LoadLimited(ctx, SearchWindow)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return cars, nil
	}
	return lo.Filter(cars, func(c *model.CarModel, _ int) bool {
		return matches(c, q)
	}), nil
}

func matches(c *model.CarModel, q string) bool {
	if strings.Contains(strings.ToLower(c.Make), q) ||
		strings.Contains(strings.ToLower(c.Model), q) {
		return true
	}
	return c.Trim != nil && strings.Contains(strings.ToLower(*c.Trim), q)
}

// SQLSearch lets the database filter all car models
type SQLSearch struct {
	src sqlSource
}

func NewSQLSearch(src sqlSource) *SQLSearch {
	return &SQLSearch{src: src}
}

func (s *SQLSearch) Search(ctx context.Context, query string) ([]*model.CarModel, error) {
	return s.src.Search(ctx, strings.TrimSpace(query), SearchWindow)
}
