package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/metrics"
	"github.com/mpapenbr/laptime-logger/pkg/service/svcerr"
	"github.com/mpapenbr/laptime-logger/pkg/utils/cache"
	"github.com/mpapenbr/laptime-logger/pkg/utils/cache/loadercache"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultMakesTTL  = 24 * time.Hour
	DefaultModelsTTL = time.Hour
)

var (
	dataNames = jp.MustParseString("$.data[*].name")
	dataItems = jp.MustParseString("$.data[*]")
)

// Vehicle is a make/model combination offered by the catalog
type Vehicle struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  *int   `json:"year,omitempty"`
}

type modelsKey struct {
	make string
	year int // 0: any year
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithTimeout limits the duration of a single upstream request
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithRateLimit restricts the upstream requests per second. Values <= 0 disable the limit.
func WithRateLimit(perSecond float64) Option {
	return func(cl *Client) {
		if perSecond > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			cl.limiter = rate.NewLimiter(rate.Inf, 0)
		}
	}
}

func WithCacheTTL(makes, models time.Duration) Option {
	return func(cl *Client) {
		cl.makesTTL = makes
		cl.modelsTTL = models
	}
}

// WithClock is used by tests to control cache expiration
func WithClock(now func() time.Time) Option {
	return func(cl *Client) {
		cl.now = now
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(cl *Client) {
		cl.tracer = tracer
	}
}

// Client reads makes and models from a vehicle catalog.
// Successful responses are cached, failures are not.
type Client struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	limiter   *rate.Limiter
	makesTTL  time.Duration
	modelsTTL time.Duration
	now       func() time.Time
	tracer    trace.Tracer
	log       *log.Logger
	makes     cache.Cache[struct{}, []string]
	models    cache.Cache[modelsKey, []Vehicle]
}

func NewClient(baseURL string, opts ...Option) *Client {
	ret := &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		http:      http.DefaultClient,
		timeout:   DefaultTimeout,
		limiter:   rate.NewLimiter(rate.Limit(5), 1),
		makesTTL:  DefaultMakesTTL,
		modelsTTL: DefaultModelsTTL,
		now:       time.Now,
		log:       log.Default().Named("catalog"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("ltl")
	}
	ret.makes = loadercache.New(
		loadercache.WithExpiration[struct{}, []string](ret.makesTTL),
		loadercache.WithClock[struct{}, []string](ret.now),
		loadercache.WithLogger[struct{}, []string](ret.log.Named("cache.makes")),
		loadercache.WithLoader[struct{}, []string](ret.fetchMakes),
	)
	ret.models = loadercache.New(
		loadercache.WithExpiration[modelsKey, []Vehicle](ret.modelsTTL),
		loadercache.WithClock[modelsKey, []Vehicle](ret.now),
		loadercache.WithLogger[modelsKey, []Vehicle](ret.log.Named("cache.models")),
		loadercache.WithLoader[modelsKey, []Vehicle](ret.fetchModels),
	)
	return ret
}

// Makes returns the sorted, distinct names of all makes
func (c *Client) Makes(ctx context.Context) ([]string, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.Makes")
	defer span.End()
	ret, err := c.makes.Get(ctx, struct{}{})
	if err != nil {
		return nil, err
	}
	return slices.Clone(*ret), nil
}

// Models returns the models of a make sorted by model name.
// year <= 0 means any year.
func (c *Client) Models(ctx context.Context, carMake string, year int) ([]Vehicle, error) {
	carMake = strings.TrimSpace(carMake)
	if carMake == "" {
		return nil, svcerr.Validation("make", "is required")
	}
	if year < 0 {
		year = 0
	}
	ctx, span := c.tracer.Start(ctx, "catalog.Models",
		trace.WithAttributes(attribute.String("make", carMake), attribute.Int("year", year)))
	defer span.End()
	ret, err := c.models.Get(ctx, modelsKey{make: carMake, year: year})
	if err != nil {
		return nil, err
	}
	return slices.Clone(*ret), nil
}

func (c *Client) fetchMakes(ctx context.Context, _ struct{}) (*[]string, error) {
	doc, err := c.get(ctx, "makes", "/api/makes", nil)
	if err != nil {
		return nil, err
	}
	names := lo.FilterMap(dataNames.Get(doc), func(item any, _ int) (string, bool) {
		s, ok := item.(string)
		s = strings.TrimSpace(s)
		return s, ok && s != ""
	})
	names = lo.Uniq(names)
	slices.Sort(names)
	return &names, nil
}

func (c *Client) fetchModels(ctx context.Context, key modelsKey) (*[]Vehicle, error) {
	q := url.Values{}
	q.Set("make", key.make)
	var year *int
	if key.year > 0 {
		q.Set("year", strconv.Itoa(key.year))
		year = &key.year
	}
	doc, err := c.get(ctx, "models", "/api/models/v2", q)
	if err != nil {
		return nil, err
	}
	vehicles := lo.FilterMap(dataItems.Get(doc), func(item any, _ int) (Vehicle, bool) {
		m, ok := item.(map[string]any)
		if !ok {
			return Vehicle{}, false
		}
		name, _ := m["name"].(string)
		if name = strings.TrimSpace(name); name == "" {
			return Vehicle{}, false
		}
		v := Vehicle{Make: key.make, Model: name, Year: year}
		if mk, ok := m["make"].(string); ok && strings.TrimSpace(mk) != "" {
			v.Make = strings.TrimSpace(mk)
		}
		return v, true
	})
	slices.SortStableFunc(vehicles, func(a, b Vehicle) int {
		return strings.Compare(strings.ToLower(a.Model), strings.ToLower(b.Model))
	})
	return &vehicles, nil
}

// get performs a rate limited request and parses the json body.
// Every failure is reported as svcerr.ErrUpstream.
//
//nolint:whitespace // editor/linter issue
func (c *Client) get(
	ctx context.Context,
	endpoint, path string,
	query url.Values,
) (doc any, err error) {
	start := time.Now()
	defer func(ctx context.Context) {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.CatalogRequest(ctx, endpoint, result, time.Since(start))
	}(ctx)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err = c.limiter.Wait(ctx); err != nil {
		return nil, c.upstreamErr(endpoint, err)
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, c.upstreamErr(endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.upstreamErr(endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.upstreamErr(endpoint,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.upstreamErr(endpoint, err)
	}
	doc, err = oj.Parse(body)
	if err != nil {
		return nil, c.upstreamErr(endpoint, err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, c.upstreamErr(endpoint, errors.New("response is not an object"))
	}
	// an empty list is a valid answer, a missing one is not
	if _, ok := obj["data"].([]any); !ok {
		return nil, c.upstreamErr(endpoint, errors.New("response has no data list"))
	}
	return doc, nil
}

func (c *Client) upstreamErr(endpoint string, err error) error {
	c.log.Warn("catalog request failed",
		log.String("endpoint", endpoint), log.ErrorField(err))
	return fmt.Errorf("%w: %s: %w", svcerr.ErrUpstream, endpoint, err)
}
