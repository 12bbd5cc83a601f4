// Package swapi fetches people from the Star Wars API (https://swapi.dev).
package swapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amp-labs/viewfsm/logger"
	"github.com/amp-labs/viewfsm/statemachine"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultBaseURL is the public SWAPI endpoint.
const DefaultBaseURL = "https://swapi.dev/api"

const (
	tracerName       = "swapi"
	peoplePath       = "people/"
	maxErrorBodySize = 512
)

var (
	// ErrInvalidBaseURL is returned by NewClient for a base URL that is not absolute.
	ErrInvalidBaseURL = errors.New("invalid base URL")
	// ErrInvalidPage is returned when a page body is not a SWAPI list.
	ErrInvalidPage = errors.New("invalid SWAPI page")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("swapi: %s returned %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}

	return msg
}

// Page is one page of a SWAPI list response.
type Page struct {
	Count    int                   `json:"count"`
	Next     *string               `json:"next"`
	Previous *string               `json:"previous"`
	Results  []statemachine.Record `json:"results"`
}

// Client talks to SWAPI.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	maxPages   int
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Defaults to a client with a 10s timeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithMaxPages follows up to n pages of results. Values below one mean one.
func WithMaxPages(n int) Option {
	return func(c *Client) {
		c.maxPages = max(n, 1)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client rooted at baseURL, e.g. DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	if !parsed.IsAbs() || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 10 * time.Second}, //nolint:mnd
		maxPages:   1,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// People returns the people list in server order, following next links up
// to the configured page limit.
func (c *Client) People(ctx context.Context) ([]statemachine.Record, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "swapi.people")
	defer span.End()

	next := c.baseURL.ResolveReference(&url.URL{Path: peoplePath}).String()

	var people []statemachine.Record

	pages := 0

	for next != "" && pages < c.maxPages {
		page, err := c.getPage(ctx, next)
		if err != nil {
			err = logger.AnnotateError(err, "swapi_url", next, "swapi_page", pages+1)

			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			return nil, err
		}

		pages++

		people = append(people, page.Results...)
		next = ""

		if page.Next != nil && *page.Next != "" {
			next, err = c.resolve(*page.Next)
			if err != nil {
				return nil, err
			}
		}
	}

	span.SetAttributes(
		attribute.Int("pages", pages),
		attribute.Int("people", len(people)),
	)
	span.SetStatus(codes.Ok, "")

	c.logger.DebugContext(ctx, "fetched people", "pages", pages, "count", len(people))

	if people == nil {
		people = []statemachine.Record{}
	}

	return people, nil
}

func (c *Client) resolve(ref string) (string, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: next link %q: %w", ErrInvalidPage, ref, err)
	}

	return c.baseURL.ResolveReference(parsed).String(), nil
}

func (c *Client) getPage(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	start := time.Now()

	rsp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("error").Inc()

		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}

	defer func() {
		_ = rsp.Body.Close()
	}()

	status := strconv.Itoa(rsp.StatusCode)
	requestsTotal.WithLabelValues(status).Inc()
	requestDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if rsp.StatusCode < http.StatusOK || rsp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(io.LimitReader(rsp.Body, maxErrorBodySize))

		return nil, &StatusError{
			StatusCode: rsp.StatusCode,
			URL:        pageURL,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	var page Page

	err = json.NewDecoder(rsp.Body).Decode(&page)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPage, err)
	}

	if page.Results == nil {
		return nil, fmt.Errorf("%w: missing results", ErrInvalidPage)
	}

	c.logger.DebugContext(ctx, "fetched page", "url", pageURL, "results", len(page.Results), "count", page.Count)

	return &page, nil
}
