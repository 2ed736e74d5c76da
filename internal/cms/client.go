package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/keithlinneman/rentwise-web/internal/log"
	"github.com/keithlinneman/rentwise-web/internal/otelx"
	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

const (
	DefaultDeliveryURL = "https://cdn.contentful.com"
	DefaultPreviewURL  = "https://preview.contentful.com"
	DefaultEnvironment = "master"
	DefaultTimeout     = 4 * time.Second

	maxResponseBytes = 8 << 20
)

var (
	// ErrNotConfigured means space id or delivery token is missing. No
	// request was made.
	ErrNotConfigured = errors.New("cms: not configured")
	// ErrNotFound means the query matched no entry.
	ErrNotFound = errors.New("cms: entry not found")
)

// StatusError is a non-2xx answer from the store.
type StatusError struct {
	Code        int
	ContentType string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cms: %s query returned %d %s", e.ContentType, e.Code, http.StatusText(e.Code))
}

// Observer receives one call per fetch attempt.
type Observer interface {
	ObserveCMSFetch(contentType, mode, outcome string, d time.Duration)
}

// Fetch outcomes reported to the Observer.
const (
	OutcomeOK            = "ok"
	OutcomeNotFound      = "not_found"
	OutcomeNotConfigured = "not_configured"
	OutcomeStatus        = "status"
	OutcomeCanceled      = "canceled"
	OutcomeError         = "error"
)

type Options struct {
	SpaceID       string
	Environment   string
	DeliveryToken string
	PreviewToken  string
	DeliveryURL   string
	PreviewURL    string
	UserAgent     string
	// HTTPClient defaults to an otel-instrumented client with DefaultTimeout.
	HTTPClient *http.Client
	Logger     log.Logger
	Observer   Observer
}

type Client struct {
	spaceID       string
	environment   string
	deliveryToken string
	previewToken  string
	deliveryURL   string
	previewURL    string
	userAgent     string
	http          *http.Client
	logger        log.Logger
	obs           Observer
}

func NewClient(o Options) *Client {
	c := &Client{
		spaceID:       o.SpaceID,
		environment:   o.Environment,
		deliveryToken: o.DeliveryToken,
		previewToken:  o.PreviewToken,
		deliveryURL:   o.DeliveryURL,
		previewURL:    o.PreviewURL,
		userAgent:     o.UserAgent,
		http:          o.HTTPClient,
		logger:        o.Logger,
		obs:           o.Observer,
	}
	if c.environment == "" {
		c.environment = DefaultEnvironment
	}
	if c.deliveryURL == "" {
		c.deliveryURL = DefaultDeliveryURL
	}
	if c.previewURL == "" {
		c.previewURL = DefaultPreviewURL
	}
	if c.http == nil {
		c.http = otelx.HTTPClient(DefaultTimeout)
	}
	if c.logger == nil {
		c.logger = log.Nop()
	}
	return c
}

// Configured reports whether fetches will be attempted at all.
func (c *Client) Configured() bool {
	return c != nil && c.spaceID != "" && c.deliveryToken != ""
}

// PreviewAvailable reports whether preview mode reaches the Preview API.
// Without a preview token, preview requests fall back to published content.
func (c *Client) PreviewAvailable() bool {
	return c.Configured() && c.previewToken != ""
}

// endpoint picks base URL and token for mode.
func (c *Client) endpoint(mode Mode) (base, token string) {
	if mode == ModePreview && c.previewToken != "" {
		return c.previewURL, c.previewToken
	}
	return c.deliveryURL, c.deliveryToken
}

func (c *Client) entriesURL(mode Mode, q url.Values) (string, string) {
	base, token := c.endpoint(mode)
	q.Set("include", strconv.Itoa(IncludeDepth))
	u := fmt.Sprintf("%s/spaces/%s/environments/%s/entries?%s",
		base, url.PathEscape(c.spaceID), url.PathEscape(c.environment), q.Encode())
	return u, token
}

// getEntries runs one GET /entries query and decodes the envelope. With
// single set it asks for one item and reports ErrNotFound for none.
func (c *Client) getEntries(ctx context.Context, mode Mode, contentType string, q url.Values, single bool) (resp *entriesResponse, err error) {
	if !c.Configured() {
		c.observe(contentType, mode, OutcomeNotConfigured, 0)
		return nil, ErrNotConfigured
	}
	start := time.Now()
	defer func() {
		c.observe(contentType, mode, outcomeOf(err), time.Since(start))
	}()

	q.Set("content_type", contentType)
	if single {
		q.Set("limit", "1")
	}
	u, token := c.entriesURL(mode, q)

	ctx = otelx.SpanName(ctx, "cms "+contentType)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, xerrors.Wrap(err, "build cms request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, xerrors.Wrapf(err, "cms %s query", contentType)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
		return nil, &StatusError{Code: res.StatusCode, ContentType: contentType}
	}

	var out entriesResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, xerrors.Wrapf(err, "decode cms %s response", contentType)
	}
	if single && len(out.Items) == 0 {
		return nil, ErrNotFound
	}
	return &out, nil
}

func (c *Client) observe(contentType string, mode Mode, outcome string, d time.Duration) {
	if c.obs != nil {
		c.obs.ObserveCMSFetch(contentType, mode.String(), outcome, d)
	}
}

func outcomeOf(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrNotConfigured):
		return OutcomeNotConfigured
	case errors.As(err, &se):
		return OutcomeStatus
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
