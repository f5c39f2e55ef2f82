// Package cms is a client for the headless content backend that stores
// every directory record. It speaks the backend's bracketed query DSL and
// maps its JSON envelope onto listing items.
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"investhub/internal/adapters/http/perf"
	"investhub/internal/domain/collection"
	"investhub/internal/domain/listing"
)

// DefaultTimeout bounds a single backend request.
const DefaultTimeout = 15 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Fetcher reads directory content. Both Client and CachedClient satisfy it.
type Fetcher interface {
	FetchPage(ctx context.Context, c collection.Collection, q listing.Query) (listing.ResultPage, error)
	FetchBySlug(ctx context.Context, c collection.Collection, slug string) (listing.Item, error)
}

// Options configures a Client.
type Options struct {
	BaseURL    string        // e.g. https://cms.example.org
	Token      string        // optional API token sent as a bearer token
	Timeout    time.Duration // zero uses DefaultTimeout
	HTTPClient *http.Client  // optional; Timeout is ignored when set
	Collector  *perf.Collector
}

// Client fetches pages and single records from the content backend.
type Client struct {
	baseURL   *url.URL
	token     string
	http      *http.Client
	collector *perf.Collector
}

// Compile-time check that *Client satisfies Fetcher.
var _ Fetcher = (*Client)(nil)

// NewClient creates a Client for the backend at opts.BaseURL.
// PRE: opts.BaseURL is an absolute http(s) URL
// POST: Returns a ready-to-use client or a configuration error
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid cms base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("cms base url must be http or https, got %q", opts.BaseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, token: opts.Token, http: hc, collector: opts.Collector}, nil
}

// FetchPage requests one page of a collection.
// HasMore is derived from the page size alone (see listing.HasMoreItems).
// PRE: q is a listing query for collection c
// POST: Returns the page, or an error wrapping ErrFetchFailed
func (cl *Client) FetchPage(ctx context.Context, c collection.Collection, q listing.Query) (listing.ResultPage, error) {
	q = q.Normalize()
	env, err := cl.get(ctx, c.Endpoint, BuildQuery(c, q))
	if err != nil {
		return listing.ResultPage{}, err
	}

	items, err := decodeItems(c, env.Data)
	if err != nil {
		return listing.ResultPage{}, &DecodeError{Endpoint: c.Endpoint, Err: err}
	}

	page := listing.ResultPage{
		Items:   items,
		Page:    q.Page,
		HasMore: listing.HasMoreItems(len(items), c.EffectivePageSize()),
	}
	if p := env.Meta.Pagination; p != nil {
		page.PageCount = p.PageCount
		total := p.Total
		page.Total = &total
	}
	return page, nil
}

// FetchBySlug returns the record of collection c whose slug matches.
// PRE: slug is non-empty
// POST: Returns the item, ErrNotFound, or an error wrapping ErrFetchFailed
func (cl *Client) FetchBySlug(ctx context.Context, c collection.Collection, slug string) (listing.Item, error) {
	if strings.TrimSpace(slug) == "" {
		return listing.Item{}, ErrNotFound
	}
	env, err := cl.get(ctx, c.Endpoint, buildSlugQuery(c, slug))
	if err != nil {
		return listing.Item{}, err
	}
	items, err := decodeItems(c, env.Data)
	if err != nil {
		return listing.Item{}, &DecodeError{Endpoint: c.Endpoint, Err: err}
	}
	if len(items) == 0 {
		return listing.Item{}, ErrNotFound
	}
	return items[0], nil
}

// envelope is the backend's response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		Pagination *struct {
			Page      int `json:"page"`
			PageSize  int `json:"pageSize"`
			PageCount int `json:"pageCount"`
			Total     int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
	Error *struct {
		Status  int    `json:"status"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

// get performs the request, classifies failures and decodes the envelope.
func (cl *Client) get(ctx context.Context, endpoint string, params url.Values) (envelope, error) {
	u := *cl.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/api/" + strings.Trim(endpoint, "/")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return envelope{}, &NetworkError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	start := time.Now()
	resp, err := cl.http.Do(req)
	if err != nil {
		cl.collector.Track(perf.KindUpstream, "cms "+endpoint, 0, start)
		if !errors.Is(err, context.Canceled) {
			slog.Warn("cms_fetch_failed", "endpoint", endpoint, "error", err)
		}
		return envelope{}, &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	cl.collector.Track(perf.KindUpstream, "cms "+endpoint, resp.StatusCode, start)
	if err != nil {
		return envelope{}, &NetworkError{Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &ServerError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.Error != nil {
			serr.Message = env.Error.Message
		}
		slog.Warn("cms_fetch_failed", "endpoint", endpoint, "status", resp.StatusCode, "message", serr.Message)
		return envelope{}, serr
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return envelope{}, &DecodeError{Endpoint: endpoint, Err: err}
	}
	slog.Debug("cms_fetch", "endpoint", endpoint, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return env, nil
}

// decodeItems maps the data array onto listing items. Records may nest their
// fields under "attributes" or carry them at the top level.
func decodeItems(c collection.Collection, data json.RawMessage) ([]listing.Item, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, errors.New("missing data array")
	}
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("data is not an array of records: %w", err)
	}

	items := make([]listing.Item, 0, len(records))
	for i, rec := range records {
		id, err := decodeID(rec["id"])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		attrs := rec
		if raw, ok := rec["attributes"]; ok {
			attrs = nil
			if err := json.Unmarshal(raw, &attrs); err != nil {
				return nil, fmt.Errorf("record %d attributes: %w", i, err)
			}
		}
		items = append(items, toItem(c, id, attrs))
	}
	return items, nil
}

// decodeID accepts numeric or string identifiers.
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("missing id")
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}
	return "", fmt.Errorf("invalid id %s", string(raw))
}

func toItem(c collection.Collection, id string, attrs map[string]json.RawMessage) listing.Item {
	it := listing.Item{ID: id, Type: c.Slug, Attributes: attrs}
	it.Slug = it.Attr("slug")
	it.Title = firstAttr(it, "title", "name")
	it.Summary = firstAttr(it, "summary", "description")
	it.Body = firstAttr(it, "body", "content")
	if c.TypeAttribute != "" {
		if t := it.Attr(c.TypeAttribute); t != "" {
			it.Type = t
		}
	}
	if ts := firstAttr(it, "publishedAt", "date"); ts != "" {
		it.PublishedAt = parseTime(ts)
	}
	if it.Slug == "" {
		it.Slug = id
	}
	return it
}

func firstAttr(it listing.Item, names ...string) string {
	for _, n := range names {
		if v := it.Attr(n); v != "" {
			return v
		}
	}
	return ""
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
