// Package contentapi talks to the docent site's JSON:API endpoints.
package contentapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	mediaType = "application/vnd.api+json"

	DefaultTimeout        = 30 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)

type Config struct {
	BaseURL        string // JSON:API root, e.g. https://docents.example.org/jsonapi
	Username       string
	Password       string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	SkipTLSVerify  bool
	// Bundles maps a vocabulary to the taxonomy bundle that serves it.
	// Empty values are ignored.
	Bundles map[string]string
}

// Client is safe for concurrent use. One Client per process shares the
// underlying connection pool.
type Client struct {
	base     *url.URL
	username string
	password string
	http     *http.Client
	bundles  map[string]string
	logger   *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, ErrCredentials
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("contentapi: invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.SkipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // staging sites use self-signed certs
	}

	bundles := make(map[string]string, len(cfg.Bundles))
	for vocab, bundle := range cfg.Bundles {
		if bundle != "" {
			bundles[vocab] = bundle
		}
	}

	return &Client{
		base:     base,
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: cfg.Timeout, Transport: transport},
		bundles:  bundles,
		logger:   logger.With(slog.String("component", "contentapi")),
	}, nil
}

type link struct {
	Href string `json:"href"`
}

type document struct {
	Data  json.RawMessage `json:"data"`
	Links struct {
		Next *link `json:"next"`
	} `json:"links"`
}

type resource struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    json.RawMessage         `json:"attributes"`
	Relationships map[string]relationship `json:"relationships"`
}

type relationship struct {
	Data json.RawMessage `json:"data"`
}

type identifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// relatedID returns the id of a to-one relationship, or "" when it is absent,
// null or not an object.
func (r resource) relatedID(name string) string {
	rel, ok := r.Relationships[name]
	if !ok || len(rel.Data) == 0 || string(rel.Data) == "null" {
		return ""
	}
	var id identifier
	if err := json.Unmarshal(rel.Data, &id); err != nil {
		return ""
	}
	return id.ID
}

// relatedIDs returns the ids of a to-many relationship.
func (r resource) relatedIDs(name string) []string {
	rel, ok := r.Relationships[name]
	if !ok || len(rel.Data) == 0 || string(rel.Data) == "null" {
		return nil
	}
	var ids []identifier
	if err := json.Unmarshal(rel.Data, &ids); err != nil {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.ID)
	}
	return out
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + "/" + strings.TrimLeft(path, "/")
}

// getAll fetches every page of a collection. Query parameters only apply to
// the first request; the next links already carry them.
func (c *Client) getAll(ctx context.Context, path string, params url.Values) ([]resource, error) {
	next := c.endpoint(path)
	if len(params) > 0 {
		next += "?" + params.Encode()
	}

	var out []resource
	for page := 0; next != ""; page++ {
		var doc document
		if err := c.do(ctx, http.MethodGet, next, nil, &doc); err != nil {
			return nil, err
		}
		var items []resource
		if len(doc.Data) > 0 && string(doc.Data) != "null" {
			if err := json.Unmarshal(doc.Data, &items); err != nil {
				return nil, fmt.Errorf("contentapi: decode %s page %d: %w", path, page, err)
			}
		}
		out = append(out, items...)

		next = ""
		if doc.Links.Next != nil {
			next = doc.Links.Next.Href
		}
	}
	return out, nil
}

func (c *Client) getOne(ctx context.Context, path string) (resource, error) {
	var doc document
	if err := c.do(ctx, http.MethodGet, c.endpoint(path), nil, &doc); err != nil {
		return resource{}, err
	}
	var item resource
	if err := json.Unmarshal(doc.Data, &item); err != nil {
		return resource{}, fmt.Errorf("contentapi: decode %s: %w", path, err)
	}
	return item, nil
}

func (c *Client) do(ctx context.Context, method, target string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("contentapi: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("contentapi: build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", mediaType)
	if body != nil {
		req.Header.Set("Content-Type", mediaType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contentapi: %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("contentapi: read %s: %w", target, err)
	}
	c.logger.DebugContext(ctx, "request",
		slog.String("method", method),
		slog.String("url", target),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, target)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: method, URL: target, Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("contentapi: decode %s: %w", target, err)
	}
	return nil
}

// filter adds a JSON:API condition filter.
func filter(params url.Values, name, path, operator string, values ...string) {
	prefix := "filter[" + name + "][condition]"
	params.Set(prefix+"[path]", path)
	params.Set(prefix+"[operator]", operator)
	if operator == "IN" {
		for _, v := range values {
			params.Add(prefix+"[value][]", v)
		}
		return
	}
	if len(values) > 0 {
		params.Set(prefix+"[value]", values[0])
	}
}
