// Package hub talks to the Superface hub: tool discovery and tool execution.
package hub

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/martyndavies/hubapi-example-langchain/internal/cache"
	"github.com/martyndavies/hubapi-example-langchain/internal/security"
	"github.com/martyndavies/hubapi-example-langchain/internal/tools"
)

const (
	catalogPath  = "/fd"
	performPath  = "/perform/"
	userIDHeader = "x-superface-user-id"
	maxBodyBytes = 4 << 20
)

// ErrCatalog wraps every failure to obtain the tool catalog.
var ErrCatalog = errors.New("hub catalog unavailable")

// Options configures a Client.
type Options struct {
	BaseURL   string
	AuthToken string
	UserID    string
	Timeout   time.Duration
	// RateLimit caps outbound requests per second. Zero disables limiting.
	RateLimit float64
	// Cache keeps the raw catalog body for CacheTTL. Nil disables caching.
	Cache      cache.Store
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	baseURL  string
	token    string
	userID   string
	http     *http.Client
	limiter  *rate.Limiter
	cache    cache.Store
	cacheTTL time.Duration
	sf       singleflight.Group
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	c := &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.AuthToken,
		userID:   opts.UserID,
		http:     httpClient,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

// FetchTools returns the tool definitions published by the hub. Concurrent
// callers share one in-flight request; the shared request is not tied to any
// one caller's cancellation, and each caller stops waiting when its own ctx ends.
func (c *Client) FetchTools(ctx context.Context) ([]tools.Definition, error) {
	ch := c.sf.DoChan("catalog", func() (interface{}, error) {
		return c.fetchCatalog(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrCatalog, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneDefs(res.Val.([]tools.Definition)), nil
	}
}

// fetchCatalog serves the catalog from cache or the hub. Only bodies that
// decode are cached.
func (c *Client) fetchCatalog(ctx context.Context) ([]tools.Definition, error) {
	key := c.catalogKey()
	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, key); ok {
			if defs, err := tools.ParseCatalog(body); err == nil {
				log.Debug().Str("base_url", c.baseURL).Msg("tool catalog cache hit")
				return defs, nil
			}
			log.Warn().Str("base_url", c.baseURL).Msg("discarding undecodable cached catalog")
		}
	}

	body, err := c.catalogBody(ctx)
	if err != nil {
		return nil, err
	}
	defs, err := tools.ParseCatalog(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalog, err)
	}

	if c.cache != nil {
		c.cache.Set(ctx, key, body, c.cacheTTL)
	}
	return defs, nil
}

func (c *Client) catalogBody(ctx context.Context) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+catalogPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalog, err)
	}
	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalog, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalog, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrCatalog, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrCatalog, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// cloneDefs gives each caller its own slice of a shared result.
func cloneDefs(defs []tools.Definition) []tools.Definition {
	out := make([]tools.Definition, len(defs))
	copy(out, defs)
	return out
}

// Perform executes the named tool with args. It never returns a Go error:
// failures are reported in Result.Err, and the hub's error body, if any, is
// kept in Result.Payload.
func (c *Client) Perform(ctx context.Context, name string, args map[string]interface{}) tools.Result {
	res := tools.Result{Name: name}

	log.Info().
		Str("function", name).
		Interface("arguments", security.RedactArguments(args)).
		Msg("calling hub function")

	if args == nil {
		args = map[string]interface{}{}
	}
	payload, err := json.Marshal(args)
	if err != nil {
		res.Err = &tools.ActionError{Kind: tools.KindEncode, Detail: err.Error()}
		return res
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+performPath+url.PathEscape(name), bytes.NewReader(payload))
	if err != nil {
		res.Err = &tools.ActionError{Kind: tools.KindEncode, Detail: err.Error()}
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(userIDHeader, c.userID)

	if err := c.wait(ctx); err != nil {
		res.Err = &tools.ActionError{Kind: tools.KindTransport, Detail: err.Error()}
		return res
	}
	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("function", name).Msg("perform error")
		res.Err = &tools.ActionError{Kind: tools.KindTransport, Detail: err.Error()}
		return res
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		res.Err = &tools.ActionError{Kind: tools.KindDecode, Detail: "read body: " + err.Error(), StatusCode: resp.StatusCode}
		return res
	}
	res.Payload = serialize(body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Err = &tools.ActionError{
			Kind:       tools.KindStatus,
			Detail:     strconv.Itoa(resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
		log.Error().
			Str("function", name).
			Int("status", resp.StatusCode).
			Str("body", res.Payload).
			Msg("perform error")
		return res
	}

	log.Info().Str("function", name).Str("result", res.Payload).Msg("hub response")
	return res
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) catalogKey() string {
	sum := sha256.Sum256([]byte(c.baseURL))
	return "hub:catalog:" + hex.EncodeToString(sum[:8])
}

// serialize renders a response body as compact JSON text, or as trimmed raw
// text when the body is not JSON.
func serialize(body []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err == nil {
		return buf.String()
	}
	return strings.TrimSpace(string(body))
}
