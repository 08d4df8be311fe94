// Package client implements the read/query and deploy surface of a
// remote content server.
//
// A Client is a stateless façade over one configured endpoint: every
// call carries its own request/response lifecycle, nothing is shared
// between concurrent calls, and no connection is held beyond a call.
// Construct one Client per server target; multi-server conflict checks
// run several clients side by side.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"scene2d.dev/catalyst/cache"
	"scene2d.dev/catalyst/cidutil"
	"scene2d.dev/catalyst/entity"
)

// Options configures a Client. The zero value is usable.
type Options struct {
	// Timeout bounds each request when non-zero. Callers needing
	// per-call deadlines use context instead.
	Timeout time.Duration

	// HTTPClient overrides the transport. Nil means a fresh
	// http.Client.
	HTTPClient *http.Client

	// Cache, when set, is consulted before fetching raw content and
	// filled after a successful fetch. Only bytes whose recomputed id
	// matches the requested id are cached.
	Cache cache.CAS
}

// Client talks to one content server.
type Client struct {
	baseURL string
	httpc   *http.Client
	cache   cache.CAS
}

// New constructs a Client for the server at baseURL (scheme + host,
// no trailing slash required).
func New(baseURL string, opts Options) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("client: base URL is required")
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{}
	}
	if opts.Timeout > 0 {
		// Copy so a caller-shared http.Client is not mutated.
		clone := *httpc
		clone.Timeout = opts.Timeout
		httpc = &clone
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
		cache:   opts.Cache,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return wrapError(KindNetwork, op, "building request: "+err.Error(), err)
	}
	return c.doJSON(op, req, out)
}

func (c *Client) postJSON(ctx context.Context, op, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return wrapError(KindSerialization, op, "encoding request body: "+err.Error(), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return wrapError(KindNetwork, op, "building request: "+err.Error(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(op, req, out)
}

func (c *Client) doJSON(op string, req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return wrapError(KindNetwork, op, "request failed: "+err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serverError(op, resp.StatusCode, statusMessage(op, resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrapError(KindSerialization, op, "malformed response: "+err.Error(), err)
	}
	return nil
}

// fetchContent returns the raw bytes stored under id, going through the
// local cache when one is configured. Index documents can be large, so
// gzip is advertised and handled explicitly rather than relying on the
// transport's implicit decompression.
func (c *Client) fetchContent(ctx context.Context, op string, id entity.ContentId) ([]byte, error) {
	if b, ok := c.cacheGet(id); ok {
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/content/contents/"+id.String(), nil)
	if err != nil {
		return nil, wrapError(KindNetwork, op, "building request: "+err.Error(), err)
	}
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, wrapError(KindNetwork, op, "request failed: "+err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serverError(op, resp.StatusCode, statusMessage(op, resp))
	}

	var body io.Reader = resp.Body
	if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, wrapError(KindNetwork, op, "corrupt gzip response: "+err.Error(), err)
		}
		defer zr.Close()
		body = zr
	}

	b, err := io.ReadAll(body)
	if err != nil {
		return nil, wrapError(KindNetwork, op, "reading response: "+err.Error(), err)
	}
	c.cachePut(id, b)
	return b, nil
}

func (c *Client) cacheGet(id entity.ContentId) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	key, err := cidutil.Decode(id)
	if err != nil {
		return nil, false
	}
	b, err := c.cache.Get(key)
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *Client) cachePut(id entity.ContentId, b []byte) {
	if c.cache == nil {
		return
	}
	// Only content addressed by our own CID scheme round-trips through
	// the cache; anything else would store bytes under a key the cache
	// cannot verify.
	if cidutil.Identify(b) != id {
		return
	}
	_, _ = c.cache.Put(b)
}

func statusMessage(op string, resp *http.Response) string {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(snippet) == 0 {
		return fmt.Sprintf("%s: server returned %s", op, resp.Status)
	}
	return fmt.Sprintf("%s: server returned %s: %s", op, resp.Status, strings.TrimSpace(string(snippet)))
}
