// Package session implements the ADT session kernel: the only component in
// erpl-adt that performs network I/O. It layers SAP-specific CSRF-token
// lifecycle, session cookie capture, stateful-session headers, and
// redactive logging on top of a plain HTTP transport (valyala/fasthttp).
package session

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/logging"
	"github.com/erpl-adt/erpl-adt/pkg/protocol"
	"github.com/erpl-adt/erpl-adt/pkg/types"
)

// HttpResponse is the normalized shape every session call returns on success.
type HttpResponse struct {
	StatusCode int
	Headers    HeaderMap
	Body       string
}

// HeaderMap maps header names to a single value each; only the last value
// for a given name is retained.
type HeaderMap map[string]string

// Get looks up a header case-insensitively.
func (h HeaderMap) Get(name string) (string, bool) {
	v, ok := h[strings.ToLower(name)]
	return v, ok
}

func newHeaderMap() HeaderMap { return HeaderMap{} }

func (h HeaderMap) set(name, value string) { h[strings.ToLower(name)] = value }

// PollStatus is the terminal/non-terminal classification of an async poll.
// It is an alias of the shared protocol kernel's Status so every caller
// (ADT activation, abapGit clone/pull, BW activation) speaks the same
// vocabulary regardless of which session drives the poll.
type PollStatus = protocol.Status

const (
	PollCompleted = protocol.Completed
	PollRunning   = protocol.Running
	PollFailed    = protocol.Failed
)

// PollResult is the outcome of PollUntilComplete.
type PollResult = protocol.Result

// Options configures a concrete Session's transport and timing behavior.
type Options struct {
	ConnectTimeout   time.Duration
	ReadTimeout      time.Duration
	PollInterval     time.Duration // default 1s
	DisableTLSVerify bool
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = 30 * time.Second
	}
	if o.PollInterval == 0 {
		o.PollInterval = 1 * time.Second
	}
	return o
}

// Session is the public contract every caller in erpl-adt programs against.
// The concrete implementation is the only component that performs network
// I/O; tests inject a queue-backed fake implementing the same interface.
type Session interface {
	Get(path string, extraHeaders map[string]string) (*HttpResponse, *apperr.Error)
	Post(path string, body []byte, contentType string, extraHeaders map[string]string) (*HttpResponse, *apperr.Error)
	Put(path string, body []byte, contentType string, extraHeaders map[string]string) (*HttpResponse, *apperr.Error)
	Delete(path string, extraHeaders map[string]string) (*HttpResponse, *apperr.Error)
	FetchCsrfToken() (string, *apperr.Error)
	SetStateful(enabled bool)
	IsStateful() bool
	PollUntilComplete(locationURL string, timeout time.Duration) (*PollResult, *apperr.Error)
	SaveSession(path string) *apperr.Error
	LoadSession(path string) *apperr.Error
}

// Concrete is the real network-backed Session implementation.
type Concrete struct {
	mu sync.Mutex

	client    *fasthttp.Client
	baseURL   string
	sapClient types.SapClient
	user      string
	password  string
	opts      Options

	csrfToken   string
	hasCsrf     bool
	stateful    bool
	contextID   string
	cookies     map[string]string
}

// New constructs a concrete session against the given host/port.
func New(host string, port int, useHTTPS bool, user, password string, sapClient types.SapClient, opts Options) *Concrete {
	opts = opts.withDefaults()
	scheme := "http"
	if useHTTPS {
		scheme = "https"
	}
	client := &fasthttp.Client{
		ReadTimeout:         opts.ReadTimeout,
		WriteTimeout:        opts.ReadTimeout,
		MaxConnsPerHost:     16,
		MaxIdleConnDuration: 30 * time.Second,
	}
	return &Concrete{
		client:    client,
		baseURL:   fmt.Sprintf("%s://%s:%d", scheme, host, port),
		sapClient: sapClient,
		user:      user,
		password:  password,
		opts:      opts,
		cookies:   make(map[string]string),
	}
}

var _ Session = (*Concrete)(nil)

// buildCookieHeader renders the accumulated cookie jar sorted by name for
// determinism.
func (c *Concrete) buildCookieHeader() string {
	if len(c.cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(c.cookies))
	for k := range c.cookies {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+"="+c.cookies[n])
	}
	return strings.Join(parts, "; ")
}

// snapshotHeaders builds the standard request headers under the session
// lock, then releases the lock before the network call blocks.
func (c *Concrete) snapshotHeaders(extra map[string]string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	hdrs := map[string]string{
		"sap-client":      c.sapClient.String(),
		"Accept-Language": "en",
	}
	if c.hasCsrf {
		hdrs["x-csrf-token"] = c.csrfToken
	}
	if cookie := c.buildCookieHeader(); cookie != "" {
		hdrs["Cookie"] = cookie
	}
	if c.stateful {
		hdrs["X-sap-adt-sessiontype"] = "stateful"
	}
	for k, v := range extra {
		hdrs[k] = v
	}
	return hdrs
}

func (c *Concrete) captureFromResponse(resp *fasthttp.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp.Header.VisitAllCookie(func(key, value []byte) {
		var cookie fasthttp.Cookie
		if err := cookie.ParseBytes(value); err == nil {
			c.cookies[string(cookie.Key())] = string(cookie.Value())
		}
	})
	if c.stateful {
		if ctx := resp.Header.Peek("sap-contextid"); len(ctx) > 0 {
			c.contextID = string(ctx)
		}
	}
}

func (c *Concrete) doRequest(method, path string, body []byte, contentType string, extra map[string]string) (*HttpResponse, *apperr.Error) {
	hdrs := c.snapshotHeaders(extra)

	logging.L().Infow("http request", "method", method, "path", path)
	logging.L().Debugw("http request headers", "headers", logging.RedactHeaders(hdrs))

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.user+":"+c.password)))
	for k, v := range hdrs {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.SetBody(body)
		if contentType != "" {
			req.Header.SetContentType(contentType)
		}
	}

	timeout := c.opts.ReadTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, apperr.New(operationFor(method), apperr.KindConnection, "HTTP request failed: "+err.Error()).WithEndpoint(path)
	}

	status := resp.StatusCode()
	respBody := string(resp.Body())

	headers := newHeaderMap()
	resp.Header.VisitAll(func(key, value []byte) {
		headers.set(string(key), string(value))
	})

	logging.L().Infow("http response", "status", status)
	if status >= 400 {
		logging.L().Debugw("http response body", "body", logging.TruncateBody(respBody, 2048))
	}

	c.captureFromResponse(resp)

	return &HttpResponse{StatusCode: status, Headers: headers, Body: respBody}, nil
}

func operationFor(method string) string {
	switch method {
	case fasthttp.MethodGet:
		return "Get"
	case fasthttp.MethodPost:
		return "Post"
	case fasthttp.MethodPut:
		return "Put"
	case fasthttp.MethodDelete:
		return "Delete"
	default:
		return method
	}
}

// Get issues an idempotent GET; on a 403 it re-fetches the CSRF token and
// retries exactly once.
func (c *Concrete) Get(path string, extraHeaders map[string]string) (*HttpResponse, *apperr.Error) {
	resp, err := c.doRequest(fasthttp.MethodGet, path, nil, "", extraHeaders)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 403 {
		if _, err := c.FetchCsrfToken(); err != nil {
			return nil, err
		}
		return c.doRequest(fasthttp.MethodGet, path, nil, "", extraHeaders)
	}
	return resp, nil
}

// Post ensures a CSRF token is present, then posts; on 403 it re-fetches and
// retries exactly once.
func (c *Concrete) Post(path string, body []byte, contentType string, extraHeaders map[string]string) (*HttpResponse, *apperr.Error) {
	return c.mutatingRequest(fasthttp.MethodPost, path, body, contentType, extraHeaders)
}

// Put has the same 403-retry contract as Post.
func (c *Concrete) Put(path string, body []byte, contentType string, extraHeaders map[string]string) (*HttpResponse, *apperr.Error) {
	return c.mutatingRequest(fasthttp.MethodPut, path, body, contentType, extraHeaders)
}

// Delete has the same 403-retry contract as Post.
func (c *Concrete) Delete(path string, extraHeaders map[string]string) (*HttpResponse, *apperr.Error) {
	return c.mutatingRequest(fasthttp.MethodDelete, path, nil, "", extraHeaders)
}

func (c *Concrete) mutatingRequest(method, path string, body []byte, contentType string, extra map[string]string) (*HttpResponse, *apperr.Error) {
	c.mu.Lock()
	hasCsrf := c.hasCsrf
	c.mu.Unlock()

	if !hasCsrf {
		if _, err := c.FetchCsrfToken(); err != nil {
			return nil, err
		}
	}

	resp, err := c.doRequest(method, path, body, contentType, extra)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 403 {
		if _, err := c.FetchCsrfToken(); err != nil {
			return nil, err
		}
		return c.doRequest(method, path, body, contentType, extra)
	}
	return resp, nil
}

// DiscoveryPath is the ADT endpoint used for CSRF fetch and capability discovery.
const DiscoveryPath = "/sap/bc/adt/discovery"

// FetchCsrfToken issues a GET to the discovery endpoint with x-csrf-token:
// fetch, capturing the token, cookies, and context id from the response.
func (c *Concrete) FetchCsrfToken() (string, *apperr.Error) {
	resp, err := c.doRequest(fasthttp.MethodGet, DiscoveryPath, nil, "", map[string]string{"x-csrf-token": "fetch"})
	if err != nil {
		return "", err
	}
	if resp.StatusCode != 200 {
		return "", apperr.FromHTTPStatus("FetchCsrfToken", DiscoveryPath, resp.StatusCode, resp.Body).WithHint("expected 200 from discovery")
	}
	token, ok := resp.Headers.Get("x-csrf-token")
	if !ok || token == "" {
		return "", apperr.New("FetchCsrfToken", apperr.KindCsrfToken, "no x-csrf-token header in response").WithEndpoint(DiscoveryPath).WithHTTPStatus(resp.StatusCode)
	}
	c.mu.Lock()
	c.csrfToken = token
	c.hasCsrf = true
	c.mu.Unlock()
	return token, nil
}

// SetStateful toggles stateful-session mode. Disabling clears the captured context id.
func (c *Concrete) SetStateful(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateful = enabled
	if !enabled {
		c.contextID = ""
	}
}

// IsStateful reports the current stateful-session mode.
func (c *Concrete) IsStateful() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateful
}

// PollUntilComplete polls a location URL at Options.PollInterval until it
// returns 200 (Completed), a non-202 status (Failed), or the deadline
// passes while still 202 (Running). The deadline check happens before the
// sleep, never during the remote call.
func (c *Concrete) PollUntilComplete(locationURL string, timeout time.Duration) (*PollResult, *apperr.Error) {
	return protocol.PollUntilComplete(func(path string) (int, string, *apperr.Error) {
		resp, err := c.Get(path, nil)
		if err != nil {
			return 0, "", err
		}
		return resp.StatusCode, resp.Body, nil
	}, locationURL, timeout, c.opts.PollInterval)
}

// persistedSession is the on-disk shape written/read by SaveSession/LoadSession.
type persistedSession struct {
	CsrfToken string            `json:"csrf_token,omitempty"`
	Stateful  bool              `json:"stateful"`
	ContextID string            `json:"context_id,omitempty"`
	Cookies   map[string]string `json:"cookies"`
}
