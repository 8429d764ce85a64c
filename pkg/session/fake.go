package session

import (
	"time"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
)

// FakeResponse is one scripted response in a Fake's queue.
type FakeResponse struct {
	Status int
	Body   string
	Headers map[string]string
	Err    *apperr.Error
}

// FakeCall records one call made against a Fake, for assertions in tests.
type FakeCall struct {
	Method string // GET, POST, PUT, DELETE, FETCH_CSRF
	Path   string
	Body   string
}

// Fake is a queue-backed Session used by tests across the repository
// (adt, bw, lock/edit, deploy, cli, mcpserver) instead of a mocking
// framework: scripted responses pop in order, calls are recorded for
// assertions.
type Fake struct {
	Responses []FakeResponse
	Calls     []FakeCall

	stateful  bool
	pollCount int
}

var _ Session = (*Fake)(nil)

func (f *Fake) next() (*FakeResponse, *apperr.Error) {
	if len(f.Responses) == 0 {
		return nil, apperr.New("Fake", apperr.KindInternal, "no more scripted responses")
	}
	r := f.Responses[0]
	f.Responses = f.Responses[1:]
	if r.Err != nil {
		return nil, r.Err
	}
	return &r, nil
}

func (f *Fake) record(method, path, body string) {
	f.Calls = append(f.Calls, FakeCall{Method: method, Path: path, Body: body})
}

func (f *Fake) respond(r *FakeResponse) *HttpResponse {
	h := newHeaderMap()
	for k, v := range r.Headers {
		h.set(k, v)
	}
	return &HttpResponse{StatusCode: r.Status, Headers: h, Body: r.Body}
}

func (f *Fake) Get(path string, _ map[string]string) (*HttpResponse, *apperr.Error) {
	f.record("GET", path, "")
	r, err := f.next()
	if err != nil {
		return nil, err
	}
	return f.respond(r), nil
}

func (f *Fake) Post(path string, body []byte, _ string, _ map[string]string) (*HttpResponse, *apperr.Error) {
	f.record("POST", path, string(body))
	r, err := f.next()
	if err != nil {
		return nil, err
	}
	return f.respond(r), nil
}

func (f *Fake) Put(path string, body []byte, _ string, _ map[string]string) (*HttpResponse, *apperr.Error) {
	f.record("PUT", path, string(body))
	r, err := f.next()
	if err != nil {
		return nil, err
	}
	return f.respond(r), nil
}

func (f *Fake) Delete(path string, _ map[string]string) (*HttpResponse, *apperr.Error) {
	f.record("DELETE", path, "")
	r, err := f.next()
	if err != nil {
		return nil, err
	}
	return f.respond(r), nil
}

func (f *Fake) FetchCsrfToken() (string, *apperr.Error) {
	f.record("FETCH_CSRF", DiscoveryPath, "")
	r, err := f.next()
	if err != nil {
		return "", err
	}
	return r.Body, nil
}

func (f *Fake) SetStateful(enabled bool) { f.stateful = enabled }
func (f *Fake) IsStateful() bool         { return f.stateful }

func (f *Fake) PollUntilComplete(locationURL string, timeout time.Duration) (*PollResult, *apperr.Error) {
	start := time.Now()
	deadline := start.Add(timeout)
	for {
		resp, err := f.Get(locationURL, nil)
		if err != nil {
			return nil, err
		}
		f.pollCount++
		switch {
		case resp.StatusCode == 200:
			return &PollResult{Status: PollCompleted, Body: resp.Body, ElapsedMs: time.Since(start).Milliseconds()}, nil
		case resp.StatusCode == 202:
			if !time.Now().Before(deadline) {
				return &PollResult{Status: PollRunning, Body: resp.Body, ElapsedMs: time.Since(start).Milliseconds()}, nil
			}
			if len(f.Responses) == 0 {
				// No more scripted polls: surface Running instead of looping forever.
				return &PollResult{Status: PollRunning, Body: resp.Body, ElapsedMs: time.Since(start).Milliseconds()}, nil
			}
			continue
		default:
			return &PollResult{Status: PollFailed, Body: resp.Body, ElapsedMs: time.Since(start).Milliseconds()}, nil
		}
	}
}

func (f *Fake) SaveSession(path string) *apperr.Error { return nil }
func (f *Fake) LoadSession(path string) *apperr.Error { return nil }
