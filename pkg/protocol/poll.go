// Package protocol implements the asynchronous operation contract shared by
// every long-running ADT and BW call: a mutating request returns 202
// Accepted with a Location header, and the caller polls that location until
// it returns 200 (done), keeps returning 202 (still running), or returns
// anything else (failed). Repository clone, repository pull, ADT
// activation, and BW activation all reduce to this one helper; callers
// supply only the GET they'd otherwise perform themselves.
package protocol

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
)

// Status is the terminal/non-terminal classification of one poll attempt.
type Status string

const (
	Completed Status = "completed"
	Running   Status = "running"
	Failed    Status = "failed"
)

// Result is the outcome of PollUntilComplete.
type Result struct {
	Status    Status
	Body      string
	ElapsedMs int64
}

// Getter performs a single GET against path, returning the raw HTTP status
// code and body. Callers adapt their session's Get method to this shape.
type Getter func(path string) (statusCode int, body string, err *apperr.Error)

// PollUntilComplete repeatedly invokes get against locationURL until it
// returns 200 (Completed), or until timeout elapses while it keeps
// returning 202 (Running is returned at that point, not an error — the
// caller decides whether a still-running operation is acceptable). Any
// other status is reported as Failed immediately, with no retry. The
// deadline is checked before each sleep, never mid-request, so a slow
// backend response is never counted against the poll budget twice.
func PollUntilComplete(get Getter, locationURL string, timeout, interval time.Duration) (*Result, *apperr.Error) {
	if interval <= 0 {
		interval = time.Second
	}

	// A rate limiter paces the GETs at one per interval instead of a bare
	// sleep, so concurrent pollers (an MCP server driving several async
	// operations) cannot burst the backend if they ever share a limiter.
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	limiter.Allow() // the initial GET spends the first token

	start := time.Now()
	deadline := start.Add(timeout)

	for {
		statusCode, body, err := get(locationURL)
		if err != nil {
			return nil, err
		}

		elapsed := time.Since(start).Milliseconds()
		switch {
		case statusCode == 200:
			return &Result{Status: Completed, Body: body, ElapsedMs: elapsed}, nil
		case statusCode == 202:
			if !time.Now().Before(deadline) {
				return &Result{Status: Running, Body: body, ElapsedMs: elapsed}, nil
			}
			if werr := limiter.Wait(context.Background()); werr != nil {
				return nil, apperr.New("Poll", apperr.KindInternal, "poll pacing interrupted: "+werr.Error()).WithEndpoint(locationURL)
			}
			continue
		default:
			return &Result{Status: Failed, Body: body, ElapsedMs: elapsed}, nil
		}
	}
}
