// Package lockedit implements the ADT object lock/edit kernel: acquiring
// and releasing the exclusive lock ADT requires before a PUT to an object's
// source can succeed, and the scoped guard that makes "forget to unlock"
// structurally hard to write.
package lockedit

import (
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/types"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const lockResultAcceptHeader = "application/*,application/vnd.sap.as+xml;charset=UTF-8;dataname=com.sap.adt.lock.result"

// LockObject acquires the exclusive MODIFY lock on the object at uri and
// returns the lock handle plus any transport request SAP assigned. A 409
// response means another session already holds the lock.
func LockObject(s session.Session, uri types.ObjectUri) (*xmlcodec.LockResult, *apperr.Error) {
	lockURL := uri.String() + "?_action=LOCK&accessMode=MODIFY"

	resp, err := s.Post(lockURL, nil, "application/xml", map[string]string{"Accept": lockResultAcceptHeader})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == 409 {
		return nil, apperr.New("LockObject", apperr.KindLockConflict, "object is locked by another user").
			WithEndpoint(uri.String()).WithHTTPStatus(409)
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("LockObject", uri.String(), resp.StatusCode, resp.Body)
	}

	return xmlcodec.ParseLockResponse(resp.Body, "LockObject", uri.String())
}

// UnlockObject releases a previously acquired lock.
func UnlockObject(s session.Session, uri types.ObjectUri, handle types.LockHandle) *apperr.Error {
	unlockURL := uri.String() + "?_action=UNLOCK&lockHandle=" + handle.String()

	resp, err := s.Post(unlockURL, nil, "application/xml", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 && resp.StatusCode != 204 {
		return apperr.FromHTTPStatus("UnlockObject", uri.String(), resp.StatusCode, resp.Body)
	}
	return nil
}

// ObjectUriFromSourceUri strips a "/source/main" (or other "/source/..."}
// suffix from an object's source endpoint, yielding the plain object URI
// that LockObject/UnlockObject operate on.
func ObjectUriFromSourceUri(sourceUri string) string {
	if i := strings.Index(sourceUri, "/source/"); i >= 0 {
		return sourceUri[:i]
	}
	return sourceUri
}

// LockGuard scopes a lock to a block of code: Acquire locks and puts the
// session into stateful mode; Release unlocks and restores stateless mode.
// Callers MUST `defer guard.Release()` immediately after a successful
// Acquire — this is the Go substitute for the original's RAII destructor.
type LockGuard struct {
	s        session.Session
	uri      types.ObjectUri
	result   *xmlcodec.LockResult
	released bool
}

// Acquire puts the session into stateful mode and locks uri, returning a
// guard whose Release call unlocks and restores stateless mode. On failure
// the session is returned to stateless mode before the error is reported.
func Acquire(s session.Session, uri types.ObjectUri) (*LockGuard, *apperr.Error) {
	s.SetStateful(true)

	result, err := LockObject(s, uri)
	if err != nil {
		s.SetStateful(false)
		return nil, err
	}

	return &LockGuard{s: s, uri: uri, result: result}, nil
}

// Result returns the lock result this guard is holding.
func (g *LockGuard) Result() *xmlcodec.LockResult { return g.result }

// Release unlocks the object and restores stateless session mode. It is
// idempotent: calling Release more than once (e.g. an explicit call
// followed by a deferred one) only unlocks once. Errors from the unlock
// call are returned, not swallowed — callers that only want best-effort
// cleanup on a deferred call should log rather than propagate them.
func (g *LockGuard) Release() *apperr.Error {
	if g.released {
		return nil
	}
	g.released = true
	defer g.s.SetStateful(false)
	return UnlockObject(g.s, g.uri, g.result.Handle)
}
