package adt

import (
	"net/url"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/lockedit"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/types"
)

// ReadSource reads an object's source text. version is "active" or
// "inactive".
func ReadSource(s session.Session, sourceUri, version string) (string, *apperr.Error) {
	if version == "" {
		version = "active"
	}
	path := sourceUri + "?version=" + url.QueryEscape(version)
	resp, err := s.Get(path, map[string]string{"Accept": "text/plain"})
	if err != nil {
		return "", err
	}
	if resp.StatusCode == 404 {
		return "", apperr.New("ReadSource", apperr.KindNotFound, "source not found").WithEndpoint(path).WithHTTPStatus(404)
	}
	if resp.StatusCode != 200 {
		return "", apperr.FromHTTPStatus("ReadSource", path, resp.StatusCode, resp.Body)
	}
	return resp.Body, nil
}

// WriteSource writes source text under an already-held lock handle.
func WriteSource(s session.Session, sourceUri, source string, handle types.LockHandle, transport string) *apperr.Error {
	path := sourceUri + "?lockHandle=" + url.QueryEscape(handle.String())
	if transport != "" {
		path += "&corrNr=" + url.QueryEscape(transport)
	}
	resp, err := s.Put(path, []byte(source), "text/plain; charset=utf-8", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 && resp.StatusCode != 204 {
		return apperr.FromHTTPStatus("WriteSource", path, resp.StatusCode, resp.Body)
	}
	return nil
}

// AutoLockWrite performs the full stateful edit dance for a source URI of
// the form .../source/main: derive the object URI, lock, write, unlock.
// The unlock runs even when the write fails, and the session leaves
// stateful mode on every path. Returns the derived object URI.
func AutoLockWrite(s session.Session, sourceUri, source, transport string) (types.ObjectUri, *apperr.Error) {
	if !IsSourceUri(sourceUri) {
		return types.ObjectUri{}, apperr.New("WriteSource", apperr.KindInternal,
			"cannot derive object URI from source URI (expected /source/ segment): "+sourceUri)
	}
	objUri, uerr := types.NewObjectUri(lockedit.ObjectUriFromSourceUri(sourceUri))
	if uerr != nil {
		return types.ObjectUri{}, apperr.New("WriteSource", apperr.KindInternal, "invalid object URI: "+uerr.Error())
	}

	guard, err := lockedit.Acquire(s, objUri)
	if err != nil {
		return types.ObjectUri{}, err
	}
	writeErr := WriteSource(s, sourceUri, source, guard.Result().Handle, transport)
	releaseErr := guard.Release()
	if writeErr != nil {
		return types.ObjectUri{}, writeErr
	}
	if releaseErr != nil {
		return types.ObjectUri{}, releaseErr
	}
	return objUri, nil
}

// AutoLockDelete locks, deletes, and unlocks an object in one stateful
// session. The unlock runs even when the delete fails.
func AutoLockDelete(s session.Session, uri types.ObjectUri, transport string) *apperr.Error {
	guard, err := lockedit.Acquire(s, uri)
	if err != nil {
		return err
	}
	delErr := DeleteObject(s, uri, guard.Result().Handle, transport)
	releaseErr := guard.Release()
	if delErr != nil {
		return delErr
	}
	return releaseErr
}

// IsSourceUri reports whether uri addresses a source artifact rather than
// an object root.
func IsSourceUri(uri string) bool { return strings.Contains(uri, "/source/") }
