package bw

import (
	"strconv"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const locksPath = "/sap/bw/modeling/utils/locks"

// LockEntry is one BW object lock reported by the lock-monitoring endpoint.
type LockEntry struct {
	Client     string
	User       string
	Mode       string // "E" (exclusive), etc.
	TableName  string // e.g. "RSBWOBJ_ENQUEUE"
	TableDesc  string
	Object     string
	Arg        string // base64-encoded
	Owner1     string // base64-encoded
	Owner2     string // base64-encoded
	Timestamp  string // YYYYMMDDHHMMSS
	UpdCount   int
	DiaCount   int
}

// ListLocksOptions parameterizes ListLocks.
type ListLocksOptions struct {
	User       string
	Search     string
	MaxResults int
}

// DeleteLockOptions identifies a single stuck lock to remove.
type DeleteLockOptions struct {
	User      string
	TableName string
	Arg       string
	Scope     string
	LockMode  string
	Owner1    string
	Owner2    string
}

func parseLocksResponse(body string) ([]LockEntry, *apperr.Error) {
	root, err := xmlcodec.ParseDocument(body)
	if err != nil {
		return nil, newGraphError("BwListLocks", "failed to parse locks response: "+err.Error())
	}

	var entries []LockEntry
	for _, l := range root.Children("lock") {
		e := LockEntry{
			Client:    l.ChildText("client"),
			User:      l.ChildText("user"),
			Mode:      l.ChildText("mode"),
			TableName: l.ChildText("tableName"),
			TableDesc: l.ChildText("tableDesc"),
			Object:    l.ChildText("object"),
			Arg:       l.ChildText("arg"),
			Owner1:    l.ChildText("owner1"),
			Owner2:    l.ChildText("owner2"),
			Timestamp: l.ChildText("timestamp"),
		}
		e.UpdCount, _ = strconv.Atoi(l.ChildText("updCount"))
		e.DiaCount, _ = strconv.Atoi(l.ChildText("diaCount"))
		entries = append(entries, e)
	}
	return entries, nil
}

// ListLocks lists BW object locks from the lock-monitoring endpoint,
// optionally filtered by user or a search pattern.
func ListLocks(s session.Session, opts ListLocksOptions) ([]LockEntry, *apperr.Error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 100
	}

	var params []string
	if opts.User != "" {
		params = append(params, "user="+opts.User)
	}
	if opts.Search != "" {
		params = append(params, "search="+opts.Search)
	}
	params = append(params, "maxResults="+strconv.Itoa(maxResults))

	u := locksPath + "?" + strings.Join(params, "&")
	resp, err := s.Get(u, map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("BwListLocks", u, resp.StatusCode, resp.Body)
	}
	return parseLocksResponse(resp.Body)
}

// DeleteLock removes a single stuck BW lock, identified by its enqueue
// table/argument/owner fields as reported by ListLocks. This is an admin
// operation with no dry-run: callers should confirm the lock entry with
// ListLocks immediately beforehand.
func DeleteLock(s session.Session, opts DeleteLockOptions) *apperr.Error {
	u := locksPath + "?user=" + opts.User
	headers := map[string]string{
		"BW_OBJNAME": opts.TableName,
		"BW_ARGUMENT": opts.Arg,
		"BW_SCOPE":    opts.Scope,
		"BW_TYPE":     opts.LockMode,
		"BW_OWNER1":   opts.Owner1,
		"BW_OWNER2":   opts.Owner2,
	}
	resp, err := s.Delete(u, headers)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 && resp.StatusCode != 204 {
		return apperr.FromHTTPStatus("BwDeleteLock", u, resp.StatusCode, resp.Body)
	}
	return nil
}
