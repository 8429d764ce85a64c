package session

import (
	"encoding/json"
	"os"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
)

// SaveSession persists the CSRF token, stateful flag, context id, and
// cookie jar to path with owner-only (0600) permissions.
func (c *Concrete) SaveSession(path string) *apperr.Error {
	c.mu.Lock()
	snap := persistedSession{
		Stateful:  c.stateful,
		ContextID: c.contextID,
		Cookies:   copyCookies(c.cookies),
	}
	if c.hasCsrf {
		snap.CsrfToken = c.csrfToken
	}
	c.mu.Unlock()

	data, jerr := json.MarshalIndent(snap, "", "  ")
	if jerr != nil {
		return apperr.New("SaveSession", apperr.KindInternal, "failed to marshal session: "+jerr.Error()).WithEndpoint(path)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return apperr.New("SaveSession", apperr.KindInternal, "failed to write session file: "+err.Error()).WithEndpoint(path)
	}
	return nil
}

// LoadSession restores CSRF token, stateful flag, context id, and cookie
// jar from path, written previously by SaveSession.
func (c *Concrete) LoadSession(path string) *apperr.Error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.New("LoadSession", apperr.KindInternal, "failed to read session file: "+err.Error()).WithEndpoint(path)
	}
	var snap persistedSession
	if err := json.Unmarshal(data, &snap); err != nil {
		return apperr.New("LoadSession", apperr.KindInternal, "malformed session file: "+err.Error()).WithEndpoint(path)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.CsrfToken != "" {
		c.csrfToken = snap.CsrfToken
		c.hasCsrf = true
	}
	c.stateful = snap.Stateful
	c.contextID = snap.ContextID
	if snap.Cookies != nil {
		c.cookies = copyCookies(snap.Cookies)
	}
	return nil
}

func copyCookies(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
