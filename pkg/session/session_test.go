package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeReplaysScriptedResponsesAcrossCsrfRefetch(t *testing.T) {
	f := &Fake{
		Responses: []FakeResponse{
			{Status: 403},
			{Status: 200, Body: "token-value"},
			{Status: 200, Body: "ok-body"},
		},
	}

	resp, err := f.Get("/sap/bc/adt/discovery", nil)
	require.Nil(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	_, cerr := f.FetchCsrfToken()
	require.Nil(t, cerr)

	resp2, err2 := f.Get("/sap/bc/adt/oo/classes/zcl_test", nil)
	require.Nil(t, err2)
	assert.Equal(t, 200, resp2.StatusCode)
	assert.Equal(t, "ok-body", resp2.Body)
}

func TestPollUntilCompleteCompleted(t *testing.T) {
	f := &Fake{
		Responses: []FakeResponse{
			{Status: 202},
			{Status: 200, Body: "done"},
		},
	}
	res, err := f.PollUntilComplete("/sap/bc/adt/activationruns/xyz", time.Second)
	require.Nil(t, err)
	assert.Equal(t, PollCompleted, res.Status)
}

func TestPollUntilCompleteFailed(t *testing.T) {
	f := &Fake{Responses: []FakeResponse{{Status: 500, Body: "boom"}}}
	res, err := f.PollUntilComplete("/loc", 0)
	require.Nil(t, err)
	assert.Equal(t, PollFailed, res.Status)
	assert.Equal(t, "boom", res.Body)
}

func TestSaveLoadSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	c := &Concrete{cookies: map[string]string{"SAP_SESSIONID": "abc123"}}
	c.hasCsrf = true
	c.csrfToken = "tok-1"
	c.stateful = true
	c.contextID = "ctx-1"

	require.Nil(t, c.SaveSession(path))

	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	restored := &Concrete{cookies: map[string]string{}}
	require.Nil(t, restored.LoadSession(path))

	assert.Equal(t, c.csrfToken, restored.csrfToken)
	assert.Equal(t, c.stateful, restored.stateful)
	assert.Equal(t, c.contextID, restored.contextID)
	assert.Equal(t, c.cookies, restored.cookies)
}

func TestBuildCookieHeaderIsSortedByName(t *testing.T) {
	c := &Concrete{cookies: map[string]string{"zeta": "2", "alpha": "1"}}
	assert.Equal(t, "alpha=1; zeta=2", c.buildCookieHeader())
}
