package deploy

import (
	"testing"
	"time"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/types"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const discoveryXml = `<?xml version="1.0"?>
<app:service xmlns:app="http://www.w3.org/2007/app" xmlns:atom="http://www.w3.org/2005/Atom">
  <app:workspace>
    <app:collection href="/sap/bc/adt/abapgit/repos"><atom:title>abapGit</atom:title></app:collection>
    <app:collection href="/sap/bc/adt/packages/validation"><atom:title>Packages</atom:title></app:collection>
    <app:collection href="/sap/bc/adt/activation"><atom:title>Activation</atom:title></app:collection>
  </app:workspace>
</app:service>`

const repoListXml = `<?xml version="1.0"?>
<abapgitrepo:repositories xmlns:abapgitrepo="http://www.sap.com/adt/abapgit/repositories">
  <abapgitrepo:repository>
    <abapgitrepo:key>REPO1</abapgitrepo:key>
    <abapgitrepo:package>ZMY_PKG</abapgitrepo:package>
    <abapgitrepo:url>https://github.com/example/repo.git</abapgitrepo:url>
    <abapgitrepo:branchName>refs/heads/main</abapgitrepo:branchName>
    <abapgitrepo:status>A</abapgitrepo:status>
    <abapgitrepo:statusText>Active</abapgitrepo:statusText>
  </abapgitrepo:repository>
</abapgitrepo:repositories>`

const emptyRepoListXml = `<?xml version="1.0"?>
<abapgitrepo:repositories xmlns:abapgitrepo="http://www.sap.com/adt/abapgit/repositories"></abapgitrepo:repositories>`

func TestDiscoverReportsAbapGitSupport(t *testing.T) {
	fake := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: discoveryXml}}}
	result, err := Discover(fake)
	require.Nil(t, err)
	assert.True(t, HasAbapGitSupport(result))
}

func TestDiscoverNon200IsError(t *testing.T) {
	fake := &session.Fake{Responses: []session.FakeResponse{{Status: 500, Body: "boom"}}}
	_, err := Discover(fake)
	require.NotNil(t, err)
}

func TestEnsurePackageCreatesWhenMissing(t *testing.T) {
	pkg := types.MustPackageName("ZMY_PKG")
	fake := &session.Fake{Responses: []session.FakeResponse{
		{Status: 404, Body: ""},
		{Status: 201, Body: ""},
		{Status: 200, Body: `<pak:package adtcore:name="ZMY_PKG" adtcore:description="d"/>`},
	}}
	info, err := EnsurePackage(fake, pkg, "some repo", "LOCAL")
	require.Nil(t, err)
	assert.Equal(t, "ZMY_PKG", info.Name)
	require.Len(t, fake.Calls, 3)
	assert.Equal(t, "GET", fake.Calls[0].Method)
	assert.Equal(t, "POST", fake.Calls[1].Method)
	assert.Equal(t, "GET", fake.Calls[2].Method)
}

func TestEnsurePackageSkipsCreateWhenPresent(t *testing.T) {
	pkg := types.MustPackageName("ZMY_PKG")
	fake := &session.Fake{Responses: []session.FakeResponse{
		{Status: 200, Body: ""},
		{Status: 200, Body: `<pak:package adtcore:name="ZMY_PKG"/>`},
	}}
	_, err := EnsurePackage(fake, pkg, "repo", "LOCAL")
	require.Nil(t, err)
	require.Len(t, fake.Calls, 2)
}

func TestFindRepoMatchesByUrl(t *testing.T) {
	fake := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: repoListXml}}}
	url := types.MustRepoUrl("https://github.com/example/repo.git")
	repo, err := FindRepo(fake, url)
	require.Nil(t, err)
	require.NotNil(t, repo)
	assert.Equal(t, "REPO1", repo.Key)
}

func TestFindRepoReturnsNilWhenNotLinked(t *testing.T) {
	fake := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: emptyRepoListXml}}}
	url := types.MustRepoUrl("https://github.com/example/other.git")
	repo, err := FindRepo(fake, url)
	require.Nil(t, err)
	assert.Nil(t, repo)
}

func TestCloneRepoSyncSingleRepoFallback(t *testing.T) {
	url := types.MustRepoUrl("https://github.com/example/new.git")
	branch := types.DefaultBranch()
	pkg := types.MustPackageName("ZMY_PKG")

	fake := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: repoListXml}}}
	repo, err := CloneRepo(fake, url, branch, pkg, time.Second)
	require.Nil(t, err)
	assert.Equal(t, "REPO1", repo.Key)
}

func TestCloneRepoAsyncPollsUntilComplete(t *testing.T) {
	url := types.MustRepoUrl("https://github.com/example/repo.git")
	branch := types.DefaultBranch()
	pkg := types.MustPackageName("ZMY_PKG")

	fake := &session.Fake{Responses: []session.FakeResponse{
		{Status: 202, Headers: map[string]string{"Location": "/sap/bc/adt/abapgit/repos/poll1"}},
		{Status: 200, Body: repoListXml},
	}}
	repo, err := CloneRepo(fake, url, branch, pkg, time.Second)
	require.Nil(t, err)
	assert.Equal(t, "REPO1", repo.Key)
}

func TestCloneRepoAsyncMissingLocationIsInternalError(t *testing.T) {
	url := types.MustRepoUrl("https://github.com/example/repo.git")
	branch := types.DefaultBranch()
	pkg := types.MustPackageName("ZMY_PKG")

	fake := &session.Fake{Responses: []session.FakeResponse{{Status: 202}}}
	_, err := CloneRepo(fake, url, branch, pkg, time.Second)
	require.NotNil(t, err)
}

func TestPullRepoSyncCompletes(t *testing.T) {
	key := types.MustRepoKey("REPO1")
	fake := &session.Fake{Responses: []session.FakeResponse{{Status: 200}}}
	err := PullRepo(fake, key, time.Second)
	assert.Nil(t, err)
}

func TestPullRepoAsyncFailurePropagates(t *testing.T) {
	key := types.MustRepoKey("REPO1")
	fake := &session.Fake{Responses: []session.FakeResponse{
		{Status: 202, Headers: map[string]string{"Location": "/poll2"}},
		{Status: 500, Body: "crashed"},
	}}
	err := PullRepo(fake, key, time.Second)
	require.NotNil(t, err)
}

func TestGetInactiveObjectsParsesEntries(t *testing.T) {
	xmlText := `<?xml version="1.0"?>
<ioc:inactiveObjects xmlns:ioc="http://www.sap.com/adt/core/inactiveObjects">
  <ioc:entry>
    <ioc:object>
      <ioc:ref adtcore:uri="/sap/bc/adt/oo/classes/zcl_foo" adtcore:type="CLAS/OC" adtcore:name="ZCL_FOO" xmlns:adtcore="http://www.sap.com/adt/core"/>
    </ioc:object>
  </ioc:entry>
</ioc:inactiveObjects>`
	fake := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: xmlText}}}
	objects, err := GetInactiveObjects(fake)
	require.Nil(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "ZCL_FOO", objects[0].Name)
}

func TestActivateAllSyncSuccess(t *testing.T) {
	activationResponseXml := `<?xml version="1.0"?>
<chkl:messages xmlns:chkl="http://www.sap.com/adt/checkrun">
  <msg type="S"><shortText><txt>ok</txt></shortText></msg>
</chkl:messages>`
	fake := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: activationResponseXml}}}
	result, err := ActivateAll(fake, []xmlcodec.InactiveObject{{Type: "CLAS/OC", Name: "ZCL_FOO", Uri: "/sap/bc/adt/oo/classes/zcl_foo"}}, time.Second)
	require.Nil(t, err)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Activated)
}

func TestActivateAllAsyncTimeoutIsTimeoutKind(t *testing.T) {
	fake := &session.Fake{Responses: []session.FakeResponse{
		{Status: 202, Headers: map[string]string{"Location": "/poll3"}},
		{Status: 202},
	}}
	_, err := ActivateAll(fake, []xmlcodec.InactiveObject{{Type: "CLAS/OC", Name: "ZCL_FOO"}}, 0)
	require.NotNil(t, err)
	assert.Equal(t, apperr.KindTimeout, err.Kind)
}

func TestUnlinkRepoSuccess(t *testing.T) {
	key := types.MustRepoKey("REPO1")
	fake := &session.Fake{Responses: []session.FakeResponse{{Status: 204}}}
	err := UnlinkRepo(fake, key)
	assert.Nil(t, err)
}
