package deploy

import (
	"testing"

	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSingleRepoConfig() AppConfig {
	return AppConfig{
		Connection: ConnectionConfig{
			Host: "sap.example.com", Port: 50000, User: "user", Password: "pass",
			Client: types.MustSapClient("100"),
		},
		TimeoutSeconds: 600,
		Repos: []RepoConfig{{
			Name:     "test-repo",
			Url:      types.MustRepoUrl("https://github.com/org/repo.git"),
			Branch:   nil,
			Package:  types.MustPackageName("ZTEST"),
			Activate: true,
		}},
	}
}

var discoverySuccess = session.FakeResponse{Status: 200, Body: discoveryXml}

var packageExistsSuccess = []session.FakeResponse{
	{Status: 200, Body: ""},
	{Status: 200, Body: `<pak:package adtcore:name="ZTEST" adtcore:description="existing"/>`},
}

func repoListLinkedAt(url string) string {
	return `<?xml version="1.0"?>
<abapgitrepo:repositories xmlns:abapgitrepo="http://www.sap.com/adt/abapgit/repositories">
  <abapgitrepo:repository>
    <abapgitrepo:key>KEY1</abapgitrepo:key>
    <abapgitrepo:package>ZTEST</abapgitrepo:package>
    <abapgitrepo:url>` + url + `</abapgitrepo:url>
    <abapgitrepo:branchName>refs/heads/main</abapgitrepo:branchName>
    <abapgitrepo:status>A</abapgitrepo:status>
    <abapgitrepo:statusText>Linked</abapgitrepo:statusText>
  </abapgitrepo:repository>
</abapgitrepo:repositories>`
}

var pullSuccessSequence = []session.FakeResponse{
	{Status: 202, Headers: map[string]string{"Location": "/poll/pull/1"}},
	{Status: 200, Body: ""},
}

var inactiveObjectsXml = `<?xml version="1.0"?>
<ioc:inactiveObjects xmlns:ioc="http://www.sap.com/adt/core/inactiveObjects">
  <ioc:entry>
    <ioc:object>
      <ioc:ref adtcore:uri="/sap/bc/adt/oo/classes/ZCL_TEST" adtcore:type="CLAS/OC" adtcore:name="ZCL_TEST" xmlns:adtcore="http://www.sap.com/adt/core"/>
    </ioc:object>
  </ioc:entry>
</ioc:inactiveObjects>`

var emptyInactiveObjectsXml = `<?xml version="1.0"?>
<ioc:inactiveObjects xmlns:ioc="http://www.sap.com/adt/core/inactiveObjects"></ioc:inactiveObjects>`

var activateSuccessXml = `<?xml version="1.0"?>
<chkl:messages xmlns:chkl="http://www.sap.com/adt/checkrun">
  <msg type="S"><shortText><txt>ok</txt></shortText></msg>
</chkl:messages>`

func TestExecuteDiscoverSuccess(t *testing.T) {
	fake := &session.Fake{Responses: []session.FakeResponse{discoverySuccess}}
	wf := NewWorkflow(fake, makeSingleRepoConfig())

	result := wf.ExecuteDiscover()
	assert.True(t, result.Success)
	assert.Equal(t, Completed, result.Discovery.Outcome)
	assert.Equal(t, "Discovery succeeded", result.Summary)
}

func TestExecuteDiscoverFailsWithoutAbapGitSupport(t *testing.T) {
	noAbapGitXml := `<?xml version="1.0"?>
<app:service xmlns:app="http://www.w3.org/2007/app" xmlns:atom="http://www.w3.org/2005/Atom">
  <app:workspace></app:workspace>
</app:service>`
	fake := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: noAbapGitXml}}}
	wf := NewWorkflow(fake, makeSingleRepoConfig())

	result := wf.ExecuteDiscover()
	assert.False(t, result.Success)
	assert.Equal(t, Failed, result.Discovery.Outcome)
}

func TestExecuteDeployFullHappyPath(t *testing.T) {
	config := makeSingleRepoConfig()
	url := config.Repos[0].Url.String()

	var responses []session.FakeResponse
	responses = append(responses, discoverySuccess)
	responses = append(responses, packageExistsSuccess...)
	responses = append(responses, session.FakeResponse{Status: 200, Body: repoListLinkedAt(url)})
	responses = append(responses, pullSuccessSequence...)
	responses = append(responses, session.FakeResponse{Status: 200, Body: inactiveObjectsXml})
	responses = append(responses, session.FakeResponse{Status: 200, Body: activateSuccessXml})

	fake := &session.Fake{Responses: responses}
	wf := NewWorkflow(fake, config)

	result := wf.ExecuteDeploy()
	require.True(t, result.Success)
	assert.Equal(t, "1 succeeded, 0 failed", result.Summary)
	require.Len(t, result.RepoResults, 1)

	repoResult := result.RepoResults[0]
	assert.True(t, repoResult.Success)
	require.Len(t, repoResult.Steps, 4)
	assert.Equal(t, "package", repoResult.Steps[0].Name)
	assert.Equal(t, Completed, repoResult.Steps[0].Outcome)
	assert.Equal(t, "clone", repoResult.Steps[1].Name)
	assert.Equal(t, Skipped, repoResult.Steps[1].Outcome)
	assert.Contains(t, repoResult.Steps[1].Message, "key:KEY1")
	assert.Equal(t, "pull", repoResult.Steps[2].Name)
	assert.Equal(t, Completed, repoResult.Steps[2].Outcome)
	assert.Equal(t, "activate", repoResult.Steps[3].Name)
	assert.Equal(t, Completed, repoResult.Steps[3].Outcome)
}

func TestExecuteDeploySkipsActivateWhenDisabled(t *testing.T) {
	config := makeSingleRepoConfig()
	config.Repos[0].Activate = false
	url := config.Repos[0].Url.String()

	var responses []session.FakeResponse
	responses = append(responses, discoverySuccess)
	responses = append(responses, packageExistsSuccess...)
	responses = append(responses, session.FakeResponse{Status: 200, Body: repoListLinkedAt(url)})
	responses = append(responses, pullSuccessSequence...)

	fake := &session.Fake{Responses: responses}
	wf := NewWorkflow(fake, config)

	result := wf.ExecuteDeploy()
	require.True(t, result.Success)
	repoResult := result.RepoResults[0]
	lastStep := repoResult.Steps[len(repoResult.Steps)-1]
	assert.Equal(t, "activate", lastStep.Name)
	assert.Equal(t, Skipped, lastStep.Outcome)
}

func TestExecuteDeployActivateSkippedWhenNoInactiveObjects(t *testing.T) {
	config := makeSingleRepoConfig()
	url := config.Repos[0].Url.String()

	var responses []session.FakeResponse
	responses = append(responses, discoverySuccess)
	responses = append(responses, packageExistsSuccess...)
	responses = append(responses, session.FakeResponse{Status: 200, Body: repoListLinkedAt(url)})
	responses = append(responses, pullSuccessSequence...)
	responses = append(responses, session.FakeResponse{Status: 200, Body: emptyInactiveObjectsXml})

	fake := &session.Fake{Responses: responses}
	wf := NewWorkflow(fake, config)

	result := wf.ExecuteDeploy()
	require.True(t, result.Success)
	lastStep := result.RepoResults[0].Steps[len(result.RepoResults[0].Steps)-1]
	assert.Equal(t, "activate", lastStep.Name)
	assert.Equal(t, Skipped, lastStep.Outcome)
	assert.Equal(t, "no inactive objects", lastStep.Message)
}

func TestExecuteDeployStopsRepoOnPackageFailure(t *testing.T) {
	config := makeSingleRepoConfig()

	fake := &session.Fake{Responses: []session.FakeResponse{
		discoverySuccess,
		{Status: 500, Body: "internal error"},
	}}
	wf := NewWorkflow(fake, config)

	result := wf.ExecuteDeploy()
	assert.False(t, result.Success)
	assert.Equal(t, "0 succeeded, 1 failed", result.Summary)
	repoResult := result.RepoResults[0]
	assert.False(t, repoResult.Success)
	require.Len(t, repoResult.Steps, 1)
	assert.Equal(t, Failed, repoResult.Steps[0].Outcome)
}

func TestExecuteDeployFailsWholeRunOnDiscoveryFailure(t *testing.T) {
	fake := &session.Fake{Responses: []session.FakeResponse{{Status: 500, Body: "down"}}}
	wf := NewWorkflow(fake, makeSingleRepoConfig())

	result := wf.ExecuteDeploy()
	assert.False(t, result.Success)
	assert.Empty(t, result.RepoResults)
	assert.Contains(t, result.Summary, "Discovery failed")
}

func TestExecuteDeployContinuesPastFailedRepoToReportEachIndependently(t *testing.T) {
	config := makeSingleRepoConfig()
	goodUrl := "https://github.com/org/good.git"
	config.Repos = []RepoConfig{
		{Name: "bad", Url: types.MustRepoUrl("https://github.com/org/bad.git"), Package: types.MustPackageName("ZBAD"), Activate: true},
		{Name: "good", Url: types.MustRepoUrl(goodUrl), Package: types.MustPackageName("ZGOOD"), Activate: false},
	}

	var responses []session.FakeResponse
	responses = append(responses, discoverySuccess)
	// bad repo: package step fails outright.
	responses = append(responses, session.FakeResponse{Status: 500, Body: "boom"})
	// good repo: full happy path minus activation (disabled).
	responses = append(responses, session.FakeResponse{Status: 404, Body: ""})
	responses = append(responses, session.FakeResponse{Status: 201, Body: ""})
	responses = append(responses, session.FakeResponse{Status: 200, Body: `<pak:package adtcore:name="ZGOOD"/>`})
	responses = append(responses, session.FakeResponse{Status: 200, Body: repoListLinkedAt(goodUrl)})
	responses = append(responses, pullSuccessSequence...)

	fake := &session.Fake{Responses: responses}
	wf := NewWorkflow(fake, config)

	result := wf.ExecuteDeploy()
	assert.False(t, result.Success)
	assert.Equal(t, "1 succeeded, 1 failed", result.Summary)
	require.Len(t, result.RepoResults, 2)
	assert.False(t, result.RepoResults[0].Success)
	assert.True(t, result.RepoResults[1].Success)
}

func TestExecuteStatusListsLinkedRepos(t *testing.T) {
	fake := &session.Fake{Responses: []session.FakeResponse{
		{Status: 200, Body: repoListLinkedAt("https://github.com/org/repo.git")},
	}}
	wf := NewWorkflow(fake, makeSingleRepoConfig())

	result := wf.ExecuteStatus()
	assert.True(t, result.Success)
	require.Len(t, result.RepoResults, 1)
	assert.Equal(t, "KEY1", result.RepoResults[0].RepoName)
	assert.Contains(t, result.RepoResults[0].Message, "https://github.com/org/repo.git")
	assert.Equal(t, "1 repositories linked", result.Summary)
}

func TestExecutePullPullsLinkedRepo(t *testing.T) {
	responses := []session.FakeResponse{
		{Status: 200, Body: repoListLinkedAt("https://github.com/org/repo.git")},
	}
	responses = append(responses, pullSuccessSequence...)
	fake := &session.Fake{Responses: responses}
	wf := NewWorkflow(fake, makeSingleRepoConfig())

	result := wf.ExecutePull()
	assert.True(t, result.Success)
	require.Len(t, result.RepoResults, 1)
	assert.Equal(t, "1 succeeded, 0 failed", result.Summary)
}

func TestExecutePullFailsForUnlinkedRepo(t *testing.T) {
	emptyRepoList := `<?xml version="1.0"?>
<abapgitrepo:repositories xmlns:abapgitrepo="http://www.sap.com/adt/abapgit/repositories"></abapgitrepo:repositories>`
	fake := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: emptyRepoList}}}
	wf := NewWorkflow(fake, makeSingleRepoConfig())

	result := wf.ExecutePull()
	assert.False(t, result.Success)
	require.Len(t, result.RepoResults, 1)
	assert.Contains(t, result.RepoResults[0].Message, "not linked")
}

func TestExecuteActivateAloneSkipsWhenNothingInactive(t *testing.T) {
	fake := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: emptyInactiveObjectsXml}}}
	wf := NewWorkflow(fake, makeSingleRepoConfig())

	result := wf.ExecuteActivate()
	assert.True(t, result.Success)
	assert.Contains(t, result.Summary, "no inactive objects")
}
