package xmlcodec

import (
	"testing"

	"github.com/erpl-adt/erpl-adt/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDiscoveryResponseDetectsCapabilities(t *testing.T) {
	xmlText := `<?xml version="1.0"?>
<app:service xmlns:app="http://www.w3.org/2007/app" xmlns:atom="http://www.w3.org/2005/Atom" xmlns:adtcomp="http://www.sap.com/adt/compatibility">
  <app:workspace>
    <app:collection href="/sap/bc/adt/abapgit/repos">
      <atom:title>abapGit Repositories</atom:title>
    </app:collection>
    <app:collection href="/sap/bc/adt/packages/validation">
      <atom:title>Packages</atom:title>
      <adtcomp:templateLinks>
        <adtcomp:templateLink type="application/vnd.sap.adt.packages.v1+xml"/>
      </adtcomp:templateLinks>
    </app:collection>
    <app:collection href="/sap/bc/adt/activation">
      <atom:title>Activation</atom:title>
    </app:collection>
  </app:workspace>
</app:service>`

	result, err := ParseDiscoveryResponse(xmlText)
	require.Nil(t, err)
	assert.True(t, result.HasAbapGitSupport)
	assert.True(t, result.HasPackagesSupport)
	assert.True(t, result.HasActivationSupport)
	require.Len(t, result.Services, 3)
	assert.Equal(t, "Packages", result.Services[1].Title)
	assert.Equal(t, "application/vnd.sap.adt.packages.v1+xml", result.Services[1].Type)
}

func TestParseRepoListResponse(t *testing.T) {
	xmlText := `<?xml version="1.0"?>
<abapgitrepo:repositories xmlns:abapgitrepo="http://www.sap.com/adt/abapgit/repositories">
  <abapgitrepo:repository>
    <abapgitrepo:key>REPO1</abapgitrepo:key>
    <abapgitrepo:package>ZMY_PKG</abapgitrepo:package>
    <abapgitrepo:url>https://github.com/example/repo.git</abapgitrepo:url>
    <abapgitrepo:branchName>refs/heads/main</abapgitrepo:branchName>
    <abapgitrepo:status>A</abapgitrepo:status>
    <abapgitrepo:statusText>Active</abapgitrepo:statusText>
  </abapgitrepo:repository>
  <abapgitrepo:repository>
    <abapgitrepo:key>REPO2</abapgitrepo:key>
    <abapgitrepo:status>E</abapgitrepo:status>
    <abapgitrepo:statusText>Boom</abapgitrepo:statusText>
  </abapgitrepo:repository>
</abapgitrepo:repositories>`

	repos, err := ParseRepoListResponse(xmlText)
	require.Nil(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, RepoActive, repos[0].Status)
	assert.Equal(t, "ZMY_PKG", repos[0].Package)
	assert.Equal(t, RepoError, repos[1].Status)
}

func TestParseActivationResponseCountsErrorsAndAborts(t *testing.T) {
	xmlText := `<?xml version="1.0"?>
<chkl:messages xmlns:chkl="http://www.sap.com/adt/checkrun">
  <msg type="W">
    <shortText><txt>just a warning</txt></shortText>
  </msg>
  <msg type="E">
    <shortText><txt>syntax error in ZCL_FOO</txt></shortText>
  </msg>
  <msg type="A">
    <shortText><txt>aborted</txt></shortText>
  </msg>
</chkl:messages>`

	result, err := ParseActivationResponse(xmlText)
	require.Nil(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Activated)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, []string{"just a warning", "syntax error in ZCL_FOO", "aborted"}, result.ErrorMessages)
}

func TestParseActivationResponseCountsRemainingInactiveObjects(t *testing.T) {
	xmlText := `<?xml version="1.0"?>
<chkl:messages xmlns:chkl="http://www.sap.com/adt/checkrun">
  <msg type="S"><shortText><txt>ok</txt></shortText></msg>
  <ioc:inactiveObjects xmlns:ioc="http://www.sap.com/adt/core/inactiveObjects">
    <ioc:entry/>
    <ioc:entry/>
  </ioc:inactiveObjects>
</chkl:messages>`

	result, err := ParseActivationResponse(xmlText)
	require.Nil(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Activated)
	assert.Equal(t, 2, result.Failed)
}

func TestParseInactiveObjectsResponse(t *testing.T) {
	xmlText := `<?xml version="1.0"?>
<ioc:inactiveObjects xmlns:ioc="http://www.sap.com/adt/core/inactiveObjects">
  <ioc:entry>
    <ioc:object>
      <ioc:ref adtcore:uri="/sap/bc/adt/oo/classes/zcl_foo" adtcore:type="CLAS/OC" adtcore:name="ZCL_FOO" xmlns:adtcore="http://www.sap.com/adt/core"/>
    </ioc:object>
  </ioc:entry>
</ioc:inactiveObjects>`

	objects, err := ParseInactiveObjectsResponse(xmlText)
	require.Nil(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "ZCL_FOO", objects[0].Name)
	assert.Equal(t, "CLAS/OC", objects[0].Type)
	assert.Equal(t, "/sap/bc/adt/oo/classes/zcl_foo", objects[0].Uri)
}

func TestParsePollResponseRunning(t *testing.T) {
	xmlText := `<adtcore:objectStatus xmlns:adtcore="http://www.sap.com/adt/core" adtcore:status="running">
  <adtcore:description>still running</adtcore:description>
</adtcore:objectStatus>`

	info, err := ParsePollResponse(xmlText)
	require.Nil(t, err)
	assert.Equal(t, PollRunning, info.State)
	assert.Equal(t, "still running", info.Message)
}

func TestParsePollResponseFailedAppendsProgressText(t *testing.T) {
	xmlText := `<adtcore:objectStatus xmlns:adtcore="http://www.sap.com/adt/core" adtcore:status="failed">
  <adtcore:description>clone failed</adtcore:description>
  <adtcore:progress adtcore:text="network timeout"/>
</adtcore:objectStatus>`

	info, err := ParsePollResponse(xmlText)
	require.Nil(t, err)
	assert.Equal(t, PollFailed, info.State)
	assert.Equal(t, "clone failed: network timeout", info.Message)
}

func TestParseLockResponse(t *testing.T) {
	xmlText := `<?xml version="1.0"?>
<asx:abap xmlns:asx="http://www.sap.com/abapxml">
  <asx:values>
    <DATA>
      <LOCK_HANDLE>abc123handle</LOCK_HANDLE>
      <CORRNR>NPLK900123</CORRNR>
      <CORRUSER>DEVELOPER</CORRUSER>
      <CORRTEXT>My transport</CORRTEXT>
    </DATA>
  </asx:values>
</asx:abap>`

	result, err := ParseLockResponse(xmlText, "LockObject", "/sap/bc/adt/oo/classes/zcl_foo")
	require.Nil(t, err)
	assert.Equal(t, "abc123handle", result.Handle.String())
	assert.Equal(t, "NPLK900123", result.CorrNr)
	assert.Equal(t, "DEVELOPER", result.CorrUser)
	assert.Equal(t, "My transport", result.CorrText)
}

func TestParseLockResponseMissingHandleIsLockConflict(t *testing.T) {
	xmlText := `<asx:abap xmlns:asx="http://www.sap.com/abapxml"><asx:values><DATA></DATA></asx:values></asx:abap>`
	_, err := ParseLockResponse(xmlText, "LockObject", "/sap/bc/adt/oo/classes/zcl_foo")
	require.NotNil(t, err)
	assert.Equal(t, "lock_conflict", string(err.Kind))
}

func TestBuildPackageCreateXmlEscapesDescription(t *testing.T) {
	pkg := types.MustPackageName("ZMY_PKG")
	xmlText := BuildPackageCreateXml(pkg, `a "quoted" & <tagged> description`, "")
	assert.Contains(t, xmlText, `adtcore:name="ZMY_PKG"`)
	assert.Contains(t, xmlText, "&quot;quoted&quot;")
	assert.Contains(t, xmlText, "&amp;")
	assert.Contains(t, xmlText, `pak:name="LOCAL"`)
}

func TestBuildRepoCloneXmlRoundTripsThroughParser(t *testing.T) {
	url := types.MustRepoUrl("https://github.com/example/repo.git")
	branch := types.DefaultBranch()
	pkg := types.MustPackageName("ZMY_PKG")

	xmlText := BuildRepoCloneXml(url, branch, pkg)
	assert.Contains(t, xmlText, "<abapgitrepo:url>https://github.com/example/repo.git</abapgitrepo:url>")
	assert.Contains(t, xmlText, "<abapgitrepo:branchName>refs/heads/main</abapgitrepo:branchName>")
}

func TestBuildActivationXmlListsObjectReferences(t *testing.T) {
	xmlText := BuildActivationXml([]InactiveObject{
		{Type: "CLAS/OC", Name: "ZCL_FOO", Uri: "/sap/bc/adt/oo/classes/zcl_foo"},
		{Type: "INTF/OI", Name: "ZIF_BAR", Uri: "/sap/bc/adt/oo/interfaces/zif_bar"},
	})
	assert.Contains(t, xmlText, `adtcore:name="ZCL_FOO"`)
	assert.Contains(t, xmlText, `adtcore:name="ZIF_BAR"`)
}
