package adt

import (
	"testing"

	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRunResponseXml = `<?xml version="1.0"?>
<aunit:runResult xmlns:aunit="http://www.sap.com/adt/aunit" xmlns:adtcore="http://www.sap.com/adt/core">
  <program adtcore:name="ZCL_ALPHA">
    <testClasses>
      <testClass adtcore:name="LTC_ALPHA" adtcore:uri="/sap/bc/adt/oo/classes/zcl_alpha" riskLevel="harmless" durationCategory="short">
        <testMethods>
          <testMethod adtcore:name="test_ok" executionTime="12"/>
          <testMethod adtcore:name="test_fail" executionTime="7">
            <alerts>
              <alert kind="failedAssertion" severity="critical">
                <title>Critical Assertion Error</title>
                <details>
                  <detail text="Expected 1 but got 2"/>
                </details>
              </alert>
            </alerts>
          </testMethod>
        </testMethods>
      </testClass>
    </testClasses>
  </program>
</aunit:runResult>`

func TestRunTestsParsesClassesMethodsAndAlerts(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: testRunResponseXml}}}

	result, err := RunTests(f, "/sap/bc/adt/oo/classes/zcl_alpha")
	require.Nil(t, err)
	assert.Equal(t, 2, result.TotalMethods())
	assert.Equal(t, 1, result.TotalFailed())
	assert.False(t, result.AllPassed())

	require.Len(t, result.Classes, 1)
	cls := result.Classes[0]
	assert.Equal(t, "LTC_ALPHA", cls.Name)
	require.Len(t, cls.Methods, 2)
	assert.True(t, cls.Methods[0].Passed())
	assert.Equal(t, 12, cls.Methods[0].ExecutionTimeMs)
	require.Len(t, cls.Methods[1].Alerts, 1)
	assert.Equal(t, "Critical Assertion Error", cls.Methods[1].Alerts[0].Title)
	assert.Equal(t, "Expected 1 but got 2", cls.Methods[1].Alerts[0].Detail)

	assert.Equal(t, "POST", f.Calls[0].Method)
	assert.Equal(t, "/sap/bc/adt/abapunit/testruns", f.Calls[0].Path)
	assert.Contains(t, f.Calls[0].Body, `adtcore:uri="/sap/bc/adt/oo/classes/zcl_alpha"`)
}

const checkMessagesXml = `<?xml version="1.0"?>
<chkrun:checkRunReports xmlns:chkrun="http://www.sap.com/adt/checkrun">
  <chkrun:checkReport chkrun:reporter="abapCheckRun">
    <chkrun:checkMessageList>
      <chkrun:checkMessage chkrun:uri="/sap/bc/adt/oo/classes/zcl_alpha/source/main#start=14,4" chkrun:type="E" chkrun:shortText="Unknown field LV_X"/>
    </chkrun:checkMessageList>
  </chkrun:checkReport>
</chkrun:checkRunReports>`

func TestCheckSyntaxParsesLineFromUriFragment(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: checkMessagesXml}}}

	messages, err := CheckSyntax(f, "/sap/bc/adt/oo/classes/zcl_alpha/source/main")
	require.Nil(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "E", messages[0].Type)
	assert.Equal(t, "Unknown field LV_X", messages[0].Text)
	assert.Equal(t, 14, messages[0].Line)
	assert.Equal(t, 4, messages[0].Offset)
}

const atcWorklistXml = `<?xml version="1.0"?>
<atcworklist:worklist xmlns:atcworklist="http://www.sap.com/adt/atc/worklist" atcworklist:id="WL1">
  <atcworklist:objects>
    <atcworklist:object>
      <atcworklist:findings>
        <atcworklist:finding uri="/sap/bc/adt/oo/classes/zcl_alpha/source/main#start=3,0" priority="1" checkTitle="Security Checks" messageTitle="SQL injection risk"/>
        <atcworklist:finding uri="/sap/bc/adt/oo/classes/zcl_alpha/source/main#start=9,0" priority="2" checkTitle="Performance Checks" messageTitle="SELECT inside LOOP"/>
      </atcworklist:findings>
    </atcworklist:object>
  </atcworklist:objects>
</atcworklist:worklist>`

// Scenario S7's backing contract: one error-priority finding yields
// ErrorCount 1, which the CLI maps to exit 8.
func TestRunAtcCheckThreeStepProtocol(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{
		{Status: 200, Body: "WL1"},            // worklist create
		{Status: 200},                         // run
		{Status: 200, Body: atcWorklistXml},   // worklist read
	}}

	result, err := RunAtcCheck(f, "/sap/bc/adt/oo/classes/zcl_alpha", "")
	require.Nil(t, err)
	assert.Equal(t, "WL1", result.WorklistId)
	assert.Equal(t, 1, result.ErrorCount())
	assert.Equal(t, 1, result.WarningCount())

	require.Len(t, f.Calls, 3)
	assert.Contains(t, f.Calls[0].Path, "checkVariant=DEFAULT")
	assert.Contains(t, f.Calls[1].Path, "worklistId=WL1")
	assert.Contains(t, f.Calls[2].Path, "/sap/bc/adt/atc/worklists/WL1")
}

const transportListXml = `<?xml version="1.0"?>
<tm:root xmlns:tm="http://www.sap.com/cts/adt/tm">
  <tm:workbench>
    <tm:request tm:number="NPLK900001" tm:desc="Feature work" tm:owner="DEVELOPER" tm:status="D" tm:targetSystem="LOCAL"/>
    <tm:request tm:number="NPLK900002" tm:desc="Bugfix" tm:owner="DEVELOPER" tm:status="D" tm:targetSystem="LOCAL"/>
  </tm:workbench>
</tm:root>`

func TestListTransports(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: transportListXml}}}

	transports, err := ListTransports(f, "DEVELOPER")
	require.Nil(t, err)
	require.Len(t, transports, 2)
	assert.Equal(t, "NPLK900001", transports[0].Number)
	assert.Equal(t, "Feature work", transports[0].Description)
	assert.Equal(t, "LOCAL", transports[0].Target)
	assert.Contains(t, f.Calls[0].Path, "user=DEVELOPER")
}

func TestCreateTransportReadsNumberFromResponse(t *testing.T) {
	created := `<tm:root xmlns:tm="http://www.sap.com/cts/adt/tm"><tm:request tm:number="NPLK900042"/></tm:root>`
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: created}}}

	number, err := CreateTransport(f, "My change", "ZTEST")
	require.Nil(t, err)
	assert.Equal(t, "NPLK900042", number)
}

func TestReleaseTransport(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200}}}
	err := ReleaseTransport(f, "NPLK900042")
	require.Nil(t, err)
	assert.Contains(t, f.Calls[0].Path, "/sap/bc/adt/cts/transportrequests/NPLK900042/newreleasejobs")
}

const nodeStructureXml = `<?xml version="1.0"?>
<asx:abap xmlns:asx="http://www.sap.com/abapxml">
  <asx:values>
    <DATA>
      <TREE_CONTENT>
        <SEU_ADT_REPOSITORY_OBJ_NODE>
          <OBJECT_TYPE>CLAS/OC</OBJECT_TYPE>
          <OBJECT_NAME>ZCL_ALPHA</OBJECT_NAME>
          <OBJECT_URI>/sap/bc/adt/oo/classes/zcl_alpha</OBJECT_URI>
          <DESCRIPTION>Alpha class</DESCRIPTION>
          <EXPANDABLE/>
        </SEU_ADT_REPOSITORY_OBJ_NODE>
        <SEU_ADT_REPOSITORY_OBJ_NODE>
          <OBJECT_TYPE>DEVC/K</OBJECT_TYPE>
          <OBJECT_NAME>ZSUB</OBJECT_NAME>
          <OBJECT_URI>/sap/bc/adt/packages/zsub</OBJECT_URI>
          <DESCRIPTION>Subpackage</DESCRIPTION>
          <EXPANDABLE>X</EXPANDABLE>
        </SEU_ADT_REPOSITORY_OBJ_NODE>
      </TREE_CONTENT>
    </DATA>
  </asx:values>
</asx:abap>`

func TestListPackageContents(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: nodeStructureXml}}}

	entries, err := ListPackageContents(f, "ZTEST")
	require.Nil(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ZCL_ALPHA", entries[0].ObjectName)
	assert.False(t, entries[0].Expandable)
	assert.True(t, entries[1].Expandable)
	assert.Contains(t, f.Calls[0].Path, "parent_name=ZTEST")
}

const emptyNodeStructureXml = `<?xml version="1.0"?>
<asx:abap xmlns:asx="http://www.sap.com/abapxml">
  <asx:values>
    <DATA>
      <TREE_CONTENT/>
    </DATA>
  </asx:values>
</asx:abap>`

func TestListPackageTreeRecursesIntoSubpackages(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{
		{Status: 200, Body: nodeStructureXml},      // ZTEST: one class + subpackage
		{Status: 200, Body: emptyNodeStructureXml}, // ZSUB: empty
	}}

	entries, err := ListPackageTree(f, PackageTreeOptions{RootPackage: "ZTEST"})
	require.Nil(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ZCL_ALPHA", entries[0].ObjectName)
	assert.Equal(t, "ZTEST", entries[0].PackageName)
	require.Len(t, f.Calls, 2)
	assert.Contains(t, f.Calls[1].Path, "parent_name=ZSUB")
}

func TestListPackageTreeTypeFilterMatchesPrefix(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{
		{Status: 200, Body: nodeStructureXml},
		{Status: 200, Body: emptyNodeStructureXml},
	}}

	entries, err := ListPackageTree(f, PackageTreeOptions{RootPackage: "ZTEST", TypeFilter: "PROG"})
	require.Nil(t, err)
	assert.Empty(t, entries)
}

const tableDefinitionXml = `<?xml version="1.0"?>
<tabl:table xmlns:tabl="http://www.sap.com/adt/ddic/tables" xmlns:adtcore="http://www.sap.com/adt/core"
    adtcore:name="SFLIGHT" adtcore:description="Flight data" tabl:deliveryClass="A">
  <tabl:field adtcore:name="CARRID" tabl:type="S_CARR_ID" adtcore:description="Carrier" tabl:keyField="true"/>
  <tabl:field adtcore:name="PRICE" tabl:type="S_PRICE" adtcore:description="Fare"/>
</tabl:table>`

func TestGetTableDefinition(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: tableDefinitionXml}}}

	info, err := GetTableDefinition(f, "SFLIGHT")
	require.Nil(t, err)
	assert.Equal(t, "SFLIGHT", info.Name)
	assert.Equal(t, "A", info.DeliveryClass)
	require.Len(t, info.Fields, 2)
	assert.True(t, info.Fields[0].KeyField)
	assert.False(t, info.Fields[1].KeyField)
}

func TestGetCdsSourceNotFound(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 404}}}
	_, err := GetCdsSource(f, "ZV_MISSING")
	require.NotNil(t, err)
	assert.Equal(t, 2, err.ExitCode())
}

func TestPackageExists(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200}, {Status: 404}}}

	exists, err := PackageExists(f, types.MustPackageName("ZTEST"))
	require.Nil(t, err)
	assert.True(t, exists)

	exists, err = PackageExists(f, types.MustPackageName("ZGONE"))
	require.Nil(t, err)
	assert.False(t, exists)
}

func TestCreateObjectUsesLocationHeader(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{
		{Status: 201, Headers: map[string]string{"Location": "/sap/bc/adt/oo/classes/zcl_new"}},
	}}

	uri, err := CreateObject(f, CreateObjectParams{ObjectType: "CLAS/OC", Name: "ZCL_NEW", PackageName: "ZTEST", Description: "New class"})
	require.Nil(t, err)
	assert.Equal(t, "/sap/bc/adt/oo/classes/zcl_new", uri.String())
	assert.Contains(t, f.Calls[0].Body, `adtcore:name="ZCL_NEW"`)
	assert.Contains(t, f.Calls[0].Body, `adtcore:packageRef adtcore:name="ZTEST"`)
}

func TestCreateObjectRejectsUnknownType(t *testing.T) {
	f := &session.Fake{}
	_, err := CreateObject(f, CreateObjectParams{ObjectType: "XXXX/Y", Name: "Z", PackageName: "ZTEST"})
	require.NotNil(t, err)
	assert.Empty(t, f.Calls)
}

func TestDeleteObjectWithHandle(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200}}}

	err := DeleteObject(f, types.MustObjectUri("/sap/bc/adt/oo/classes/zcl_old"), types.MustLockHandle("h2"), "")
	require.Nil(t, err)
	assert.Equal(t, "DELETE", f.Calls[0].Method)
	assert.Contains(t, f.Calls[0].Path, "lockHandle=h2")
}
