package bw

import (
	"testing"

	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDbInfoConnectShape(t *testing.T) {
	body := `<dbinfo:result xmlns:dbinfo="http://www.sap.com/bw/dbinfo">
  <connect host="hana01" name="NPL" platform="HDB" release="2.00" schema="SAPHANADB"/>
</dbinfo:result>`
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: body}}}

	info, err := GetDbInfo(f)
	require.Nil(t, err)
	assert.Equal(t, "hana01", info.Host)
	assert.Equal(t, "HDB", info.Platform)
	assert.True(t, info.IsHana)
}

func TestGetDbInfoFlatShape(t *testing.T) {
	body := `<dbinfo host="db01" name="NPL" platform="ORACLE" release="19"/>`
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: body}}}

	info, err := GetDbInfo(f)
	require.Nil(t, err)
	assert.Equal(t, "db01", info.Host)
	assert.False(t, info.IsHana)
}

func TestGetSystemInfoPropertyElements(t *testing.T) {
	body := `<systeminfo>
  <property name="release" value="7.57"/>
  <property name="bwRelease" value="757"/>
</systeminfo>`
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: body}}}

	props, err := GetSystemInfo(f)
	require.Nil(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "release", props[0].Name)
	assert.Equal(t, "7.57", props[0].Value)
}

func TestGetChangeability(t *testing.T) {
	body := `<chginfo>
  <entry objectType="ADSO" changeable="true" description="DataStore object"/>
  <entry objectType="TRFN" changeable="X"/>
  <entry objectType="CUBE" changeable="false"/>
</chginfo>`
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: body}}}

	entries, err := GetChangeability(f)
	require.Nil(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].Changeable)
	assert.True(t, entries[1].Changeable)
	assert.False(t, entries[2].Changeable)
}

func TestGetValueHelpRows(t *testing.T) {
	body := `<values>
  <row key="EUR" text="Euro"/>
  <row key="USD" text="US Dollar"/>
</values>`
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: body}}}

	rows, err := GetValueHelp(f, ValueHelpOptions{Helper: "currency", MaxResults: "10"})
	require.Nil(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "EUR", rows[0].Values["key"])
	assert.Contains(t, f.Calls[0].Path, "/sap/bw/modeling/is/values/currency")
	assert.Contains(t, f.Calls[0].Path, "maxResults=10")
}

func TestValidateParsesMessages(t *testing.T) {
	body := `<validation:result xmlns:validation="http://www.sap.com/bw/validation">
  <validation:message severity="E" text="Name already in use" objectName="ZADSO1"/>
</validation:result>`
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: body}}}

	messages, err := Validate(f, ValidationOptions{ObjectType: "ADSO", ObjectName: "ZADSO1", Action: "create"})
	require.Nil(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "E", messages[0].Severity)
	assert.Contains(t, f.Calls[0].Path, "objectType=ADSO")
	assert.Contains(t, f.Calls[0].Path, "action=create")
}

func TestGetMessageTextPlainBody(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: "Object is locked by user DEVELOPER"}}}

	result, err := GetMessageText(f, MessageTextOptions{Identifier: "RSD123", TextType: "short"})
	require.Nil(t, err)
	assert.Equal(t, "Object is locked by user DEVELOPER", result.Text)
	assert.Contains(t, f.Calls[0].Path, "/sap/bw/modeling/repo/is/message/RSD123/short")
}

func TestGetNodePathNestedTree(t *testing.T) {
	body := `<nodepath>
  <node objectName="ZROOT" objectType="AREA">
    <node objectName="ZCHILD" objectType="AREA">
      <node objectName="ZADSO1" objectType="ADSO"/>
    </node>
  </node>
</nodepath>`
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: body}}}

	entries, err := GetNodePath(f, "/sap/bw/modeling/adso/zadso1/a")
	require.Nil(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "ZROOT", entries[0].Name)
	assert.Equal(t, "ZADSO1", entries[2].Name)
}

func TestReadDataFlowTopology(t *testing.T) {
	body := `<dmod:dataflow xmlns:dmod="http://www.sap.com/bw/dmod" objectName="ZFLOW" objectDesc="Sales flow">
  <nodes>
    <node objectName="ZRSDS1" objectType="RSDS"/>
    <node objectName="ZADSO1" objectType="ADSO"/>
  </nodes>
  <connections>
    <connection source="ZRSDS1" target="ZADSO1" connectionType="dtp"/>
  </connections>
</dmod:dataflow>`
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: body}}}

	detail, err := ReadDataFlow(f, "ZFLOW", "a")
	require.Nil(t, err)
	assert.Equal(t, "ZFLOW", detail.Name)
	require.Len(t, detail.Nodes, 2)
	require.Len(t, detail.Edges, 1)
	assert.Equal(t, "ZRSDS1", detail.Edges[0].From)
	assert.Equal(t, "dtp", detail.Edges[0].Type)
}

func TestListBackendFavorites(t *testing.T) {
	body := `<atom:feed xmlns:atom="http://www.w3.org/2005/Atom" xmlns:bwModel="http://www.sap.com/bw/modeling">
  <atom:entry>
    <atom:title>My ADSO</atom:title>
    <atom:id>/sap/bw/modeling/adso/zadso1/a</atom:id>
    <atom:content><bwModel:properties objectName="ZADSO1" objectType="ADSO"/></atom:content>
  </atom:entry>
</atom:feed>`
	f := &session.Fake{Responses: []session.FakeResponse{{Status: 200, Body: body}}}

	favorites, err := ListBackendFavorites(f)
	require.Nil(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "ZADSO1", favorites[0].Name)
}
