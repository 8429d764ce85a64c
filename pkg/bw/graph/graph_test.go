package graph

import (
	"testing"

	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func atomEntry(objectType, objectName string) string {
	return `<entry>
  <title>` + objectName + `</title>
  <content>
    <properties objectType="` + objectType + `" objectName="` + objectName + `"/>
  </content>
</entry>`
}

func TestExportCollectsObjectsAndDtpLineage(t *testing.T) {
	nodesFeed := `<feed>` + atomEntry("DTPA", "DTP_1") + `</feed>`
	dtpDetail := `<dtp:dataTransferProcess xmlns:dtp="urn:dtp" name="DTP_1">
  <source objectType="RSDS" objectName="SRC" sourceSystem="ECC"/>
  <target objectType="ADSO" objectName="TGT"/>
</dtp:dataTransferProcess>`
	rsdsDetail := `<rsds:source xmlns:rsds="urn:rsds"><field name="BUKRS" dataType="CHAR"/></rsds:source>`

	fake := &session.Fake{Responses: []session.FakeResponse{
		{Status: 200, Body: nodesFeed},
		{Status: 200, Body: dtpDetail},
		{Status: 200, Body: rsdsDetail},
	}}

	result, err := Export(fake, ExportOptions{InfoAreaName: "ZAREA1"})
	require.Nil(t, err)
	require.Len(t, result.Objects, 1)
	assert.Equal(t, "DTP_1", result.Objects[0].Name)
	assert.Equal(t, "RSDS", result.Objects[0].DtpSourceType)
	assert.Equal(t, "ADSO", result.Objects[0].DtpTargetType)

	assert.True(t, func() bool {
		for _, n := range result.DataflowNodes {
			if n.ID == "obj:DTPA:DTP_1" {
				return true
			}
		}
		return false
	}())
}

func TestExportFiltersByType(t *testing.T) {
	nodesFeed := `<feed>` + atomEntry("DTPA", "DTP_1") + atomEntry("CUBE", "ZCUBE1") + `</feed>`
	fake := &session.Fake{Responses: []session.FakeResponse{
		{Status: 200, Body: nodesFeed},
	}}

	result, err := Export(fake, ExportOptions{InfoAreaName: "ZAREA1", TypesFilter: []string{"CUBE"}})
	require.Nil(t, err)
	require.Len(t, result.Objects, 1)
	assert.Equal(t, "ZCUBE1", result.Objects[0].Name)
}

func TestExportRequiresInfoAreaName(t *testing.T) {
	_, err := Export(&session.Fake{}, ExportOptions{})
	require.NotNil(t, err)
}
