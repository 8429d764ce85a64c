package bw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLineageGraphPureDtpOnly(t *testing.T) {
	dtp := DtpDetail{
		Name: "DTP_1", Description: "load cube",
		SourceType: "RSDS", SourceName: "0FI_GL_4", SourceSystem: "ECCCLNT100",
		TargetType: "ADSO", TargetName: "ZFIADSO1",
	}
	g := BuildLineageGraphPure(dtp, nil, nil, "A")

	assert.True(t, g.HasNode("obj:DTPA:DTP_1"))
	assert.True(t, g.HasNode("obj:RSDS:0FI_GL_4"))
	assert.True(t, g.HasNode("obj:ADSO:ZFIADSO1"))
	assert.True(t, g.HasEdge("edge:dtp_source"))
	assert.True(t, g.HasEdge("edge:dtp_target"))

	src := g.EdgesFrom("obj:RSDS:0FI_GL_4")
	require.Len(t, src, 1)
	assert.Equal(t, EdgeDtpSource, src[0].Type)
	assert.Equal(t, "obj:DTPA:DTP_1", src[0].To)
}

func TestBuildLineageGraphPureRsdsFieldNodes(t *testing.T) {
	dtp := DtpDetail{Name: "DTP_1", SourceType: "RSDS", SourceName: "0FI_GL_4", SourceSystem: "ECC",
		TargetType: "ADSO", TargetName: "ZFIADSO1"}
	rsds := &RsdsDetail{Fields: []RsdsField{
		{Name: "BUKRS", DataType: "CHAR", Key: true},
		{Name: "AMOUNT", DataType: "CURR"},
	}}
	g := BuildLineageGraphPure(dtp, rsds, nil, "A")

	f1 := g.Node("field:RSDS:0FI_GL_4:BUKRS")
	require.NotNil(t, f1)
	assert.Equal(t, "true", f1.Attributes["key"])
	assert.True(t, g.HasEdge("edge:rsds_field:BUKRS"))
	assert.True(t, g.HasEdge("edge:rsds_field:AMOUNT"))
}

func TestBuildLineageGraphPureFieldMappingCartesianProduct(t *testing.T) {
	dtp := DtpDetail{Name: "DTP_1", SourceType: "RSDS", SourceName: "SRC", SourceSystem: "ECC",
		TargetType: "ADSO", TargetName: "TGT"}
	trfn := &Transformation{
		Name: "TRFN_1", SourceType: "RSDS", SourceName: "SRC", TargetType: "ADSO", TargetName: "TGT",
		SourceFields: []TrfnField{{Name: "A"}, {Name: "B"}},
		TargetFields: []TrfnField{{Name: "X"}, {Name: "Y"}},
		Rules: []TrfnRule{
			{SourceFields: []string{"A", "B"}, TargetFields: []string{"X", "Y"}, RuleType: "direct_assignment"},
		},
	}
	g := BuildLineageGraphPure(dtp, nil, trfn, "A")

	mappingEdges := 0
	for _, e := range g.Edges {
		if e.Type == EdgeFieldMapping {
			mappingEdges++
		}
	}
	assert.Equal(t, 4, mappingEdges) // 2 source fields x 2 target fields
}

func TestBuildLineageGraphPureFieldDerivationWhenNoSourceFields(t *testing.T) {
	dtp := DtpDetail{Name: "DTP_1", SourceType: "RSDS", SourceName: "SRC", SourceSystem: "ECC",
		TargetType: "ADSO", TargetName: "TGT"}
	trfn := &Transformation{
		Name: "TRFN_1", SourceType: "RSDS", SourceName: "SRC", TargetType: "ADSO", TargetName: "TGT",
		TargetFields: []TrfnField{{Name: "CONST_FIELD"}},
		Rules: []TrfnRule{
			{TargetFields: []string{"CONST_FIELD"}, RuleType: "constant", Constant: "42"},
		},
	}
	g := BuildLineageGraphPure(dtp, nil, trfn, "A")

	var derivation *Edge
	for i := range g.Edges {
		if g.Edges[i].Type == EdgeFieldDerivation {
			derivation = &g.Edges[i]
		}
	}
	require.NotNil(t, derivation)
	assert.Equal(t, "obj:TRFN:TRFN_1", derivation.From)
	assert.Equal(t, "field:ADSO:TGT:CONST_FIELD", derivation.To)
	assert.Equal(t, "42", derivation.Attributes["constant"])
}

func TestBuildLineageGraphPureRuleWithNoTargetFieldsSkipped(t *testing.T) {
	dtp := DtpDetail{Name: "DTP_1", SourceType: "RSDS", SourceName: "SRC", SourceSystem: "ECC",
		TargetType: "ADSO", TargetName: "TGT"}
	trfn := &Transformation{Name: "TRFN_1", SourceType: "RSDS", SourceName: "SRC", TargetType: "ADSO", TargetName: "TGT",
		Rules: []TrfnRule{{SourceField: "A"}}}
	g := BuildLineageGraphPure(dtp, nil, trfn, "A")

	for _, e := range g.Edges {
		assert.NotEqual(t, EdgeFieldMapping, e.Type)
		assert.NotEqual(t, EdgeFieldDerivation, e.Type)
	}
}

func TestBuildLineageGraphPureFieldOriginLinksRsdsToTrfnSourceField(t *testing.T) {
	dtp := DtpDetail{Name: "DTP_1", SourceType: "RSDS", SourceName: "SRC", SourceSystem: "ECC",
		TargetType: "ADSO", TargetName: "TGT"}
	rsds := &RsdsDetail{Fields: []RsdsField{{Name: "BUKRS"}}}
	trfn := &Transformation{Name: "TRFN_1", SourceType: "RSDS", SourceName: "SRC", TargetType: "ADSO", TargetName: "TGT",
		SourceFields: []TrfnField{{Name: "BUKRS"}}}
	g := BuildLineageGraphPure(dtp, rsds, trfn, "A")

	originEdges := 0
	for _, e := range g.Edges {
		if e.Type == EdgeFieldOrigin {
			originEdges++
		}
	}
	assert.Equal(t, 1, originEdges)
}

func TestParseDtpDetail(t *testing.T) {
	xmlBody := `<dtp:dataTransferProcess xmlns:dtp="urn:dtp" name="DTP_1">
  <description>Load GL data</description>
  <source objectType="RSDS" objectName="0FI_GL_4" sourceSystem="ECCCLNT100"/>
  <target objectType="ADSO" objectName="ZFIADSO1"/>
</dtp:dataTransferProcess>`
	d, err := parseDtpDetail(xmlBody)
	require.Nil(t, err)
	assert.Equal(t, "DTP_1", d.Name)
	assert.Equal(t, "Load GL data", d.Description)
	assert.Equal(t, "RSDS", d.SourceType)
	assert.Equal(t, "0FI_GL_4", d.SourceName)
	assert.Equal(t, "ECCCLNT100", d.SourceSystem)
	assert.Equal(t, "ADSO", d.TargetType)
	assert.Equal(t, "ZFIADSO1", d.TargetName)
}

func TestParseTransformationWithRuleGroups(t *testing.T) {
	xmlBody := `<trfn:transformation xmlns:trfn="urn:trfn" name="TRFN_1">
  <source objectType="RSDS" objectName="SRC">
    <field name="A"/>
  </source>
  <target objectType="ADSO" objectName="TGT">
    <field name="X"/>
  </target>
  <rules>
    <group>
      <rule ruleType="direct_assignment" sourceField="A" targetField="X"/>
    </group>
  </rules>
</trfn:transformation>`
	tr, err := parseTransformation(xmlBody)
	require.Nil(t, err)
	assert.Equal(t, "TRFN_1", tr.Name)
	require.Len(t, tr.Rules, 1)
	assert.Equal(t, "A", tr.Rules[0].SourceField)
	assert.Equal(t, "X", tr.Rules[0].TargetField)
}

func TestParseRsdsDetailWithSegments(t *testing.T) {
	xmlBody := `<rsds:source xmlns:rsds="urn:rsds">
  <segment id="001">
    <field name="BUKRS" dataType="CHAR" key="X"/>
  </segment>
</rsds:source>`
	d, err := parseRsdsDetail(xmlBody)
	require.Nil(t, err)
	require.Len(t, d.Fields, 1)
	assert.Equal(t, "BUKRS", d.Fields[0].Name)
	assert.True(t, d.Fields[0].Key)
	assert.Equal(t, "001", d.Fields[0].SegmentID)
}
