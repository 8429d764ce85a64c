package bw

import (
	"testing"

	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQueryGraphWithReferences(t *testing.T) {
	detail := QueryComponentDetail{
		ComponentType: "QUERY", Name: "ZQ_SALES", Description: "Sales query", InfoProvider: "ZCUBE1", InfoProviderType: "CUBE",
		References: []QueryComponentRef{
			{Type: "DIMENSION", Name: "0CUSTOMER", Role: "rows"},
			{Type: "DIMENSION", Name: "0MATERIAL", Role: "columns"},
		},
	}
	g := BuildQueryGraph(detail)

	assert.True(t, g.HasNode("N_QUERY_ZQ_SALES"))
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 2)
	assert.Empty(t, g.Warnings)
}

func TestBuildQueryGraphWarnsWhenNoReferences(t *testing.T) {
	g := BuildQueryGraph(QueryComponentDetail{ComponentType: "QUERY", Name: "ZQ_EMPTY"})
	require.Len(t, g.Warnings, 1)
	assert.Equal(t, "No references discovered", g.Warnings[0])
}

func TestReduceGraphCapsNodesPerRoleAndRedirectsToSummary(t *testing.T) {
	g := &Graph{RootType: "QUERY", RootName: "ZQ_SALES"}
	g.AddNode(Node{ID: "N_QUERY_ZQ_SALES", Role: RoleRoot})
	for i := 0; i < 5; i++ {
		id := "R" + string(rune('1'+i))
		g.AddNode(Node{ID: id, Role: "rows"})
		g.AddEdge(Edge{ID: "E" + string(rune('1'+i)), From: "N_QUERY_ZQ_SALES", To: id, Type: "depends_on", Attributes: map[string]string{"role": "rows"}})
	}

	reduced, summaries := ReduceGraph(g, ReduceOptions{MaxNodesPerRole: 3})
	require.Len(t, summaries, 1)
	assert.Equal(t, "rows", summaries[0].Role)
	assert.Len(t, summaries[0].KeptNodeIDs, 3)
	assert.Len(t, summaries[0].OmittedNodeIDs, 2)
	assert.True(t, reduced.HasNode(summaries[0].SummaryNodeID))

	// 3 kept rows + root + 1 summary node = 5
	assert.Len(t, reduced.Nodes, 5)
}

func TestReduceGraphNoopWhenUnderLimit(t *testing.T) {
	g := &Graph{}
	g.AddNode(Node{ID: "R1", Role: "rows"})
	reduced, summaries := ReduceGraph(g, ReduceOptions{MaxNodesPerRole: 5})
	assert.Nil(t, summaries)
	assert.Same(t, g, reduced)
}

func TestMergeQueryAndLineageGraphAddsProviderAndBridge(t *testing.T) {
	query := BuildQueryGraph(QueryComponentDetail{ComponentType: "QUERY", Name: "ZQ_SALES", InfoProvider: "ZCUBE1", InfoProviderType: "CUBE"})
	lineage := &Graph{RootType: "DTPA", RootName: "DTP_1"}
	lineage.AddNode(Node{ID: "obj:DTPA:DTP_1", Type: "DTPA", Name: "DTP_1", Role: "dtp"})
	lineage.AddNode(Node{ID: "obj:RSDS:SRC", Type: "RSDS", Name: "SRC", Role: "source_object"})
	lineage.AddEdge(Edge{ID: "edge:dtp_source", From: "obj:RSDS:SRC", To: "obj:DTPA:DTP_1", Type: EdgeDtpSource})

	merged := MergeQueryAndLineageGraph(query, QueryComponentDetail{ComponentType: "QUERY", Name: "ZQ_SALES", InfoProvider: "ZCUBE1", InfoProviderType: "CUBE"}, lineage)

	assert.True(t, merged.HasNode("N_PROVIDER_ZCUBE1"))
	assert.True(t, merged.HasNode("L_obj_DTPA_DTP_1"))
	assert.True(t, merged.HasNode("L_obj_RSDS_SRC"))

	foundBridge := false
	foundLineageEdge := false
	for _, e := range merged.Edges {
		if e.Type == EdgeUpstreamBridge {
			foundBridge = true
			assert.Equal(t, "N_PROVIDER_ZCUBE1", e.From)
		}
		if e.Type == EdgeUpstreamLineage {
			foundLineageEdge = true
		}
	}
	assert.True(t, foundBridge)
	assert.True(t, foundLineageEdge)
}

// BW media fallback: two 415s walk the Accept ladder down to
// application/xml, and the component still parses on the third request.
func TestReadQueryComponentAcceptFallbackOn415(t *testing.T) {
	body := `<variable xmlns="http://www.sap.com/bw/modeling" objectName="ZVAR_FISCYEAR" description="Fiscal year"/>`
	f := &session.Fake{Responses: []session.FakeResponse{
		{Status: 415},
		{Status: 415},
		{Status: 200, Body: body},
	}}

	detail, err := ReadQueryComponent(f, "variable", "zvar_fiscyear", "a", "")
	require.Nil(t, err)
	assert.Equal(t, "VARIABLE", detail.ComponentType)
	require.Len(t, f.Calls, 3)
}

func TestReadQueryComponentAcceptExhaustionHintListsAttempts(t *testing.T) {
	f := &session.Fake{Responses: []session.FakeResponse{
		{Status: 415},
		{Status: 415},
		{Status: 415},
	}}

	_, err := ReadQueryComponent(f, "variable", "zvar_fiscyear", "a", "")
	require.NotNil(t, err)
	require.NotNil(t, err.Hint)
	assert.Contains(t, *err.Hint, "application/vnd.sap.bw.modeling.variable-v1_10_0+xml")
	assert.Contains(t, *err.Hint, "application/vnd.sap.bw.modeling.variable-v1_9_0+xml")
	assert.Contains(t, *err.Hint, "application/xml")
}
