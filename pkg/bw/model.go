// Package bw implements the BW (Business Warehouse) modeling surface: node
// discovery, lineage extraction (DTP/TRFN/RSDS), query component parsing,
// and the shared graph primitives the assembler in pkg/bw/graph walks and
// reduces. Every parser in this package is pure — no I/O — taking an
// already-fetched body and returning typed records or an error.
package bw

import "github.com/erpl-adt/erpl-adt/pkg/apperr"

// Reserved edge types used across lineage and query graphs.
const (
	EdgeDtpSource       = "dtp_source"
	EdgeDtpTarget       = "dtp_target"
	EdgeTrfnSource      = "trfn_source"
	EdgeTrfnTarget      = "trfn_target"
	EdgeFieldMapping    = "field_mapping"
	EdgeFieldDerivation = "field_derivation"
	EdgeFieldOrigin     = "field_origin"
	EdgeXref            = "xref"
	EdgeUpstreamLineage = "upstream_lineage"
	EdgeUpstreamBridge  = "upstream_bridge"
	EdgeContainsField   = "contains_field"
	EdgeElemProvider    = "elem-provider"
)

// Role values for query-graph nodes.
const (
	RoleRoot            = "root"
	RoleColumns         = "columns"
	RoleRows            = "rows"
	RoleFree            = "free"
	RoleFilter          = "filter"
	RoleMember          = "member"
	RoleSubcomponent    = "subcomponent"
	RoleProvider        = "provider"
	RoleUpstreamLineage = "upstream_lineage"
	RoleComponent       = "component"
)

// Container node types encountered while walking infoarea structure.
const (
	TypeArea             = "AREA"
	TypeSemanticalFolder  = "semanticalFolder"
)

// Infoprovider types that can carry cross-reference edges.
var InfoProviderTypes = map[string]bool{
	"CUBE": true, "MPRO": true, "HCPR": true, "ADSO": true, "DSO": true,
}

// Node is one entity in a BW graph: an object (RSDS/ADSO/DTPA/TRFN/CUBE/...),
// a field, a query component, or a synthesized summary/provider node.
type Node struct {
	ID         string
	Type       string
	Name       string
	Role       string
	Uri        string
	Version    string
	Attributes map[string]string
}

// Edge is one directed relationship in a BW graph.
type Edge struct {
	ID         string
	From       string
	To         string
	Type       string
	Attributes map[string]string
}

// ProvenanceEntry records one endpoint call made while assembling a graph,
// so a caller can see exactly what the assembler did and how it went.
type ProvenanceEntry struct {
	Operation string
	Endpoint  string
	Status    string // "ok" | "partial" | "error"
}

// Graph is the common node/edge/warnings/provenance skeleton shared by
// lineage graphs and query graphs.
type Graph struct {
	Nodes      []Node
	Edges      []Edge
	Warnings   []string
	Provenance []ProvenanceEntry
	RootType   string
	RootName   string
}

func newGraphError(operation, message string) *apperr.Error {
	return apperr.New(operation, apperr.KindInternal, message)
}
