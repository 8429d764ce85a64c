// Package graph implements the infoarea-export BFS traversal: starting
// from a BW infoarea, walk its container structure,
// collect typed objects, merge in per-object lineage, and optionally
// enrich with cross-references and elem-provider edges.
package graph

import (
	"sort"
	"strconv"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/bw"
	"github.com/erpl-adt/erpl-adt/pkg/session"
)

// ExportOptions parameterizes Export.
type ExportOptions struct {
	InfoAreaName              string
	MaxDepth                  int
	TypesFilter               []string // empty means admit every non-container type
	IncludeSearchSupplement   bool
	IncludeXrefEdges          bool
	IncludeElemProviderEdges  bool
	MaxXref                   int
}

// ExportedObject is one non-container object discovered while walking the
// infoarea, with whatever per-type detail Export could fetch for it.
type ExportedObject struct {
	Name             string
	Type             string
	Subtype          string
	Version          string
	Uri              string
	Description      string
	RsdsFields       []bw.RsdsField
	RsdsSourceSystem string
	DtpSourceType    string
	DtpSourceName    string
	DtpTargetType    string
	DtpTargetName    string
	TrfnSourceType   string
	TrfnSourceName   string
	TrfnTargetType   string
	TrfnTargetName   string
}

// ExportResult is the full traversal outcome: the objects found, the
// merged dataflow graph contributed by every object's lineage/xref
// enrichment, and the accumulated warnings/provenance.
type ExportResult struct {
	InfoArea      string
	Objects       []ExportedObject
	DataflowNodes []bw.Node
	DataflowEdges []bw.Edge
	Warnings      []string
	Provenance    []bw.ProvenanceEntry
}

type frontierItem struct {
	Type       string
	Name       string
	Uri        string
	Depth      int
	ParentType string
	ParentName string
}

func typeAllowed(filter []string, t string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if strings.EqualFold(f, t) {
			return true
		}
	}
	return false
}

func dedupeKey(uri, name string) string {
	if uri != "" {
		return "uri:" + uri
	}
	return "name:" + name
}

// sourceSystemFromURI extracts the trailing source-system segment from an
// RSDS node's uri, of the form ".../rsds/<name>/<sourceSystem>/<version>".
func sourceSystemFromURI(uri string) string {
	parts := strings.Split(strings.Trim(uri, "/"), "/")
	for i, p := range parts {
		if p == "rsds" && i+2 < len(parts) {
			return parts[i+2]
		}
	}
	return ""
}

// Export walks the infoarea's container structure breadth-first, collects
// matching objects, and merges their per-type detail and lineage into one
// dataflow graph. Per-endpoint failures are recorded as warnings and do
// not abort the overall traversal.
func Export(s session.Session, opts ExportOptions) (*ExportResult, *apperr.Error) {
	if opts.InfoAreaName == "" {
		return nil, apperr.New("BwExportInfoArea", apperr.KindInternal, "infoarea name must not be empty")
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 10
	}

	result := &ExportResult{InfoArea: opts.InfoAreaName}
	visited := map[string]bool{dedupeKey("", opts.InfoAreaName): true}
	nodeIDs := map[string]bool{}
	edgeIDs := map[string]bool{}

	addDataflow := func(g *bw.Graph) {
		if g == nil {
			return
		}
		for _, n := range g.Nodes {
			if !nodeIDs[n.ID] {
				nodeIDs[n.ID] = true
				result.DataflowNodes = append(result.DataflowNodes, n)
			}
		}
		for _, e := range g.Edges {
			if !edgeIDs[e.ID] {
				edgeIDs[e.ID] = true
				result.DataflowEdges = append(result.DataflowEdges, e)
			}
		}
		result.Warnings = append(result.Warnings, g.Warnings...)
		result.Provenance = append(result.Provenance, g.Provenance...)
	}

	frontier := []frontierItem{{Type: bw.TypeArea, Name: opts.InfoAreaName, Depth: 0}}

	for len(frontier) > 0 {
		item := frontier[0]
		frontier = frontier[1:]

		var nodesOpts bw.NodesOptions
		if item.Type == bw.TypeSemanticalFolder && item.ParentType != "" {
			nodesOpts = bw.NodesOptions{ObjectType: item.ParentType, ObjectName: item.ParentName, ChildName: item.Name, ChildType: item.Type}
		} else {
			nodesOpts = bw.NodesOptions{ObjectType: item.Type, ObjectName: item.Name}
		}

		entries, err := bw.GetNodes(s, nodesOpts)
		endpoint := item.Type + ":" + item.Name
		if err != nil {
			result.Warnings = append(result.Warnings, "GetNodes failed for "+endpoint+": "+err.Error())
			result.Provenance = append(result.Provenance, bw.ProvenanceEntry{Operation: "BwGetNodes", Endpoint: endpoint, Status: "error"})
			continue
		}
		result.Provenance = append(result.Provenance, bw.ProvenanceEntry{Operation: "BwGetNodes", Endpoint: endpoint, Status: "ok"})

		for _, e := range entries {
			if e.Type == bw.TypeArea || e.Type == bw.TypeSemanticalFolder {
				if item.Depth+1 > maxDepth {
					continue
				}
				key := dedupeKey(e.Uri, e.Name)
				if visited[key] {
					continue
				}
				visited[key] = true
				frontier = append(frontier, frontierItem{
					Type: e.Type, Name: e.Name, Uri: e.Uri, Depth: item.Depth + 1,
					ParentType: item.Type, ParentName: item.Name,
				})
				continue
			}

			if !typeAllowed(opts.TypesFilter, e.Type) {
				continue
			}
			key := dedupeKey(e.Uri, e.Name)
			if visited[key] {
				continue
			}
			visited[key] = true

			obj := ExportedObject{Name: e.Name, Type: e.Type, Subtype: e.Subtype, Version: e.Version, Uri: e.Uri, Description: e.Description}
			fetchObjectDetail(s, &obj, addDataflow, result)
			result.Objects = append(result.Objects, obj)
		}
	}

	// Search supplement: use BW search filtered by infoarea to recover ELEM
	// and IOBJ objects the container walk misses. Infoprovider types the
	// search returns belong to other infoareas; admitting them would cascade
	// into extra xref calls, so only ELEM/IOBJ pass.
	if opts.IncludeSearchSupplement {
		searchEndpoint := "/sap/bw/modeling/repo/is/bwsearch?infoArea=" + opts.InfoAreaName
		hits, serr := bw.SearchObjects(s, bw.SearchOptions{Query: "*", InfoArea: opts.InfoAreaName, MaxResults: 500})
		if serr != nil {
			result.Warnings = append(result.Warnings, "search supplement: "+serr.Message)
			result.Provenance = append(result.Provenance, bw.ProvenanceEntry{Operation: "BwSearchObjects", Endpoint: searchEndpoint, Status: "error"})
		} else {
			result.Provenance = append(result.Provenance, bw.ProvenanceEntry{Operation: "BwSearchObjects", Endpoint: searchEndpoint, Status: "ok"})
			found := map[string]bool{}
			for _, obj := range result.Objects {
				found[obj.Type+":"+obj.Name] = true
			}
			for _, hit := range hits {
				if hit.Type == bw.TypeArea || hit.Type == bw.TypeSemanticalFolder {
					continue
				}
				if hit.Type != "ELEM" && hit.Type != "IOBJ" {
					continue
				}
				if !typeAllowed(opts.TypesFilter, hit.Type) {
					continue
				}
				key := hit.Type + ":" + hit.Name
				if found[key] || visited[dedupeKey(hit.Uri, hit.Name)] {
					continue
				}
				found[key] = true
				visited[dedupeKey(hit.Uri, hit.Name)] = true
				obj := ExportedObject{Name: hit.Name, Type: hit.Type, Subtype: hit.Subtype, Version: hit.Version, Uri: hit.Uri, Description: hit.Description}
				fetchObjectDetail(s, &obj, addDataflow, result)
				result.Objects = append(result.Objects, obj)
			}
		}
	}

	if opts.IncludeXrefEdges {
		addXrefForInfoproviders(s, result, nodeIDs, edgeIDs, opts.MaxXref)
	}

	if opts.IncludeElemProviderEdges {
		addElemProviderEdges(s, result, nodeIDs, edgeIDs)
	}

	sort.Slice(result.Objects, func(i, j int) bool { return result.Objects[i].Name < result.Objects[j].Name })
	return result, nil
}

func fetchObjectDetail(s session.Session, obj *ExportedObject, addDataflow func(*bw.Graph), result *ExportResult) {
	version := obj.Version
	if version == "" {
		version = "A"
	}

	switch obj.Type {
	case "RSDS":
		obj.RsdsSourceSystem = sourceSystemFromURI(obj.Uri)
		if obj.RsdsSourceSystem != "" {
			if d, err := bw.ReadRsdsDetail(s, obj.Name, obj.RsdsSourceSystem, version); err == nil {
				obj.RsdsFields = d.Fields
				result.Provenance = append(result.Provenance, bw.ProvenanceEntry{Operation: "BwReadRsdsDetail", Endpoint: obj.Name, Status: "ok"})
			} else {
				result.Warnings = append(result.Warnings, "RSDS detail read failed for "+obj.Name)
			}
		}
	case "TRFN":
		if t, err := bw.ReadTransformation(s, obj.Name, version); err == nil {
			obj.TrfnSourceType, obj.TrfnSourceName = t.SourceType, t.SourceName
			obj.TrfnTargetType, obj.TrfnTargetName = t.TargetType, t.TargetName
			result.Provenance = append(result.Provenance, bw.ProvenanceEntry{Operation: "BwReadTransformation", Endpoint: obj.Name, Status: "ok"})
		} else {
			result.Warnings = append(result.Warnings, "transformation detail read failed for "+obj.Name)
		}
	case "DTPA":
		dtp, err := bw.ReadDtpDetail(s, obj.Name, version)
		if err != nil {
			result.Warnings = append(result.Warnings, "DTP detail read failed for "+obj.Name)
			return
		}
		obj.DtpSourceType, obj.DtpSourceName = dtp.SourceType, dtp.SourceName
		obj.DtpTargetType, obj.DtpTargetName = dtp.TargetType, dtp.TargetName
		result.Provenance = append(result.Provenance, bw.ProvenanceEntry{Operation: "BwReadDtpDetail", Endpoint: obj.Name, Status: "ok"})

		// Batch export builds the lineage subgraph without xref or TRFN
		// search-fallback resolution, to bound per-object latency; a
		// focused BuildLineageGraph call with TrfnName/IncludeXref set
		// can be made separately for a single DTP of interest.
		var rsds *bw.RsdsDetail
		if dtp.SourceType == "RSDS" && dtp.SourceName != "" && dtp.SourceSystem != "" {
			if r, rerr := bw.ReadRsdsDetail(s, dtp.SourceName, dtp.SourceSystem, version); rerr == nil {
				rsds = r
			}
		}
		lineage := bw.BuildLineageGraphPure(*dtp, rsds, nil, version)
		addDataflow(lineage)
	}
}

func addXrefForInfoproviders(s session.Session, result *ExportResult, nodeIDs, edgeIDs map[string]bool, maxXref int) {
	for _, obj := range result.Objects {
		if !bw.InfoProviderTypes[obj.Type] {
			continue
		}
		items, err := bw.GetXrefs(s, bw.XrefOptions{ObjectType: obj.Type, ObjectName: obj.Name, ObjectVersion: "A", MaxResults: maxXref})
		if err != nil {
			result.Warnings = append(result.Warnings, "xref read failed for "+obj.Name)
			result.Provenance = append(result.Provenance, bw.ProvenanceEntry{Operation: "BwGetXrefs", Endpoint: obj.Name, Status: "partial"})
			continue
		}
		result.Provenance = append(result.Provenance, bw.ProvenanceEntry{Operation: "BwGetXrefs", Endpoint: obj.Name, Status: "ok"})

		providerID := bw.ObjectNodeID(obj.Type, obj.Name)
		if !nodeIDs[providerID] {
			nodeIDs[providerID] = true
			result.DataflowNodes = append(result.DataflowNodes, bw.Node{ID: providerID, Type: obj.Type, Name: obj.Name, Role: bw.RoleProvider})
		}
		for i, item := range items {
			consumerID := bw.ObjectNodeID(item.Type, item.Name)
			if !nodeIDs[consumerID] {
				nodeIDs[consumerID] = true
				result.DataflowNodes = append(result.DataflowNodes, bw.Node{
					ID: consumerID, Type: item.Type, Name: item.Name, Role: "xref_object", Uri: item.Uri, Version: item.Version,
					Attributes: map[string]string{"description": item.Description},
				})
			}
			edgeID := "edge:xref:" + obj.Name + ":" + item.Name
			if edgeIDs[edgeID] {
				continue
			}
			edgeIDs[edgeID] = true
			result.DataflowEdges = append(result.DataflowEdges, bw.Edge{
				ID: "edge:xref:" + strconv.Itoa(i+1) + ":" + obj.Name, From: providerID, To: consumerID, Type: bw.EdgeXref,
				Attributes: map[string]string{"association_type": item.AssociationType, "association_label": item.AssociationLabel},
			})
		}
	}
}

// addElemProviderEdges reads each ELEM object's query component to harvest
// its iobj references, and adds an elem-provider edge from the known
// provider to the ELEM when the provider is already present and the ELEM
// has no incoming edge yet. ELEM objects are read through the QUERY
// component shape, the closest grounded query-family type for a
// standalone query element.
func addElemProviderEdges(s session.Session, result *ExportResult, nodeIDs, edgeIDs map[string]bool) {
	hasIncoming := func(id string) bool {
		for _, e := range result.DataflowEdges {
			if e.To == id {
				return true
			}
		}
		return false
	}

	for _, obj := range result.Objects {
		if obj.Type != "ELEM" {
			continue
		}
		detail, err := bw.ReadQueryComponent(s, "QUERY", obj.Name, "A", "")
		if err != nil {
			result.Warnings = append(result.Warnings, "elem-provider query component read failed for "+obj.Name)
			continue
		}
		if detail.InfoProvider == "" {
			continue
		}
		providerID := bw.ObjectNodeID(detail.InfoProviderType, detail.InfoProvider)
		elemID := bw.ObjectNodeID(obj.Type, obj.Name)
		if !nodeIDs[providerID] || !nodeIDs[elemID] {
			continue
		}
		if hasIncoming(elemID) {
			continue
		}
		edgeID := "edge:elem_provider:" + obj.Name
		if edgeIDs[edgeID] {
			continue
		}
		edgeIDs[edgeID] = true
		result.DataflowEdges = append(result.DataflowEdges, bw.Edge{ID: edgeID, From: providerID, To: elemID, Type: bw.EdgeElemProvider})
	}
}
