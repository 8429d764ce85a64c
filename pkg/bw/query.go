package bw

import (
	"sort"
	"strconv"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

// queryFamilyTypes is the closed set of component types hosted on the BW
// query endpoint.
var queryFamilyTypes = map[string]bool{
	"QUERY": true, "VARIABLE": true, "RKF": true, "CKF": true, "FILTER": true, "STRUCTURE": true,
}

// acceptCandidates returns the Accept header values to try in order for a
// query-family component read, newest vendor media type first, falling
// back to generic XML. Some BW systems lag one minor media version for
// query-family subcomponents, so a 415 response means "retry the next
// candidate", not "abort".
func acceptCandidates(componentType, override string) []string {
	if override != "" {
		return []string{override}
	}
	switch componentType {
	case "QUERY":
		return []string{"application/vnd.sap.bw.modeling.query-v1_11_0+xml", "application/vnd.sap.bw.modeling.query-v1_10_0+xml", "application/xml"}
	case "VARIABLE":
		return []string{"application/vnd.sap.bw.modeling.variable-v1_10_0+xml", "application/vnd.sap.bw.modeling.variable-v1_9_0+xml", "application/xml"}
	case "RKF":
		return []string{"application/vnd.sap.bw.modeling.rkf-v1_10_0+xml", "application/vnd.sap.bw.modeling.rkf-v1_9_0+xml", "application/xml"}
	case "CKF":
		return []string{"application/vnd.sap.bw.modeling.ckf-v1_10_0+xml", "application/vnd.sap.bw.modeling.ckf-v1_9_0+xml", "application/xml"}
	case "FILTER":
		return []string{"application/vnd.sap.bw.modeling.filter-v1_9_0+xml", "application/vnd.sap.bw.modeling.filter-v1_8_0+xml", "application/xml"}
	case "STRUCTURE":
		return []string{"application/vnd.sap.bw.modeling.structure-v1_9_0+xml", "application/vnd.sap.bw.modeling.structure-v1_8_0+xml", "application/xml"}
	default:
		return []string{"application/xml"}
	}
}

func buildQueryObjectPath(name, version string) string {
	return "/sap/bw/modeling/query/" + strings.ToLower(name) + "/" + version
}

// QueryComponentRef is one reference discovered on a query-family object:
// a dimension member, a subcomponent, a filter selection, and so on.
type QueryComponentRef struct {
	Type       string
	Name       string
	Role       string
	Attributes map[string]string
}

// QueryComponentDetail is the parsed detail of a query-family object
// (QUERY, VARIABLE, RKF, CKF, FILTER, STRUCTURE).
type QueryComponentDetail struct {
	ComponentType     string
	Name              string
	Description       string
	InfoProvider      string
	InfoProviderType  string
	Attributes        map[string]string
	References        []QueryComponentRef
}

func addReferenceDedup(refs []QueryComponentRef, seen map[string]bool, ref QueryComponentRef) []QueryComponentRef {
	if ref.Name == "" {
		return refs
	}
	key := ref.Type + "|" + ref.Role + "|" + ref.Name
	if seen[key] {
		return refs
	}
	seen[key] = true
	return append(refs, ref)
}

func collectAttributes(n *xmlcodec.DOMNode) map[string]string {
	out := map[string]string{}
	for k, v := range n.Attrs {
		out[k] = v
	}
	return out
}

// collectReferencesRecursive walks every descendant looking for the
// structural reference element names ADT's query responses use.
func collectReferencesRecursive(n *xmlcodec.DOMNode, refs *[]QueryComponentRef) {
	if n == nil {
		return
	}
	switch n.Name {
	case "member", "reference", "component", "element":
		ref := QueryComponentRef{
			Name:       attrAny3(n, "name", "objectName", "compid"),
			Type:       attrAny3(n, "type", "objectType", "subType"),
			Role:       attrAny3(n, "role", "usage", "kind"),
			Attributes: collectAttributes(n),
		}
		if ref.Name != "" {
			*refs = append(*refs, ref)
		}
	}
	for _, c := range n.AllChildren() {
		collectReferencesRecursive(c, refs)
	}
}

func attrAny3(n *xmlcodec.DOMNode, a, b, c string) string {
	if v := n.Attr(a); v != "" {
		return v
	}
	if v := n.Attr(b); v != "" {
		return v
	}
	return n.Attr(c)
}

// collectQueryResourceReferences extracts the SAP query-runtime reference
// shapes: subComponents, rows/columns/free dimension nodes, filter
// selections, and default-hint members.
func collectQueryResourceReferences(root *xmlcodec.DOMNode, detail *QueryComponentDetail) {
	if root == nil {
		return
	}
	seen := map[string]bool{}
	for _, ref := range detail.References {
		seen[ref.Type+"|"+ref.Role+"|"+ref.Name] = true
	}

	for _, sub := range root.Children("subComponents") {
		ref := QueryComponentRef{
			Name:       attrAny3(sub, "technicalName", "adtCore:name", "name"),
			Type:       strings.ToUpper(attrAny3(sub, "xsi:type", "type", "type")),
			Role:       "subcomponent",
			Attributes: collectAttributes(sub),
		}
		detail.References = addReferenceDedup(detail.References, seen, ref)
	}

	main := root.Child("mainComponent")
	if main == nil {
		return
	}

	for _, role := range []string{"rows", "columns", "free"} {
		for _, child := range main.Children(role) {
			ref := QueryComponentRef{
				Name:       attrAny3(child, "infoObjectName", "technicalName", "name"),
				Type:       "DIMENSION",
				Role:       role,
				Attributes: collectAttributes(child),
			}
			detail.References = addReferenceDedup(detail.References, seen, ref)
		}
	}

	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		if n == nil {
			return
		}
		switch n.Name {
		case "selections":
			ref := QueryComponentRef{
				Name:       attrAny3(n, "infoObject", "infoObjectName", "name"),
				Type:       "FILTER_FIELD",
				Role:       "filter",
				Attributes: collectAttributes(n),
			}
			detail.References = addReferenceDedup(detail.References, seen, ref)
		case "members":
			ref := QueryComponentRef{
				Name:       n.Child("defaultHint").ChildText("value"),
				Type:       "MEMBER",
				Role:       "member",
				Attributes: collectAttributes(n),
			}
			detail.References = addReferenceDedup(detail.References, seen, ref)
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(main)
}

// ReadQueryComponent fetches and parses one query-family object, retrying
// with progressively older Accept media types on a 415 response.
func ReadQueryComponent(s session.Session, componentTypeRaw, name, version, contentTypeOverride string) (*QueryComponentDetail, *apperr.Error) {
	componentType := strings.ToUpper(componentTypeRaw)
	if !queryFamilyTypes[componentType] {
		return nil, apperr.New("BwReadQueryComponent", apperr.KindInternal, "unsupported query component type: "+componentTypeRaw)
	}
	if name == "" {
		return nil, apperr.New("BwReadQueryComponent", apperr.KindInternal, "component name must not be empty")
	}
	if version == "" {
		version = "A"
	}

	path := buildQueryObjectPath(name, version)
	accepts := acceptCandidates(componentType, contentTypeOverride)

	var statusCode int
	var body string
	var attempted []string
	var transportErr *apperr.Error
	for i, accept := range accepts {
		attempted = append(attempted, accept)
		resp, err := s.Get(path, map[string]string{"Accept": accept})
		if err != nil {
			transportErr = err
			break
		}
		if resp.StatusCode == 415 && i+1 < len(accepts) {
			continue
		}
		statusCode = resp.StatusCode
		body = resp.Body
		break
	}
	if transportErr != nil {
		return nil, transportErr
	}
	if statusCode == 404 {
		return nil, apperr.New("BwReadQueryComponent", apperr.KindNotFound, "BW query component not found: "+componentType+" "+name).WithEndpoint(path).WithHTTPStatus(404)
	}
	if statusCode != 200 {
		appErr := apperr.FromHTTPStatus("BwReadQueryComponent", path, statusCode, body)
		if statusCode == 415 && len(attempted) > 1 {
			appErr = appErr.WithHint("Tried Accept fallbacks: " + strings.Join(attempted, ", "))
		}
		return nil, appErr
	}

	root, perr := xmlcodec.ParseDocument(body)
	if perr != nil {
		return nil, apperr.New("BwReadQueryComponent", apperr.KindNotFound, "empty query component response").WithEndpoint(path)
	}

	detail := &QueryComponentDetail{
		ComponentType:    componentType,
		Name:             name,
		Description:      attrAny(root, "description", "objectDesc"),
		InfoProvider:     attrAny3(root, "infoProvider", "provider", "infoprovider"),
		InfoProviderType: attrAny3(root, "infoProviderType", "providerType", "infoproviderType"),
		Attributes:       collectAttributes(root),
	}
	collectReferencesRecursive(root, &detail.References)

	if root.Name == "queryResource" {
		if main := root.Child("mainComponent"); main != nil {
			if n := attrAny3(main, "technicalName", "name", "adtCore:name"); n != "" {
				detail.Name = n
			}
			if desc := main.Child("description"); desc != nil {
				if v := desc.Attr("value"); v != "" {
					detail.Description = v
				}
			}
			if p := attrAny3(main, "providerName", "provider", "infoProvider"); p != "" {
				detail.InfoProvider = p
			}
		}
		collectQueryResourceReferences(root, detail)
	}

	return detail, nil
}

// BuildQueryGraph turns a parsed query-component detail into a graph: one
// root node plus one node and one depends_on edge per discovered reference.
func BuildQueryGraph(detail QueryComponentDetail) *Graph {
	g := &Graph{RootType: detail.ComponentType, RootName: detail.Name}
	rootID := QueryNodeID(detail.ComponentType, detail.Name)

	rootAttrs := map[string]string{}
	for k, v := range detail.Attributes {
		rootAttrs[k] = v
	}
	if detail.Description != "" {
		rootAttrs["description"] = detail.Description
	}
	if detail.InfoProvider != "" {
		rootAttrs["info_provider"] = detail.InfoProvider
	}
	if detail.InfoProviderType != "" {
		rootAttrs["info_provider_type"] = detail.InfoProviderType
	}
	g.AddNode(Node{ID: rootID, Type: detail.ComponentType, Name: detail.Name, Role: RoleRoot, Attributes: rootAttrs})

	for i, ref := range detail.References {
		refID := "R" + strconv.Itoa(i+1)
		refType := ref.Type
		if refType == "" {
			refType = "REFERENCE"
		}
		g.AddNode(Node{ID: refID, Type: refType, Name: ref.Name, Role: ref.Role, Attributes: ref.Attributes})
		g.AddEdge(Edge{ID: "E" + strconv.Itoa(i+1), From: rootID, To: refID, Type: "depends_on", Attributes: map[string]string{"role": ref.Role}})
	}

	if len(detail.References) == 0 {
		g.Warnings = append(g.Warnings, "No references discovered")
	}
	g.Provenance = append(g.Provenance,
		ProvenanceEntry{Operation: "bw.read-query", Endpoint: buildQueryObjectPath(detail.Name, "A"), Status: "ok"},
		ProvenanceEntry{Operation: "adt.bw.query-component", Endpoint: buildQueryObjectPath(detail.Name, "A"), Status: "ok"})
	return g
}

// ReduceOptions parameterizes ReduceGraph.
type ReduceOptions struct {
	FocusRole       string // empty means apply to every role
	MaxNodesPerRole int    // 0 disables reduction
}

// ReduceSummary records one role's reduction outcome.
type ReduceSummary struct {
	Role          string
	SummaryNodeID string
	KeptNodeIDs   []string
	OmittedNodeIDs []string
}

// ReduceGraph caps each role's node count at MaxNodesPerRole, redirecting
// the excess to a synthetic "S_<ROLE>_MORE" summary node. Edges that would
// become self-loops after redirection are dropped; duplicate edges
// (same from/to/type/role) are deduped.
func ReduceGraph(g *Graph, opts ReduceOptions) (*Graph, []ReduceSummary) {
	if opts.MaxNodesPerRole == 0 {
		return g, nil
	}

	focusRole := strings.ToLower(opts.FocusRole)
	roleNodes := map[string][]string{}
	existingIDs := map[string]bool{}
	for _, n := range g.Nodes {
		existingIDs[n.ID] = true
		if n.Role == RoleRoot {
			continue
		}
		role := strings.ToLower(n.Role)
		if role == "" {
			continue
		}
		roleNodes[role] = append(roleNodes[role], n.ID)
	}

	omittedToSummary := map[string]string{}
	omitted := map[string]bool{}
	var synthetic []Node
	var summaries []ReduceSummary

	var roles []string
	for role := range roleNodes {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	for _, role := range roles {
		if focusRole != "" && role != focusRole {
			continue
		}
		ids := roleNodes[role]
		sort.Strings(ids)
		if len(ids) <= opts.MaxNodesPerRole {
			continue
		}

		kept := append([]string{}, ids[:opts.MaxNodesPerRole]...)
		omittedIDs := append([]string{}, ids[opts.MaxNodesPerRole:]...)

		summaryID := "S_" + SanitizeID(strings.ToUpper(role)) + "_MORE"
		if existingIDs[summaryID] {
			suffix := 2
			for existingIDs[summaryID+"_"+strconv.Itoa(suffix)] {
				suffix++
			}
			summaryID = summaryID + "_" + strconv.Itoa(suffix)
		}
		existingIDs[summaryID] = true

		synthetic = append(synthetic, Node{
			ID: summaryID, Type: "SUMMARY", Name: "+" + strconv.Itoa(len(omittedIDs)) + " more " + role, Role: role,
			Attributes: map[string]string{"synthetic": "true", "summary_role": role, "summary_count": strconv.Itoa(len(omittedIDs))},
		})

		for _, id := range omittedIDs {
			omitted[id] = true
			omittedToSummary[id] = summaryID
		}
		summaries = append(summaries, ReduceSummary{Role: role, SummaryNodeID: summaryID, KeptNodeIDs: kept, OmittedNodeIDs: omittedIDs})
	}

	if len(summaries) == 0 {
		return g, nil
	}

	reduced := &Graph{RootType: g.RootType, RootName: g.RootName, Warnings: g.Warnings, Provenance: g.Provenance}
	for _, n := range g.Nodes {
		if !omitted[n.ID] {
			reduced.Nodes = append(reduced.Nodes, n)
		}
	}
	reduced.Nodes = append(reduced.Nodes, synthetic...)
	sort.Slice(reduced.Nodes, func(i, j int) bool { return reduced.Nodes[i].ID < reduced.Nodes[j].ID })

	edgeKeys := map[string]bool{}
	for _, e := range g.Edges {
		from := e.From
		if s, ok := omittedToSummary[from]; ok {
			from = s
		}
		to := e.To
		if s, ok := omittedToSummary[to]; ok {
			to = s
		}
		if from == to {
			continue
		}
		key := from + "|" + to + "|" + e.Type + "|" + e.Attributes["role"]
		if edgeKeys[key] {
			continue
		}
		edgeKeys[key] = true
		out := e
		out.ID = "E" + strconv.Itoa(len(reduced.Edges)+1)
		out.From = from
		out.To = to
		reduced.Edges = append(reduced.Edges, out)
	}

	return reduced, summaries
}

// MergeQueryAndLineageGraph composes a query graph with the upstream
// lineage graph of its info provider: lineage nodes are remapped under an
// "L_" prefix, a provider node is synthesized if missing, an
// upstream_bridge edge links the provider (or root) to the lineage root,
// and every lineage edge becomes an upstream_lineage-typed edge in the
// merged graph.
func MergeQueryAndLineageGraph(queryGraph *Graph, detail QueryComponentDetail, lineage *Graph) *Graph {
	merged := &Graph{RootType: queryGraph.RootType, RootName: queryGraph.RootName,
		Nodes: append([]Node{}, queryGraph.Nodes...), Edges: append([]Edge{}, queryGraph.Edges...),
		Warnings: append([]string{}, queryGraph.Warnings...)}

	merged.Provenance = append(merged.Provenance, queryGraph.Provenance...)
	merged.Provenance = append(merged.Provenance, ProvenanceEntry{Operation: "bw.lineage.compose", Status: "ok"})
	for _, p := range lineage.Provenance {
		merged.Provenance = append(merged.Provenance, ProvenanceEntry{
			Operation: "lineage:" + p.Operation, Endpoint: p.Endpoint, Status: p.Status,
		})
	}

	nodeIDs := map[string]bool{}
	for _, n := range merged.Nodes {
		nodeIDs[n.ID] = true
	}
	edgeKeys := map[string]bool{}
	for _, e := range merged.Edges {
		edgeKeys[e.From+"|"+e.To+"|"+e.Type+"|"+e.Attributes["role"]] = true
	}

	rootID := QueryNodeID(queryGraph.RootType, queryGraph.RootName)

	var providerID string
	if detail.InfoProvider != "" {
		providerID = "N_PROVIDER_" + SanitizeID(detail.InfoProvider)
		if !nodeIDs[providerID] {
			pType := detail.InfoProviderType
			if pType == "" {
				pType = "INFOPROVIDER"
			}
			merged.Nodes = append(merged.Nodes, Node{
				ID: providerID, Type: pType, Name: detail.InfoProvider, Role: RoleProvider,
				Attributes: map[string]string{"composed": "true"},
			})
			nodeIDs[providerID] = true
		}
		key := rootID + "|" + providerID + "|depends_on|provider"
		if !edgeKeys[key] {
			merged.Edges = append(merged.Edges, Edge{
				ID: "E" + strconv.Itoa(len(merged.Edges)+1), From: rootID, To: providerID, Type: "depends_on",
				Attributes: map[string]string{"role": "provider"},
			})
			edgeKeys[key] = true
		}
	}

	lineageIDMap := map[string]string{}
	var lineageRootID string
	for _, ln := range lineage.Nodes {
		base := ln.ID
		if base == "" {
			base = ln.Type + "_" + ln.Name
		}
		mappedID := "L_" + SanitizeID(base)
		if nodeIDs[mappedID] {
			reusable := false
			for _, existing := range merged.Nodes {
				if existing.ID == mappedID && existing.Type == ln.Type && existing.Name == ln.Name {
					reusable = true
					break
				}
			}
			if !reusable {
				suffix := 2
				for nodeIDs[mappedID+"_"+strconv.Itoa(suffix)] {
					suffix++
				}
				mappedID = mappedID + "_" + strconv.Itoa(suffix)
				nodeIDs[mappedID] = true
			}
		} else {
			nodeIDs[mappedID] = true
		}
		lineageIDMap[ln.ID] = mappedID

		exists := false
		for _, existing := range merged.Nodes {
			if existing.ID == mappedID {
				exists = true
				break
			}
		}
		if !exists {
			role := ln.Role
			if role == "" {
				role = "lineage"
			}
			attrs := map[string]string{}
			for k, v := range ln.Attributes {
				attrs[k] = v
			}
			attrs["uri"] = ln.Uri
			attrs["version"] = ln.Version
			attrs["composed"] = "true"
			merged.Nodes = append(merged.Nodes, Node{ID: mappedID, Type: ln.Type, Name: ln.Name, Role: "upstream_" + role, Attributes: attrs})
		}

		if strings.EqualFold(ln.Type, lineage.RootType) && ln.Name == lineage.RootName {
			lineageRootID = mappedID
		}
	}

	for _, le := range lineage.Edges {
		from, ok1 := lineageIDMap[le.From]
		to, ok2 := lineageIDMap[le.To]
		if !ok1 || !ok2 {
			continue
		}
		key := from + "|" + to + "|upstream_lineage|" + le.Type
		if edgeKeys[key] {
			continue
		}
		edgeKeys[key] = true
		attrs := map[string]string{}
		for k, v := range le.Attributes {
			attrs[k] = v
		}
		attrs["source_lineage_root"] = lineage.RootName
		merged.Edges = append(merged.Edges, Edge{
			ID: "E" + strconv.Itoa(len(merged.Edges)+1), From: from, To: to, Type: EdgeUpstreamLineage,
			Attributes: attrs,
		})
	}

	if lineageRootID != "" {
		from := providerID
		if from == "" {
			from = rootID
		}
		key := from + "|" + lineageRootID + "|upstream_bridge|lineage_root"
		if !edgeKeys[key] {
			merged.Edges = append(merged.Edges, Edge{
				ID: "E" + strconv.Itoa(len(merged.Edges)+1), From: from, To: lineageRootID, Type: EdgeUpstreamBridge,
				Attributes: map[string]string{"source_lineage_root": lineage.RootName},
			})
		}
	}

	return merged
}
