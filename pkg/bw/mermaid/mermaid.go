// Package mermaid renders BW graphs (query graphs and infoarea dataflow
// graphs) as Mermaid flowchart text, grounded on the original client's
// BwRenderQueryGraphMermaid.
package mermaid

import (
	"fmt"
	"sort"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/bw"
)

// Options parameterizes RenderQueryGraph.
type Options struct {
	Direction string // "LR" or "TD" (default)
	Layout    string // "detailed" groups nodes into role subgraphs; anything else is flat
}

func esc(s string) string {
	return strings.ReplaceAll(s, `"`, `#quot;`)
}

func label(n bw.Node) string {
	l := n.Name
	if n.Type != "" && n.Type != "REFERENCE" {
		l = n.Type + ": " + n.Name
	}
	if desc := n.Attributes["description"]; desc != "" {
		l = n.Name + "<br/>" + desc
	}
	return l
}

// RenderQueryGraph renders a query graph (built by pkg/bw.BuildQueryGraph,
// possibly reduced and merged with upstream lineage) as Mermaid flowchart
// text. In "detailed" layout, rows/columns/free/filter/member/subcomponent
// nodes are grouped into their own subgraphs with a role-specific class;
// otherwise every non-root node lands in one "References" subgraph.
func RenderQueryGraph(g *bw.Graph, opts Options) string {
	direction := "TD"
	if strings.ToUpper(opts.Direction) == "LR" {
		direction = "LR"
	}
	layout := strings.ToLower(opts.Layout)

	rootID := bw.QueryNodeID(g.RootType, g.RootName)

	nodes := append([]bw.Node{}, g.Nodes...)
	edges := append([]bw.Edge{}, g.Edges...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	var out strings.Builder
	fmt.Fprintf(&out, "graph %s\n", direction)

	if layout == "detailed" {
		out.WriteString("  classDef query fill:#f6f1d3,stroke:#333,stroke-width:2px;\n")
		out.WriteString("  classDef row fill:#e8f4ff,stroke:#4a90e2;\n")
		out.WriteString("  classDef col fill:#fff0e1,stroke:#e67e22;\n")
		out.WriteString("  classDef free fill:#eafaf1,stroke:#27ae60;\n")
		out.WriteString("  classDef filt fill:#fdecea,stroke:#c0392b;\n")
		out.WriteString("  classDef member fill:#f4ecf7,stroke:#8e44ad;\n")
		out.WriteString("  classDef subc fill:#f0f3f4,stroke:#7f8c8d;\n")
	}

	out.WriteString("  subgraph Query\n")
	for _, n := range nodes {
		if n.ID != rootID {
			continue
		}
		fmt.Fprintf(&out, "    %s[\"%s\"]\n", n.ID, esc(label(n)))
	}
	out.WriteString("  end\n")

	if layout == "detailed" {
		emitGroup := func(title, role, className string) {
			var ids []string
			fmt.Fprintf(&out, "  subgraph %s\n", title)
			for _, n := range nodes {
				if n.ID == rootID || strings.ToLower(n.Role) != role {
					continue
				}
				fmt.Fprintf(&out, "    %s[\"%s\"]\n", n.ID, esc(label(n)))
				ids = append(ids, n.ID)
			}
			out.WriteString("  end\n")
			if len(ids) > 0 {
				fmt.Fprintf(&out, "  class %s %s;\n", strings.Join(ids, ","), className)
			}
		}
		emitGroup("Rows", "rows", "row")
		emitGroup("Columns", "columns", "col")
		emitGroup("Free", "free", "free")
		emitGroup("Filters", "filter", "filt")
		emitGroup("Members", "member", "member")
		emitGroup("Subcomponents", "subcomponent", "subc")

		var otherIDs []string
		out.WriteString("  subgraph References\n")
		for _, n := range nodes {
			if n.ID == rootID {
				continue
			}
			role := strings.ToLower(n.Role)
			if role == "rows" || role == "columns" || role == "free" || role == "filter" || role == "member" || role == "subcomponent" {
				continue
			}
			fmt.Fprintf(&out, "    %s[\"%s\"]\n", n.ID, esc(label(n)))
			otherIDs = append(otherIDs, n.ID)
		}
		out.WriteString("  end\n")
		if len(otherIDs) > 0 {
			fmt.Fprintf(&out, "  class %s subc;\n", strings.Join(otherIDs, ","))
		}
		if rootID != "" {
			fmt.Fprintf(&out, "  class %s query;\n", rootID)
		}
	} else {
		out.WriteString("  subgraph References\n")
		for _, n := range nodes {
			if n.ID == rootID {
				continue
			}
			fmt.Fprintf(&out, "    %s[\"%s\"]\n", n.ID, esc(label(n)))
		}
		out.WriteString("  end\n")
	}

	for _, e := range edges {
		if role := e.Attributes["role"]; role != "" {
			fmt.Fprintf(&out, "  %s -- \"%s\" --> %s\n", e.From, esc(role), e.To)
		} else {
			fmt.Fprintf(&out, "  %s --> %s\n", e.From, e.To)
		}
	}
	if len(edges) == 0 && rootID != "" {
		fmt.Fprintf(&out, "  %s --> NOREF[\"No references discovered\"]\n", rootID)
	}
	out.WriteString("\n")
	return out.String()
}

// infrastructureTypes are suppressed as standalone dataflow nodes; they are
// still visitable via their edges but never get their own box.
var infrastructureTypes = map[string]bool{"DTPA": true, "TRFN": true, "IOBJ": true}

// dataflowLabel truncates the description to 40 characters to keep
// §4.5's infoarea Mermaid rendering rule.
func dataflowLabel(n bw.Node) string {
	desc := n.Attributes["description"]
	if len(desc) > 40 {
		desc = desc[:40]
	}
	if desc == "" {
		return esc(n.Name)
	}
	return esc(n.Name) + "<br/>" + esc(desc)
}

func hasEdge(edges []bw.Edge, id string) bool {
	for _, e := range edges {
		if e.From == id || e.To == id {
			return true
		}
	}
	return false
}

// roleAbbr maps an elem-provider query reference role to the short suffix
// used on iobj_edges labels.
func roleAbbr(role string) string {
	switch strings.ToLower(role) {
	case "rows", "columns", "free":
		return "dim"
	case "filter":
		return "filter"
	case "variable":
		return "var"
	case "keyfigure", "kf":
		return "kf"
	default:
		return role
	}
}

// RenderDataflowGraph renders an infoarea export's merged dataflow graph
// (RSDS/ADSO/DSO/CUBE/MPRO/QUERY objects plus optional IOBJ nodes) as a
// Mermaid flowchart grouped by object-type family.
// Infrastructure types (DTPA, TRFN, IOBJ, and ELEM without edges) never get
// their own node; an ELEM with at least one edge stands in for a query.
func RenderDataflowGraph(g *bw.Graph, includeInfoObjects, iobjEdges bool) string {
	var out strings.Builder
	out.WriteString("graph LR\n")
	out.WriteString("%%{init: {'curve': 'basis'}}%%\n")

	isVisible := func(n bw.Node) bool {
		if infrastructureTypes[n.Type] {
			return false
		}
		if n.Type == "ELEM" && !hasEdge(g.Edges, n.ID) {
			return false
		}
		if n.Type == "IOBJ" && !includeInfoObjects {
			return false
		}
		return true
	}

	emit := func(title string, match func(bw.Node) bool) {
		var ids []string
		for _, n := range g.Nodes {
			if isVisible(n) && match(n) {
				ids = append(ids, n.ID)
			}
		}
		if len(ids) == 0 {
			return
		}
		sort.Strings(ids)
		fmt.Fprintf(&out, "  subgraph %s\n", title)
		for _, id := range ids {
			n := g.Node(id)
			fmt.Fprintf(&out, "    %s[\"%s\"]\n", id, dataflowLabel(*n))
		}
		out.WriteString("  end\n")
	}

	emit("Sources (RSDS)", func(n bw.Node) bool { return n.Type == "RSDS" })
	emit(fmt.Sprintf("Staging[%s] (ADSO/DSO)", g.RootName), func(n bw.Node) bool { return n.Type == "ADSO" || n.Type == "DSO" })
	emit("InfoCubes (CUBE/HCPR)", func(n bw.Node) bool { return n.Type == "CUBE" || n.Type == "HCPR" })
	emit("MultiProviders (MPRO/VRRC)", func(n bw.Node) bool { return n.Type == "MPRO" || n.Type == "VRRC" })
	emit("Queries (QUERY/ELEM-with-edges)", func(n bw.Node) bool { return n.Type == "QUERY" || n.Type == "ELEM" })
	if includeInfoObjects {
		emit("InfoObjects", func(n bw.Node) bool { return n.Type == "IOBJ" })
	}

	edgeCount := 0
	for _, e := range g.Edges {
		fromVisible, toVisible := false, false
		if from := g.Node(e.From); from != nil {
			fromVisible = isVisible(*from)
		}
		if to := g.Node(e.To); to != nil {
			toVisible = isVisible(*to)
		}
		if !fromVisible || !toVisible {
			continue
		}
		edgeCount++
		if iobjEdges && e.Type == bw.EdgeElemProvider {
			fmt.Fprintf(&out, "  %s -->|%s| %s\n", e.From, roleAbbr(e.Attributes["role"]), e.To)
		} else {
			fmt.Fprintf(&out, "  %s --> %s\n", e.From, e.To)
		}
	}

	if edgeCount == 0 {
		// Fall back to DTP objects rendered as labeled edges when the
		// dataflow graph has no direct edges to show.
		for _, n := range g.Nodes {
			if n.Type != "DTPA" {
				continue
			}
			for _, e := range g.EdgesTo(n.ID) {
				for _, e2 := range g.EdgesFrom(n.ID) {
					fmt.Fprintf(&out, "  %s -->|%s| %s\n", e.From, n.Name, e2.To)
				}
			}
		}
	}

	out.WriteString("\n")
	return out.String()
}
