package bw

import "strings"

// AddNode appends node unless its ID is empty or already present. Returns
// true if the node was added.
func (g *Graph) AddNode(n Node) bool {
	if n.ID == "" || g.HasNode(n.ID) {
		return false
	}
	g.Nodes = append(g.Nodes, n)
	return true
}

// AddEdge appends edge unless its ID is empty or already present. Returns
// true if the edge was added.
func (g *Graph) AddEdge(e Edge) bool {
	if e.ID == "" || g.HasEdge(e.ID) {
		return false
	}
	g.Edges = append(g.Edges, e)
	return true
}

// HasNode reports whether id is already present in the graph.
func (g *Graph) HasNode(id string) bool {
	for _, n := range g.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// HasEdge reports whether id is already present in the graph.
func (g *Graph) HasEdge(id string) bool {
	for _, e := range g.Edges {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Node returns the node with the given ID, or nil if absent.
func (g *Graph) Node(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// NodesWithRole returns every node whose Role equals role, in graph order.
func (g *Graph) NodesWithRole(role string) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Role == role {
			out = append(out, n)
		}
	}
	return out
}

// EdgesFrom returns every edge whose From equals id.
func (g *Graph) EdgesFrom(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// EdgesTo returns every edge whose To equals id.
func (g *Graph) EdgesTo(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// ObjectNodeID builds the "obj:<type>:<name>" id used for object-level nodes.
func ObjectNodeID(objectType, name string) string {
	return "obj:" + objectType + ":" + name
}

// FieldNodeID builds the "field:<type>:<object>:<field>" id used for
// field-level nodes.
func FieldNodeID(objectType, objectName, fieldName string) string {
	return "field:" + objectType + ":" + objectName + ":" + fieldName
}

// SanitizeID replaces every character that is not alphanumeric, '_', or '-'
// with '_', for use inside a query-graph node id.
func SanitizeID(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// QueryNodeID builds the "N_<TYPE>_<SANITIZED_NAME>" id used for query
// graph component nodes.
func QueryNodeID(componentType, name string) string {
	return "N_" + componentType + "_" + SanitizeID(name)
}
