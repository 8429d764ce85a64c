package bw

import (
	"net/url"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

// DataFlowNode is one participant in a modeled data flow.
type DataFlowNode struct {
	Name       string
	Type       string
	Attributes map[string]string
}

// DataFlowEdge is one connection in a modeled data flow.
type DataFlowEdge struct {
	From string
	To   string
	Type string
}

// DataFlowDetail is the parsed data flow topology of a DMOD object.
type DataFlowDetail struct {
	Name        string
	Description string
	Nodes       []DataFlowNode
	Edges       []DataFlowEdge
}

// ReadDataFlow fetches a data flow object and parses its topology: node
// elements become DataFlowNodes, connection elements (with source/target
// refs) become DataFlowEdges.
func ReadDataFlow(s session.Session, name, version string) (*DataFlowDetail, *apperr.Error) {
	path := "/sap/bw/modeling/dmod/" + url.PathEscape(strings.ToLower(name)) + "/" + url.PathEscape(version)
	resp, err := s.Get(path, map[string]string{"Accept": "application/vnd.sap.bw.modeling.dmod+xml, application/xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 404 {
		return nil, apperr.New("BwReadDataFlow", apperr.KindNotFound, "data flow not found: "+name).WithEndpoint(path).WithHTTPStatus(404)
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("BwReadDataFlow", path, resp.StatusCode, resp.Body)
	}

	root, perr := xmlcodec.ParseDocument(resp.Body)
	if perr != nil {
		return nil, apperr.New("BwReadDataFlow", apperr.KindInternal, "failed to parse data flow XML: "+perr.Error()).WithEndpoint(path)
	}

	detail := &DataFlowDetail{
		Name:        attrOrChild(root, "objectName"),
		Description: attrOrChild(root, "objectDesc"),
	}
	if detail.Name == "" {
		detail.Name = name
	}

	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		lower := strings.ToLower(n.Name)
		switch {
		case strings.Contains(lower, "node"):
			nodeName := attrOrChild(n, "objectName")
			if nodeName == "" {
				nodeName = attrOrChild(n, "name")
			}
			if nodeName != "" {
				attrs := make(map[string]string, len(n.Attrs))
				for k, v := range n.Attrs {
					attrs[k] = v
				}
				detail.Nodes = append(detail.Nodes, DataFlowNode{
					Name:       nodeName,
					Type:       attrOrChild(n, "objectType"),
					Attributes: attrs,
				})
			}
		case strings.Contains(lower, "connection") || strings.Contains(lower, "edge"):
			from := attrOrChild(n, "source")
			to := attrOrChild(n, "target")
			if from != "" && to != "" {
				detail.Edges = append(detail.Edges, DataFlowEdge{
					From: from,
					To:   to,
					Type: attrOrChild(n, "connectionType"),
				})
			}
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	for _, c := range root.AllChildren() {
		walk(c)
	}
	return detail, nil
}
