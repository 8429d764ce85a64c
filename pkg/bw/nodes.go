package bw

import (
	"net/url"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const (
	infoProviderStructurePath = "/sap/bw/modeling/repo/infoproviderstructure"
	dataSourceStructurePath   = "/sap/bw/modeling/repo/datasourcestructure"
)

// NodeEntry is one child entity discovered under a BW container (infoarea,
// semanticalFolder, or data source structure), parsed from the atom feed
// GetNodes returns.
type NodeEntry struct {
	Name        string
	Type        string
	Subtype     string
	Version     string
	Status      string
	Description string
	Uri         string
}

// NodesOptions parameterizes GetNodes.
type NodesOptions struct {
	ObjectType        string
	ObjectName        string
	ChildName         string
	ChildType         string
	Datasource        bool
	EndpointOverride  string
}

func buildNodesUrl(opts NodesOptions) string {
	if opts.EndpointOverride != "" {
		return opts.EndpointOverride
	}

	base := infoProviderStructurePath
	if opts.Datasource {
		base = dataSourceStructurePath
	}
	u := base + "/" + url.PathEscape(opts.ObjectType) + "/" + url.PathEscape(opts.ObjectName)

	var params []string
	if opts.ChildName != "" {
		params = append(params, "childName="+url.QueryEscape(opts.ChildName))
	}
	if opts.ChildType != "" {
		params = append(params, "childType="+url.QueryEscape(opts.ChildType))
	}
	if len(params) > 0 {
		u += "?" + strings.Join(params, "&")
	}
	return u
}

// attrAny looks up a namespaced attribute variant first, then the plain
// variant, since the server does not declare prefixes consistently.
func attrAny(n *xmlcodec.DOMNode, namespaced, plain string) string {
	if v := n.Attr(namespaced); v != "" {
		return v
	}
	return n.Attr(plain)
}

func parseNodesResponse(body string) ([]NodeEntry, *apperr.Error) {
	root, err := xmlcodec.ParseDocument(body)
	if err != nil {
		// An empty or malformed nodes feed is treated as "no children" rather
		// than a hard failure, matching the original's root-is-nil handling.
		return nil, nil
	}

	var results []NodeEntry
	for _, entry := range root.Children("entry") {
		r := NodeEntry{
			Description: entry.ChildText("title"),
			Uri:         entry.ChildText("id"),
		}

		if content := entry.Child("content"); content != nil {
			if props := content.Child("properties"); props != nil {
				r.Name = attrAny(props, "bwModel:objectName", "objectName")
				r.Type = attrAny(props, "bwModel:objectType", "objectType")
				r.Subtype = attrAny(props, "bwModel:objectSubtype", "objectSubtype")
				r.Version = attrAny(props, "bwModel:objectVersion", "objectVersion")
				r.Status = attrAny(props, "bwModel:objectStatus", "objectStatus")
				if r.Description == "" {
					r.Description = attrAny(props, "bwModel:objectDesc", "objectDesc")
				}
			}
		}

		for _, link := range entry.Children("link") {
			if link.Attr("rel") == "self" {
				if href := link.Attr("href"); href != "" && r.Uri == "" {
					r.Uri = href
				}
			}
		}

		if r.Name != "" {
			results = append(results, r)
		}
	}
	return results, nil
}

// GetNodes lists the direct children of a BW container (infoarea,
// semanticalFolder, or data source). Every structural walk in the graph
// assembler is built out of repeated calls to this one operation.
func GetNodes(s session.Session, opts NodesOptions) ([]NodeEntry, *apperr.Error) {
	if opts.ObjectType == "" {
		return nil, apperr.New("BwGetNodes", apperr.KindInternal, "object type must not be empty")
	}
	if opts.ObjectName == "" {
		return nil, apperr.New("BwGetNodes", apperr.KindInternal, "object name must not be empty")
	}

	u := buildNodesUrl(opts)
	resp, err := s.Get(u, map[string]string{"Accept": "application/atom+xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("BwGetNodes", u, resp.StatusCode, resp.Body).
			WithHint("BW modeling endpoints return 404 for containers with no children in some SAP releases; treat as empty rather than retry")
	}

	return parseNodesResponse(resp.Body)
}
