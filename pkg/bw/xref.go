package bw

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const xrefPath = "/sap/bw/modeling/repo/is/xref"

// XrefOptions parameterizes GetXrefs.
type XrefOptions struct {
	ObjectType    string
	ObjectName    string
	ObjectVersion string
	MaxResults    int
}

// XrefItem is one downstream consumer reported by the cross-reference
// endpoint for an infoprovider.
type XrefItem struct {
	Type              string
	Name              string
	Uri               string
	Version           string
	Description       string
	AssociationType   string
	AssociationLabel  string
}

func parseXrefResponse(body string) ([]XrefItem, *apperr.Error) {
	root, err := xmlcodec.ParseDocument(body)
	if err != nil {
		return nil, newGraphError("BwGetXrefs", "failed to parse xref response: "+err.Error())
	}

	var items []XrefItem
	for _, entry := range root.Children("entry") {
		item := XrefItem{Uri: entry.ChildText("id")}
		if content := entry.Child("content"); content != nil {
			if props := content.Child("properties"); props != nil {
				item.Type = attrAny(props, "bwModel:objectType", "objectType")
				item.Name = attrAny(props, "bwModel:objectName", "objectName")
				item.Version = attrAny(props, "bwModel:objectVersion", "objectVersion")
				item.Description = attrAny(props, "bwModel:objectDesc", "objectDesc")
				item.AssociationType = attrAny(props, "bwModel:associationType", "associationType")
				item.AssociationLabel = attrAny(props, "bwModel:associationLabel", "associationLabel")
			}
		}
		if item.Name != "" {
			items = append(items, item)
		}
	}
	return items, nil
}

// GetXrefs lists the objects that reference a given infoprovider, used to
// extend a lineage graph downstream of its target object.
func GetXrefs(s session.Session, opts XrefOptions) ([]XrefItem, *apperr.Error) {
	if opts.ObjectType == "" || opts.ObjectName == "" {
		return nil, apperr.New("BwGetXrefs", apperr.KindInternal, "object type and name must not be empty")
	}
	version := opts.ObjectVersion
	if version == "" {
		version = "A"
	}
	u := fmt.Sprintf("%s?objectType=%s&objectName=%s&objectVersion=%s",
		xrefPath, url.QueryEscape(opts.ObjectType), url.QueryEscape(opts.ObjectName), url.QueryEscape(version))
	if opts.MaxResults > 0 {
		u += "&maxResults=" + strconv.Itoa(opts.MaxResults)
	}

	resp, err := s.Get(u, map[string]string{"Accept": "application/atom+xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("BwGetXrefs", u, resp.StatusCode, resp.Body)
	}
	return parseXrefResponse(resp.Body)
}

// addXrefEdges extends g with xref_object nodes and xref edges fanning out
// from the DTP's target node, for every consumer the xref endpoint reports.
// Failures here are recorded as warnings/partial provenance rather than
// aborting, since lineage without cross-references is still useful.
func addXrefEdges(g *Graph, s session.Session, dtp DtpDetail, maxXref int) {
	if dtp.TargetType == "" || dtp.TargetName == "" {
		return
	}
	items, err := GetXrefs(s, XrefOptions{ObjectType: dtp.TargetType, ObjectName: dtp.TargetName, ObjectVersion: "A", MaxResults: maxXref})
	if err != nil {
		g.Warnings = append(g.Warnings, "XREF read failed; graph excludes downstream references")
		g.Provenance = append(g.Provenance, ProvenanceEntry{Operation: "BwGetXrefs", Endpoint: xrefPath, Status: "partial"})
		return
	}
	g.Provenance = append(g.Provenance, ProvenanceEntry{Operation: "BwGetXrefs", Endpoint: xrefPath, Status: "ok"})

	tgtNodeID := ObjectNodeID(dtp.TargetType, dtp.TargetName)
	for i, item := range items {
		id := ObjectNodeID(item.Type, item.Name)
		g.AddNode(Node{ID: id, Type: item.Type, Name: item.Name, Role: "xref_object", Uri: item.Uri, Version: item.Version,
			Attributes: map[string]string{"description": item.Description}})
		g.AddEdge(Edge{
			ID: fmt.Sprintf("edge:xref:%d", i+1), From: tgtNodeID, To: id, Type: EdgeXref,
			Attributes: map[string]string{"association_type": item.AssociationType, "association_label": item.AssociationLabel},
		})
	}
}
