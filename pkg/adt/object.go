package adt

import (
	"net/url"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/types"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

// GetObjectStructure reads an object's metadata and includes.
func GetObjectStructure(s session.Session, uri types.ObjectUri) (*ObjectStructure, *apperr.Error) {
	path := uri.String()
	resp, err := s.Get(path, map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 404 {
		return nil, apperr.New("GetObjectStructure", apperr.KindNotFound, "object not found").WithEndpoint(path).WithHTTPStatus(404)
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("GetObjectStructure", path, resp.StatusCode, resp.Body)
	}
	return parseObjectStructure(resp.Body, path)
}

func parseObjectStructure(body, uri string) (*ObjectStructure, *apperr.Error) {
	root, err := xmlcodec.ParseDocument(body)
	if err != nil {
		return nil, apperr.New("GetObjectStructure", apperr.KindInternal, "failed to parse object XML: "+err.Error()).WithEndpoint(uri)
	}

	obj := &ObjectStructure{Info: ObjectInfo{
		Name:        root.Attr("name"),
		Type:        root.Attr("type"),
		Uri:         uri,
		Description: root.Attr("description"),
		Version:     root.Attr("version"),
		Responsible: root.Attr("responsible"),
		ChangedBy:   root.Attr("changedBy"),
	}}

	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		switch n.Name {
		case "include":
			inc := ObjectInclude{
				Name:        n.Attr("name"),
				Type:        n.Attr("type"),
				IncludeType: n.Attr("includeType"),
			}
			for _, link := range n.Children("link") {
				rel := link.Attr("rel")
				if rel == "" || strings.Contains(rel, "source") {
					if inc.SourceUri == "" {
						inc.SourceUri = link.Attr("href")
					}
				}
			}
			obj.Includes = append(obj.Includes, inc)
		case "link":
			if strings.Contains(n.Attr("href"), "/source/main") && obj.Info.SourceUri == "" {
				obj.Info.SourceUri = n.Attr("href")
			}
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(root)

	if obj.Info.SourceUri == "" {
		obj.Info.SourceUri = uri + "/source/main"
	}
	return obj, nil
}

// collectionPathForType maps an object type onto the ADT collection that
// creates it. Only the types the CLI and MCP surface support are listed.
func collectionPathForType(objectType string) (string, bool) {
	category := objectType
	if i := strings.IndexByte(objectType, '/'); i >= 0 {
		category = objectType[:i]
	}
	switch strings.ToUpper(category) {
	case "CLAS":
		return "/sap/bc/adt/oo/classes", true
	case "INTF":
		return "/sap/bc/adt/oo/interfaces", true
	case "PROG":
		return "/sap/bc/adt/programs/programs", true
	case "FUGR":
		return "/sap/bc/adt/functions/groups", true
	case "DDLS":
		return "/sap/bc/adt/ddic/ddl/sources", true
	default:
		return "", false
	}
}

func createBodyForType(objectType string, params CreateObjectParams) string {
	esc := func(s string) string {
		r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
		return r.Replace(s)
	}
	category := objectType
	if i := strings.IndexByte(objectType, '/'); i >= 0 {
		category = objectType[:i]
	}
	var rootElem, ns string
	switch strings.ToUpper(category) {
	case "CLAS":
		rootElem, ns = "class:abapClass", `xmlns:class="http://www.sap.com/adt/oo/classes"`
	case "INTF":
		rootElem, ns = "intf:abapInterface", `xmlns:intf="http://www.sap.com/adt/oo/interfaces"`
	case "PROG":
		rootElem, ns = "program:abapProgram", `xmlns:program="http://www.sap.com/adt/programs/programs"`
	case "FUGR":
		rootElem, ns = "group:abapFunctionGroup", `xmlns:group="http://www.sap.com/adt/functions/groups"`
	default:
		rootElem, ns = "ddl:ddlSource", `xmlns:ddl="http://www.sap.com/adt/ddic/ddlsources"`
	}
	return `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		"<" + rootElem + " " + ns + ` xmlns:adtcore="http://www.sap.com/adt/core"` +
		` adtcore:name="` + esc(params.Name) + `"` +
		` adtcore:type="` + esc(objectType) + `"` +
		` adtcore:description="` + esc(params.Description) + `">` + "\n" +
		`  <adtcore:packageRef adtcore:name="` + esc(params.PackageName) + `"/>` + "\n" +
		"</" + rootElem + ">\n"
}

// CreateObject creates a new repository object and returns its URI.
func CreateObject(s session.Session, params CreateObjectParams) (types.ObjectUri, *apperr.Error) {
	collection, ok := collectionPathForType(params.ObjectType)
	if !ok {
		return types.ObjectUri{}, apperr.New("CreateObject", apperr.KindInternal,
			"unsupported object type: "+params.ObjectType)
	}

	path := collection
	if params.TransportNumber != "" {
		path += "?corrNr=" + url.QueryEscape(params.TransportNumber)
	}
	body := createBodyForType(params.ObjectType, params)

	resp, err := s.Post(path, []byte(body), "application/xml", map[string]string{"Accept": "application/xml"})
	if err != nil {
		return types.ObjectUri{}, err
	}
	if resp.StatusCode != 200 && resp.StatusCode != 201 {
		return types.ObjectUri{}, apperr.FromHTTPStatus("CreateObject", path, resp.StatusCode, resp.Body)
	}

	if location, ok := resp.Headers.Get("location"); ok && location != "" {
		if uri, uerr := types.NewObjectUri(location); uerr == nil {
			return uri, nil
		}
	}
	uri, uerr := types.NewObjectUri(collection + "/" + strings.ToLower(params.Name))
	if uerr != nil {
		return types.ObjectUri{}, apperr.New("CreateObject", apperr.KindInternal, uerr.Error())
	}
	return uri, nil
}

// DeleteObject deletes an object using an already-held lock handle.
func DeleteObject(s session.Session, uri types.ObjectUri, handle types.LockHandle, transport string) *apperr.Error {
	path := uri.String() + "?lockHandle=" + url.QueryEscape(handle.String())
	if transport != "" {
		path += "&corrNr=" + url.QueryEscape(transport)
	}
	resp, err := s.Delete(path, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 && resp.StatusCode != 204 {
		return apperr.FromHTTPStatus("DeleteObject", path, resp.StatusCode, resp.Body)
	}
	return nil
}
