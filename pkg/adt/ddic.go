package adt

import (
	"net/url"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/types"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const nodeStructurePath = "/sap/bc/adt/repository/nodestructure"

// ListPackageContents lists the direct members of a package, one level deep.
func ListPackageContents(s session.Session, packageName string) ([]PackageEntry, *apperr.Error) {
	path := nodeStructurePath + "?parent_type=DEVC/K&parent_name=" + url.QueryEscape(packageName) + "&withShortDescriptions=true"
	resp, err := s.Post(path, nil, "application/xml", map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("ListPackageContents", path, resp.StatusCode, resp.Body)
	}
	return parseNodeStructure(resp.Body)
}

// parseNodeStructure navigates asx:abap > asx:values > DATA > TREE_CONTENT
// > SEU_ADT_REPOSITORY_OBJ_NODE entries.
func parseNodeStructure(body string) ([]PackageEntry, *apperr.Error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	root, err := xmlcodec.ParseDocument(body)
	if err != nil {
		return nil, apperr.New("ListPackageContents", apperr.KindInternal, "failed to parse node structure XML: "+err.Error())
	}

	values := root.FirstChild()
	if values == nil {
		return nil, nil
	}
	data := values.Child("DATA")
	if data == nil {
		return nil, nil
	}
	tree := data.Child("TREE_CONTENT")
	if tree == nil {
		return nil, nil
	}

	var entries []PackageEntry
	for _, node := range tree.Children("SEU_ADT_REPOSITORY_OBJ_NODE") {
		entry := PackageEntry{
			ObjectType:  node.ChildText("OBJECT_TYPE"),
			ObjectName:  node.ChildText("OBJECT_NAME"),
			ObjectUri:   node.ChildText("OBJECT_URI"),
			Description: node.ChildText("DESCRIPTION"),
			Expandable:  node.ChildText("EXPANDABLE") == "X",
		}
		if entry.ObjectName != "" {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// ListPackageTree walks a package hierarchy breadth-first, returning every
// non-package object up to MaxDepth levels deep, tagged with the package
// it was found in.
func ListPackageTree(s session.Session, opts PackageTreeOptions) ([]PackageEntry, *apperr.Error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 50
	}

	type queueItem struct {
		pkg   string
		depth int
	}
	queue := []queueItem{{pkg: opts.RootPackage}}
	visited := map[string]bool{opts.RootPackage: true}

	var results []PackageEntry
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		contents, err := ListPackageContents(s, item.pkg)
		if err != nil {
			return nil, err
		}
		for _, entry := range contents {
			if entry.ObjectType == "DEVC/K" {
				if item.depth+1 < maxDepth && !visited[entry.ObjectName] {
					visited[entry.ObjectName] = true
					queue = append(queue, queueItem{pkg: entry.ObjectName, depth: item.depth + 1})
				}
				continue
			}
			if opts.TypeFilter != "" && !strings.HasPrefix(entry.ObjectType, opts.TypeFilter) {
				continue
			}
			entry.PackageName = item.pkg
			results = append(results, entry)
		}
	}
	return results, nil
}

// GetTableDefinition reads a DDIC table definition.
func GetTableDefinition(s session.Session, tableName string) (*TableInfo, *apperr.Error) {
	path := "/sap/bc/adt/ddic/tables/" + url.PathEscape(tableName)
	resp, err := s.Get(path, map[string]string{"Accept": "application/vnd.sap.adt.tables.v2+xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 404 {
		return nil, apperr.New("GetTableDefinition", apperr.KindNotFound, "table not found").WithEndpoint(path).WithHTTPStatus(404)
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("GetTableDefinition", path, resp.StatusCode, resp.Body)
	}
	return parseTableDefinition(resp.Body, path)
}

func parseTableDefinition(body, endpoint string) (*TableInfo, *apperr.Error) {
	root, err := xmlcodec.ParseDocument(body)
	if err != nil {
		return nil, apperr.New("GetTableDefinition", apperr.KindInternal, "failed to parse table XML: "+err.Error()).WithEndpoint(endpoint)
	}

	info := &TableInfo{
		Name:          root.Attr("name"),
		Description:   root.Attr("description"),
		DeliveryClass: root.Attr("deliveryClass"),
	}
	for _, el := range root.AllChildren() {
		lower := strings.ToLower(el.Name)
		if !strings.Contains(lower, "field") && !strings.Contains(lower, "column") {
			continue
		}
		field := TableField{
			Name:        el.Attr("name"),
			Type:        el.Attr("type"),
			Description: el.Attr("description"),
			KeyField:    el.Attr("keyField") == "true",
		}
		if field.Name != "" {
			info.Fields = append(info.Fields, field)
		}
	}
	return info, nil
}

// GetCdsSource reads the DDL source of a CDS view.
func GetCdsSource(s session.Session, cdsName string) (string, *apperr.Error) {
	path := "/sap/bc/adt/ddic/ddl/sources/" + url.PathEscape(cdsName) + "/source/main"
	resp, err := s.Get(path, map[string]string{"Accept": "text/plain"})
	if err != nil {
		return "", err
	}
	if resp.StatusCode == 404 {
		return "", apperr.New("GetCdsSource", apperr.KindNotFound, "CDS view not found").WithEndpoint(path).WithHTTPStatus(404)
	}
	if resp.StatusCode != 200 {
		return "", apperr.FromHTTPStatus("GetCdsSource", path, resp.StatusCode, resp.Body)
	}
	return resp.Body, nil
}

// PackageExists probes the packages endpoint for the given package.
func PackageExists(s session.Session, pkg types.PackageName) (bool, *apperr.Error) {
	path := "/sap/bc/adt/packages/" + url.PathEscape(pkg.String())
	resp, err := s.Get(path, map[string]string{"Accept": "application/xml"})
	if err != nil {
		return false, err
	}
	switch resp.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	default:
		return false, apperr.FromHTTPStatus("GetPackage", path, resp.StatusCode, resp.Body)
	}
}
