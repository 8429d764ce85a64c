package bw

import (
	"net/url"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const (
	dbInfoPath     = "/sap/bw/modeling/repo/is/dbinfo"
	systemInfoPath = "/sap/bw/modeling/repo/is/systeminfo"
	chgInfoPath    = "/sap/bw/modeling/repo/is/chginfo"
	adtUriPath     = "/sap/bw/modeling/repo/is/adturi"
)

// DbInfo describes the backing database of the BW system.
type DbInfo struct {
	Host     string
	Name     string
	Platform string
	Release  string
	Schema   string
	IsHana   bool
}

// SystemProperty is one name/value pair from the BW system info service.
type SystemProperty struct {
	Name  string
	Value string
}

// ChangeabilityEntry reports whether one object type is changeable in the
// connected client.
type ChangeabilityEntry struct {
	ObjectType  string
	Changeable  bool
	Description string
}

// AdtUriMapping maps a BW object reference onto its ADT URI.
type AdtUriMapping struct {
	ObjectType string
	ObjectName string
	Uri        string
}

// fetchAtom GETs a BW repo endpoint and returns the raw body, normalizing
// the non-200 handling every system-level read shares.
func fetchAtom(s session.Session, operation, path string) (string, *apperr.Error) {
	resp, err := s.Get(path, map[string]string{"Accept": "application/xml"})
	if err != nil {
		return "", err
	}
	if resp.StatusCode != 200 {
		return "", apperr.FromHTTPStatus(operation, path, resp.StatusCode, resp.Body)
	}
	return resp.Body, nil
}

// attrOrChild reads a value as an attribute first, then as a child
// element's text: the BW repo services answer in both shapes depending on
// release.
func attrOrChild(n *xmlcodec.DOMNode, name string) string {
	if v := n.Attr(name); v != "" {
		return v
	}
	return n.ChildText(name)
}

// findDescendant walks the tree depth-first for the first element whose
// local name contains the given suffix, case-insensitively.
func findDescendant(n *xmlcodec.DOMNode, suffix string) *xmlcodec.DOMNode {
	if n == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(n.Name), strings.ToLower(suffix)) {
		return n
	}
	for _, c := range n.AllChildren() {
		if found := findDescendant(c, suffix); found != nil {
			return found
		}
	}
	return nil
}

// GetDbInfo reads the database descriptor. The service answers either in
// the flat-attribute shape or in the "connect" sibling-element shape.
func GetDbInfo(s session.Session) (*DbInfo, *apperr.Error) {
	body, err := fetchAtom(s, "BwGetDbInfo", dbInfoPath)
	if err != nil {
		return nil, err
	}
	root, perr := xmlcodec.ParseDocument(body)
	if perr != nil {
		return nil, apperr.New("BwGetDbInfo", apperr.KindInternal, "failed to parse dbinfo XML: "+perr.Error()).WithEndpoint(dbInfoPath)
	}

	src := root
	if connect := findDescendant(root, "connect"); connect != nil && connect != root {
		src = connect
	}
	info := &DbInfo{
		Host:     attrOrChild(src, "host"),
		Name:     attrOrChild(src, "name"),
		Platform: attrOrChild(src, "platform"),
		Release:  attrOrChild(src, "release"),
		Schema:   attrOrChild(src, "schema"),
	}
	if info.Platform == "" {
		info.Platform = attrOrChild(root, "platform")
	}
	info.IsHana = strings.Contains(strings.ToUpper(info.Platform), "HDB") ||
		strings.Contains(strings.ToUpper(info.Platform), "HANA")
	return info, nil
}

// GetSystemInfo lists the BW system properties as name/value pairs.
func GetSystemInfo(s session.Session) ([]SystemProperty, *apperr.Error) {
	body, err := fetchAtom(s, "BwGetSystemInfo", systemInfoPath)
	if err != nil {
		return nil, err
	}
	root, perr := xmlcodec.ParseDocument(body)
	if perr != nil {
		return nil, apperr.New("BwGetSystemInfo", apperr.KindInternal, "failed to parse systeminfo XML: "+perr.Error()).WithEndpoint(systemInfoPath)
	}

	var props []SystemProperty
	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		name := attrOrChild(n, "name")
		value := attrOrChild(n, "value")
		if name != "" && len(n.AllChildren()) == 0 {
			if value == "" {
				value = n.Text()
			}
			props = append(props, SystemProperty{Name: name, Value: value})
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(root)

	// Flat-attribute fallback: every root attribute is a property.
	if len(props) == 0 {
		for k, v := range root.Attrs {
			props = append(props, SystemProperty{Name: k, Value: v})
		}
	}
	return props, nil
}

// GetChangeability reports per-object-type changeability flags.
func GetChangeability(s session.Session) ([]ChangeabilityEntry, *apperr.Error) {
	body, err := fetchAtom(s, "BwGetChangeability", chgInfoPath)
	if err != nil {
		return nil, err
	}
	root, perr := xmlcodec.ParseDocument(body)
	if perr != nil {
		return nil, apperr.New("BwGetChangeability", apperr.KindInternal, "failed to parse chginfo XML: "+perr.Error()).WithEndpoint(chgInfoPath)
	}

	var entries []ChangeabilityEntry
	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		objType := attrOrChild(n, "objectType")
		if objType == "" {
			objType = attrOrChild(n, "tlogo")
		}
		if objType != "" {
			chg := attrOrChild(n, "changeable")
			entries = append(entries, ChangeabilityEntry{
				ObjectType:  objType,
				Changeable:  chg == "true" || chg == "X",
				Description: attrOrChild(n, "description"),
			})
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(root)
	return entries, nil
}

// GetAdtUriMappings resolves BW object references into ADT URIs.
func GetAdtUriMappings(s session.Session, objectType, objectName string) ([]AdtUriMapping, *apperr.Error) {
	path := adtUriPath + "?objectType=" + url.QueryEscape(objectType) + "&objectName=" + url.QueryEscape(objectName)
	body, err := fetchAtom(s, "BwGetAdtUriMappings", path)
	if err != nil {
		return nil, err
	}
	root, perr := xmlcodec.ParseDocument(body)
	if perr != nil {
		return nil, apperr.New("BwGetAdtUriMappings", apperr.KindInternal, "failed to parse adturi XML: "+perr.Error()).WithEndpoint(path)
	}

	var mappings []AdtUriMapping
	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		uri := attrOrChild(n, "uri")
		if uri == "" {
			uri = attrOrChild(n, "href")
		}
		if uri != "" {
			mappings = append(mappings, AdtUriMapping{
				ObjectType: attrOrChild(n, "objectType"),
				ObjectName: attrOrChild(n, "objectName"),
				Uri:        uri,
			})
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(root)
	return mappings, nil
}
