package bw

import (
	"net/url"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const (
	searchMetadataPath   = "/sap/bw/modeling/repo/is/bwsearch/metadata"
	backendFavoritesPath = "/sap/bw/modeling/repo/backendfavorites"
	nodePathPath         = "/sap/bw/modeling/repo/nodepath"
	applicationLogPath   = "/sap/bw/modeling/repo/is/applicationlog"
	messagePath          = "/sap/bw/modeling/repo/is/message"
)

// SearchMetadataEntry is one searchable object type advertised by the BW
// search metadata service.
type SearchMetadataEntry struct {
	ObjectType  string
	Description string
	Searchable  bool
}

// FavoriteEntry is one backend favorite of the logged-on user.
type FavoriteEntry struct {
	Name        string
	Type        string
	Description string
	Uri         string
}

// NodePathEntry is one step in the repository path from the root to an
// object, outermost container first.
type NodePathEntry struct {
	Name        string
	Type        string
	Description string
	Uri         string
}

// ApplicationLogEntry is one message from the BW application log.
type ApplicationLogEntry struct {
	Severity  string
	Text      string
	Timestamp string
	LogNumber string
}

// ApplicationLogOptions filters GetApplicationLog.
type ApplicationLogOptions struct {
	Object    string
	Subobject string
	From      string
	To        string
}

// MessageTextOptions identifies one message text to resolve.
type MessageTextOptions struct {
	Identifier string
	TextType   string
	Language   string
}

// MessageTextResult carries the resolved message text.
type MessageTextResult struct {
	Identifier string
	TextType   string
	Text       string
}

// GetSearchMetadata lists the object types the BW search can serve.
func GetSearchMetadata(s session.Session) ([]SearchMetadataEntry, *apperr.Error) {
	body, err := fetchAtom(s, "BwGetSearchMetadata", searchMetadataPath)
	if err != nil {
		return nil, err
	}
	root, perr := xmlcodec.ParseDocument(body)
	if perr != nil {
		return nil, apperr.New("BwGetSearchMetadata", apperr.KindInternal, "failed to parse search metadata XML: "+perr.Error()).WithEndpoint(searchMetadataPath)
	}

	var entries []SearchMetadataEntry
	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		objType := attrOrChild(n, "objectType")
		if objType == "" {
			objType = attrOrChild(n, "tlogo")
		}
		if objType != "" {
			searchable := attrOrChild(n, "searchable")
			entries = append(entries, SearchMetadataEntry{
				ObjectType:  objType,
				Description: attrOrChild(n, "description"),
				Searchable:  searchable == "" || searchable == "true" || searchable == "X",
			})
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(root)
	return entries, nil
}

// ListBackendFavorites reads the user's server-side favorites.
func ListBackendFavorites(s session.Session) ([]FavoriteEntry, *apperr.Error) {
	body, err := fetchAtom(s, "BwListBackendFavorites", backendFavoritesPath)
	if err != nil {
		return nil, err
	}
	root, perr := xmlcodec.ParseDocument(body)
	if perr != nil {
		return nil, apperr.New("BwListBackendFavorites", apperr.KindInternal, "failed to parse favorites XML: "+perr.Error()).WithEndpoint(backendFavoritesPath)
	}

	var favorites []FavoriteEntry
	for _, entry := range root.Children("entry") {
		f := FavoriteEntry{
			Description: entry.ChildText("title"),
			Uri:         entry.ChildText("id"),
		}
		if content := entry.Child("content"); content != nil {
			if props := content.Child("properties"); props != nil {
				f.Name = attrAny(props, "bwModel:objectName", "objectName")
				f.Type = attrAny(props, "bwModel:objectType", "objectType")
			}
		}
		if f.Name != "" {
			favorites = append(favorites, f)
		}
	}
	return favorites, nil
}

// DeleteAllBackendFavorites clears the user's server-side favorites.
func DeleteAllBackendFavorites(s session.Session) *apperr.Error {
	resp, err := s.Delete(backendFavoritesPath, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 && resp.StatusCode != 204 {
		return apperr.FromHTTPStatus("BwDeleteAllBackendFavorites", backendFavoritesPath, resp.StatusCode, resp.Body)
	}
	return nil
}

// GetNodePath resolves the repository path from the root to the object
// behind the given URI, outermost container first.
func GetNodePath(s session.Session, objectUri string) ([]NodePathEntry, *apperr.Error) {
	path := nodePathPath + "?objectUri=" + url.QueryEscape(objectUri)
	body, err := fetchAtom(s, "BwGetNodePath", path)
	if err != nil {
		return nil, err
	}
	root, perr := xmlcodec.ParseDocument(body)
	if perr != nil {
		return nil, apperr.New("BwGetNodePath", apperr.KindInternal, "failed to parse nodepath XML: "+perr.Error()).WithEndpoint(path)
	}

	// The path is a nested tree: each node element wraps its child segment.
	var entries []NodePathEntry
	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		name := attrOrChild(n, "objectName")
		if name == "" {
			name = attrOrChild(n, "name")
		}
		if name != "" {
			entries = append(entries, NodePathEntry{
				Name:        name,
				Type:        attrOrChild(n, "objectType"),
				Description: attrOrChild(n, "description"),
				Uri:         attrOrChild(n, "uri"),
			})
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(root)
	return entries, nil
}

func buildApplicationLogUrl(opts ApplicationLogOptions) string {
	path := applicationLogPath
	var params []string
	add := func(key, value string) {
		if value != "" {
			params = append(params, key+"="+url.QueryEscape(value))
		}
	}
	add("object", opts.Object)
	add("subobject", opts.Subobject)
	add("from", opts.From)
	add("to", opts.To)
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}
	return path
}

// GetApplicationLog reads BW application log messages.
func GetApplicationLog(s session.Session, opts ApplicationLogOptions) ([]ApplicationLogEntry, *apperr.Error) {
	path := buildApplicationLogUrl(opts)
	body, err := fetchAtom(s, "BwGetApplicationLog", path)
	if err != nil {
		return nil, err
	}
	root, perr := xmlcodec.ParseDocument(body)
	if perr != nil {
		return nil, apperr.New("BwGetApplicationLog", apperr.KindInternal, "failed to parse application log XML: "+perr.Error()).WithEndpoint(path)
	}

	var entries []ApplicationLogEntry
	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		if strings.Contains(strings.ToLower(n.Name), "message") || strings.Contains(strings.ToLower(n.Name), "logentry") {
			text := attrOrChild(n, "text")
			if text == "" {
				text = n.Text()
			}
			if text != "" {
				entries = append(entries, ApplicationLogEntry{
					Severity:  attrOrChild(n, "severity"),
					Text:      text,
					Timestamp: attrOrChild(n, "timestamp"),
					LogNumber: attrOrChild(n, "lognumber"),
				})
			}
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(root)
	return entries, nil
}

// GetMessageText resolves a message identifier to its text.
func GetMessageText(s session.Session, opts MessageTextOptions) (*MessageTextResult, *apperr.Error) {
	path := messagePath + "/" + url.PathEscape(opts.Identifier) + "/" + url.PathEscape(opts.TextType)
	if opts.Language != "" {
		path += "?language=" + url.QueryEscape(opts.Language)
	}
	resp, err := s.Get(path, map[string]string{"Accept": "application/xml, text/plain"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("BwGetMessageText", path, resp.StatusCode, resp.Body)
	}

	result := &MessageTextResult{Identifier: opts.Identifier, TextType: opts.TextType}
	trimmed := strings.TrimSpace(resp.Body)
	if !strings.HasPrefix(trimmed, "<") {
		result.Text = trimmed
		return result, nil
	}
	root, perr := xmlcodec.ParseDocument(resp.Body)
	if perr != nil {
		result.Text = trimmed
		return result, nil
	}
	if text := attrOrChild(root, "text"); text != "" {
		result.Text = text
	} else {
		result.Text = root.Text()
	}
	return result, nil
}
