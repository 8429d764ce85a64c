package adt

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const searchPath = "/sap/bc/adt/repository/informationsystem/search"

// SearchObjects runs an ADT quick search over the repository.
func SearchObjects(s session.Session, opts SearchOptions) ([]SearchResult, *apperr.Error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, apperr.New("SearchObjects", apperr.KindInternal, "search query must not be empty")
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 100
	}

	params := []string{
		"operation=quickSearch",
		"query=" + url.QueryEscape(opts.Query),
		"maxResults=" + strconv.Itoa(maxResults),
	}
	if opts.ObjectType != "" {
		params = append(params, "objectType="+url.QueryEscape(opts.ObjectType))
	}
	path := searchPath + "?" + strings.Join(params, "&")

	resp, err := s.Get(path, map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("SearchObjects", path, resp.StatusCode, resp.Body)
	}
	return parseSearchResponse(resp.Body)
}

func parseSearchResponse(body string) ([]SearchResult, *apperr.Error) {
	root, err := xmlcodec.ParseDocument(body)
	if err != nil {
		return nil, nil
	}

	var results []SearchResult
	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		if n.Name == "objectReference" {
			r := SearchResult{
				Name:        n.Attr("name"),
				Type:        n.Attr("type"),
				Uri:         n.Attr("uri"),
				Description: n.Attr("description"),
				PackageName: n.Attr("packageName"),
			}
			if r.Name != "" {
				results = append(results, r)
			}
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(root)
	return results, nil
}
