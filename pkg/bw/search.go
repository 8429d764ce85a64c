package bw

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const bwSearchPath = "/sap/bw/modeling/repo/is/bwsearch"

// SearchOptions parameterizes SearchObjects.
type SearchOptions struct {
	Query       string
	ObjectType  string
	InfoArea    string
	MaxResults  int
	SearchDesc  bool
	OwnOnly     bool
}

// SearchResult is one hit from the BW repository search.
type SearchResult struct {
	Name        string
	Type        string
	Subtype     string
	Version     string
	Status      string
	Description string
	InfoArea    string
	Uri         string
}

func buildSearchUrl(opts SearchOptions) string {
	var params []string
	if opts.Query != "" {
		params = append(params, "query="+url.QueryEscape(opts.Query))
	}
	if opts.ObjectType != "" {
		params = append(params, "objectType="+url.QueryEscape(opts.ObjectType))
	}
	if opts.InfoArea != "" {
		params = append(params, "infoArea="+url.QueryEscape(opts.InfoArea))
	}
	if opts.MaxResults > 0 {
		params = append(params, "maxResults="+strconv.Itoa(opts.MaxResults))
	}
	if opts.SearchDesc {
		params = append(params, "searchDesc=true")
	}
	if opts.OwnOnly {
		params = append(params, "ownOnly=true")
	}
	u := bwSearchPath
	if len(params) > 0 {
		u += "?" + strings.Join(params, "&")
	}
	return u
}

func parseSearchResponse(body string) ([]SearchResult, *apperr.Error) {
	root, err := xmlcodec.ParseDocument(body)
	if err != nil {
		return nil, nil
	}

	var results []SearchResult
	for _, entry := range root.Children("entry") {
		r := SearchResult{
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
				r.InfoArea = attrAny(props, "bwModel:infoArea", "infoArea")
				if r.Description == "" {
					r.Description = attrAny(props, "bwModel:objectDesc", "objectDesc")
				}
			}
		}
		for _, link := range entry.Children("link") {
			if link.Attr("rel") == "self" && r.Uri == "" {
				r.Uri = link.Attr("href")
			}
		}
		if r.Name != "" {
			results = append(results, r)
		}
	}
	return results, nil
}

// SearchObjects runs a BW repository search. Used directly by the CLI and
// as the search supplement inside the infoarea export.
func SearchObjects(s session.Session, opts SearchOptions) ([]SearchResult, *apperr.Error) {
	path := buildSearchUrl(opts)
	resp, err := s.Get(path, map[string]string{"Accept": "application/atom+xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("BwSearchObjects", path, resp.StatusCode, resp.Body)
	}
	return parseSearchResponse(resp.Body)
}
