package bw

import (
	"net/url"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const (
	reportingPath  = "/sap/bw/modeling/comp/reporting"
	queryPropsPath = "/sap/bw/modeling/rules/qprops"
)

// ReportingRecord is one generic record from the reporting/query-properties
// services: both answer row sets whose column names vary by release, so
// the record is a name→value map plus the element name it came from.
type ReportingRecord struct {
	Element string
	Values  map[string]string
}

// ReportingOptions identifies the component to read reporting properties for.
type ReportingOptions struct {
	CompId   string
	CompType string
	Version  string
}

func parseGenericRecords(body, operation, endpoint string) ([]ReportingRecord, *apperr.Error) {
	root, perr := xmlcodec.ParseDocument(body)
	if perr != nil {
		return nil, apperr.New(operation, apperr.KindInternal, "failed to parse XML: "+perr.Error()).WithEndpoint(endpoint)
	}

	var records []ReportingRecord
	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		if len(n.Attrs) > 0 {
			values := make(map[string]string, len(n.Attrs))
			for k, v := range n.Attrs {
				values[k] = v
			}
			records = append(records, ReportingRecord{Element: n.Name, Values: values})
		} else if len(n.AllChildren()) > 0 {
			// Property-element shape: leaf children become columns.
			values := map[string]string{}
			allLeaves := true
			for _, c := range n.AllChildren() {
				if len(c.AllChildren()) > 0 || len(c.Attrs) > 0 {
					allLeaves = false
					break
				}
				values[c.Name] = c.Text()
			}
			if allLeaves && len(values) > 0 {
				records = append(records, ReportingRecord{Element: n.Name, Values: values})
				return
			}
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	for _, c := range root.AllChildren() {
		walk(c)
	}
	return records, nil
}

// GetReportingProperties reads the reporting properties of a query component.
func GetReportingProperties(s session.Session, opts ReportingOptions) ([]ReportingRecord, *apperr.Error) {
	var params []string
	params = append(params, "compid="+url.QueryEscape(opts.CompId))
	if opts.CompType != "" {
		params = append(params, "comptype="+url.QueryEscape(opts.CompType))
	}
	if opts.Version != "" {
		params = append(params, "version="+url.QueryEscape(opts.Version))
	}
	path := reportingPath + "?" + strings.Join(params, "&")

	body, err := fetchAtom(s, "BwGetReportingProperties", path)
	if err != nil {
		return nil, err
	}
	return parseGenericRecords(body, "BwGetReportingProperties", path)
}

// GetQueryProperties reads the query property rules.
func GetQueryProperties(s session.Session) ([]ReportingRecord, *apperr.Error) {
	body, err := fetchAtom(s, "BwGetQueryProperties", queryPropsPath)
	if err != nil {
		return nil, err
	}
	return parseGenericRecords(body, "BwGetQueryProperties", queryPropsPath)
}
