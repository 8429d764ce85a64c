package bw

import (
	"net/url"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
)

const (
	valueHelpBase      = "/sap/bw/modeling/is/values/"
	virtualFoldersPath = "/sap/bw/modeling/repo/is/virtualfolders"
	dataVolumesPath    = "/sap/bw/modeling/repo/is/datavolumes"
)

// ValueHelpRow is one generic row from a value-help style service; the
// column set varies by helper, so rows are name→value maps.
type ValueHelpRow struct {
	Element string
	Values  map[string]string
}

// ValueHelpOptions parameterizes GetValueHelp.
type ValueHelpOptions struct {
	Helper     string
	Filter     string
	MaxResults string
}

// GetValueHelp reads one of the BW value-help lists (currencies, units,
// source systems, and similar pick lists).
func GetValueHelp(s session.Session, opts ValueHelpOptions) ([]ValueHelpRow, *apperr.Error) {
	path := valueHelpBase + url.PathEscape(opts.Helper)
	var params []string
	if opts.Filter != "" {
		params = append(params, "filter="+url.QueryEscape(opts.Filter))
	}
	if opts.MaxResults != "" {
		params = append(params, "maxResults="+url.QueryEscape(opts.MaxResults))
	}
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}

	body, err := fetchAtom(s, "BwGetValueHelp", path)
	if err != nil {
		return nil, err
	}
	records, perr := parseGenericRecords(body, "BwGetValueHelp", path)
	if perr != nil {
		return nil, perr
	}
	return recordsToRows(records), nil
}

// ListVirtualFolders lists the virtual folder structure.
func ListVirtualFolders(s session.Session, objectType string) ([]ValueHelpRow, *apperr.Error) {
	path := virtualFoldersPath
	if objectType != "" {
		path += "?objectType=" + url.QueryEscape(objectType)
	}
	body, err := fetchAtom(s, "BwListVirtualFolders", path)
	if err != nil {
		return nil, err
	}
	records, perr := parseGenericRecords(body, "BwListVirtualFolders", path)
	if perr != nil {
		return nil, perr
	}
	return recordsToRows(records), nil
}

// GetDataVolumes reads per-object data volume statistics.
func GetDataVolumes(s session.Session, objectName string) ([]ValueHelpRow, *apperr.Error) {
	path := dataVolumesPath
	if objectName != "" {
		path += "?objectName=" + url.QueryEscape(objectName)
	}
	body, err := fetchAtom(s, "BwGetDataVolumes", path)
	if err != nil {
		return nil, err
	}
	records, perr := parseGenericRecords(body, "BwGetDataVolumes", path)
	if perr != nil {
		return nil, perr
	}
	return recordsToRows(records), nil
}

func recordsToRows(records []ReportingRecord) []ValueHelpRow {
	rows := make([]ValueHelpRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, ValueHelpRow{Element: r.Element, Values: r.Values})
	}
	return rows
}
