// Package export serializes a BW infoarea traversal (pkg/bw/graph.ExportResult)
// into the "bw.infoarea.export" catalog JSON schema.
package export

import (
	"encoding/json"
	"time"

	"github.com/erpl-adt/erpl-adt/pkg/bw"
	"github.com/erpl-adt/erpl-adt/pkg/bw/graph"
)

const schemaVersion = "1.0"
const contract = "bw.infoarea.export"

// ObjectEntry is one exported object's JSON representation.
type ObjectEntry struct {
	Name             string         `json:"name"`
	Type             string         `json:"type"`
	Subtype          string         `json:"subtype,omitempty"`
	Version          string         `json:"version,omitempty"`
	Uri              string         `json:"uri,omitempty"`
	Description      string         `json:"description,omitempty"`
	RsdsFields       []bw.RsdsField `json:"rsds_fields,omitempty"`
	RsdsSourceSystem string         `json:"rsds_source_system,omitempty"`
	DtpSource        *ObjectRef     `json:"dtp_source,omitempty"`
	DtpTarget        *ObjectRef     `json:"dtp_target,omitempty"`
	TrfnSource       *ObjectRef     `json:"trfn_source,omitempty"`
	TrfnTarget       *ObjectRef     `json:"trfn_target,omitempty"`
}

// ObjectRef is a (type, name) pointer to another object, used for DTP/TRFN
// source and target references.
type ObjectRef struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func objRef(t, n string) *ObjectRef {
	if t == "" && n == "" {
		return nil
	}
	return &ObjectRef{Type: t, Name: n}
}

// Document is the full "bw.infoarea.export" catalog document.
type Document struct {
	SchemaVersion string              `json:"schema_version"`
	Contract      string              `json:"contract"`
	InfoArea      string              `json:"infoarea"`
	ExportedAt    string              `json:"exported_at"`
	Objects       []ObjectEntry       `json:"objects"`
	DataflowNodes []bw.Node           `json:"dataflow_nodes"`
	DataflowEdges []bw.Edge           `json:"dataflow_edges"`
	Warnings      []string            `json:"warnings"`
	Provenance    []bw.ProvenanceEntry `json:"provenance"`
}

// BuildDocument translates a traversal result into the catalog document,
// stamping exportedAt (passed in rather than read from the clock so the
// caller controls the timestamp source).
func BuildDocument(result *graph.ExportResult, exportedAt time.Time) *Document {
	doc := &Document{
		SchemaVersion: schemaVersion,
		Contract:      contract,
		InfoArea:      result.InfoArea,
		ExportedAt:    exportedAt.UTC().Format(time.RFC3339),
		DataflowNodes: result.DataflowNodes,
		DataflowEdges: result.DataflowEdges,
		Warnings:      result.Warnings,
		Provenance:    result.Provenance,
	}
	if doc.DataflowNodes == nil {
		doc.DataflowNodes = []bw.Node{}
	}
	if doc.DataflowEdges == nil {
		doc.DataflowEdges = []bw.Edge{}
	}
	if doc.Warnings == nil {
		doc.Warnings = []string{}
	}
	if doc.Provenance == nil {
		doc.Provenance = []bw.ProvenanceEntry{}
	}

	for _, obj := range result.Objects {
		entry := ObjectEntry{
			Name: obj.Name, Type: obj.Type, Subtype: obj.Subtype, Version: obj.Version,
			Uri: obj.Uri, Description: obj.Description,
			RsdsFields: obj.RsdsFields, RsdsSourceSystem: obj.RsdsSourceSystem,
			DtpSource:  objRef(obj.DtpSourceType, obj.DtpSourceName),
			DtpTarget:  objRef(obj.DtpTargetType, obj.DtpTargetName),
			TrfnSource: objRef(obj.TrfnSourceType, obj.TrfnSourceName),
			TrfnTarget: objRef(obj.TrfnTargetType, obj.TrfnTargetName),
		}
		doc.Objects = append(doc.Objects, entry)
	}
	if doc.Objects == nil {
		doc.Objects = []ObjectEntry{}
	}
	return doc
}

// Marshal renders the document as indented JSON.
func Marshal(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}
