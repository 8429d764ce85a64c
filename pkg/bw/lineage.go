package bw

import (
	"fmt"
	"net/url"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

// DtpDetail is the parsed detail of a BW data transfer process.
type DtpDetail struct {
	Name         string
	Description  string
	SourceType   string
	SourceName   string
	SourceSystem string
	TargetType   string
	TargetName   string
}

// RsdsField is one field of a BW source system datasource.
type RsdsField struct {
	Name      string
	DataType  string
	Key       bool
	SegmentID string
}

// RsdsDetail is the parsed detail of a BW datasource.
type RsdsDetail struct {
	Fields []RsdsField
}

// TrfnField is one source or target field of a BW transformation.
type TrfnField struct {
	Name        string
	Type        string
	Aggregation string
	Key         bool
}

// TrfnRule is one field-mapping rule of a BW transformation. Exactly one of
// {SourceField, SourceFields} and {TargetField, TargetFields} is populated,
// per the wire format's singleton-vs-list shape.
type TrfnRule struct {
	SourceField  string
	TargetField  string
	SourceFields []string
	TargetFields []string
	RuleType     string
	Formula      string
	Constant     string
}

// Transformation is the parsed detail of a BW transformation, including its
// field-mapping rules.
type Transformation struct {
	Name         string
	Description  string
	SourceType   string
	SourceName   string
	TargetType   string
	TargetName   string
	SourceFields []TrfnField
	TargetFields []TrfnField
	Rules        []TrfnRule
}

// LineageOptions parameterizes BuildLineageGraph.
type LineageOptions struct {
	DtpName     string
	Version     string
	TrfnName    string // explicit override; if empty, lineage is DTP/RSDS-only
	IncludeXref bool
	MaxXref     int
}

// BuildLineageGraphPure assembles a lineage graph from already-fetched DTP,
// (optional) RSDS, and (optional) transformation detail. It performs no I/O,
// which keeps the node/edge-construction rules in §4.5 directly testable
// against literal fixtures without a session.
func BuildLineageGraphPure(dtp DtpDetail, rsds *RsdsDetail, trfn *Transformation, version string) *Graph {
	g := &Graph{RootType: "DTPA", RootName: dtp.Name}

	dtpNodeID := ObjectNodeID("DTPA", dtp.Name)
	g.AddNode(Node{ID: dtpNodeID, Type: "DTPA", Name: dtp.Name, Role: "dtp", Version: version,
		Attributes: map[string]string{"description": dtp.Description}})

	srcNodeID := ObjectNodeID(dtp.SourceType, dtp.SourceName)
	g.AddNode(Node{ID: srcNodeID, Type: dtp.SourceType, Name: dtp.SourceName, Role: "source_object", Version: version,
		Attributes: map[string]string{"source_system": dtp.SourceSystem}})

	tgtNodeID := ObjectNodeID(dtp.TargetType, dtp.TargetName)
	g.AddNode(Node{ID: tgtNodeID, Type: dtp.TargetType, Name: dtp.TargetName, Role: "target_object", Version: version})

	g.AddEdge(Edge{ID: "edge:dtp_source", From: srcNodeID, To: dtpNodeID, Type: EdgeDtpSource})
	g.AddEdge(Edge{ID: "edge:dtp_target", From: dtpNodeID, To: tgtNodeID, Type: EdgeDtpTarget})

	rsdsFieldNames := map[string]bool{}
	if dtp.SourceType == "RSDS" && dtp.SourceName != "" && dtp.SourceSystem != "" && rsds != nil {
		for _, f := range rsds.Fields {
			id := FieldNodeID("RSDS", dtp.SourceName, f.Name)
			g.AddNode(Node{ID: id, Type: "RSDS_FIELD", Name: f.Name, Role: "rsds_field", Version: version,
				Attributes: map[string]string{"data_type": f.DataType, "key": boolStr(f.Key), "segment_id": f.SegmentID}})
			rsdsFieldNames[f.Name] = true
			g.AddEdge(Edge{ID: "edge:rsds_field:" + f.Name, From: srcNodeID, To: id, Type: EdgeContainsField})
		}
	}

	if trfn != nil {
		trfnNodeID := ObjectNodeID("TRFN", trfn.Name)
		g.AddNode(Node{ID: trfnNodeID, Type: "TRFN", Name: trfn.Name, Role: "transformation", Version: version,
			Attributes: map[string]string{"description": trfn.Description}})
		g.AddEdge(Edge{ID: "edge:trfn_source", From: srcNodeID, To: trfnNodeID, Type: EdgeTrfnSource})
		g.AddEdge(Edge{ID: "edge:trfn_target", From: trfnNodeID, To: tgtNodeID, Type: EdgeTrfnTarget})

		for _, field := range trfn.SourceFields {
			id := FieldNodeID(trfn.SourceType, trfn.SourceName, field.Name)
			g.AddNode(Node{ID: id, Type: trfn.SourceType + "_FIELD", Name: field.Name, Role: "source_field", Version: version,
				Attributes: map[string]string{"field_type": field.Type, "aggregation": field.Aggregation, "key": boolStr(field.Key)}})
			if trfn.SourceType == "RSDS" && rsdsFieldNames[field.Name] {
				rsdsFieldID := FieldNodeID("RSDS", trfn.SourceName, field.Name)
				g.AddEdge(Edge{ID: "edge:rsds_to_trfn_src:" + field.Name, From: rsdsFieldID, To: id, Type: EdgeFieldOrigin})
			}
		}
		for _, field := range trfn.TargetFields {
			id := FieldNodeID(trfn.TargetType, trfn.TargetName, field.Name)
			g.AddNode(Node{ID: id, Type: trfn.TargetType + "_FIELD", Name: field.Name, Role: "target_field", Version: version,
				Attributes: map[string]string{"field_type": field.Type, "aggregation": field.Aggregation, "key": boolStr(field.Key)}})
		}

		mappingIdx := 0
		for _, rule := range trfn.Rules {
			sourceFields := rule.SourceFields
			if len(sourceFields) == 0 && rule.SourceField != "" {
				sourceFields = []string{rule.SourceField}
			}
			targetFields := rule.TargetFields
			if len(targetFields) == 0 && rule.TargetField != "" {
				targetFields = []string{rule.TargetField}
			}
			if len(targetFields) == 0 {
				continue
			}

			attrs := map[string]string{"rule_type": rule.RuleType, "formula": rule.Formula, "constant": rule.Constant}

			if len(sourceFields) == 0 {
				for _, targetField := range targetFields {
					mappingIdx++
					tgtFieldID := FieldNodeID(trfn.TargetType, trfn.TargetName, targetField)
					g.AddEdge(Edge{ID: fmt.Sprintf("edge:field_derivation:%d", mappingIdx), From: trfnNodeID, To: tgtFieldID,
						Type: EdgeFieldDerivation, Attributes: attrs})
				}
				continue
			}

			for _, sourceField := range sourceFields {
				for _, targetField := range targetFields {
					mappingIdx++
					srcFieldID := FieldNodeID(trfn.SourceType, trfn.SourceName, sourceField)
					tgtFieldID := FieldNodeID(trfn.TargetType, trfn.TargetName, targetField)
					g.AddEdge(Edge{ID: fmt.Sprintf("edge:field_mapping:%d", mappingIdx), From: srcFieldID, To: tgtFieldID,
						Type: EdgeFieldMapping, Attributes: attrs})
				}
			}
		}
	}

	return g
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ReadDtpDetail fetches and parses one DTP's detail.
func ReadDtpDetail(s session.Session, name, version string) (*DtpDetail, *apperr.Error) {
	u := fmt.Sprintf("/sap/bw/modeling/dtpa/%s/%s", url.PathEscape(name), url.PathEscape(version))
	resp, err := s.Get(u, map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("BwReadDtpDetail", u, resp.StatusCode, resp.Body)
	}
	return parseDtpDetail(resp.Body)
}

func parseDtpDetail(body string) (*DtpDetail, *apperr.Error) {
	root, perr := xmlcodec.ParseDocument(body)
	if perr != nil {
		return nil, newGraphError("BwReadDtpDetail", "failed to parse DTP detail: "+perr.Error())
	}

	d := &DtpDetail{Name: attrAny(root, "bwModel:objectName", "name")}
	if d.Name == "" {
		d.Name = root.Attr("name")
	}
	d.Description = root.ChildText("description")

	if src := root.Child("source"); src != nil {
		d.SourceType = attrAny(src, "bwModel:objectType", "objectType")
		d.SourceName = attrAny(src, "bwModel:objectName", "objectName")
		d.SourceSystem = attrAny(src, "bwModel:sourceSystem", "sourceSystem")
	}
	if tgt := root.Child("target"); tgt != nil {
		d.TargetType = attrAny(tgt, "bwModel:objectType", "objectType")
		d.TargetName = attrAny(tgt, "bwModel:objectName", "objectName")
	}
	return d, nil
}

// ReadRsdsDetail fetches and parses one datasource's field detail.
func ReadRsdsDetail(s session.Session, name, sourceSystem, version string) (*RsdsDetail, *apperr.Error) {
	u := fmt.Sprintf("/sap/bw/modeling/rsds/%s/%s/%s", url.PathEscape(name), url.PathEscape(sourceSystem), url.PathEscape(version))
	resp, err := s.Get(u, map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("BwReadRsdsDetail", u, resp.StatusCode, resp.Body)
	}
	return parseRsdsDetail(resp.Body)
}

func parseRsdsDetail(body string) (*RsdsDetail, *apperr.Error) {
	root, perr := xmlcodec.ParseDocument(body)
	if perr != nil {
		return nil, newGraphError("BwReadRsdsDetail", "failed to parse RSDS detail: "+perr.Error())
	}

	d := &RsdsDetail{}
	for _, seg := range root.Children("segment") {
		segID := seg.Attr("id")
		for _, f := range seg.Children("field") {
			d.Fields = append(d.Fields, RsdsField{
				Name:      attrAny(f, "bwModel:name", "name"),
				DataType:  attrAny(f, "bwModel:dataType", "dataType"),
				Key:       f.Attr("key") == "true" || f.Attr("key") == "X",
				SegmentID: segID,
			})
		}
	}
	// Flat shape: fields directly under root when the source has no segments.
	for _, f := range root.Children("field") {
		d.Fields = append(d.Fields, RsdsField{
			Name:     attrAny(f, "bwModel:name", "name"),
			DataType: attrAny(f, "bwModel:dataType", "dataType"),
			Key:      f.Attr("key") == "true" || f.Attr("key") == "X",
		})
	}
	return d, nil
}

// ReadTransformation fetches and parses one transformation's field mapping.
func ReadTransformation(s session.Session, name, version string) (*Transformation, *apperr.Error) {
	u := fmt.Sprintf("/sap/bw/modeling/trfn/%s/%s", url.PathEscape(name), url.PathEscape(version))
	resp, err := s.Get(u, map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("BwReadTransformation", u, resp.StatusCode, resp.Body)
	}
	return parseTransformation(resp.Body)
}

func parseTransformation(body string) (*Transformation, *apperr.Error) {
	root, perr := xmlcodec.ParseDocument(body)
	if perr != nil {
		return nil, newGraphError("BwReadTransformation", "failed to parse transformation: "+perr.Error())
	}

	t := &Transformation{Name: attrAny(root, "bwModel:objectName", "name")}
	t.Description = root.ChildText("description")

	if src := root.Child("source"); src != nil {
		t.SourceType = attrAny(src, "bwModel:objectType", "objectType")
		t.SourceName = attrAny(src, "bwModel:objectName", "objectName")
		for _, f := range src.Children("field") {
			t.SourceFields = append(t.SourceFields, parseTrfnField(f))
		}
	}
	if tgt := root.Child("target"); tgt != nil {
		t.TargetType = attrAny(tgt, "bwModel:objectType", "objectType")
		t.TargetName = attrAny(tgt, "bwModel:objectName", "objectName")
		for _, f := range tgt.Children("field") {
			t.TargetFields = append(t.TargetFields, parseTrfnField(f))
		}
	}

	if rules := root.Child("rules"); rules != nil {
		t.Rules = parseTrfnRuleGroup(rules)
	}

	return t, nil
}

func parseTrfnField(n *xmlcodec.DOMNode) TrfnField {
	return TrfnField{
		Name:        attrAny(n, "bwModel:name", "name"),
		Type:        attrAny(n, "bwModel:type", "type"),
		Aggregation: attrAny(n, "bwModel:aggregation", "aggregation"),
		Key:         n.Attr("key") == "true" || n.Attr("key") == "X",
	}
}

// parseTrfnRuleGroup recurses into `rules → (rule | group → rule)`, per
// the transformation rule layout the server emits.
func parseTrfnRuleGroup(container *xmlcodec.DOMNode) []TrfnRule {
	var rules []TrfnRule
	for _, r := range container.Children("rule") {
		rules = append(rules, parseSingleRule(r))
	}
	for _, g := range container.Children("group") {
		for _, r := range g.Children("rule") {
			rules = append(rules, parseSingleRule(r))
		}
	}
	return rules
}

func parseSingleRule(r *xmlcodec.DOMNode) TrfnRule {
	rule := TrfnRule{
		RuleType: attrAny(r, "bwModel:ruleType", "ruleType"),
		Formula:  r.ChildText("formula"),
		Constant: r.ChildText("constant"),
	}

	if sf := r.Child("sourceFields"); sf != nil {
		for _, f := range sf.Children("field") {
			rule.SourceFields = append(rule.SourceFields, attrAny(f, "bwModel:name", "name"))
		}
	} else {
		rule.SourceField = attrAny(r, "bwModel:sourceField", "sourceField")
	}

	if tf := r.Child("targetFields"); tf != nil {
		for _, f := range tf.Children("field") {
			rule.TargetFields = append(rule.TargetFields, attrAny(f, "bwModel:name", "name"))
		}
	} else {
		rule.TargetField = attrAny(r, "bwModel:targetField", "targetField")
	}

	return rule
}

// BuildLineageGraph fetches DTP, RSDS (if the source is a datasource), and
// transformation detail, then assembles the lineage graph. A failure to
// read the DTP is returned as an error; RSDS and transformation read
// failures are recorded as warnings and error provenance rather than
// aborting.
func BuildLineageGraph(s session.Session, opts LineageOptions) (*Graph, *apperr.Error) {
	if opts.DtpName == "" {
		return nil, apperr.New("BwBuildLineageGraph", apperr.KindInternal, "dtp_name must not be empty")
	}
	version := opts.Version
	if version == "" {
		version = "A"
	}

	dtp, err := ReadDtpDetail(s, opts.DtpName, version)
	if err != nil {
		return nil, err
	}

	var rsds *RsdsDetail
	dtpEndpoint := fmt.Sprintf("/sap/bw/modeling/dtpa/%s/%s", opts.DtpName, version)

	if dtp.SourceType == "RSDS" && dtp.SourceName != "" && dtp.SourceSystem != "" {
		if r, rerr := ReadRsdsDetail(s, dtp.SourceName, dtp.SourceSystem, version); rerr == nil {
			rsds = r
		}
	}

	var trfn *Transformation
	if opts.TrfnName != "" {
		if t, terr := ReadTransformation(s, opts.TrfnName, version); terr == nil {
			trfn = t
		}
	}

	g := BuildLineageGraphPure(*dtp, rsds, trfn, version)
	g.Provenance = append(g.Provenance, ProvenanceEntry{Operation: "BwReadDtpDetail", Endpoint: dtpEndpoint, Status: "ok"})
	if dtp.SourceType == "RSDS" && rsds == nil {
		g.Warnings = append(g.Warnings, "RSDS read failed; source field-level lineage is partial")
	}
	if opts.TrfnName != "" && trfn == nil {
		g.Warnings = append(g.Warnings, "TRFN read failed; continuing with DTP-only lineage")
	}
	if opts.IncludeXref {
		addXrefEdges(g, s, *dtp, opts.MaxXref)
	}
	return g, nil
}
