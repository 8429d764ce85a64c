package adt

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const (
	checkRunsPath    = "/sap/bc/adt/checkruns?reporters=abapCheckRun"
	atcWorklistsPath = "/sap/bc/adt/atc/worklists"
	atcRunsPath      = "/sap/bc/adt/atc/runs"
)

func buildCheckRunXml(uri, version string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<chkrun:checkObjectList xmlns:chkrun="http://www.sap.com/adt/checkrun" xmlns:adtcore="http://www.sap.com/adt/core">
  <chkrun:checkObject adtcore:uri="` + xmlcodec.EscapeAttr(uri) + `" chkrun:version="` + xmlcodec.EscapeAttr(version) + `"/>
</chkrun:checkObjectList>
`
}

// lineFromUriFragment extracts the line/offset from a finding URI's
// "#start=<line>,<offset>" fragment.
func lineFromUriFragment(uri string) (line, offset int) {
	idx := strings.Index(uri, "#")
	if idx < 0 {
		return 0, 0
	}
	fragment := uri[idx+1:]
	for _, part := range strings.Split(fragment, ";") {
		if !strings.HasPrefix(part, "start=") {
			continue
		}
		pos := strings.TrimPrefix(part, "start=")
		pieces := strings.SplitN(pos, ",", 2)
		line, _ = strconv.Atoi(pieces[0])
		if len(pieces) == 2 {
			offset, _ = strconv.Atoi(pieces[1])
		}
	}
	return line, offset
}

// CheckSyntax runs the abapCheckRun reporter over one source object and
// returns its messages. An empty result means no syntax errors.
func CheckSyntax(s session.Session, uri string) ([]SyntaxMessage, *apperr.Error) {
	version := "active"
	if strings.Contains(uri, "version=inactive") {
		version = "inactive"
	}
	body := buildCheckRunXml(uri, version)

	resp, err := s.Post(checkRunsPath, []byte(body),
		"application/vnd.sap.adt.checkobjects+xml",
		map[string]string{"Accept": "application/vnd.sap.adt.checkmessages+xml, application/xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("CheckSyntax", uri, resp.StatusCode, resp.Body)
	}
	return parseCheckMessages(resp.Body)
}

func parseCheckMessages(body string) ([]SyntaxMessage, *apperr.Error) {
	root, err := xmlcodec.ParseDocument(body)
	if err != nil {
		return nil, nil
	}

	var messages []SyntaxMessage
	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		if n.Name == "checkMessage" {
			uri := n.Attr("uri")
			line, offset := lineFromUriFragment(uri)
			text := n.Attr("shortText")
			if text == "" {
				text = n.ChildText("shortText")
			}
			messages = append(messages, SyntaxMessage{
				Type:   n.Attr("type"),
				Text:   text,
				Uri:    uri,
				Line:   line,
				Offset: offset,
			})
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(root)
	return messages, nil
}

func buildAtcRunXml(uri string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<atc:run xmlns:atc="http://www.sap.com/adt/atc" maximumVerdicts="100">
  <objectSets xmlns:adtcore="http://www.sap.com/adt/core">
    <objectSet kind="inclusive">
      <adtcore:objectReferences>
        <adtcore:objectReference adtcore:uri="` + xmlcodec.EscapeAttr(uri) + `"/>
      </adtcore:objectReferences>
    </objectSet>
  </objectSets>
</atc:run>
`
}

// RunAtcCheck drives the three-step ATC protocol: create a worklist for
// the check variant, start a run over the object set, then read the
// worklist's findings.
func RunAtcCheck(s session.Session, uri, checkVariant string) (*AtcResult, *apperr.Error) {
	if checkVariant == "" {
		checkVariant = "DEFAULT"
	}

	worklistPath := atcWorklistsPath + "?checkVariant=" + url.QueryEscape(checkVariant)
	resp, err := s.Post(worklistPath, nil, "application/xml", map[string]string{"Accept": "text/plain, application/xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 && resp.StatusCode != 201 {
		return nil, apperr.FromHTTPStatus("RunAtcCheck", worklistPath, resp.StatusCode, resp.Body)
	}
	worklistId := strings.TrimSpace(resp.Body)
	if strings.HasPrefix(worklistId, "<") {
		if root, perr := xmlcodec.ParseDocument(resp.Body); perr == nil {
			if id := root.Attr("id"); id != "" {
				worklistId = id
			} else {
				worklistId = root.Text()
			}
		}
	}
	if worklistId == "" {
		return nil, apperr.New("RunAtcCheck", apperr.KindCheckError, "ATC worklist creation returned no id").WithEndpoint(worklistPath)
	}

	runPath := atcRunsPath + "?worklistId=" + url.QueryEscape(worklistId)
	runResp, err := s.Post(runPath, []byte(buildAtcRunXml(uri)), "application/xml", map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, err
	}
	if runResp.StatusCode != 200 && runResp.StatusCode != 201 && runResp.StatusCode != 202 {
		return nil, apperr.FromHTTPStatus("RunAtcCheck", runPath, runResp.StatusCode, runResp.Body)
	}

	findingsPath := atcWorklistsPath + "/" + url.PathEscape(worklistId) + "?includeExemptedFindings=false"
	findingsResp, err := s.Get(findingsPath, map[string]string{"Accept": "application/atc.worklist.v1+xml, application/xml"})
	if err != nil {
		return nil, err
	}
	if findingsResp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("RunAtcCheck", findingsPath, findingsResp.StatusCode, findingsResp.Body)
	}

	result := &AtcResult{WorklistId: worklistId}
	parseAtcFindings(findingsResp.Body, result)
	return result, nil
}

func parseAtcFindings(body string, result *AtcResult) {
	root, err := xmlcodec.ParseDocument(body)
	if err != nil {
		return
	}
	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		if n.Name == "finding" {
			priority, _ := strconv.Atoi(n.Attr("priority"))
			f := AtcFinding{
				Uri:          n.Attr("uri"),
				Message:      n.Attr("messageTitle"),
				Priority:     priority,
				CheckTitle:   n.Attr("checkTitle"),
				MessageTitle: n.Attr("messageTitle"),
			}
			if f.Uri == "" {
				f.Uri = n.Attr("location")
			}
			result.Findings = append(result.Findings, f)
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(root)
}
