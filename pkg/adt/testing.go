package adt

import (
	"strconv"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const testRunsPath = "/sap/bc/adt/abapunit/testruns"

func buildTestRunXml(uri string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<aunit:runConfiguration xmlns:aunit="http://www.sap.com/adt/aunit">
  <external>
    <coverage active="false"/>
  </external>
  <options>
    <uriType value="semantic"/>
    <testDeterminationStrategy sameProgram="true" assignedTests="false"/>
    <testRiskLevels harmless="true" dangerous="true" critical="true"/>
    <testDurations short="true" medium="true" long="true"/>
    <withNavigationUri enabled="true"/>
  </options>
  <adtcore:objectSets xmlns:adtcore="http://www.sap.com/adt/core">
    <objectSet kind="inclusive">
      <adtcore:objectReferences>
        <adtcore:objectReference adtcore:uri="` + xmlcodec.EscapeAttr(uri) + `"/>
      </adtcore:objectReferences>
    </objectSet>
  </adtcore:objectSets>
</aunit:runConfiguration>
`
}

// RunTests runs ABAP Unit for an object or package URI and parses the
// structured pass/fail result.
func RunTests(s session.Session, uri string) (*TestRunResult, *apperr.Error) {
	body := buildTestRunXml(uri)
	resp, err := s.Post(testRunsPath, []byte(body), "application/*", map[string]string{"Accept": "application/*"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("RunTests", uri, resp.StatusCode, resp.Body)
	}
	return parseTestRunResult(resp.Body)
}

func parseTestRunResult(body string) (*TestRunResult, *apperr.Error) {
	result := &TestRunResult{}
	root, err := xmlcodec.ParseDocument(body)
	if err != nil {
		return nil, apperr.New("RunTests", apperr.KindTestFailure, "failed to parse test run response XML: "+err.Error())
	}

	// Navigate runResult > program > testClasses > testClass.
	for _, program := range root.AllChildren() {
		testClasses := program.Child("testClasses")
		if testClasses == nil {
			continue
		}
		for _, tc := range testClasses.Children("testClass") {
			cls := TestClassResult{
				Name:             tc.Attr("name"),
				Uri:              tc.Attr("uri"),
				RiskLevel:        tc.Attr("riskLevel"),
				DurationCategory: tc.Attr("durationCategory"),
			}
			methods := tc.Child("testMethods")
			if methods == nil {
				result.Classes = append(result.Classes, cls)
				continue
			}
			for _, tm := range methods.Children("testMethod") {
				method := TestMethodResult{Name: tm.Attr("name")}
				if et := tm.Attr("executionTime"); et != "" {
					method.ExecutionTimeMs, _ = strconv.Atoi(et)
				}
				if alerts := tm.Child("alerts"); alerts != nil {
					for _, alert := range alerts.Children("alert") {
						ta := TestAlert{
							Kind:     alert.Attr("kind"),
							Severity: alert.Attr("severity"),
							Title:    alert.ChildText("title"),
						}
						if details := alert.Child("details"); details != nil {
							if detail := details.Child("detail"); detail != nil {
								ta.Detail = detail.Attr("text")
							}
						}
						method.Alerts = append(method.Alerts, ta)
					}
				}
				cls.Methods = append(cls.Methods, method)
			}
			result.Classes = append(result.Classes, cls)
		}
	}
	return result, nil
}
