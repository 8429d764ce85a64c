package bw

import (
	"strings"
	"time"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/protocol"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const bwActivationPath = "/sap/bw/modeling/activation"

// ActivationMode selects the ?mode= variant of the BW mass-activation call.
type ActivationMode int

const (
	ModeActivate ActivationMode = iota
	ModeValidate
	ModeSimulate
	ModeBackground
)

// ActivationObject is one object reference in a BW activation request.
type ActivationObject struct {
	Name        string
	Type        string
	Subtype     string
	Version     string
	Status      string
	Description string
	Package     string
	Transport   string
	Uri         string
}

// ActivateOptions parameterizes Activate.
type ActivateOptions struct {
	Objects   []ActivationObject
	Mode      ActivationMode
	Force     bool
	Transport string
	Timeout   time.Duration
}

// ActivationMessage is one message returned by the activation service.
type ActivationMessage struct {
	Severity string
	Text     string
}

// ActivationOutcome is the parsed result of a BW activation call.
type ActivationOutcome struct {
	Success  bool
	JobGuid  string
	Messages []ActivationMessage
}

func buildBwActivationXml(opts ActivateOptions) string {
	var b strings.Builder
	b.WriteString(`<bwActivation:objects xmlns:bwActivation="http://www.sap.com/bw/massact"`)
	b.WriteString(` bwChangeable="" basisChangeable=""`)
	if opts.Force {
		b.WriteString(` forceAct="true"`)
	}
	b.WriteString(">")
	for _, o := range opts.Objects {
		b.WriteString(`<object objectName="` + xmlcodec.EscapeAttr(o.Name) + `"`)
		b.WriteString(` objectType="` + xmlcodec.EscapeAttr(o.Type) + `"`)
		b.WriteString(` objectVersion="` + xmlcodec.EscapeAttr(o.Version) + `"`)
		b.WriteString(` technicalObjectName="` + xmlcodec.EscapeAttr(o.Name) + `"`)
		b.WriteString(` objectSubtype="` + xmlcodec.EscapeAttr(o.Subtype) + `"`)
		b.WriteString(` objectDesc="` + xmlcodec.EscapeAttr(o.Description) + `"`)
		b.WriteString(` objectStatus="` + xmlcodec.EscapeAttr(o.Status) + `"`)
		b.WriteString(` activateObj="true" associationType=""`)
		b.WriteString(` corrnum="` + xmlcodec.EscapeAttr(o.Transport) + `"`)
		b.WriteString(` package="` + xmlcodec.EscapeAttr(o.Package) + `"`)
		b.WriteString(` href="` + xmlcodec.EscapeAttr(o.Uri) + `" hrefType=""/>`)
	}
	b.WriteString("</bwActivation:objects>")
	return b.String()
}

func buildBwActivationUrl(opts ActivateOptions) string {
	u := bwActivationPath + "?mode="
	switch opts.Mode {
	case ModeValidate:
		u += "validate"
	case ModeSimulate:
		u += "activate&simu=true"
	case ModeBackground:
		u += "activate&asjob=true"
	default:
		u += "activate&simu=false"
	}
	if opts.Transport != "" {
		u += "&corrnum=" + opts.Transport
	}
	return u
}

// parseBwActivationResponse classifies the activation outcome. Any message
// with severity E or A marks the run failed; a non-parseable body on an
// HTTP success is treated as success, matching the server's habit of
// returning empty bodies for clean activations.
func parseBwActivationResponse(body, location string) *ActivationOutcome {
	out := &ActivationOutcome{Success: true}
	if idx := strings.Index(location, "/jobs/"); idx >= 0 {
		out.JobGuid = location[idx+len("/jobs/"):]
	}
	if strings.TrimSpace(body) == "" {
		return out
	}
	root, err := xmlcodec.ParseDocument(body)
	if err != nil {
		return out
	}
	collectActivationMessages(root, out)
	for _, m := range out.Messages {
		if m.Severity == "E" || m.Severity == "A" {
			out.Success = false
		}
	}
	return out
}

func collectActivationMessages(n *xmlcodec.DOMNode, out *ActivationOutcome) {
	for _, c := range n.AllChildren() {
		collectActivationMessages(c, out)
	}
	if strings.Contains(strings.ToLower(n.Name), "message") {
		sev := attrAny(n, "bwActivation:severity", "severity")
		if sev == "" {
			sev = attrAny(n, "bwActivation:type", "type")
		}
		text := attrAny(n, "bwActivation:text", "text")
		if text == "" {
			text = strings.TrimSpace(n.Text())
		}
		if sev != "" || text != "" {
			out.Messages = append(out.Messages, ActivationMessage{Severity: sev, Text: text})
		}
	}
}

// Activate runs the BW mass-activation service over the given objects. A
// 202 response is polled to completion through the shared protocol kernel;
// background mode returns immediately with the job GUID from Location.
func Activate(s session.Session, opts ActivateOptions) (*ActivationOutcome, *apperr.Error) {
	if len(opts.Objects) == 0 {
		return nil, apperr.New("BwActivate", apperr.KindActivationError, "no objects to activate")
	}
	path := buildBwActivationUrl(opts)
	body := buildBwActivationXml(opts)

	resp, err := s.Post(path, []byte(body), "application/xml", map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, err
	}

	location, _ := resp.Headers.Get("location")
	switch {
	case resp.StatusCode == 200 || resp.StatusCode == 201:
		return parseBwActivationResponse(resp.Body, location), nil
	case resp.StatusCode == 202:
		if opts.Mode == ModeBackground {
			return parseBwActivationResponse(resp.Body, location), nil
		}
		if location == "" {
			return nil, apperr.New("BwActivate", apperr.KindInternal, "202 response without Location header").WithEndpoint(path)
		}
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 5 * time.Minute
		}
		poll, perr := s.PollUntilComplete(location, timeout)
		if perr != nil {
			return nil, perr
		}
		switch poll.Status {
		case protocol.Completed:
			return parseBwActivationResponse(poll.Body, ""), nil
		case protocol.Running:
			return nil, apperr.New("BwActivate", apperr.KindTimeout, "activation still running after timeout").WithEndpoint(location)
		default:
			return nil, apperr.New("BwActivate", apperr.KindActivationError, "activation failed").WithEndpoint(location).WithSapError(apperr.ExtractSapMessage(poll.Body))
		}
	default:
		return nil, apperr.FromHTTPStatus("BwActivate", path, resp.StatusCode, resp.Body)
	}
}

// GetJobStatus reads a background activation job's state.
func GetJobStatus(s session.Session, guid string) (string, *apperr.Error) {
	path := "/sap/bw/modeling/jobs/" + guid
	resp, err := s.Get(path, map[string]string{"Accept": "application/xml"})
	if err != nil {
		return "", err
	}
	if resp.StatusCode != 200 {
		return "", apperr.FromHTTPStatus("BwGetJobStatus", path, resp.StatusCode, resp.Body)
	}
	root, perr := xmlcodec.ParseDocument(resp.Body)
	if perr != nil {
		return "", apperr.New("BwGetJobStatus", apperr.KindInternal, "failed to parse job status XML: "+perr.Error()).WithEndpoint(path)
	}
	if status := attrAny(root, "bwJobs:status", "status"); status != "" {
		return status, nil
	}
	return root.ChildText("status"), nil
}
