package bw

import (
	"net/url"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const (
	validationPath   = "/sap/bw/modeling/validation"
	moveRequestsPath = "/sap/bw/modeling/move_requests"
)

// ValidationOptions identifies the object to validate.
type ValidationOptions struct {
	ObjectType string
	ObjectName string
	Action     string
}

// ValidationMessage is one message from the validation service.
type ValidationMessage struct {
	Severity string
	Text     string
	Object   string
}

// MoveRequestEntry is one pending move request.
type MoveRequestEntry struct {
	RequestId   string
	ObjectType  string
	ObjectName  string
	Status      string
	Description string
}

func buildValidationPath(opts ValidationOptions) string {
	path := validationPath
	path += "?objectType=" + url.QueryEscape(opts.ObjectType)
	path += "&objectName=" + url.QueryEscape(opts.ObjectName)
	if opts.Action != "" {
		path += "&action=" + url.QueryEscape(opts.Action)
	}
	return path
}

// Validate runs the BW object validation service and returns its messages.
func Validate(s session.Session, opts ValidationOptions) ([]ValidationMessage, *apperr.Error) {
	path := buildValidationPath(opts)
	resp, err := s.Post(path, nil, "application/xml", map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 && resp.StatusCode != 204 {
		return nil, apperr.FromHTTPStatus("BwValidate", path, resp.StatusCode, resp.Body)
	}
	if strings.TrimSpace(resp.Body) == "" {
		return nil, nil
	}

	root, perr := xmlcodec.ParseDocument(resp.Body)
	if perr != nil {
		return nil, apperr.New("BwValidate", apperr.KindInternal, "failed to parse validation XML: "+perr.Error()).WithEndpoint(path)
	}

	var messages []ValidationMessage
	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		if strings.Contains(strings.ToLower(n.Name), "message") {
			text := attrOrChild(n, "text")
			if text == "" {
				text = n.Text()
			}
			if text != "" {
				messages = append(messages, ValidationMessage{
					Severity: attrOrChild(n, "severity"),
					Text:     text,
					Object:   attrOrChild(n, "objectName"),
				})
			}
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(root)
	return messages, nil
}

// ListMoveRequests lists pending BW move requests.
func ListMoveRequests(s session.Session) ([]MoveRequestEntry, *apperr.Error) {
	body, err := fetchAtom(s, "BwListMoveRequests", moveRequestsPath)
	if err != nil {
		return nil, err
	}
	root, perr := xmlcodec.ParseDocument(body)
	if perr != nil {
		return nil, apperr.New("BwListMoveRequests", apperr.KindInternal, "failed to parse move requests XML: "+perr.Error()).WithEndpoint(moveRequestsPath)
	}

	var entries []MoveRequestEntry
	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		if strings.Contains(strings.ToLower(n.Name), "request") {
			id := attrOrChild(n, "requestId")
			if id == "" {
				id = attrOrChild(n, "id")
			}
			if id != "" {
				entries = append(entries, MoveRequestEntry{
					RequestId:   id,
					ObjectType:  attrOrChild(n, "objectType"),
					ObjectName:  attrOrChild(n, "objectName"),
					Status:      attrOrChild(n, "status"),
					Description: attrOrChild(n, "description"),
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
