package adt

import (
	"net/url"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const transportRequestsPath = "/sap/bc/adt/cts/transportrequests"

// ListTransports lists modifiable transport requests owned by user.
func ListTransports(s session.Session, user string) ([]TransportInfo, *apperr.Error) {
	if user == "" {
		user = "DEVELOPER"
	}
	path := transportRequestsPath + "?user=" + url.QueryEscape(user) + "&requestType=KWT&requestStatus=D"
	resp, err := s.Get(path, map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("ListTransports", path, resp.StatusCode, resp.Body)
	}
	return parseTransportList(resp.Body)
}

func parseTransportList(body string) ([]TransportInfo, *apperr.Error) {
	root, err := xmlcodec.ParseDocument(body)
	if err != nil {
		return nil, nil
	}

	var transports []TransportInfo
	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		if n.Name == "request" {
			t := TransportInfo{
				Number:      n.Attr("number"),
				Description: n.Attr("desc"),
				Owner:       n.Attr("owner"),
				Status:      n.Attr("status"),
				Target:      n.Attr("targetSystem"),
			}
			if t.Description == "" {
				t.Description = n.Attr("description")
			}
			if t.Target == "" {
				t.Target = n.Attr("target")
			}
			if t.Number != "" {
				transports = append(transports, t)
			}
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(root)
	return transports, nil
}

func buildTransportCreateXml(description, targetPackage string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<tm:root xmlns:tm="http://www.sap.com/cts/adt/tm" tm:useraction="newrequest">
  <tm:request tm:desc="` + xmlcodec.EscapeAttr(description) + `" tm:type="K" tm:target="LOCAL" tm:cts_project="">
    <tm:task/>
  </tm:request>
</tm:root>
`
}

// CreateTransport creates a new workbench transport request and returns
// its number. targetPackage is accepted but not included in the request
// body; the objects themselves bind to the transport when they are locked
// into it.
func CreateTransport(s session.Session, description, targetPackage string) (string, *apperr.Error) {
	body := buildTransportCreateXml(description, targetPackage)
	resp, err := s.Post(transportRequestsPath, []byte(body), "text/plain", map[string]string{"Accept": "application/xml"})
	if err != nil {
		return "", err
	}
	if resp.StatusCode != 200 && resp.StatusCode != 201 {
		return "", apperr.FromHTTPStatus("CreateTransport", transportRequestsPath, resp.StatusCode, resp.Body)
	}

	if number := transportNumberFromBody(resp.Body); number != "" {
		return number, nil
	}
	if location, ok := resp.Headers.Get("location"); ok && location != "" {
		parts := strings.Split(strings.TrimRight(location, "/"), "/")
		return parts[len(parts)-1], nil
	}
	return "", apperr.New("CreateTransport", apperr.KindTransportError, "transport created but no number in response").WithEndpoint(transportRequestsPath)
}

func transportNumberFromBody(body string) string {
	root, err := xmlcodec.ParseDocument(body)
	if err != nil {
		return ""
	}
	var number string
	var walk func(n *xmlcodec.DOMNode)
	walk = func(n *xmlcodec.DOMNode) {
		if number != "" {
			return
		}
		if n.Name == "request" {
			if v := n.Attr("number"); v != "" {
				number = v
				return
			}
		}
		for _, c := range n.AllChildren() {
			walk(c)
		}
	}
	walk(root)
	return number
}

// ReleaseTransport releases a transport request for import.
func ReleaseTransport(s session.Session, transportNumber string) *apperr.Error {
	path := transportRequestsPath + "/" + url.PathEscape(transportNumber) + "/newreleasejobs"
	resp, err := s.Post(path, nil, "application/xml", map[string]string{"Accept": "application/xml"})
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 && resp.StatusCode != 201 && resp.StatusCode != 204 {
		return apperr.FromHTTPStatus("ReleaseTransport", path, resp.StatusCode, resp.Body)
	}
	return nil
}
