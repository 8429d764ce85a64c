package apperr

import (
	"encoding/xml"
	"strings"
)

// adtExceptionBody matches the common SAP ADT error envelope:
//
//	<exc:exception xmlns:exc="http://www.sap.com/abapxml/types/communicationframework">
//	  <localizedMessage>...</localizedMessage>
//	  <message>...</message>
//	</exc:exception>
type adtExceptionBody struct {
	XMLName           xml.Name `xml:"exception"`
	LocalizedMessage  string   `xml:"localizedMessage"`
	Message           string   `xml:"message"`
}

// ExtractSapMessage pulls a short, human-readable message out of a SAP
// error response body. SAP error bodies are inconsistent: some are XML
// exception envelopes, some are plain text, some are HTML. This makes a
// best effort and never fails — an empty string means nothing useful was
// found.
func ExtractSapMessage(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	if strings.HasPrefix(body, "<") {
		var exc adtExceptionBody
		if err := xml.Unmarshal([]byte(body), &exc); err == nil {
			if exc.LocalizedMessage != "" {
				return exc.LocalizedMessage
			}
			if exc.Message != "" {
				return exc.Message
			}
		}
		// Fall back to scanning for any <message>...</message> anywhere in
		// the document (SAP sometimes nests it under unrelated roots).
		if msg := scanForElement(body, "message"); msg != "" {
			return msg
		}
		return ""
	}
	// Plain text body: truncate to keep messages short.
	if len(body) > 300 {
		return body[:300]
	}
	return body
}

func scanForElement(body, localName string) string {
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == localName {
			var text string
			if err := dec.DecodeElement(&text, &se); err == nil && strings.TrimSpace(text) != "" {
				return strings.TrimSpace(text)
			}
		}
	}
}
