// Package xmlcodec translates between the ADT/abapGit wire XML and the
// client's Go structs: discovery documents, package metadata, abapGit
// repository lists and status, activation results, inactive-object lists,
// async poll-status fragments, and lock responses, plus the handful of
// request bodies the client builds (package create, repo clone, activation).
//
// ADT responses mix several XML vocabularies (atom, adtcore, pak,
// abapgitrepo, chkl, ioc) under prefixes that are not always declared
// consistently. Rather than resolve namespaces, the codec walks a small
// local-name DOM and matches elements and attributes by their local name
// only, mirroring how the reference client reads these documents.
package xmlcodec

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// node is a minimal DOM: local element name, local attribute names, direct
// character data, and ordered children.
type node struct {
	Name     string
	Attrs    map[string]string
	CharData string
	Kids     []*node
}

func localName(n xml.Name) string {
	if i := strings.LastIndexByte(n.Local, ':'); i >= 0 {
		return n.Local[i+1:]
	}
	return n.Local
}

// parseDocument parses xmlText into a node tree rooted at the document's
// single root element. Returns an error if the document is not well-formed
// or has no root element.
func parseDocument(xmlText string) (*node, error) {
	dec := xml.NewDecoder(strings.NewReader(xmlText))
	dec.Strict = false

	var root *node
	var stack []*node

	for {
		tok, err := dec.Token()
		if err != nil {
			if err.Error() == "EOF" {
				break
			}
			return nil, fmt.Errorf("XML parse error: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{Name: localName(t.Name), Attrs: map[string]string{}}
			for _, a := range t.Attr {
				n.Attrs[localName(a.Name)] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Kids = append(parent.Kids, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				cur := stack[len(stack)-1]
				cur.CharData += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("empty document")
	}
	return root, nil
}

// child returns the first direct child element with the given local name,
// or nil if none exists.
func (n *node) child(name string) *node {
	if n == nil {
		return nil
	}
	for _, c := range n.Kids {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// children returns all direct child elements with the given local name, in
// document order.
func (n *node) children(name string) []*node {
	if n == nil {
		return nil
	}
	var out []*node
	for _, c := range n.Kids {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// attr returns the value of the named attribute, or "" if absent.
func (n *node) attr(name string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[name]
}

// childText returns the trimmed direct text of the named child, or "" if
// the child is missing or empty.
func (n *node) childText(name string) string {
	return strings.TrimSpace(n.child(name).text())
}

// text returns the node's own trimmed character data.
func (n *node) text() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.CharData)
}

// firstChild returns the node's first child element regardless of name, or
// nil if it has none. Used for the lock response's anonymous asx:values
// wrapper.
func (n *node) firstChild() *node {
	if n == nil || len(n.Kids) == 0 {
		return nil
	}
	return n.Kids[0]
}

// DOMNode and ParseDocument re-export the local-name DOM for reuse by the
// BW parsers (pkg/bw), which face the same mixed-namespace XML shapes ADT
// does and gain nothing from a second tokenizer.
type DOMNode = node

func ParseDocument(xmlText string) (*DOMNode, error) { return parseDocument(xmlText) }

func (n *node) Child(name string) *node      { return n.child(name) }
func (n *node) Children(name string) []*node { return n.children(name) }
func (n *node) Attr(name string) string      { return n.attr(name) }
func (n *node) ChildText(name string) string { return n.childText(name) }
func (n *node) Text() string                 { return n.text() }
func (n *node) FirstChild() *node            { return n.firstChild() }

// AllChildren returns every direct child element regardless of name.
func (n *node) AllChildren() []*node {
	if n == nil {
		return nil
	}
	return n.Kids
}
