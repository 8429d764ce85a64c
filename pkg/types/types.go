// Package types provides the validated, immutable value types shared across
// the erpl-adt client: package names, repository URLs, branch references,
// ADT object identifiers, transport IDs, lock handles, and SAP language
// codes. Every type is constructed through a smart constructor that returns
// an error for malformed input; once constructed, values are comparable by
// content and safe to pass by value.
package types

import (
	"fmt"
	"strings"
)

// PackageName is a validated ABAP package name: at most 30 characters,
// uppercase letters/digits/underscore/slash, optionally namespaced
// (/NAMESPACE/NAME) or dollar-prefixed ($TMP).
type PackageName struct{ value string }

// NewPackageName validates and constructs a PackageName.
func NewPackageName(name string) (PackageName, error) {
	if name == "" {
		return PackageName{}, fmt.Errorf("package name must not be empty")
	}
	if len(name) > 30 {
		return PackageName{}, fmt.Errorf("package name must be at most 30 characters, got %d", len(name))
	}
	if name[0] == '$' {
		return PackageName{value: name}, nil
	}
	if !isAllUpperDigitUnderscoreSlash(name) {
		return PackageName{}, fmt.Errorf("package name must contain only uppercase letters, digits, underscores, and '/' for namespaces")
	}
	if name[0] == '/' {
		secondSlash := strings.Index(name[1:], "/")
		if secondSlash < 0 {
			return PackageName{}, fmt.Errorf("namespace package name must have the form /NAMESPACE/NAME")
		}
		secondSlash++ // index relative to name[1:] -> absolute
		if secondSlash == 1 {
			return PackageName{}, fmt.Errorf("namespace part must not be empty")
		}
		afterNs := name[secondSlash+1:]
		if afterNs == "" {
			return PackageName{}, fmt.Errorf("package name after namespace must not be empty")
		}
		if strings.Contains(afterNs, "/") {
			return PackageName{}, fmt.Errorf("package name must not contain additional '/' after namespace")
		}
		return PackageName{value: name}, nil
	}
	if !(name[0] >= 'A' && name[0] <= 'Z') {
		return PackageName{}, fmt.Errorf("non-namespace package name must start with a letter")
	}
	return PackageName{value: name}, nil
}

// MustPackageName panics on invalid input; intended for tests and literal construction.
func MustPackageName(name string) PackageName {
	v, err := NewPackageName(name)
	if err != nil {
		panic(err)
	}
	return v
}

func (p PackageName) String() string        { return p.value }
func (p PackageName) Equal(o PackageName) bool { return p.value == o.value }
func (p PackageName) IsZero() bool           { return p.value == "" }

func isAllUpperDigitUnderscoreSlash(s string) bool {
	for _, c := range s {
		if !isUpperDigitUnderscore(byte(c)) && c != '/' {
			return false
		}
	}
	return true
}

func isUpperDigitUnderscore(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

// RepoUrl is a validated https:// abapGit repository URL.
type RepoUrl struct{ value string }

func NewRepoUrl(url string) (RepoUrl, error) {
	if url == "" {
		return RepoUrl{}, fmt.Errorf("repository URL must not be empty")
	}
	if !strings.HasPrefix(url, "https://") {
		return RepoUrl{}, fmt.Errorf("repository URL must start with https://")
	}
	if len(url) <= len("https://") {
		return RepoUrl{}, fmt.Errorf("repository URL must have a host after https://")
	}
	return RepoUrl{value: url}, nil
}

func MustRepoUrl(url string) RepoUrl {
	v, err := NewRepoUrl(url)
	if err != nil {
		panic(err)
	}
	return v
}

func (r RepoUrl) String() string          { return r.value }
func (r RepoUrl) Equal(o RepoUrl) bool    { return r.value == o.value }
func (r RepoUrl) IsZero() bool            { return r.value == "" }

// BranchRef is a non-empty git branch reference; the package-level default
// is "refs/heads/main".
type BranchRef struct{ value string }

const DefaultBranchRef = "refs/heads/main"

func NewBranchRef(ref string) (BranchRef, error) {
	if ref == "" {
		return BranchRef{}, fmt.Errorf("branch reference must not be empty")
	}
	return BranchRef{value: ref}, nil
}

func MustBranchRef(ref string) BranchRef {
	v, err := NewBranchRef(ref)
	if err != nil {
		panic(err)
	}
	return v
}

// DefaultBranch returns the default BranchRef ("refs/heads/main").
func DefaultBranch() BranchRef { return BranchRef{value: DefaultBranchRef} }

func (b BranchRef) String() string       { return b.value }
func (b BranchRef) Equal(o BranchRef) bool { return b.value == o.value }
func (b BranchRef) IsZero() bool         { return b.value == "" }

// RepoKey is an opaque, non-empty repository key as returned by abapGit.
type RepoKey struct{ value string }

func NewRepoKey(key string) (RepoKey, error) {
	if key == "" {
		return RepoKey{}, fmt.Errorf("repository key must not be empty")
	}
	return RepoKey{value: key}, nil
}

func MustRepoKey(key string) RepoKey {
	v, err := NewRepoKey(key)
	if err != nil {
		panic(err)
	}
	return v
}

func (r RepoKey) String() string       { return r.value }
func (r RepoKey) Equal(o RepoKey) bool { return r.value == o.value }
func (r RepoKey) IsZero() bool         { return r.value == "" }

// SapClient is an exactly-3-digit SAP client number.
type SapClient struct{ value string }

func NewSapClient(client string) (SapClient, error) {
	if len(client) != 3 {
		return SapClient{}, fmt.Errorf("SAP client must be exactly 3 digits, got %d characters", len(client))
	}
	for _, c := range client {
		if c < '0' || c > '9' {
			return SapClient{}, fmt.Errorf("SAP client must contain only digits")
		}
	}
	return SapClient{value: client}, nil
}

func MustSapClient(client string) SapClient {
	v, err := NewSapClient(client)
	if err != nil {
		panic(err)
	}
	return v
}

func (s SapClient) String() string        { return s.value }
func (s SapClient) Equal(o SapClient) bool { return s.value == o.value }
func (s SapClient) IsZero() bool          { return s.value == "" }

// ObjectUri is a validated ADT object URI (must start with /sap/bc/adt/).
type ObjectUri struct{ value string }

const ObjectUriPrefix = "/sap/bc/adt/"

func NewObjectUri(uri string) (ObjectUri, error) {
	if uri == "" {
		return ObjectUri{}, fmt.Errorf("object URI must not be empty")
	}
	if !strings.HasPrefix(uri, ObjectUriPrefix) {
		return ObjectUri{}, fmt.Errorf("object URI must start with %s", ObjectUriPrefix)
	}
	if len(uri) <= len(ObjectUriPrefix) {
		return ObjectUri{}, fmt.Errorf("object URI must have a path after %s", ObjectUriPrefix)
	}
	return ObjectUri{value: uri}, nil
}

func MustObjectUri(uri string) ObjectUri {
	v, err := NewObjectUri(uri)
	if err != nil {
		panic(err)
	}
	return v
}

func (o ObjectUri) String() string        { return o.value }
func (o ObjectUri) Equal(b ObjectUri) bool { return o.value == b.value }
func (o ObjectUri) IsZero() bool          { return o.value == "" }

// ObjectType is a validated ADT object type code, e.g. "CLAS/OC" — exactly
// one '/' separating two non-empty uppercase/digit/underscore segments.
type ObjectType struct{ value string }

func NewObjectType(t string) (ObjectType, error) {
	if t == "" {
		return ObjectType{}, fmt.Errorf("object type must not be empty")
	}
	slash := strings.IndexByte(t, '/')
	if slash < 0 {
		return ObjectType{}, fmt.Errorf("object type must contain a '/' separator (e.g. CLAS/OC)")
	}
	if slash == 0 {
		return ObjectType{}, fmt.Errorf("object type category must not be empty")
	}
	if slash == len(t)-1 {
		return ObjectType{}, fmt.Errorf("object type subcategory must not be empty")
	}
	for i := 0; i < len(t); i++ {
		c := t[i]
		if c != '/' && !isUpperDigitUnderscore(c) {
			return ObjectType{}, fmt.Errorf("object type must contain only uppercase letters, digits, underscores, and one '/' separator")
		}
	}
	if strings.Count(t, "/") != 1 {
		return ObjectType{}, fmt.Errorf("object type must contain exactly one '/' separator")
	}
	return ObjectType{value: t}, nil
}

func MustObjectType(t string) ObjectType {
	v, err := NewObjectType(t)
	if err != nil {
		panic(err)
	}
	return v
}

func (o ObjectType) String() string         { return o.value }
func (o ObjectType) Equal(b ObjectType) bool { return o.value == b.value }
func (o ObjectType) IsZero() bool           { return o.value == "" }

// Category returns the part before the '/'.
func (o ObjectType) Category() string {
	i := strings.IndexByte(o.value, '/')
	if i < 0 {
		return ""
	}
	return o.value[:i]
}

// Subcategory returns the part after the '/'.
func (o ObjectType) Subcategory() string {
	i := strings.IndexByte(o.value, '/')
	if i < 0 {
		return ""
	}
	return o.value[i+1:]
}

// TransportId is exactly 4 uppercase letters followed by 6 digits.
type TransportId struct{ value string }

func NewTransportId(id string) (TransportId, error) {
	if len(id) != 10 {
		return TransportId{}, fmt.Errorf("transport ID must be exactly 10 characters (e.g. NPLK900001), got %d", len(id))
	}
	for i := 0; i < 4; i++ {
		if id[i] < 'A' || id[i] > 'Z' {
			return TransportId{}, fmt.Errorf("transport ID must start with 4 uppercase letters")
		}
	}
	for i := 4; i < 10; i++ {
		if id[i] < '0' || id[i] > '9' {
			return TransportId{}, fmt.Errorf("transport ID must end with 6 digits")
		}
	}
	return TransportId{value: id}, nil
}

func MustTransportId(id string) TransportId {
	v, err := NewTransportId(id)
	if err != nil {
		panic(err)
	}
	return v
}

func (t TransportId) String() string          { return t.value }
func (t TransportId) Equal(o TransportId) bool { return t.value == o.value }
func (t TransportId) IsZero() bool            { return t.value == "" }

// LockHandle is an opaque, non-empty lock handle returned by the ADT lock endpoint.
type LockHandle struct{ value string }

func NewLockHandle(handle string) (LockHandle, error) {
	if handle == "" {
		return LockHandle{}, fmt.Errorf("lock handle must not be empty")
	}
	return LockHandle{value: handle}, nil
}

func MustLockHandle(handle string) LockHandle {
	v, err := NewLockHandle(handle)
	if err != nil {
		panic(err)
	}
	return v
}

func (l LockHandle) String() string          { return l.value }
func (l LockHandle) Equal(o LockHandle) bool { return l.value == o.value }
func (l LockHandle) IsZero() bool           { return l.value == "" }

// SapLanguage is exactly 2 uppercase letters, e.g. "EN".
type SapLanguage struct{ value string }

func NewSapLanguage(lang string) (SapLanguage, error) {
	if len(lang) != 2 {
		return SapLanguage{}, fmt.Errorf("SAP language must be exactly 2 characters, got %d", len(lang))
	}
	if lang[0] < 'A' || lang[0] > 'Z' || lang[1] < 'A' || lang[1] > 'Z' {
		return SapLanguage{}, fmt.Errorf("SAP language must be 2 uppercase letters (e.g. EN)")
	}
	return SapLanguage{value: lang}, nil
}

func MustSapLanguage(lang string) SapLanguage {
	v, err := NewSapLanguage(lang)
	if err != nil {
		panic(err)
	}
	return v
}

func (s SapLanguage) String() string          { return s.value }
func (s SapLanguage) Equal(o SapLanguage) bool { return s.value == o.value }
func (s SapLanguage) IsZero() bool            { return s.value == "" }

// CheckVariant is a non-empty ATC check variant name.
type CheckVariant struct{ value string }

func NewCheckVariant(variant string) (CheckVariant, error) {
	if variant == "" {
		return CheckVariant{}, fmt.Errorf("check variant must not be empty")
	}
	return CheckVariant{value: variant}, nil
}

func MustCheckVariant(variant string) CheckVariant {
	v, err := NewCheckVariant(variant)
	if err != nil {
		panic(err)
	}
	return v
}

func (c CheckVariant) String() string           { return c.value }
func (c CheckVariant) Equal(o CheckVariant) bool { return c.value == o.value }
func (c CheckVariant) IsZero() bool             { return c.value == "" }
