// Package adt implements the ADT repository operations behind the CLI's
// new-style command groups and the MCP tool registry: search, object
// structure and source round-tripping, syntax checks, ABAP Unit runs, ATC
// quality checks, transport management, DDIC reads, and package listing.
// All parsing follows the shape-probing rules the XML codec uses; every
// operation takes a session.Session and returns a value or an *apperr.Error.
package adt

// SearchOptions parameterizes SearchObjects.
type SearchOptions struct {
	Query      string
	ObjectType string
	MaxResults int
}

// SearchResult is one repository search hit.
type SearchResult struct {
	Name        string
	Type        string
	Uri         string
	Description string
	PackageName string
}

// ObjectInfo is the core metadata of an ABAP repository object.
type ObjectInfo struct {
	Name        string
	Type        string
	Uri         string
	Description string
	SourceUri   string
	Version     string
	Responsible string
	ChangedBy   string
}

// ObjectInclude is one include of a structured object (class sections,
// test classes, macros).
type ObjectInclude struct {
	Name        string
	Type        string
	IncludeType string
	SourceUri   string
}

// ObjectStructure is the full structure answer for one object.
type ObjectStructure struct {
	Info     ObjectInfo
	Includes []ObjectInclude
}

// CreateObjectParams describes the object to create.
type CreateObjectParams struct {
	ObjectType      string
	Name            string
	PackageName     string
	Description     string
	TransportNumber string
}

// SyntaxMessage is one finding from the syntax check reporter.
type SyntaxMessage struct {
	Type   string
	Text   string
	Uri    string
	Line   int
	Offset int
}

// TestAlert is one failure/error alert attached to a test method.
type TestAlert struct {
	Kind     string
	Severity string
	Title    string
	Detail   string
}

// TestMethodResult is the outcome of one ABAP Unit test method.
type TestMethodResult struct {
	Name            string
	ExecutionTimeMs int
	Alerts          []TestAlert
}

// Passed reports whether the method ran without alerts.
func (m TestMethodResult) Passed() bool { return len(m.Alerts) == 0 }

// TestClassResult groups the method results of one test class.
type TestClassResult struct {
	Name             string
	Uri              string
	RiskLevel        string
	DurationCategory string
	Methods          []TestMethodResult
}

// TestRunResult is the parsed outcome of one ABAP Unit run.
type TestRunResult struct {
	Classes []TestClassResult
}

// TotalMethods counts all executed test methods.
func (r TestRunResult) TotalMethods() int {
	n := 0
	for _, c := range r.Classes {
		n += len(c.Methods)
	}
	return n
}

// TotalFailed counts methods with at least one alert.
func (r TestRunResult) TotalFailed() int {
	n := 0
	for _, c := range r.Classes {
		for _, m := range c.Methods {
			if !m.Passed() {
				n++
			}
		}
	}
	return n
}

// AllPassed reports whether every method passed.
func (r TestRunResult) AllPassed() bool { return r.TotalFailed() == 0 }

// AtcFinding is one ATC check finding.
type AtcFinding struct {
	Uri          string
	Message      string
	Priority     int
	CheckTitle   string
	MessageTitle string
}

// AtcResult is the outcome of one ATC run.
type AtcResult struct {
	WorklistId string
	Findings   []AtcFinding
}

// ErrorCount counts priority-1 findings.
func (r AtcResult) ErrorCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Priority == 1 {
			n++
		}
	}
	return n
}

// WarningCount counts priority-2 findings.
func (r AtcResult) WarningCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Priority == 2 {
			n++
		}
	}
	return n
}

// TransportInfo is one transport request.
type TransportInfo struct {
	Number      string
	Description string
	Owner       string
	Status      string
	Target      string
}

// TableField is one field of a DDIC table definition.
type TableField struct {
	Name        string
	Type        string
	Description string
	KeyField    bool
}

// TableInfo is a DDIC table definition.
type TableInfo struct {
	Name          string
	Description   string
	DeliveryClass string
	Fields        []TableField
}

// PackageEntry is one object inside a package.
type PackageEntry struct {
	ObjectType  string
	ObjectName  string
	ObjectUri   string
	Description string
	Expandable  bool
	PackageName string
}

// PackageTreeOptions parameterizes ListPackageTree.
type PackageTreeOptions struct {
	RootPackage string
	TypeFilter  string
	MaxDepth    int
}
