// Package mcpserver implements the MCP tool server: a registry of
// JSON-schema-described tools over the same ADT operations the CLI
// exposes, and a JSON-RPC 2.0 loop that serves them over stdin/stdout.
package mcpserver

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
)

// ContentItem is one piece of tool-result content. Only text items are
// produced here.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the outcome of one tool execution.
type ToolResult struct {
	IsError bool          `json:"isError,omitempty"`
	Content []ContentItem `json:"content"`
}

// ToolHandler executes one tool call with already-decoded parameters.
type ToolHandler func(params map[string]any) ToolResult

// Tool is one registered tool: name, human description, the JSON schema
// its parameters must satisfy, and the handler.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     ToolHandler
}

// Registry stores tools indexed by name and validates parameters against
// each tool's schema before the handler runs.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register stores a tool under its name, replacing any previous entry.
func (r *Registry) Register(name, description string, inputSchema map[string]any, handler ToolHandler) {
	r.tools[name] = Tool{Name: name, Description: description, InputSchema: inputSchema, Handler: handler}
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Execute validates params against the tool's schema and runs its handler.
// Unknown tools and schema violations come back as is_error results, never
// as transport-level failures.
func (r *Registry) Execute(name string, params map[string]any) ToolResult {
	tool, ok := r.tools[name]
	if !ok {
		return ParamError("Unknown tool: " + name)
	}

	if tool.InputSchema != nil {
		schemaJSON, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return ParamError("invalid tool schema: " + err.Error())
		}
		if params == nil {
			params = map[string]any{}
		}
		docJSON, err := json.Marshal(params)
		if err != nil {
			return ParamError("invalid tool parameters: " + err.Error())
		}
		result, err := gojsonschema.Validate(
			gojsonschema.NewBytesLoader(schemaJSON),
			gojsonschema.NewBytesLoader(docJSON))
		if err != nil {
			return ParamError("parameter validation failed: " + err.Error())
		}
		if !result.Valid() {
			msg := "Invalid parameters:"
			for _, verr := range result.Errors() {
				msg += fmt.Sprintf(" %s;", verr.String())
			}
			return ParamError(msg)
		}
	}

	return tool.Handler(params)
}

// OkResult wraps a JSON-encodable value as a single text content item.
func OkResult(v any) ToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return ParamError("failed to encode result: " + err.Error())
	}
	return ToolResult{Content: []ContentItem{{Type: "text", Text: string(data)}}}
}

// ErrorResult wraps a structured operation error as an is_error result.
func ErrorResult(err *apperr.Error) ToolResult {
	data, merr := json.Marshal(map[string]any{"error": err, "exit_code": err.ExitCode()})
	if merr != nil {
		return ParamError(err.Message)
	}
	return ToolResult{IsError: true, Content: []ContentItem{{Type: "text", Text: string(data)}}}
}

// ParamError reports a missing/invalid parameter as an is_error result.
func ParamError(message string) ToolResult {
	return ToolResult{IsError: true, Content: []ContentItem{{Type: "text", Text: message}}}
}

// Schema helpers shared by every tool registration.

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func intProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func makeSchema(properties map[string]any, required []string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// Parameter extraction helpers.

func requireString(params map[string]any, key string) (string, *ToolResult) {
	v, ok := params[key]
	if !ok {
		r := ParamError("Missing required parameter: " + key)
		return "", &r
	}
	s, ok := v.(string)
	if !ok || s == "" {
		r := ParamError("Missing required parameter: " + key)
		return "", &r
	}
	return s, nil
}

func optString(params map[string]any, key, def string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func optInt(params map[string]any, key string, def int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}
