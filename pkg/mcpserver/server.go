package mcpserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/erpl-adt/erpl-adt/pkg/logging"
)

// protocolVersion is the MCP protocol revision this server speaks.
const protocolVersion = "2024-11-05"

// ServerInfo identifies the server in the initialize handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Server reads newline-delimited JSON-RPC 2.0 requests from In and writes
// responses to Out. One request is processed fully before the next line is
// read; tool execution additionally serializes through a mutex so the
// shared session's CSRF/cookie state is never mutated concurrently.
type Server struct {
	registry *Registry
	info     ServerInfo

	In  io.Reader
	Out io.Writer

	mu         sync.Mutex
	instanceID string
}

// NewServer builds a Server over the given registry.
func NewServer(registry *Registry, info ServerInfo) *Server {
	return &Server{
		registry:   registry,
		info:       info,
		instanceID: uuid.NewString(),
	}
}

type rpcRequest struct {
	JsonRpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JsonRpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// Run serves requests until EOF on In. Malformed lines produce JSON-RPC
// error responses rather than terminating the loop.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(s.In)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	logging.L().Infow("mcp server started", "instance_id", s.instanceID, "tools", len(s.registry.Tools()))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.writeResponse(rpcResponse{JsonRpc: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error: " + err.Error()}})
			continue
		}

		// Notifications (no id) get no response.
		if req.ID == nil {
			continue
		}
		s.writeResponse(s.handle(req))
	}
	return scanner.Err()
}

func (s *Server) handle(req rpcRequest) rpcResponse {
	resp := rpcResponse{JsonRpc: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		resp.Result = map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": s.info.Name, "version": s.info.Version, "instanceId": s.instanceID},
		}
	case "ping":
		resp.Result = map[string]any{}
	case "tools/list":
		tools := s.registry.Tools()
		list := make([]map[string]any, 0, len(tools))
		for _, t := range tools {
			list = append(list, map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"inputSchema": t.InputSchema,
			})
		}
		resp.Result = map[string]any{"tools": list}
	case "tools/call":
		var params struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp.Error = &rpcError{Code: codeInvalidParams, Message: "invalid tools/call params: " + err.Error()}
			return resp
		}
		if params.Name == "" {
			resp.Error = &rpcError{Code: codeInvalidParams, Message: "missing tool name"}
			return resp
		}
		callID := uuid.NewString()
		logging.L().Infow("tool call", "tool", params.Name, "call_id", callID)

		s.mu.Lock()
		result := s.registry.Execute(params.Name, params.Arguments)
		s.mu.Unlock()

		logging.L().Infow("tool call done", "tool", params.Name, "call_id", callID, "is_error", result.IsError)
		resp.Result = result
	default:
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
	}
	return resp
}

func (s *Server) writeResponse(resp rpcResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		fmt.Fprintf(s.Out, `{"jsonrpc":"2.0","error":{"code":%d,"message":%q}}`+"\n", codeInvalidRequest, err.Error())
		return
	}
	fmt.Fprintln(s.Out, string(data))
}
