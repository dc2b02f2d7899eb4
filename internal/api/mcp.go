package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rentshield/rentshield/internal/logging"
	"github.com/rentshield/rentshield/internal/pipeline"
)

// JSON-RPC error codes used by the MCP endpoint.
const (
	rpcParseError     = -32700
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcInternalError  = -32603
)

const mcpProtocolVersion = "2024-11-05"

// MCPRequest is a JSON-RPC request from a Model Context Protocol client.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse is a JSON-RPC response.
type MCPResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *MCPError `json:"error,omitempty"`
}

// MCPError is a JSON-RPC error object.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ToolDefinition describes a tool in a tools/list reply.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

// MCP exposes the analysis pipeline as Model Context Protocol tools so agent
// clients can check evidence without speaking the REST API.
func (h *Handler) MCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req MCPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendRPCError(w, nil, rpcParseError, "Parse error: "+err.Error())
		return
	}

	logging.FromContext(r.Context(), h.logger).Info("mcp request received", "method", req.Method)

	switch req.Method {
	case "initialize":
		h.sendRPCResult(w, req.ID, map[string]any{
			"protocolVersion": mcpProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    "rentshield",
				"version": Version,
			},
		})
	case "tools/list":
		h.sendRPCResult(w, req.ID, map[string]any{"tools": mcpTools()})
	case "tools/call":
		h.handleToolCall(r.Context(), w, req)
	default:
		h.sendRPCError(w, req.ID, rpcMethodNotFound, "Method not found: "+req.Method)
	}
}

func mcpTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "analyze_image_evidence",
			Description: "Download an evidence photo and score its authenticity, scene content and consistency with the tenant's claim.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"image_url": map[string]any{
						"type":        "string",
						"format":      "uri",
						"description": "http(s) or s3 URL of a JPEG or PNG image",
					},
					"claim_text": map[string]any{
						"type":        "string",
						"minLength":   minClaimLength,
						"maxLength":   maxClaimLength,
						"description": "The tenant's description of the issue",
					},
					"incident_date": map[string]any{
						"type":        "string",
						"description": "Reported incident date (ISO-8601)",
					},
				},
				"required": []string{"image_url", "claim_text"},
			},
		},
		{
			Name:        "check_health",
			Description: "Report whether the reasoning and vision models are installed on the model server.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

func (h *Handler) handleToolCall(ctx context.Context, w http.ResponseWriter, req MCPRequest) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		h.sendRPCError(w, req.ID, rpcInvalidParams, "Invalid params: "+err.Error())
		return
	}

	var result any
	switch params.Name {
	case "analyze_image_evidence":
		var args AnalyzeRequest
		if len(params.Arguments) > 0 {
			if err := json.Unmarshal(params.Arguments, &args); err != nil {
				h.sendRPCError(w, req.ID, rpcInvalidParams, "Invalid arguments: "+err.Error())
				return
			}
		}
		if err := args.Validate(); err != nil {
			h.sendRPCError(w, req.ID, rpcInvalidParams, err.Error())
			return
		}

		analysis, err := h.engine.Analyze(ctx, pipeline.AnalyzeRequest{
			ImageURL:     args.ImageURL,
			Claim:        args.ClaimText,
			IncidentDate: args.IncidentDate,
		})
		if err != nil {
			h.sendRPCError(w, req.ID, rpcInternalError, "Analysis failed: "+err.Error())
			return
		}
		result = analysis
	case "check_health":
		result = h.engine.Health(ctx)
	default:
		h.sendRPCError(w, req.ID, rpcMethodNotFound, "Unknown tool: "+params.Name)
		return
	}

	text, err := json.Marshal(result)
	if err != nil {
		h.sendRPCError(w, req.ID, rpcInternalError, "Internal error: "+err.Error())
		return
	}

	h.sendRPCResult(w, req.ID, map[string]any{
		"content": []map[string]any{
			{
				"type": "text",
				"text": string(text),
			},
		},
	})
}

func (h *Handler) sendRPCResult(w http.ResponseWriter, id any, result any) {
	h.respondJSON(w, http.StatusOK, MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

// JSON-RPC errors are still delivered with 200.
func (h *Handler) sendRPCError(w http.ResponseWriter, id any, code int, message string) {
	h.respondJSON(w, http.StatusOK, MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &MCPError{Code: code, Message: message},
	})
}
