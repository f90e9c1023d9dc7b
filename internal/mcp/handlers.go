package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/xref/internal/invindex"
	"github.com/standardbeagle/xref/internal/search"
	"github.com/standardbeagle/xref/internal/types"
	"github.com/standardbeagle/xref/internal/version"
	"github.com/standardbeagle/xref/pkg/pathutil"
)

// QueryResponse is the result of every query tool. References hold the
// global stream first, then the rest.
type QueryResponse struct {
	Tool        string                `json:"tool"`
	Pattern     string                `json:"pattern,omitempty"`
	Found       bool                  `json:"found"`
	Count       int                   `json:"count"`
	Truncated   bool                  `json:"truncated,omitempty"`
	UsedIndex   bool                  `json:"used_index"`
	References  []types.Reference     `json:"references"`
	Suggestions []invindex.Suggestion `json:"suggestions,omitempty"`
}

// InfoResponse describes the open database.
type InfoResponse struct {
	Server        string   `json:"server"`
	Version       string   `json:"version"`
	GoVersion     string   `json:"go_version"`
	Database      string   `json:"database"`
	FormatVersion int      `json:"format_version"`
	Compressed    bool     `json:"compressed"`
	InvertedIndex bool     `json:"inverted_index"`
	UsingIndex    bool     `json:"using_index"`
	Truncated     bool     `json:"truncated_symbols"`
	SourceFiles   int      `json:"source_files"`
	Fingerprint   string   `json:"fingerprint"`
	OpenedAt      string   `json:"opened_at"`
	Reloads       int      `json:"reloads"`
	Watching      bool     `json:"watching"`
	Tools         []string `json:"tools"`
}

func (s *Server) handleFindSymbol(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleQuery(ctx, req, ToolFindSymbol, types.FieldSymbol)
}

func (s *Server) handleFindDefinition(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleQuery(ctx, req, ToolFindDefinition, types.FieldDefinition)
}

func (s *Server) handleFindCallers(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleQuery(ctx, req, ToolFindCallers, types.FieldCallers)
}

func (s *Server) handleFindCallees(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleQuery(ctx, req, ToolFindCallees, types.FieldCallees)
}

func (s *Server) handleFindIncludes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleQuery(ctx, req, ToolFindIncludes, types.FieldIncludes)
}

func (s *Server) handleFindFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleQuery(ctx, req, ToolFindFile, types.FieldFile)
}

func (s *Server) handleQuery(ctx context.Context, req *mcp.CallToolRequest, tool string, field types.Field) (*mcp.CallToolResult, error) {
	var p QueryParams
	if err := decodeArguments(req, &p); err != nil {
		return createErrorResponse(tool, fmt.Errorf("invalid parameters: %w", err))
	}
	if strings.TrimSpace(p.Pattern) == "" {
		return createErrorResponse(tool, errors.New("pattern is required"))
	}

	return s.recoverFromPanic(tool, func() (*mcp.CallToolResult, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		q := s.sess.Query(field, p.Pattern)
		if p.CaseInsensitive != nil {
			q.CaseInsensitive = *p.CaseInsensitive
		}
		resp, err := s.runQuery(ctx, tool, q, p.Max)
		if err != nil {
			return nil, err
		}
		return createResponseWithWarnings(resp, warningMessages(p.Warnings))
	})
}

func (s *Server) handleFindText(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p TextParams
	if err := decodeArguments(req, &p); err != nil {
		return createErrorResponse(ToolFindText, fmt.Errorf("invalid parameters: %w", err))
	}
	if p.Pattern == "" {
		return createErrorResponse(ToolFindText, errors.New("pattern is required"))
	}

	return s.recoverFromPanic(ToolFindText, func() (*mcp.CallToolResult, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		field := types.FieldString
		if p.Regex {
			field = types.FieldRegexp
		}
		q := s.sess.Query(field, p.Pattern)
		if p.CaseInsensitive != nil {
			q.CaseInsensitive = *p.CaseInsensitive
		}
		resp, err := s.runQuery(ctx, ToolFindText, q, p.Max)
		if err != nil {
			return nil, err
		}
		return createResponseWithWarnings(resp, warningMessages(p.Warnings))
	})
}

func (s *Server) handleListFunctions(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p ListParams
	if err := decodeArguments(req, &p); err != nil {
		return createErrorResponse(ToolListFunctions, fmt.Errorf("invalid parameters: %w", err))
	}

	return s.recoverFromPanic(ToolListFunctions, func() (*mcp.CallToolResult, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		res := &search.Results{Limit: s.limit(p.Max)}
		if err := s.sess.Engine.FindAllFunctions(ctx, res); err != nil {
			return nil, err
		}
		return createJSONResponse(s.newResponse(ToolListFunctions, "", res, res.Len() > 0))
	})
}

// runQuery runs q and attaches suggestions when a symbol query found
// nothing. Callers hold s.mu.
func (s *Server) runQuery(ctx context.Context, tool string, q search.Query, max int) (*QueryResponse, error) {
	res := &search.Results{Limit: s.limit(max)}
	found, err := s.sess.Engine.Search(ctx, q, res)
	if err != nil {
		return nil, err
	}
	resp := s.newResponse(tool, q.Pattern, res, found)

	if !found && q.Field.SymbolField() && s.sess.SuggestionLimit() > 0 {
		suggestions, err := s.sess.Engine.Suggest(ctx, q.Pattern, s.sess.SuggestionLimit())
		if err != nil {
			s.diagnosticLogger.Errorf("suggestions for %q: %v", q.Pattern, err)
		}
		resp.Suggestions = suggestions
	}
	return resp, nil
}

func (s *Server) newResponse(tool, pattern string, res *search.Results, found bool) *QueryResponse {
	refs := res.All()
	return &QueryResponse{
		Tool:       tool,
		Pattern:    pattern,
		Found:      found,
		Count:      len(refs),
		Truncated:  res.Truncated,
		UsedIndex:  s.sess.Engine.UsesIndex(),
		References: pathutil.ToRelativeReferences(refs, s.cfg.Project.Root),
	}
}

// limit picks the request's max, then the configured one, then the default,
// capped at QueryHardMax.
func (s *Server) limit(requested int) int {
	n := requested
	if n <= 0 {
		n = s.cfg.Search.MaxResults
	}
	if n <= 0 {
		n = QueryDefaultMax
	}
	return min(n, QueryHardMax)
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p InfoParams
	if err := decodeArguments(req, &p); err != nil {
		return createErrorResponse(ToolInfo, fmt.Errorf("invalid parameters: %w", err))
	}

	tool := strings.ToLower(strings.TrimSpace(p.Tool))
	switch tool {
	case "":
	case "version":
		return createJSONResponse(map[string]interface{}{
			"server_version": version.FullInfo(),
			"go_version":     runtime.Version(),
			"platform":       runtime.GOOS + "/" + runtime.GOARCH,
		})
	default:
		help, ok := operationHelp[tool]
		if !ok {
			return createErrorResponse(ToolInfo, fmt.Errorf("unknown tool %q", p.Tool))
		}
		return createJSONResponse(map[string]string{"tool": tool, "help": help})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	db := s.sess.DB
	return createJSONResponse(&InfoResponse{
		Server:        ServerName,
		Version:       version.Info(),
		GoVersion:     runtime.Version(),
		Database:      pathutil.ToRelative(db.Path, s.cfg.Project.Root),
		FormatVersion: db.Header.Version,
		Compressed:    db.Header.Compressed,
		InvertedIndex: db.Header.InvertedIndex,
		UsingIndex:    s.sess.Engine.UsesIndex(),
		Truncated:     db.Header.Truncated,
		SourceFiles:   db.Sources.Count(),
		Fingerprint:   fmt.Sprintf("%016x", db.Fingerprint()),
		OpenedAt:      s.opened.Format(time.RFC3339),
		Reloads:       s.reloads,
		Watching:      s.watcher != nil,
		Tools: []string{
			ToolFindSymbol, ToolFindDefinition, ToolFindCallers, ToolFindCallees,
			ToolFindIncludes, ToolFindFile, ToolFindText, ToolListFunctions, ToolInfo,
		},
	})
}

// decodeArguments unmarshals the call arguments; absent arguments decode
// as an empty object.
func decodeArguments(req *mcp.CallToolRequest, v interface{}) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(req.Params.Arguments, v)
}
