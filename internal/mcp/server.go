// Package mcp exposes cross-reference queries as Model Context Protocol
// tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/xref/internal/config"
	"github.com/standardbeagle/xref/internal/session"
	"github.com/standardbeagle/xref/internal/version"
	"github.com/standardbeagle/xref/internal/watch"
)

// Server answers MCP tool calls against one database. The engine keeps a
// single cursor, so tool calls are serialised by mu; a rebuilt database
// is swapped in under the same lock.
type Server struct {
	cfg              *config.Config
	server           *mcp.Server
	diagnosticLogger *DiagnosticLogger
	watcher          *watch.DatabaseWatcher

	mu      sync.Mutex
	sess    *session.Session
	reloads int
	opened  time.Time
}

// NewServer opens the configured database and registers the tools. When
// watching is enabled the database is reopened whenever it is rebuilt.
func NewServer(cfg *config.Config, opts session.Options) (*Server, error) {
	return newServer(cfg, opts, NewDiagnosticLogger(true))
}

func newServer(cfg *config.Config, opts session.Options, logger *DiagnosticLogger) (*Server, error) {
	sess, err := session.Open(cfg, opts)
	if err != nil {
		logger.Close()
		return nil, err
	}
	logger.Printf("opened %s (version %d, %d files, index=%v)",
		sess.DB.Path, sess.DB.Header.Version, sess.DB.Sources.Count(), sess.Engine.UsesIndex())

	s := &Server{
		cfg:              cfg,
		diagnosticLogger: logger,
		sess:             sess,
		opened:           time.Now(),
	}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version.Info(),
	}, nil)
	s.registerTools()

	if cfg.Watch.Enabled {
		w, err := watch.New(sess.DB.Path, cfg.Watch, s.reload)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			// queries still work against the database as opened
			logger.Errorf("database watching disabled: %v", err)
		} else {
			s.watcher = w
		}
	}
	return s, nil
}

// reload swaps in a freshly opened database. On failure the old one stays.
func (s *Server) reload(fingerprint uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.sess.Reopen()
	if err != nil {
		s.diagnosticLogger.Errorf("reopen after rebuild failed: %v", err)
		return
	}
	old := s.sess
	s.sess = next
	s.reloads++
	s.opened = time.Now()
	if err := old.Close(); err != nil {
		s.diagnosticLogger.Errorf("closing replaced database: %v", err)
	}
	s.diagnosticLogger.Printf("reopened %s (fingerprint %x)", next.DB.Path, fingerprint)
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        ToolInfo,
		Description: "Describe the open cross-reference database, or one tool with {\"tool\": \"<name>\"}.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"tool": {Type: "string", Description: "Tool name to describe"},
			},
		},
	}, s.handleInfo)

	symbolTools := []struct {
		name, description string
		handler           mcp.ToolHandler
	}{
		{ToolFindSymbol, "Find every reference to a C symbol: definitions, uses, calls. Results are 'file function line text'.", s.handleFindSymbol},
		{ToolFindDefinition, "Find where a symbol is defined (function, macro, type, global, member).", s.handleFindDefinition},
		{ToolFindCallers, "Find the functions calling a function, each reference attributed to the enclosing function or macro.", s.handleFindCallers},
		{ToolFindCallees, "Find the functions called from inside a function's body.", s.handleFindCallees},
		{ToolFindIncludes, "Find the #include lines naming a file.", s.handleFindIncludes},
		{ToolFindFile, "Find source files of the database whose names match.", s.handleFindFile},
	}
	for _, t := range symbolTools {
		s.server.AddTool(&mcp.Tool{
			Name:        t.name,
			Description: t.description,
			InputSchema: queryInputSchema(),
		}, t.handler)
	}

	s.server.AddTool(&mcp.Tool{
		Name:        ToolFindText,
		Description: "Search the source files for text, literally or as an egrep-style regular expression.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"pattern":          {Type: "string", Description: "Text or expression to search for"},
				"regex":            {Type: "boolean", Description: "Treat pattern as a regular expression"},
				"case_insensitive": {Type: "boolean", Description: "Ignore letter case"},
				"max":              {Type: "integer", Description: "Maximum references returned"},
			},
			Required: []string{"pattern"},
		},
	}, s.handleFindText)

	s.server.AddTool(&mcp.Tool{
		Name:        ToolListFunctions,
		Description: "List every function definition in the database with its file and line.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"max": {Type: "integer", Description: "Maximum references returned"},
			},
		},
	}, s.handleListFunctions)
}

func queryInputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"pattern": {
				Type:        "string",
				Description: "Symbol name, or a regular expression such as 'init_.*'",
			},
			"case_insensitive": {
				Type:        "boolean",
				Description: "Ignore letter case (defaults to the configured setting)",
			},
			"max": {
				Type:        "integer",
				Description: "Maximum references returned",
			},
		},
		Required: []string{"pattern"},
	}
}

// recoverFromPanic runs handler and turns both errors and panics into
// error results the client can see.
func (s *Server) recoverFromPanic(operation string, handler func() (*mcp.CallToolResult, error)) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.diagnosticLogger.Errorf("PANIC RECOVERED in %s: %v\n%s", operation, r, debug.Stack())
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			s.diagnosticLogger.Printf("memory: alloc %d KB, sys %d KB", m.Alloc/1024, m.Sys/1024)
			result, err = createErrorResponse(operation, fmt.Errorf("internal error: %v", r))
		}
	}()

	result, err = handler()
	if err != nil {
		s.diagnosticLogger.Errorf("error in %s: %v", operation, err)
		return createErrorResponse(operation, err)
	}
	return result, nil
}

// Start serves MCP over stdio until ctx is done or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.diagnosticLogger.Printf("starting MCP server with stdio transport")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Shutdown stops watching and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	s.diagnosticLogger.Printf("shutting down MCP server")
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.diagnosticLogger.Errorf("stopping watcher: %v", err)
		}
	}

	s.mu.Lock()
	err := s.sess.Close()
	s.mu.Unlock()

	s.diagnosticLogger.Close()
	return err
}

// GetHandlerForTesting returns the handler registered for toolName.
func (s *Server) GetHandlerForTesting(toolName string) mcp.ToolHandler {
	switch toolName {
	case ToolInfo:
		return s.handleInfo
	case ToolFindSymbol:
		return s.handleFindSymbol
	case ToolFindDefinition:
		return s.handleFindDefinition
	case ToolFindCallers:
		return s.handleFindCallers
	case ToolFindCallees:
		return s.handleFindCallees
	case ToolFindIncludes:
		return s.handleFindIncludes
	case ToolFindFile:
		return s.handleFindFile
	case ToolFindText:
		return s.handleFindText
	case ToolListFunctions:
		return s.handleListFunctions
	default:
		return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return createErrorResponse("GetHandlerForTesting", fmt.Errorf("unknown tool: %s", toolName))
		}
	}
}
