package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	xerrors "github.com/standardbeagle/xref/internal/errors"
)

// createJSONResponse creates a standardized JSON response for MCP tools
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createResponseWithWarnings creates a JSON response carrying a "warnings"
// field when there are any.
func createResponseWithWarnings(data interface{}, warnings []string) (*mcp.CallToolResult, error) {
	response, err := createJSONResponse(data)
	if err != nil {
		return nil, err
	}
	addWarningsToResponse(response, warnings)
	return response, nil
}

// addWarningsToResponse adds a "warnings" field to the JSON object in the
// first content block, or appends them as text when it is not JSON.
func addWarningsToResponse(result *mcp.CallToolResult, warnings []string) {
	if result == nil || len(warnings) == 0 || len(result.Content) == 0 {
		return
	}
	textContent, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		return
	}

	var responseData map[string]interface{}
	if err := json.Unmarshal([]byte(textContent.Text), &responseData); err == nil {
		responseData["warnings"] = warnings
		if updated, err := json.Marshal(responseData); err == nil {
			result.Content[0] = &mcp.TextContent{Text: string(updated)}
			return
		}
	}

	warningText := "\n\nWarnings:\n"
	for _, w := range warnings {
		warningText += fmt.Sprintf("- %s\n", w)
	}
	textContent.Text += warningText
}

// createErrorResponse reports a tool failure inside the result with IsError
// set, so the client sees it and can correct the call.
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	errorData := map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	}
	if suggestions := errorSuggestions(err); len(suggestions) > 0 {
		errorData["suggestions"] = suggestions
	}
	if help := operationHelp[operation]; help != "" {
		errorData["help"] = help
	}

	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}

// errorSuggestions proposes a fix for the error classes a caller can act on.
func errorSuggestions(err error) []string {
	switch {
	case errors.Is(err, xerrors.ErrNotASymbol):
		return []string{
			"Symbol queries take an identifier like 'main' or a regular expression like 'init_.*'",
			"Use find_text to search for arbitrary text",
		}
	case errors.Is(err, xerrors.ErrRegexCompile):
		return []string{
			"Check the expression for unbalanced brackets or parentheses",
			"Escape regex metacharacters with a backslash to match them literally",
		}
	case xerrors.IsFatal(err):
		return []string{
			"The database is corrupt or was truncated while being written",
			"Rebuild the database; the server reopens it when the file changes",
		}
	}
	var dbErr *xerrors.DatabaseError
	if errors.As(err, &dbErr) {
		return []string{"The database could not be read; retry the query once it is rebuilt"}
	}
	return nil
}

var operationHelp = map[string]string{
	ToolFindSymbol:     "Find every reference to a C symbol. {\"pattern\": \"name\"}",
	ToolFindDefinition: "Find where a symbol is defined. {\"pattern\": \"name\"}",
	ToolFindCallers:    "Find the functions that call a function. {\"pattern\": \"name\"}",
	ToolFindCallees:    "Find the functions called by a function. {\"pattern\": \"name\"}",
	ToolFindIncludes:   "Find the files that #include a file. {\"pattern\": \"header.h\"}",
	ToolFindFile:       "Find source files by name. {\"pattern\": \"util\"}",
	ToolFindText:       "Search source text, literally or as a regular expression. {\"pattern\": \"TODO\", \"regex\": false}",
	ToolListFunctions:  "List every function definition in the database. {\"max\": 100}",
	ToolInfo:           "Describe the open database or a tool. {\"tool\": \"find_callers\"}",
}
