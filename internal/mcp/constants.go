package mcp

// Default values for query tools
const (
	// QueryDefaultMax caps references per response when neither the request
	// nor the configuration sets a limit.
	QueryDefaultMax = 200

	// QueryHardMax is the largest limit a request may ask for.
	QueryHardMax = 5000

	// ServerName is reported to clients on initialization.
	ServerName = "xref-mcp-server"
)

// Tool names
const (
	ToolInfo           = "info"
	ToolFindSymbol     = "find_symbol"
	ToolFindDefinition = "find_definition"
	ToolFindCallers    = "find_callers"
	ToolFindCallees    = "find_callees"
	ToolFindIncludes   = "find_includes"
	ToolFindFile       = "find_file"
	ToolFindText       = "find_text"
	ToolListFunctions  = "list_functions"
)
