package main

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/xref/internal/debug"
	"github.com/standardbeagle/xref/internal/mcp"
	"github.com/standardbeagle/xref/internal/session"
)

func mcpCommand(c *cli.Context) error {
	// stdout carries the protocol
	debug.SetMCPMode(true)

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return debug.Fatal("failed to load config: %v", err)
	}

	server, err := mcp.NewServer(cfg, session.Options{NoIndex: c.Bool("no-index")})
	if err != nil {
		return debug.Fatal("failed to create MCP server: %v", err)
	}

	ctx, stop := interruptible(c)
	defer stop()

	debug.LogMCP("starting MCP server on %s\n", cfg.DatabasePath())
	runErr := server.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		debug.LogMCP("shutdown: %v\n", err)
	}

	// an interrupt is a normal way to stop the server
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return debug.Fatal("MCP server error: %v", runErr)
	}
	return nil
}
