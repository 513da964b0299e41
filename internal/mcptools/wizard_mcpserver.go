package mcptools

import (
	"context"
	"net/http"

	"github.com/craftwell/gamesmith/internal/wizard"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewWizardMCPServer creates an MCP server with the wizard tools registered.
func NewWizardMCPServer(ctrl *wizard.Controller) *mcp.Server {
	svc := NewWizardService(ctrl)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "gamesmith",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "start_session",
		Description: "Start a guided game-creation session. Picks the step list for the category and generates the first variant batch in the background.",
	}, svc.StartSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_progress",
		Description: "Get a session snapshot: current step, variant count, and which steps are already completed.",
	}, svc.GetProgress)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_variants",
		Description: "Generate new variants for the session's current step, optionally steered by a custom instruction. Variants stack onto the step; earlier ones remain selectable.",
	}, svc.GenerateVariants)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_variant",
		Description: "Select one variant for the current step, completing it and advancing the session.",
	}, svc.SelectVariant)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "upload_variant",
		Description: "Upload your own content (base64-encoded) as a variant on the current step instead of generating one.",
	}, svc.UploadVariant)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pause_session",
		Description: "Pause a session, preserving all generated variants and completed steps for a later resume.",
	}, svc.PauseSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resume_session",
		Description: "Resume a paused session exactly where it left off.",
	}, svc.ResumeSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "skip_step",
		Description: "Skip the current step by accepting a default variant. Only optional steps can be skipped.",
	}, svc.SkipStep)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cancel_session",
		Description: "Cancel a session permanently. Its state remains inspectable until it is evicted.",
	}, svc.CancelSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_session",
		Description: "Assemble the final game deliverable from all selected content. Always returns an artifact, degrading to a placeholder when assembly fails.",
	}, svc.CompleteSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List every live session with its progress snapshot.",
	}, svc.ListSessions)

	return server
}

// RunWizardMCPServerStdio runs the MCP server on stdio transport, blocking
// until stdin is closed or the context is cancelled.
func RunWizardMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunWizardMCPServerHTTP starts an HTTP server exposing the wizard MCP tools.
func RunWizardMCPServerHTTP(ctx context.Context, ctrl *wizard.Controller, addr string) error {
	server := NewWizardMCPServer(ctrl)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
