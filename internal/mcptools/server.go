package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with the compare_pdfs and probe_engine
// tools registered.
func NewServer(svc *CompareService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "pdfcompare",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "compare_pdfs",
		Description: "Compare two PDF files and write a comparison report. Tries the engine's visual compare first, then a text-position analysis, the engine's manual compare dialog, and finally a metadata report. Returns the report path, the strategy used and diagnostics.",
	}, svc.ComparePDFs)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "probe_engine",
		Description: "Check whether the PDF comparison engine is installed and which edition it is, with remediation text when it is not usable.",
	}, svc.ProbeEngine)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP on addr until ctx is
// cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
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
