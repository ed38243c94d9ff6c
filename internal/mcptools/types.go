package mcptools

import "github.com/dusk-indust/pdfcompare/internal/export"

// --- MCP tool types for `pdfcompare serve-mcp` ---

// ComparePDFsInput is the input for the compare_pdfs MCP tool.
type ComparePDFsInput struct {
	First      string `json:"first" jsonschema:"path to the first (original) PDF"`
	Second     string `json:"second" jsonschema:"path to the second (revised) PDF"`
	OutputDir  string `json:"outputDir" jsonschema:"directory that receives the report; created if missing"`
	ReportName string `json:"reportName,omitempty" jsonschema:"report file name without extension (default: PDF_Comparison_<timestamp>)"`
}

// ComparePDFsOutput is the result of the compare_pdfs MCP tool.
type ComparePDFsOutput struct {
	Outcome  *export.OutcomeExport `json:"outcome"`
	ExitCode int                   `json:"exitCode"`
	Summary  string                `json:"summary"`
}

// ProbeEngineInput is the input for the probe_engine MCP tool.
type ProbeEngineInput struct{}

// ProbeEngineOutput is the result of the probe_engine MCP tool.
type ProbeEngineOutput struct {
	Engine export.EngineExport `json:"engine"`
}
