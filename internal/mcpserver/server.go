// Package mcpserver exposes the classification core as a Model Context
// Protocol server, so an MCP-speaking client (an LLM agent, an IDE
// integration) can submit a lab report and receive a classification
// result the same way the CLI does.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/wastecat/classify/internal/classify"
	"github.com/wastecat/classify/internal/ingest"
	"github.com/wastecat/classify/internal/rules"
)

// Server wraps a classify.ClassifierService behind an MCP tool surface.
type Server struct {
	classifier *classify.ClassifierService
	rulesets   map[string]*rules.Ruleset
	mcpServer  *mcp.Server
	logger     *logrus.Logger
}

// New builds a Server with the given logger and classification
// concurrency limit, registers the built-in rulesets (spec §4.3), and
// wires its single tool onto the returned mcp.Server.
func New(logger *logrus.Logger, concurrency int) *Server {
	rulesets := make(map[string]*rules.Ruleset)
	for _, rs := range rules.Builtin() {
		rulesets[rs.Name] = rs
	}

	s := &Server{
		classifier: classify.NewClassifierService(logger, concurrency),
		rulesets:   rulesets,
		logger:     logger,
	}

	serverInfo := &mcp.Implementation{Name: "wastecat-classify-mcp-server", Version: "v0.1.0"}
	s.mcpServer = mcp.NewServer(serverInfo, nil)
	s.mcpServer.AddTool(&mcp.Tool{
		Name:        "classify_report",
		Description: "Classify a laboratory report against the nv, asfalt and fa (hazardous-property) rulesets, returning per-sample categories and an evidence trail.",
	}, s.handleClassifyReport)

	return s
}

// Run blocks serving MCP requests over t until ctx is cancelled.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.mcpServer.Run(ctx, t)
}

// classifyReportParams is the classify_report tool's argument shape.
type classifyReportParams struct {
	Reports  []ingest.RawReport `json:"reports"`
	Rulesets []string           `json:"rulesets,omitempty"`
}

func (s *Server) handleClassifyReport(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params classifyReportParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return s.createErrorResult("invalid classify_report arguments", err), nil
	}
	if len(params.Reports) == 0 {
		return s.createErrorResult("classify_report requires at least one report", nil), nil
	}

	selected, err := s.resolveRulesets(params.Rulesets)
	if err != nil {
		return s.createErrorResult("unknown ruleset requested", err), nil
	}

	analysisBatch := classify.BatchParams{Rulesets: selected}
	for _, raw := range params.Reports {
		analysisBatch.Reports = append(analysisBatch.Reports, ingest.Build(raw))
	}

	result, err := s.classifier.ClassifyBatch(ctx, analysisBatch)
	if err != nil {
		return s.createErrorResult("classification failed", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("classified %d sample(s)", len(result.Samples))},
		},
		Meta: map[string]interface{}{"result": result},
	}, nil
}

func (s *Server) resolveRulesets(names []string) ([]*rules.Ruleset, error) {
	if len(names) == 0 {
		// rules.Builtin() returns its rulesets in a fixed order; ranging
		// over s.rulesets directly would randomize it (spec determinism).
		all := make([]*rules.Ruleset, 0, len(s.rulesets))
		for _, rs := range rules.Builtin() {
			all = append(all, rs)
		}
		return all, nil
	}

	selected := make([]*rules.Ruleset, 0, len(names))
	for _, name := range names {
		rs, ok := s.rulesets[name]
		if !ok {
			return nil, fmt.Errorf("no such ruleset: %q", name)
		}
		selected = append(selected, rs)
	}
	return selected, nil
}

func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: errorText}},
		IsError: true,
	}
}
