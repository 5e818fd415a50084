// Command mcpserver runs the classification core as an MCP server over
// stdio, exposing the classify_report tool to any MCP-speaking client.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/wastecat/classify/internal/classify"
	"github.com/wastecat/classify/internal/config"
	"github.com/wastecat/classify/internal/mcpserver"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	concurrency := classify.DefaultConcurrency

	// As with the CLI, a missing/unreadable config.yaml just means the
	// server runs on its hard-coded defaults.
	if cfgMgr, err := config.NewManager(); err == nil {
		cfg := cfgMgr.GetConfig()
		if cfg.Classify.Concurrency > 0 {
			concurrency = cfg.Classify.Concurrency
		}
		if level, parseErr := logrus.ParseLevel(cfg.Logging.Level); parseErr == nil {
			logger.SetLevel(level)
		}
		if strings.EqualFold(cfg.Logging.Format, "text") {
			logger.SetFormatter(&logrus.TextFormatter{})
		}
	}

	srv := mcpserver.New(logger, concurrency)

	if err := srv.Run(context.Background(), mcp.NewStdioTransport()); err != nil {
		fmt.Fprintf(os.Stderr, "mcpserver: %v\n", err)
		os.Exit(1)
	}
}
