// Command classify is the CLI surface for the waste-classification core
// (spec §6): it reads a raw lab report, runs it through the nv/asfalt/fa
// rulesets, and prints the resulting sample verdicts and evidence trail.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wastecat/classify/internal/classify"
	"github.com/wastecat/classify/internal/config"
	"github.com/wastecat/classify/internal/domain"
	"github.com/wastecat/classify/internal/ingest"
	"github.com/wastecat/classify/internal/rules"
)

// Exit codes per spec §6.
const (
	exitSuccess         = 0
	exitUnexpectedError = 1
	exitMalformedInput  = 2
	exitValidationError = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return exitCodeFor(err)
	}
	return exitSuccess
}

func exitCodeFor(err error) int {
	if ce, ok := err.(*domain.ClassificationError); ok && ce.Kind == domain.ErrInvalidRuleset {
		return exitValidationError
	}
	if _, ok := err.(*malformedInputError); ok {
		return exitMalformedInput
	}
	return exitUnexpectedError
}

// malformedInputError marks errors caused by bad CLI input (unreadable
// files, unparseable JSON) rather than unexpected internal failures.
type malformedInputError struct{ err error }

func (e *malformedInputError) Error() string { return e.err.Error() }
func (e *malformedInputError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	// Configuration is wholly optional for the CLI (spec §6 names no
	// required config file): a load failure just means flag defaults
	// fall back to their hard-coded values instead of config.yaml/env.
	cfgMgr, _ := config.NewManager()

	root := &cobra.Command{
		Use:           "classify",
		Short:         "Classify waste samples against EU/Swedish hazardous-waste rulesets",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newClassifyCmd(cfgMgr))
	root.AddCommand(newRulesCmd())
	return root
}

func newClassifyCmd(cfgMgr *config.Manager) *cobra.Command {
	var (
		input       string
		output      string
		verbose     bool
		showAll     bool
		preset      string
		rulesFile   string
		concurrency int
	)

	defaultConcurrency := classify.DefaultConcurrency
	defaultVerbose := false
	var defaultRulesFile string
	if cfgMgr != nil {
		cfg := cfgMgr.GetConfig()
		if cfg.Classify.Concurrency > 0 {
			defaultConcurrency = cfg.Classify.Concurrency
		}
		defaultVerbose = strings.EqualFold(cfg.Logging.Level, "debug")
		if len(cfg.Rules.Paths) > 0 {
			defaultRulesFile = cfg.Rules.Paths[0]
		}
	}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify one or more lab reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logrus.New()
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}

			raw, err := readRawReport(input)
			if err != nil {
				return &malformedInputError{err}
			}
			if err := ingest.Validate(*raw); err != nil {
				return &malformedInputError{err}
			}

			selected, err := selectRulesets(preset, rulesFile)
			if err != nil {
				return err
			}

			report := ingest.Build(*raw)
			svc := classify.NewClassifierService(logger, concurrency)
			result, err := svc.ClassifyBatch(context.Background(), classify.BatchParams{
				Reports:  []domain.AnalysisReport{report},
				Rulesets: selected,
			})
			if err != nil {
				return err
			}

			return renderResult(cmd, result, output, showAll)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "path to a raw report JSON file (default: stdin)")
	cmd.Flags().StringVar(&output, "output", "table", "output format: table|json")
	cmd.Flags().BoolVar(&verbose, "verbose", defaultVerbose, "enable debug logging (default from logging.level in config)")
	cmd.Flags().BoolVar(&showAll, "show-all", false, "include non-contributing rows in table output")
	cmd.Flags().StringVar(&preset, "preset", "", "built-in ruleset name to use (default: all built-ins)")
	cmd.Flags().StringVar(&rulesFile, "rules", defaultRulesFile, "additional ruleset JSON file to load alongside --preset (default from rules.paths in config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", defaultConcurrency, "maximum samples classified concurrently (default from classify.concurrency in config)")

	return cmd
}

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate rulesets",
	}
	cmd.AddCommand(newRulesListCmd())
	cmd.AddCommand(newRulesExplainCmd())
	cmd.AddCommand(newRulesSchemaCmd())
	cmd.AddCommand(newRulesValidateCmd())
	return cmd
}

func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in rulesets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, rs := range rules.Builtin() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%v\n", rs.Name, rs.Version, rs.Categories)
			}
			return nil
		},
	}
}

func newRulesExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <name>",
		Short: "Print one built-in ruleset's rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			for _, rs := range rules.Builtin() {
				if rs.Name == name {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(rs)
				}
			}
			return &malformedInputError{fmt.Errorf("no such built-in ruleset: %q", name)}
		},
	}
}

func newRulesSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the ruleset document JSON schema (informational)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), rulesetSchemaDescription)
			return nil
		},
	}
}

func newRulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate a ruleset JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return &malformedInputError{err}
			}
			rs, err := rules.Load(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (%d rules, categories %v)\n", rs.Name, len(rs.Rules), rs.Categories)
			return nil
		},
	}
}

const rulesetSchemaDescription = `{name, version, matrix_filter?, categories[], rules[{subject, thresholds{category: decimal}}]}`

func readRawReport(path string) (*ingest.RawReport, error) {
	var data []byte
	var err error
	if path == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var raw ingest.RawReport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

func selectRulesets(preset, rulesFile string) ([]*rules.Ruleset, error) {
	var selected []*rules.Ruleset

	if preset == "" {
		selected = append(selected, rules.Builtin()...)
	} else {
		found := false
		for _, rs := range rules.Builtin() {
			if rs.Name == preset {
				selected = append(selected, rs)
				found = true
				break
			}
		}
		if !found {
			return nil, &malformedInputError{fmt.Errorf("no such built-in ruleset: %q", preset)}
		}
	}

	if rulesFile != "" {
		data, err := os.ReadFile(rulesFile)
		if err != nil {
			return nil, &malformedInputError{err}
		}
		rs, err := rules.Load(data)
		if err != nil {
			return nil, err
		}
		selected = append(selected, rs)
	}

	return selected, nil
}

func renderResult(cmd *cobra.Command, result *domain.ClassificationResult, output string, showAll bool) error {
	if output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return renderTable(cmd, result, showAll)
}

func renderTable(cmd *cobra.Command, result *domain.ClassificationResult, showAll bool) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SAMPLE\tMATRIX\tRULESET\tOVERALL\tLOWEST")
	for _, sample := range result.Samples {
		for _, rs := range sample.RulesetResults {
			if rs.NotApplicable {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", sample.SampleID, sample.Matrix, rs.RulesetName, rs.OverallCategory, rs.LowestCategory)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout())
	ew := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(ew, "SAMPLE\tSUBSTANCE\tREASON\tCONTRIBUTOR")
	for _, entry := range result.Trace.Entries {
		if !showAll && !entry.Contributor {
			continue
		}
		fmt.Fprintf(ew, "%s\t%s\t%s\t%v\n", entry.SampleID, entry.CanonicalKey, entry.Reason, entry.Contributor)
	}
	return ew.Flush()
}
