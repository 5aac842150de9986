package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"policy-shadow-analyzer/internal/engine"
	"policy-shadow-analyzer/internal/model"
	"policy-shadow-analyzer/internal/parser"
	"policy-shadow-analyzer/internal/report"
	"policy-shadow-analyzer/pkg/sample"
)

var (
	rulesFile     string
	addressesFile string
	groupsFile    string
	dataProvider  string
	dbDSN         string
	mode          string
	excludeChecks []string
	skipDisabled  bool
	outFormat     string
	outFile       string
	useSample     bool
	logLevel      string
	logFile       string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "policy-shadow-analyzer",
		Short: "Detects shadowed firewall security rules",
		Long: `policy-shadow-analyzer reads an ordered firewall rule list and reports
	rules that can never match traffic because earlier rules already match
	everything they would match.`,
		RunE: run,
	}

	rootCmd.Flags().StringVar(&rulesFile, "rules", "", "Security rules file (JSON, CSV or YAML)")
	rootCmd.Flags().StringVar(&addressesFile, "addresses", "", "Address objects file (advanced mode)")
	rootCmd.Flags().StringVar(&groupsFile, "address-groups", "", "Address groups file (advanced mode)")
	rootCmd.Flags().StringVar(&dataProvider, "provider", "file", "Data provider: 'file' or 'mariadb'")
	rootCmd.Flags().StringVar(&dbDSN, "db", "", "Database connection string (for 'mariadb' provider)")
	rootCmd.Flags().StringVar(&mode, "mode", "simple", "Analysis mode: 'simple' (compare address names) or 'advanced' (resolve addresses and compare by IP)")
	rootCmd.Flags().StringSliceVar(&excludeChecks, "exclude-check", nil, "Exclude checks whose name contains the keyword (e.g. 'zone', 'address')")
	rootCmd.Flags().BoolVar(&skipDisabled, "skip-disabled", false, "Drop disabled rules before analysis")
	rootCmd.Flags().StringVar(&outFormat, "format", report.FormatText, "Output format: "+strings.Join(report.Formats(), ", "))
	rootCmd.Flags().StringVar(&outFile, "out", "", "Output file (default: stdout)")
	rootCmd.Flags().BoolVar(&useSample, "sample", false, "Analyze the bundled sample dataset")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")

	rootCmd.AddCommand(newListChecksCmd())

	return rootCmd
}

func newListChecksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-checks",
		Short: "List the coverage checks of each analysis mode",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "simple:")
			for _, check := range engine.SimpleChecks() {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", check.Name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "advanced:")
			for _, check := range engine.AdvancedChecks() {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", check.Name)
			}
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := setupLogger(logLevel, logFile)
	slog.SetDefault(logger)

	slog.Info("Starting policy shadow analyzer", "mode", mode, "provider", dataProvider)
	startTime := time.Now()

	rules, objects, groups, err := loadData()
	if err != nil {
		slog.Error("Failed to load input data", "error", err)
		return err
	}
	slog.Info("Input data loaded", "rules", len(rules), "address_objects", len(objects), "address_groups", len(groups))

	if skipDisabled {
		enabled := rules[:0:0]
		for _, rule := range rules {
			if rule.Enabled {
				enabled = append(enabled, rule)
			}
		}
		slog.Info("Dropped disabled rules", "skipped", len(rules)-len(enabled))
		rules = enabled
	}

	analyzer, err := newAnalyzer(rules, objects, groups, logger)
	if err != nil {
		slog.Error("Failed to set up analyzer", "error", err)
		return err
	}
	slog.Info("Analyzer ready", "checks", len(analyzer.Checks()))

	results := analyzer.Execute()
	findings := analyzer.Analyze(results)
	slog.Info("Analysis complete", "findings", len(findings), "duration", time.Since(startTime))

	var out io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			slog.Error("Failed to create output file", "path", outFile, "error", err)
			return err
		}
		defer f.Close()
		out = f
	}
	if err := report.Write(out, outFormat, findings); err != nil {
		slog.Error("Failed to write report", "format", outFormat, "error", err)
		return err
	}
	return nil
}

func newAnalyzer(
	rules []*model.SecurityRule,
	objects []model.AddressObject,
	groups []model.AddressGroup,
	logger *slog.Logger,
) (*engine.Analyzer, error) {
	switch mode {
	case "simple":
		checks := engine.FilterChecks(engine.SimpleChecks(), excludeChecks)
		return engine.NewAnalyzer(rules, checks, logger), nil
	case "advanced":
		checks := engine.FilterChecks(engine.AdvancedChecks(), excludeChecks)
		return engine.NewAdvancedAnalyzer(rules, objects, groups, checks, logger)
	}
	return nil, fmt.Errorf("unknown analysis mode: %s", mode)
}

func loadData() ([]*model.SecurityRule, []model.AddressObject, []model.AddressGroup, error) {
	if useSample {
		return sample.Rules(), sample.AddressObjects(), sample.AddressGroups(), nil
	}

	switch dataProvider {
	case "file":
		if rulesFile == "" {
			return nil, nil, nil, fmt.Errorf("rules file path must be provided for file provider")
		}
		rules, err := parser.LoadSecurityRules(rulesFile)
		if err != nil {
			return nil, nil, nil, err
		}
		var objects []model.AddressObject
		var groups []model.AddressGroup
		if addressesFile != "" {
			if objects, err = parser.LoadAddressObjects(addressesFile); err != nil {
				return nil, nil, nil, err
			}
		}
		if groupsFile != "" {
			if groups, err = parser.LoadAddressGroups(groupsFile); err != nil {
				return nil, nil, nil, err
			}
		}
		if mode == "advanced" && addressesFile == "" {
			return nil, nil, nil, fmt.Errorf("addresses file must be provided for advanced mode")
		}
		return rules, objects, groups, nil
	case "mariadb":
		if dbDSN == "" {
			return nil, nil, nil, fmt.Errorf("database connection string must be provided for mariadb provider")
		}
		loader, err := parser.NewMariaDBLoader(dbDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		defer loader.Close()
		if err := loader.Load(); err != nil {
			return nil, nil, nil, err
		}
		return loader.Rules, loader.AddressObjects, loader.AddressGroups, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown data provider: %s", dataProvider)
}

func setupLogger(level, logFilePath string) *slog.Logger {
	var logWriter io.Writer = os.Stderr
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logWriter = f
		}
		// No logging here; the logger isn't set up yet, so a bad path
		// just falls back to stderr.
	}

	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "INFO":
		lvl = slog.LevelInfo
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: lvl}))
}
