// =============================================================================
// Compact Linter - Main Entry Point
// =============================================================================
//
// This tool turns Compact contract sources into queryable fact tables and
// checks them without compiling or executing anything.
//
// THE PIPELINE:
//   1. Scanner classifies each line lexically (code vs comment vs string)
//   2. Extractor pulls structural facts (pragma, imports, ledger, circuits...)
//   3. CUE validator enforces the data contract on every table
//   4. The versioned rule table is matched against the lexical code view
//   5. OPA evaluates structural policies against the fact tables
//   6. Findings are reported with file/line locations
//
// WHEN INVESTIGATING FALSE POSITIVES:
//   Start at the beginning of the pipeline, not the end!
//   Scanner issues → Extractor issues → Rule/policy issues
// =============================================================================

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/compact-tools/compact-lint/internal/config"
	"github.com/compact-tools/compact-lint/internal/linter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var (
		verbose    bool
		jsonOutput bool
		configPath string
		rulesPath  string
		path       string
	)

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "init":
			runInit()
			return
		case "-h", "--help", "help":
			printUsage()
			return
		case "-v", "--verbose":
			verbose = true
		case "--json":
			jsonOutput = true
		case "-c", "--config":
			if i+1 >= len(args) {
				printUsage()
				os.Exit(1)
			}
			i++
			configPath = args[i]
		case "--rules":
			if i+1 >= len(args) {
				printUsage()
				os.Exit(1)
			}
			i++
			rulesPath = args[i]
		default:
			path = args[i]
		}
	}

	if path == "" {
		printUsage()
		os.Exit(1)
	}

	runLint(path, configPath, rulesPath, verbose, jsonOutput)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: compact-lint [command] [options] <path>

Commands:
  init              Create a compact_lint.json configuration file
  <path>            Lint Compact contract files in the given path

Options:
  -v, --verbose     Enable verbose output
  --json            Emit the full report as JSON
  -c, --config      Specify config file: compact-lint -c config.json <path>
  --rules           Use an external CUE rule table instead of the embedded one
  -h, --help        Show this help message

Configuration:
  compact-lint looks for configuration in:
    1. ./compact_lint.json
    2. ./.compact_lint.json
    3. ~/.config/compact_lint/config.json

  Run 'compact-lint init' to create a default configuration file.`)
}

func runInit() {
	configPath := "compact_lint.json"

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - Contract file patterns")
	fmt.Println("  - Rule severities and the exit-code gate")
	fmt.Println("  - Analysis limits and policy evaluation")
}

func runLint(path, configPath, rulesPath string, verbose, jsonOutput bool) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config %s: %v\n", configPath, err)
			os.Exit(1)
		}
	} else {
		cfg, err = config.Load(path)
		if err != nil {
			fmt.Printf("Warning: Could not load config: %v (using defaults)\n", err)
			cfg = config.DefaultConfig()
		}
	}

	if rulesPath != "" {
		cfg.Analysis.RuleTable = rulesPath
	}

	l, err := linter.NewWithConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	l.Verbose = verbose
	l.JSONOutput = jsonOutput

	report, err := l.Run(context.Background(), path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if report.Failed(cfg.Lint.FailOn) {
		os.Exit(1)
	}
}
