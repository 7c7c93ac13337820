package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/compact-tools/compact-lint/internal/extractor"
	"github.com/compact-tools/compact-lint/internal/facts"
	"github.com/compact-tools/compact-lint/internal/rules"
	"github.com/compact-tools/compact-lint/internal/scanner"
	"github.com/compact-tools/compact-lint/internal/validator"
)

func main() {
	output := flag.String("output", "", "write facts JSON to file (default: stdout)")
	flag.StringVar(output, "o", "", "write facts JSON to file (shorthand)")
	deltaFrom := flag.String("delta-from", "", "previous facts JSON to compute delta from")
	deltaOut := flag.String("delta-out", "", "write delta JSON to file (requires --delta-from)")
	rulesPath := flag.String("rules", "", "external CUE rule table (default: embedded)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: compact-facts [--output file] [--delta-from prev.json --delta-out delta.json] <file>")
		os.Exit(1)
	}

	table, err := loadTable(*rulesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading rule table: %v\n", err)
		os.Exit(1)
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	lines, failure := scanner.Scan(string(data), scanner.DefaultMaxInputBytes)
	if failure != "" {
		fmt.Fprintf(os.Stderr, "Error: %s: %s\n", path, failure)
		os.Exit(1)
	}

	pragma, imports := extractor.ExtractHeader(lines)
	structure := extractor.Extract(lines)
	tables := facts.BuildTables(pragma, imports, structure, table.Supported)

	fv, err := validator.NewFactsValidator()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building facts validator: %v\n", err)
		os.Exit(1)
	}
	if err := fv.Validate(tables); err != nil {
		fmt.Fprintf(os.Stderr, "Error: extracted facts failed schema validation: %v\n", err)
		os.Exit(1)
	}

	if *output != "" {
		if err := writeJSON(*output, tables); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing facts: %v\n", err)
			os.Exit(1)
		}
	} else {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tables); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding facts: %v\n", err)
			os.Exit(1)
		}
	}

	if *deltaFrom != "" || *deltaOut != "" {
		if *deltaFrom == "" || *deltaOut == "" {
			fmt.Fprintln(os.Stderr, "Error: --delta-from and --delta-out must be used together")
			os.Exit(1)
		}
		if err := writeDelta(*deltaFrom, *deltaOut, tables); err != nil {
			fmt.Fprintf(os.Stderr, "Error computing delta: %v\n", err)
			os.Exit(1)
		}
	}
}

func loadTable(path string) (*rules.Table, error) {
	if path != "" {
		return rules.LoadFile(path)
	}
	return rules.Default()
}

func writeDelta(fromPath, outPath string, next facts.Tables) error {
	prevData, err := os.ReadFile(fromPath)
	if err != nil {
		return fmt.Errorf("reading previous facts: %w", err)
	}

	var prev facts.Tables
	if err := json.Unmarshal(prevData, &prev); err != nil {
		return fmt.Errorf("parsing previous facts: %w", err)
	}

	delta := facts.ComputeDelta(prev, next)
	return writeJSON(outPath, delta)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
