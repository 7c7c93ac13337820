// Package linter drives analysis over one file or a whole contract tree:
// it loads the rule table and policy engine once, fans analysis out across
// files, and renders the collected results as human-readable lint output
// or JSON.
package linter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/fatih/color"

	"github.com/compact-tools/compact-lint/internal/analyzer"
	"github.com/compact-tools/compact-lint/internal/config"
	"github.com/compact-tools/compact-lint/internal/policy"
	"github.com/compact-tools/compact-lint/internal/rules"
)

// Linter runs the analyzer over files per configuration.
type Linter struct {
	cfg      *config.Config
	analyzer *analyzer.Analyzer

	Verbose    bool
	JSONOutput bool

	// Out receives rendered output; defaults to os.Stdout.
	Out io.Writer
}

// FileReport pairs a file path with its analysis result.
type FileReport struct {
	File   string          `json:"file"`
	Result analyzer.Result `json:"result"`
}

// Summary aggregates issue counts across all analyzed files.
type Summary struct {
	FilesAnalyzed int `json:"files_analyzed"`
	TotalIssues   int `json:"total_issues"`
	Errors        int `json:"errors"`
	Warnings      int `json:"warnings"`
	Info          int `json:"info"`
	Failures      int `json:"failures"`
}

// Report is the structured result of one lint run.
type Report struct {
	Files   []FileReport `json:"files"`
	Summary Summary      `json:"summary"`
}

// Failed reports whether the run should gate (non-zero exit) under the
// given failOn policy: "error", "warning" or "never".
func (r Report) Failed(failOn string) bool {
	switch failOn {
	case "never":
		return false
	case "warning":
		return r.Summary.Errors > 0 || r.Summary.Warnings > 0 || r.Summary.Failures > 0
	default:
		return r.Summary.Errors > 0 || r.Summary.Failures > 0
	}
}

// NewWithConfig builds a Linter, loading the rule table (external file if
// configured, embedded otherwise) and the policy engine. Table and policy
// failures are returned here, at startup, never during analysis.
func NewWithConfig(cfg *config.Config) (*Linter, error) {
	var table *rules.Table
	var err error
	if cfg.Analysis.RuleTable != "" {
		table, err = rules.LoadFile(cfg.Analysis.RuleTable)
	} else {
		table, err = rules.Default()
	}
	if err != nil {
		return nil, err
	}

	opts := []analyzer.Option{
		analyzer.WithMaxInputBytes(cfg.Analysis.MaxInputBytes),
		analyzer.WithSeverityOverrides(cfg.Lint.Rules),
	}
	if cfg.PoliciesEnabled() {
		engine, err := policy.New()
		if err != nil {
			return nil, err
		}
		opts = append(opts, analyzer.WithPolicyEngine(engine))
	}

	return &Linter{
		cfg:      cfg,
		analyzer: analyzer.New(table, opts...),
		Out:      os.Stdout,
	}, nil
}

// Run lints path (a file or a directory), renders the report, and returns
// it. The returned error covers I/O and internal failures only; issues and
// per-file input failures live in the report.
func (l *Linter) Run(ctx context.Context, path string) (Report, error) {
	files, err := l.collectFiles(path)
	if err != nil {
		return Report{}, err
	}
	if len(files) == 0 {
		return Report{}, fmt.Errorf("no contract files found under %s", path)
	}

	report, err := l.analyzeAll(ctx, files)
	if err != nil {
		return Report{}, err
	}

	if l.JSONOutput {
		if err := l.renderJSON(report); err != nil {
			return Report{}, err
		}
	} else {
		l.renderHuman(report)
	}

	return report, nil
}

func (l *Linter) collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	return l.cfg.ResolveSources(path)
}

// analyzeAll fans analysis out across files with bounded parallelism.
// Each Analyze call is independent and pure, so no coordination beyond
// result collection is needed.
func (l *Linter) analyzeAll(ctx context.Context, files []string) (Report, error) {
	limit := l.cfg.Analysis.MaxParallelFiles
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	sem := make(chan struct{}, limit)

	reports := make([]FileReport, 0, len(files))
	var firstErr error

	for _, file := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(file string) {
			defer wg.Done()
			defer func() { <-sem }()

			data, err := os.ReadFile(file)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("reading %s: %w", file, err)
				}
				mu.Unlock()
				return
			}

			result, err := l.analyzer.Analyze(ctx, string(data))
			mu.Lock()
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("analyzing %s: %w", file, err)
			}
			reports = append(reports, FileReport{File: file, Result: result})
			mu.Unlock()
		}(file)
	}
	wg.Wait()

	if firstErr != nil {
		return Report{}, firstErr
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].File < reports[j].File })

	return Report{Files: reports, Summary: summarize(reports)}, nil
}

func summarize(reports []FileReport) Summary {
	s := Summary{FilesAnalyzed: len(reports)}
	for _, fr := range reports {
		if !fr.Result.Success {
			s.Failures++
			continue
		}
		for _, issue := range fr.Result.PotentialIssues {
			s.TotalIssues++
			switch issue.Severity {
			case rules.SeverityError:
				s.Errors++
			case rules.SeverityWarning:
				s.Warnings++
			case rules.SeverityInfo:
				s.Info++
			}
		}
	}
	return s
}

func (l *Linter) renderJSON(report Report) error {
	enc := json.NewEncoder(l.out())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

var severityColors = map[rules.Severity]*color.Color{
	rules.SeverityError:   color.New(color.FgRed, color.Bold),
	rules.SeverityWarning: color.New(color.FgYellow),
	rules.SeverityInfo:    color.New(color.FgCyan),
}

func (l *Linter) renderHuman(report Report) {
	out := l.out()

	for _, fr := range report.Files {
		if !fr.Result.Success {
			fmt.Fprintf(out, "%s: %s\n", fr.File, fr.Result.FailureReason)
			continue
		}

		if l.Verbose {
			fmt.Fprintf(out, "%s: %d circuits, %d witnesses, %d ledger items\n",
				fr.File,
				fr.Result.Stats.CircuitCount,
				fr.Result.Stats.WitnessCount,
				fr.Result.Stats.LedgerItemCount)
		}

		for _, issue := range fr.Result.PotentialIssues {
			tag := string(issue.Severity)
			if c, ok := severityColors[issue.Severity]; ok {
				tag = c.Sprint(tag)
			}
			if issue.Line > 0 {
				fmt.Fprintf(out, "%s:%d %s %s: %s\n", fr.File, issue.Line, tag, issue.RuleID, issue.Message)
			} else {
				fmt.Fprintf(out, "%s %s %s: %s\n", fr.File, tag, issue.RuleID, issue.Message)
			}
			if issue.SuggestedFix != "" {
				fmt.Fprintf(out, "    fix: %s\n", issue.SuggestedFix)
			}
		}
	}

	s := report.Summary
	fmt.Fprintf(out, "\n%d file(s): %d error(s), %d warning(s), %d info, %d unreadable\n",
		s.FilesAnalyzed, s.Errors, s.Warnings, s.Info, s.Failures)
}

func (l *Linter) out() io.Writer {
	if l.Out != nil {
		return l.Out
	}
	return os.Stdout
}
