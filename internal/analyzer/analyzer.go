// Package analyzer is the core of compact-lint: a pure function over a
// contract source string that produces a structural summary and a list of
// syntax/version issues. One Analyze call owns all of its intermediate
// state; the only shared inputs are the immutable rule table and the
// prepared policy engine, both safe for concurrent reads.
package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/compact-tools/compact-lint/internal/extractor"
	"github.com/compact-tools/compact-lint/internal/facts"
	"github.com/compact-tools/compact-lint/internal/policy"
	"github.com/compact-tools/compact-lint/internal/rules"
	"github.com/compact-tools/compact-lint/internal/scanner"
)

// Analyzer applies a validated rule table (and optionally a policy engine)
// to contract sources.
type Analyzer struct {
	table    *rules.Table
	policies *policy.Engine

	maxInputBytes int
	severity      map[string]string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMaxInputBytes overrides the input size cap.
func WithMaxInputBytes(n int) Option {
	return func(a *Analyzer) { a.maxInputBytes = n }
}

// WithPolicyEngine enables structural policy evaluation.
func WithPolicyEngine(e *policy.Engine) Option {
	return func(a *Analyzer) { a.policies = e }
}

// WithSeverityOverrides remaps rule severities by id. The value "off"
// drops the rule's findings entirely.
func WithSeverityOverrides(overrides map[string]string) Option {
	return func(a *Analyzer) { a.severity = overrides }
}

// New creates an Analyzer over a loaded rule table.
func New(table *rules.Table, opts ...Option) *Analyzer {
	a := &Analyzer{table: table}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the full pipeline on one source. Input failures (empty or
// oversized source) come back as an unsuccessful Result, not an error; the
// error return is reserved for internal policy-evaluation failures.
func (a *Analyzer) Analyze(ctx context.Context, source string) (Result, error) {
	lines, failure := scanner.Scan(source, a.maxInputBytes)
	if failure != "" {
		return Result{FailureReason: string(failure)}, nil
	}

	pragma, imports := extractor.ExtractHeader(lines)
	structure := extractor.Extract(lines)

	issues := a.applyRules(lines)

	if a.policies != nil {
		tables := facts.BuildTables(pragma, imports, structure, a.table.Supported)
		findings, err := a.policies.Evaluate(ctx, tables)
		if err != nil {
			return Result{}, fmt.Errorf("policy evaluation: %w", err)
		}
		for _, f := range findings {
			issues = append(issues, Issue{
				RuleID:       f.Rule,
				Severity:     rules.Severity(f.Severity),
				Message:      f.Message,
				SuggestedFix: f.Fix,
				Line:         f.Line,
			})
		}
	}

	issues = a.finishIssues(issues)

	return assemble(pragma, imports, structure, issues), nil
}

// applyRules runs every table rule over the scanned lines. Matching uses
// the blanked code view, so patterns never fire inside strings or
// comments. Rules are independent: one line may trigger several rules, and
// no rule suppresses another.
func (a *Analyzer) applyRules(lines []scanner.Line) []Issue {
	issues := []Issue{}

	var blockText string
	var lineStarts []int

	for _, rule := range a.table.Rules {
		switch rule.Kind {
		case rules.KindLine:
			for _, l := range lines {
				if rule.Regexp().MatchString(l.Code()) {
					issues = append(issues, newIssue(rule, l.Num))
				}
			}

		case rules.KindBlock:
			if blockText == "" {
				blockText, lineStarts = joinCode(lines)
			}
			for _, loc := range rule.Regexp().FindAllStringIndex(blockText, -1) {
				issues = append(issues, newIssue(rule, lineAt(lineStarts, loc[0])))
			}
		}
	}

	return issues
}

func newIssue(rule rules.Rule, line int) Issue {
	return Issue{
		RuleID:       rule.ID,
		Severity:     rule.Severity,
		Message:      rule.Message,
		SuggestedFix: rule.Fix,
		Line:         line,
	}
}

// finishIssues applies severity overrides, deduplicates by (rule id, line)
// and sorts deterministically: by line, then rule id, with unlocated
// findings last. Identical input therefore always yields byte-identical
// output.
func (a *Analyzer) finishIssues(issues []Issue) []Issue {
	type key struct {
		rule string
		line int
	}

	seen := make(map[key]bool, len(issues))
	out := []Issue{}

	for _, issue := range issues {
		if override, ok := a.severity[issue.RuleID]; ok {
			if override == "off" {
				continue
			}
			issue.Severity = rules.Severity(override)
		}

		k := key{issue.RuleID, issue.Line}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, issue)
	}

	sort.Slice(out, func(i, j int) bool {
		li, lj := sortLine(out[i].Line), sortLine(out[j].Line)
		if li != lj {
			return li < lj
		}
		return out[i].RuleID < out[j].RuleID
	})

	return out
}

func sortLine(line int) int {
	if line == 0 {
		return int(^uint(0) >> 1)
	}
	return line
}

// joinCode concatenates the blanked code views with newlines and records
// each line's start offset for mapping block-match offsets back to line
// numbers.
func joinCode(lines []scanner.Line) (string, []int) {
	starts := make([]int, len(lines))
	var sb strings.Builder

	for i, l := range lines {
		starts[i] = sb.Len()
		sb.WriteString(l.Code())
		sb.WriteByte('\n')
	}

	return sb.String(), starts
}

// lineAt returns the 1-based line containing byte offset off.
func lineAt(starts []int, off int) int {
	idx := sort.Search(len(starts), func(i int) bool { return starts[i] > off })
	return idx
}
