// End-to-end drift tests: known-good contract templates must lint clean
// through the full pipeline (scan, extract, validate, rules, policies),
// and deliberately drifted copies must surface exactly the expected rules.
package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/compact-tools/compact-lint/internal/config"
	"github.com/compact-tools/compact-lint/internal/extractor"
	"github.com/compact-tools/compact-lint/internal/facts"
	"github.com/compact-tools/compact-lint/internal/linter"
	"github.com/compact-tools/compact-lint/internal/rules"
	"github.com/compact-tools/compact-lint/internal/scanner"
)

const counterTemplate = `pragma language_version >= 0.16 && <= 0.18;

import CompactStandardLibrary;

export ledger counter: Counter;

export circuit increment(amount: Uint<16>): [] {
  counter.increment(amount);
}

export circuit current(): Uint<64> {
  return counter.read();
}
`

const votingTemplate = `pragma language_version >= 0.16 && <= 0.18;

import CompactStandardLibrary;

export enum Choice { yes, no, abstain }

export ledger votes: Map<Choice, Counter>;
export sealed ledger admin: Bytes<32>;

witness secret_ballot(): Bytes<32>;

constructor(initial_admin: Bytes<32>) {
  admin = initial_admin;
}

export circuit cast(choice: Choice): [] {
  votes.lookup(choice).increment(1);
}
`

// driftedCounter reintroduces every legacy construct the rule table exists
// to catch: the 0.14-era ledger block, Cell wrappers, Void returns and a
// patch-version pragma.
const driftedCounter = `pragma language_version 0.14.0;

import CompactStandardLibrary;

ledger {
  counter: Cell<Counter>;
}

export circuit increment(amount: Uint<16>): Void {
  counter.increment(amount);
}
`

// staleContract pins a bounded version range entirely below the supported
// window, which only the structural version policy can catch.
const staleContract = `pragma language_version >= 0.10 && <= 0.12;

import CompactStandardLibrary;

export ledger flag: Boolean;

export circuit toggle(): [] {
  flag.write(!flag.read());
}
`

func writeFixture(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func runLint(t *testing.T, dir string) linter.Report {
	t.Helper()
	l, err := linter.NewWithConfig(config.DefaultConfig())
	if err != nil {
		t.Fatalf("building linter: %v", err)
	}
	l.Out = discard(t)

	report, err := l.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("lint run: %v", err)
	}
	return report
}

func discard(t *testing.T) *os.File {
	t.Helper()
	f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open %s: %v", os.DevNull, err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestTemplatesLintClean(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "counter.compact", counterTemplate)
	writeFixture(t, dir, "voting.compact", votingTemplate)

	report := runLint(t, dir)

	if report.Summary.FilesAnalyzed != 2 {
		t.Fatalf("expected 2 files analyzed, got %+v", report.Summary)
	}
	if report.Summary.TotalIssues != 0 || report.Summary.Failures != 0 {
		for _, fr := range report.Files {
			for _, issue := range fr.Result.PotentialIssues {
				t.Logf("%s:%d %s %s", fr.File, issue.Line, issue.Severity, issue.RuleID)
			}
		}
		t.Fatalf("templates did not lint clean: %+v", report.Summary)
	}
	if report.Failed("error") {
		t.Fatalf("clean templates gated the run")
	}
}

func TestDriftedContractsSurfaceExpectedRules(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "counter.compact", driftedCounter)
	writeFixture(t, dir, "stale.compact", staleContract)

	report := runLint(t, dir)

	if len(report.Files) != 2 {
		t.Fatalf("expected 2 file reports, got %d", len(report.Files))
	}

	found := map[string]bool{}
	for _, fr := range report.Files {
		for _, issue := range fr.Result.PotentialIssues {
			found[issue.RuleID] = true
		}
	}

	expected := []string{
		"deprecated_ledger_block",
		"deprecated_cell_wrapper",
		"invalid_void_type",
		"invalid_pragma_format",
		"pragma_version_unsupported",
	}
	for _, id := range expected {
		if !found[id] {
			t.Fatalf("expected rule %s to fire, got %v", id, found)
		}
	}
	if !report.Failed("error") {
		t.Fatalf("drifted contract did not gate the run")
	}
}

func TestFactDeltaDetectsDrift(t *testing.T) {
	table, err := rules.Default()
	if err != nil {
		t.Fatalf("loading default table: %v", err)
	}

	build := func(src string) facts.Tables {
		lines, failure := scanner.Scan(src, scanner.DefaultMaxInputBytes)
		if failure != "" {
			t.Fatalf("scan failure: %s", failure)
		}
		pragma, imports := extractor.ExtractHeader(lines)
		return facts.BuildTables(pragma, imports, extractor.Extract(lines), table.Supported)
	}

	same := facts.ComputeDelta(build(counterTemplate), build(counterTemplate))
	if !same.Empty() {
		t.Fatalf("identical sources produced a non-empty delta: %+v", same)
	}

	delta := facts.ComputeDelta(build(counterTemplate), build(driftedCounter))
	if delta.Empty() {
		t.Fatalf("drifted source produced an empty delta")
	}
	if len(delta.Removed.LedgerItems) == 0 {
		t.Fatalf("expected the exported ledger item to show as removed: %+v", delta.Removed)
	}
}
