package analyzer

import (
	"github.com/compact-tools/compact-lint/internal/extractor"
	"github.com/compact-tools/compact-lint/internal/rules"
)

// Issue is one finding: a rule match or a policy finding. Findings are
// first-class successful output, never errors; callers filter on Severity.
type Issue struct {
	RuleID       string         `json:"rule_id"`
	Severity     rules.Severity `json:"severity"`
	Message      string         `json:"message"`
	SuggestedFix string         `json:"suggested_fix"`

	// Line is 1-based; 0 means the issue has no source location and the
	// field is omitted from JSON.
	Line int `json:"line,omitempty"`
}

// Stats are counts derived from the structure, never independently set.
type Stats struct {
	CircuitCount    int `json:"circuit_count"`
	WitnessCount    int `json:"witness_count"`
	LedgerItemCount int `json:"ledger_item_count"`
}

// Result is the full outcome of one analysis. When Success is false only
// FailureReason is populated.
type Result struct {
	Success         bool                   `json:"success"`
	LanguageVersion string                 `json:"language_version,omitempty"`
	Imports         []extractor.ImportDecl `json:"imports,omitempty"`
	Structure       *extractor.Structure   `json:"structure,omitempty"`
	Stats           *Stats                 `json:"stats,omitempty"`
	PotentialIssues []Issue                `json:"potential_issues,omitempty"`
	FailureReason   string                 `json:"failure_reason,omitempty"`
}

// ErrorCount returns how many issues carry error severity.
func (r Result) ErrorCount() int {
	n := 0
	for _, issue := range r.PotentialIssues {
		if issue.Severity == rules.SeverityError {
			n++
		}
	}
	return n
}

// assemble produces the final successful result. Failures were caught in
// the scanner; from here the result is well-formed even when issues are
// present.
func assemble(pragma *extractor.PragmaInfo, imports []extractor.ImportDecl, structure extractor.Structure, issues []Issue) Result {
	version := ""
	if pragma != nil {
		version = pragma.MinVersion()
	}

	return Result{
		Success:         true,
		LanguageVersion: version,
		Imports:         imports,
		Structure:       &structure,
		Stats: &Stats{
			CircuitCount:    len(structure.Circuits),
			WitnessCount:    len(structure.Witnesses),
			LedgerItemCount: len(structure.LedgerItems),
		},
		PotentialIssues: issues,
	}
}
