package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/compact-tools/compact-lint/internal/policy"
	"github.com/compact-tools/compact-lint/internal/rules"
	"github.com/compact-tools/compact-lint/internal/validator"
)

const cleanTemplate = "pragma language_version >= 0.16 && <= 0.18;\nimport CompactStandardLibrary;\nexport ledger counter: Counter;\nexport circuit increment(): [] { counter.increment(1); }\n"

func newAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	table, err := rules.Default()
	if err != nil {
		t.Fatalf("loading default table: %v", err)
	}
	engine, err := policy.New()
	if err != nil {
		t.Fatalf("building policy engine: %v", err)
	}
	opts = append([]Option{WithPolicyEngine(engine)}, opts...)
	return New(table, opts...)
}

func analyze(t *testing.T, a *Analyzer, src string) Result {
	t.Helper()
	result, err := a.Analyze(context.Background(), src)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return result
}

func issuesFor(result Result, ruleID string) []Issue {
	var out []Issue
	for _, issue := range result.PotentialIssues {
		if issue.RuleID == ruleID {
			out = append(out, issue)
		}
	}
	return out
}

func TestCleanTemplate(t *testing.T) {
	result := analyze(t, newAnalyzer(t), cleanTemplate)

	if !result.Success {
		t.Fatalf("expected success, got failure %q", result.FailureReason)
	}
	if result.LanguageVersion != "0.16" {
		t.Fatalf("expected language version 0.16, got %q", result.LanguageVersion)
	}
	if len(result.Structure.LedgerItems) != 1 || len(result.Structure.Circuits) != 1 {
		t.Fatalf("unexpected structure: %+v", result.Structure)
	}
	if len(result.PotentialIssues) != 0 {
		t.Fatalf("expected no issues, got %+v", result.PotentialIssues)
	}
}

func TestEmptyInput(t *testing.T) {
	result := analyze(t, newAnalyzer(t), "")

	if result.Success {
		t.Fatalf("expected failure for empty input")
	}
	if result.FailureReason != "EmptyInput" {
		t.Fatalf("expected EmptyInput, got %q", result.FailureReason)
	}
	if result.Structure != nil || result.Stats != nil || len(result.PotentialIssues) != 0 {
		t.Fatalf("failure result carries analysis fields: %+v", result)
	}
}

func TestInputTooLarge(t *testing.T) {
	a := newAnalyzer(t, WithMaxInputBytes(128))
	result := analyze(t, a, strings.Repeat("export ledger x: Counter;\n", 50))
	if result.Success || result.FailureReason != "InputTooLarge" {
		t.Fatalf("expected InputTooLarge, got %+v", result)
	}
}

func TestLedgerBlockRule(t *testing.T) {
	result := analyze(t, newAnalyzer(t), "ledger {\n  counter: Counter;\n}\n")

	found := issuesFor(result, "deprecated_ledger_block")
	if len(found) != 1 {
		t.Fatalf("expected exactly one ledger block issue, got %+v", found)
	}
	if found[0].Severity != rules.SeverityError || found[0].Line != 1 {
		t.Fatalf("unexpected issue: %+v", found[0])
	}

	clean := analyze(t, newAnalyzer(t), cleanTemplate)
	if len(issuesFor(clean, "deprecated_ledger_block")) != 0 {
		t.Fatalf("individual ledger statements flagged as block")
	}
}

func TestVoidReturnTypeRule(t *testing.T) {
	src := "pragma language_version >= 0.16 && <= 0.18;\nexport circuit f(): Void {\n}\n"
	result := analyze(t, newAnalyzer(t), src)

	found := issuesFor(result, "invalid_void_type")
	if len(found) != 1 || found[0].Line != 2 {
		t.Fatalf("expected one void issue on line 2, got %+v", found)
	}

	ok := analyze(t, newAnalyzer(t), cleanTemplate)
	if len(issuesFor(ok, "invalid_void_type")) != 0 {
		t.Fatalf("[] return type flagged as Void")
	}
}

func TestPragmaFormatRule(t *testing.T) {
	patch := analyze(t, newAnalyzer(t), "pragma language_version >= 0.16.2;\nexport circuit f(): [] {}\n")
	if found := issuesFor(patch, "invalid_pragma_format"); len(found) != 1 {
		t.Fatalf("expected one pragma format issue for patch version, got %+v", found)
	}

	bare := analyze(t, newAnalyzer(t), "pragma language_version 0.16;\nexport circuit f(): [] {}\n")
	if found := issuesFor(bare, "invalid_pragma_format"); len(found) != 1 {
		t.Fatalf("expected one pragma format issue for missing operators, got %+v", found)
	}

	ok := analyze(t, newAnalyzer(t), cleanTemplate)
	if len(issuesFor(ok, "invalid_pragma_format")) != 0 {
		t.Fatalf("bounded two-component pragma flagged")
	}
}

func TestCellWrapperPerLineDedup(t *testing.T) {
	src := "export ledger a: Cell<Field>;\nexport ledger b: Map<Field, Cell<Field>>;\nexport circuit f(x: Cell<Field>, y: Cell<Field>): [] {}\n"
	result := analyze(t, newAnalyzer(t), src)

	found := issuesFor(result, "deprecated_cell_wrapper")
	if len(found) != 3 {
		t.Fatalf("expected one issue per occurrence line, got %+v", found)
	}
	if found[0].Line != 1 || found[1].Line != 2 || found[2].Line != 3 {
		t.Fatalf("unexpected lines: %+v", found)
	}
}

func TestUnexportedEnumRule(t *testing.T) {
	warned := analyze(t, newAnalyzer(t), "enum State { Active, Inactive }\nexport circuit f(): [] {}\n")
	found := issuesFor(warned, "unexported_enum")
	if len(found) != 1 || found[0].Severity != rules.SeverityWarning {
		t.Fatalf("expected one unexported_enum warning, got %+v", found)
	}

	ok := analyze(t, newAnalyzer(t), "export enum State { Active, Inactive }\nexport circuit f(): [] {}\n")
	if len(issuesFor(ok, "unexported_enum")) != 0 {
		t.Fatalf("exported enum flagged")
	}
}

func TestLexicalExclusion(t *testing.T) {
	src := `pragma language_version >= 0.16 && <= 0.18;
// ledger {
/* Cell<Field> and : Void inside a block comment
   enum Hidden { A }
*/
export circuit log(): [] {
  emit("Cell<Field> in a string");
}
`
	result := analyze(t, newAnalyzer(t), src)
	if len(result.PotentialIssues) != 0 {
		t.Fatalf("patterns matched inside comments or strings: %+v", result.PotentialIssues)
	}
}

func TestStatsDerivedFromStructure(t *testing.T) {
	src := `export ledger a: Counter;
export ledger b: Counter;
export circuit f(): [] {}
witness w(): Field;
`
	result := analyze(t, newAnalyzer(t), src)

	if result.Stats.CircuitCount != len(result.Structure.Circuits) {
		t.Fatalf("circuit count %d != %d", result.Stats.CircuitCount, len(result.Structure.Circuits))
	}
	if result.Stats.WitnessCount != 1 || result.Stats.LedgerItemCount != 2 {
		t.Fatalf("unexpected stats: %+v", result.Stats)
	}
}

func TestPolicyFindingsMerge(t *testing.T) {
	result := analyze(t, newAnalyzer(t), "export circuit f(): [] {}\n")

	found := issuesFor(result, "missing_pragma")
	if len(found) != 1 || found[0].Severity != rules.SeverityWarning {
		t.Fatalf("expected missing_pragma warning, got %+v", result.PotentialIssues)
	}
	if found[0].Line != 0 {
		t.Fatalf("unlocated finding carries a line: %+v", found[0])
	}
}

func TestSeverityOverrides(t *testing.T) {
	off := newAnalyzer(t, WithSeverityOverrides(map[string]string{"unexported_enum": "off"}))
	result := analyze(t, off, "enum State { A }\nexport circuit f(): [] {}\n")
	if len(issuesFor(result, "unexported_enum")) != 0 {
		t.Fatalf("disabled rule still fired")
	}

	promoted := newAnalyzer(t, WithSeverityOverrides(map[string]string{"unexported_enum": "error"}))
	result = analyze(t, promoted, "enum State { A }\nexport circuit f(): [] {}\n")
	found := issuesFor(result, "unexported_enum")
	if len(found) != 1 || found[0].Severity != rules.SeverityError {
		t.Fatalf("severity override not applied: %+v", found)
	}
}

func TestIssueLinesIndexRealLines(t *testing.T) {
	src := "ledger {\n}\nexport circuit f(): Void {\n}\nenum E { A }\n"
	result := analyze(t, newAnalyzer(t), src)

	total := strings.Count(src, "\n")
	for _, issue := range result.PotentialIssues {
		if issue.Line < 0 || issue.Line > total {
			t.Fatalf("issue line %d out of range 1..%d: %+v", issue.Line, total, issue)
		}
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	a := newAnalyzer(t)
	src := "ledger {\n}\nexport ledger x: Cell<Field>;\nenum E { A }\n"

	first := analyze(t, a, src)
	second := analyze(t, a, src)

	j1, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	j2, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(j1, j2) {
		t.Fatalf("repeated analysis differs:\n%s\n%s", j1, j2)
	}
}

func TestResultMatchesOutputSchema(t *testing.T) {
	ov, err := validator.NewOutputValidator()
	if err != nil {
		t.Fatalf("building output validator: %v", err)
	}

	for _, src := range []string{
		cleanTemplate,
		"ledger {\n  counter: Counter;\n}\n",
		"enum State { A }\nwitness w(): Field;\n",
		"",
	} {
		result := analyze(t, newAnalyzer(t), src)
		if err := ov.Validate(result); err != nil {
			t.Fatalf("result for %q violates output schema: %v", src, err)
		}
	}
}
