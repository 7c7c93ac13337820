package extractor

import "regexp"

var (
	// Pattern: pragma language_version <bounds>;
	pragmaPattern = regexp.MustCompile(`^\s*pragma\s+language_version\b([^;]*);`)

	// Pattern: one version bound, e.g. ">= 0.16" (a patch component is
	// tolerated here; flagging it is the rule table's job)
	boundPattern = regexp.MustCompile(`(>=|<=|>|<)?\s*(\d+)\.(\d+)(?:\.\d+)?`)

	// Pattern: import CompactStandardLibrary;
	importPattern = regexp.MustCompile(`^\s*import\s+([A-Za-z_]\w*)\s*;`)

	// Pattern: import "<path>" prefix <Identifier>;
	importPrefixPattern = regexp.MustCompile(`^\s*import\s+"[^"]*"\s+prefix\s+([A-Za-z_]\w*)\s*;`)

	// Pattern: [export] [sealed] ledger <name>: <Type>;
	ledgerPattern = regexp.MustCompile(`^\s*((?:export\s+|sealed\s+)*)ledger\s+([A-Za-z_]\w*)\s*:\s*([^;]+?)\s*;`)

	// Pattern: @private annotation preceding a ledger declaration
	privatePattern = regexp.MustCompile(`^\s*@private\b`)

	// Pattern: [export] [pure] circuit <name>(<params>): <ReturnType> {
	circuitPattern = regexp.MustCompile(`^\s*((?:export\s+|pure\s+)*)circuit\s+([A-Za-z_]\w*)\s*\((.*)\)\s*:\s*([^{]+?)\s*\{`)

	// Pattern: witness <name>(<params>): <ReturnType> followed by ; or { ... }
	witnessPattern = regexp.MustCompile(`^\s*witness\s+([A-Za-z_]\w*)\s*\((.*)\)\s*:\s*([^;{]+?)\s*[;{]`)

	// Pattern: [export] enum <Name> { <variants> }
	enumPattern = regexp.MustCompile(`^\s*(export\s+)?enum\s+([A-Za-z_]\w*)\s*\{([^}]*)\}`)

	// Pattern: constructor(<params>) {
	constructorPattern = regexp.MustCompile(`^\s*constructor\s*\(`)

	// declStartPattern gates the statement-joining walk: only lines opening
	// with a declaration keyword are worth accumulating.
	declStartPattern = regexp.MustCompile(`^\s*(?:@private\b|(?:export\s+|sealed\s+|pure\s+)*(?:ledger|circuit|witness|enum)\b|constructor\s*\()`)
)

// matchLedger returns [modifiers, name, type] if stmt declares a ledger field.
func matchLedger(stmt string) []string {
	if m := ledgerPattern.FindStringSubmatch(stmt); m != nil {
		return m[1:]
	}
	return nil
}

// matchCircuit returns [modifiers, name, params, returnType] if stmt opens a circuit.
func matchCircuit(stmt string) []string {
	if m := circuitPattern.FindStringSubmatch(stmt); m != nil {
		return m[1:]
	}
	return nil
}

// matchWitness returns [name, params, returnType] if stmt declares a witness.
func matchWitness(stmt string) []string {
	if m := witnessPattern.FindStringSubmatch(stmt); m != nil {
		return m[1:]
	}
	return nil
}

// matchEnum returns [exportKw, name, variants] if stmt declares an enum.
func matchEnum(stmt string) []string {
	if m := enumPattern.FindStringSubmatch(stmt); m != nil {
		return m[1:]
	}
	return nil
}
