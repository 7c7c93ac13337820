// Package rules owns the versioned rule table: the data-driven list of
// deprecated/invalid pattern definitions the rule engine applies, plus the
// supported language-version range. Tables are validated whole at load
// time; a single malformed entry rejects the table, so an in-flight
// analysis can never see a half-usable rule set.
package rules

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/compact-tools/compact-lint/internal/validator"
)

//go:embed rules.cue
var defaultTableFS embed.FS

// Severity is the fixed severity of a rule's findings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Kind selects the matching mechanism for a rule.
type Kind string

const (
	// KindLine matches the pattern against each line's blanked code view.
	KindLine Kind = "line"
	// KindBlock matches the pattern against the whole blanked source; the
	// finding is attributed to the line containing the match start.
	KindBlock Kind = "block"
)

// Rule is one deprecated/invalid pattern definition. Matching mechanics
// live in the engine; the rule only carries data.
type Rule struct {
	ID           string   `json:"id"`
	Kind         Kind     `json:"kind"`
	Pattern      string   `json:"pattern"`
	SinceVersion string   `json:"since_version,omitempty"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	Fix          string   `json:"fix"`

	re *regexp.Regexp
}

// Regexp returns the compiled matcher. Compilation happens once at table
// load; Go's RE2 engine guarantees linear-time matching, so a validated
// pattern cannot backtrack catastrophically on adversarial input.
func (r *Rule) Regexp() *regexp.Regexp {
	return r.re
}

// VersionRange is the supported language-version window, as data.
type VersionRange struct {
	Min     string `json:"min"`
	Max     string `json:"max"`
	Updated string `json:"updated"`
}

// MinKey returns the lower bound as a comparable major*100+minor key.
func (v VersionRange) MinKey() int { return ParseVersionKey(v.Min) }

// MaxKey returns the upper bound as a comparable major*100+minor key.
func (v VersionRange) MaxKey() int { return ParseVersionKey(v.Max) }

// ParseVersionKey converts "MAJOR.MINOR" into major*100 + minor.
// Returns 0 for anything else.
func ParseVersionKey(s string) int {
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return 0
	}
	maj, err := strconv.Atoi(major)
	if err != nil {
		return 0
	}
	min, err := strconv.Atoi(minor)
	if err != nil {
		return 0
	}
	return maj*100 + min
}

// Table is an immutable, validated rule table. Safe for unsynchronized
// concurrent reads; never mutated after Load returns it.
type Table struct {
	Supported VersionRange `json:"supported_versions"`
	Rules     []Rule       `json:"rules"`
}

// Default loads the embedded rule table.
func Default() (*Table, error) {
	data, err := defaultTableFS.ReadFile("rules.cue")
	if err != nil {
		return nil, fmt.Errorf("reading embedded rule table: %w", err)
	}
	t, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("embedded rule table: %w", err)
	}
	return t, nil
}

// LoadFile loads and validates a rule table from an external CUE (or JSON)
// file, for rebuilding the analyzer against an updated table without code
// changes.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule table: %w", err)
	}
	t, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("rule table %s: %w", path, err)
	}
	return t, nil
}

// Load compiles rule table source, validates it against the #RuleTable
// schema, and compiles every matcher. Any failure rejects the whole table.
func Load(src []byte) (*Table, error) {
	ctx := cuecontext.New()

	v := ctx.CompileBytes(src)
	if v.Err() != nil {
		return nil, fmt.Errorf("compiling table: %w", v.Err())
	}

	tableValue := v.LookupPath(cue.ParsePath("table"))
	if tableValue.Err() != nil {
		return nil, fmt.Errorf("table value missing: %w", tableValue.Err())
	}

	var t Table
	if err := tableValue.Decode(&t); err != nil {
		return nil, fmt.Errorf("decoding table: %w", err)
	}

	tv, err := validator.NewTableValidator()
	if err != nil {
		return nil, fmt.Errorf("building table validator: %w", err)
	}
	if err := tv.Validate(t); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(t.Rules))
	for i := range t.Rules {
		r := &t.Rules[i]
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true

		r.re, err = regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: invalid pattern: %w", r.ID, err)
		}
	}

	if t.Supported.MinKey() == 0 || t.Supported.MaxKey() < t.Supported.MinKey() {
		return nil, fmt.Errorf("supported version range %s..%s is not ordered", t.Supported.Min, t.Supported.Max)
	}

	return &t, nil
}
