// Package policy evaluates OPA rego policies against the relational fact
// tables. The rego query is prepared once at engine construction; a
// malformed policy rejects the engine rather than silently skipping rules
// during analysis.
package policy

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/open-policy-agent/opa/rego"

	"github.com/compact-tools/compact-lint/internal/facts"
)

//go:embed compact.rego
var defaultPolicyFS embed.FS

const findingsQuery = "data.compact.lint.findings"

// Finding is one structural policy finding, shaped to merge with the rule
// engine's issues. Line 0 means the finding has no source location.
type Finding struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
	Fix      string `json:"fix"`
}

// Engine evaluates prepared policies against fact tables.
type Engine struct {
	query rego.PreparedEvalQuery
}

// New creates an engine over the embedded default policies.
func New() (*Engine, error) {
	src, err := defaultPolicyFS.ReadFile("compact.rego")
	if err != nil {
		return nil, fmt.Errorf("loading embedded policy: %w", err)
	}
	return prepare([]func(*rego.Rego){rego.Module("compact.rego", string(src))})
}

// NewFromDir creates an engine from every .rego file in policyDir, for
// running a swapped-in policy set.
func NewFromDir(policyDir string) (*Engine, error) {
	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, fmt.Errorf("finding policy files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no policy files found in %s", policyDir)
	}

	var modules []func(*rego.Rego)
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		modules = append(modules, rego.Module(f, string(content)))
	}

	return prepare(modules)
}

func prepare(modules []func(*rego.Rego)) (*Engine, error) {
	opts := append(modules, rego.Query(findingsQuery))
	query, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return nil, fmt.Errorf("preparing findings query: %w", err)
	}
	return &Engine{query: query}, nil
}

// Evaluate runs the policies against the fact tables.
func (e *Engine) Evaluate(ctx context.Context, tables facts.Tables) ([]Finding, error) {
	inputMap, err := structToMap(tables)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	rs, err := e.query.Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating findings: %w", err)
	}

	var out []Finding
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return out, nil
	}

	raw, ok := rs[0].Expressions[0].Value.([]interface{})
	if !ok {
		return out, nil
	}
	for _, v := range raw {
		fmap, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, Finding{
			Rule:     getString(fmap, "rule"),
			Severity: getString(fmap, "severity"),
			Line:     getInt(fmap, "line"),
			Message:  getString(fmap, "message"),
			Fix:      getString(fmap, "fix"),
		})
	}

	return out, nil
}

func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
