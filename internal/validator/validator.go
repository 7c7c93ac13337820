package validator

// The CUE validator is the contract guard between the analyzer's Go types
// and everything that consumes them as data: the rule table, the policy
// engine's fact tables, and the JSON analysis result.
//
// If a field name drifts or a type is wrong, the policy engine silently
// receives `undefined`, rules stop firing, and nobody notices. Schema
// validation turns that silent failure into an immediate, named error at
// load time.

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed rules_schema.cue
var rulesSchemaFS embed.FS

//go:embed facts_schema.cue
var factsSchemaFS embed.FS

//go:embed output_schema.cue
var outputSchemaFS embed.FS

// schemaValidator unifies data against one definition in one schema file.
type schemaValidator struct {
	ctx    *cue.Context
	schema cue.Value
	def    string
}

func newSchemaValidator(fs embed.FS, file, def string) (*schemaValidator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := fs.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema %s: %w", file, err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", file, schema.Err())
	}

	return &schemaValidator{ctx: ctx, schema: schema, def: def}, nil
}

// Validate checks that data conforms to the schema definition. Returns nil
// if valid, or an error explaining what failed.
func (v *schemaValidator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling data to JSON: %w", err)
	}
	return v.ValidateJSON(jsonBytes)
}

// ValidateJSON validates JSON bytes directly against the schema definition.
func (v *schemaValidator) ValidateJSON(jsonBytes []byte) error {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling data as CUE: %w", dataValue.Err())
	}

	def := v.schema.LookupPath(cue.ParsePath(v.def))
	if def.Err() != nil {
		return fmt.Errorf("looking up %s definition: %w", v.def, def.Err())
	}

	unified := def.Unify(dataValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}

// Errors returns every validation error individually, for reporting a
// rejected rule table or payload in full rather than stopping at the first
// complaint.
func (v *schemaValidator) Errors(data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return []string{fmt.Sprintf("compile error: %v", dataValue.Err())}
	}

	def := v.schema.LookupPath(cue.ParsePath(v.def))
	if def.Err() != nil {
		return []string{fmt.Sprintf("schema lookup error: %v", def.Err())}
	}

	err = def.Unify(dataValue).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

// TableValidator validates rule table data against the #RuleTable schema.
// A table that fails here must be rejected whole; the analyzer never runs
// with a partially valid table.
type TableValidator struct {
	*schemaValidator
}

// NewTableValidator creates a validator for rule table data.
func NewTableValidator() (*TableValidator, error) {
	sv, err := newSchemaValidator(rulesSchemaFS, "rules_schema.cue", "#RuleTable")
	if err != nil {
		return nil, err
	}
	return &TableValidator{sv}, nil
}

// FactsValidator validates relational fact tables against the facts schema
// before they are handed to the policy engine.
type FactsValidator struct {
	*schemaValidator
}

// NewFactsValidator creates a validator for fact tables.
func NewFactsValidator() (*FactsValidator, error) {
	sv, err := newSchemaValidator(factsSchemaFS, "facts_schema.cue", "#FactTables")
	if err != nil {
		return nil, err
	}
	return &FactsValidator{sv}, nil
}

// OutputValidator validates serialized analysis results against the output
// schema consumed by downstream tooling.
type OutputValidator struct {
	*schemaValidator
}

// NewOutputValidator creates a validator for analysis result JSON.
func NewOutputValidator() (*OutputValidator, error) {
	sv, err := newSchemaValidator(outputSchemaFS, "output_schema.cue", "#AnalysisResult")
	if err != nil {
		return nil, err
	}
	return &OutputValidator{sv}, nil
}
