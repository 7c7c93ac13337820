// Package facts flattens extracted contract structure into relational
// tables. Each slice is a relation with flat rows; this is the input shape
// the policy engine queries and the compact-facts CLI dumps.
package facts

import (
	"github.com/compact-tools/compact-lint/internal/extractor"
	"github.com/compact-tools/compact-lint/internal/rules"
)

// Tables is the relational fact model for policy evaluation.
type Tables struct {
	Pragmas      []PragmaRow  `json:"pragmas"`
	Imports      []ImportRow  `json:"imports"`
	LedgerItems  []LedgerRow  `json:"ledger_items"`
	Circuits     []CircuitRow `json:"circuits"`
	Params       []ParamRow   `json:"params"`
	Witnesses    []WitnessRow `json:"witnesses"`
	Enums        []EnumRow    `json:"enums"`
	EnumVariants []VariantRow `json:"enum_variants"`

	HasConstructor bool         `json:"has_constructor"`
	Supported      SupportedRow `json:"supported_versions"`
}

type PragmaRow struct {
	Raw    string `json:"raw"`
	MinKey int    `json:"min_key"`
	MaxKey int    `json:"max_key"`
	Line   int    `json:"line"`
}

type ImportRow struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

type LedgerRow struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Exported bool   `json:"exported"`
	Sealed   bool   `json:"sealed"`
	Private  bool   `json:"private"`
	Line     int    `json:"line"`
}

type CircuitRow struct {
	Name       string `json:"name"`
	ReturnType string `json:"return_type"`
	Exported   bool   `json:"exported"`
	Line       int    `json:"line"`
}

type ParamRow struct {
	Owner     string `json:"owner"`
	OwnerKind string `json:"owner_kind"` // "circuit" or "witness"
	Name      string `json:"name"`
	Type      string `json:"type"`
	Index     int    `json:"index"`
}

type WitnessRow struct {
	Name       string `json:"name"`
	ReturnType string `json:"return_type"`
	Line       int    `json:"line"`
}

type EnumRow struct {
	Name     string `json:"name"`
	Exported bool   `json:"exported"`
	Line     int    `json:"line"`
}

type VariantRow struct {
	Enum  string `json:"enum"`
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// SupportedRow carries the analyzer's supported version window into policy
// input so version policies stay data-driven.
type SupportedRow struct {
	MinKey int `json:"min_key"`
	MaxKey int `json:"max_key"`
}

// BuildTables converts extracted structure into the normalized relational
// model. All slices are non-nil so the JSON form always carries every
// relation (the facts schema and rego policies rely on that).
func BuildTables(pragma *extractor.PragmaInfo, imports []extractor.ImportDecl, st extractor.Structure, supported rules.VersionRange) Tables {
	tables := emptyTables()
	tables.HasConstructor = st.HasConstructor
	tables.Supported = SupportedRow{
		MinKey: supported.MinKey(),
		MaxKey: supported.MaxKey(),
	}

	if pragma != nil {
		tables.Pragmas = append(tables.Pragmas, PragmaRow{
			Raw:    pragma.RawText,
			MinKey: pragma.DeclaredMin,
			MaxKey: pragma.DeclaredMax,
			Line:   pragma.Line,
		})
	}

	for _, imp := range imports {
		tables.Imports = append(tables.Imports, ImportRow(imp))
	}

	for _, item := range st.LedgerItems {
		tables.LedgerItems = append(tables.LedgerItems, LedgerRow{
			Name:     item.Name,
			Type:     item.Type,
			Exported: item.Exported,
			Sealed:   item.Sealed,
			Private:  item.Private,
			Line:     item.Line,
		})
	}

	for _, c := range st.Circuits {
		tables.Circuits = append(tables.Circuits, CircuitRow{
			Name:       c.Name,
			ReturnType: c.ReturnType,
			Exported:   c.Exported,
			Line:       c.Line,
		})
		for i, p := range c.Params {
			tables.Params = append(tables.Params, ParamRow{
				Owner:     c.Name,
				OwnerKind: "circuit",
				Name:      p.Name,
				Type:      p.Type,
				Index:     i,
			})
		}
	}

	for _, w := range st.Witnesses {
		tables.Witnesses = append(tables.Witnesses, WitnessRow{
			Name:       w.Name,
			ReturnType: w.ReturnType,
			Line:       w.Line,
		})
		for i, p := range w.Params {
			tables.Params = append(tables.Params, ParamRow{
				Owner:     w.Name,
				OwnerKind: "witness",
				Name:      p.Name,
				Type:      p.Type,
				Index:     i,
			})
		}
	}

	for _, e := range st.Enums {
		tables.Enums = append(tables.Enums, EnumRow{
			Name:     e.Name,
			Exported: e.Exported,
			Line:     e.Line,
		})
		for i, variant := range e.Variants {
			tables.EnumVariants = append(tables.EnumVariants, VariantRow{
				Enum:  e.Name,
				Name:  variant,
				Index: i,
			})
		}
	}

	return tables
}

func emptyTables() Tables {
	return Tables{
		Pragmas:      []PragmaRow{},
		Imports:      []ImportRow{},
		LedgerItems:  []LedgerRow{},
		Circuits:     []CircuitRow{},
		Params:       []ParamRow{},
		Witnesses:    []WitnessRow{},
		Enums:        []EnumRow{},
		EnumVariants: []VariantRow{},
	}
}
