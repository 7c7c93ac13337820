package facts

// Delta captures added and removed fact rows between two analyses of the
// same contract, e.g. between an embedded template and a regenerated one.
// Drift tooling reports on the delta instead of re-diffing raw source.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// Empty reports whether the delta contains no row changes.
func (d Delta) Empty() bool {
	return len(d.Added.Pragmas) == 0 && len(d.Removed.Pragmas) == 0 &&
		len(d.Added.Imports) == 0 && len(d.Removed.Imports) == 0 &&
		len(d.Added.LedgerItems) == 0 && len(d.Removed.LedgerItems) == 0 &&
		len(d.Added.Circuits) == 0 && len(d.Removed.Circuits) == 0 &&
		len(d.Added.Params) == 0 && len(d.Removed.Params) == 0 &&
		len(d.Added.Witnesses) == 0 && len(d.Removed.Witnesses) == 0 &&
		len(d.Added.Enums) == 0 && len(d.Removed.Enums) == 0 &&
		len(d.Added.EnumVariants) == 0 && len(d.Removed.EnumVariants) == 0
}

// ComputeDelta computes row-level additions and removals between two
// snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

// diffTables returns rows present in `to` but not in `from`.
func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Pragmas = diffRows(from.Pragmas, to.Pragmas)
	out.Imports = diffRows(from.Imports, to.Imports)
	out.LedgerItems = diffRows(from.LedgerItems, to.LedgerItems)
	out.Circuits = diffRows(from.Circuits, to.Circuits)
	out.Params = diffRows(from.Params, to.Params)
	out.Witnesses = diffRows(from.Witnesses, to.Witnesses)
	out.Enums = diffRows(from.Enums, to.Enums)
	out.EnumVariants = diffRows(from.EnumVariants, to.EnumVariants)
	out.HasConstructor = to.HasConstructor
	out.Supported = to.Supported

	return out
}

func diffRows[T comparable](from, to []T) []T {
	seen := make(map[T]bool, len(from))
	for _, row := range from {
		seen[row] = true
	}

	out := []T{}
	for _, row := range to {
		if !seen[row] {
			out = append(out, row)
		}
	}
	return out
}
