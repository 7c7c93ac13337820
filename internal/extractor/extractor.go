// Package extractor recovers the declaration-level structure of a contract
// source from its scanned lines: the version pragma, imports, ledger fields,
// circuits, witnesses, enums and the constructor.
//
// The contract language's top-level grammar is declaration-per-statement, so
// a line-oriented, bracket-depth-aware scan is enough; no syntax tree is
// built. Declarations the scan cannot confidently classify are skipped, not
// errors: partial structure is still useful to the rule engine and callers.
package extractor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/compact-tools/compact-lint/internal/scanner"
)

// maxJoinLines bounds how many lines a single wrapped declaration may span
// before the walk gives up on it.
const maxJoinLines = 24

// PragmaInfo is the parsed language_version pragma.
type PragmaInfo struct {
	// DeclaredMin and DeclaredMax are comparable version keys
	// (major*100 + minor). Zero means the bound was absent.
	DeclaredMin int
	DeclaredMax int
	RawText     string
	Line        int
}

// MinVersion renders the lower bound as "MAJOR.MINOR", or "" if absent.
func (p PragmaInfo) MinVersion() string {
	return FormatVersionKey(p.DeclaredMin)
}

// FormatVersionKey renders a major*100+minor key as "MAJOR.MINOR".
func FormatVersionKey(key int) string {
	if key <= 0 {
		return ""
	}
	return fmt.Sprintf("%d.%d", key/100, key%100)
}

// ImportDecl is one module import, in source order. Duplicates are kept;
// declaration order matters for messages, not uniqueness.
type ImportDecl struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// LedgerItem is one ledger field declaration.
type LedgerItem struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Exported bool   `json:"exported"`
	Sealed   bool   `json:"sealed"`
	Private  bool   `json:"private"`
	Line     int    `json:"line"`
}

// Param is one name:type pair in a parameter list.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Circuit is one circuit declaration.
type Circuit struct {
	Name       string  `json:"name"`
	Params     []Param `json:"params"`
	ReturnType string  `json:"return_type"`
	Exported   bool    `json:"exported"`
	Line       int     `json:"line"`
}

// Witness is one witness declaration (declared or defined form).
type Witness struct {
	Name       string  `json:"name"`
	Params     []Param `json:"params"`
	ReturnType string  `json:"return_type"`
	Line       int     `json:"line"`
}

// EnumDecl is one enum declaration with its variants in source order.
type EnumDecl struct {
	Name     string   `json:"name"`
	Variants []string `json:"variants"`
	Exported bool     `json:"exported"`
	Line     int      `json:"line"`
}

// Structure is everything the structural walk recovered.
type Structure struct {
	LedgerItems    []LedgerItem `json:"ledger_items"`
	Circuits       []Circuit    `json:"circuits"`
	Witnesses      []Witness    `json:"witnesses"`
	Enums          []EnumDecl   `json:"enums"`
	HasConstructor bool         `json:"has_constructor"`
}

// ExtractHeader locates the first version pragma and every import, in
// source order. A missing pragma is not an error here; whether that is a
// finding is policy.
func ExtractHeader(lines []scanner.Line) (*PragmaInfo, []ImportDecl) {
	var pragma *PragmaInfo
	imports := []ImportDecl{}

	for _, l := range lines {
		code := l.Code()

		if pragma == nil {
			if m := pragmaPattern.FindStringSubmatch(code); m != nil {
				pragma = parsePragma(strings.TrimSpace(l.Text), m[1], l.Num)
				continue
			}
		}

		if m := importPattern.FindStringSubmatch(code); m != nil {
			imports = append(imports, ImportDecl{Name: m[1], Line: l.Num})
			continue
		}
		if m := importPrefixPattern.FindStringSubmatch(code); m != nil {
			imports = append(imports, ImportDecl{Name: m[1], Line: l.Num})
		}
	}

	return pragma, imports
}

// parsePragma reads the version bounds out of the pragma body. The lower
// bound comes from the first ">="/">" (or bare) version, the upper from the
// first "<="/"<" version.
func parsePragma(raw, body string, line int) *PragmaInfo {
	info := &PragmaInfo{RawText: raw, Line: line}

	for _, m := range boundPattern.FindAllStringSubmatch(body, -1) {
		major, _ := strconv.Atoi(m[2])
		minor, _ := strconv.Atoi(m[3])
		key := major*100 + minor

		switch m[1] {
		case "<=", "<":
			if info.DeclaredMax == 0 {
				info.DeclaredMax = key
			}
		default:
			// ">=", ">" or a bare version all set the lower bound.
			if info.DeclaredMin == 0 {
				info.DeclaredMin = key
			}
		}
	}

	return info
}

// Extract walks the scanned lines and recovers all top-level declarations.
func Extract(lines []scanner.Line) Structure {
	st := Structure{
		LedgerItems: []LedgerItem{},
		Circuits:    []Circuit{},
		Witnesses:   []Witness{},
		Enums:       []EnumDecl{},
	}

	// Line number of the most recent @private annotation; it marks the next
	// ledger declaration as private.
	privateAt := -1

	for i := 0; i < len(lines); i++ {
		code := lines[i].Code()
		if !declStartPattern.MatchString(code) {
			continue
		}

		if privatePattern.MatchString(code) {
			privateAt = lines[i].Num
			continue
		}

		stmt, consumed := joinStatement(lines, i)
		startLine := lines[i].Num

		switch {
		case constructorPattern.MatchString(stmt):
			st.HasConstructor = true

		case matchLedger(stmt) != nil:
			m := matchLedger(stmt)
			item := LedgerItem{
				Name:     m[1],
				Type:     m[2],
				Exported: strings.Contains(m[0], "export"),
				Sealed:   strings.Contains(m[0], "sealed"),
				Private:  privateAt == startLine-1,
				Line:     startLine,
			}
			st.LedgerItems = append(st.LedgerItems, item)

		case matchCircuit(stmt) != nil:
			m := matchCircuit(stmt)
			st.Circuits = append(st.Circuits, Circuit{
				Name:       m[1],
				Params:     splitParams(m[2]),
				ReturnType: m[3],
				Exported:   strings.Contains(m[0], "export"),
				Line:       startLine,
			})

		case matchWitness(stmt) != nil:
			m := matchWitness(stmt)
			st.Witnesses = append(st.Witnesses, Witness{
				Name:       m[0],
				Params:     splitParams(m[1]),
				ReturnType: m[2],
				Line:       startLine,
			})

		case matchEnum(stmt) != nil:
			m := matchEnum(stmt)
			st.Enums = append(st.Enums, EnumDecl{
				Name:     m[1],
				Variants: splitVariants(m[2]),
				Exported: m[0] != "",
				Line:     startLine,
			})
		}

		// Skip past lines consumed by a wrapped declaration header so a
		// later declaration is not attributed to the wrong line.
		i += consumed - 1
	}

	return st
}

// joinStatement re-joins a declaration header wrapped across lines,
// accumulating code text until the statement is terminated by ';', an
// opening '{' at paren depth zero (circuit/witness/constructor bodies), or
// for enums the closing '}'. Returns the joined text and how many lines it
// consumed.
func joinStatement(lines []scanner.Line, start int) (string, int) {
	var sb strings.Builder
	isEnum := strings.Contains(lines[start].Code(), "enum")

	parenDepth := 0
	for j := start; j < len(lines) && j < start+maxJoinLines; j++ {
		if j > start {
			sb.WriteByte(' ')
		}
		code := lines[j].Code()
		sb.WriteString(code)

		for _, c := range code {
			switch c {
			case '(':
				parenDepth++
			case ')':
				parenDepth--
			case ';':
				if parenDepth <= 0 {
					return sb.String(), j - start + 1
				}
			case '{':
				if parenDepth <= 0 && !isEnum {
					return sb.String(), j - start + 1
				}
			case '}':
				if isEnum {
					return sb.String(), j - start + 1
				}
			}
		}
	}

	return sb.String(), 1
}

// splitParams parses a comma-separated "name: Type" list, tracking bracket
// depth so generic and tuple types do not break the split.
func splitParams(s string) []Param {
	params := []Param{}
	for _, part := range splitTopLevel(s) {
		name, typ, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		params = append(params, Param{
			Name: strings.TrimSpace(name),
			Type: strings.TrimSpace(typ),
		})
	}
	return params
}

// splitVariants parses an enum's comma-separated identifier list.
func splitVariants(s string) []string {
	variants := []string{}
	for _, part := range splitTopLevel(s) {
		if part != "" {
			variants = append(variants, part)
		}
	}
	return variants
}

// splitTopLevel splits on commas at bracket depth zero, trimming each piece
// and dropping empties.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0

	flush := func(end int) {
		piece := strings.TrimSpace(s[start:end])
		if piece != "" {
			parts = append(parts, piece)
		}
	}

	for i, c := range s {
		switch c {
		case '<', '(', '[', '{':
			depth++
		case '>', ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(s))

	return parts
}
