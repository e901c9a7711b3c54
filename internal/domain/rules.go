package domain

import (
	"math"
	"strings"
)

// Bounds of a plausible single-turbine nominal power, in MW.
const (
	MaxNominalPowerMW = 100.0
	MinNominalPowerMW = 0.05
)

// OPERACAO labels written by the normalization rule.
const (
	OperationYes    = "Sim"
	OperationNoInfo = "Sem informação"
)

// Rule is one named, hand-curated repair of the registry data. Apply must not
// modify its input and returns the corrected table with the number of rows it
// dropped or changed.
type Rule struct {
	Name   string
	Reason string
	Apply  func(Table) (Table, int)
}

// DefaultRules returns the SIGEL corrections in the order they must run.
// See the package documentation for the defects behind each rule.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "exclude-serra-de-gentio-do-ouro-xxiii",
			Reason: "duplicate of Serra do Gentio do Ouro XXIII with inconsistent values",
			Apply:  ExcludeName("Serra de Gentio do Ouro XXIII"),
		},
		{
			Name:   "asa-branca-iii-uf",
			Reason: "UF missing; other Asa Branca farms are in RN",
			Apply:  SetWhereName("Asa Branca III", ColState, "RN"),
		},
		{
			Name:   "barra-xi-uf",
			Reason: "registered in RN but turbines are located in MG",
			Apply:  SetWhereName("Barra XI", ColState, "MG"),
		},
		{
			Name:   "nominal-power-magnitude",
			Reason: "POT_MW recorded with a factor of 1000 error",
			Apply:  MapColumn(ColPower, correctPowerValue),
		},
		{
			Name:   "operacao-normalization",
			Reason: `legacy "1" flag and null operation status`,
			Apply:  MapColumn(ColOperation, NormalizeOperation),
		},
		{
			Name:   "dedupe-name-designation-position",
			Reason: "same turbine registered more than once",
			Apply:  DedupeBy(ColName, ColDesignation, ColLatitude, ColLongitude),
		},
	}
}

// Correct applies rules in order. observe, when non-nil, is called after each
// rule with the number of rows it affected.
func Correct(t Table, rules []Rule, observe func(r Rule, affected int)) Table {
	for _, r := range rules {
		var n int
		t, n = r.Apply(t)
		if observe != nil {
			observe(r, n)
		}
	}
	return t
}

// ExcludeName drops every row whose NOME_EOL equals name exactly.
func ExcludeName(name string) func(Table) (Table, int) {
	return func(t Table) (Table, int) {
		rows := make([]Turbine, 0, len(t.Rows))
		for _, r := range t.Rows {
			if v, ok := r.String(ColName); ok && v == name {
				continue
			}
			rows = append(rows, r)
		}
		return Table{Columns: t.Columns, Rows: rows}, len(t.Rows) - len(rows)
	}
}

// SetWhereName sets column to value on every row whose NOME_EOL equals name,
// whatever the previous value, null included.
func SetWhereName(name, column string, value any) func(Table) (Table, int) {
	return func(t Table) (Table, int) {
		rows := make([]Turbine, len(t.Rows))
		n := 0
		for i, r := range t.Rows {
			if v, ok := r.String(ColName); ok && v == name {
				r = r.clone()
				r.Attributes[column] = value
				n++
			}
			rows[i] = r
		}
		return Table{Columns: withColumn(t.Columns, column), Rows: rows}, n
	}
}

// MapColumn replaces column with fn(value) on every row. The count is the
// number of rows whose value changed.
func MapColumn(column string, fn func(any) any) func(Table) (Table, int) {
	return func(t Table) (Table, int) {
		rows := make([]Turbine, len(t.Rows))
		n := 0
		for i, r := range t.Rows {
			old := r.Attributes[column]
			v := fn(old)
			if !sameValue(old, v) {
				r = r.clone()
				r.Attributes[column] = v
				n++
			}
			rows[i] = r
		}
		return Table{Columns: withColumn(t.Columns, column), Rows: rows}, n
	}
}

// DedupeBy keeps the first row of every group sharing the same values in
// columns. Nulls compare equal to each other.
func DedupeBy(columns ...string) func(Table) (Table, int) {
	return func(t Table) (Table, int) {
		seen := make(map[string]struct{}, len(t.Rows))
		rows := make([]Turbine, 0, len(t.Rows))
		for _, r := range t.Rows {
			k := dedupeKey(r, columns)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			rows = append(rows, r)
		}
		return Table{Columns: t.Columns, Rows: rows}, len(t.Rows) - len(rows)
	}
}

func dedupeKey(r Turbine, columns []string) string {
	var b strings.Builder
	for i, c := range columns {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		v, ok := r.String(c)
		if !ok {
			b.WriteByte(0x00)
			continue
		}
		b.WriteString(v)
	}
	return b.String()
}

// CorrectNominalPower brings a POT_MW value recorded with a factor of 1000
// error back into the plausible band: above 100 MW it is divided by 1000,
// below 0.05 MW multiplied by 1000. Values in the band are returned unchanged.
func CorrectNominalPower(power float64) float64 {
	switch {
	case power > MaxNominalPowerMW:
		return power / 1000
	case power < MinNominalPowerMW:
		return power * 1000
	default:
		return power
	}
}

// correctPowerValue applies CorrectNominalPower to numeric values and leaves
// null or non-numeric ones untouched.
func correctPowerValue(v any) any {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return v
	}
	return CorrectNominalPower(f)
}

// NormalizeOperation maps the OPERACAO flag: "1" becomes "Sim", null becomes
// "Sem informação", anything else is kept.
func NormalizeOperation(v any) any {
	if v == nil {
		return OperationNoInfo
	}
	if FormatValue(v) == "1" {
		return OperationYes
	}
	return v
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return FormatValue(a) == FormatValue(b) && sameKind(a, b)
}

func sameKind(a, b any) bool {
	_, as := a.(string)
	_, bs := b.(string)
	return as == bs
}

// withColumn returns cols with column inserted before the geometry column when
// it is not already present.
func withColumn(cols []string, column string) []string {
	for _, c := range cols {
		if c == column {
			return cols
		}
	}
	out := make([]string, 0, len(cols)+1)
	inserted := false
	for _, c := range cols {
		if c == ColGeometry && !inserted {
			out = append(out, column)
			inserted = true
		}
		out = append(out, c)
	}
	if !inserted {
		out = append(out, column)
	}
	return out
}
