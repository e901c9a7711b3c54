package domain

import (
	"math"
	"sort"
	"time"

	"github.com/skypies/geo"
)

// Attribute columns published by the SIGEL aerogeradores layer.
const (
	ColName        = "NOME_EOL"
	ColDesignation = "DEN_AEG"
	ColState       = "UF"
	ColOperation   = "OPERACAO"
	ColPower       = "POT_MW"
	ColUpdatedAt   = "DATA_ATUALIZACAO"
	ColVersionID   = "EOL_VERSAO_ID"
	ColOwner       = "PROPRIETARIO"
	ColCEG         = "CEG"
	ColOrigin      = "ORIGEM"
)

// Columns produced by this job rather than the registry.
const (
	ColGeometry           = "geometry"
	ColLongitude          = "longitude"
	ColLatitude           = "latitude"
	ColUpdatedAtFormatted = "DATA_ATUALIZACAO_FORMATADA"
)

// knownColumns fixes the output order of the documented attributes. Any other
// attribute returned by the service follows them alphabetically.
var knownColumns = []string{
	ColName, ColDesignation, ColState, ColOperation, ColPower,
	ColUpdatedAt, ColVersionID, ColOwner, ColCEG, ColOrigin,
}

// derivedColumns are appended by Derive, after the geometry column.
var derivedColumns = []string{ColLongitude, ColLatitude, ColUpdatedAtFormatted}

// ObjectID is the SIGEL OBJECTID of a feature.
type ObjectID int64

// Turbine is one aerogerador row. Attribute values are JSON scalars as decoded
// from the service (string, float64, bool) and nil for null.
type Turbine struct {
	// Index is the row position in the concatenated table. It is kept through
	// corrections, so dropped rows leave gaps.
	Index      int
	Attributes map[string]any
	// Fields is the attribute order sent by the service, when known.
	Fields []string
	// Position is nil when the feature carried no point geometry.
	Position *geo.Latlong
}

// BrazilBounds encloses mainland Brazil and its Atlantic islands.
var BrazilBounds = geo.LatlongBox{
	SW: geo.Latlong{Lat: -33.8, Long: -74.0},
	NE: geo.Latlong{Lat: 5.3, Long: -28.8},
}

// InBrazil reports whether the turbine has a position inside BrazilBounds.
func (t Turbine) InBrazil() bool {
	return t.Position != nil && BrazilBounds.Contains(*t.Position)
}

// Value returns the attribute or derived value stored under col.
func (t Turbine) Value(col string) any {
	return t.Attributes[col]
}

// String returns the text form of col and whether it is non-null.
func (t Turbine) String(col string) (string, bool) {
	v := t.Attributes[col]
	if v == nil {
		return "", false
	}
	return FormatValue(v), true
}

func (t Turbine) clone() Turbine {
	attrs := make(map[string]any, len(t.Attributes))
	for k, v := range t.Attributes {
		attrs[k] = v
	}
	t.Attributes = attrs
	if t.Position != nil {
		p := *t.Position
		t.Position = &p
	}
	return t
}

// Table is the in-memory turbine inventory.
type Table struct {
	// Columns lists every output column after the row index, in order.
	Columns []string
	Rows    []Turbine
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Concat joins batches into one table, preserving batch order and the order
// within each batch, and numbers the rows from 0.
func Concat(batches ...[]Turbine) Table {
	n := 0
	for _, b := range batches {
		n += len(b)
	}

	rows := make([]Turbine, 0, n)
	for _, b := range batches {
		for _, r := range b {
			r.Index = len(rows)
			rows = append(rows, r)
		}
	}

	return Table{Columns: attributeColumns(rows), Rows: rows}
}

// attributeColumns lists the attribute keys seen in rows, then the geometry
// column. Keys keep the service's field order where rows carry one; any key
// without a known position follows, documented ones first in their fixed
// order and the rest sorted.
func attributeColumns(rows []Turbine) []string {
	seen := make(map[string]bool)
	for _, r := range rows {
		for k := range r.Attributes {
			seen[k] = true
		}
	}

	cols := make([]string, 0, len(seen)+1)
	for _, r := range rows {
		for _, k := range r.Fields {
			if seen[k] {
				cols = append(cols, k)
				delete(seen, k)
			}
		}
	}
	for _, k := range knownColumns {
		if seen[k] {
			cols = append(cols, k)
			delete(seen, k)
		}
	}
	extra := make([]string, 0, len(seen))
	for k := range seen {
		extra = append(extra, k)
	}
	sort.Strings(extra)

	cols = append(cols, extra...)
	return append(cols, ColGeometry)
}

// Derive adds longitude, latitude and DATA_ATUALIZACAO_FORMATADA to every row.
// DATA_ATUALIZACAO is read as epoch milliseconds and rendered in loc; the
// source value is not modified. Rows without a position or timestamp get nil.
func Derive(t Table, loc *time.Location) Table {
	out := Table{
		Columns: append(append([]string(nil), t.Columns...), derivedColumns...),
		Rows:    make([]Turbine, len(t.Rows)),
	}

	stamps := make([]*time.Time, len(t.Rows))
	layout := TimestampLayout
	for i, r := range t.Rows {
		stamps[i] = localTimestamp(r.Attributes[ColUpdatedAt], loc)
		if stamps[i] != nil && stamps[i].Nanosecond() != 0 {
			layout = TimestampLayoutFraction
		}
	}

	for i, r := range t.Rows {
		r = r.clone()
		r.Attributes[ColLongitude] = nil
		r.Attributes[ColLatitude] = nil
		if r.Position != nil {
			r.Attributes[ColLongitude] = r.Position.Long
			r.Attributes[ColLatitude] = r.Position.Lat
		}
		r.Attributes[ColUpdatedAtFormatted] = nil
		if stamps[i] != nil {
			r.Attributes[ColUpdatedAtFormatted] = stamps[i].Format(layout)
		}
		out.Rows[i] = r
	}

	return out
}

// localTimestamp converts an epoch-millisecond value into a time in loc.
// Returns nil for null or non-numeric input.
func localTimestamp(v any, loc *time.Location) *time.Time {
	ms, ok := toFloat(v)
	if !ok || math.IsNaN(ms) {
		return nil
	}
	ts := time.UnixMilli(int64(ms)).In(loc)
	return &ts
}
