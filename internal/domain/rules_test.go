package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/skypies/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSerraMisspelled = "Serra de Gentio do Ouro XXIII"
	testSerraCorrect    = "Serra do Gentio do Ouro XXIII"
	testAsaBranca       = "Asa Branca III"
	testBarraXI         = "Barra XI"
)

func turbine(name string, attrs map[string]any) Turbine {
	a := map[string]any{ColName: name}
	for k, v := range attrs {
		a[k] = v
	}
	return Turbine{Attributes: a, Position: &geo.Latlong{Lat: -5.5, Long: -35.2}}
}

func names(t Table) []string {
	out := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		v, _ := r.String(ColName)
		out = append(out, v)
	}
	return out
}

func TestCorrectNominalPower(t *testing.T) {
	tests := []struct {
		name     string
		power    float64
		expected float64
	}{
		{"Sao Manoel kW", 4200, 4.2},
		{"Asa Branca III 6750", 6750, 6.75},
		{"Asa Branca III 3032", 3032, 3.032},
		{"Ventos de Santa Ines", 0.0042, 4.2},
		{"Juramento", 0.006, 6},
		{"Serra da Gameleira", 0.0062, 6.2},
		{"lower bound", 0.05, 0.05},
		{"upper bound", 100, 100},
		{"in band", 2.1, 2.1},
		{"just above band", 100.5, 0.1005},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CorrectNominalPower(tt.power), 1e-9)
		})
	}
}

func TestCorrectNominalPower_StableAfterOneStep(t *testing.T) {
	for _, p := range []float64{4200, 0.0042, 6750, 3032, 0.006, 0.0062, 1.5, 0.05, 100} {
		once := CorrectNominalPower(p)
		assert.Equal(t, once, CorrectNominalPower(once), "power %v", p)
		assert.GreaterOrEqual(t, once, MinNominalPowerMW)
		assert.LessOrEqual(t, once, MaxNominalPowerMW)
	}
}

func TestExcludeName(t *testing.T) {
	table := Concat([]Turbine{
		turbine(testSerraMisspelled, nil),
		turbine(testSerraCorrect, nil),
		turbine(testSerraMisspelled, nil),
		turbine("Other", nil),
	})

	out, n := ExcludeName(testSerraMisspelled)(table)

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{testSerraCorrect, "Other"}, names(out))
	assert.Equal(t, []int{1, 3}, []int{out.Rows[0].Index, out.Rows[1].Index})
	assert.Len(t, table.Rows, 4, "input must not be modified")
}

func TestSetWhereName(t *testing.T) {
	table := Concat([]Turbine{
		turbine(testAsaBranca, map[string]any{ColState: nil}),
		turbine(testAsaBranca, map[string]any{ColState: "CE"}),
		turbine("Asa Branca II", map[string]any{ColState: "PE"}),
	})

	out, n := SetWhereName(testAsaBranca, ColState, "RN")(table)

	assert.Equal(t, 2, n)
	assert.Equal(t, "RN", out.Rows[0].Value(ColState))
	assert.Equal(t, "RN", out.Rows[1].Value(ColState))
	assert.Equal(t, "PE", out.Rows[2].Value(ColState))
	assert.Nil(t, table.Rows[0].Value(ColState), "input must not be modified")
}

func TestSetWhereName_AddsMissingColumn(t *testing.T) {
	table := Concat([]Turbine{turbine(testBarraXI, nil)})
	require.NotContains(t, table.Columns, ColState)

	out, n := SetWhereName(testBarraXI, ColState, "MG")(table)

	assert.Equal(t, 1, n)
	assert.Equal(t, []string{ColName, ColState, ColGeometry}, out.Columns)
}

func TestNormalizeOperation(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		expected any
	}{
		{"legacy flag", "1", OperationYes},
		{"numeric flag", float64(1), OperationYes},
		{"null", nil, OperationNoInfo},
		{"zero kept", "0", "0"},
		{"Sim kept", "Sim", "Sim"},
		{"Nao kept", "Não", "Não"},
		{"empty string kept", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeOperation(tt.in))
		})
	}
}

func TestMapColumn_PowerLeavesNullAlone(t *testing.T) {
	table := Concat([]Turbine{
		turbine("a", map[string]any{ColPower: float64(4200)}),
		turbine("b", map[string]any{ColPower: nil}),
		turbine("c", map[string]any{ColPower: 2.5}),
	})

	out, n := MapColumn(ColPower, correctPowerValue)(table)

	assert.Equal(t, 1, n)
	assert.InDelta(t, 4.2, out.Rows[0].Value(ColPower), 1e-9)
	assert.Nil(t, out.Rows[1].Value(ColPower))
	assert.Equal(t, 2.5, out.Rows[2].Value(ColPower))
}

func TestDedupeBy(t *testing.T) {
	first := turbine("Juramento", map[string]any{ColDesignation: "AEG-01", ColState: "MG", ColLatitude: -16.1, ColLongitude: -43.2})
	second := turbine("Juramento", map[string]any{ColDesignation: "AEG-01", ColState: "BA", ColLatitude: -16.1, ColLongitude: -43.2})
	other := turbine("Juramento", map[string]any{ColDesignation: "AEG-02", ColState: "MG", ColLatitude: -16.1, ColLongitude: -43.2})
	nullA := turbine("X", map[string]any{ColDesignation: nil, ColLatitude: nil, ColLongitude: nil})
	nullB := turbine("X", map[string]any{ColDesignation: nil, ColLatitude: nil, ColLongitude: nil})

	table := Concat([]Turbine{first, second, other, nullA, nullB})
	out, n := DedupeBy(ColName, ColDesignation, ColLatitude, ColLongitude)(table)

	assert.Equal(t, 2, n)
	require.Len(t, out.Rows, 3)
	assert.Equal(t, "MG", out.Rows[0].Value(ColState))
	assert.Equal(t, []int{0, 2, 3}, []int{out.Rows[0].Index, out.Rows[1].Index, out.Rows[2].Index})
}

func TestDedupeKey_DistinguishesNullFromEmpty(t *testing.T) {
	cols := []string{ColName, ColDesignation}
	a := turbine("X", map[string]any{ColDesignation: nil})
	b := turbine("X", map[string]any{ColDesignation: ""})
	assert.NotEqual(t, dedupeKey(a, cols), dedupeKey(b, cols))
}

func TestCorrect_DefaultRules(t *testing.T) {
	rows := []Turbine{
		turbine(testSerraMisspelled, map[string]any{ColOperation: "Sim", ColPower: 2.0}),
		turbine(testSerraCorrect, map[string]any{ColOperation: "Sim", ColPower: 2.0}),
		turbine(testAsaBranca, map[string]any{ColState: nil, ColOperation: nil, ColPower: float64(6750)}),
		turbine(testBarraXI, map[string]any{ColState: "RN", ColOperation: "1", ColPower: 0.0042}),
		turbine("São Manoel", map[string]any{ColState: "PE", ColOperation: "Não", ColPower: float64(4200)}),
	}
	table := Derive(Concat(rows), time.UTC)
	table.Rows = append(table.Rows, table.Rows[4].clone())
	table.Rows[5].Index = 5

	applied := map[string]int{}
	out := Correct(table, DefaultRules(), func(r Rule, n int) { applied[r.Name] = n })

	want := map[string]int{
		"exclude-serra-de-gentio-do-ouro-xxiii": 1,
		"asa-branca-iii-uf":                     1,
		"barra-xi-uf":                           1,
		"nominal-power-magnitude":               4,
		"operacao-normalization":                2,
		"dedupe-name-designation-position":      1,
	}
	if diff := cmp.Diff(want, applied); diff != "" {
		t.Fatalf("affected rows mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{testSerraCorrect, testAsaBranca, testBarraXI, "São Manoel"}, names(out))

	asa := out.Rows[1]
	assert.Equal(t, "RN", asa.Value(ColState))
	assert.Equal(t, OperationNoInfo, asa.Value(ColOperation))
	assert.InDelta(t, 6.75, asa.Value(ColPower), 1e-9)

	barra := out.Rows[2]
	assert.Equal(t, "MG", barra.Value(ColState))
	assert.Equal(t, OperationYes, barra.Value(ColOperation))
	assert.InDelta(t, 4.2, barra.Value(ColPower), 1e-9)

	manoel := out.Rows[3]
	assert.Equal(t, "Não", manoel.Value(ColOperation))
	assert.InDelta(t, 4.2, manoel.Value(ColPower), 1e-9)
	assert.Equal(t, 4, manoel.Index)
}

func TestDefaultRules_Order(t *testing.T) {
	var got []string
	for _, r := range DefaultRules() {
		require.NotNil(t, r.Apply, r.Name)
		assert.NotEmpty(t, r.Reason, r.Name)
		got = append(got, r.Name)
	}
	assert.Equal(t, []string{
		"exclude-serra-de-gentio-do-ouro-xxiii",
		"asa-branca-iii-uf",
		"barra-xi-uf",
		"nominal-power-magnitude",
		"operacao-normalization",
		"dedupe-name-designation-position",
	}, got)
}
