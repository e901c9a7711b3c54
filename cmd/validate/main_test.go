package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func row(line int, fields map[string]string) csvRow {
	return csvRow{lineNum: line, fields: fields}
}

func validTurbine(line int, overrides map[string]string) csvRow {
	fields := map[string]string{
		"":                           "0",
		"NOME_EOL":                   "Juramento",
		"DEN_AEG":                    "AEG-01",
		"UF":                         "MG",
		"OPERACAO":                   "Sim",
		"POT_MW":                     "6",
		"DATA_ATUALIZACAO":           "1756216991123",
		"geometry":                   "POINT (-43 -16.8)",
		"longitude":                  "-43",
		"latitude":                   "-16.8",
		"DATA_ATUALIZACAO_FORMATADA": "2025-08-26 11:03:11.123000-03:00",
	}
	for k, v := range overrides {
		fields[k] = v
	}
	return row(line, fields)
}

func TestValidateCorrections_PowerBand(t *testing.T) {
	tests := []struct {
		power string
		ok    bool
	}{
		{"6", true},
		{"0.05", true},
		{"100", true},
		{"", true},
		{"n/a", true},
		{"0", false},
		{"-2", false},
		{"0.0042", false},
		{"4200", false},
	}

	for _, tt := range tests {
		t.Run(tt.power, func(t *testing.T) {
			p := validateCorrections([]csvRow{validTurbine(2, map[string]string{"POT_MW": tt.power})})
			assert.Equal(t, tt.ok, p.passed(), p.errors)
		})
	}
}

func TestValidateCorrections_Duplicates(t *testing.T) {
	p := validateCorrections([]csvRow{validTurbine(2, nil), validTurbine(3, nil)})
	assert.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "duplicate of line 2")
}

func TestValidateDerived(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		ok        bool
	}{
		{"valid with milliseconds", nil, true},
		{"valid whole seconds", map[string]string{
			"DATA_ATUALIZACAO":           "1756216991000",
			"DATA_ATUALIZACAO_FORMATADA": "2025-08-26 11:03:11-03:00",
		}, true},
		{"milliseconds dropped", map[string]string{
			"DATA_ATUALIZACAO_FORMATADA": "2025-08-26 11:03:11-03:00",
		}, false},
		{"outside Brazil", map[string]string{
			"geometry": "POINT (-16.8 -43)", "longitude": "-16.8", "latitude": "-43",
		}, false},
		{"geometry mismatch", map[string]string{"geometry": "POINT (0 0)"}, false},
		{"half a position", map[string]string{"latitude": ""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validateDerived([]csvRow{validTurbine(2, tt.overrides)})
			assert.Equal(t, tt.ok, p.passed(), p.errors)
		})
	}
}
