package arcgistest

import (
	"fmt"

	geojson "github.com/paulmach/go.geojson"
)

// BaseUpdatedAt is DATA_ATUALIZACAO of generated features: 2025-08-26 14:03:11 UTC.
const BaseUpdatedAt = int64(1756216991000)

// Feature builds a SIGEL-shaped point feature. props override the defaults.
func Feature(id int64, lon, lat float64, props map[string]any) *geojson.Feature {
	f := geojson.NewPointFeature([]float64{lon, lat})
	f.ID = id
	f.SetProperty("OBJECTID", id)
	f.SetProperty("NOME_EOL", fmt.Sprintf("EOL %d", id/20))
	f.SetProperty("DEN_AEG", fmt.Sprintf("AEG-%02d", id%20))
	f.SetProperty("UF", "RN")
	f.SetProperty("OPERACAO", "Sim")
	f.SetProperty("POT_MW", 4.2)
	f.SetProperty("DATA_ATUALIZACAO", BaseUpdatedAt)
	f.SetProperty("EOL_VERSAO_ID", 1000+id/20)
	f.SetProperty("PROPRIETARIO", "Energia Eólica S.A.")
	f.SetProperty("CEG", fmt.Sprintf("EOL.CV.RN.%06d-0.01", id/20))
	f.SetProperty("ORIGEM", nil)
	f.SetProperty("ALT_TORRE", 120.0)
	for k, v := range props {
		f.SetProperty(k, v)
	}
	return f
}

// Generate returns n plain features with ids 1..n spread over the RN coast.
func Generate(n int) map[int64]*geojson.Feature {
	out := make(map[int64]*geojson.Feature, n)
	for i := 1; i <= n; i++ {
		id := int64(i)
		out[id] = Feature(id, -35.5+float64(i)*0.0001, -5.2-float64(i)*0.0001, nil)
	}
	return out
}

// Defects returns features reproducing every registry defect the correction
// rules repair, with ids starting at first. The comment on each entry gives
// the expected outcome.
func Defects(first int64) map[int64]*geojson.Feature {
	specs := []struct {
		lon, lat float64
		props    map[string]any
	}{
		// dropped
		{-42.3, -11.1, map[string]any{"NOME_EOL": "Serra de Gentio do Ouro XXIII", "DEN_AEG": "AEG-01", "UF": "BA", "ALT_TORRE": nil}},
		// kept
		{-42.3, -11.1, map[string]any{"NOME_EOL": "Serra do Gentio do Ouro XXIII", "DEN_AEG": "AEG-01", "UF": "BA"}},
		// UF -> RN, POT_MW 6750 -> 6.75, OPERACAO null -> "Sem informação"
		{-36.1, -5.1, map[string]any{"NOME_EOL": "Asa Branca III", "DEN_AEG": "AEG-01", "UF": nil, "CEG": nil, "PROPRIETARIO": nil, "EOL_VERSAO_ID": nil, "POT_MW": 6750.0, "OPERACAO": nil}},
		// UF -> RN, POT_MW 3032 -> 3.032
		{-36.1, -5.2, map[string]any{"NOME_EOL": "Asa Branca III", "DEN_AEG": "AEG-02", "UF": nil, "POT_MW": 3032.0}},
		// UF RN -> MG
		{-43.9, -16.7, map[string]any{"NOME_EOL": "Barra XI", "DEN_AEG": "AEG-01", "UF": "RN"}},
		// POT_MW 4200 -> 4.2
		{-37.1, -9.4, map[string]any{"NOME_EOL": "São Manoel", "DEN_AEG": "AEG-01", "UF": "PE", "POT_MW": 4200.0}},
		// POT_MW 0.0042 -> 4.2, OPERACAO "1" -> "Sim"
		{-40.6, -7.5, map[string]any{"NOME_EOL": "Ventos de Santa Inês", "DEN_AEG": "AEG-01", "UF": "PI", "POT_MW": 0.0042, "OPERACAO": "1"}},
		// POT_MW 0.006 -> 6
		{-43.0, -16.8, map[string]any{"NOME_EOL": "Juramento", "DEN_AEG": "AEG-01", "UF": "MG", "POT_MW": 0.006}},
		// POT_MW 0.0062 -> 6.2, OPERACAO "Não" kept
		{-36.5, -5.6, map[string]any{"NOME_EOL": "Serra da Gameleira", "DEN_AEG": "AEG-01", "UF": "RN", "POT_MW": 0.0062, "OPERACAO": "Não"}},
		// duplicate of the Juramento row above: dropped
		{-43.0, -16.8, map[string]any{"NOME_EOL": "Juramento", "DEN_AEG": "AEG-01", "UF": "MG", "POT_MW": 6.0, "CEG": "duplicate"}},
	}

	out := make(map[int64]*geojson.Feature, len(specs))
	for i, s := range specs {
		id := first + int64(i)
		out[id] = Feature(id, s.lon, s.lat, s.props)
	}
	return out
}

// Merge combines feature sets; later sets win on id collisions.
func Merge(sets ...map[int64]*geojson.Feature) map[int64]*geojson.Feature {
	out := make(map[int64]*geojson.Feature)
	for _, s := range sets {
		for id, f := range s {
			out[id] = f
		}
	}
	return out
}
