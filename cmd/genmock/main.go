// Command genmock generates SIGEL-shaped mock fixtures: the objectIds response,
// a GeoJSON FeatureCollection seeded with every known registry defect, and the
// CSV the ETL produces from them. The CSV is produced by running the real
// client, correction rules and writer against an in-process fake layer, so it
// always matches pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -count 1490 \
//	  -ids-out data/mock/object_ids.json \
//	  -geojson-out data/mock/aerogeradores.geojson \
//	  -csv-out data/mock/aerogeradores.csv
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"
	_ "time/tzdata"

	"github.com/jonboulle/clockwork"
	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/wind-turbine-etl/internal/adapter/arcgis"
	"github.com/couchcryptid/wind-turbine-etl/internal/adapter/arcgis/arcgistest"
	"github.com/couchcryptid/wind-turbine-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/wind-turbine-etl/internal/config"
	"github.com/couchcryptid/wind-turbine-etl/internal/domain"
	"github.com/couchcryptid/wind-turbine-etl/internal/observability"
	"github.com/couchcryptid/wind-turbine-etl/internal/pipeline"
)

// generatedAt fixes the run clock so regenerated fixtures are byte-stable.
var generatedAt = time.Date(2025, time.August, 27, 6, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	count := flag.Int("count", 1490, "number of plain features before the defect features")
	idsOut := flag.String("ids-out", "", "output path for the objectIds JSON fixture")
	geoOut := flag.String("geojson-out", "", "output path for the GeoJSON FeatureCollection fixture")
	csvOut := flag.String("csv-out", "", "output path for the expected ETL CSV")
	tz := flag.String("tz", "America/Sao_Paulo", "IANA zone for DATA_ATUALIZACAO_FORMATADA")
	flag.Parse()

	if *idsOut == "" || *geoOut == "" || *csvOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -ids-out, -geojson-out, -csv-out")
	}
	if *count < 0 {
		return fmt.Errorf("-count must not be negative, got %d", *count)
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", *tz, err)
	}

	features := arcgistest.Merge(arcgistest.Generate(*count), arcgistest.Defects(int64(*count)+1))
	ids := make([]int64, 0, len(features))
	for id := range features {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	log.Printf("features: %d (%d plain, %d defects)", len(ids), *count, len(ids)-*count)

	if err := writeJSON(*idsOut, map[string]any{"objectIdFieldName": "OBJECTID", "objectIds": ids}); err != nil {
		return fmt.Errorf("writing ids fixture: %w", err)
	}
	log.Printf("wrote ids fixture: %s", *idsOut)

	fc := geojson.NewFeatureCollection()
	for _, id := range ids {
		fc.AddFeature(features[id])
	}
	if err := writeJSON(*geoOut, fc); err != nil {
		return fmt.Errorf("writing GeoJSON fixture: %w", err)
	}
	log.Printf("wrote GeoJSON fixture: %s", *geoOut)

	sum, err := runPipeline(features, loc, *csvOut)
	if err != nil {
		return fmt.Errorf("writing CSV fixture: %w", err)
	}
	log.Printf("wrote CSV fixture: %s", *csvOut)

	printStats(sum)
	return nil
}

// runPipeline serves features from an in-process fake layer and runs the ETL
// against it, writing the result to out.
func runPipeline(features map[int64]*geojson.Feature, loc *time.Location, out string) (pipeline.Summary, error) {
	fake := arcgistest.NewServer(features)
	defer fake.Close()

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return pipeline.Summary{}, err
	}

	pipeline.SetClock(clockwork.NewFakeClockAt(generatedAt))
	defer pipeline.SetClock(nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := arcgis.NewClient(fake.QueryURL(), 30*time.Second, logger)
	writer := csvfile.NewWriter(out, logger)
	p := pipeline.New(client, writer, domain.DefaultRules(), pipeline.Settings{
		BatchSize: config.MaxBatchSize,
		Location:  loc,
	}, logger, observability.NewMetricsForTesting())

	return p.Run(context.Background())
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(sum pipeline.Summary) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Object ids: %d\n", sum.ObjectIDs)
	fmt.Printf("Batches:    %d\n", sum.Batches)
	fmt.Printf("Fetched:    %d\n", sum.Fetched)
	fmt.Printf("Written:    %d\n", sum.Written)
	fmt.Println("Corrections:")
	for _, r := range domain.DefaultRules() {
		fmt.Printf("  %-40s %d\n", r.Name, sum.Corrections[r.Name])
	}
}
