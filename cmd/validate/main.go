// Command validate checks a CSV produced by the ETL run for the invariants the
// correction rules guarantee: excluded farms are gone, state fixes are in
// place, nominal power is in the plausible band, OPERACAO is normalized and no
// turbine appears twice. It also checks the derived columns and the row index.
//
// Usage:
//
//	go run ./cmd/validate -csv data.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/skypies/geo"

	"github.com/couchcryptid/wind-turbine-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxReported caps the detail lines printed per phase.
const maxReported = 20

func main() {
	csvPath := flag.String("csv", "data.csv", "path to the CSV written by the ETL")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*csvPath); code != 0 {
		os.Exit(code)
	}
}

func run(path string) int {
	fmt.Println("=== Wind Turbine CSV Validation ===")
	fmt.Println()

	header, rows, err := loadCSV(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load %s: %v\n", path, err)
		return 1
	}

	phases := []*phase{
		validateHeader(header),
		validateIndex(rows),
		validateCorrections(rows),
		validateDerived(rows),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d rows, %d columns\n", len(rows), len(header))
	printStats(rows)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxReported {
				fmt.Printf("  ... %d more\n", len(p.errors)-maxReported)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

func loadCSV(path string) ([]string, []csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("no header in %s", path)
	}

	header := all[0]
	rows := make([]csvRow, 0, len(all)-1)
	for i, rec := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(rec) {
				fields[h] = rec[j]
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return header, rows, nil
}

// ── Phase 1: Header ──

func validateHeader(header []string) *phase {
	p := &phase{name: "Phase 1: Header"}

	if len(header) == 0 || header[0] != "" {
		p.errorf("first column must be the unnamed row index, got %q", first(header))
	}

	present := make(map[string]int, len(header))
	for _, h := range header {
		present[h]++
	}
	for h, n := range present {
		if n > 1 {
			p.errorf("column %q appears %d times", h, n)
		}
	}

	required := []string{
		domain.ColName, domain.ColDesignation, domain.ColState, domain.ColOperation, domain.ColPower,
		domain.ColGeometry, domain.ColLongitude, domain.ColLatitude, domain.ColUpdatedAtFormatted,
	}
	for _, c := range required {
		if present[c] == 0 {
			p.errorf("missing column %q", c)
		}
	}

	tail := []string{domain.ColLongitude, domain.ColLatitude, domain.ColUpdatedAtFormatted}
	if len(header) >= len(tail) {
		got := header[len(header)-len(tail):]
		if strings.Join(got, ",") != strings.Join(tail, ",") {
			p.errorf("derived columns must come last in order %v, got %v", tail, got)
		}
	}
	return p
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// ── Phase 2: Row index ──
// Indices are positions in the fetched table, so dropped rows leave gaps but
// the sequence never goes backwards.

func validateIndex(rows []csvRow) *phase {
	p := &phase{name: "Phase 2: Row Index"}

	prev := -1
	for _, r := range rows {
		idx, err := strconv.Atoi(r.fields[""])
		if err != nil {
			p.errorf("line %d: index %q is not an integer", r.lineNum, r.fields[""])
			continue
		}
		if idx <= prev {
			p.errorf("line %d: index %d does not increase (previous %d)", r.lineNum, idx, prev)
		}
		prev = idx
	}
	return p
}

// ── Phase 3: Corrections ──

func validateCorrections(rows []csvRow) *phase {
	p := &phase{name: "Phase 3: Corrections"}

	fixedStates := map[string]string{
		"Asa Branca III": "RN",
		"Barra XI":       "MG",
	}
	seen := make(map[string]int, len(rows))

	for _, r := range rows {
		name := r.fields[domain.ColName]

		if name == "Serra de Gentio do Ouro XXIII" {
			p.errorf("line %d: excluded farm %q present", r.lineNum, name)
		}
		if want, ok := fixedStates[name]; ok && r.fields[domain.ColState] != want {
			p.errorf("line %d: %s has UF=%q, want %q", r.lineNum, name, r.fields[domain.ColState], want)
		}

		if v := r.fields[domain.ColPower]; v != "" {
			power, err := strconv.ParseFloat(v, 64)
			switch {
			case err != nil:
				// Non-numeric values are passed through untouched.
			case power > domain.MaxNominalPowerMW || power < domain.MinNominalPowerMW:
				p.errorf("line %d: %s POT_MW=%s outside [%g, %g]", r.lineNum, name, v, domain.MinNominalPowerMW, domain.MaxNominalPowerMW)
			}
		}

		switch op := r.fields[domain.ColOperation]; op {
		case "":
			p.errorf("line %d: %s has empty OPERACAO", r.lineNum, name)
		case "1":
			p.errorf("line %d: %s has legacy OPERACAO=1", r.lineNum, name)
		}

		key := strings.Join([]string{
			name, r.fields[domain.ColDesignation], r.fields[domain.ColLatitude], r.fields[domain.ColLongitude],
		}, "|")
		if line, dup := seen[key]; dup {
			p.errorf("line %d: duplicate of line %d (%s)", r.lineNum, line, key)
			continue
		}
		seen[key] = r.lineNum
	}
	return p
}

// ── Phase 4: Derived columns ──

func validateDerived(rows []csvRow) *phase {
	p := &phase{name: "Phase 4: Derived Columns"}

	for _, r := range rows {
		lon, lat := r.fields[domain.ColLongitude], r.fields[domain.ColLatitude]
		if (lon == "") != (lat == "") {
			p.errorf("line %d: longitude=%q latitude=%q must both be set or both empty", r.lineNum, lon, lat)
		}
		if lon != "" {
			checkPosition(p, r.lineNum, lon, lat)
			want := fmt.Sprintf("POINT (%s %s)", lon, lat)
			if g := r.fields[domain.ColGeometry]; g != want {
				p.errorf("line %d: geometry %q does not match %q", r.lineNum, g, want)
			}
		}

		raw, formatted := r.fields[domain.ColUpdatedAt], r.fields[domain.ColUpdatedAtFormatted]
		if (raw == "") != (formatted == "") {
			p.errorf("line %d: DATA_ATUALIZACAO=%q but formatted=%q", r.lineNum, raw, formatted)
			continue
		}
		if formatted == "" {
			continue
		}
		// Parse accepts the optional fractional seconds without a layout change.
		ts, err := time.Parse(domain.TimestampLayout, formatted)
		if err != nil {
			p.errorf("line %d: formatted timestamp %q: %v", r.lineNum, formatted, err)
			continue
		}
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ts.UnixMilli() != ms {
			p.errorf("line %d: formatted timestamp %q is not %s ms", r.lineNum, formatted, raw)
		}
	}
	return p
}

// checkPosition requires numeric coordinates inside domain.BrazilBounds.
func checkPosition(p *phase, line int, lon, lat string) {
	x, errX := strconv.ParseFloat(lon, 64)
	y, errY := strconv.ParseFloat(lat, 64)
	if errX != nil || errY != nil {
		p.errorf("line %d: position (%q, %q) is not numeric", line, lon, lat)
		return
	}
	if !domain.BrazilBounds.Contains(geo.Latlong{Lat: y, Long: x}) {
		p.errorf("line %d: position (%g, %g) outside Brazil", line, x, y)
	}
}

// ── Stats ──

func printStats(rows []csvRow) {
	byState := map[string]int{}
	byOperation := map[string]int{}
	var totalMW float64
	for _, r := range rows {
		byState[r.fields[domain.ColState]]++
		byOperation[r.fields[domain.ColOperation]]++
		if f, err := strconv.ParseFloat(r.fields[domain.ColPower], 64); err == nil {
			totalMW += f
		}
	}

	fmt.Printf("Installed nominal power: %.1f MW\n", totalMW)
	fmt.Println("By UF:")
	for _, k := range sortedKeys(byState) {
		fmt.Printf("  %-4s %d\n", k, byState[k])
	}
	fmt.Println("By OPERACAO:")
	for _, k := range sortedKeys(byOperation) {
		fmt.Printf("  %-16s %d\n", k, byOperation[k])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
