package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/wind-turbine-etl/internal/domain"
)

// ctxCheckEvery is how many rows are written between context checks.
const ctxCheckEvery = 1000

// outputMode is applied to the temp file before the rename; CreateTemp
// opens it owner-only.
const outputMode = 0o644

// Writer stores a turbine table as a comma-separated file.
// It implements pipeline.TableWriter.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter creates a writer targeting path.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// Path returns the destination file.
func (w *Writer) Path() string { return w.path }

// Write stores t at the destination path. The file is written next to the
// destination and renamed into place, so a failed or cancelled write leaves
// any previous file untouched and no partial output behind.
func (w *Writer) Write(ctx context.Context, t domain.Table) (err error) {
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := Encode(ctx, tmp, t); err != nil {
		return err
	}
	if err := tmp.Chmod(outputMode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("rename to %s: %w", w.path, err)
	}

	w.logger.Debug("csv written", "path", w.path, "rows", t.Len())
	return nil
}

// Encode writes t as CSV to out: a header whose first cell is empty (the row
// index column) followed by one line per row.
func Encode(ctx context.Context, out io.Writer, t domain.Table) error {
	cw := csv.NewWriter(out)

	header := make([]string, 0, len(t.Columns)+1)
	header = append(header, "")
	header = append(header, t.Columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(header))
	for i, r := range t.Rows {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		record[0] = strconv.Itoa(r.Index)
		for j, col := range t.Columns {
			record[j+1] = cell(r, col)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", r.Index, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func cell(r domain.Turbine, col string) string {
	if col == domain.ColGeometry {
		return wkt(r)
	}
	return domain.FormatValue(r.Value(col))
}

// wkt renders the position as a WKT point, "POINT (lon lat)".
func wkt(r domain.Turbine) string {
	if r.Position == nil {
		return ""
	}
	return "POINT (" + domain.FormatValue(r.Position.Long) + " " + domain.FormatValue(r.Position.Lat) + ")"
}
