package dashboard

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ettle/strcase"
)

var exportHeader = []string{"name", "value"}

// ExportCSV writes points as a flat table: a name,value header followed by
// one row per point. Cosmetic fields such as fill are left out.
func ExportCSV(w io.Writer, points []DataPoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("dashboard: write export header: %w", err)
	}
	for _, point := range points {
		if err := writer.Write([]string{point.Name, formatValue(point.Value)}); err != nil {
			return fmt.Errorf("dashboard: write export row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportFilename suggests a download name for a report export.
func ExportFilename(report Report) string {
	base := report.Title
	if base == "" {
		base = string(report.DataSource) + " " + string(report.Visualization)
	}
	name := strcase.ToKebab(base)
	if name == "" {
		name = "report"
	}
	return name + ".csv"
}
