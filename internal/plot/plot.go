// Package plot writes the run as an .xlsx workbook with native Excel charts.
package plot

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/pipeline"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/table"
)

// Sheet names.
const (
	SheetData      = "Data"
	SheetKinetics  = "Kinetics"
	SheetArrhenius = "Arrhenius"
	SheetRun       = "Run"
)

// WorkbookPath returns <source without extension>_plot.xlsx.
func WorkbookPath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + "_plot.xlsx"
}

// Workbook writes the raw traces, the kinetics rows, an optional Arrhenius
// plot and run metadata to path.
func Workbook(path string, tab *table.Table, res *pipeline.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetData); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeData(f, tab); err != nil {
		return err
	}
	if err := writeKinetics(f, tab.Species, res); err != nil {
		return err
	}
	if res.Fit != nil {
		if err := writeArrhenius(f, res); err != nil {
			return err
		}
	}
	if err := writeRun(f, tab, res); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeData(f *excelize.File, tab *table.Table) error {
	header := []interface{}{"Index"}
	for _, s := range tab.Species {
		header = append(header, s)
	}
	if err := f.SetSheetRow(SheetData, "A1", &header); err != nil {
		return err
	}
	for i := 0; i < tab.Rows; i++ {
		row := make([]interface{}, 0, tab.Width()+1)
		row = append(row, i)
		for j := 0; j < tab.Width(); j++ {
			row = append(row, cell(tab.Value(i, j)))
		}
		if err := setRow(f, SheetData, i+2, row); err != nil {
			return err
		}
	}
	if tab.Rows == 0 {
		return nil
	}

	last := tab.Rows + 1
	series := make([]excelize.ChartSeries, tab.Width())
	for j := range series {
		col, err := excelize.ColumnNumberToName(j + 2)
		if err != nil {
			return err
		}
		series[j] = excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$1", SheetData, col),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", SheetData, last),
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", SheetData, col, col, last),
		}
	}
	anchor, err := excelize.CoordinatesToCellName(tab.Width()+3, 2)
	if err != nil {
		return err
	}
	return f.AddChart(SheetData, anchor, &excelize.Chart{
		Type:      excelize.Line,
		Series:    series,
		Title:     []excelize.RichTextRun{{Text: tab.Name}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		XAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Scan"}}},
		YAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Concentration (ppm)"}}},
		Dimension: excelize.ChartDimension{Width: 960, Height: 480},
	})
}

func writeKinetics(f *excelize.File, species []string, res *pipeline.Result) error {
	if _, err := f.NewSheet(SheetKinetics); err != nil {
		return err
	}
	header := []interface{}{"Temperature (C)"}
	for _, s := range species {
		header = append(header, s, s+" std")
	}
	header = append(header, "X (%)", "X std", "k", "k std", "ln k", "ln k std", "1/T", "Flags")
	if err := f.SetSheetRow(SheetKinetics, "A1", &header); err != nil {
		return err
	}
	for i, r := range res.Rows {
		row := []interface{}{r.Condition.Temperature}
		for _, s := range r.Samples {
			row = append(row, cell(s.Mean), cell(s.Std))
		}
		rec := r.Record
		row = append(row,
			cell(rec.Conversion.V), cell(rec.Conversion.Err),
			cell(rec.Rate.V), cell(rec.Rate.Err),
			cell(rec.LogRate.V), cell(rec.LogRate.Err),
			cell(rec.InvT), rec.Flags.String())
		if err := setRow(f, SheetKinetics, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeArrhenius(f *excelize.File, res *pipeline.Result) error {
	if _, err := f.NewSheet(SheetArrhenius); err != nil {
		return err
	}
	header := []interface{}{"1/T", "ln k", "fit"}
	if err := f.SetSheetRow(SheetArrhenius, "A1", &header); err != nil {
		return err
	}
	fit := res.Fit
	n := 0
	for _, r := range res.Rows {
		rec := r.Record
		if !rec.LogRate.OK() || math.IsNaN(rec.InvT) {
			continue
		}
		n++
		row := []interface{}{rec.InvT, rec.LogRate.V, fit.Intercept + fit.Slope*rec.InvT}
		if err := setRow(f, SheetArrhenius, n+1, row); err != nil {
			return err
		}
	}
	params := [][]interface{}{
		{"Slope (K)", fit.Slope},
		{"Intercept", fit.Intercept},
		{"R2", fit.R2},
		{"Ea (J/mol)", fit.Ea},
		{"A", fit.A},
	}
	for i, p := range params {
		cellName, err := excelize.CoordinatesToCellName(5, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetArrhenius, cellName, &p); err != nil {
			return err
		}
	}
	if n == 0 {
		return nil
	}

	last := n + 1
	x := fmt.Sprintf("%s!$A$2:$A$%d", SheetArrhenius, last)
	return f.AddChart(SheetArrhenius, "H2", &excelize.Chart{
		Type: excelize.Scatter,
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("%s!$B$1", SheetArrhenius),
				Categories: x,
				Values:     fmt.Sprintf("%s!$B$2:$B$%d", SheetArrhenius, last),
				Marker:     excelize.ChartMarker{Symbol: "circle", Size: 6},
				Line:       excelize.ChartLine{Type: excelize.ChartLineNone},
			},
			{
				Name:       fmt.Sprintf("%s!$C$1", SheetArrhenius),
				Categories: x,
				Values:     fmt.Sprintf("%s!$C$2:$C$%d", SheetArrhenius, last),
				Marker:     excelize.ChartMarker{Symbol: "none"},
			},
		},
		Title:     []excelize.RichTextRun{{Text: fmt.Sprintf("Arrhenius (Ea = %.1f kJ/mol)", fit.Ea/1000)}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		XAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "1/T (K-1)"}}},
		YAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "ln k"}}},
		Dimension: excelize.ChartDimension{Width: 640, Height: 400},
	})
}

func writeRun(f *excelize.File, tab *table.Table, res *pipeline.Result) error {
	if _, err := f.NewSheet(SheetRun); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Run ID", res.RunID},
		{"Source", tab.Name},
		{"Created", time.Now().UTC().Format(time.RFC3339)},
		{"Rows", len(res.Rows)},
		{"Excluded", res.Excluded},
		{"Clamped windows", res.Clamped},
		{"Saturated", res.Saturated},
	}
	for i, r := range rows {
		if err := setRow(f, SheetRun, i+1, r); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	name, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, name, &values)
}

// cell maps non-finite values to an empty cell; Excel has no NaN.
func cell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
