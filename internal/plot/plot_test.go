package plot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/kinetics"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/pipeline"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/table"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/window"
)

func run(t *testing.T, fit bool) (*table.Table, *pipeline.Result) {
	t.Helper()
	const n = 200
	no := make([]float64, n)
	nh3 := make([]float64, n)
	for i := range no {
		no[i] = 500 - 2*float64(i)
		nh3[i] = 480
	}
	tab, err := table.FromColumns("scan.txt", []string{"NO", "NH3"}, [][]float64{no, nh3})
	require.NoError(t, err)
	res, err := pipeline.Run(context.Background(), tab, pipeline.Config{
		Species: []pipeline.Species{{Name: "NO", Background: 500}, {Name: "NH3", Background: 500}},
		Strategy: window.Schedule{
			Steps:         []window.Step{{Temperature: 100, Elapsed: 20}, {Temperature: 150, Elapsed: 40}, {Temperature: 200, Elapsed: 60}},
			ScanningSpeed: 0.5,
			Width:         10,
		},
		Chain: kinetics.Chain{Model: kinetics.FlowModel{FlowRate: 100, Volume: 0.1}},
		Fit:   fit,
	})
	require.NoError(t, err)
	return tab, res
}

func TestWorkbook(t *testing.T) {
	tab, res := run(t, true)
	require.NotNil(t, res.Fit)
	p := filepath.Join(t.TempDir(), "scan_plot.xlsx")
	require.NoError(t, Workbook(p, tab, res))

	f, err := excelize.OpenFile(p)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetData, SheetKinetics, SheetArrhenius, SheetRun}, f.GetSheetList())

	data, err := f.GetRows(SheetData)
	require.NoError(t, err)
	require.Len(t, data, tab.Rows+1)
	assert.Equal(t, []string{"Index", "NO", "NH3"}, data[0][:3])
	assert.Equal(t, "500", data[1][1])

	kin, err := f.GetRows(SheetKinetics)
	require.NoError(t, err)
	require.Len(t, kin, 4)
	assert.Equal(t, "Temperature (C)", kin[0][0])
	assert.Equal(t, "150", kin[2][0])

	id, err := f.GetCellValue(SheetRun, "B1")
	require.NoError(t, err)
	assert.Equal(t, res.RunID, id)
	src, err := f.GetCellValue(SheetRun, "B2")
	require.NoError(t, err)
	assert.Equal(t, "scan.txt", src)

	slope, err := f.GetCellValue(SheetArrhenius, "E1")
	require.NoError(t, err)
	assert.Equal(t, "Slope (K)", slope)
}

func TestWorkbookWithoutFit(t *testing.T) {
	tab, res := run(t, false)
	p := filepath.Join(t.TempDir(), "nofit.xlsx")
	require.NoError(t, Workbook(p, tab, res))
	f, err := excelize.OpenFile(p)
	require.NoError(t, err)
	defer f.Close()
	assert.NotContains(t, f.GetSheetList(), SheetArrhenius)
}

func TestWorkbookPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "Industry1_plot.xlsx"), WorkbookPath(filepath.Join("data", "Industry1.txt")))
}
