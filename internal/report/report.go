// Package report renders pipeline results as the fixed-width text report
// and as a short console summary.
package report

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/pipeline"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/utils"
)

// Suffix is appended to the source base name to form the report file name.
const Suffix = "_report.txt"

const sep = "   "

// Options controls which columns are written.
type Options struct {
	RateUnit string
	SkipRate bool
	// Units holds the concentration unit per species; missing entries default to ppm.
	Units []string
}

func (o Options) unit(j int) string {
	if j < len(o.Units) && o.Units[j] != "" {
		return o.Units[j]
	}
	return "ppm"
}

// Header returns the column header line without a trailing newline.
func Header(species []string, opt Options) string {
	var b strings.Builder
	b.WriteString("Temperature(C)  ")
	for j, s := range species {
		u := opt.unit(j)
		fmt.Fprintf(&b, "%s(%s)  StandardError(%s)  ", s, u, u)
	}
	b.WriteString("ConversionRatio(%)  StandardError(%)  ")
	if !opt.SkipRate {
		u := opt.RateUnit
		if u == "" {
			u = "s-1"
		}
		fmt.Fprintf(&b, "ReactionRate(%s)  StandardError(%s)  ", u, u)
		b.WriteString("lnk  StandardError  ")
	}
	b.WriteString("1/T")
	return b.String()
}

// Write renders one header line and one line per result row.
func Write(w io.Writer, species []string, res *pipeline.Result, opt Options) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, Header(species, opt)); err != nil {
		return err
	}
	for _, r := range res.Rows {
		if len(r.Samples) != len(species) {
			return fmt.Errorf("row %d: %d samples for %d species", r.Condition.Index, len(r.Samples), len(species))
		}
		if _, err := fmt.Fprintln(bw, line(r, opt)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func line(r pipeline.Row, opt Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%3d"+sep, int(r.Condition.Temperature))
	for _, s := range r.Samples {
		fmt.Fprintf(&b, "%9.4f"+sep+"%9.4f"+sep, s.Mean, s.Std)
	}
	rec := r.Record
	fmt.Fprintf(&b, "%6.4f"+sep+"%6.4f"+sep, rec.Conversion.V, rec.Conversion.Err)
	if !opt.SkipRate {
		fmt.Fprintf(&b, "%6.4e"+sep+"%6.4e"+sep, rec.Rate.V, rec.Rate.Err)
		fmt.Fprintf(&b, "%6.4f"+sep+"%6.4f"+sep, rec.LogRate.V, rec.LogRate.Err)
	}
	fmt.Fprintf(&b, "%9.7f", rec.InvT)
	return b.String()
}

// ReportPath returns <source without extension>_report.txt next to source.
func ReportPath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + Suffix
}

// WriteFile renders the report into path atomically.
func WriteFile(path string, species []string, res *pipeline.Result, opt Options) error {
	var buf bytes.Buffer
	if err := Write(&buf, species, res, opt); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Summary renders a short human-readable digest of a run.
func Summary(res *pipeline.Result) string {
	var b strings.Builder
	b.WriteString("[RUN SUMMARY]\n")
	fmt.Fprintf(&b, "Run: %s\n", res.RunID)
	fmt.Fprintf(&b, "Rows: %d\n", len(res.Rows))
	if res.Excluded > 0 {
		fmt.Fprintf(&b, "Excluded (no temperature): %d\n", res.Excluded)
	}
	if res.Clamped > 0 {
		fmt.Fprintf(&b, "Clamped windows: %d\n", res.Clamped)
	}
	if res.Saturated > 0 {
		fmt.Fprintf(&b, "Saturated conversions: %d\n", res.Saturated)
	}
	if len(res.Rows) > 0 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, r := range res.Rows {
			x := r.Record.Conversion.V
			if math.IsNaN(x) {
				continue
			}
			lo = math.Min(lo, x)
			hi = math.Max(hi, x)
		}
		if !math.IsInf(lo, 1) {
			fmt.Fprintf(&b, "Conversion: %.2f%% .. %.2f%%\n", lo, hi)
		}
	}
	if f := res.Fit; f != nil {
		b.WriteString("\n[ARRHENIUS]\n")
		fmt.Fprintf(&b, "Points: %d\n", f.N)
		fmt.Fprintf(&b, "ln k = %.4f + (%.2f)/T\n", f.Intercept, f.Slope)
		fmt.Fprintf(&b, "Ea: %.2f kJ/mol\n", f.Ea/1000)
		fmt.Fprintf(&b, "A: %.4e\n", f.A)
		fmt.Fprintf(&b, "R²: %.4f\n", f.R2)
	}
	return b.String()
}
