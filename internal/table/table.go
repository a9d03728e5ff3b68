package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Options controls how a raw scan file is turned into a Table.
type Options struct {
	// Delimiter between fields. If 0, any run of whitespace separates fields.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, auto-detect common separators (',' '.' space)
	// SkipRows is the number of leading lines to drop; the last skipped line is the header.
	SkipRows int
	// Sheet selects the worksheet for .xlsx input; empty means the first sheet.
	Sheet string
}

// DefaultOptions matches the instrument export: one header line, whitespace separated.
func DefaultOptions() Options {
	return Options{SkipRows: 1}
}

// Column maps a logical species name to a 0-based column in the raw file.
type Column struct {
	Name  string
	Index int
}

// Table is the read-only sample table: rows are scan lines, columns are the
// selected species concentrations. It is never mutated after load.
type Table struct {
	Name    string
	Species []string
	Units   []string // unit parsed from the header, "" if none
	Rows    int
	data    [][]float64 // row-major
}

// ErrEmpty indicates a file with a header but no data rows.
var ErrEmpty = errors.New("table has no data rows")

// Load reads path and selects cols. .xlsx files go through excelize, anything
// else is read as delimited text.
func Load(path string, cols []Column, opt Options) (*Table, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("load %s: no columns selected", filepath.Base(path))
	}
	for _, c := range cols {
		if c.Index < 0 {
			return nil, fmt.Errorf("load %s: column %q has negative index %d", filepath.Base(path), c.Name, c.Index)
		}
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loadXLSX(path, cols, opt)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()
	tab, err := Read(f, cols, opt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	tab.Name = filepath.Base(path)
	return tab, nil
}

// Read parses delimited text from r.
func Read(r io.Reader, cols []Column, opt Options) (*Table, error) {
	records, err := readRecords(r, opt.Delimiter)
	if err != nil {
		return nil, err
	}
	return build(records, cols, opt)
}

func readRecords(r io.Reader, delim rune) ([][]string, error) {
	if delim != 0 {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		cr.Comma = delim
		recs, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		return recs, nil
	}
	var out [][]string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), 4<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		out = append(out, strings.Fields(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	return out, nil
}

// build turns raw records (header lines included) into a Table.
func build(records [][]string, cols []Column, opt Options) (*Table, error) {
	skip := opt.SkipRows
	if skip < 0 {
		skip = 0
	}
	var header []string
	if skip > 0 && len(records) >= skip {
		header = records[skip-1]
	}
	if len(records) <= skip {
		return nil, ErrEmpty
	}
	body := records[skip:]

	tab := &Table{
		Species: make([]string, len(cols)),
		Units:   make([]string, len(cols)),
		Rows:    len(body),
		data:    make([][]float64, len(body)),
	}
	for j, c := range cols {
		tab.Species[j] = c.Name
		if c.Index < len(header) {
			_, tab.Units[j] = splitUnits(header[c.Index])
		}
	}
	for i, rec := range body {
		row := make([]float64, len(cols))
		for j, c := range cols {
			if c.Index >= len(rec) {
				return nil, fmt.Errorf("row %d: column %q (index %d) missing, row has %d fields", i+skip+1, c.Name, c.Index, len(rec))
			}
			x, ok := parseNumeric(rec[c.Index], opt)
			if !ok {
				return nil, fmt.Errorf("row %d: column %q: not a number: %q", i+skip+1, c.Name, rec[c.Index])
			}
			row[j] = x
		}
		tab.data[i] = row
	}
	return tab, nil
}

// FromColumns builds an in-memory table from column-major data.
func FromColumns(name string, species []string, columns [][]float64) (*Table, error) {
	if len(species) != len(columns) {
		return nil, fmt.Errorf("species/columns mismatch: %d names, %d columns", len(species), len(columns))
	}
	if len(columns) == 0 {
		return nil, errors.New("no columns")
	}
	n := len(columns[0])
	for j, c := range columns {
		if len(c) != n {
			return nil, fmt.Errorf("column %q has %d rows, want %d", species[j], len(c), n)
		}
	}
	tab := &Table{
		Name:    name,
		Species: append([]string(nil), species...),
		Units:   make([]string, len(species)),
		Rows:    n,
		data:    make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		row := make([]float64, len(columns))
		for j := range columns {
			row[j] = columns[j][i]
		}
		tab.data[i] = row
	}
	return tab, nil
}

// Width returns the number of selected columns.
func (t *Table) Width() int { return len(t.Species) }

// Value returns the cell at row i, column j.
func (t *Table) Value(i, j int) float64 { return t.data[i][j] }

// Column returns a copy of column j.
func (t *Table) Column(j int) []float64 {
	out := make([]float64, t.Rows)
	for i := range t.data {
		out[i] = t.data[i][j]
	}
	return out
}

// Slice returns column j restricted to rows [lo, hi). Bounds are clipped to the table.
func (t *Table) Slice(j, lo, hi int) []float64 {
	lo = max(lo, 0)
	hi = min(hi, t.Rows)
	if hi <= lo {
		return nil
	}
	out := make([]float64, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, t.data[i][j])
	}
	return out
}

// Unit returns the header unit for column j, falling back to def.
func (t *Table) Unit(j int, def string) string {
	if j < len(t.Units) && t.Units[j] != "" {
		return t.Units[j]
	}
	return def
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., NO (ppm)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., NO [ppm]
	{regexp.MustCompile(`^(.*?)[_\s-]+(ppm|ppb|%|mg/m3|°C)$`), 2},
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
