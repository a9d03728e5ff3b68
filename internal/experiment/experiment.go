// Package experiment holds the per-run description of a flow-reactor
// experiment: species, reactor parameters and the temperature schedule.
package experiment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/kinetics"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/table"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/utils"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/window"
)

// FileExt is the extension of experiment files.
const FileExt = ".yaml"

// Mode selects the window locator.
const (
	ModeSchedule   = "schedule"
	ModeContinuous = "continuous"
)

// Rate models.
const (
	ModelFlow    = "flow"
	ModelSurface = "surface"
	ModelNone    = "none"
)

// Log-rate uncertainty propagation variants.
const (
	LogErrConversion = "conversion"
	LogErrRate       = "rate"
)

// Experiment is the YAML experiment file.
type Experiment struct {
	ID            string            `yaml:"id"`
	Name          string            `yaml:"name" validate:"required"`
	Description   string            `yaml:"description,omitempty"`
	Source        string            `yaml:"source,omitempty"`
	Species       []Species         `yaml:"species" validate:"required,min=1,dive"`
	Window        int               `yaml:"window" validate:"min=1"`
	DDOF          int               `yaml:"ddof" validate:"min=0"`
	ScanningSpeed float64           `yaml:"scanning_speed" validate:"gt=0"`
	Mode          string            `yaml:"mode" validate:"oneof=schedule continuous"`
	Schedule      []Step            `yaml:"schedule,omitempty" validate:"required_if=Mode schedule,dive"`
	Program       []window.Segment  `yaml:"program,omitempty" validate:"required_if=Mode continuous"`
	Rate          Rate              `yaml:"rate"`
	StrictWindows bool              `yaml:"strict_windows"`
	Input         Input             `yaml:"input"`
	CreatedAt     time.Time         `yaml:"created_at,omitempty"`
	Notes         map[string]string `yaml:"notes,omitempty"`
}

// Species is one measured gas. The first entry is the limiting reagent.
type Species struct {
	Name       string  `yaml:"name" validate:"required"`
	Column     int     `yaml:"column" validate:"min=0"`
	Background float64 `yaml:"background" validate:"min=0"`
	// DDOF overrides Experiment.DDOF for this species when set.
	DDOF *int `yaml:"ddof,omitempty" validate:"omitempty,min=0"`
}

// Step is one (temperature, elapsed time) schedule entry.
type Step struct {
	Temperature float64 `yaml:"temperature"`
	Time        float64 `yaml:"time" validate:"min=0"`
}

// Rate configures the rate-constant stage.
type Rate struct {
	Model         string  `yaml:"model" validate:"oneof=flow surface none"`
	FlowRate      float64 `yaml:"flow_rate,omitempty"`    // ml/min
	Volume        float64 `yaml:"volume,omitempty"`       // ml
	Mass          float64 `yaml:"mass,omitempty"`         // g
	SurfaceArea   float64 `yaml:"surface_area,omitempty"` // m2/g
	Concentration float64 `yaml:"concentration,omitempty"`
	LogErr        string  `yaml:"log_err,omitempty" validate:"omitempty,oneof=conversion rate"`
}

// Input describes the raw file format.
type Input struct {
	Delimiter string `yaml:"delimiter,omitempty"`
	Decimal   string `yaml:"decimal,omitempty"`
	Thousands string `yaml:"thousands,omitempty"`
	SkipRows  *int   `yaml:"skip_rows,omitempty"`
	Sheet     string `yaml:"sheet,omitempty"`
}

// Template returns the reference flow experiment: six gases, NO limiting,
// eleven temperature steps from 100 to 500 °C.
func Template(name string) *Experiment {
	temps := []float64{100, 130, 170, 200, 230, 260, 300, 350, 400, 450, 500}
	times := []float64{60, 110, 160, 210, 240, 270, 300, 330, 360, 390, 420}
	steps := make([]Step, len(temps))
	for i := range temps {
		steps[i] = Step{Temperature: temps[i], Time: times[i]}
	}
	return &Experiment{
		ID:   uuid.NewString(),
		Name: name,
		Species: []Species{
			{Name: "NO", Column: 10, Background: 500},
			{Name: "NH3", Column: 19, Background: 500},
			{Name: "N2O", Column: 7},
			{Name: "NO2", Column: 13},
			{Name: "SO2", Column: 16},
			{Name: "H2O", Column: 4},
		},
		Window:        window.DefaultWidth,
		ScanningSpeed: 0.3521689,
		Mode:          ModeSchedule,
		Schedule:      steps,
		Rate:          Rate{Model: ModelFlow, FlowRate: 100, Volume: 0.1},
		CreatedAt:     time.Now().UTC(),
	}
}

// ContinuousTemplate returns the reference temperature-programmed run: four
// gases on a supported catalyst, one row per condition, surface rate model.
func ContinuousTemplate(name string) *Experiment {
	return &Experiment{
		ID:   uuid.NewString(),
		Name: name,
		Species: []Species{
			{Name: "NO", Column: 4, Background: 503},
			{Name: "NH3", Column: 3, Background: 552},
			{Name: "N2O", Column: 5, Background: 1.5},
			{Name: "NO2", Column: 6, Background: 19},
		},
		Window:        1,
		ScanningSpeed: 0.420432044105174,
		Mode:          ModeContinuous,
		Program:       window.RampProgram().Segments,
		Rate:          Rate{Model: ModelSurface, FlowRate: 83.33, Mass: 0.05, SurfaceArea: 100},
		CreatedAt:     time.Now().UTC(),
	}
}

// Load reads and validates an experiment file.
func Load(path string) (*Experiment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("experiment not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read experiment: %w", err)
	}
	e, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return e, nil
}

// Parse decodes YAML, fills defaults and validates.
func Parse(b []byte) (*Experiment, error) {
	var e Experiment
	if err := yaml.Unmarshal(b, &e); err != nil {
		return nil, &ConfigError{Field: "yaml", Msg: "parse experiment", Err: err}
	}
	e.applyDefaults()
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

func (e *Experiment) applyDefaults() {
	if e.Window == 0 {
		e.Window = window.DefaultWidth
	}
	if e.Mode == "" {
		e.Mode = ModeSchedule
	}
	if e.Rate.Model == "" {
		e.Rate.Model = ModelFlow
	}
}

// Save writes the experiment atomically as YAML.
func (e *Experiment) Save(path string) error {
	b, err := yaml.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return utils.SafeWriteFile(path, b)
}

// Columns returns the column selection for the sample table.
func (e *Experiment) Columns() []table.Column {
	out := make([]table.Column, len(e.Species))
	for i, s := range e.Species {
		out[i] = table.Column{Name: s.Name, Index: s.Column}
	}
	return out
}

// SpeciesDDOF returns the degrees of freedom used for species i.
func (e *Experiment) SpeciesDDOF(i int) int {
	if d := e.Species[i].DDOF; d != nil {
		return *d
	}
	return e.DDOF
}

// Strategy builds the window locator for the configured mode.
func (e *Experiment) Strategy() window.Strategy {
	if e.Mode == ModeContinuous {
		return window.Continuous{
			Program:       window.Program{Segments: e.Program}.At,
			ScanningSpeed: e.ScanningSpeed,
			Width:         e.Window,
		}
	}
	steps := make([]window.Step, len(e.Schedule))
	for i, s := range e.Schedule {
		steps[i] = window.Step{Temperature: s.Temperature, Elapsed: s.Time}
	}
	return window.Schedule{Steps: steps, ScanningSpeed: e.ScanningSpeed, Width: e.Window}
}

// Chain builds the kinetics chain for the configured rate model.
func (e *Experiment) Chain() kinetics.Chain {
	ch := kinetics.Chain{LogErr: kinetics.ConversionLogErr}
	if e.Rate.LogErr == LogErrRate {
		ch.LogErr = kinetics.RateLogErr
	}
	switch e.Rate.Model {
	case ModelSurface:
		ch.Model = kinetics.SurfaceModel{
			FlowRate:      e.Rate.FlowRate,
			Mass:          e.Rate.Mass,
			SurfaceArea:   e.Rate.SurfaceArea,
			Concentration: e.Rate.Concentration,
		}
	case ModelNone:
		ch.SkipRate = true
	default:
		ch.Model = kinetics.FlowModel{FlowRate: e.Rate.FlowRate, Volume: e.Rate.Volume}
	}
	return ch
}

// TableOptions converts the input section to loader options.
func (e *Experiment) TableOptions() (table.Options, error) {
	opt := table.DefaultOptions()
	if e.Input.SkipRows != nil {
		opt.SkipRows = *e.Input.SkipRows
	}
	opt.Sheet = e.Input.Sheet
	switch e.Input.Delimiter {
	case "", "whitespace", "space":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, &ConfigError{Field: "input.delimiter", Msg: fmt.Sprintf("unsupported delimiter %q", e.Input.Delimiter)}
	}
	switch e.Input.Decimal {
	case "":
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case ",", "comma":
		opt.DecimalSeparator = ','
	default:
		return opt, &ConfigError{Field: "input.decimal", Msg: fmt.Sprintf("unsupported decimal separator %q", e.Input.Decimal)}
	}
	switch e.Input.Thousands {
	case "":
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case " ", "space":
		opt.ThousandsSeparator = ' '
	default:
		return opt, &ConfigError{Field: "input.thousands", Msg: fmt.Sprintf("unsupported thousands separator %q", e.Input.Thousands)}
	}
	return opt, nil
}
