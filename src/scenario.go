package chanest

/*------------------------------------------------------------------
 *
 * Purpose:	Scenario files for the replay driver.
 *
 * Description:	A scenario is a YAML snapshot of one estimation cycle's
 *		external inputs: the pilot burst, the weight matrix, the
 *		bias vector and, for training runs, the true channel
 *		reference.  estsim loads one, clocks the engine through
 *		it and reports the latched outputs.
 *
 *		Dimensions are taken from the vectors themselves; widths
 *		and the output shift come from DefaultConfig unless the
 *		file overrides them.
 *
 *----------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Scenario struct {
	Name string `yaml:"name"`

	// Optional width overrides.  Zero means DefaultConfig's value.
	DataWidth        uint  `yaml:"data_width"`
	WeightWidth      uint  `yaml:"weight_width"`
	BiasWidth        uint  `yaml:"bias_width"`
	AccumulatorWidth uint  `yaml:"accumulator_width"`
	OutputShift      *uint `yaml:"output_shift"`

	Pilots      []int64   `yaml:"pilots"`
	Weights     [][]int64 `yaml:"weights"`
	Bias        []int64   `yaml:"bias"`
	TrueChannel []int64   `yaml:"true_channel"`

	Training bool `yaml:"training"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	var raw, readErr = os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("reading scenario %q: %w", path, readErr)
	}

	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario %q: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", path, err)
	}

	return &s, nil
}

// Config builds the engine configuration the scenario calls for.
func (s *Scenario) Config() Config {
	var cfg = DefaultConfig()

	cfg.NumPilots = len(s.Pilots)
	cfg.NumChannels = len(s.Weights)

	if s.DataWidth != 0 {
		cfg.DataWidth = s.DataWidth
	}

	if s.WeightWidth != 0 {
		cfg.WeightWidth = s.WeightWidth
	}

	if s.BiasWidth != 0 {
		cfg.BiasWidth = s.BiasWidth
	}

	if s.AccumulatorWidth != 0 {
		cfg.AccumulatorWidth = s.AccumulatorWidth
	}

	if s.OutputShift != nil {
		cfg.OutputShift = *s.OutputShift
	}

	return cfg
}

/*------------------------------------------------------------------
 *
 * Function:	Scenario.Validate
 *
 * Purpose:	Catch dimension mismatches and out-of-range samples
 *		before they become confusing engine behavior.
 *
 *----------------------------------------------------------------*/

func (s *Scenario) Validate() error {
	var cfg = s.Config()

	if err := cfg.Validate(); err != nil {
		return err
	}

	if len(s.Pilots) == 0 {
		return fmt.Errorf("no pilots")
	}

	if len(s.Weights) == 0 {
		return fmt.Errorf("no weight rows")
	}

	for i, row := range s.Weights {
		if len(row) != len(s.Pilots) {
			return fmt.Errorf("weights row %d has %d entries, want %d (one per pilot)", i, len(row), len(s.Pilots))
		}

		for j, w := range row {
			if !fitsWidth(w, cfg.WeightWidth) {
				return fmt.Errorf("weights[%d][%d] = %d exceeds %d-bit range", i, j, w, cfg.WeightWidth)
			}
		}
	}

	if len(s.Bias) != len(s.Weights) {
		return fmt.Errorf("bias has %d entries, want %d (one per channel)", len(s.Bias), len(s.Weights))
	}

	for j, p := range s.Pilots {
		if !fitsWidth(p, cfg.DataWidth) {
			return fmt.Errorf("pilots[%d] = %d exceeds %d-bit range", j, p, cfg.DataWidth)
		}
	}

	for i, b := range s.Bias {
		if !fitsWidth(b, cfg.BiasWidth) {
			return fmt.Errorf("bias[%d] = %d exceeds %d-bit range", i, b, cfg.BiasWidth)
		}
	}

	if s.Training {
		if len(s.TrueChannel) != len(s.Weights) {
			return fmt.Errorf("true_channel has %d entries, want %d (one per channel)", len(s.TrueChannel), len(s.Weights))
		}

		for i, tc := range s.TrueChannel {
			if !fitsWidth(tc, cfg.DataWidth) {
				return fmt.Errorf("true_channel[%d] = %d exceeds %d-bit range", i, tc, cfg.DataWidth)
			}
		}
	}

	return nil
}

// Inputs assembles the per-tick input bundle for this scenario, with
// the estimation request asserted.
func (s *Scenario) Inputs() Inputs {
	return Inputs{
		Enable:           true,
		Pilots:           s.Pilots,
		Weights:          s.Weights,
		Bias:             s.Bias,
		TrueChannel:      s.TrueChannel,
		EstimationEnable: true,
		TrainingMode:     s.Training,
	}
}
