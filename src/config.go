package chanest

/*------------------------------------------------------------------
 *
 * Purpose:	Construction-time configuration for the estimation engine.
 *
 * Description:	All bit widths and dimensions are fixed when the engine
 *		is built.  There is no runtime reconfiguration, just as
 *		there would be none in the synthesized design.
 *
 *----------------------------------------------------------------*/

import (
	"fmt"
	"math/bits"
)

/*
 * Default geometry.  One estimation cycle walks 8 pilot symbols and
 * produces 4 channel estimates.
 */

const DEFAULT_NUM_PILOTS = 8

const DEFAULT_NUM_CHANNELS = 4

/*
 * Default bit widths.
 *
 * Samples are Q10 (1024 = 1.0) in 16 bits.  Weights get two extra
 * bits so MMSE coefficients slightly above 1.0 survive quantization.
 * The accumulator is 32 bits wide, which keeps the running sum
 * representable for any nominal-scale (|x| around 1.0) input; a
 * full-scale pathological input can still wrap, which is what the
 * overflow flag is for.
 */

const DEFAULT_DATA_WIDTH = 16

const DEFAULT_WEIGHT_WIDTH = 18

const DEFAULT_BIAS_WIDTH = 16

const DEFAULT_ACCUMULATOR_WIDTH = 32

// Arithmetic right shift applied to the accumulator before the bias add.
const DEFAULT_OUTPUT_SHIFT = 8

// Config fixes the engine geometry and fixed-point formats.
type Config struct {
	DataWidth        uint // Pilot sample width, bits
	WeightWidth      uint // Weight coefficient width, bits
	BiasWidth        uint // Bias offset width, bits
	AccumulatorWidth uint // Running-sum width, bits
	OutputShift      uint // Right shift at the output stage
	NumPilots        int  // Pilot symbols per estimation cycle
	NumChannels      int  // Channels estimated in parallel
}

func DefaultConfig() Config {
	return Config{
		DataWidth:        DEFAULT_DATA_WIDTH,
		WeightWidth:      DEFAULT_WEIGHT_WIDTH,
		BiasWidth:        DEFAULT_BIAS_WIDTH,
		AccumulatorWidth: DEFAULT_ACCUMULATOR_WIDTH,
		OutputShift:      DEFAULT_OUTPUT_SHIFT,
		NumPilots:        DEFAULT_NUM_PILOTS,
		NumChannels:      DEFAULT_NUM_CHANNELS,
	}
}

// ceilLog2 returns the number of bits of index growth contributed by
// summing n terms.  ceilLog2(1) == 0.
func ceilLog2(n int) uint {
	if n <= 1 {
		return 0
	}

	return uint(bits.Len(uint(n - 1)))
}

/*------------------------------------------------------------------
 *
 * Function:	Config.Validate
 *
 * Purpose:	Reject malformed configuration before any state exists.
 *
 * Description:	A too-narrow accumulator is a contract violation, not a
 *		runtime error: the running engine never reports it, it
 *		just wraps.  Two bounds are enforced:
 *
 *		 - Host exactness: a full-scale product summed NumPilots
 *		   times must fit in int64, so the overflow range test is
 *		   an exact comparison rather than host wraparound.
 *
 *		 - Headroom: AccumulatorWidth + OutputShift must cover
 *		   WeightWidth + DataWidth + ceil(log2(NumPilots)), so a
 *		   nominal-scale estimate survives the output shift.
 *
 *----------------------------------------------------------------*/

func (c Config) Validate() error {
	if c.NumPilots < 1 {
		return fmt.Errorf("NumPilots must be at least 1, got %d", c.NumPilots)
	}

	if c.NumChannels < 1 {
		return fmt.Errorf("NumChannels must be at least 1, got %d", c.NumChannels)
	}

	for _, w := range []struct {
		name  string
		width uint
	}{
		{"DataWidth", c.DataWidth},
		{"WeightWidth", c.WeightWidth},
		{"BiasWidth", c.BiasWidth},
		{"AccumulatorWidth", c.AccumulatorWidth},
	} {
		if w.width < 2 || w.width > 62 {
			return fmt.Errorf("%s must be in [2, 62], got %d", w.name, w.width)
		}
	}

	if c.OutputShift >= c.AccumulatorWidth {
		return fmt.Errorf("OutputShift (%d) must be less than AccumulatorWidth (%d)", c.OutputShift, c.AccumulatorWidth)
	}

	var growth = c.WeightWidth + c.DataWidth + ceilLog2(c.NumPilots)

	if growth > 62 {
		return fmt.Errorf("WeightWidth + DataWidth + ceil(log2(NumPilots)) = %d bits exceeds exact int64 arithmetic", growth)
	}

	if c.AccumulatorWidth+c.OutputShift < growth {
		return fmt.Errorf("AccumulatorWidth (%d) too narrow for %d pilots of %dx%d bit products",
			c.AccumulatorWidth, c.NumPilots, c.WeightWidth, c.DataWidth)
	}

	return nil
}
