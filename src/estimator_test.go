package chanest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// stepN clocks the engine n times with the same inputs, dropping the
// estimation request after the first tick, and returns the last outputs.
func stepN(e *Estimator, in Inputs, n int) Outputs {
	var out Outputs

	for i := 0; i < n; i++ {
		out = e.Step(in)
		in.EstimationEnable = false
	}

	return out
}

func newTestEstimator(t *testing.T, numPilots int, numChannels int) *Estimator {
	t.Helper()

	var cfg = DefaultConfig()
	cfg.NumPilots = numPilots
	cfg.NumChannels = numChannels

	var e, err = NewEstimator(cfg)
	require.NoError(t, err)

	return e
}

func TestEstimatorCancellingPilots(t *testing.T) {
	// Two pilots of opposite sign through equal weights cancel exactly.
	var e = newTestEstimator(t, 2, 1)

	var in = Inputs{
		Enable:           true,
		Pilots:           []int64{1024, -1024},
		Weights:          [][]int64{{512, 512}},
		Bias:             []int64{0},
		EstimationEnable: true,
	}

	var out = stepN(e, in, e.CycleTicks(false))

	assert.True(t, out.EstimationValid)
	assert.False(t, out.OverflowFlag)
	assert.Equal(t, int64(0), out.Estimates[0])
}

func TestEstimatorSinglePilotWithBias(t *testing.T) {
	// 256 * 1024 = 262144; >> 8 = 1024; + 64 = 1088.
	var e = newTestEstimator(t, 1, 1)

	var in = Inputs{
		Enable:           true,
		Pilots:           []int64{1024},
		Weights:          [][]int64{{256}},
		Bias:             []int64{64},
		EstimationEnable: true,
	}

	var out = stepN(e, in, e.CycleTicks(false))

	assert.True(t, out.EstimationValid)
	assert.Equal(t, int64(1088), out.Estimates[0])
}

func TestEstimatorValidTiming(t *testing.T) {
	// estimation_valid must be false through every COMPUTE/ACCUMULATE
	// tick and become true exactly on the tick after the last
	// ACCUMULATE.
	var e = newTestEstimator(t, 2, 1)

	var in = Inputs{
		Enable:           true,
		Pilots:           []int64{1024, 1024},
		Weights:          [][]int64{{512, 512}},
		Bias:             []int64{0},
		EstimationEnable: true,
	}

	var ticks = e.CycleTicks(false)

	for i := 0; i < ticks; i++ {
		var out = e.Step(in)
		in.EstimationEnable = false

		if i < ticks-1 {
			assert.Falsef(t, out.EstimationValid, "valid asserted early at tick %d (%s)", i, out.State)
		} else {
			assert.True(t, out.EstimationValid, "valid not asserted on the OUTPUT tick")
		}
	}

	// Valid stays up while the engine sits in IDLE...
	var out = e.Step(in)
	assert.True(t, out.EstimationValid)
	assert.Equal(t, StateIdle, out.State)

	// ...and drops the instant a new cycle is accepted.
	in.EstimationEnable = true
	out = e.Step(in)
	assert.False(t, out.EstimationValid)
	assert.Equal(t, StateCompute, out.State)
}

func TestEstimatorOverflowSticky(t *testing.T) {
	// A full-scale weight times a full-scale pilot exceeds the signed
	// 32-bit range on the very first accumulation.
	var e = newTestEstimator(t, 2, 1)

	var in = Inputs{
		Enable:           true,
		Pilots:           []int64{32767, 32767},
		Weights:          [][]int64{{131071, 131071}},
		Bias:             []int64{0},
		EstimationEnable: true,
	}

	var sawOverflow = false

	for i := 0; i < e.CycleTicks(false); i++ {
		var out = e.Step(in)
		in.EstimationEnable = false

		if sawOverflow {
			assert.True(t, out.OverflowFlag, "overflow flag must be sticky for the rest of the cycle")
		}

		if out.OverflowFlag {
			sawOverflow = true
		}
	}

	require.True(t, sawOverflow)

	// Still set while idle.
	var out = e.Step(in)
	assert.True(t, out.OverflowFlag)

	// Cleared the moment the next cycle is accepted.
	in.Pilots = []int64{1, 1}
	in.Weights = [][]int64{{1, 1}}
	in.EstimationEnable = true

	out = e.Step(in)
	assert.False(t, out.OverflowFlag)

	out = stepN(e, in, e.CycleTicks(false)-1)
	assert.True(t, out.EstimationValid)
	assert.False(t, out.OverflowFlag)
}

func TestEstimatorTrainingError(t *testing.T) {
	var e = newTestEstimator(t, 1, 2)

	var in = Inputs{
		Enable:           true,
		Pilots:           []int64{1024},
		Weights:          [][]int64{{256}, {512}},
		Bias:             []int64{0, 0},
		TrueChannel:      []int64{1100, 2000},
		EstimationEnable: true,
		TrainingMode:     true,
	}

	var out = stepN(e, in, e.CycleTicks(true))

	assert.True(t, out.EstimationValid)
	assert.Equal(t, int64(1024), out.Estimates[0])
	assert.Equal(t, int64(2048), out.Estimates[1])

	// error = true_channel - latched estimate
	assert.Equal(t, int64(76), out.Errors[0])
	assert.Equal(t, int64(-48), out.Errors[1])

	// MSE across channels: (76^2 + 48^2) / 2
	assert.Equal(t, int64((76*76+48*48)/2), out.MeanSquaredError)
}

func TestEstimatorErrorsStaleWithoutTraining(t *testing.T) {
	var e = newTestEstimator(t, 1, 1)

	var in = Inputs{
		Enable:           true,
		Pilots:           []int64{1024},
		Weights:          [][]int64{{256}},
		Bias:             []int64{0},
		TrueChannel:      []int64{1100},
		EstimationEnable: true,
		TrainingMode:     true,
	}

	var out = stepN(e, in, e.CycleTicks(true))
	require.Equal(t, int64(76), out.Errors[0])

	// A non-training cycle with a different reference must not touch
	// the error latch.
	in.TrainingMode = false
	in.TrueChannel = []int64{0}
	in.EstimationEnable = true

	out = stepN(e, in, e.CycleTicks(false))
	assert.True(t, out.EstimationValid)
	assert.Equal(t, int64(76), out.Errors[0], "error latch must hold its stale value")
}

func TestEstimatorTrainingModeSampledAtEntry(t *testing.T) {
	// Raising training mode mid-cycle must not add an ERROR_COMPUTE
	// step to the running cycle.
	var e = newTestEstimator(t, 2, 1)

	var in = Inputs{
		Enable:           true,
		Pilots:           []int64{1024, 1024},
		Weights:          [][]int64{{512, 512}},
		Bias:             []int64{0},
		TrueChannel:      []int64{0},
		EstimationEnable: true,
		TrainingMode:     false,
	}

	var out = e.Step(in)
	in.EstimationEnable = false
	in.TrainingMode = true // Mid-flight, must be ignored

	for i := 1; i < e.CycleTicks(false); i++ {
		out = e.Step(in)
	}

	assert.True(t, out.EstimationValid)
	assert.Equal(t, StateIdle, out.State)
	assert.Equal(t, int64(0), out.Errors[0])
}

func TestEstimatorMidCycleRequestIgnored(t *testing.T) {
	// Holding the request up for the whole cycle must not stretch,
	// restart or otherwise disturb it.
	var e = newTestEstimator(t, 2, 1)

	var in = Inputs{
		Enable:           true,
		Pilots:           []int64{1024, -1024},
		Weights:          [][]int64{{512, 512}},
		Bias:             []int64{0},
		EstimationEnable: true, // Held up every tick
	}

	var out Outputs

	for i := 0; i < e.CycleTicks(false); i++ {
		out = e.Step(in)
	}

	assert.True(t, out.EstimationValid)
	assert.Equal(t, int64(0), out.Estimates[0])
	assert.Equal(t, StateIdle, out.State)
}

func TestEstimatorEnableFreezes(t *testing.T) {
	var e = newTestEstimator(t, 2, 1)

	var in = Inputs{
		Enable:           true,
		Pilots:           []int64{1024, 1024},
		Weights:          [][]int64{{512, 512}},
		Bias:             []int64{0},
		EstimationEnable: true,
	}

	// Run partway into the cycle.
	var out = stepN(e, in, 3)
	in.EstimationEnable = false

	var frozenState = out.State
	var frozenIndex = out.PilotIndex

	// Nothing may move while Enable is down.
	in.Enable = false
	for i := 0; i < 5; i++ {
		out = e.Step(in)
		assert.Equal(t, frozenState, out.State)
		assert.Equal(t, frozenIndex, out.PilotIndex)
		assert.False(t, out.EstimationValid)
	}

	// Resume and finish; result is unaffected by the stall.
	in.Enable = true
	out = stepN(e, in, e.CycleTicks(false)-3)

	assert.True(t, out.EstimationValid)
	assert.Equal(t, int64(4096), out.Estimates[0])
}

func TestEstimatorResetMidCycle(t *testing.T) {
	var e = newTestEstimator(t, 2, 1)

	var in = Inputs{
		Enable:           true,
		Pilots:           []int64{1024, 1024},
		Weights:          [][]int64{{512, 512}},
		Bias:             []int64{0},
		EstimationEnable: true,
		UpdateWeights:    true,
	}

	stepN(e, in, 3)

	// Synchronous reset applies even with Enable low.
	var out = e.Step(Inputs{Reset: true})

	assert.Equal(t, StateIdle, out.State)
	assert.Equal(t, 0, out.PilotIndex)
	assert.False(t, out.EstimationValid)
	assert.False(t, out.OverflowFlag)
	assert.Equal(t, int64(0), out.Estimates[0])
	assert.Equal(t, int64(0), out.Errors[0])
	assert.Equal(t, uint64(0), out.WeightUpdateRequests)
}

func TestEstimatorIdempotentAcrossReset(t *testing.T) {
	// Identical inputs with a reset in between give bit-identical
	// outputs.
	var e = newTestEstimator(t, 4, 2)

	var in = Inputs{
		Enable:           true,
		Pilots:           []int64{1024, -512, 256, -128},
		Weights:          [][]int64{{300, -200, 100, 50}, {-7, 1234, -999, 42}},
		Bias:             []int64{10, -10},
		TrueChannel:      []int64{5, -5},
		EstimationEnable: true,
		TrainingMode:     true,
	}

	var first = stepN(e, in, e.CycleTicks(true))
	var firstEstimates = append([]int64{}, first.Estimates...)
	var firstErrors = append([]int64{}, first.Errors...)

	e.Step(Inputs{Reset: true})

	var second = stepN(e, in, e.CycleTicks(true))

	assert.Equal(t, firstEstimates, second.Estimates)
	assert.Equal(t, firstErrors, second.Errors)
	assert.Equal(t, first.MeanSquaredError, second.MeanSquaredError)
	assert.Equal(t, first.OverflowFlag, second.OverflowFlag)
}

func TestEstimatorWeightUpdatePulsesCounted(t *testing.T) {
	var e = newTestEstimator(t, 1, 1)

	var in = Inputs{Enable: true, UpdateWeights: true}

	var out = e.Step(in)
	assert.Equal(t, uint64(1), out.WeightUpdateRequests)

	// Not counted while the machine is frozen.
	in.Enable = false
	out = e.Step(in)
	assert.Equal(t, uint64(1), out.WeightUpdateRequests)

	in.Enable = true
	out = e.Step(in)
	assert.Equal(t, uint64(2), out.WeightUpdateRequests)
}

func TestEstimatorMatchesDirectFormula(t *testing.T) {
	// For any inputs whose running sums stay inside the accumulator
	// range, the latched estimate equals (sum_j w[i][j]*p[j]) >> 8 +
	// bias[i] wrapped to 16 bits.
	rapid.Check(t, func(t *rapid.T) {
		var numPilots = rapid.SampledFrom([]int{1, 2, 4, 8}).Draw(t, "numPilots")
		var numChannels = rapid.IntRange(1, 4).Draw(t, "numChannels")

		var cfg = DefaultConfig()
		cfg.NumPilots = numPilots
		cfg.NumChannels = numChannels

		var e, err = NewEstimator(cfg)
		if err != nil {
			t.Fatal(err)
		}

		var in = Inputs{
			Enable:           true,
			EstimationEnable: true,
			TrainingMode:     true,
		}

		// Nominal-scale pilots keep every running sum well inside
		// 32 bits: 8 * 2^17 * 2^10 = 2^30.
		in.Pilots = make([]int64, numPilots)
		for j := range in.Pilots {
			in.Pilots[j] = int64(rapid.IntRange(-Q10_ONE, Q10_ONE).Draw(t, "pilot"))
		}

		in.Weights = make([][]int64, numChannels)
		in.Bias = make([]int64, numChannels)
		in.TrueChannel = make([]int64, numChannels)

		for i := range in.Weights {
			in.Weights[i] = make([]int64, numPilots)
			for j := range in.Weights[i] {
				in.Weights[i][j] = int64(rapid.IntRange(-131072, 131071).Draw(t, "weight"))
			}

			in.Bias[i] = int64(rapid.IntRange(-32768, 32767).Draw(t, "bias"))
			in.TrueChannel[i] = int64(rapid.IntRange(-32768, 32767).Draw(t, "trueChannel"))
		}

		var out = stepN(e, in, e.CycleTicks(true))

		if !out.EstimationValid {
			t.Fatalf("cycle finished without valid")
		}

		if out.OverflowFlag {
			t.Fatalf("unexpected overflow for nominal-scale inputs")
		}

		for i := 0; i < numChannels; i++ {
			var sum int64
			for j := 0; j < numPilots; j++ {
				sum += in.Weights[i][j] * in.Pilots[j]
			}

			var want = wrapToWidth((sum>>DEFAULT_OUTPUT_SHIFT)+in.Bias[i], DEFAULT_DATA_WIDTH)

			if out.Estimates[i] != want {
				t.Fatalf("channel %d: estimate %d, want %d", i, out.Estimates[i], want)
			}

			var wantErr = wrapToWidth(in.TrueChannel[i]-want, DEFAULT_DATA_WIDTH)

			if out.Errors[i] != wantErr {
				t.Fatalf("channel %d: error %d, want %d", i, out.Errors[i], wantErr)
			}
		}
	})
}
