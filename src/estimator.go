package chanest

/*------------------------------------------------------------------
 *
 * Purpose:	Pilot-driven channel estimation engine.
 *
 * Description:	A streaming fixed-point linear-regression core.  Known
 *		pilot symbols are multiplied by externally trained
 *		weights and accumulated per channel; the scaled, biased
 *		sum is the channel estimate handed to the equalizer.  In
 *		training mode the engine also exposes the per-channel
 *		estimation error against a supplied reference, for an
 *		external weight adapter.
 *
 *		The engine is clocked from outside: one call to Step is
 *		one tick.  It owns only its own registers (accumulators,
 *		counters, latches, flags); pilots, weights, bias and the
 *		training reference arrive read-only through Inputs.  One
 *		estimation cycle runs to completion before another can
 *		start.
 *
 *----------------------------------------------------------------*/

// State is the control state, advanced once per tick.
type State int

const (
	StateIdle State = iota
	StateCompute
	StateAccumulate
	StateOutput
	StateErrorCompute
)

var stateNames = []string{
	"IDLE",
	"COMPUTE",
	"ACCUMULATE",
	"OUTPUT",
	"ERROR_COMPUTE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}

	return stateNames[s]
}

// Inputs is everything the engine samples on one tick.  The caller
// holds Pilots, Weights and Bias stable for the duration of a cycle;
// TrainingMode and TrueChannel are latched when the cycle starts, so
// changing them mid-flight has no effect on the current cycle.
type Inputs struct {
	Reset  bool // Synchronous reset, overrides everything
	Enable bool // When false the whole machine freezes

	Pilots      []int64   // NumPilots Q10 samples
	Weights     [][]int64 // NumChannels x NumPilots coefficients
	Bias        []int64   // NumChannels offsets
	TrueChannel []int64   // NumChannels reference, training only

	EstimationEnable bool // Pulse: request a new estimation cycle
	TrainingMode     bool // Level: sampled at cycle entry
	UpdateWeights    bool // Pulse: reserved hook, counted and otherwise inert
}

// Outputs is the engine's register file as visible after a tick.  The
// slices alias the internal latches: valid while EstimationValid holds,
// overwritten by the next cycle.  Callers that need to keep them must
// copy.
type Outputs struct {
	Estimates []int64 // NumChannels, valid while EstimationValid
	Errors    []int64 // NumChannels, meaningful only after a training cycle

	EstimationValid bool // Level: estimates are latched and current
	OverflowFlag    bool // Sticky within a cycle, diagnostic only

	MeanSquaredError     int64  // Instrumentation, training cycles only
	State                State  // Current control state
	PilotIndex           int    // Current pilot position
	WeightUpdateRequests uint64 // UpdateWeights pulses observed so far
}

// Estimator holds all mutable state.  Exclusive ownership: nothing
// here is touched outside its own Step call.
type Estimator struct {
	cfg Config

	state      State
	pilotIndex int

	acc      []int64 // Running sums, reset at every cycle start
	products []int64 // Products formed by COMPUTE for the next ACCUMULATE

	estimates []int64 // Output latch
	errors    []int64 // Error latch, holds stale values outside training

	trueChannel []int64 // TrueChannel as sampled at cycle entry
	training    bool    // TrainingMode as sampled at cycle entry

	estimationValid bool
	overflow        bool
	mse             int64

	weightUpdateRequests uint64
}

// NewEstimator builds an engine for the given configuration.  A
// malformed configuration is rejected here; there are no recoverable
// runtime errors after this point.
func NewEstimator(cfg Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Estimator{
		cfg:         cfg,
		state:       StateIdle,
		acc:         make([]int64, cfg.NumChannels),
		products:    make([]int64, cfg.NumChannels),
		estimates:   make([]int64, cfg.NumChannels),
		errors:      make([]int64, cfg.NumChannels),
		trueChannel: make([]int64, cfg.NumChannels),
	}, nil
}

func (e *Estimator) Config() Config {
	return e.cfg
}

// CycleTicks returns how many Step calls one estimation cycle takes,
// counting from the tick that observes the request: one IDLE tick, a
// COMPUTE/ACCUMULATE pair per pilot, one OUTPUT tick, and one
// ERROR_COMPUTE tick when training.
func (e *Estimator) CycleTicks(training bool) int {
	var n = 2 + 2*e.cfg.NumPilots

	if training {
		n++
	}

	return n
}

/*------------------------------------------------------------------
 *
 * Function:	Estimator.Step
 *
 * Purpose:	Advance the engine by exactly one tick.
 *
 * Description:	Reset is synchronous and unconditional.  With Enable
 *		false nothing moves: no state, counter or register
 *		changes.  Otherwise one state transition happens per
 *		call:
 *
 *		IDLE -> COMPUTE -> ACCUMULATE -> ... -> OUTPUT
 *		  -> (ERROR_COMPUTE) -> IDLE
 *
 *		with COMPUTE/ACCUMULATE repeated once per pilot index in
 *		strictly ascending order.  A request arriving while a
 *		cycle is in flight is ignored; the machine must return to
 *		IDLE first.
 *
 *----------------------------------------------------------------*/

func (e *Estimator) Step(in Inputs) Outputs {
	if in.Reset {
		e.reset()

		return e.outputs()
	}

	if !in.Enable {
		return e.outputs()
	}

	if in.UpdateWeights {
		// Reserved hook for an external weight adapter.  Observable,
		// no further behavior.
		e.weightUpdateRequests++
	}

	switch e.state {

	case StateIdle:
		if in.EstimationEnable {
			e.beginCycle(in)
			e.state = StateCompute
		}

	case StateCompute:
		Assert(len(in.Pilots) == e.cfg.NumPilots)
		Assert(len(in.Weights) == e.cfg.NumChannels)

		macProducts(e.products, in.Weights, in.Pilots, e.pilotIndex)
		e.state = StateAccumulate

	case StateAccumulate:
		if macAccumulate(e.acc, e.products, e.cfg.AccumulatorWidth) {
			e.overflow = true // Sticky until the next cycle starts
		}

		if e.pilotIndex < e.cfg.NumPilots-1 {
			e.pilotIndex++
			e.state = StateCompute
		} else {
			e.state = StateOutput
		}

	case StateOutput:
		Assert(len(in.Bias) == e.cfg.NumChannels)

		outputEstimates(e.estimates, e.acc, in.Bias, e.cfg.OutputShift, e.cfg.DataWidth)
		e.estimationValid = true

		if e.training {
			e.state = StateErrorCompute
		} else {
			e.state = StateIdle
		}

	case StateErrorCompute:
		trainingErrors(e.errors, e.trueChannel, e.estimates, e.cfg.DataWidth)
		e.mse = meanSquaredError(e.errors)
		e.state = StateIdle

	default:
		// Not reachable under correct operation.  Recover to rest.
		e.state = StateIdle
	}

	return e.outputs()
}

// beginCycle clears the per-cycle state and samples the once-per-cycle
// inputs.  The error latch is deliberately not cleared: it holds its
// previous value through non-training cycles.
func (e *Estimator) beginCycle(in Inputs) {
	for i := range e.acc {
		e.acc[i] = 0
		e.products[i] = 0
	}

	e.pilotIndex = 0
	e.overflow = false
	e.estimationValid = false

	e.training = in.TrainingMode

	if e.training {
		Assert(len(in.TrueChannel) == e.cfg.NumChannels)
		copy(e.trueChannel, in.TrueChannel)
	}
}

// reset clears everything to zero/IDLE, regardless of Enable.
func (e *Estimator) reset() {
	e.state = StateIdle
	e.pilotIndex = 0

	for i := range e.acc {
		e.acc[i] = 0
		e.products[i] = 0
		e.estimates[i] = 0
		e.errors[i] = 0
		e.trueChannel[i] = 0
	}

	e.training = false
	e.estimationValid = false
	e.overflow = false
	e.mse = 0
	e.weightUpdateRequests = 0
}

func (e *Estimator) outputs() Outputs {
	return Outputs{
		Estimates:            e.estimates,
		Errors:               e.errors,
		EstimationValid:      e.estimationValid,
		OverflowFlag:         e.overflow,
		MeanSquaredError:     e.mse,
		State:                e.state,
		PilotIndex:           e.pilotIndex,
		WeightUpdateRequests: e.weightUpdateRequests,
	}
}
