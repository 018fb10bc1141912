package chanest

/*------------------------------------------------------------------
 *
 * Purpose:	Accumulator overflow detection.
 *
 * Description:	An explicit range test against the declared accumulator
 *		width, checked after every accumulation step.  The flag
 *		the state machine derives from this is sticky for the
 *		rest of the estimation cycle and is purely diagnostic:
 *		arithmetic continues under two's-complement wraparound,
 *		nothing is saturated or aborted.  A caller that sees the
 *		flag decides for itself whether to re-run with different
 *		scaling.
 *
 *----------------------------------------------------------------*/

// accumulatorOverflows reports whether sum lies outside the signed
// range of an accWidth-bit accumulator.
func accumulatorOverflows(sum int64, accWidth uint) bool {
	return sum < minForWidth(accWidth) || sum > maxForWidth(accWidth)
}
