package chanest

/*------------------------------------------------------------------
 *
 * Purpose:	Output stage: scale, bias, latch.
 *
 * Description:	estimate[i] = (acc[i] >> shift) + bias[i], wrapped to the
 *		output width.  The shift is arithmetic (Go's >> on a
 *		signed value preserves the sign), and it is the single
 *		point where precision is dropped.
 *
 *		The 16-bit truncation after the bias add uses
 *		two's-complement wraparound, not saturation.  Saturating
 *		would change observable outputs for out-of-range sums.
 *
 *----------------------------------------------------------------*/

// outputEstimates computes the channel estimates from the accumulators
// into the latch slice.
func outputEstimates(estimates []int64, acc []int64, bias []int64, shift uint, outWidth uint) {
	for i := range estimates {
		estimates[i] = wrapToWidth((acc[i]>>shift)+bias[i], outWidth)
	}
}
