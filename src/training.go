package chanest

/*------------------------------------------------------------------
 *
 * Purpose:	Training error stage.
 *
 * Description:	Runs only when training mode was sampled true at the
 *		start of the estimation cycle.  The error is computed
 *		from the 16-bit estimate already latched by the output
 *		stage, not recomputed from the raw accumulator, so an
 *		external weight adapter sees exactly the quantization the
 *		equalizer sees.
 *
 *		The mean-squared-error aggregate is instrumentation for
 *		watching convergence toward the MMSE bound.  It feeds
 *		nothing back into estimation.
 *
 *----------------------------------------------------------------*/

// trainingErrors computes trueChannel[i] - estimates[i] for every
// channel, wrapped to the output width.
func trainingErrors(errors []int64, trueChannel []int64, estimates []int64, outWidth uint) {
	for i := range errors {
		errors[i] = wrapToWidth(trueChannel[i]-estimates[i], outWidth)
	}
}

// meanSquaredError averages the squared channel errors.  Squares of
// 16-bit values summed over any sane channel count fit easily in int64.
func meanSquaredError(errors []int64) int64 {
	if len(errors) == 0 {
		return 0
	}

	var sum int64

	for _, e := range errors {
		sum += e * e
	}

	return sum / int64(len(errors))
}
