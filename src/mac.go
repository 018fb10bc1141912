package chanest

/*------------------------------------------------------------------
 *
 * Purpose:	Multiply-accumulate engine.
 *
 * Description:	One pilot index is processed per COMPUTE/ACCUMULATE tick
 *		pair: macProducts forms the products for every channel,
 *		macAccumulate folds them into the running sums on the
 *		following tick.  Pilot indices advance strictly in
 *		ascending order; channels are independent lanes.
 *
 *		Products are full width (weight bits + sample bits, no
 *		intermediate rounding).  The accumulator wraps at its
 *		declared width; leaving the representable range is
 *		reported to the caller, never corrected.
 *
 *----------------------------------------------------------------*/

// macProducts forms weights[i][j] * pilots[j] for every channel i.
func macProducts(products []int64, weights [][]int64, pilots []int64, j int) {
	for i := range products {
		products[i] = weights[i][j] * pilots[j]
	}
}

// macAccumulate adds the formed products into the per-channel running
// sums, wrapping each to accWidth bits.  Returns true if any channel's
// updated sum fell outside the representable range before wrapping.
func macAccumulate(acc []int64, products []int64, accWidth uint) bool {
	var overflowed = false

	for i := range acc {
		var sum = acc[i] + products[i]

		if accumulatorOverflows(sum, accWidth) {
			overflowed = true
		}

		acc[i] = wrapToWidth(sum, accWidth)
	}

	return overflowed
}
