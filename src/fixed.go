package chanest

/*------------------------------------------------------------------
 *
 * Purpose:	Fixed-point value model.
 *
 * Description:	Every quantity in the engine is a signed two's-complement
 *		integer of a declared width, carried in an int64 so the
 *		declared width can be enforced explicitly instead of
 *		relying on host wraparound.
 *
 *		Samples are Q10: the integer 1024 represents 1.0.
 *		Rounding happens exactly once, at the output shift;
 *		products and sums are kept at full width until then.
 *
 *----------------------------------------------------------------*/

// Q10 unit. 1024 == 1.0.
const Q10_ONE = 1024

// wrapToWidth reduces v to a signed two's-complement value of the given
// width, wrapping around on overflow.  width must be in [1, 64].
func wrapToWidth(v int64, width uint) int64 {
	var excess = 64 - width

	return v << excess >> excess
}

// fitsWidth reports whether v is representable as a signed value of the
// given width.
func fitsWidth(v int64, width uint) bool {
	return wrapToWidth(v, width) == v
}

func minForWidth(width uint) int64 {
	return -1 << (width - 1)
}

func maxForWidth(width uint) int64 {
	return 1<<(width-1) - 1
}
