package chanest

/*------------------------------------------------------------------
 *
 * Purpose:	Synthesize known pilot bursts.
 *
 * Description:	A pilot burst is built in the frequency domain as a
 *		flat-magnitude BPSK spectrum (every bin +1.0 or -1.0,
 *		sign pattern drawn from a seeded generator), brought to
 *		the time domain with an IFFT, and quantized to Q10.
 *
 *		Flat magnitude spreads the pilot energy evenly, which is
 *		what makes the burst a good probe for per-channel
 *		regression.  The sign pattern keeps the time-domain peak
 *		factor down compared to an all-ones spectrum.
 *
 *		Deterministic for a given seed, so a scenario can name
 *		its burst by (length, seed) alone.
 *
 *----------------------------------------------------------------*/

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/mjibson/go-dsp/fft"
)

// SynthesizePilots builds a length-n Q10 pilot burst.  n must be a
// power of two (hardware-friendly burst lengths only).
func SynthesizePilots(n int, seed int64) ([]int64, error) {
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("pilot burst length must be a power of two >= 2, got %d", n)
	}

	var rng = rand.New(rand.NewSource(seed))

	var sign = func() complex128 {
		if rng.Intn(2) == 0 {
			return complex(1, 0)
		}

		return complex(-1, 0)
	}

	// Hermitian-symmetric spectrum, so the time-domain burst is real.
	var spectrum = make([]complex128, n)

	spectrum[0] = sign()
	spectrum[n/2] = sign()

	for k := 1; k < n/2; k++ {
		var s = sign()

		spectrum[k] = s
		spectrum[n-k] = s
	}

	// IFFT output is scaled by 1/n, so every sample is within [-1, 1].
	var samples = fft.IFFT(spectrum)

	var pilots = make([]int64, n)
	for i, c := range samples {
		var q = int64(math.Round(real(c) * Q10_ONE))

		// |q| <= Q10_ONE, far inside the 16-bit sample range.
		Assert(fitsWidth(q, DEFAULT_DATA_WIDTH))

		pilots[i] = q
	}

	return pilots, nil
}
