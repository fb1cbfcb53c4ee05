package lora

import "math"

/*
 * Kaiser Window
 * Parameterised by length and beta; beta trades main-lobe width against
 * sidelobe suppression
 */

// kaiserWindow returns an n-point Kaiser window with shape parameter beta.
func kaiserWindow(n int, beta float64) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	denom := besselI0(beta)
	half := float64(n-1) / 2
	for i := 0; i < n; i++ {
		x := (float64(i) - half) / half
		w[i] = besselI0(beta*math.Sqrt(1-x*x)) / denom
	}
	return w
}

// besselI0 evaluates the zeroth-order modified Bessel function of the first
// kind by its power series. Converges quickly for the beta range used by
// chirp windowing.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	half := x / 2
	for k := 1; k < 64; k++ {
		term *= half / float64(k)
		delta := term * term
		sum += delta
		if delta < sum*1e-17 {
			break
		}
	}
	return sum
}
