package simulation

import (
	"math"
	"math/rand"
)

// studentT draws one sample from a standard Student-t distribution with
// nu degrees of freedom, using the ratio representation
// T = Z / sqrt(ChiSq(nu)/nu). Valid for any nu > 0, including the
// infinite-variance regime nu <= 2.
func studentT(rng *rand.Rand, nu float64) float64 {
	z := rng.NormFloat64()
	chi2 := 2.0 * gammaSample(rng, nu/2.0)
	if chi2 <= 0 {
		// Underflow guard for tiny nu; resample from the smallest
		// representable positive chi-square instead of dividing by zero.
		chi2 = math.SmallestNonzeroFloat64
	}
	return z / math.Sqrt(chi2/nu)
}

// gammaSample draws from Gamma(alpha, 1) using the Marsaglia-Tsang
// squeeze method, with the standard boost for alpha < 1.
func gammaSample(rng *rand.Rand, alpha float64) float64 {
	if alpha < 1 {
		// Gamma(a) = Gamma(a+1) * U^(1/a)
		u := rng.Float64()
		for u == 0 {
			u = rng.Float64()
		}
		return gammaSample(rng, alpha+1) * math.Pow(u, 1/alpha)
	}

	d := alpha - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)

	for {
		x := rng.NormFloat64()
		v := 1.0 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v

		u := rng.Float64()
		if u < 1.0-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}
