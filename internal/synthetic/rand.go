package synthetic

import (
	"math"
	"math/rand"
)

// gammaSample draws from Gamma(shape, scale) using the Marsaglia-Tsang
// method. Only shape >= 1 is needed here; the claim amount distribution
// uses shape 2.0.
func gammaSample(rng *rand.Rand, shape, scale float64) float64 {
	d := shape - 1.0/3.0
	c := 1.0 / (3.0 * math.Sqrt(d))

	for {
		x := rng.NormFloat64()
		v := 1.0 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v

		u := rng.Float64()
		if u < 1.0-0.0331*x*x*x*x {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// poissonSample draws from Poisson(lambda) using Knuth's method.
// Fine for the small lambda used for prior-claim counts.
func poissonSample(rng *rand.Rand, lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

// weightedChoice returns an index in [0, len(weights)) sampled with the
// given relative weights.
func weightedChoice(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}

	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}

// choiceString picks uniformly from options.
func choiceString(rng *rand.Rand, options []string) string {
	return options[rng.Intn(len(options))]
}

// weightedString picks from options with the given weights.
func weightedString(rng *rand.Rand, options []string, weights []float64) string {
	return options[weightedChoice(rng, weights)]
}

// weightedInt picks from options with the given weights.
func weightedInt(rng *rand.Rand, options []int, weights []float64) int {
	return options[weightedChoice(rng, weights)]
}

// uniformRange draws a uniform float in [low, high).
func uniformRange(rng *rand.Rand, low, high float64) float64 {
	return low + rng.Float64()*(high-low)
}

// intRange draws a uniform int in [low, high).
func intRange(rng *rand.Rand, low, high int) int {
	return low + rng.Intn(high-low)
}

// roundNearest rounds x to the nearest multiple of base.
func roundNearest(x float64, base int) int {
	return base * int(math.Round(x/float64(base)))
}

// clamp bounds x to [low, high].
func clamp(x, low, high float64) float64 {
	if x < low {
		return low
	}
	if x > high {
		return high
	}
	return x
}
