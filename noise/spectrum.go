package noise

// Spectrum Check
//
// Synthesized series are verified in the frequency domain: a radix-2 Cooley-Tukey FFT
// turns the series into bins, |X_k|²/N gives the power in bin k, and the slope of
// log power against log frequency identifies the spectrum (white ≈ 0, pink ≈ -1,
// brown ≈ -2). For a series whose length is a power of two and whose frequencies are
// integers, every component lands exactly on its own bin.

import (
	"math"
	"math/cmplx"

	"bifurcation/models"

	"gonum.org/v1/gonum/stat"
)

// FFT transforms a real series. len(input) must be a power of two.
func FFT(input []float64) []complex128 {
	complexArray := make([]complex128, len(input))
	for i, v := range input {
		complexArray[i] = complex(v, 0)
	}
	return recursiveFFT(complexArray)
}

func recursiveFFT(complexArray []complex128) []complex128 {
	N := len(complexArray)
	if N <= 1 {
		return complexArray
	}

	even := make([]complex128, N/2)
	odd := make([]complex128, N/2)
	for i := 0; i < N/2; i++ {
		even[i] = complexArray[2*i]
		odd[i] = complexArray[2*i+1]
	}

	even = recursiveFFT(even)
	odd = recursiveFFT(odd)

	fftResult := make([]complex128, N)
	for k := 0; k < N/2; k++ {
		t := cmplx.Rect(1, -2*math.Pi*float64(k)/float64(N))
		fftResult[k] = even[k] + t*odd[k]
		fftResult[k+N/2] = even[k] - t*odd[k]
	}

	return fftResult
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// PowerSpectrum returns |X_k|²/N for k = 0..N/2, where N is len(series) rounded up to a
// power of two and the series is zero-padded to N.
func PowerSpectrum(series []float64) ([]float64, error) {
	if len(series) == 0 {
		return nil, models.InvalidArgument("empty series")
	}
	n := nextPowerOfTwo(len(series))
	padded := make([]float64, n)
	copy(padded, series)

	bins := FFT(padded)
	power := make([]float64, n/2+1)
	for k := range power {
		m := cmplx.Abs(bins[k])
		power[k] = m * m / float64(n)
	}
	return power, nil
}

// SpectralSlope fits log(power) against log(k) over bins lo..hi inclusive and returns the
// slope. Bins with zero power are skipped.
func SpectralSlope(power []float64, lo, hi int) (float64, error) {
	if lo < 1 {
		lo = 1
	}
	if hi >= len(power) {
		hi = len(power) - 1
	}
	if hi < lo {
		return 0, models.InvalidArgument("empty bin range [%d, %d]", lo, hi)
	}
	xs := make([]float64, 0, hi-lo+1)
	ys := make([]float64, 0, hi-lo+1)
	for k := lo; k <= hi; k++ {
		if power[k] <= 0 {
			continue
		}
		xs = append(xs, math.Log(float64(k)))
		ys = append(ys, math.Log(power[k]))
	}
	if len(xs) < 2 {
		return 0, models.InvalidArgument("need at least two non-zero bins in [%d, %d]", lo, hi)
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope, nil
}
