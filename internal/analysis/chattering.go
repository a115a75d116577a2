package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrum returns the one-sided power spectrum of signal sampled every dt
// seconds, with the matching frequencies in Hz. The mean is removed before
// the transform so bin zero carries drift rather than the operating point.
// Returns nil, nil when the signal is too short to transform.
func Spectrum(signal []float64, dt float64) (power, freqs []float64) {
	n := len(signal)
	if n < 4 || dt <= 0 {
		return nil, nil
	}

	mean := 0.0
	for _, v := range signal {
		mean += v
	}
	mean /= float64(n)

	seq := make([]float64, n)
	for i, v := range signal {
		seq[i] = v - mean
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, seq)

	power = make([]float64, len(coeffs))
	freqs = make([]float64, len(coeffs))
	for i, c := range coeffs {
		mag := cmplx.Abs(c)
		power[i] = mag * mag
		freqs[i] = fft.Freq(i) / dt
	}
	return power, freqs
}

// ChatterIndex measures how much of the control signal's spectral energy
// sits at or above cutoffHz. A relay-like chattering controller scores near
// one, a smooth boundary-layer controller near zero.
func ChatterIndex(u []float64, dt, cutoffHz float64) float64 {
	power, freqs := Spectrum(u, dt)
	if power == nil {
		return 0
	}

	total, high := 0.0, 0.0
	for i := 1; i < len(power); i++ {
		total += power[i]
		if freqs[i] >= cutoffHz {
			high += power[i]
		}
	}
	if total == 0 {
		return 0
	}
	return high / total
}
