package audio

import (
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/lixenwraith/synth-evolve/features"
	"github.com/lixenwraith/synth-evolve/parameter"
)

// melBand is a sparse triangular filter over FFT bins
type melBand struct {
	bins    []int
	weights []float64
}

// Extractor computes the timbre feature vector of a mono waveform
// Frames are Hann-windowed with 75% overlap; MFCC and centroid are summarized by mean and std
// Safe for concurrent use; analysis buffers are shared under a mutex
type Extractor struct {
	mu sync.Mutex

	fftSize int
	hop     int
	fft     *fourier.FFT
	window  []float64

	// Filterbank depends on the sample rate and is rebuilt on change
	sampleRate float64
	bands      []melBand
	dct        [][]float64

	frame    []float64
	coeffs   []complex128
	mags     []float64
	melLog   []float64
	mfccRows [][]float64
	centroid []float64
}

// NewExtractor creates an extractor with the default frame layout
func NewExtractor() *Extractor {
	n := parameter.FeatureFFTSize
	e := &Extractor{
		fftSize: n,
		hop:     parameter.FeatureHopSize,
		fft:     fourier.NewFFT(n),
		window:  make([]float64, n),
		frame:   make([]float64, n),
		coeffs:  make([]complex128, n/2+1),
		mags:    make([]float64, n/2+1),
		melLog:  make([]float64, parameter.FeatureMelBands),
	}
	for i := range e.window {
		e.window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	e.dct = make([][]float64, parameter.FeatureMFCCCount)
	for k := range e.dct {
		row := make([]float64, parameter.FeatureMelBands)
		for j := range row {
			row[j] = math.Cos(math.Pi * float64(k) * (float64(j) + 0.5) / parameter.FeatureMelBands)
		}
		e.dct[k] = row
	}
	e.mfccRows = make([][]float64, parameter.FeatureMFCCCount)
	return e
}

// Extract returns FeatureCount raw features laid out per the features package indices
func (e *Extractor) Extract(samples []float64, sampleRate float64) []float64 {
	out := make([]float64, parameter.FeatureCount)
	if sampleRate <= 0 {
		return out
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if sampleRate != e.sampleRate {
		e.buildFilterbank(sampleRate)
	}

	out[features.IndexRMS] = RMS(samples)
	out[features.IndexAttack] = AttackTime(samples, sampleRate)

	for k := range e.mfccRows {
		e.mfccRows[k] = e.mfccRows[k][:0]
	}
	e.centroid = e.centroid[:0]

	for start := 0; start+e.fftSize <= len(samples); start += e.hop {
		e.analyzeFrame(samples, start)
	}
	if len(e.centroid) == 0 {
		// Shorter than one frame: analyze a single zero-padded frame from the center
		e.analyzeFrame(samples, max(0, (len(samples)-e.fftSize)/2))
	}

	for k, row := range e.mfccRows {
		out[features.IndexMFCCMean+k], out[features.IndexMFCCStd+k] = meanStd(row)
	}
	out[features.IndexCentroidMean], out[features.IndexCentroidStd] = meanStd(e.centroid)
	return out
}

func (e *Extractor) analyzeFrame(samples []float64, start int) {
	n := min(e.fftSize, len(samples)-start)
	clear(e.frame)
	if n > 0 {
		floats.MulTo(e.frame[:n], samples[start:start+n], e.window[:n])
	}

	e.fft.Coefficients(e.coeffs, e.frame)
	for i, c := range e.coeffs {
		e.mags[i] = cmplx.Abs(c)
	}

	// Spectral centroid
	binHz := e.sampleRate / float64(e.fftSize)
	weighted, total := 0.0, 0.0
	for i, m := range e.mags {
		weighted += float64(i) * binHz * m
		total += m
	}
	c := 0.0
	if total > 1e-10 {
		c = weighted / total
	}
	e.centroid = append(e.centroid, c)

	// Log mel energies then DCT-II
	for b, band := range e.bands {
		energy := 0.0
		for j, bin := range band.bins {
			energy += e.mags[bin] * band.weights[j]
		}
		e.melLog[b] = math.Log(energy + 1e-10)
	}
	for k, row := range e.dct {
		e.mfccRows[k] = append(e.mfccRows[k], floats.Dot(row, e.melLog))
	}
}

func (e *Extractor) buildFilterbank(sampleRate float64) {
	e.sampleRate = sampleRate
	nBins := e.fftSize/2 + 1
	bands := parameter.FeatureMelBands

	lo, hi := hzToMel(0), hzToMel(sampleRate/2)
	edge := func(i int) float64 {
		return melToHz(lo + (hi-lo)*float64(i)/float64(bands+1))
	}
	toBin := func(hz float64) int {
		return min(max(int(hz*float64(e.fftSize)/sampleRate), 0), nBins-1)
	}

	e.bands = make([]melBand, bands)
	for i := range e.bands {
		left, center, right := edge(i), edge(i+1), edge(i+2)
		var band melBand
		for j := toBin(left); j <= toBin(right); j++ {
			f := float64(j) * sampleRate / float64(e.fftSize)
			w := 0.0
			switch {
			case f >= left && f <= center && center > left:
				w = (f - left) / (center - left)
			case f > center && f <= right && right > center:
				w = (right - f) / (right - center)
			}
			if w > 1e-6 {
				band.bins = append(band.bins, j)
				band.weights = append(band.weights, w)
			}
		}
		e.bands[i] = band
	}
}

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// meanStd returns the mean and sample standard deviation; std is 0 below two values
func meanStd(x []float64) (float64, float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

// RMS returns the root mean square of samples
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(samples, samples) / float64(len(samples)))
}

// AttackTime returns the seconds from onset to peak amplitude
// Onset is the last sample before the peak at or under a fraction of the peak
func AttackTime(samples []float64, sampleRate float64) float64 {
	if len(samples) == 0 || sampleRate <= 0 {
		return 0
	}
	peak, peakIdx := 0.0, 0
	for i, s := range samples {
		if a := math.Abs(s); a > peak {
			peak, peakIdx = a, i
		}
	}
	if peak < parameter.FeatureSilencePeak {
		return 0
	}

	threshold := peak * parameter.FeatureAttackThreshold
	onset := 0
	for i := peakIdx; i >= 0; i-- {
		if math.Abs(samples[i]) <= threshold {
			onset = i
			break
		}
	}
	return float64(peakIdx-onset) / sampleRate
}
