package features

import (
	"github.com/lixenwraith/synth-evolve/parameter"
)

// Flattened feature vector layout
const (
	IndexMFCCMean     = 0
	IndexMFCCStd      = IndexMFCCMean + parameter.FeatureMFCCCount
	IndexCentroidMean = IndexMFCCStd + parameter.FeatureMFCCCount
	IndexCentroidStd  = IndexCentroidMean + 1
	IndexAttack       = IndexCentroidStd + 1
	IndexRMS          = IndexAttack + 1
)

// Per-dimension normalizers against empirical physical ranges
var normalizers = buildNormalizers()

// Per-dimension distance scales used by similarity scoring
var scales = buildScales()

func buildNormalizers() [parameter.FeatureCount]NormalizeFunc {
	var n [parameter.FeatureCount]NormalizeFunc
	for i := 0; i < parameter.FeatureMFCCCount; i++ {
		n[IndexMFCCMean+i] = NormalizeLinear(parameter.FeatureMFCCMin, parameter.FeatureMFCCMax)
		// Std is non-negative
		n[IndexMFCCStd+i] = NormalizeLinear(0, parameter.FeatureMFCCMax)
	}
	n[IndexCentroidMean] = NormalizeLinear(parameter.FeatureCentroidMin, parameter.FeatureCentroidMax)
	n[IndexCentroidStd] = NormalizeLinear(0, parameter.FeatureCentroidMax-parameter.FeatureCentroidMin)
	n[IndexAttack] = NormalizeLinear(parameter.FeatureAttackMin, parameter.FeatureAttackMax)
	n[IndexRMS] = NormalizeLinear(parameter.FeatureRMSMin, parameter.FeatureRMSMax)
	return n
}

func buildScales() [parameter.FeatureCount]float64 {
	var s [parameter.FeatureCount]float64
	for i := 0; i < 2*parameter.FeatureMFCCCount; i++ {
		s[IndexMFCCMean+i] = parameter.SimilarityMFCCScale
	}
	s[IndexCentroidMean] = parameter.SimilarityCentroidScale
	s[IndexCentroidStd] = parameter.SimilarityCentroidScale
	s[IndexAttack] = parameter.SimilarityAttackScale
	s[IndexRMS] = parameter.SimilarityRMSScale
	return s
}

// Normalize maps a raw feature vector to [0,1] per dimension, clamping out-of-range values
// Vectors of the wrong length yield a zero vector
func Normalize(raw []float64) []float64 {
	out := make([]float64, parameter.FeatureCount)
	if len(raw) != parameter.FeatureCount {
		return out
	}
	for i, v := range raw {
		out[i] = normalizers[i](v)
	}
	return out
}

// Scale returns the similarity scale of dimension i, 1 when out of range
func Scale(i int) float64 {
	if i < 0 || i >= len(scales) {
		return 1
	}
	return scales[i]
}
