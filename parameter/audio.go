package parameter

import "time"

// Audio Render Settings
const (
	AudioSampleRate    = 44100
	AudioChannels      = 2
	AudioBitDepth      = 16
	AudioBytesPerFrame = AudioChannels * (AudioBitDepth / 8) // 4 bytes
)

// Audition phrase: four notes spread over the render window
const (
	// AudioPhraseDuration is the total rendered length per genome
	AudioPhraseDuration = 2 * time.Second

	// AudioNoteGapSamples is the silence before each note-off boundary
	AudioNoteGapSamples = 100

	// AudioTailGapSamples is the silence before the last note-off
	AudioTailGapSamples = 200
)

// AudioPhraseNotes and AudioPhraseVelocities describe the C4-E4-G4-C5 audition phrase
var (
	AudioPhraseNotes      = [4]int{60, 64, 67, 72}
	AudioPhraseVelocities = [4]int{110, 80, 50, 100}
)

// Synth voice
const (
	// AudioControlRate is the number of samples between LFO and filter updates
	AudioControlRate = 32

	// AudioVoiceCount is the polyphony of the headless synth
	AudioVoiceCount = 8

	// AudioSilence is the envelope level under which a voice is considered idle
	AudioSilence = 0.0001

	// AudioFilterMinCutoff and AudioFilterMaxCutoff clamp the modulated cutoff in Hz
	AudioFilterMinCutoff = 30.0
	AudioFilterMaxCutoff = 20000.0

	// AudioVelocitySensitivity scales cutoff by velocity distance from 64
	AudioVelocitySensitivity = 0.025

	// AudioOutputTrim keeps the summed voice output in a sane range
	AudioOutputTrim = 0.25
)

// Feature Extraction
const (
	// FeatureFFTSize is the analysis frame length (power of two)
	FeatureFFTSize = 2048

	// FeatureHopSize is the frame advance (75% overlap)
	FeatureHopSize = FeatureFFTSize / 4

	// FeatureMelBands is the mel filterbank size
	FeatureMelBands = 26

	// FeatureMFCCCount is the number of cepstral coefficients kept
	FeatureMFCCCount = 10

	// FeatureCount is the flattened feature vector length
	// 10 MFCC means + 10 MFCC stds + centroid mean/std + attack + RMS
	FeatureCount = 2*FeatureMFCCCount + 4

	// FeatureAttackThreshold is the fraction of peak amplitude that marks attack onset
	// Onset is searched backwards from the peak sample
	FeatureAttackThreshold = 0.05

	// FeatureSilencePeak is the peak below which attack time reads as zero
	FeatureSilencePeak = 0.001
)

// Feature normalisation ranges (empirical)
const (
	FeatureMFCCMin     = -50.0
	FeatureMFCCMax     = 50.0
	FeatureCentroidMin = 100.0
	FeatureCentroidMax = 8000.0
	FeatureAttackMin   = 0.0
	FeatureAttackMax   = 0.5
	FeatureRMSMin      = 0.0
	FeatureRMSMax      = 0.3
)

// Similarity scales: each raw feature difference is divided by these before distance
const (
	SimilarityMFCCScale     = 15.0
	SimilarityCentroidScale = 5000.0
	SimilarityAttackScale   = 0.5
	SimilarityRMSScale      = 1.0
)

// Feature Cache
const (
	// FeatureCacheCapacity is the maximum number of cached genomes
	FeatureCacheCapacity = 128
)

// Audio playback through CLI backends
const (
	// AudioDrainTimeout for pipe cleanup on stop
	AudioDrainTimeout = 100 * time.Millisecond

	// AudioBufferDuration is the playback write cadence
	AudioBufferDuration = 20 * time.Millisecond

	// AudioDefaultVolume is the initial playback gain (0.0-1.0)
	AudioDefaultVolume = 0.8
)
