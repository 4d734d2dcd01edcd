package parameter

import "time"

// Preference network shape
const (
	// MLPHiddenSize is the hidden layer width for both modalities
	MLPHiddenSize = 32
)

// Adam optimiser
const (
	MLPBeta1        = 0.9
	MLPBeta2        = 0.999
	MLPEpsilon      = 1e-8
	MLPWeightDecay  = 1e-4
	MLPGradClip     = 1.0
	MLPLearningRate = 0.001
)

// Online training
const (
	// ReplayCapacity is the ring buffer size for experience replay
	ReplayCapacity = 64

	// ReplayBatchSize is the number of replayed samples per feedback
	ReplayBatchSize = 8

	// FeedbackQueueSize bounds pending feedback before the host starts dropping
	FeedbackQueueSize = 64

	// FeedbackFullWeightPlay is the audition time that earns full sample weight
	FeedbackFullWeightPlay = 8 * time.Second

	// FeedbackMinWeight is the weight of an instantly skipped sample
	FeedbackMinWeight = 0.5
)

// Persistence file names inside the data directory
const (
	DatasetFileName      = "feedback_dataset.csv"
	DatasetBackupPrefix  = "feedback_dataset_backup_"
	WeightsFileName      = "mlp_weights.bin"
	AudioWeightsFileName = "mlp_audio_weights.bin"
	SQLiteFileName       = "synth-evolve.db"
)
