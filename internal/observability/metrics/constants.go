package metrics

// Operation names recorded by the active-learning runner.
const (
	// OpPass is a whole active-learning pass.
	OpPass = "pass"
	// OpTrain is classifier bank training.
	OpTrain = "train"
	// OpScore is confidence scoring of candidates.
	OpScore = "score"
	// OpReorder is pushing the new order into user queues.
	OpReorder = "reorder"
	// OpPublish is publishing a pass summary.
	OpPublish = "publish"
)

// Status label values.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusSkipped  = "skipped"
	StatusRejected = "rejected"
)

// Datastore operation names.
const (
	OpSaveAnnotation = "save_annotation"
	OpSaveOrdering   = "save_ordering"
	OpLoadAll        = "load_all"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart64B is the starting bucket for 64 byte histograms.
	BucketStart64B = 64.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)
