package core

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
)

// JobSeed derives a deterministic non-negative seed for one (run, image,
// level) job. The same inputs always produce the same seed, so retries and
// reruns of a batch are reproducible, while distinct jobs in the same run get
// uncorrelated randomness.
func JobSeed(runID string, imageIndex int, level string) int64 {
	return hashSeed(runID, fmt.Sprintf("%d", imageIndex), level)
}

// RunSeed derives the run-level baseline seed from the run identifier alone.
// All jobs of a run share it for batch-consistent choices (scene pools,
// degradation baseline).
func RunSeed(runID string) int64 {
	return hashSeed(runID)
}

func hashSeed(parts ...string) int64 {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	if seed < 0 {
		seed = -seed
	}
	if seed < 0 { // -MinInt64 stays negative
		seed = 0
	}
	return seed
}
