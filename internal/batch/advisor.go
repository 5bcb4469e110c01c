package batch

// bytesPerMB is the number of bytes in one mebibyte.
const bytesPerMB = 1024 * 1024

// OptimalBatchSize computes a safe batch size from the per-item size in
// bytes and the available memory budget in megabytes, clamped to
// [1, maxBatchSize].
//
// The result is purely advisory: callers remain free to pass any batch size
// to the engine, and the engine never calls this implicitly. Non-positive
// item sizes are treated as one byte; a non-positive maxBatchSize clamps
// the result to 1.
func OptimalBatchSize(itemSizeBytes, availableMemoryMB, maxBatchSize int) int {
	if itemSizeBytes < 1 {
		itemSizeBytes = 1
	}

	size := availableMemoryMB * bytesPerMB / itemSizeBytes

	if size > maxBatchSize {
		size = maxBatchSize
	}
	if size < 1 {
		size = 1
	}

	return size
}
