package batch

// Chunk partitions items into ordered sub-slices of at most size elements.
// Every element appears in exactly one chunk, in original relative order;
// all chunks have length size except possibly the last. The returned chunks
// are subslices of items and must be treated as read-only.
//
// A size below 1 is a configuration error and returns ErrInvalidChunkSize;
// it is never silently corrected.
func Chunk[T any](items []T, size int) ([][]T, error) {
	if size < 1 {
		return nil, ErrInvalidChunkSize
	}

	if len(items) == 0 {
		return nil, nil
	}

	chunkCount := (len(items) + size - 1) / size
	chunks := make([][]T, 0, chunkCount)

	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}

	return chunks, nil
}
