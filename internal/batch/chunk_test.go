package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	t.Run("splits with short final chunk", func(t *testing.T) {
		items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

		chunks, err := Chunk(items, 3)

		require.NoError(t, err)
		assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {10}}, chunks)
	})

	t.Run("size larger than input yields single chunk", func(t *testing.T) {
		chunks, err := Chunk([]string{"a", "b"}, 10)

		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, []string{"a", "b"}, chunks[0])
	})

	t.Run("empty input yields no chunks", func(t *testing.T) {
		chunks, err := Chunk([]int{}, 3)

		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("invalid size is a configuration error", func(t *testing.T) {
		for _, size := range []int{0, -1} {
			_, err := Chunk([]int{1, 2, 3}, size)
			assert.ErrorIs(t, err, ErrInvalidChunkSize)
		}
	})
}

func TestChunkConcatenationReproducesInput(t *testing.T) {
	items := make([]int, 37)
	for i := range items {
		items[i] = i
	}

	for _, size := range []int{1, 2, 5, 7, 37, 100} {
		chunks, err := Chunk(items, size)
		require.NoError(t, err)

		var flattened []int
		for i, chunk := range chunks {
			// every chunk except possibly the last has exactly size elements
			if i < len(chunks)-1 {
				assert.Len(t, chunk, size)
			} else {
				assert.LessOrEqual(t, len(chunk), size)
				assert.NotEmpty(t, chunk)
			}
			flattened = append(flattened, chunk...)
		}

		assert.Equal(t, items, flattened, "size %d", size)
		assert.Len(t, chunks, (len(items)+size-1)/size)
	}
}
