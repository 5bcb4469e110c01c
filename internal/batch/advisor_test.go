package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimalBatchSize(t *testing.T) {
	tests := []struct {
		name              string
		itemSizeBytes     int
		availableMemoryMB int
		maxBatchSize      int
		want              int
	}{
		{
			name:              "memory allows more than max, clamps to max",
			itemSizeBytes:     1024,
			availableMemoryMB: 10,
			maxBatchSize:      5000,
			want:              5000,
		},
		{
			name:              "memory is the binding constraint",
			itemSizeBytes:     1024 * 1024,
			availableMemoryMB: 16,
			maxBatchSize:      5000,
			want:              16,
		},
		{
			name:              "tiny budget clamps to one",
			itemSizeBytes:     10 * 1024 * 1024,
			availableMemoryMB: 1,
			maxBatchSize:      5000,
			want:              1,
		},
		{
			name:              "zero memory clamps to one",
			itemSizeBytes:     1024,
			availableMemoryMB: 0,
			maxBatchSize:      100,
			want:              1,
		},
		{
			name:              "non-positive item size treated as one byte",
			itemSizeBytes:     0,
			availableMemoryMB: 1,
			maxBatchSize:      500,
			want:              500,
		},
		{
			name:              "non-positive max clamps result to one",
			itemSizeBytes:     1,
			availableMemoryMB: 1,
			maxBatchSize:      0,
			want:              1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OptimalBatchSize(tt.itemSizeBytes, tt.availableMemoryMB, tt.maxBatchSize)
			assert.Equal(t, tt.want, got)
		})
	}
}
