package util

import (
	"math"
	"sync"

	"github.com/ValentinKolb/bronzeKV/lib/kv"
)

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

// SizeHistogram tracks the distribution of key or value sizes.
// Its buckets cover the range from empty up to kv.MaxValueLen.
type SizeHistogram struct {
	mutex      sync.RWMutex
	boundaries []int   // Upper bucket boundaries (inclusive)
	buckets    []int64 // Count of items in each bucket
	count      int64   // Total number of samples
	sum        int64   // Sum of all sampled sizes
}

// SizeSummary is the JSON friendly digest of a SizeHistogram
type SizeSummary struct {
	Samples int64 `json:"samples"`
	Average int   `json:"average"`
	Median  int   `json:"median"`
	P99     int   `json:"p99"`
}

// NewSizeHistogram creates a new size histogram with buckets up to kv.MaxValueLen
func NewSizeHistogram() *SizeHistogram {
	boundaries := []int{0, 8, 16, 32, 64, 128, kv.MaxKeyLen, 512, 1024, 2048, kv.MaxValueLen}
	return &SizeHistogram{
		boundaries: boundaries,
		buckets:    make([]int64, len(boundaries)),
	}
}

// AddSample adds a size sample to the histogram. Sizes above the last boundary
// are counted in the last bucket.
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) AddSample(size int) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	bucketIndex := len(h.boundaries) - 1
	for i, boundary := range h.boundaries {
		if size <= boundary {
			bucketIndex = i
			break
		}
	}

	h.buckets[bucketIndex]++
	h.count++
	h.sum += int64(size)
}

// GetCount returns the total number of samples
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) GetCount() int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.count
}

// AverageSize returns the average size across all samples
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) AverageSize() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.count == 0 {
		return 0
	}
	return int(h.sum / h.count)
}

// GetPercentileEstimate returns an estimate for the given percentile (0-100).
// The estimate is the upper boundary of the bucket the percentile falls into.
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) GetPercentileEstimate(percentile int) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.count == 0 || percentile < 0 || percentile > 100 {
		return 0
	}

	targetCount := int64(math.Ceil(float64(h.count) * float64(percentile) / 100.0))
	cumulativeCount := int64(0)
	for i, count := range h.buckets {
		cumulativeCount += count
		if cumulativeCount >= targetCount {
			return h.boundaries[i]
		}
	}

	return h.boundaries[len(h.boundaries)-1]
}

// Summary returns average, median and p99 in a single struct
func (h *SizeHistogram) Summary() SizeSummary {
	return SizeSummary{
		Samples: h.GetCount(),
		Average: h.AverageSize(),
		Median:  h.GetPercentileEstimate(50),
		P99:     h.GetPercentileEstimate(99),
	}
}
