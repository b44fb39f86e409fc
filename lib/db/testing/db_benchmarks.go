package testing

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/bronzeKV/lib/db"
	"github.com/ValentinKolb/bronzeKV/lib/kv"
)

// RunEngineBenchmarks runs all benchmarks for an Engine implementation
func RunEngineBenchmarks(b *testing.B, name string, factory DBFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory(b))
		})

		b.Run("SetExisting", func(b *testing.B) {
			benchmarkSetExisting(b, factory(b))
		})

		b.Run("SetLargeValue", func(b *testing.B) {
			benchmarkSetLargeValue(b, factory(b))
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory(b))
		})

		b.Run("Delete", func(b *testing.B) {
			benchmarkDelete(b, factory(b))
		})

		b.Run("Scan100", func(b *testing.B) {
			benchmarkScan(b, factory(b), 100)
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory(b))
		})
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func benchKey(i int) kv.Key {
	return kv.Key(fmt.Sprintf("test-key-%08d", i))
}

func benchValue(i int) kv.Value {
	return kv.Value(fmt.Sprintf("test-value-%d", i))
}

// fill writes numKeys sequential keys
func fill(b *testing.B, engine db.Engine, numKeys int) {
	for i := 0; i < numKeys; i++ {
		if err := engine.Set(benchKey(i), benchValue(i)); err != nil {
			b.Fatal(err)
		}
	}
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Set operation
func benchmarkSet(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		_ = engine.Close()
	})

	requireFeature(b, engine, db.FeatureSet)

	var counter atomic.Int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := int(counter.Add(1))
			_ = engine.Set(benchKey(i), benchValue(i))
		}
	})
}

// Benchmark for Set operation with existing keys
func benchmarkSetExisting(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		_ = engine.Close()
	})

	requireFeature(b, engine, db.FeatureSet)

	numKeys := 10000
	fill(b, engine, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			_ = engine.Set(benchKey(counter%numKeys), benchValue(counter))
			counter++
		}
	})
}

// Benchmark for Set operation with values of the maximum size
func benchmarkSetLargeValue(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		_ = engine.Close()
	})

	requireFeature(b, engine, db.FeatureSet)

	largeValue := make(kv.Value, kv.MaxValueLen)
	var counter atomic.Int64
	b.SetBytes(int64(len(largeValue)))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = engine.Set(benchKey(int(counter.Add(1))), largeValue)
		}
	})
}

// Parallel benchmarking for Get operation
func benchmarkGet(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		_ = engine.Close()
	})

	requireFeature(b, engine, db.FeatureSet|db.FeatureGet)

	numKeys := 10000
	fill(b, engine, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			_, _, _ = engine.Get(benchKey(counter % numKeys))
			counter++
		}
	})
}

// Parallel benchmarking for Delete operation
func benchmarkDelete(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		_ = engine.Close()
	})

	requireFeature(b, engine, db.FeatureSet|db.FeatureDelete)

	numKeys := 100000
	if b.N < numKeys {
		numKeys = b.N
	}
	fill(b, engine, numKeys)

	var counter atomic.Int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := int(counter.Add(1)) % numKeys
			_ = engine.Delete(benchKey(i))
		}
	})
}

// Benchmark for range scans returning scanLen entries
func benchmarkScan(b *testing.B, engine db.Engine, scanLen int) {
	b.Cleanup(func() {
		_ = engine.Close()
	})

	requireFeature(b, engine, db.FeatureSet|db.FeatureScan)

	numKeys := 10000
	fill(b, engine, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			start := r.Intn(numKeys - scanLen)
			scanner, err := engine.Scan(kv.Inclusive(benchKey(start)), kv.Inclusive(benchKey(start+scanLen-1)))
			if err != nil {
				b.Error(err)
				return
			}
			for _, err := range scanner.Entries() {
				if err != nil {
					b.Error(err)
					return
				}
			}
		}
	})
}

// Mixed workload: 70% reads, 20% writes, 10% deletes
func benchmarkMixedUsage(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		_ = engine.Close()
	})

	requireFeature(b, engine, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	numKeys := 10000
	fill(b, engine, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			i := r.Intn(numKeys)
			switch op := r.Intn(10); {
			case op < 7:
				_, _, _ = engine.Get(benchKey(i))
			case op < 9:
				_ = engine.Set(benchKey(i), benchValue(i))
			default:
				_ = engine.Delete(benchKey(i))
			}
		}
	})
}
