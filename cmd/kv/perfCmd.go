package kv

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/bronzeKV/cmd/util"
	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/ValentinKolb/bronzeKV/rpc/client"
	"github.com/cockroachdb/errors"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for bronzeKV servers",
		Long:    "Runs a series of parallel benchmarks against a server over a connection pool and reports throughput and latency percentiles per test",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix      = "__test"
	perfLargeValueSize = kv.MaxValueLen
	perfNumThreads     = 10
	perfKeySpread      = 100
	perfSkip           = make([]string, 0)
)

// perfPercentiles are the latency percentiles reported per test
var perfPercentiles = []float64{0.5, 0.99}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark, every thread uses its own connection"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, kv.MaxValueLen, util.WrapString(fmt.Sprintf("How large the value for the set-large test should be (in bytes, at most %d)", kv.MaxValueLen)))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSize = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfLargeValueSize < 0 || perfLargeValueSize > kv.MaxValueLen {
		return errors.Newf("large-value-size must be between 0 and %d", kv.MaxValueLen)
	}
	if perfKeySpread <= 0 || perfNumThreads <= 0 {
		return errors.New("keys and threads must be positive")
	}

	// at least one idle connection per thread
	if clientConfig.MaxIdle < perfNumThreads {
		clientConfig.MaxIdle = perfNumThreads
	}
	return nil
}

// perfResult is the outcome of a single benchmark
type perfResult struct {
	bench  testing.BenchmarkResult
	timer  metrics.Timer
	errors int64
}

// perfTest describes one benchmark, setup and cleanup are optional
type perfTest struct {
	name    string
	setup   func(conn client.IConnection, key func(int) kv.Key) error
	op      func(conn client.IConnection, key func(int) kv.Key, i int) error
	cleanup bool // delete all test keys afterwards
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for bronzeKV servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(clientConfig.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	pool := client.NewPool(*clientConfig, clientTransport)
	defer pool.Close()

	// Fail early if the server is not reachable
	conn, err := pool.Get()
	if err != nil {
		return err
	}
	if err := conn.Ping(); err != nil {
		return err
	}
	pool.Put(conn)

	fmt.Println("starting tests...")

	value := kv.Value("test")
	largeValue := make(kv.Value, perfLargeValueSize)

	setAll := func(conn client.IConnection, key func(int) kv.Key) error {
		for i := 0; i < perfKeySpread; i++ {
			if err := conn.Set(key(i), value); err != nil {
				return err
			}
		}
		return nil
	}

	tests := []perfTest{
		{
			name:    "set",
			op:      func(conn client.IConnection, key func(int) kv.Key, i int) error { return conn.Set(key(i), value) },
			cleanup: true,
		},
		{
			name:    "set-large",
			op:      func(conn client.IConnection, key func(int) kv.Key, i int) error { return conn.Set(key(i), largeValue) },
			cleanup: true,
		},
		{
			name:  "get",
			setup: setAll,
			op: func(conn client.IConnection, key func(int) kv.Key, i int) error {
				_, found, err := conn.Get(key(i))
				if err == nil && !found {
					err = errors.Newf("key %s not found", key(i))
				}
				return err
			},
			cleanup: true,
		},
		{
			name: "get-missing",
			op: func(conn client.IConnection, key func(int) kv.Key, i int) error {
				_, _, err := conn.Get(key(i))
				return err
			},
		},
		{
			name:  "delete",
			setup: setAll,
			op:    func(conn client.IConnection, key func(int) kv.Key, i int) error { return conn.Delete(key(i)) },
		},
		{
			name:  "scan",
			setup: setAll,
			op: func(conn client.IConnection, key func(int) kv.Key, i int) error {
				entries, err := conn.Scan(kv.Inclusive(key(0)), kv.Inclusive(key(perfKeySpread-1)))
				if err != nil {
					return err
				}
				for _, err := range entries {
					if err != nil {
						return err
					}
				}
				return nil
			},
			cleanup: true,
		},
		{
			name: "ping",
			op:   func(conn client.IConnection, _ func(int) kv.Key, _ int) error { return conn.Ping() },
		},
		{
			name:  "mixed",
			setup: setAll,
			op: func(conn client.IConnection, key func(int) kv.Key, i int) error {
				var err error
				switch i % 4 {
				case 0: // set
					err = conn.Set(key(i), value)
				case 1: // get
					_, _, err = conn.Get(key(i))
				case 2: // delete
					err = conn.Delete(key(i))
				case 3: // ping
					err = conn.Ping()
				}
				return err
			},
			cleanup: true,
		},
	}

	// Create results map
	registry := metrics.NewRegistry()
	results := make(map[string]perfResult)
	order := make([]string, 0, len(tests))

	for _, test := range tests {
		result := runPerfTest(pool, registry, test)
		results[test.name] = result
		order = append(order, test.name)
		printResult(test.name, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, order, results); err != nil {
			return errors.Wrap(err, "failed to export results to CSV")
		}
		fmt.Println("Export complete")
	}

	return nil
}

// runPerfTest runs test in parallel, every goroutine takes its own connection from the pool
func runPerfTest(pool client.IPool, registry metrics.Registry, test perfTest) perfResult {
	result := perfResult{timer: metrics.GetOrRegisterTimer(test.name, registry)}
	if shouldSkip(test.name) {
		return result
	}

	key := getKeys(test.name)
	var errCount atomic.Int64
	var firstErr atomic.Value

	recordErr := func(err error) {
		if errCount.Add(1) == 1 {
			firstErr.Store(err)
		}
	}

	result.bench = testing.Benchmark(func(b *testing.B) {
		conn, err := pool.Get()
		if err != nil {
			recordErr(err)
			return
		}

		if test.setup != nil {
			if err := test.setup(conn, key); err != nil {
				recordErr(err)
			}
		}

		// cleanup
		if test.cleanup {
			b.Cleanup(func() {
				for i := 0; i < perfKeySpread; i++ {
					if err := conn.Delete(key(i)); err != nil {
						recordErr(err)
						break
					}
				}
				pool.Put(conn)
			})
		} else {
			pool.Put(conn)
		}

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			conn, err := pool.Get()
			if err != nil {
				recordErr(err)
				return
			}
			defer pool.Put(conn)

			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := test.op(conn, key, counter); err != nil {
					recordErr(err)
				}
				result.timer.UpdateSince(start)
				counter++
			}
		})
	})

	result.errors = errCount.Load()
	if err, ok := firstErr.Load().(error); ok {
		fmt.Printf("(%s) - %d errors, first: %v\n", test.name, result.errors, err)
	}
	return result
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// getKeys returns a function mapping an index to one of perfKeySpread test keys (with wraparound)
func getKeys(prefix string) func(int) kv.Key {
	keys := make([]kv.Key, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = kv.Key(fmt.Sprintf("%s-%s-%05d", perfKeyPrefix, prefix, i))
	}
	return func(i int) kv.Key {
		return keys[i%perfKeySpread]
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	if result.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	ps := result.timer.Snapshot().Percentiles(perfPercentiles)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec, time.Duration(ps[0]), time.Duration(ps[1]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, order []string, results map[string]perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return errors.Wrap(err, "failed to create CSV file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50Ns", "P99Ns", "Errors", "Skipped",
		"Endpoint", "Transport", "TimeoutSec",
		"Threads", "LargeValueSize", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "failed to write CSV header")
	}

	// Write test results
	for _, test := range order {
		result := results[test]
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.bench.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		ps := result.timer.Snapshot().Percentiles(perfPercentiles)

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			strconv.FormatInt(result.errors, 10),
			skipped,
			clientConfig.Transport.Endpoint,
			string(clientConfig.Transport.Type),
			strconv.FormatInt(clientConfig.Transport.TimeoutSecond, 10),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSize),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write row for test %s", test)
		}
	}

	return nil
}
