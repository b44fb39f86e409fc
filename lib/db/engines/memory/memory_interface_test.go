package memory

import (
	"testing"

	"github.com/ValentinKolb/bronzeKV/lib/db"
	dbtesting "github.com/ValentinKolb/bronzeKV/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunEngineTests(t, "MemoryDB", func(testing.TB) db.Engine {
		return NewMemoryDB(nil)
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunEngineBenchmarks(b, "MemoryDB", func(testing.TB) db.Engine {
		return NewMemoryDB(nil)
	})
}
