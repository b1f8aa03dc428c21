// Package benchmarks compares the tinyFIFO cache against a sqlite key/value
// table for the two operations the cache exists for: storing an opaque blob
// and getting it back. The comparison is deliberately unfair to sqlite in
// features (no keys, no durability in tinyFIFO) — that gap is the point of
// having a scratch tier.
package benchmarks

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	tfifo "github.com/SimonWaldherr/tinyFIFO"

	_ "modernc.org/sqlite"
)

// ═══════════════════════════════════════════════════════════════════════════
// Helpers
// ═══════════════════════════════════════════════════════════════════════════

func tmpDir(b *testing.B) string {
	b.Helper()
	dir, err := os.MkdirTemp("", "tinyfifo_bench_*")
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

type backendOps struct {
	// put stores payload under seq and returns a token for get.
	put func(seq uint64, payload []byte) any
	// get retrieves the payload for a token; reports whether it was found.
	get   func(token any) bool
	close func()
}

type backendEntry struct {
	name string
	open func(b *testing.B, payloadSize int) backendOps
}

func backends() []backendEntry {
	return []backendEntry{
		{"tinyFIFO", openFifo},
		{"SQLite-modernc", openSQLite},
	}
}

// ── tinyFIFO ──────────────────────────────────────────────────────────────

func openFifo(b *testing.B, payloadSize int) backendOps {
	b.Helper()
	dir := tmpDir(b)
	cache, err := tfifo.New(filepath.Join(dir, "bench.cache"), 4096, 4096*256, tfifo.RawCodec{})
	if err != nil {
		b.Fatal(err)
	}
	return backendOps{
		put: func(seq uint64, payload []byte) any {
			r, err := cache.Write(payload)
			if err != nil {
				b.Fatal(err)
			}
			return r
		},
		get: func(token any) bool {
			var out []byte
			ok, err := cache.Read(token.(tfifo.WriteReceipt), &out)
			if err != nil {
				b.Fatal(err)
			}
			return ok
		},
		close: func() { cache.Close() },
	}
}

// ── SQLite via modernc (pure Go) ─────────────────────────────────────────

func openSQLite(b *testing.B, payloadSize int) backendOps {
	b.Helper()
	dir := tmpDir(b)
	db, err := sql.Open("sqlite", filepath.Join(dir, "bench.sqlite3"))
	if err != nil {
		b.Fatal(err)
	}
	// WAL mode + relaxed sync for fair comparison (tinyFIFO never fsyncs).
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA synchronous=NORMAL")
	if _, err := db.Exec("CREATE TABLE kv (seq INTEGER PRIMARY KEY, payload BLOB)"); err != nil {
		b.Fatal(err)
	}
	return backendOps{
		put: func(seq uint64, payload []byte) any {
			if _, err := db.Exec("INSERT OR REPLACE INTO kv VALUES (?, ?)", seq, payload); err != nil {
				b.Fatal(err)
			}
			return seq
		},
		get: func(token any) bool {
			var out []byte
			err := db.QueryRow("SELECT payload FROM kv WHERE seq = ?", token.(uint64)).Scan(&out)
			if err == sql.ErrNoRows {
				return false
			}
			if err != nil {
				b.Fatal(err)
			}
			return true
		},
		close: func() { db.Close() },
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Benchmark: Put — store one opaque payload
// ═══════════════════════════════════════════════════════════════════════════

func BenchmarkPut(b *testing.B) {
	payloadSizes := []int{64, 512, 4096}

	for _, ps := range payloadSizes {
		for _, be := range backends() {
			b.Run(fmt.Sprintf("%s/bytes=%d", be.name, ps), func(b *testing.B) {
				ops := be.open(b, ps)
				defer ops.close()
				payload := make([]byte, ps)

				b.SetBytes(int64(ps))
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					ops.put(uint64(i), payload)
				}
			})
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Benchmark: Get — retrieve a recently stored payload
// ═══════════════════════════════════════════════════════════════════════════

func BenchmarkGet(b *testing.B) {
	payloadSizes := []int{64, 512}

	for _, ps := range payloadSizes {
		for _, be := range backends() {
			b.Run(fmt.Sprintf("%s/bytes=%d", be.name, ps), func(b *testing.B) {
				ops := be.open(b, ps)
				defer ops.close()
				token := ops.put(0, make([]byte, ps))

				b.SetBytes(int64(ps))
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if !ops.get(token) {
						b.Fatal("payload not found")
					}
				}
			})
		}
	}
}
