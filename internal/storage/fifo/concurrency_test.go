package fifo

import (
	"encoding/binary"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
)

// payloadFor builds a deterministic payload for a write sequence number, so
// concurrent readers can verify a hit byte-for-byte from the receipt alone.
func payloadFor(seq uint64, size int) []byte {
	buf := make([]byte, size)
	binary.LittleEndian.PutUint64(buf, seq)
	for i := 8; i < size; i++ {
		buf[i] = byte(seq + uint64(i))
	}
	return buf
}

func TestConcurrent_ReadersSeeValueOrMiss(t *testing.T) {
	// S5: one writer, many readers redeeming historical receipts at random.
	// Every hit must decode to the exact payload written under that receipt;
	// garbage is never returned.
	if testing.Short() {
		t.Skip("short mode")
	}

	const (
		pageSize    = 64
		pageCount   = 8
		writeTotal  = 10_000
		readerCount = 8
		payloadSize = 24
	)

	path := filepath.Join(t.TempDir(), "race.cache")
	c, err := New(path, pageSize, pageSize*pageCount, RawCodec{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	// Shared pool of historical receipts, keyed by write sequence.
	var (
		poolMu   sync.RWMutex
		receipts = make([]WriteReceipt, 0, writeTotal)
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for seq := uint64(0); seq < writeTotal; seq++ {
			r, err := c.Write(payloadFor(seq, payloadSize))
			if err != nil {
				t.Errorf("Write #%d: %v", seq, err)
				return
			}
			poolMu.Lock()
			receipts = append(receipts, r)
			poolMu.Unlock()
		}
	}()

	for i := 0; i < readerCount; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for n := 0; n < writeTotal; n++ {
				poolMu.RLock()
				size := len(receipts)
				if size == 0 {
					poolMu.RUnlock()
					continue
				}
				seq := rng.Intn(size)
				r := receipts[seq]
				poolMu.RUnlock()

				var out []byte
				ok, err := c.Read(r, &out)
				if err != nil {
					t.Errorf("Read %+v: %v", r, err)
					return
				}
				if !ok {
					// A miss is only legitimate once the page version moved
					// past the receipt's. The version is monotonic, so this
					// check cannot race back to a false failure.
					if v := c.Version(r.PageID); v == r.Version {
						t.Errorf("miss for %+v but page still at version %d", r, v)
						return
					}
					continue
				}
				want := payloadFor(uint64(seq), payloadSize)
				if string(out) != string(want) {
					t.Errorf("read #%d returned wrong bytes under valid version", seq)
					return
				}
			}
		}(int64(i + 1))
	}

	wg.Wait()
}

func TestConcurrent_VersionMonotonicUnderLoad(t *testing.T) {
	// Property 4 observed from a racing goroutine while the writer wraps.
	const pageCount = 4

	path := filepath.Join(t.TempDir(), "mono.cache")
	c, err := New(path, 16, 16*pageCount, RawCodec{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		last := make([]PageVersion, pageCount)
		for {
			select {
			case <-done:
				return
			default:
			}
			for p := PageID(0); p < pageCount; p++ {
				v := c.Version(p)
				if v < last[p] {
					t.Errorf("page %d version decreased: %d -> %d", p, last[p], v)
					return
				}
				last[p] = v
			}
		}
	}()

	for i := 0; i < 2_000; i++ {
		if _, err := c.Write(uint64(i)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	close(done)
	wg.Wait()

	// Every eviction bumps exactly one page version and nothing else does,
	// so the version sum must equal the eviction counter.
	var total PageVersion
	for p := PageID(0); p < pageCount; p++ {
		total += c.Version(p)
	}
	if uint64(total) != c.Stats().Evictions {
		t.Fatalf("version sum %d != eviction count %d", total, c.Stats().Evictions)
	}
}

func TestConcurrent_ParallelReadersOnStableData(t *testing.T) {
	// Readers share no state and take no locks; hammering one receipt from
	// many goroutines must always produce the same value.
	path := filepath.Join(t.TempDir(), "stable.cache")
	c, err := New(path, 32, 32*4, RawCodec{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	r, err := c.Write(uint64(777))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 500; n++ {
				var got uint64
				ok, err := c.Read(r, &got)
				if err != nil {
					t.Errorf("Read: %v", err)
					return
				}
				if !ok || got != 777 {
					t.Errorf("Read: ok=%v got=%d, want 777", ok, got)
					return
				}
			}
		}()
	}
	wg.Wait()
}
