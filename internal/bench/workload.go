package bench

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/SimonWaldherr/tinyFIFO/internal/sizeof"
	"github.com/SimonWaldherr/tinyFIFO/internal/storage/fifo"
)

// Value is the payload the harness stores: each key maps to a value carrying
// the key itself, so any hit can be verified against the key that produced it.
type Value struct {
	Key uint64
}

// item is one slot of the shadow index: the current receipt for a key, or
// nothing if the key has never been written. The index is the "external
// collaborator" of the cache: the core itself stays keyless.
type item struct {
	mu      sync.RWMutex
	receipt fifo.WriteReceipt
	valid   bool
}

func (it *item) update(r fifo.WriteReceipt) {
	it.mu.Lock()
	it.receipt = r
	it.valid = true
	it.mu.Unlock()
}

func (it *item) current() (fifo.WriteReceipt, bool) {
	it.mu.RLock()
	r, ok := it.receipt, it.valid
	it.mu.RUnlock()
	return r, ok
}

// Result summarizes one workload run.
type Result struct {
	RunID      string
	StartedAt  time.Time
	Elapsed    time.Duration
	Reads      uint64 // reads that found a receipt in the index
	Hits       uint64
	Misses     uint64
	Stats      fifo.CacheStats
	WorkingSet int // deep size of the shadow index, bytes
	Config     Config
}

// Run executes the workload described by cfg against a fresh cache: one
// writer storing uniform-random keys, cfg.Readers goroutines redeeming
// receipts for Zipf-distributed keys, both paced by sleeps. Every hit is
// verified against its key; a mismatch aborts the run with an error.
func Run(cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cachePath := cfg.CachePath
	if cachePath == "" {
		cachePath = filepath.Join(os.TempDir(), uuid.NewString()+".cache")
		defer os.Remove(cachePath)
	}
	cache, err := fifo.New(cachePath, cfg.PageSize, cfg.Capacity, fifo.GobCodec{})
	if err != nil {
		return nil, err
	}
	defer cache.Close()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	items := make([]item, cfg.Keys)

	var events chan TraceEvent
	var trace *traceWriter
	if cfg.TracePath != "" {
		events = make(chan TraceEvent, 1024)
		trace, err = newTraceWriter(cfg.TracePath, events)
		if err != nil {
			return nil, err
		}
	}
	emit := func(ev TraceEvent) {
		if events != nil {
			events <- ev
		}
	}

	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Config:    cfg,
	}

	var (
		reads, hits, misses atomic.Uint64

		errMu    sync.Mutex
		firstErr error // first verification/IO failure
	)
	fail := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}

	start := time.Now()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		rng := rand.New(rand.NewSource(seed))
		for i := 0; i < cfg.Writes; i++ {
			key := uint64(rng.Intn(cfg.Keys))
			opStart := time.Now()
			r, err := cache.Write(Value{Key: key})
			if err != nil {
				fail(fmt.Errorf("bench: write key %d: %w", key, err))
				return
			}
			emit(TraceEvent{Op: "write", Receipt: r, Duration: time.Since(opStart)})
			items[key].update(r)
			if cfg.WritePause > 0 {
				time.Sleep(time.Duration(cfg.WritePause))
			}
		}
	}()

	for g := 0; g < cfg.Readers; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed + int64(g) + 1))
			zipf := rand.NewZipf(rng, cfg.ZipfS, cfg.ZipfV, uint64(cfg.Keys-1))
			for i := 0; i < cfg.ReadsPerReader; i++ {
				key := zipf.Uint64()
				r, ok := items[key].current()
				if ok {
					opStart := time.Now()
					var v Value
					hit, err := cache.Read(r, &v)
					if err != nil {
						fail(fmt.Errorf("bench: read key %d: %w", key, err))
						return
					}
					reads.Add(1)
					if hit {
						if v.Key != key {
							fail(fmt.Errorf("bench: key %d read back as %d under a valid version", key, v.Key))
							return
						}
						hits.Add(1)
						emit(TraceEvent{Op: "read", Receipt: r, Duration: time.Since(opStart)})
					} else {
						misses.Add(1)
					}
				}
				if cfg.ReadPause > 0 {
					time.Sleep(time.Duration(cfg.ReadPause))
				}
			}
		}(g)
	}

	wg.Wait()
	res.Elapsed = time.Since(start)

	if events != nil {
		close(events)
		if err := trace.close(); err != nil {
			return nil, fmt.Errorf("bench: trace writer: %w", err)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	res.Reads = reads.Load()
	res.Hits = hits.Load()
	res.Misses = misses.Load()
	res.Stats = cache.Stats()
	res.WorkingSet = sizeof.Of(items)

	if cfg.ResultsDB != "" {
		if err := saveResult(cfg.ResultsDB, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}
