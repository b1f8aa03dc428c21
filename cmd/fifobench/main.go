// Command fifobench drives a FIFO file cache with a keyed read/write
// workload: one paced writer over uniform-random keys, several readers
// redeeming receipts for Zipf-distributed keys. Every write and every read
// hit lands in a CSV trace; run summaries can be appended to a sqlite
// database for comparison across runs.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/SimonWaldherr/tinyFIFO/internal/bench"
)

// Flags
var (
	flagConfig  = flag.String("config", "", "YAML workload config (built-in defaults if empty)")
	flagCache   = flag.String("cache", "", "override backing file path")
	flagTrace   = flag.String("trace", "", "override trace CSV path")
	flagResults = flag.String("results", "", "override sqlite results path")
	flagWrites  = flag.Int("writes", 0, "override total write count")
	flagReaders = flag.Int("readers", 0, "override reader goroutine count")
	flagSeed    = flag.Int64("seed", 0, "override workload seed (0 = keep the config seed)")
)

func main() {
	flag.Parse()

	cfg := bench.DefaultConfig()
	if *flagConfig != "" {
		var err error
		cfg, err = bench.LoadConfig(*flagConfig)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	if *flagCache != "" {
		cfg.CachePath = *flagCache
	}
	if *flagTrace != "" {
		cfg.TracePath = *flagTrace
	}
	if *flagResults != "" {
		cfg.ResultsDB = *flagResults
	}
	if *flagWrites > 0 {
		cfg.Writes = *flagWrites
	}
	if *flagReaders > 0 {
		cfg.Readers = *flagReaders
	}
	if *flagSeed != 0 {
		cfg.Seed = *flagSeed
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	res, err := bench.Run(cfg)
	if err != nil {
		log.Printf("run failed: %v", err)
		os.Exit(1)
	}

	fmt.Print(res.Summary())
	if cfg.TracePath != "" {
		fmt.Printf("trace written to %s\n", cfg.TracePath)
	}
	if cfg.ResultsDB != "" {
		fmt.Printf("results appended to %s\n", cfg.ResultsDB)
	}
}
