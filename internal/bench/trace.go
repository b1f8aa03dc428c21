package bench

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/SimonWaldherr/tinyFIFO/internal/storage/fifo"
)

// TraceEvent records one cache operation for offline analysis.
type TraceEvent struct {
	Op       string // "read" or "write"
	Receipt  fifo.WriteReceipt
	Duration time.Duration
}

// traceWriter drains a channel of events into a CSV file with the columns
// operation_type, page_id, page_offset, version, duration_us.
type traceWriter struct {
	file *os.File
	csv  *csv.Writer
	done chan error
}

func newTraceWriter(path string, events <-chan TraceEvent) (*traceWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("bench: create trace file: %w", err)
	}
	w := &traceWriter{
		file: file,
		csv:  csv.NewWriter(file),
		done: make(chan error, 1),
	}
	go w.drain(events)
	return w, nil
}

func (w *traceWriter) drain(events <-chan TraceEvent) {
	if err := w.csv.Write([]string{"operation_type", "page_id", "page_offset", "version", "duration_us"}); err != nil {
		w.done <- err
		for range events {
		}
		return
	}
	for ev := range events {
		row := []string{
			ev.Op,
			strconv.FormatUint(uint64(ev.Receipt.PageID), 10),
			strconv.FormatUint(uint64(ev.Receipt.PageOffset), 10),
			strconv.FormatUint(uint64(ev.Receipt.Version), 10),
			strconv.FormatInt(ev.Duration.Microseconds(), 10),
		}
		if err := w.csv.Write(row); err != nil {
			w.done <- err
			for range events {
			}
			return
		}
	}
	w.csv.Flush()
	w.done <- w.csv.Error()
}

// close waits for the drain goroutine (the event channel must already be
// closed) and closes the file.
func (w *traceWriter) close() error {
	err := <-w.done
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}
