package bench

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const resultsSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	started_at   TEXT NOT NULL,
	elapsed_us   INTEGER NOT NULL,
	page_size    INTEGER NOT NULL,
	capacity     INTEGER NOT NULL,
	keys         INTEGER NOT NULL,
	readers      INTEGER NOT NULL,
	writes       INTEGER NOT NULL,
	reads        INTEGER NOT NULL,
	hits         INTEGER NOT NULL,
	misses       INTEGER NOT NULL,
	evictions    INTEGER NOT NULL,
	working_set  INTEGER NOT NULL
)`

// saveResult appends one run summary to the sqlite results database,
// creating it (and the runs table) on first use.
func saveResult(dbPath string, res *Result) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("bench: open results db: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(resultsSchema); err != nil {
		return fmt.Errorf("bench: create runs table: %w", err)
	}
	_, err = db.Exec(`INSERT INTO runs
		(id, started_at, elapsed_us, page_size, capacity, keys, readers,
		 writes, reads, hits, misses, evictions, working_set)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID,
		res.StartedAt.UTC().Format(time.RFC3339Nano),
		res.Elapsed.Microseconds(),
		res.Config.PageSize,
		res.Config.Capacity,
		res.Config.Keys,
		res.Config.Readers,
		res.Stats.Writes,
		res.Reads,
		res.Hits,
		res.Misses,
		res.Stats.Evictions,
		res.WorkingSet,
	)
	if err != nil {
		return fmt.Errorf("bench: insert run %s: %w", res.RunID, err)
	}
	return nil
}
