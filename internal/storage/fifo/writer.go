package fifo

import (
	"fmt"
	"os"
	"sync/atomic"
)

// ───────────────────────────────────────────────────────────────────────────
// Write manager
// ───────────────────────────────────────────────────────────────────────────

// writeManager owns the write cursor (current page id, intra-page offset) and
// the long-lived write handle. It is guarded by the facade's writer mutex;
// none of its methods are safe for concurrent use.
type writeManager struct {
	versions *versionVector
	file     *os.File
	pageSize uint64

	// Write cursor. Invariant: writePageID < versions.pageCount() and
	// writeOffset <= pageSize. Starts at (0, 0); page 0 is filled at
	// version 0 without an initial bump.
	writePageID PageID
	writeOffset uint64

	evictions *atomic.Uint64
}

// advanceIfNeeded moves the cursor to the next page when a value of the given
// size would not fit into the current one. The next page's version is bumped
// BEFORE the cursor moves, so no byte of the new generation can land on a
// page whose old receipts still pass the version check. A write that exactly
// fills a page does not trigger an advance until the next write arrives.
//
// The caller must ensure valueSize <= pageSize.
func (m *writeManager) advanceIfNeeded(valueSize uint64) {
	if m.writeOffset+valueSize <= m.pageSize {
		return
	}
	next := PageID((uint64(m.writePageID) + 1) % m.versions.pageCount())
	m.versions.bump(next)
	m.evictions.Add(1)
	m.writePageID = next
	m.writeOffset = 0
}

// writeData writes data at the cursor's physical offset and returns a receipt
// stamped with the current version of the target page. The cursor offset is
// advanced past the written bytes; the caller has already guaranteed that the
// value fits in the current page.
func (m *writeManager) writeData(data []byte) (WriteReceipt, error) {
	off := int64(uint64(m.writePageID)*m.pageSize + m.writeOffset)
	if _, err := m.file.WriteAt(data, off); err != nil {
		return WriteReceipt{}, fmt.Errorf("fifo: write page %d: %w", m.writePageID, err)
	}
	r := WriteReceipt{
		PageID:     m.writePageID,
		PageOffset: PageOffset(m.writeOffset),
		Version:    m.versions.load(m.writePageID),
		Length:     uint64(len(data)),
	}
	m.writeOffset += uint64(len(data))
	return r, nil
}
