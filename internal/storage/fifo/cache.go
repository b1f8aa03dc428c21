package fifo

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// ───────────────────────────────────────────────────────────────────────────
// FifoFileCache
// ───────────────────────────────────────────────────────────────────────────

// FifoFileCache is the public facade over the version vector and the write
// manager. A single instance may be shared freely across goroutines: Write
// serializes all writers behind an internal mutex, while Read takes no lock
// at all and relies on the post-read version check.
type FifoFileCache struct {
	versions *versionVector
	pageSize uint64
	path     string
	codec    Codec

	mu     sync.Mutex // guards writer and closed
	writer *writeManager
	closed bool

	writes    atomic.Uint64
	reads     atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New opens (creating if necessary) the backing file at path and returns a
// cache of capacity bytes split into fixed pages of pageSize bytes.
//
// Preconditions, checked fast: pageSize >= 1, capacity a positive multiple of
// pageSize, and capacity/pageSize >= MinPageCount. The file is not truncated
// and not pre-allocated; it grows as pages are first written.
func New(path string, pageSize, capacity int, codec Codec) (*FifoFileCache, error) {
	if pageSize < 1 {
		return nil, fmt.Errorf("fifo: page size must be >= 1, got %d", pageSize)
	}
	if capacity <= 0 || capacity%pageSize != 0 {
		return nil, fmt.Errorf("fifo: capacity %d is not a positive multiple of page size %d", capacity, pageSize)
	}
	pageCount := capacity / pageSize
	if pageCount < MinPageCount {
		return nil, fmt.Errorf("fifo: capacity %d holds %d page(s), need at least %d", capacity, pageCount, MinPageCount)
	}
	if codec == nil {
		codec = GobCodec{}
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("fifo: open backing file: %w", err)
	}

	c := &FifoFileCache{
		versions: newVersionVector(pageCount),
		pageSize: uint64(pageSize),
		path:     path,
		codec:    codec,
	}
	c.writer = &writeManager{
		versions:  c.versions,
		file:      file,
		pageSize:  c.pageSize,
		evictions: &c.evictions,
	}
	return c, nil
}

// Write serializes value and stores it at the write cursor, returning a
// receipt that can later be redeemed with Read. If the cursor's current page
// cannot hold the serialized bytes, the cache first advances to the next page
// in cyclic order, invalidating whatever that page held.
//
// A value whose serialized form exceeds the page size is rejected with
// ErrValueTooLarge before any cursor motion.
func (c *FifoFileCache) Write(value any) (WriteReceipt, error) {
	data, err := c.codec.Encode(value)
	if err != nil {
		return WriteReceipt{}, fmt.Errorf("fifo: encode value: %w", err)
	}
	if uint64(len(data)) > c.pageSize {
		return WriteReceipt{}, fmt.Errorf("fifo: %w: %d > %d", ErrValueTooLarge, len(data), c.pageSize)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return WriteReceipt{}, ErrClosed
	}
	c.writer.advanceIfNeeded(uint64(len(data)))
	r, err := c.writer.writeData(data)
	if err != nil {
		return WriteReceipt{}, err
	}
	c.writes.Add(1)
	return r, nil
}

// Read redeems a receipt. It opens an independent read handle, reads exactly
// r.Length bytes at the receipt's physical offset, and then re-checks the
// page's version. If the version still matches, the bytes are decoded into
// out (which must be a pointer) and Read reports (true, nil). If the page has
// been recycled since the receipt was issued, Read reports a miss:
// (false, nil). A miss is not an error.
//
// Readers never block writers and never block each other. A reader racing a
// wrap may observe a torn mixture of old and new bytes, but the version check
// is performed after the read, so such bytes are always rejected as a miss.
//
// Receipts with impossible geometry (page id out of range, or a byte range
// that escapes its page) panic: they cannot have come from Write and indicate
// a caller bug. Receipts fabricated for never-written pages pass the version
// check at version 0 and decode undefined file bytes; callers must only
// redeem receipts that originated from Write. A decode failure on a
// version-valid page indicates corruption and is returned as an error rather
// than downgraded to a miss.
func (c *FifoFileCache) Read(r WriteReceipt, out any) (bool, error) {
	if uint64(r.PageID) >= c.versions.pageCount() {
		panic(fmt.Sprintf("fifo: receipt page %d out of range (page count %d)", r.PageID, c.versions.pageCount()))
	}
	if r.Length > c.pageSize || uint64(r.PageOffset) > c.pageSize || uint64(r.PageOffset)+r.Length > c.pageSize {
		panic(fmt.Sprintf("fifo: receipt range [%d,+%d) escapes page of %d bytes", r.PageOffset, r.Length, c.pageSize))
	}
	c.reads.Add(1)

	file, err := os.Open(c.path)
	if err != nil {
		return false, fmt.Errorf("fifo: open for read: %w", err)
	}
	defer file.Close()

	buf := make([]byte, r.Length)
	off := int64(uint64(r.PageID)*c.pageSize + uint64(r.PageOffset))
	if _, err := file.ReadAt(buf, off); err != nil {
		return false, fmt.Errorf("fifo: read page %d: %w", r.PageID, err)
	}

	if c.versions.load(r.PageID) != r.Version {
		c.misses.Add(1)
		return false, nil
	}

	if err := c.codec.Decode(buf, out); err != nil {
		return false, fmt.Errorf("fifo: decode page %d at %d: %w", r.PageID, r.PageOffset, err)
	}
	return true, nil
}

// Close closes the write handle. Further writes fail with ErrClosed; reads
// keep working as long as the backing file exists. Close is idempotent.
func (c *FifoFileCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.writer.file.Close(); err != nil {
		return fmt.Errorf("fifo: close backing file: %w", err)
	}
	return nil
}

// Stats returns a snapshot of the activity counters.
func (c *FifoFileCache) Stats() CacheStats {
	return CacheStats{
		Writes:    c.writes.Load(),
		Reads:     c.reads.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// PageSize returns the configured page size in bytes.
func (c *FifoFileCache) PageSize() int { return int(c.pageSize) }

// PageCount returns the number of physical pages.
func (c *FifoFileCache) PageCount() int { return int(c.versions.pageCount()) }

// Capacity returns the total usable bytes (page size times page count).
func (c *FifoFileCache) Capacity() int { return int(c.pageSize * c.versions.pageCount()) }

// Path returns the backing file path.
func (c *FifoFileCache) Path() string { return c.path }

// Version returns the current version of page id. Intended for inspection and
// tests; redeeming receipts should go through Read.
func (c *FifoFileCache) Version(id PageID) PageVersion {
	return c.versions.load(id)
}
