// Package tinyfifo provides a fixed-capacity, file-backed FIFO page cache
// for Go applications.
//
// TinyFIFO is a secondary-storage tier meant to sit behind an in-memory
// index: callers hand it serializable values and get back opaque write
// receipts, which can later be redeemed for the value — as long as the FIFO
// eviction of the underlying page has not recycled the storage. Staleness is
// detected through per-page version counters, which let concurrent readers
// run lock-free against a single writer.
//
// # Basic Usage
//
// Create a cache, write a value, redeem the receipt:
//
//	cache, err := tinyfifo.New("scratch.cache", 4096, 4096*64, tinyfifo.GobCodec{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer cache.Close()
//
//	receipt, err := cache.Write(myValue)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	var got MyValue
//	ok, err := cache.Read(receipt, &got)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if !ok {
//		// The page was recycled; the value is gone. Not an error.
//	}
//
// # Eviction Model
//
// The backing file is an array of fixed-size pages written in strict cyclic
// order. When the write cursor wraps onto a page, that page's version is
// bumped before any new byte is written, permanently staling every receipt
// issued for its previous generation. There is no recency or frequency
// tracking, no durability across restarts, and no crash recovery: the file
// is scratch space.
//
// # Codecs
//
// Values pass through a Codec. GobCodec (the default) handles any
// gob-encodable type; RawCodec stores []byte verbatim and uint64 as fixed
// 8-byte words for exact page-packing control.
package tinyfifo

import (
	"github.com/SimonWaldherr/tinyFIFO/internal/storage/fifo"
)

// ============================================================================
// Core Types - Re-exported from internal packages for public API
// ============================================================================

type (
	// FifoFileCache is the cache itself; see internal/storage/fifo.
	FifoFileCache = fifo.FifoFileCache

	// WriteReceipt locates a stored value and records the page version it
	// was written under.
	WriteReceipt = fifo.WriteReceipt

	// Codec serializes values into stored byte ranges and back.
	Codec = fifo.Codec

	// GobCodec encodes values with encoding/gob (the default).
	GobCodec = fifo.GobCodec

	// RawCodec stores []byte verbatim and uint64 as 8 little-endian bytes.
	RawCodec = fifo.RawCodec

	// CacheStats is a snapshot of cache activity counters.
	CacheStats = fifo.CacheStats

	// PageID identifies a physical page slot.
	PageID = fifo.PageID

	// PageOffset is a byte offset within a page.
	PageOffset = fifo.PageOffset

	// PageVersion is a page's monotonic version counter value.
	PageVersion = fifo.PageVersion
)

// Sentinel errors.
var (
	ErrValueTooLarge = fifo.ErrValueTooLarge
	ErrClosed        = fifo.ErrClosed
)

// MinPageCount is the minimum number of pages a cache must have.
const MinPageCount = fifo.MinPageCount

// New opens (creating if necessary) the backing file at path and returns a
// FIFO page cache of capacity bytes split into pageSize-byte pages. A nil
// codec selects GobCodec.
func New(path string, pageSize, capacity int, codec Codec) (*FifoFileCache, error) {
	return fifo.New(path, pageSize, capacity, codec)
}
