package fifo

import (
	"path/filepath"
	"testing"
)

func benchCache(b *testing.B, codec Codec) *FifoFileCache {
	b.Helper()
	path := filepath.Join(b.TempDir(), "bench.cache")
	c, err := New(path, 4096, 4096*64, codec)
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	b.Cleanup(func() { _ = c.Close() })
	return c
}

func BenchmarkWrite_Raw(b *testing.B) {
	c := benchCache(b, RawCodec{})
	payload := make([]byte, 128)
	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Write(payload); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWrite_Gob(b *testing.B) {
	c := benchCache(b, GobCodec{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Write(testValue{Value: uint64(i)}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRead_Hit(b *testing.B) {
	c := benchCache(b, RawCodec{})
	r, err := c.Write(make([]byte, 128))
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(128)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var out []byte
		ok, err := c.Read(r, &out)
		if err != nil {
			b.Fatal(err)
		}
		if !ok {
			b.Fatal("unexpected miss")
		}
	}
}

func BenchmarkRead_Miss(b *testing.B) {
	c := benchCache(b, RawCodec{})
	r, err := c.Write(make([]byte, 128))
	if err != nil {
		b.Fatal(err)
	}
	// Cycle the cursor through every page so the receipt goes stale.
	for i := 0; i < c.PageCount()+1; i++ {
		if _, err := c.Write(make([]byte, 4096)); err != nil {
			b.Fatal(err)
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var out []byte
		ok, err := c.Read(r, &out)
		if err != nil {
			b.Fatal(err)
		}
		if ok {
			b.Fatal("expected miss")
		}
	}
}
