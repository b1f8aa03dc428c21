package fifo

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
)

// ───────────────────────────────────────────────────────────────────────────
// Value codecs
// ───────────────────────────────────────────────────────────────────────────

// Codec serializes values into the byte ranges the cache stores and back.
// Encodings must be deterministic for a given value and round-trippable, and
// must not depend on ambient state: the cache stores each value as an
// independent byte range, so stream-stateful encoders cannot be shared
// across values. No length prefix is needed; the receipt records the exact
// byte count.
type Codec interface {
	Encode(value any) ([]byte, error)
	Decode(data []byte, out any) error
}

// GobCodec encodes values with encoding/gob, using a fresh encoder per value
// so that type descriptors are self-contained in every stored range. It
// handles any gob-encodable type and is the default codec.
type GobCodec struct{}

func (GobCodec) Encode(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) Decode(data []byte, out any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(out)
}

// RawCodec stores []byte values verbatim and uint64 values as 8 fixed
// little-endian bytes. It trades generality for exact, minimal geometry,
// which makes page packing predictable.
type RawCodec struct{}

func (RawCodec) Encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return append([]byte(nil), v...), nil
	case uint64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, v)
		return buf, nil
	default:
		return nil, fmt.Errorf("raw codec: unsupported type %T", value)
	}
}

func (RawCodec) Decode(data []byte, out any) error {
	switch p := out.(type) {
	case *[]byte:
		*p = append([]byte(nil), data...)
		return nil
	case *uint64:
		if len(data) != 8 {
			return fmt.Errorf("raw codec: uint64 needs 8 bytes, got %d", len(data))
		}
		*p = binary.LittleEndian.Uint64(data)
		return nil
	default:
		return fmt.Errorf("raw codec: unsupported target type %T", out)
	}
}
