package stats

import (
	"encoding/binary"
	"fmt"
)

// Serialize encodes every stat in (scope, interval) as a length-prefixed
// binary blob: a uint32 record count, then per record a StatCode
// (zigzag varint), a Kind byte, and the value encoded per its kind
// (int32/int64 as zigzag varint; uint32/uint64/timestamp/duration as
// fixed-width little-endian). This is the wire format the persist
// bridge's GetData hook writes.
func Serialize(s *Store, scope Scope, interval Interval) []byte {
	entries := s.snapshotAll(scope, interval)

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(entries)))

	for _, e := range entries {
		var codeBuf [binary.MaxVarintLen64]byte
		n := binary.PutVarint(codeBuf[:], int64(e.code))
		buf = append(buf, codeBuf[:n]...)
		buf = append(buf, byte(e.kind))
		buf = append(buf, encodeValue(e.kind, e.raw)...)
	}
	return buf
}

func encodeValue(kind Kind, raw int64) []byte {
	switch kind {
	case KindInt32, KindInt64:
		var b [binary.MaxVarintLen64]byte
		n := binary.PutVarint(b[:], raw)
		return b[:n]
	case KindUint32:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(raw))
		return b[:]
	case KindUint64, KindTimestamp, KindDuration:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(raw))
		return b[:]
	default:
		return nil
	}
}

// Deserialize populates store's (scope, interval) bucket from a blob
// produced by Serialize (the Persist bridge's SetData hook).
func Deserialize(store *Store, scope Scope, interval Interval, blob []byte) error {
	if len(blob) < 4 {
		return fmt.Errorf("stats: blob too short for record count")
	}
	count := binary.LittleEndian.Uint32(blob[:4])
	rest := blob[4:]

	for i := uint32(0); i < count; i++ {
		code, n := binary.Varint(rest)
		if n <= 0 {
			return fmt.Errorf("stats: truncated record %d: bad code varint", i)
		}
		rest = rest[n:]

		if len(rest) < 1 {
			return fmt.Errorf("stats: truncated record %d: missing kind byte", i)
		}
		kind := Kind(rest[0])
		rest = rest[1:]

		value, consumed, err := decodeValue(kind, rest)
		if err != nil {
			return fmt.Errorf("stats: record %d: %w", i, err)
		}
		rest = rest[consumed:]

		store.restore(scope, interval, StatCode(code), kind, value)
	}
	return nil
}

func decodeValue(kind Kind, buf []byte) (value int64, consumed int, err error) {
	switch kind {
	case KindInt32, KindInt64:
		v, n := binary.Varint(buf)
		if n <= 0 {
			return 0, 0, fmt.Errorf("bad varint value")
		}
		return v, n, nil
	case KindUint32:
		if len(buf) < 4 {
			return 0, 0, fmt.Errorf("short uint32 value")
		}
		return int64(binary.LittleEndian.Uint32(buf[:4])), 4, nil
	case KindUint64, KindTimestamp, KindDuration:
		if len(buf) < 8 {
			return 0, 0, fmt.Errorf("short 8-byte value")
		}
		return int64(binary.LittleEndian.Uint64(buf[:8])), 8, nil
	default:
		return 0, 0, fmt.Errorf("unknown kind %d", kind)
	}
}
