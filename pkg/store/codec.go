package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// KeyCodec encodes keys to byte sequences whose lexicographic order matches
// the natural order of K: for any a < b, EncodeKey(a) < EncodeKey(b) byte
// for byte. Every ordering-sensitive operation (range scans, seeks, bound
// filtering) depends on this property.
type KeyCodec[K any] interface {
	EncodeKey(K) ([]byte, error)
	DecodeKey([]byte) (K, error)
}

// ValueCodec encodes values. No ordering requirement.
type ValueCodec[V any] interface {
	EncodeValue(V) ([]byte, error)
	DecodeValue([]byte) (V, error)
}

// Uint64Key encodes uint64 keys as fixed-width big-endian bytes.
type Uint64Key struct{}

func (Uint64Key) EncodeKey(k uint64) ([]byte, error) {
	return binary.BigEndian.AppendUint64(nil, k), nil
}

func (Uint64Key) DecodeKey(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, decodeErr("uint64", fmt.Errorf("expected 8 bytes, got %d", len(b)))
	}
	return binary.BigEndian.Uint64(b), nil
}

// Uint32Key encodes uint32 keys as fixed-width big-endian bytes.
type Uint32Key struct{}

func (Uint32Key) EncodeKey(k uint32) ([]byte, error) {
	return binary.BigEndian.AppendUint32(nil, k), nil
}

func (Uint32Key) DecodeKey(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, decodeErr("uint32", fmt.Errorf("expected 4 bytes, got %d", len(b)))
	}
	return binary.BigEndian.Uint32(b), nil
}

// Int64Key encodes int64 keys big-endian with the sign bit flipped so that
// negative keys sort before non-negative ones.
type Int64Key struct{}

func (Int64Key) EncodeKey(k int64) ([]byte, error) {
	return binary.BigEndian.AppendUint64(nil, uint64(k)^(1<<63)), nil
}

func (Int64Key) DecodeKey(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, decodeErr("int64", fmt.Errorf("expected 8 bytes, got %d", len(b)))
	}
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63)), nil
}

// Int32Key encodes int32 keys big-endian with the sign bit flipped.
type Int32Key struct{}

func (Int32Key) EncodeKey(k int32) ([]byte, error) {
	return binary.BigEndian.AppendUint32(nil, uint32(k)^(1<<31)), nil
}

func (Int32Key) DecodeKey(b []byte) (int32, error) {
	if len(b) != 4 {
		return 0, decodeErr("int32", fmt.Errorf("expected 4 bytes, got %d", len(b)))
	}
	return int32(binary.BigEndian.Uint32(b) ^ (1 << 31)), nil
}

// StringKey encodes string keys as their raw bytes, which already sort
// lexicographically.
type StringKey struct{}

func (StringKey) EncodeKey(k string) ([]byte, error) { return []byte(k), nil }

func (StringKey) DecodeKey(b []byte) (string, error) { return string(b), nil }

// BytesKey passes keys through unmodified.
type BytesKey struct{}

func (BytesKey) EncodeKey(k []byte) ([]byte, error) {
	return append([]byte(nil), k...), nil
}

func (BytesKey) DecodeKey(b []byte) ([]byte, error) {
	return append([]byte(nil), b...), nil
}

// StringValue stores string values as raw bytes.
type StringValue struct{}

func (StringValue) EncodeValue(v string) ([]byte, error) { return []byte(v), nil }

func (StringValue) DecodeValue(b []byte) (string, error) { return string(b), nil }

// BytesValue passes values through unmodified.
type BytesValue struct{}

func (BytesValue) EncodeValue(v []byte) ([]byte, error) {
	return append([]byte(nil), v...), nil
}

func (BytesValue) DecodeValue(b []byte) ([]byte, error) {
	return append([]byte(nil), b...), nil
}

// JSONValue stores values of any type as JSON.
type JSONValue[V any] struct{}

func (JSONValue[V]) EncodeValue(v V) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return b, nil
}

func (JSONValue[V]) DecodeValue(b []byte) (V, error) {
	var v V
	if err := json.Unmarshal(b, &v); err != nil {
		return v, decodeErr(fmt.Sprintf("%T", v), err)
	}
	return v, nil
}
