package store

// BoundKind describes one end of a Range.
type BoundKind uint8

const (
	boundUnbounded BoundKind = iota
	boundIncluded
	boundExcluded
)

// Bound is one end of a key range.
type Bound[K any] struct {
	kind BoundKind
	key  K
}

// Included bounds a range at key, including it.
func Included[K any](key K) Bound[K] {
	return Bound[K]{kind: boundIncluded, key: key}
}

// Excluded bounds a range at key, excluding it.
func Excluded[K any](key K) Bound[K] {
	return Bound[K]{kind: boundExcluded, key: key}
}

// Unbounded leaves one end of a range open.
func Unbounded[K any]() Bound[K] {
	return Bound[K]{kind: boundUnbounded}
}

// Range describes a key range with any combination of inclusive, exclusive
// or open ends. It is normalized internally to [lower inclusive, upper
// exclusive).
type Range[K any] struct {
	Start Bound[K]
	End   Bound[K]
}

// successor returns the immediate lexicographic successor of b, so that
// x < successor(b) holds exactly when x <= b.
func successor(b []byte) []byte {
	out := make([]byte, len(b)+1)
	copy(out, b)
	return out
}

// normalize converts the range into raw [lower, upper) bounds using the
// given key codec. nil means unbounded.
func normalizeRange[K any](r Range[K], keys KeyCodec[K]) (lower, upper []byte, err error) {
	switch r.Start.kind {
	case boundIncluded:
		lower, err = keys.EncodeKey(r.Start.key)
	case boundExcluded:
		var enc []byte
		enc, err = keys.EncodeKey(r.Start.key)
		lower = successor(enc)
	}
	if err != nil {
		return nil, nil, err
	}
	switch r.End.kind {
	case boundExcluded:
		upper, err = keys.EncodeKey(r.End.key)
	case boundIncluded:
		var enc []byte
		enc, err = keys.EncodeKey(r.End.key)
		upper = successor(enc)
	}
	if err != nil {
		return nil, nil, err
	}
	return lower, upper, nil
}
