package values

import "golang.org/x/exp/maps"

// Coalesce returns the first non-zero value in a, if any; otherwise it returns
// the zero value of T.
func Coalesce[T comparable](a ...T) T {
	var zero T
	for _, v := range a {
		if v != zero {
			return v
		}
	}
	return zero
}

func MapFunc[F, T any](s []F, f func(F) T) []T {
	if s == nil {
		// preserve nil
		return nil
	}
	tt := make([]T, len(s))
	for i, v := range s {
		tt[i] = f(v)
	}
	return tt
}

// Chunk splits s into consecutive slices of at most n elements. The returned
// slices share s's backing array.
func Chunk[T any](s []T, n int) [][]T {
	if n <= 0 {
		panic("values: chunk size must be positive")
	}
	var out [][]T
	for len(s) > n {
		out = append(out, s[:n:n])
		s = s[n:]
	}
	if len(s) > 0 {
		out = append(out, s)
	}
	return out
}

// Set is a set of comparable values. The zero value is ready to use.
type Set[K comparable] map[K]struct{}

// Add adds each of keys to s.
func (s *Set[K]) Add(keys ...K) {
	if *s == nil {
		*s = make(map[K]struct{}, len(keys))
	}
	for _, k := range keys {
		(*s)[k] = struct{}{}
	}
}

// Has reports whether k is in s.
func (s Set[K]) Has(k K) bool {
	_, ok := s[k]
	return ok
}

// Keys returns the members of s in no particular order.
func (s Set[K]) Keys() []K {
	return maps.Keys(s)
}
