package util

import "errors"

var (
	ErrNoElement        = errors.New("no element found")
	ErrMultipleElements = errors.New("multiple elements found")
)

// FindFirst returns the first element that satisfies predicate.
func FindFirst[T any](s []T, predicate func(T) bool) (T, bool) {
	for _, v := range s {
		if predicate(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Filter returns the elements of s that satisfy predicate, in order.
func Filter[T any](s []T, predicate func(T) bool) []T {
	var out []T
	for _, v := range s {
		if predicate(v) {
			out = append(out, v)
		}
	}
	return out
}

// One returns the single element of s.
// It returns ErrNoElement for an empty slice and ErrMultipleElements
// when there is more than one candidate.
func One[T any](s []T) (T, error) {
	var zero T
	switch len(s) {
	case 0:
		return zero, ErrNoElement
	case 1:
		return s[0], nil
	default:
		return zero, ErrMultipleElements
	}
}
