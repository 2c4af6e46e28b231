package domain

import "math"

// PageRequest selects a zero-based page of a list result.
type PageRequest struct {
	Number int
	Size   int
}

// Offset is the index of the first item on the page. It saturates at
// math.MaxInt instead of wrapping for very large page numbers.
func (p PageRequest) Offset() int {
	if p.Number <= 0 || p.Size <= 0 {
		return 0
	}
	if p.Number > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return p.Number * p.Size
}

// Page is one page of an ordered result set.
type Page[T any] struct {
	Items  []T
	Number int
	Size   int
	Total  int
}

func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return (p.Total + p.Size - 1) / p.Size
}

// SlicePage cuts the requested page out of an already ordered slice.
func SlicePage[T any](all []T, req PageRequest) Page[T] {
	out := Page[T]{Number: req.Number, Size: req.Size, Total: len(all), Items: []T{}}
	start := req.Offset()
	if start < 0 || start >= len(all) || req.Size <= 0 {
		return out
	}
	end := len(all)
	if req.Size < end-start {
		end = start + req.Size
	}
	out.Items = append(out.Items, all[start:end]...)
	return out
}
