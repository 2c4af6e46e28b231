// Package paging clamps caller-supplied page sizes for every list operation.
package paging

import (
	"context"
	"errors"

	"github.com/readers-guild/clubhouse-api/internal/app/apperr"
	"github.com/readers-guild/clubhouse-api/internal/domain"
)

const (
	DefaultSize = 10
	MaxSize     = 50
)

// FetchFunc loads one page with an already valid size.
type FetchFunc[T any] func(ctx context.Context, req domain.PageRequest) (domain.Page[T], error)

// Fetch validates req and loads the page.
//
// An out-of-range size still computes a page, clamped to DefaultSize (too small)
// or MaxSize (too large), and returns it as the error Payload next to a
// PageSizeTooSmall or PageSizeTooLarge error.
func Fetch[T any](ctx context.Context, req domain.PageRequest, fetch FetchFunc[T]) (domain.Page[T], error) {
	if req.Number < 0 {
		req.Number = 0
	}

	var kind apperr.Kind
	switch {
	case req.Size < 1:
		kind = apperr.KindPageSizeTooSmall
		req.Size = DefaultSize
	case req.Size > MaxSize:
		kind = apperr.KindPageSizeTooLarge
		req.Size = MaxSize
	}

	page, err := fetch(ctx, req)
	if err != nil {
		return domain.Page[T]{}, err
	}
	if kind == apperr.KindUnknown {
		return page, nil
	}

	e := apperr.New(kind, "page size must be between 1 and %d", MaxSize)
	e.Details = map[string]any{"size": req.Size}
	e.Payload = page
	return page, e
}

// PayloadPage extracts the fallback page carried by a page-size error.
func PayloadPage[T any](err error) (domain.Page[T], bool) {
	k := apperr.KindOf(err)
	if k != apperr.KindPageSizeTooSmall && k != apperr.KindPageSizeTooLarge {
		return domain.Page[T]{}, false
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return domain.Page[T]{}, false
	}
	p, ok := ae.Payload.(domain.Page[T])
	return p, ok
}
