package paging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/readers-guild/clubhouse-api/internal/app/apperr"
	"github.com/readers-guild/clubhouse-api/internal/domain"
)

func sliceFetch(all []int) FetchFunc[int] {
	return func(_ context.Context, req domain.PageRequest) (domain.Page[int], error) {
		return domain.SlicePage(all, req), nil
	}
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestFetch_InRange(t *testing.T) {
	t.Parallel()

	page, err := Fetch(context.Background(), domain.PageRequest{Number: 1, Size: 5}, sliceFetch(seq(12)))
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 7, 8, 9}, page.Items)
	assert.Equal(t, 12, page.Total)
}

func TestFetch_TooSmallCarriesDefaultPage(t *testing.T) {
	t.Parallel()

	_, err := Fetch(context.Background(), domain.PageRequest{Number: 0, Size: 0}, sliceFetch(seq(30)))
	require.True(t, apperr.IsKind(err, apperr.KindPageSizeTooSmall), "err=%v", err)

	p, ok := PayloadPage[int](err)
	require.True(t, ok)
	assert.Equal(t, DefaultSize, p.Size)
	assert.Len(t, p.Items, DefaultSize)
}

func TestFetch_TooLargeCarriesMaxPage(t *testing.T) {
	t.Parallel()

	_, err := Fetch(context.Background(), domain.PageRequest{Number: 0, Size: 51}, sliceFetch(seq(80)))
	require.True(t, apperr.IsKind(err, apperr.KindPageSizeTooLarge), "err=%v", err)

	p, ok := PayloadPage[int](err)
	require.True(t, ok)
	assert.Equal(t, MaxSize, p.Size)
	assert.Len(t, p.Items, MaxSize)
}

func TestFetch_NegativePageIsFirstPage(t *testing.T) {
	t.Parallel()

	page, err := Fetch(context.Background(), domain.PageRequest{Number: -3, Size: 2}, sliceFetch(seq(5)))
	require.NoError(t, err)
	assert.Equal(t, 0, page.Number)
	assert.Equal(t, []int{0, 1}, page.Items)
}

func TestFetch_PropagatesFetchError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := Fetch(context.Background(), domain.PageRequest{Size: 0}, func(context.Context, domain.PageRequest) (domain.Page[int], error) {
		return domain.Page[int]{}, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestFetch_SizeClampingProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 200).Draw(t, "n")
		size := rapid.IntRange(-20, 120).Draw(t, "size")
		number := rapid.IntRange(-2, 10).Draw(t, "number")

		page, err := Fetch(context.Background(), domain.PageRequest{Number: number, Size: size}, sliceFetch(seq(n)))

		effective := size
		switch {
		case size < 1:
			effective = DefaultSize
			if !apperr.IsKind(err, apperr.KindPageSizeTooSmall) {
				t.Fatalf("size=%d err=%v, want PageSizeTooSmall", size, err)
			}
		case size > MaxSize:
			effective = MaxSize
			if !apperr.IsKind(err, apperr.KindPageSizeTooLarge) {
				t.Fatalf("size=%d err=%v, want PageSizeTooLarge", size, err)
			}
		default:
			if err != nil {
				t.Fatalf("size=%d err=%v, want nil", size, err)
			}
		}
		if page.Size != effective {
			t.Fatalf("page.Size=%d, want %d", page.Size, effective)
		}
		if len(page.Items) > effective {
			t.Fatalf("len(items)=%d exceeds size %d", len(page.Items), effective)
		}
		if page.Total != n {
			t.Fatalf("total=%d, want %d", page.Total, n)
		}
	})
}
