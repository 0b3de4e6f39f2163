package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	tcs := []struct {
		name               string
		total, page, size  int
		wantStart, wantEnd int
		wantNext           bool
	}{
		{"first_page", 25, 0, 10, 0, 10, true},
		{"middle_page", 25, 1, 10, 10, 20, true},
		{"last_partial", 25, 2, 10, 20, 25, false},
		{"exact_boundary", 20, 1, 10, 10, 20, false},
		{"beyond_end", 5, 3, 10, 5, 5, false},
		{"empty_store", 0, 0, 10, 0, 0, false},
		{"negative_page", 10, -1, 10, 0, 0, false},
		{"zero_size", 10, 0, 0, 0, 0, false},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			start, end, next := Paginate(tc.total, tc.page, tc.size)
			require.Equal(t, tc.wantStart, start)
			require.Equal(t, tc.wantEnd, end)
			require.Equal(t, tc.wantNext, next)
			require.LessOrEqual(t, end-start, max(tc.size, 0))
		})
	}
}

// hasNext истинно тогда и только тогда, когда (page+1)*pageSize < total.
func TestPaginate_HasNextProperty(t *testing.T) {
	for total := 0; total <= 30; total++ {
		for size := 1; size <= 7; size++ {
			for page := 0; page <= 6; page++ {
				start, end, next := Paginate(total, page, size)
				require.Equal(t, (page+1)*size < total, next, "total=%d size=%d page=%d", total, size, page)
				require.LessOrEqual(t, end-start, size)
			}
		}
	}
}

func TestHTTPError_UnwrapAndMessage(t *testing.T) {
	err := fmt.Errorf("wrap: %w", &HTTPError{Op: "deleteComment", StatusCode: http.StatusNotFound})
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "deleteComment failed: 404")

	var he *HTTPError
	require.True(t, errors.As(err, &he))
	require.Equal(t, http.StatusNotFound, he.StatusCode)

	require.ErrorIs(t, &HTTPError{Op: "x", StatusCode: http.StatusBadRequest}, ErrInvalidArgument)
	require.NotErrorIs(t, &HTTPError{Op: "x", StatusCode: http.StatusInternalServerError}, ErrNotFound)
}

func TestViewerContext(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, AnonymousViewer, ViewerFrom(ctx))
	require.False(t, HasViewer(ctx))

	ctx = WithViewer(ctx, "  u-1 ")
	require.Equal(t, "u-1", ViewerFrom(ctx))
	require.True(t, HasViewer(ctx))

	require.Equal(t, AnonymousViewer, ViewerFrom(WithViewer(context.Background(), " ")))
}
