package selector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		expr  string
		total int
		want  []int
	}{
		{name: "single", expr: "3", total: 10, want: []int{3}},
		{name: "range", expr: "2-5", total: 10, want: []int{2, 3, 4, 5}},
		{name: "mixed", expr: "1-3,7,9-10", total: 10, want: []int{1, 2, 3, 7, 9, 10}},
		{name: "newest", expr: "-1", total: 10, want: []int{10}},
		{name: "third newest", expr: "-3", total: 10, want: []int{8}},
		{name: "empty selects all", expr: "", total: 4, want: []int{1, 2, 3, 4}},
		{name: "overlap dedupes", expr: "1-5,3-7", total: 10, want: []int{1, 2, 3, 4, 5, 6, 7}},
		{name: "reversed range", expr: "5-2", total: 10, want: []int{2, 3, 4, 5}},
		{name: "out of range dropped", expr: "8-9999", total: 10, want: []int{8, 9, 10}},
		{name: "negative beyond start dropped", expr: "-99", total: 10, want: nil},
		{name: "spaces tolerated", expr: " 1 , 3 - 4 ", total: 10, want: []int{1, 3, 4}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Resolve(tc.expr, tc.total)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestResolve_Invalid(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"abc", "1-x", "0", "1--3"} {
		_, err := Resolve(expr, 10)
		require.Error(t, err, expr)
	}
}

func TestResolve_EmptyComic(t *testing.T) {
	t.Parallel()

	got, err := Resolve("1-5", 0)
	require.NoError(t, err)
	require.Empty(t, got)
}
