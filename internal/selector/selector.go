// Package selector parses chapter selection expressions like
// "1-10,15,-1": comma-separated chapter numbers and inclusive ranges,
// with negative numbers counting back from the newest chapter.
package selector

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type span struct {
	lo, hi int
}

func parse(expr string) ([]span, error) {
	var spans []span
	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		s, err := parseToken(token)
		if err != nil {
			return nil, err
		}
		spans = append(spans, s)
	}
	return spans, nil
}

func parseToken(token string) (span, error) {
	// A leading minus is a from-the-end index, not a range separator.
	if n, err := strconv.Atoi(token); err == nil {
		if n == 0 {
			return span{}, fmt.Errorf("chapter selector %q: chapters are numbered from 1", token)
		}
		return span{lo: n, hi: n}, nil
	}

	lo, hi, ok := strings.Cut(token, "-")
	if !ok {
		return span{}, fmt.Errorf("chapter selector %q: not a number or range", token)
	}
	a, errA := strconv.Atoi(strings.TrimSpace(lo))
	b, errB := strconv.Atoi(strings.TrimSpace(hi))
	if errA != nil || errB != nil || a <= 0 || b <= 0 {
		return span{}, fmt.Errorf("chapter selector %q: ranges need positive bounds", token)
	}
	if a > b {
		a, b = b, a
	}
	return span{lo: a, hi: b}, nil
}

// Resolve expands expr against a comic with total chapters into sorted,
// deduplicated chapter numbers. An empty expression selects everything.
// Selections falling outside 1..total are dropped rather than raised, so
// "1-9999" works as "all of it".
func Resolve(expr string, total int) ([]int, error) {
	if total <= 0 {
		return nil, nil
	}

	spans, err := parse(expr)
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		spans = []span{{lo: 1, hi: total}}
	}

	picked := make(map[int]struct{})
	for _, s := range spans {
		lo, hi := s.lo, s.hi
		if lo < 0 {
			lo = total + lo + 1
			hi = lo
		}
		for n := lo; n <= hi; n++ {
			if n >= 1 && n <= total {
				picked[n] = struct{}{}
			}
		}
	}

	if len(picked) == 0 {
		return nil, nil
	}
	numbers := make([]int, 0, len(picked))
	for n := range picked {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}
