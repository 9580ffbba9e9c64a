package sites

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/comicdl/comicdl/internal/comic"
	"github.com/comicdl/comicdl/internal/pool"
	"github.com/comicdl/comicdl/internal/session"
)

// Shared test scaffolding for adapter tests.

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func testDeps(t *testing.T, site string) Deps {
	t.Helper()
	mgr := session.NewManager(session.Config{Timeout: 5 * time.Second}, zap.NewNop())
	return Deps{
		Session: mgr.Session(site),
		Runner:  pool.New(4, zap.NewNop()),
		Logger:  zap.NewNop(),
		Clock:   fixedClock{now: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
	}
}

// requireSequential asserts chapter numbers are exactly 1..K ascending.
func requireSequential(t *testing.T, refs []comic.Citem) {
	t.Helper()
	for i, r := range refs {
		if r.Number != i+1 {
			t.Fatalf("chapter %d has number %d, want %d", i, r.Number, i+1)
		}
	}
}
