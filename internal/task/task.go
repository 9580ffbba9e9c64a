// Package task tracks long-running download jobs: creation, dedup by
// parameter hash, status transitions and persistence.
package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/comicdl/comicdl/internal/hash/sha256"
)

// Status is a task's lifecycle state.
type Status string

// Task lifecycle states. Transitions run init -> running -> done|fail.
const (
	StatusInit    Status = "init"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFail    Status = "fail"
)

// Task is one download job: a site, a comic and a chapter selection.
type Task struct {
	ID         string    `json:"id"`
	Site       string    `json:"site"`
	ComicID    string    `json:"comicid"`
	Chapters   string    `json:"chapters"`
	ParamsHash string    `json:"params_hash"`
	Status     Status    `json:"status"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ParamsHash digests the job parameters so identical submissions
// deduplicate to one task.
func ParamsHash(site, comicid, chapters string) string {
	payload := strings.Join([]string{site, comicid, chapters}, "\x00")
	digest, _ := sha256.New().Hash([]byte(payload))
	return digest
}

// Store persists tasks. Implementations must be safe for concurrent use.
type Store interface {
	// Create inserts a new task.
	Create(ctx context.Context, t Task) error
	// Get fetches a task by id.
	Get(ctx context.Context, id string) (Task, error)
	// FindByHash returns the newest task with the given parameter hash.
	FindByHash(ctx context.Context, hash string) (Task, bool, error)
	// UpdateStatus moves a task to status, recording a message.
	UpdateStatus(ctx context.Context, id string, status Status, message string) error
	// List returns the newest tasks, capped at limit.
	List(ctx context.Context, limit int) ([]Task, error)
}

// ErrNotFound reports a missing task id.
var ErrNotFound = fmt.Errorf("task not found")
