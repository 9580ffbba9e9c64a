package task

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/comicdl/comicdl/internal/comic"
	"github.com/comicdl/comicdl/internal/comicbook"
)

// Worker executes download tasks against the comic façade and records
// their progress in a Store.
type Worker struct {
	svc    *comicbook.Service
	store  Store
	mailer Mailer
	ids    comic.IDGenerator
	logger *zap.Logger
	root   string
}

// NewWorker wires a Worker. mailer may be nil when notifications are
// disabled.
func NewWorker(svc *comicbook.Service, store Store, mailer Mailer, ids comic.IDGenerator, root string, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{svc: svc, store: store, mailer: mailer, ids: ids, logger: logger, root: root}
}

// Submit records a new task unless an equivalent one already exists.
// Failed tasks do not block resubmission. The boolean reports whether the
// returned task is newly created.
func (w *Worker) Submit(ctx context.Context, site, comicid, chapters string) (Task, bool, error) {
	hash := ParamsHash(site, comicid, chapters)
	if existing, ok, err := w.store.FindByHash(ctx, hash); err != nil {
		return Task{}, false, err
	} else if ok && existing.Status != StatusFail {
		return existing, false, nil
	}

	id, err := w.ids.NewID()
	if err != nil {
		return Task{}, false, fmt.Errorf("generate task id: %w", err)
	}
	t := Task{
		ID:         id,
		Site:       site,
		ComicID:    comicid,
		Chapters:   chapters,
		ParamsHash: hash,
		Status:     StatusInit,
	}
	if err := w.store.Create(ctx, t); err != nil {
		return Task{}, false, err
	}
	return t, true, nil
}

// Run executes one task to completion, moving it through running into
// done or fail. notify, when non-empty, receives a completion mail.
func (w *Worker) Run(ctx context.Context, t Task, notify string) error {
	if err := w.store.UpdateStatus(ctx, t.ID, StatusRunning, ""); err != nil {
		return err
	}

	message, runErr := w.download(ctx, t)
	status := StatusDone
	if runErr != nil {
		status = StatusFail
		message = runErr.Error()
	}
	if err := w.store.UpdateStatus(ctx, t.ID, status, message); err != nil {
		return err
	}

	w.notify(t, status, message, notify)
	if runErr != nil {
		return runErr
	}
	return nil
}

func (w *Worker) download(ctx context.Context, t Task) (string, error) {
	book, err := w.svc.ComicBook(ctx, t.Site, t.ComicID)
	if err != nil {
		return "", err
	}
	chapters, err := book.SelectChapters(t.Chapters)
	if err != nil {
		return "", err
	}

	var written, skipped, failed int
	for _, ch := range chapters {
		report, _, err := ch.Save(ctx, w.root)
		if err != nil {
			return "", fmt.Errorf("save chapter %d: %w", ch.Number(), err)
		}
		written += report.Written
		skipped += report.Skipped
		failed += len(report.Failed)
	}
	return fmt.Sprintf("chapters=%d written=%d skipped=%d failed=%d",
		len(chapters), written, skipped, failed), nil
}

func (w *Worker) notify(t Task, status Status, message, to string) {
	if w.mailer == nil || to == "" {
		return
	}
	subject := fmt.Sprintf("comicdl task %s: %s/%s", status, t.Site, t.ComicID)
	if err := w.mailer.Send(to, subject, message); err != nil {
		w.logger.Warn("task notification failed",
			zap.String("task", t.ID), zap.Error(err))
	}
}
