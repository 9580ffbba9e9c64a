package comic

import (
	"context"
	"time"
)

// Crawler is the capability contract every site adapter satisfies. Callers
// program only against this interface; each method performs network I/O and
// blocks for at most the session's configured timeout per request.
type Crawler interface {
	// ComicBookItem fetches and parses one comic's metadata and full
	// chapter index. Returns ErrComicbookNotFound when the source has no
	// such id.
	ComicBookItem(ctx context.Context) (ComicBookItem, error)

	// ChapterItem resolves one chapter's image list from a reference
	// produced by ComicBookItem. Returns ErrChapterNotFound when the
	// source no longer serves the chapter.
	ChapterItem(ctx context.Context, citem Citem) (ChapterItem, error)

	// Search fails soft: an out-of-range page yields an empty result,
	// since pagination bounds are unknown a priori for most sources.
	Search(ctx context.Context, name string, page, size int) (SearchResultItem, error)

	// Latest lists recently updated comics with the same soft-pagination
	// contract as Search.
	Latest(ctx context.Context, page int) (SearchResultItem, error)

	// Tags fetches the site's tag taxonomy. Implementations cache the
	// result per instance.
	Tags(ctx context.Context) (TagsItem, error)

	// TagResult lists comics under a tag, resolving tag names to ids via
	// a cached Tags call. Soft pagination applies.
	TagResult(ctx context.Context, tag string, page int) (SearchResultItem, error)

	// Login establishes an authenticated session when the site requires
	// one, persisting the resulting cookies in the session manager. The
	// default is a no-op.
	Login(ctx context.Context) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces task and request IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
