package feed

import "errors"

// Error taxonomy for ingestion. Matched with errors.Is; wrapped errors carry
// the underlying cause.
var (
	// ErrFetch means the feed source was unreachable. Retryable.
	ErrFetch = errors.New("feed fetch failed")

	// ErrParse means a required table was missing or entirely unparsable.
	// Fatal to the ingestion attempt; the previous snapshot is kept.
	ErrParse = errors.New("feed parse failed")

	// ErrPartialData means optional data was missing. Logged, not fatal.
	ErrPartialData = errors.New("feed missing optional data")
)
