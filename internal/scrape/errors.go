package scrape

import "errors"

// Sentinel errors for the failure taxonomy. Failures are contained at the
// smallest meaningful unit (card, category, cycle); none of these may
// terminate the process.
var (
	// ErrPageLoadTimeout means the target page did not present the expected
	// content within the wait bound. The cycle continues with an empty
	// result for that stage.
	ErrPageLoadTimeout = errors.New("page load timed out")

	// ErrStorageWrite wraps a failed bulk insert. Recoverable at cycle
	// level: the next cycle re-runs extraction and retries naturally.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrStorageRead wraps a failed read or aggregation query. Surfaced to
	// the query layer as an empty result plus a logged error.
	ErrStorageRead = errors.New("storage read failed")
)
