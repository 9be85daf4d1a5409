package ledgerapi

// Window returns the half-open block range (from, to] served by one
// GetMails page. to is latest when fetchToBlock is nil; from never drops
// below startingBlock, so consecutive pages partition the history exactly
// and startingBlock itself is never part of a page.
func Window(latest int64, fetchToBlock *int64, batchSize, startingBlock int64) (from, to int64) {
	to = latest
	if fetchToBlock != nil {
		to = *fetchToBlock
	}
	from = to - batchSize
	if from < startingBlock {
		from = startingBlock
	}
	if to < from {
		to = from
	}
	return from, to
}

// Contains reports whether block falls inside the (from, to] window.
func Contains(from, to, block int64) bool {
	return block > from && block <= to
}
