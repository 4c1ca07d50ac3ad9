package ledger

import "time"

// Clock supplies the ledger's notion of now, in unix seconds. Accrual is
// linear in elapsed time, so tests inject a manual clock and warp it
// instead of sleeping.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() int64 {
	return time.Now().Unix()
}
