package stock

import "time"

// Reading is the result of one successful fetch and parse. It is never
// persisted; each run produces at most one.
type Reading struct {
	RawText   string
	Count     int64
	FetchedAt time.Time
}
