package pipeline

// ProgressUpdate is emitted once per ASIN during extraction
type ProgressUpdate struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	ASIN    string `json:"asin"`
	Message string `json:"message"`
}

// ProgressFunc observes extraction progress. A nil ProgressFunc is valid.
type ProgressFunc func(ProgressUpdate)

func (f ProgressFunc) emit(u ProgressUpdate) {
	if f != nil {
		f(u)
	}
}

// ChannelProgress forwards updates to ch without blocking.
// Updates are dropped while ch is full.
func ChannelProgress(ch chan<- ProgressUpdate) ProgressFunc {
	return func(u ProgressUpdate) {
		select {
		case ch <- u:
		default:
		}
	}
}
