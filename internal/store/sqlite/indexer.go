package sqlite

// feedIndexer hands out membership ordering indexes within one feed,
// continuing from the stored extreme. Forward continues past the current
// maximum (append), backward continues below the current minimum
// (prepend). Not safe for concurrent use; the enclosing transaction
// serializes access per feed.
type feedIndexer struct {
	last    int64
	forward bool
}

func newFeedIndexer(last int64, forward bool) *feedIndexer {
	return &feedIndexer{last: last, forward: forward}
}

func (x *feedIndexer) next() int64 {
	if x.forward {
		x.last++
	} else {
		x.last--
	}
	return x.last
}
