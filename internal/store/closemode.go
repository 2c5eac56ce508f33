package store

// CloseMode decides whether a freshly inserted feed is open for further
// pagination.
type CloseMode int

const (
	// CloseModeAuto derives the closed state from the digest: an empty
	// digest means there is nothing more to fetch.
	CloseModeAuto CloseMode = iota
	// CloseModeClose forces the feed closed regardless of digest.
	CloseModeClose
	// CloseModeOpen forces the feed open regardless of digest.
	CloseModeOpen
)

// IsOpen reports whether a feed inserted with this mode and digest accepts
// further pages.
func (m CloseMode) IsOpen(digest string) bool {
	switch m {
	case CloseModeClose:
		return false
	case CloseModeOpen:
		return true
	default:
		return digest != ""
	}
}

func (m CloseMode) String() string {
	switch m {
	case CloseModeClose:
		return "close"
	case CloseModeOpen:
		return "open"
	default:
		return "auto"
	}
}
