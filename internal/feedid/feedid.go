// Package feedid defines feed identifiers: immutable values naming a logical
// feed (trending, tag, search, user, ...) with a canonical string encoding
// that doubles as the cache key. Parse reverses the encoding produced by
// UniqueKey, so identifiers round-trip through the database.
package feedid

// Type enumerates the closed set of feed kinds.
type Type string

const (
	// TypeTrending is the feed of currently trending items.
	TypeTrending Type = "trending"
	// TypeTag is the trending feed narrowed to one tag.
	TypeTag Type = "tag"
	// TypeSearch is a keyword search feed.
	TypeSearch Type = "search"
	// TypeSingle wraps one item as a feed of its own.
	TypeSingle Type = "single"
	// TypeReactions is a reaction category feed.
	TypeReactions Type = "reactions"
	// TypeUser is the public feed of one user's items.
	TypeUser Type = "user"
	// TypeMe is the signed-in user's own feed.
	TypeMe Type = "me"
	// TypeRecent is the locally maintained recently-viewed feed.
	TypeRecent Type = "recent"
	// TypeSoundTrending is the trending feed restricted to items with audio.
	TypeSoundTrending Type = "sound_trending"
	// TypeSoundSearch is a keyword search restricted to items with audio.
	TypeSoundSearch Type = "sound_search"
)

// Identifier names a logical feed. Two identifiers are equal iff their
// UniqueKey encodings are equal; implementations carry no other state.
type Identifier interface {
	// Type returns the feed kind.
	Type() Type
	// Name returns the human-facing name (tag, search term, username).
	// Empty for feeds that have none, such as trending.
	Name() string
	// UniqueKey returns the canonical encoding. Parse(UniqueKey()) must
	// reconstruct an equal identifier.
	UniqueKey() string
}

// Equal reports whether two identifiers name the same feed.
func Equal(a, b Identifier) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UniqueKey() == b.UniqueKey()
}

// Query parameter names used in the canonical encoding.
const (
	paramName       = "name"
	paramTag        = "tagName"
	paramSearchText = "search_text"
	paramUsername   = "username"

	paramMinLength      = "minLength"
	paramMaxLength      = "maxLength"
	paramMinAspectRatio = "minAspectRatio"
	paramMaxAspectRatio = "maxAspectRatio"
	paramContentRating  = "contentRating"
)

// Bounds applied by ParameterizedBuilder.
const (
	MinLengthSeconds = 0.0
	MaxLengthSeconds = 60.0
	MinAspectRatio   = 0.1
	MaxAspectRatio   = 10.0
)
