package feedid

import (
	"fmt"
	"strings"
)

// singleIdentifier wraps one item as a feed. Encoded as "single:<contentID>".
type singleIdentifier struct {
	contentID string
}

func (s singleIdentifier) Type() Type        { return TypeSingle }
func (s singleIdentifier) Name() string      { return s.contentID }
func (s singleIdentifier) UniqueKey() string { return string(TypeSingle) + ":" + s.contentID }
func (s singleIdentifier) String() string    { return s.UniqueKey() }

// FromSingleItem returns the identifier of the feed containing only the
// item with the given content id.
func FromSingleItem(contentID string) Identifier {
	return singleIdentifier{contentID: contentID}
}

func parseSingle(uniqueKey string) (Identifier, error) {
	id, ok := strings.CutPrefix(uniqueKey, string(TypeSingle)+":")
	if !ok || id == "" {
		return nil, fmt.Errorf("feedid: malformed single-item encoding %q", uniqueKey)
	}
	return singleIdentifier{contentID: id}, nil
}
