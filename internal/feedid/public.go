package feedid

import (
	"fmt"
	"net/url"
	"strings"
)

// publicScheme prefixes every remotely backed feed encoding.
const publicScheme = "public"

// Endpoint paths inside the public scheme. The username is carried as a
// query parameter rather than a path segment so that path matching stays
// exact.
const (
	trendingEndpoint    = "/items/trending"
	searchEndpoint      = "/items/search"
	soundEndpoint       = "/sound"
	soundSearchEndpoint = "/sound/search"
	reactionsEndpoint   = "/reactions/populated"
	meEndpoint          = "/me/items"
	userEndpoint        = "/users/items"
)

// publicIdentifier is the shared implementation for every remote feed kind.
// The parsed URL is the single source of truth; Type is resolved from it.
type publicIdentifier struct {
	typ   Type
	path  string
	query url.Values
}

func (p *publicIdentifier) Type() Type { return p.typ }

func (p *publicIdentifier) Name() string {
	return p.query.Get(paramName)
}

func (p *publicIdentifier) UniqueKey() string {
	u := url.URL{Scheme: publicScheme, Path: p.path, RawQuery: p.query.Encode()}
	return u.String()
}

func (p *publicIdentifier) String() string { return p.UniqueKey() }

// Parameter returns a query parameter previously set on the identifier,
// such as a ParameterizedBuilder filter. Empty if unset.
func (p *publicIdentifier) Parameter(name string) string {
	return p.query.Get(name)
}

func newPublic(typ Type, path string, params ...[2]string) *publicIdentifier {
	q := url.Values{}
	for _, kv := range params {
		q.Set(kv[0], kv[1])
	}
	return &publicIdentifier{typ: typ, path: path, query: q}
}

// Trending returns the global trending feed identifier.
func Trending() Identifier {
	return newPublic(TypeTrending, trendingEndpoint)
}

// SoundTrending returns the trending-with-audio feed identifier.
func SoundTrending() Identifier {
	return newPublic(TypeSoundTrending, soundEndpoint)
}

// Me returns the signed-in user's feed identifier.
func Me() Identifier {
	return newPublic(TypeMe, meEndpoint)
}

// FromTag returns the trending feed narrowed to tagName.
func FromTag(tagName string) Identifier {
	return newPublic(TypeTag, trendingEndpoint,
		[2]string{paramTag, tagName},
		[2]string{paramName, tagName})
}

// FromSearch returns a keyword search feed identifier.
func FromSearch(searchText string) Identifier {
	return newPublic(TypeSearch, searchEndpoint,
		[2]string{paramSearchText, searchText},
		[2]string{paramName, searchText})
}

// FromSoundSearch returns a keyword search feed restricted to items with audio.
func FromSoundSearch(searchText string) Identifier {
	return newPublic(TypeSoundSearch, soundSearchEndpoint,
		[2]string{paramSearchText, searchText},
		[2]string{paramName, searchText})
}

// FromReaction returns a reaction category feed identifier.
func FromReaction(reactionName string) Identifier {
	return newPublic(TypeReactions, reactionsEndpoint,
		[2]string{paramTag, reactionName},
		[2]string{paramName, reactionName})
}

// FromUser returns the public feed of username's items.
func FromUser(username string) Identifier {
	return newPublic(TypeUser, userEndpoint,
		[2]string{paramUsername, username},
		[2]string{paramName, username})
}

// resolvePublicType maps a parsed public URL to its feed kind.
// Matching follows a fixed precedence; the first hit wins.
func resolvePublicType(path string, query url.Values) (Type, error) {
	switch {
	case path == soundEndpoint:
		return TypeSoundTrending, nil
	case path == soundSearchEndpoint && query.Get(paramSearchText) != "":
		return TypeSoundSearch, nil
	case path == searchEndpoint && query.Get(paramSearchText) != "":
		return TypeSearch, nil
	case path == reactionsEndpoint && query.Get(paramTag) != "":
		return TypeReactions, nil
	case path == trendingEndpoint && query.Get(paramTag) != "":
		return TypeTag, nil
	case path == trendingEndpoint:
		return TypeTrending, nil
	case path == meEndpoint:
		return TypeMe, nil
	case path == userEndpoint && query.Get(paramUsername) != "":
		return TypeUser, nil
	}
	return "", fmt.Errorf("feedid: no feed kind matches path %q", path)
}

// Parse reconstructs an identifier from its canonical encoding.
//
// An encoding that matches no known pattern is a corrupted cache key;
// the returned error is not recoverable by retrying.
func Parse(uniqueKey string) (Identifier, error) {
	switch {
	case strings.HasPrefix(uniqueKey, publicScheme+":"):
		u, err := url.Parse(uniqueKey)
		if err != nil {
			return nil, fmt.Errorf("feedid: parse %q: %w", uniqueKey, err)
		}
		q := u.Query()
		typ, err := resolvePublicType(u.Path, q)
		if err != nil {
			return nil, err
		}
		return &publicIdentifier{typ: typ, path: u.Path, query: q}, nil
	case strings.HasPrefix(uniqueKey, string(TypeSingle)+":"):
		return parseSingle(uniqueKey)
	case strings.HasPrefix(uniqueKey, string(TypeRecent)+":"):
		return Recent(), nil
	}
	return nil, fmt.Errorf("feedid: unrecognized feed encoding %q", uniqueKey)
}
