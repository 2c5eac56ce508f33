package feedid

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gfycat/feedcore/internal/domain"
)

// parameterizableTypes are the feed kinds that accept content filters.
var parameterizableTypes = map[Type]bool{
	TypeSearch:        true,
	TypeSoundSearch:   true,
	TypeSoundTrending: true,
}

// SupportsParameters reports whether id can seed a ParameterizedBuilder.
func SupportsParameters(id Identifier) bool {
	_, ok := id.(*publicIdentifier)
	return ok && parameterizableTypes[id.Type()]
}

// ParameterizedBuilder derives a new identifier from a search,
// sound-search or sound-trending base by appending bounded content
// filters. Out-of-range values are clamped, not rejected.
type ParameterizedBuilder struct {
	base *publicIdentifier
}

// NewParameterizedBuilder returns a builder over base.
// Returns an error for feed kinds that do not support parameterization.
func NewParameterizedBuilder(base Identifier) (*ParameterizedBuilder, error) {
	if !parameterizableTypes[base.Type()] {
		return nil, fmt.Errorf("feedid: %s feeds do not support parameterization", base.Type())
	}
	pub, ok := base.(*publicIdentifier)
	if !ok {
		return nil, fmt.Errorf("feedid: custom identifier %q does not support parameterization", base.UniqueKey())
	}
	// Copy the query so the base identifier stays immutable.
	derived := newPublic(pub.typ, pub.path)
	for k, vs := range pub.query {
		for _, v := range vs {
			derived.query.Add(k, v)
		}
	}
	return &ParameterizedBuilder{base: derived}, nil
}

// WithMinAspectRatio keeps only items at least this wide relative to
// height. Clamped to [MinAspectRatio, MaxAspectRatio].
func (b *ParameterizedBuilder) WithMinAspectRatio(ratio float64) *ParameterizedBuilder {
	b.base.query.Set(paramMinAspectRatio, formatAspect(clamp(ratio, MinAspectRatio, MaxAspectRatio)))
	return b
}

// WithMaxAspectRatio keeps only items at most this wide relative to
// height. Clamped to [MinAspectRatio, MaxAspectRatio].
func (b *ParameterizedBuilder) WithMaxAspectRatio(ratio float64) *ParameterizedBuilder {
	b.base.query.Set(paramMaxAspectRatio, formatAspect(clamp(ratio, MinAspectRatio, MaxAspectRatio)))
	return b
}

// WithMinLength keeps only items at least this long, in seconds.
// Clamped to [MinLengthSeconds, MaxLengthSeconds].
func (b *ParameterizedBuilder) WithMinLength(seconds float64) *ParameterizedBuilder {
	b.base.query.Set(paramMinLength, formatLength(clamp(seconds, MinLengthSeconds, MaxLengthSeconds)))
	return b
}

// WithMaxLength keeps only items at most this long, in seconds.
// Clamped to [MinLengthSeconds, MaxLengthSeconds].
func (b *ParameterizedBuilder) WithMaxLength(seconds float64) *ParameterizedBuilder {
	b.base.query.Set(paramMaxLength, formatLength(clamp(seconds, MinLengthSeconds, MaxLengthSeconds)))
	return b
}

// WithContentRating keeps only items rated at or below rating.
func (b *ParameterizedBuilder) WithContentRating(rating domain.ContentRating) *ParameterizedBuilder {
	b.base.query.Set(paramContentRating, rating.URLValue())
	return b
}

// Build returns the derived identifier.
func (b *ParameterizedBuilder) Build() Identifier {
	return b.base
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// formatAspect renders with at most three decimal places, no trailing zeros.
func formatAspect(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// formatLength renders with at most two decimal places, no trailing zeros.
func formatLength(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
