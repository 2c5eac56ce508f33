package feedid

// recentIdentifier names the locally maintained recently-viewed feed.
// There is exactly one; it never hits the network.
type recentIdentifier struct{}

func (recentIdentifier) Type() Type        { return TypeRecent }
func (recentIdentifier) Name() string      { return string(TypeRecent) }
func (recentIdentifier) UniqueKey() string { return string(TypeRecent) + "://" + string(TypeRecent) }
func (recentIdentifier) String() string    { return recentIdentifier{}.UniqueKey() }

// Recent returns the recently-viewed feed identifier.
func Recent() Identifier {
	return recentIdentifier{}
}
