package golamp

import "errors"

// Errors
var (
	ErrUnmarshal           = errors.New("unmarshal failed")
	ErrBadScheme           = errors.New("bad lamp scheme")
	ErrNoValidSequences    = errors.New("scheme admits no valid sequences")
	ErrDuplicateLampID     = errors.New("two canonical sequences share a lamp ID")
	ErrObservedIDCollision = errors.New("two lamp IDs claim the same observed ID")
	ErrEncoding            = errors.New("bit vector does not round trip")
	ErrBadBits             = errors.New("bad bit string")
	ErrBadArtifact         = errors.New("bad dictionary artifact")
	ErrBadEncodingMode     = errors.New("unknown signal encoding mode")
	ErrNotEncodable        = errors.New("sequence cannot be max encoded")
	ErrCatalogReadOnly     = errors.New("catalog is read-only")
	ErrCatalogClosed       = errors.New("catalog is closed")
	ErrBadCatalogParam     = errors.New("bad catalog param")
	ErrBadConfig           = errors.New("bad config")
)
