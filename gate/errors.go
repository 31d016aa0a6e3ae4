package gate

import "errors"

// Sentinel errors returned by Gate.Authorize and HybridGate.Authorize.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNoPolicyDefined = errors.New("no policy defined for resource")
)
