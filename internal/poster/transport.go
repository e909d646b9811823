package poster

import (
	"context"
	"errors"
)

// Sentinel errors for platform responses the poster reacts to
// specially. Transports wrap these so callers can errors.Is them.
var (
	ErrRateLimited  = errors.New("rate limited by platform")
	ErrUnauthorized = errors.New("platform rejected credentials")
	ErrForbidden    = errors.New("platform denied permission")
)

// Transport posts single messages to the platform. Post returns the
// platform id of the created message; replyTo is empty for a thread
// root.
type Transport interface {
	Post(ctx context.Context, text, replyTo string) (string, error)
	VerifyCredentials(ctx context.Context) error
}
