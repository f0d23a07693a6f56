package source

import (
	"context"
	"errors"

	"github.com/safewatch/safewatch/internal/models"
)

// Source provides the current set of pending multisig transactions for a
// Safe wallet. Implementations must resolve pagination internally and
// return the complete pending set in one call, already normalized and
// ordered ascending by (nonce, safe tx hash).
type Source interface {
	FetchPending(ctx context.Context, chainID int64, address string) ([]models.PendingTransaction, error)
}

// Source error taxonomy. Fetch failures wrap exactly one of these so the
// reconciliation engine can classify without inspecting transport details.
var (
	ErrUnauthorized = errors.New("source: unauthorized")
	ErrRateLimited  = errors.New("source: rate limited")
	ErrUnreachable  = errors.New("source: unreachable")
	ErrMalformed    = errors.New("source: malformed response")
)

// ErrorCode maps a source error to its taxonomy label for logs and metrics.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
