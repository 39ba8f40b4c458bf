package analyzer

import (
	"context"
	"errors"

	"github.com/seenimoa/kabuai/internal/analysis/fundamental"
	"github.com/seenimoa/kabuai/internal/jquants"
	"github.com/seenimoa/kabuai/pkg/models"
)

// ErrorKind groups pipeline errors by how a caller should react.
type ErrorKind string

const (
	ErrKindInvalidInput ErrorKind = "invalid_input"
	ErrKindAuth         ErrorKind = "authentication"
	ErrKindRateLimited  ErrorKind = "rate_limited"
	ErrKindNotFound     ErrorKind = "data_unavailable"
	ErrKindInsufficient ErrorKind = "insufficient_data"
	ErrKindNetwork      ErrorKind = "network"
	ErrKindTimeout      ErrorKind = "timeout"
	ErrKindCanceled     ErrorKind = "canceled"
	ErrKindProvider     ErrorKind = "provider"
	ErrKindInternal     ErrorKind = "internal"
)

// Classify maps an error returned by the Analyzer to its kind.
func Classify(err error) ErrorKind {
	var (
		invalidCode  *models.InvalidCodeError
		invalidArg   *InvalidArgumentError
		authErr      *jquants.AuthenticationError
		rateErr      *jquants.RateLimitExceeded
		unavailable  *jquants.DataUnavailable
		insufficient *fundamental.InsufficientDataError
		netErr       *jquants.NetworkError
		apiErr       *jquants.APIError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalidCode), errors.As(err, &invalidArg):
		return ErrKindInvalidInput
	case errors.As(err, &authErr):
		return ErrKindAuth
	case errors.As(err, &rateErr):
		return ErrKindRateLimited
	case errors.Is(err, ErrNoStatements), errors.As(err, &unavailable):
		return ErrKindNotFound
	case errors.As(err, &insufficient):
		return ErrKindInsufficient
	case errors.As(err, &netErr):
		return ErrKindNetwork
	case errors.Is(err, context.DeadlineExceeded):
		return ErrKindTimeout
	case errors.Is(err, context.Canceled):
		return ErrKindCanceled
	case errors.As(err, &apiErr):
		return ErrKindProvider
	}
	return ErrKindInternal
}
