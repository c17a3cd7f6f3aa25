package httpapi

import (
	"errors"
	"net/http"

	"github.com/altlive/platform/pkg/alt"
	"github.com/altlive/platform/pkg/live"
)

// statusForError maps domain errors onto HTTP status codes and stable
// machine-readable error codes.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, alt.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, alt.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, live.ErrSubscriptionRequired):
		return http.StatusForbidden, "subscription_required"
	case errors.Is(err, alt.ErrInsufficientBalance):
		return http.StatusPaymentRequired, "insufficient_balance"
	case errors.Is(err, alt.ErrAccountNotFound),
		errors.Is(err, alt.ErrContentNotFound),
		errors.Is(err, alt.ErrTokenNotFound),
		errors.Is(err, alt.ErrWithdrawalNotFound),
		errors.Is(err, live.ErrSessionNotFound),
		errors.Is(err, live.ErrViewerNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, live.ErrAlreadyJoined):
		return http.StatusConflict, "already_joined"
	case errors.Is(err, live.ErrSessionFull):
		return http.StatusConflict, "session_full"
	case errors.Is(err, alt.ErrInvalidState), errors.Is(err, live.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, alt.ErrBelowMinimum),
		errors.Is(err, alt.ErrInvalidAmount),
		errors.Is(err, alt.ErrInvalidAccountID),
		errors.Is(err, alt.ErrInvalidPayoutMethod),
		errors.Is(err, alt.ErrInvalidMetadataJSON),
		errors.Is(err, live.ErrInvalidSessionConfig):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
