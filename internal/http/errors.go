package httpapi

import (
	"errors"
	"net/http"

	"yourloops-dashboard/internal/dataapi"
	"yourloops-dashboard/internal/domain"
	"yourloops-dashboard/internal/summary"

	"go.uber.org/zap"
)

// businessErrors are reported to the caller by their own message.
var businessErrors = []error{
	domain.ErrPatientAlreadyInvited,
	domain.ErrAlreadyInvited,
	domain.ErrMissingInvitation,
	domain.ErrMissingTeamFields,
	domain.ErrInvalidMonitoring,
	domain.ErrPatientNotFound,
	domain.ErrTeamNotFound,
	domain.ErrNotTeamMember,
	domain.ErrNotTeamAdmin,
	domain.ErrInvalidUserRole,
	domain.ErrInvitationNotFound,
	domain.ErrShareNotFound,
	domain.ErrAccountNotFound,
	summary.ErrInvalidUser,
	summary.ErrFetchCancelled,
}

// errorMessage maps err to the message key returned to the front end.
// ok is false for errors that are not the caller's fault.
func errorMessage(err error) (msg string, ok bool) {
	if errors.Is(err, domain.ErrInvalidInvitation) {
		return "error-http-40x", true
	}
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	var se *dataapi.StatusError
	if errors.As(err, &se) || errors.Is(err, dataapi.ErrNotFound) {
		return dataapi.MessageKey(err), true
	}
	return "", false
}

// writeError answers business errors with HTTP 200 and a failed Result.
// Anything else is logged and answered with a 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	if msg, ok := errorMessage(err); ok {
		writeJSON(w, http.StatusOK, Fail(msg))
		return
	}
	logger.Error(op+" failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, Fail("error-http-500"))
}
