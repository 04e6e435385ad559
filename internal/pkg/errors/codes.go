package errors

import "net/http"

// Error codes. Messages are English; the presentation layer translates by code.

// Ticket error codes.
const (
	CodeTicketNotFound    = "TICKET_NOT_FOUND"
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeTicketCreateFail  = "TICKET_CREATION_FAILED"
	CodeTicketUpdateFail  = "TICKET_UPDATE_FAILED"
)

// Mixer error codes.
const (
	CodeMixerBusy        = "MIXER_BUSY"
	CodeMixerNotEligible = "MIXER_NOT_ELIGIBLE"
)

// Admin error codes.
const (
	CodeAdminSecretMismatch = "ADMIN_SECRET_MISMATCH"
	CodeBackupFailed        = "BACKUP_FAILED"
)

// Validation error codes.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnknownProduct      = "UNKNOWN_PRODUCT"
	CodeUnknownBrand        = "UNKNOWN_BRAND"
	CodeUnknownTechnology   = "UNKNOWN_TECHNOLOGY"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeExportEmpty         = "EXPORT_EMPTY"
	CodeInternalServerError = "INTERNAL_ERROR"
)

// ErrTicketNotFoundf creates a ticket not found error.
func ErrTicketNotFoundf(ticketID string) *AppError {
	return (&AppError{
		Code:       CodeTicketNotFound,
		Message:    "ticket not found",
		HTTPStatus: http.StatusNotFound,
	}).WithParams(map[string]interface{}{"ticket_id": ticketID})
}

// ErrMixerBusyf creates a mixer busy rejection.
func ErrMixerBusyf(mixer, holderID string) *AppError {
	return (&AppError{
		Code:       CodeMixerBusy,
		Message:    "mixer is occupied by another active ticket",
		HTTPStatus: http.StatusConflict,
	}).WithParams(map[string]interface{}{"mixer": mixer, "ticket_id": holderID})
}

// ErrIllegalTransitionf creates a rejected state transition error.
func ErrIllegalTransitionf(ticketID, status, action string) *AppError {
	return (&AppError{
		Code:       CodeIllegalTransition,
		Message:    "action is not allowed in the current ticket status",
		HTTPStatus: http.StatusConflict,
	}).WithParams(map[string]interface{}{
		"ticket_id": ticketID,
		"status":    status,
		"action":    action,
	})
}

// ErrMixerNotEligiblef rejects a mixer outside the product/technology allocation.
func ErrMixerNotEligiblef(mixer, product, technology string) *AppError {
	return (&AppError{
		Code:       CodeMixerNotEligible,
		Message:    "mixer is not available for this product and technology",
		HTTPStatus: http.StatusBadRequest,
	}).WithParams(map[string]interface{}{
		"mixer":      mixer,
		"product":    product,
		"technology": technology,
	})
}
