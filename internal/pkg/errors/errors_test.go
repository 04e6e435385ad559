package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New(CodeTicketNotFound, "ticket not found", http.StatusNotFound),
			want: "TICKET_NOT_FOUND: ticket not found",
		},
		{
			name: "with wrapped error",
			err:  Wrap(fmt.Errorf("disk full"), CodeTicketUpdateFail, "ticket update failed", http.StatusInternalServerError),
			want: "TICKET_UPDATE_FAILED: ticket update failed: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap(inner, "CODE", "msg", 500)

	if !errors.Is(appErr, inner) {
		t.Error("errors.Is should match inner error")
	}
}

func TestIsAppError(t *testing.T) {
	appErr := ErrTicketNotFoundf("TK0042")
	wrapped := fmt.Errorf("wrapped: %w", appErr)

	got, ok := IsAppError(wrapped)
	if !ok {
		t.Fatal("IsAppError should return true for wrapped AppError")
	}
	if got.Code != CodeTicketNotFound {
		t.Errorf("Code = %q, want %s", got.Code, CodeTicketNotFound)
	}
	if got.Params["ticket_id"] != "TK0042" {
		t.Errorf("Params[ticket_id] = %v, want TK0042", got.Params["ticket_id"])
	}

	if _, ok := IsAppError(fmt.Errorf("plain")); ok {
		t.Error("IsAppError should return false for a plain error")
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
		wantCode   string
	}{
		{"NotFound", NotFound("NF", "not found"), http.StatusNotFound, "NF"},
		{"BadRequest", BadRequest("BR", "bad request"), http.StatusBadRequest, "BR"},
		{"Forbidden", Forbidden("FB", "forbidden"), http.StatusForbidden, "FB"},
		{"Conflict", Conflict("CF", "conflict"), http.StatusConflict, "CF"},
		{"Internal", Internal("IE", "internal"), http.StatusInternalServerError, "IE"},
		{"MixerBusy", ErrMixerBusyf("Mixer_3", "TK0001"), http.StatusConflict, CodeMixerBusy},
		{"IllegalTransition", ErrIllegalTransitionf("TK0001", "sample_sent", "mixer_discharged"), http.StatusConflict, CodeIllegalTransition},
		{"MixerNotEligible", ErrMixerNotEligiblef("Mixer_9", "Dishware", "new"), http.StatusBadRequest, CodeMixerNotEligible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.wantStatus)
			}
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
		})
	}
}

func TestWithParams_EmptyKeepsNil(t *testing.T) {
	err := BadRequest("BR", "bad").WithParams(nil)
	if err.Params != nil {
		t.Errorf("Params = %v, want nil", err.Params)
	}
}
