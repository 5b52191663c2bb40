package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"leaselane/pkg/domain"
)

func NewRequestID() string { return "req_" + uuid.NewString() }

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	resp := map[string]any{
		"request_id": NewRequestID(),
		"error": map[string]any{
			"code": code, "message": message, "details": details,
		},
	}
	WriteJSON(w, status, resp)
}

// WriteDomainError maps the agreement error taxonomy onto the HTTP surface.
// TransferFailed is the one soft code: state is unchanged and the call stays
// retriable, which 502 signals without implying a client mistake.
func WriteDomainError(w http.ResponseWriter, err error) {
	status, code := 500, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrAccessDenied):
		status, code = 403, "ACCESS_DENIED"
	case errors.Is(err, domain.ErrInvalidWindow):
		status, code = 409, "INVALID_WINDOW"
	case errors.Is(err, domain.ErrAlreadyOccupied):
		status, code = 409, "ALREADY_OCCUPIED"
	case errors.Is(err, domain.ErrInsufficientFunds):
		status, code = 402, "INSUFFICIENT_FUNDS"
	case errors.Is(err, domain.ErrInvalidParameter):
		status, code = 400, "INVALID_PARAMETER"
	case errors.Is(err, domain.ErrNothingToCollect):
		status, code = 409, "NOTHING_TO_COLLECT"
	case errors.Is(err, domain.ErrRentNotDue):
		status, code = 409, "RENT_NOT_DUE"
	case errors.Is(err, domain.ErrTransferFailed):
		status, code = 502, "PAYMENT_FAILED"
	case errors.Is(err, domain.ErrWrongRefundAmount):
		status, code = 409, "WRONG_REFUND_AMOUNT"
	case errors.Is(err, domain.ErrUnexpectedTransfer):
		status, code = 409, "UNEXPECTED_TRANSFER"
	case errors.Is(err, domain.ErrOperationInProgress):
		status, code = 409, "OPERATION_IN_PROGRESS"
	case errors.Is(err, domain.ErrAmountOverflow):
		status, code = 400, "AMOUNT_OVERFLOW"
	}
	WriteError(w, status, code, err.Error(), nil)
}
