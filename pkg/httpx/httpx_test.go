package httpx

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"leaselane/pkg/domain"
)

func TestWriteDomainError_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrAccessDenied, 403, "ACCESS_DENIED"},
		{domain.ErrInvalidWindow, 409, "INVALID_WINDOW"},
		{domain.ErrAlreadyOccupied, 409, "ALREADY_OCCUPIED"},
		{domain.ErrInsufficientFunds, 402, "INSUFFICIENT_FUNDS"},
		{domain.ErrInvalidParameter, 400, "INVALID_PARAMETER"},
		{domain.ErrNothingToCollect, 409, "NOTHING_TO_COLLECT"},
		{domain.ErrRentNotDue, 409, "RENT_NOT_DUE"},
		{domain.ErrTransferFailed, 502, "PAYMENT_FAILED"},
		{domain.ErrWrongRefundAmount, 409, "WRONG_REFUND_AMOUNT"},
		{domain.ErrUnexpectedTransfer, 409, "UNEXPECTED_TRANSFER"},
		{domain.ErrOperationInProgress, 409, "OPERATION_IN_PROGRESS"},
		{domain.ErrAmountOverflow, 400, "AMOUNT_OVERFLOW"},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		WriteDomainError(rec, c.err)
		if rec.Code != c.status {
			t.Fatalf("%v: status = %d, want %d", c.err, rec.Code, c.status)
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%v: bad body: %v", c.err, err)
		}
		if body.Error.Code != c.code {
			t.Fatalf("%v: code = %q, want %q", c.err, body.Error.Code, c.code)
		}
	}
}
