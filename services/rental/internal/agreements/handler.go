package agreements

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"leaselane/pkg/agreement"
	"leaselane/pkg/domain"
	"leaselane/pkg/httpx"
)

// AgreementStore is the persistence surface the handler needs; *Store
// implements it against Postgres, tests implement it in memory.
type AgreementStore interface {
	CreateAgreement(ctx context.Context, agreementID string, snap agreement.Snapshot) error
	GetAgreement(ctx context.Context, agreementID string) (agreement.Snapshot, error)
	Mutate(ctx context.Context, agreementID string, fn func(snap agreement.Snapshot, rec *agreement.Recorder) (agreement.Snapshot, error)) error
	ListEvents(ctx context.Context, agreementID string) ([]agreement.Event, error)
	GetIdempotencyRecord(ctx context.Context, agreementID, account, key, endpoint string) (int, []byte, bool, error)
	SaveIdempotencyRecord(ctx context.Context, agreementID, account, key, endpoint string, status int, body []byte) error
}

type Handler struct {
	Store AgreementStore
	Bank  agreement.Transferer
	Now   func() time.Time

	// Notify, when set, receives committed events for live fan-out.
	Notify func(agreementID string, events []agreement.Event)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) Routes(api chi.Router) {
	api.Post("/agreements", h.createAgreement)
	api.Get("/agreements/{agreement_id}", h.getAgreement)
	api.Get("/agreements/{agreement_id}/events", h.listEvents)

	api.Post("/agreements/{agreement_id}:register", h.register)
	api.Post("/agreements/{agreement_id}:payRent", h.payRent)
	api.Post("/agreements/{agreement_id}:setCharges", h.setCharges)
	api.Post("/agreements/{agreement_id}:extend", h.extend)
	api.Post("/agreements/{agreement_id}:terminate", h.terminate)
	api.Post("/agreements/{agreement_id}:collectRent", h.collectRent)
	api.Post("/agreements/{agreement_id}:collectChange", h.collectChange)
	api.Post("/agreements/{agreement_id}/transfers", h.unsolicitedTransfer)
}

func (h *Handler) createAgreement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner         string `json:"owner"`
		MonthlyRent   int64  `json:"monthly_rent"`
		Deposit       int64  `json:"deposit"`
		InitialPeriod int64  `json:"initial_period"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	a, err := agreement.New(agreement.Config{
		Owner:         domain.Account(strings.TrimSpace(req.Owner)),
		MonthlyRent:   req.MonthlyRent,
		Deposit:       req.Deposit,
		InitialPeriod: req.InitialPeriod,
		Bank:          h.Bank,
		Now:           h.now,
	})
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	agreementID := "agr_" + uuid.NewString()
	if err := h.Store.CreateAgreement(r.Context(), agreementID, a.Snapshot()); err != nil {
		httpx.WriteError(w, 500, "DB_ERROR", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, 201, map[string]any{
		"request_id": httpx.NewRequestID(),
		"agreement":  h.view(agreementID, a.Snapshot()),
	})
}

func (h *Handler) getAgreement(w http.ResponseWriter, r *http.Request) {
	agreementID := chi.URLParam(r, "agreement_id")
	snap, err := h.Store.GetAgreement(r.Context(), agreementID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{
		"request_id": httpx.NewRequestID(),
		"agreement":  h.view(agreementID, snap),
	})
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	agreementID := chi.URLParam(r, "agreement_id")
	if _, err := h.Store.GetAgreement(r.Context(), agreementID); err != nil {
		h.writeStoreError(w, err)
		return
	}
	events, err := h.Store.ListEvents(r.Context(), agreementID)
	if err != nil {
		httpx.WriteError(w, 500, "DB_ERROR", err.Error(), nil)
		return
	}
	if events == nil {
		events = []agreement.Event{}
	}
	httpx.WriteJSON(w, 200, map[string]any{
		"request_id": httpx.NewRequestID(),
		"events":     events,
	})
}

type opRequest struct {
	Account string `json:"account"`
	Payment int64  `json:"payment"`
	Extra   int64  `json:"extra"`
	Delta   int64  `json:"delta"`
	Amount  int64  `json:"amount"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "register", func(a *agreement.Agreement, req opRequest, extras map[string]any) error {
		return a.RegisterTenant(domain.Account(req.Account), req.Payment)
	})
}

func (h *Handler) payRent(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "payRent", func(a *agreement.Agreement, req opRequest, extras map[string]any) error {
		return a.PayRent(domain.Account(req.Account), req.Payment)
	})
}

func (h *Handler) setCharges(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "setCharges", func(a *agreement.Agreement, req opRequest, extras map[string]any) error {
		return a.SetMonthlyCharges(domain.Account(req.Account), req.Extra)
	})
}

func (h *Handler) extend(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "extend", func(a *agreement.Agreement, req opRequest, extras map[string]any) error {
		return a.ExtendRentalPeriod(domain.Account(req.Account), req.Delta)
	})
}

func (h *Handler) terminate(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "terminate", func(a *agreement.Agreement, req opRequest, extras map[string]any) error {
		if err := a.TerminateRental(domain.Account(req.Account), req.Payment); err != nil {
			return err
		}
		extras["refund"] = req.Payment
		return nil
	})
}

func (h *Handler) collectRent(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "collectRent", func(a *agreement.Agreement, req opRequest, extras map[string]any) error {
		amount, err := a.CollectRent(domain.Account(req.Account))
		if err != nil {
			return err
		}
		extras["collected"] = amount
		return nil
	})
}

func (h *Handler) collectChange(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "collectChange", func(a *agreement.Agreement, req opRequest, extras map[string]any) error {
		amount, err := a.CollectChange(domain.Account(req.Account))
		if err != nil {
			return err
		}
		extras["collected"] = amount
		return nil
	})
}

func (h *Handler) unsolicitedTransfer(w http.ResponseWriter, r *http.Request) {
	h.runOperation(w, r, "transfers", func(a *agreement.Agreement, req opRequest, extras map[string]any) error {
		return a.Receive(domain.Account(req.Account), req.Amount)
	})
}

// runOperation is the one mutation path: idempotency replay, then the
// operation inside a store transaction, then response and event fan-out.
// Domain errors come back with the taxonomy mapping; events recorded during
// soft failures are still published.
func (h *Handler) runOperation(w http.ResponseWriter, r *http.Request, endpoint string, op func(a *agreement.Agreement, req opRequest, extras map[string]any) error) {
	agreementID := chi.URLParam(r, "agreement_id")
	var req opRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	req.Account = strings.TrimSpace(req.Account)
	if req.Account == "" {
		httpx.WriteError(w, 400, "BAD_REQUEST", "account is required", nil)
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" {
		status, body, found, err := h.Store.GetIdempotencyRecord(r.Context(), agreementID, req.Account, idemKey, endpoint)
		if err != nil {
			httpx.WriteError(w, 500, "DB_ERROR", err.Error(), nil)
			return
		}
		if found {
			w.Header().Set("content-type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write(body)
			return
		}
	}

	extras := map[string]any{}
	var committed []agreement.Event
	var final agreement.Snapshot
	err := h.Store.Mutate(r.Context(), agreementID, func(snap agreement.Snapshot, rec *agreement.Recorder) (agreement.Snapshot, error) {
		a, err := agreement.Restore(snap, h.Bank, rec, h.now)
		if err != nil {
			return snap, err
		}
		opErr := op(a, req, extras)
		committed = rec.Events
		final = a.Snapshot()
		return final, opErr
	})
	if err != nil {
		if errors.Is(err, ErrAgreementNotFound) {
			httpx.WriteError(w, 404, "NOT_FOUND", "agreement not found", nil)
			return
		}
		h.publish(agreementID, committed)
		httpx.WriteDomainError(w, err)
		return
	}
	h.publish(agreementID, committed)

	resp := map[string]any{
		"request_id": httpx.NewRequestID(),
		"agreement":  h.view(agreementID, final),
	}
	for k, v := range extras {
		resp[k] = v
	}
	body, _ := json.Marshal(resp)
	if idemKey != "" {
		_ = h.Store.SaveIdempotencyRecord(r.Context(), agreementID, req.Account, idemKey, endpoint, 200, body)
	}
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(200)
	_, _ = w.Write(body)
}

func (h *Handler) publish(agreementID string, events []agreement.Event) {
	if h.Notify != nil && len(events) > 0 {
		h.Notify(agreementID, events)
	}
}

func (h *Handler) view(agreementID string, snap agreement.Snapshot) map[string]any {
	v := map[string]any{
		"agreement_id":         agreementID,
		"owner":                string(snap.Owner),
		"tenant":               string(snap.Tenant),
		"monthly_rent":         snap.MonthlyRent,
		"deposit":              snap.Deposit,
		"extra_charges":        snap.ExtraCharges,
		"initial_period":       snap.InitialPeriod,
		"activation_timestamp": snap.Start,
		"expiration_timestamp": snap.Expiration,
		"status":               string(snap.Status),
		"uncollected_rent":     snap.UncollectedRent,
		"uncollected_change":   snap.UncollectedChange,
	}
	if a, err := agreement.Restore(snap, h.Bank, nil, h.now); err == nil {
		if left, err := a.TimeUntilExpiration(); err == nil {
			v["time_until_expiration"] = left
		}
	}
	return v
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrAgreementNotFound) {
		httpx.WriteError(w, 404, "NOT_FOUND", "agreement not found", nil)
		return
	}
	httpx.WriteError(w, 500, "DB_ERROR", err.Error(), nil)
}
