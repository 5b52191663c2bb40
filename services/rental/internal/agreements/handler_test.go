package agreements

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"leaselane/pkg/agreement"
	"leaselane/pkg/domain"
)

type idemRecord struct {
	status int
	body   []byte
}

type fakeStore struct {
	snaps  map[string]agreement.Snapshot
	events map[string][]agreement.Event
	idem   map[string]idemRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		snaps:  map[string]agreement.Snapshot{},
		events: map[string][]agreement.Event{},
		idem:   map[string]idemRecord{},
	}
}

func (f *fakeStore) CreateAgreement(ctx context.Context, id string, snap agreement.Snapshot) error {
	f.snaps[id] = snap
	return nil
}

func (f *fakeStore) GetAgreement(ctx context.Context, id string) (agreement.Snapshot, error) {
	snap, ok := f.snaps[id]
	if !ok {
		return agreement.Snapshot{}, ErrAgreementNotFound
	}
	return snap, nil
}

func (f *fakeStore) Mutate(ctx context.Context, id string, fn func(agreement.Snapshot, *agreement.Recorder) (agreement.Snapshot, error)) error {
	snap, ok := f.snaps[id]
	if !ok {
		return ErrAgreementNotFound
	}
	rec := &agreement.Recorder{}
	next, opErr := fn(snap, rec)
	if opErr == nil {
		f.snaps[id] = next
	}
	f.events[id] = append(f.events[id], rec.Events...)
	return opErr
}

func (f *fakeStore) ListEvents(ctx context.Context, id string) ([]agreement.Event, error) {
	return f.events[id], nil
}

func (f *fakeStore) GetIdempotencyRecord(ctx context.Context, id, account, key, endpoint string) (int, []byte, bool, error) {
	rec, ok := f.idem[id+"|"+account+"|"+key+"|"+endpoint]
	if !ok {
		return 0, nil, false, nil
	}
	return rec.status, rec.body, true, nil
}

func (f *fakeStore) SaveIdempotencyRecord(ctx context.Context, id, account, key, endpoint string, status int, body []byte) error {
	f.idem[id+"|"+account+"|"+key+"|"+endpoint] = idemRecord{status: status, body: body}
	return nil
}

type fakeBank struct {
	unreceivable map[string]bool
	calls        int
}

func (b *fakeBank) Transfer(to domain.Account, amount int64) error {
	b.calls++
	if b.unreceivable[string(to)] {
		return errors.New("account closed")
	}
	return nil
}

type apiRig struct {
	mux   *chi.Mux
	store *fakeStore
	bank  *fakeBank
	now   *int64
}

func newAPIRig(t *testing.T) *apiRig {
	t.Helper()
	st := newFakeStore()
	bank := &fakeBank{unreceivable: map[string]bool{}}
	now := new(int64)
	*now = 1_700_000_000
	h := &Handler{
		Store: st,
		Bank:  bank,
		Now:   func() time.Time { return time.Unix(*now, 0) },
	}
	mux := chi.NewRouter()
	mux.Route("/rental/v1", h.Routes)
	return &apiRig{mux: mux, store: st, bank: bank, now: now}
}

func (r *apiRig) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %s: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func (r *apiRig) createAgreement(t *testing.T) string {
	t.Helper()
	rec, out := r.do(t, "POST", "/rental/v1/agreements", map[string]any{
		"owner":          "acct_owner",
		"monthly_rent":   1200,
		"deposit":        2400,
		"initial_period": 2592000,
	}, nil)
	if rec.Code != 201 {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	view := out["agreement"].(map[string]any)
	return view["agreement_id"].(string)
}

func errorCode(t *testing.T, out map[string]any) string {
	t.Helper()
	errObj, ok := out["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in %v", out)
	}
	return errObj["code"].(string)
}

func TestLifecycleOverHTTP(t *testing.T) {
	r := newAPIRig(t)
	id := r.createAgreement(t)
	base := "/rental/v1/agreements/" + id

	rec, out := r.do(t, "POST", base+":register", map[string]any{"account": "acct_tenant", "payment": 2400}, nil)
	if rec.Code != 200 {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}
	view := out["agreement"].(map[string]any)
	if view["status"] != "PAID" || view["tenant"] != "acct_tenant" {
		t.Fatalf("unexpected view: %v", view)
	}
	if view["time_until_expiration"].(float64) != 2592000 {
		t.Fatalf("time_until_expiration = %v", view["time_until_expiration"])
	}

	rec, _ = r.do(t, "POST", base+":setCharges", map[string]any{"account": "acct_owner", "extra": 100}, nil)
	if rec.Code != 200 {
		t.Fatalf("setCharges status = %d: %s", rec.Code, rec.Body.String())
	}

	rec, out = r.do(t, "POST", base+":payRent", map[string]any{"account": "acct_tenant", "payment": 1300}, nil)
	if rec.Code != 200 {
		t.Fatalf("payRent status = %d: %s", rec.Code, rec.Body.String())
	}
	view = out["agreement"].(map[string]any)
	if view["status"] != "PAID" || view["extra_charges"].(float64) != 0 {
		t.Fatalf("unexpected view after payRent: %v", view)
	}

	rec, out = r.do(t, "POST", base+":terminate", map[string]any{"account": "acct_owner", "payment": 2400}, nil)
	if rec.Code != 200 {
		t.Fatalf("terminate status = %d: %s", rec.Code, rec.Body.String())
	}
	view = out["agreement"].(map[string]any)
	if view["status"] != "INACTIVE" || view["tenant"] != "" {
		t.Fatalf("unexpected view after terminate: %v", view)
	}
	if out["refund"].(float64) != 2400 {
		t.Fatalf("refund = %v", out["refund"])
	}

	rec, out = r.do(t, "GET", base+"/events", nil, nil)
	if rec.Code != 200 {
		t.Fatalf("events status = %d", rec.Code)
	}
	if len(out["events"].([]any)) == 0 {
		t.Fatalf("expected recorded events")
	}
}

func TestErrorMappingOverHTTP(t *testing.T) {
	r := newAPIRig(t)
	id := r.createAgreement(t)
	base := "/rental/v1/agreements/" + id

	rec, out := r.do(t, "POST", base+":register", map[string]any{"account": "acct_tenant", "payment": 100}, nil)
	if rec.Code != 402 || errorCode(t, out) != "INSUFFICIENT_FUNDS" {
		t.Fatalf("low deposit: %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = r.do(t, "POST", base+":register", map[string]any{"account": "acct_tenant", "payment": 2400}, nil)
	if rec.Code != 200 {
		t.Fatalf("register: %d", rec.Code)
	}

	rec, out = r.do(t, "POST", base+":payRent", map[string]any{"account": "acct_tenant", "payment": 1200}, nil)
	if rec.Code != 409 || errorCode(t, out) != "RENT_NOT_DUE" {
		t.Fatalf("double pay: %d %s", rec.Code, rec.Body.String())
	}

	rec, out = r.do(t, "POST", base+":setCharges", map[string]any{"account": "acct_tenant", "extra": 10}, nil)
	if rec.Code != 403 || errorCode(t, out) != "ACCESS_DENIED" {
		t.Fatalf("tenant setting charges: %d %s", rec.Code, rec.Body.String())
	}

	rec, out = r.do(t, "POST", base+":extend", map[string]any{"account": "acct_owner", "delta": 0}, nil)
	if rec.Code != 400 || errorCode(t, out) != "INVALID_PARAMETER" {
		t.Fatalf("extend(0): %d %s", rec.Code, rec.Body.String())
	}

	rec, out = r.do(t, "POST", base+":terminate", map[string]any{"account": "acct_owner", "payment": 2401}, nil)
	if rec.Code != 409 || errorCode(t, out) != "WRONG_REFUND_AMOUNT" {
		t.Fatalf("wrong refund: %d %s", rec.Code, rec.Body.String())
	}

	rec, out = r.do(t, "POST", "/rental/v1/agreements/agr_missing:register", map[string]any{"account": "a", "payment": 1}, nil)
	if rec.Code != 404 || errorCode(t, out) != "NOT_FOUND" {
		t.Fatalf("missing agreement: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUnsolicitedTransferRejectedButAudited(t *testing.T) {
	r := newAPIRig(t)
	id := r.createAgreement(t)

	rec, out := r.do(t, "POST", "/rental/v1/agreements/"+id+"/transfers", map[string]any{"account": "acct_stranger", "amount": 50}, nil)
	if rec.Code != 409 || errorCode(t, out) != "UNEXPECTED_TRANSFER" {
		t.Fatalf("unsolicited transfer: %d %s", rec.Code, rec.Body.String())
	}
	events := r.store.events[id]
	if len(events) != 1 || events[0].Type != agreement.EventUnexpectedTransfer {
		t.Fatalf("events = %+v", events)
	}
}

func TestSoftFailureAndPullRecoveryOverHTTP(t *testing.T) {
	r := newAPIRig(t)
	id := r.createAgreement(t)
	base := "/rental/v1/agreements/" + id
	r.bank.unreceivable["acct_owner"] = true

	rec, out := r.do(t, "POST", base+":register", map[string]any{"account": "acct_tenant", "payment": 2400}, nil)
	if rec.Code != 200 {
		t.Fatalf("register with failing push: %d %s", rec.Code, rec.Body.String())
	}
	view := out["agreement"].(map[string]any)
	if view["uncollected_rent"].(float64) != 2400 {
		t.Fatalf("uncollected_rent = %v", view["uncollected_rent"])
	}

	rec, out = r.do(t, "POST", base+":collectRent", map[string]any{"account": "acct_owner"}, nil)
	if rec.Code != 502 || errorCode(t, out) != "PAYMENT_FAILED" {
		t.Fatalf("collect while unreceivable: %d %s", rec.Code, rec.Body.String())
	}

	r.bank.unreceivable["acct_owner"] = false
	rec, out = r.do(t, "POST", base+":collectRent", map[string]any{"account": "acct_owner"}, nil)
	if rec.Code != 200 {
		t.Fatalf("collect: %d %s", rec.Code, rec.Body.String())
	}
	if out["collected"].(float64) != 2400 {
		t.Fatalf("collected = %v", out["collected"])
	}

	rec, out = r.do(t, "POST", base+":collectRent", map[string]any{"account": "acct_owner"}, nil)
	if rec.Code != 409 || errorCode(t, out) != "NOTHING_TO_COLLECT" {
		t.Fatalf("second collect: %d %s", rec.Code, rec.Body.String())
	}
}

func TestIdempotencyReplay(t *testing.T) {
	r := newAPIRig(t)
	id := r.createAgreement(t)
	base := "/rental/v1/agreements/" + id
	headers := map[string]string{"Idempotency-Key": "key-1"}

	rec1, _ := r.do(t, "POST", base+":register", map[string]any{"account": "acct_tenant", "payment": 2400}, headers)
	if rec1.Code != 200 {
		t.Fatalf("register: %d %s", rec1.Code, rec1.Body.String())
	}
	callsAfterFirst := r.bank.calls

	rec2, _ := r.do(t, "POST", base+":register", map[string]any{"account": "acct_tenant", "payment": 2400}, headers)
	if rec2.Code != 200 {
		t.Fatalf("replay status = %d", rec2.Code)
	}
	if rec2.Body.String() != rec1.Body.String() {
		t.Fatalf("replay body differs:\n%s\n%s", rec1.Body.String(), rec2.Body.String())
	}
	if r.bank.calls != callsAfterFirst {
		t.Fatalf("replay re-ran the operation")
	}

	// Same payload without the key is a genuine second call and must fail.
	rec3, out := r.do(t, "POST", base+":register", map[string]any{"account": "acct_tenant", "payment": 2400}, nil)
	if rec3.Code != 409 || errorCode(t, out) != "ALREADY_OCCUPIED" {
		t.Fatalf("repeat without key: %d %s", rec3.Code, rec3.Body.String())
	}
}

func TestCreateAgreement_Validation(t *testing.T) {
	r := newAPIRig(t)
	rec, out := r.do(t, "POST", "/rental/v1/agreements", map[string]any{
		"owner":          "",
		"monthly_rent":   10,
		"deposit":        10,
		"initial_period": 60,
	}, nil)
	if rec.Code != 400 || errorCode(t, out) != "INVALID_PARAMETER" {
		t.Fatalf("empty owner: %d %s", rec.Code, rec.Body.String())
	}

	rec, out = r.do(t, "POST", "/rental/v1/agreements/agr_x:register", map[string]any{"payment": 5}, nil)
	if rec.Code != 400 || errorCode(t, out) != "BAD_REQUEST" {
		t.Fatalf("missing account: %d %s", rec.Code, rec.Body.String())
	}
}

var _ AgreementStore = (*fakeStore)(nil)
