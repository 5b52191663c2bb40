package bank

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func boolPtr(v bool) *bool { return &v }

func TestDeliver(t *testing.T) {
	b := New(Config{Accounts: []AccountConfig{
		{ID: "acct_open"},
		{ID: "acct_closed", Receivable: boolPtr(false)},
		{ID: "acct_flaky", FailAfter: 2},
	}})

	if err := b.Deliver("t1", "acct_open", 100); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if bal, _ := b.Balance("acct_open"); bal != 100 {
		t.Fatalf("balance = %d", bal)
	}

	if err := b.Deliver("t2", "acct_closed", 100); !errors.Is(err, ErrUndeliverable) {
		t.Fatalf("closed account err = %v", err)
	}
	if err := b.Deliver("t3", "acct_open", 0); !errors.Is(err, ErrBadAmount) {
		t.Fatalf("zero amount err = %v", err)
	}

	// Unknown accounts are receivable by default.
	if err := b.Deliver("t4", "acct_new", 50); err != nil {
		t.Fatalf("unknown account: %v", err)
	}

	strict := New(Config{AllowUnknown: boolPtr(false)})
	if err := strict.Deliver("t5", "acct_new", 50); !errors.Is(err, ErrUndeliverable) {
		t.Fatalf("strict unknown err = %v", err)
	}
}

func TestDeliver_ReplayDoesNotDoubleCredit(t *testing.T) {
	b := New(Config{})
	if err := b.Deliver("t1", "acct_open", 100); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if err := b.Deliver("t1", "acct_open", 100); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if bal, _ := b.Balance("acct_open"); bal != 100 {
		t.Fatalf("balance after replay = %d, want 100", bal)
	}
}

func TestDeliver_FailAfter(t *testing.T) {
	b := New(Config{Accounts: []AccountConfig{{ID: "acct_flaky", FailAfter: 2}}})
	for i, tid := range []string{"t1", "t2"} {
		if err := b.Deliver(tid, "acct_flaky", 10); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	if err := b.Deliver("t3", "acct_flaky", 10); !errors.Is(err, ErrUndeliverable) {
		t.Fatalf("third delivery err = %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payout.yaml")
	data := `
allow_unknown: false
accounts:
  - id: acct_owner
  - id: acct_closed
    receivable: false
  - id: acct_flaky
    fail_after: 3
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AllowUnknown == nil || *cfg.AllowUnknown {
		t.Fatalf("allow_unknown = %v", cfg.AllowUnknown)
	}
	if len(cfg.Accounts) != 3 {
		t.Fatalf("accounts = %d", len(cfg.Accounts))
	}
	if cfg.Accounts[1].Receivable == nil || *cfg.Accounts[1].Receivable {
		t.Fatalf("acct_closed receivable = %v", cfg.Accounts[1].Receivable)
	}
	if cfg.Accounts[2].FailAfter != 3 {
		t.Fatalf("fail_after = %d", cfg.Accounts[2].FailAfter)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
