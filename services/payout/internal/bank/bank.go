package bank

import (
	"errors"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrUndeliverable = errors.New("account is not receivable")
	ErrBadAmount     = errors.New("amount must be positive")
)

// Config describes the simulated accounts. Accounts not listed are receivable
// unless AllowUnknown is false; FailAfter lets a fixture model a recipient
// that stops accepting funds after N deliveries.
type Config struct {
	AllowUnknown *bool           `yaml:"allow_unknown"`
	Accounts     []AccountConfig `yaml:"accounts"`
}

type AccountConfig struct {
	ID         string `yaml:"id"`
	Receivable *bool  `yaml:"receivable"`
	FailAfter  int    `yaml:"fail_after"`
}

func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	for _, a := range cfg.Accounts {
		if strings.TrimSpace(a.ID) == "" {
			return Config{}, errors.New("account id is required")
		}
	}
	return cfg, nil
}

type accountState struct {
	receivable bool
	failAfter  int
	delivered  int
	balance    int64
}

// Bank delivers pushed funds to simulated accounts and remembers transfer
// ids, so a retried delivery is acknowledged without double-crediting.
type Bank struct {
	mu           sync.Mutex
	allowUnknown bool
	accounts     map[string]*accountState
	seen         map[string]bool
}

func New(cfg Config) *Bank {
	b := &Bank{
		allowUnknown: cfg.AllowUnknown == nil || *cfg.AllowUnknown,
		accounts:     map[string]*accountState{},
		seen:         map[string]bool{},
	}
	for _, a := range cfg.Accounts {
		b.accounts[a.ID] = &accountState{
			receivable: a.Receivable == nil || *a.Receivable,
			failAfter:  a.FailAfter,
		}
	}
	return b
}

func (b *Bank) Deliver(transferID, account string, amount int64) error {
	if amount <= 0 {
		return ErrBadAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if transferID != "" && b.seen[transferID] {
		return nil
	}
	st, ok := b.accounts[account]
	if !ok {
		if !b.allowUnknown {
			return ErrUndeliverable
		}
		st = &accountState{receivable: true}
		b.accounts[account] = st
	}
	if !st.receivable {
		return ErrUndeliverable
	}
	if st.failAfter > 0 && st.delivered >= st.failAfter {
		return ErrUndeliverable
	}
	st.delivered++
	st.balance += amount
	if transferID != "" {
		b.seen[transferID] = true
	}
	return nil
}

func (b *Bank) Balance(account string) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.accounts[account]
	if !ok {
		return 0, false
	}
	return st.balance, true
}
