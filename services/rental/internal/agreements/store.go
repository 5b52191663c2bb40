package agreements

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leaselane/pkg/agreement"
	"leaselane/pkg/domain"
)

var ErrAgreementNotFound = errors.New("agreement not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store { return &Store{DB: db} }

const schema = `
CREATE TABLE IF NOT EXISTS agreements (
	agreement_id       text PRIMARY KEY,
	owner_account      text NOT NULL,
	tenant_account     text NOT NULL DEFAULT '',
	monthly_rent       bigint NOT NULL,
	deposit            bigint NOT NULL,
	extra_charges      bigint NOT NULL DEFAULT 0,
	initial_period     bigint NOT NULL,
	start_ts           bigint NOT NULL DEFAULT 0,
	expiration_ts      bigint NOT NULL DEFAULT 0,
	status             text NOT NULL,
	uncollected_rent   bigint NOT NULL DEFAULT 0,
	uncollected_change bigint NOT NULL DEFAULT 0,
	created_at         timestamptz NOT NULL DEFAULT now(),
	updated_at         timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS agreement_events (
	event_id     text PRIMARY KEY,
	agreement_id text NOT NULL REFERENCES agreements(agreement_id),
	type         text NOT NULL,
	occurred_at  timestamptz NOT NULL,
	fields       jsonb NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS agreement_events_by_agreement
	ON agreement_events(agreement_id, occurred_at);
CREATE TABLE IF NOT EXISTS idempotency_records (
	agreement_id    text NOT NULL,
	account         text NOT NULL,
	idempotency_key text NOT NULL,
	endpoint        text NOT NULL,
	response_status int NOT NULL,
	response_body   jsonb NOT NULL,
	created_at      timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (agreement_id, account, idempotency_key, endpoint)
);`

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, schema)
	return err
}

const agreementColumns = `owner_account,tenant_account,monthly_rent,deposit,extra_charges,
initial_period,start_ts,expiration_ts,status,uncollected_rent,uncollected_change`

func (s *Store) CreateAgreement(ctx context.Context, agreementID string, snap agreement.Snapshot) error {
	_, err := s.DB.Exec(ctx, `INSERT INTO agreements(agreement_id,`+agreementColumns+`)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		agreementID, string(snap.Owner), string(snap.Tenant), snap.MonthlyRent, snap.Deposit,
		snap.ExtraCharges, snap.InitialPeriod, snap.Start, snap.Expiration,
		string(snap.Status), snap.UncollectedRent, snap.UncollectedChange)
	return err
}

func scanSnapshot(row pgx.Row) (agreement.Snapshot, error) {
	var snap agreement.Snapshot
	var owner, tenant, status string
	err := row.Scan(&owner, &tenant, &snap.MonthlyRent, &snap.Deposit, &snap.ExtraCharges,
		&snap.InitialPeriod, &snap.Start, &snap.Expiration, &status,
		&snap.UncollectedRent, &snap.UncollectedChange)
	if errors.Is(err, pgx.ErrNoRows) {
		return agreement.Snapshot{}, ErrAgreementNotFound
	}
	if err != nil {
		return agreement.Snapshot{}, err
	}
	snap.Owner = domain.Account(owner)
	snap.Tenant = domain.Account(tenant)
	snap.Status = domain.RentStatus(status)
	return snap, nil
}

func (s *Store) GetAgreement(ctx context.Context, agreementID string) (agreement.Snapshot, error) {
	return scanSnapshot(s.DB.QueryRow(ctx,
		`SELECT `+agreementColumns+` FROM agreements WHERE agreement_id=$1`, agreementID))
}

// Mutate runs one operation against the agreement row under a row lock, so a
// single logical agreement processes operations strictly one at a time. The
// updated snapshot is persisted only when the operation succeeded; buffered
// events are persisted regardless, because soft failures and rejected
// unsolicited transfers must still leave an audit trail.
func (s *Store) Mutate(ctx context.Context, agreementID string, fn func(snap agreement.Snapshot, rec *agreement.Recorder) (agreement.Snapshot, error)) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	snap, err := scanSnapshot(tx.QueryRow(ctx,
		`SELECT `+agreementColumns+` FROM agreements WHERE agreement_id=$1 FOR UPDATE`, agreementID))
	if err != nil {
		return err
	}

	rec := &agreement.Recorder{}
	next, opErr := fn(snap, rec)
	if opErr == nil {
		if _, err := tx.Exec(ctx, `UPDATE agreements SET
tenant_account=$2, extra_charges=$3, start_ts=$4, expiration_ts=$5, status=$6,
uncollected_rent=$7, uncollected_change=$8, updated_at=now()
WHERE agreement_id=$1`,
			agreementID, string(next.Tenant), next.ExtraCharges, next.Start, next.Expiration,
			string(next.Status), next.UncollectedRent, next.UncollectedChange); err != nil {
			return err
		}
	}
	for _, e := range rec.Events {
		b, _ := json.Marshal(e.Fields)
		if _, err := tx.Exec(ctx, `INSERT INTO agreement_events(event_id,agreement_id,type,occurred_at,fields)
VALUES($1,$2,$3,$4,$5::jsonb)`,
			"evt_"+uuid.NewString(), agreementID, e.Type, e.At, string(b)); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	return opErr
}

func (s *Store) ListEvents(ctx context.Context, agreementID string) ([]agreement.Event, error) {
	rows, err := s.DB.Query(ctx, `SELECT type,occurred_at,fields FROM agreement_events
WHERE agreement_id=$1 ORDER BY occurred_at ASC, event_id ASC`, agreementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []agreement.Event
	for rows.Next() {
		var e agreement.Event
		var fields []byte
		if err := rows.Scan(&e.Type, &e.At, &fields); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(fields, &e.Fields)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) GetIdempotencyRecord(ctx context.Context, agreementID, account, key, endpoint string) (int, []byte, bool, error) {
	var status int
	var body []byte
	err := s.DB.QueryRow(ctx, `SELECT response_status,response_body FROM idempotency_records
WHERE agreement_id=$1 AND account=$2 AND idempotency_key=$3 AND endpoint=$4`,
		agreementID, account, key, endpoint).Scan(&status, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	return status, body, true, nil
}

func (s *Store) SaveIdempotencyRecord(ctx context.Context, agreementID, account, key, endpoint string, status int, body []byte) error {
	_, err := s.DB.Exec(ctx, `INSERT INTO idempotency_records(agreement_id,account,idempotency_key,endpoint,response_status,response_body)
VALUES($1,$2,$3,$4,$5,$6::jsonb)
ON CONFLICT (agreement_id,account,idempotency_key,endpoint) DO NOTHING`,
		agreementID, account, key, endpoint, status, body)
	return err
}
