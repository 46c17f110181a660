// Package artifacts persists the JSON output of each sync run in Postgres.
package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Slot names one persisted pipeline output.
type Slot string

// Known slots.
const (
	SlotProfitAndLoss Slot = "profit_and_loss"
	SlotCashFlow      Slot = "cash_flow"
	SlotInvoices      Slot = "invoices"
)

var (
	// ErrNotFound indicates no artifact has been stored for the slot yet.
	ErrNotFound = errors.New("artifacts: not found")
	// ErrUnknownSlot indicates a slot name outside Slots().
	ErrUnknownSlot = errors.New("artifacts: unknown slot")
)

// Slots lists every slot in sync order.
func Slots() []Slot {
	return []Slot{SlotProfitAndLoss, SlotCashFlow, SlotInvoices}
}

// ParseSlot validates a slot name.
func ParseSlot(raw string) (Slot, error) {
	for _, s := range Slots() {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSlot, raw)
}

// Artifact is one stored pipeline output.
type Artifact struct {
	ID        uuid.UUID       `json:"id"`
	Slot      Slot            `json:"slot"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads and writes report artifacts.
type Store struct {
	db Querier
}

// NewStore constructs a Store.
func NewStore(db Querier) *Store {
	return &Store{db: db}
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS report_artifacts (
	id UUID PRIMARY KEY,
	slot TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS report_artifacts_slot_created_idx ON report_artifacts (slot, created_at DESC)`

// EnsureSchema creates the artifact table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("artifacts: store not initialised")
	}
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("artifacts: ensure schema: %w", err)
	}
	return nil
}

// Save stores payload as the newest artifact of slot.
func (s *Store) Save(ctx context.Context, slot Slot, payload any) (Artifact, error) {
	if s == nil || s.db == nil {
		return Artifact{}, fmt.Errorf("artifacts: store not initialised")
	}
	if _, err := ParseSlot(string(slot)); err != nil {
		return Artifact{}, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Artifact{}, fmt.Errorf("artifacts: encode %s: %w", slot, err)
	}
	art := Artifact{ID: uuid.New(), Slot: slot, Payload: raw}
	const query = `INSERT INTO report_artifacts (id, slot, payload) VALUES ($1, $2, $3) RETURNING created_at`
	if err := s.db.QueryRow(ctx, query, art.ID, string(slot), raw).Scan(&art.CreatedAt); err != nil {
		return Artifact{}, fmt.Errorf("artifacts: save %s: %w", slot, err)
	}
	return art, nil
}

// Latest returns the newest artifact of slot.
func (s *Store) Latest(ctx context.Context, slot Slot) (Artifact, error) {
	if s == nil || s.db == nil {
		return Artifact{}, fmt.Errorf("artifacts: store not initialised")
	}
	if _, err := ParseSlot(string(slot)); err != nil {
		return Artifact{}, err
	}
	const query = `SELECT id, slot, payload, created_at FROM report_artifacts
WHERE slot = $1
ORDER BY created_at DESC
LIMIT 1`
	var (
		art     Artifact
		rawSlot string
		payload []byte
	)
	if err := s.db.QueryRow(ctx, query, string(slot)).Scan(&art.ID, &rawSlot, &payload, &art.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Artifact{}, ErrNotFound
		}
		return Artifact{}, fmt.Errorf("artifacts: latest %s: %w", slot, err)
	}
	art.Slot = Slot(rawSlot)
	art.Payload = payload
	return art, nil
}
