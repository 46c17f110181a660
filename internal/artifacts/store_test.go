package artifacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type storedRow struct {
	id        uuid.UUID
	slot      string
	payload   []byte
	createdAt time.Time
}

type fakeDB struct {
	execs  []string
	rows   []storedRow
	clock  time.Time
	failOn string
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return fakeRow{err: errors.New("connection reset")}
	}
	switch {
	case strings.HasPrefix(sql, "INSERT"):
		f.clock = f.clock.Add(time.Second)
		f.rows = append(f.rows, storedRow{
			id:        args[0].(uuid.UUID),
			slot:      args[1].(string),
			payload:   args[2].([]byte),
			createdAt: f.clock,
		})
		return fakeRow{values: []any{f.clock}}
	case strings.HasPrefix(sql, "SELECT"):
		slot := args[0].(string)
		for i := len(f.rows) - 1; i >= 0; i-- {
			r := f.rows[i]
			if r.slot == slot {
				return fakeRow{values: []any{r.id, r.slot, r.payload, r.createdAt}}
			}
		}
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{err: fmt.Errorf("unexpected query %q", sql)}
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: want %d destinations, got %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *uuid.UUID:
			*p = r.values[i].(uuid.UUID)
		case *string:
			*p = r.values[i].(string)
		case *[]byte:
			*p = r.values[i].([]byte)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return fmt.Errorf("unsupported destination %T", d)
		}
	}
	return nil
}

func TestStoreSaveAndLatest(t *testing.T) {
	db := &fakeDB{clock: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)}
	store := NewStore(db)
	ctx := context.Background()

	_, err := store.Latest(ctx, SlotCashFlow)
	require.ErrorIs(t, err, ErrNotFound)

	first, err := store.Save(ctx, SlotCashFlow, map[string]int{"run": 1})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.ID)
	second, err := store.Save(ctx, SlotCashFlow, map[string]int{"run": 2})
	require.NoError(t, err)
	_, err = store.Save(ctx, SlotInvoices, []int{})
	require.NoError(t, err)

	latest, err := store.Latest(ctx, SlotCashFlow)
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
	require.Equal(t, SlotCashFlow, latest.Slot)
	require.JSONEq(t, `{"run":2}`, string(latest.Payload))
	require.True(t, latest.CreatedAt.After(first.CreatedAt))
}

func TestStoreRejectsUnknownSlot(t *testing.T) {
	store := NewStore(&fakeDB{})
	_, err := store.Save(context.Background(), Slot("balance_sheet"), 1)
	require.ErrorIs(t, err, ErrUnknownSlot)
	_, err = store.Latest(context.Background(), Slot(""))
	require.ErrorIs(t, err, ErrUnknownSlot)

	slot, err := ParseSlot("invoices")
	require.NoError(t, err)
	require.Equal(t, SlotInvoices, slot)
}

func TestStoreErrors(t *testing.T) {
	db := &fakeDB{failOn: "INSERT"}
	store := NewStore(db)
	_, err := store.Save(context.Background(), SlotProfitAndLoss, 1)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)

	_, err = store.Save(context.Background(), SlotProfitAndLoss, func() {})
	require.Error(t, err)

	var nilStore *Store
	_, err = nilStore.Latest(context.Background(), SlotCashFlow)
	require.Error(t, err)
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewStore(db).EnsureSchema(context.Background()))
	require.Len(t, db.execs, 1)
	require.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS report_artifacts")
}
