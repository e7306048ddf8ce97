package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/repository"
)

const (
	usersTable              = "users"
	creditTransactionsTable = "credit_transactions"
)

var creditTransactionColumns = []string{"id", "user_id", "amount", "type", "description", "created_at"}

// CreditRepository stores user rows, balances and the credit transaction log.
type CreditRepository struct {
	store
	clock func() time.Time
	newID func() string
}

var (
	_ repository.CreditLedger   = (*CreditRepository)(nil)
	_ repository.UserRepository = (*CreditRepository)(nil)
)

func NewCreditRepository(drv *entsql.Driver, logger logrus.FieldLogger) *CreditRepository {
	return &CreditRepository{store: newStore(drv, logger), clock: time.Now, newID: uuid.NewString}
}

func (r *CreditRepository) EnsureGuest(ctx context.Context, guestID string) error {
	return r.ensureUser(ctx, r.db, guestID, true)
}

func (r *CreditRepository) ensureUser(ctx context.Context, q execQuerier, id string, guest bool) error {
	now := r.clock().UTC()
	insert := r.builder().Insert(usersTable).
		Columns("id", "is_guest", "current_credits", "created_at", "updated_at").
		Values(id, guest, 0, now, now).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing())
	if _, err := r.exec(ctx, q, insert); err != nil {
		return fmt.Errorf("ensure user: %w", translateError(err))
	}
	return nil
}

func (r *CreditRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	sel := r.builder().Select(entsql.Count("*")).
		From(entsql.Table(usersTable)).
		Where(entsql.EQ("id", id))
	if err := r.queryRow(ctx, r.db, sel).Scan(&n); err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return n > 0, nil
}

func (r *CreditRepository) ListRegisteredIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	sel := r.builder().Select("id").
		From(entsql.Table(usersTable)).
		Where(entsql.And(entsql.EQ("is_guest", false), entsql.GT("id", afterID))).
		OrderBy("id").
		Limit(limit)
	rows, err := r.query(ctx, r.db, sel)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *CreditRepository) Balance(ctx context.Context, userID string) (int, error) {
	var balance int
	sel := r.builder().Select("current_credits").
		From(entsql.Table(usersTable)).
		Where(entsql.EQ("id", userID))
	if err := r.queryRow(ctx, r.db, sel).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

func (r *CreditRepository) HasEnoughCredits(ctx context.Context, userID string, amount int) (bool, error) {
	balance, err := r.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

// ConsumeCredits decrements the balance only when it covers amount, so
// concurrent debits can never drive it negative.
func (r *CreditRepository) ConsumeCredits(ctx context.Context, userID string, amount int, description string) error {
	if amount <= 0 {
		return nil
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		now := r.clock().UTC()
		debit := r.builder().Update(usersTable).
			Add("current_credits", -amount).
			Set("updated_at", now).
			Where(entsql.And(entsql.EQ("id", userID), entsql.GTE("current_credits", amount)))
		ok, err := r.affected(ctx, tx, debit)
		if err != nil {
			return fmt.Errorf("debit credits: %w", err)
		}
		if !ok {
			return entity.ErrInsufficientCredits
		}
		return r.record(ctx, tx, userID, -amount, repository.CreditTransactionConsume, description, now)
	})
}

func (r *CreditRepository) Grant(ctx context.Context, userID string, amount int, description string) error {
	if amount <= 0 {
		return fmt.Errorf("grant amount must be positive, got %d", amount)
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := r.ensureUser(ctx, tx, userID, entity.IsGuestID(userID)); err != nil {
			return err
		}
		now := r.clock().UTC()
		credit := r.builder().Update(usersTable).
			Add("current_credits", amount).
			Set("updated_at", now).
			Where(entsql.EQ("id", userID))
		if _, err := r.exec(ctx, tx, credit); err != nil {
			return fmt.Errorf("credit user: %w", err)
		}
		return r.record(ctx, tx, userID, amount, repository.CreditTransactionGrant, description, now)
	})
}

func (r *CreditRepository) record(ctx context.Context, q execQuerier, userID string, amount int, kind repository.CreditTransactionType, description string, at time.Time) error {
	insert := r.builder().Insert(creditTransactionsTable).
		Columns(creditTransactionColumns...).
		Values(r.newID(), userID, amount, string(kind), description, at)
	if _, err := r.exec(ctx, q, insert); err != nil {
		return fmt.Errorf("record credit transaction: %w", translateError(err))
	}
	return nil
}
