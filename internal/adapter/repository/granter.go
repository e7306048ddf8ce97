package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/repository"
)

const grantRegisteredUserSQL = `WITH credited AS (
	UPDATE users SET current_credits = current_credits + $2, updated_at = now()
	WHERE id = $1 AND is_guest = false
	RETURNING id
)
INSERT INTO credit_transactions (id, user_id, amount, type, description, created_at)
SELECT $3, id, $2, 'grant', $4, now() FROM credited`

// BatchCreditGranter pipelines one grant per user through a single pgx batch.
type BatchCreditGranter struct {
	pool  *pgxpool.Pool
	log   logrus.FieldLogger
	newID func() string
}

func NewBatchCreditGranter(pool *pgxpool.Pool, logger logrus.FieldLogger) *BatchCreditGranter {
	return &BatchCreditGranter{pool: pool, log: logger, newID: uuid.NewString}
}

func (g *BatchCreditGranter) GrantMany(ctx context.Context, userIDs []string, amount int, description string) (repository.CreditGrantResult, error) {
	var res repository.CreditGrantResult
	if len(userIDs) == 0 {
		return res, nil
	}
	b := &pgx.Batch{}
	for _, id := range userIDs {
		b.Queue(grantRegisteredUserSQL, id, amount, g.newID(), description)
	}

	br := g.pool.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return repository.CreditGrantResult{}, fmt.Errorf("grant batch: %w", err)
		}
		if tag.RowsAffected() == 1 {
			res.Processed++
		} else {
			g.log.WithField("user_id", userIDs[i]).Warn("user vanished before grant")
			res.Failed++
		}
	}
	return res, br.Close()
}

// LedgerCreditGranter grants users one at a time through the ledger. It backs
// drivers without a pgx pool.
type LedgerCreditGranter struct {
	ledger repository.CreditLedger
	log    logrus.FieldLogger
}

func NewLedgerCreditGranter(ledger repository.CreditLedger, logger logrus.FieldLogger) *LedgerCreditGranter {
	return &LedgerCreditGranter{ledger: ledger, log: logger}
}

func (g *LedgerCreditGranter) GrantMany(ctx context.Context, userIDs []string, amount int, description string) (repository.CreditGrantResult, error) {
	var res repository.CreditGrantResult
	for _, id := range userIDs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := g.ledger.Grant(ctx, id, amount, description); err != nil {
			g.log.WithError(err).WithField("user_id", id).Warn("grant failed")
			res.Failed++
			continue
		}
		res.Processed++
	}
	return res, nil
}
