package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/repository"
)

const _defaultDistributionBatch = 500

// DistributionReport summarises a credit distribution run.
type DistributionReport struct {
	Users     int
	Processed int
	Failed    int
}

// CreditDistributor grants a fixed amount to every registered user.
type CreditDistributor interface {
	Distribute(ctx context.Context, amount, batchSize int) (DistributionReport, error)
}

type creditDistributor struct {
	users   repository.UserRepository
	granter repository.BulkCreditGranter
	log     logrus.FieldLogger
}

func NewCreditDistributor(users repository.UserRepository, granter repository.BulkCreditGranter, logger logrus.FieldLogger) CreditDistributor {
	return &creditDistributor{users: users, granter: granter, log: logger}
}

func (d *creditDistributor) Distribute(ctx context.Context, amount, batchSize int) (DistributionReport, error) {
	var report DistributionReport
	if amount <= 0 {
		return report, errors.New("amount must be positive")
	}
	if batchSize <= 0 {
		batchSize = _defaultDistributionBatch
	}

	description := fmt.Sprintf("scheduled distribution: %d credits", amount)
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		ids, err := d.users.ListRegisteredIDs(ctx, after, batchSize)
		if err != nil {
			return report, fmt.Errorf("list users: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		report.Users += len(ids)

		res, err := d.granter.GrantMany(ctx, ids, amount, description)
		report.Processed += res.Processed
		report.Failed += res.Failed
		if err != nil {
			d.log.WithError(err).WithField("batch_size", len(ids)).Error("credit batch failed")
			report.Failed += len(ids) - res.Processed - res.Failed
		}
		d.log.WithFields(logrus.Fields{"processed": report.Processed, "failed": report.Failed}).Info("credit batch done")

		after = ids[len(ids)-1]
		if len(ids) < batchSize {
			break
		}
	}
	return report, nil
}
