package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/repository"
)

// CreditCosts prices each AI operation.
type CreditCosts struct {
	Recognition int
	Story       int
	Cards       int
}

// DefaultCreditCosts are the standard prices.
func DefaultCreditCosts() CreditCosts {
	return CreditCosts{Recognition: 2, Story: 5, Cards: 3}
}

// PerGroup is the cost of generating one group's story and cards.
func (c CreditCosts) PerGroup() int { return c.Story + c.Cards }

// CreditGate meters AI operations against the ledger. Guests are never checked or charged.
type CreditGate interface {
	Check(ctx context.Context, actor entity.Actor, amount int) error
	Charge(ctx context.Context, actor entity.Actor, amount int, reason string) error
	Run(ctx context.Context, actor entity.Actor, amount int, reason string, fn func(ctx context.Context) error) error
}

// NewCreditGate wires the ledger.
func NewCreditGate(ledger repository.CreditLedger, logger logrus.FieldLogger) CreditGate {
	return &creditGate{ledger: ledger, log: logger}
}

type creditGate struct {
	ledger repository.CreditLedger
	log    logrus.FieldLogger
}

func (g *creditGate) Check(ctx context.Context, actor entity.Actor, amount int) error {
	if actor.IsGuest || amount <= 0 {
		return nil
	}
	ok, err := g.ledger.HasEnoughCredits(ctx, actor.UserID, amount)
	if err != nil {
		return fmt.Errorf("check credits: %w", err)
	}
	if !ok {
		return entity.ErrInsufficientCredits
	}
	return nil
}

func (g *creditGate) Charge(ctx context.Context, actor entity.Actor, amount int, reason string) error {
	if actor.IsGuest || amount <= 0 {
		return nil
	}
	if err := g.ledger.ConsumeCredits(ctx, actor.UserID, amount, reason); err != nil {
		return fmt.Errorf("consume credits: %w", err)
	}
	g.log.WithFields(logrus.Fields{"user_id": actor.UserID, "amount": amount, "reason": reason}).Debug("credits consumed")
	return nil
}

// Run checks the balance, calls fn and debits only when fn succeeds.
func (g *creditGate) Run(ctx context.Context, actor entity.Actor, amount int, reason string, fn func(ctx context.Context) error) error {
	if err := g.Check(ctx, actor, amount); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		return err
	}
	return g.Charge(ctx, actor, amount, reason)
}
