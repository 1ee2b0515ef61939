package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finboard/internal/core"
	"finboard/internal/storage"
)

// SubscriptionSource lists the subscriptions eligible for billing.
type SubscriptionSource interface {
	ListActiveSubscriptions(ctx context.Context) ([]core.Subscription, error)
}

// ChargeLedger answers whether a subscription's charge for a month has
// already been materialized.
type ChargeLedger interface {
	AutoChargeExists(ctx context.Context, marker string, month core.MonthPeriod) (bool, error)
}

// ExpenseCreator persists a materialized charge.
type ExpenseCreator interface {
	CreateExpense(ctx context.Context, e core.Expense) (int64, error)
}

// BillingProcessor materializes subscription charges into expenses once
// per subscription per month, on or after the billing day.
type BillingProcessor struct {
	subscriptions SubscriptionSource
	ledger        ChargeLedger
	expenses      ExpenseCreator

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewBillingProcessor(subs SubscriptionSource, ledger ChargeLedger, expenses ExpenseCreator) *BillingProcessor {
	return &BillingProcessor{
		subscriptions: subs,
		ledger:        ledger,
		expenses:      expenses,
		inFlight:      make(map[string]struct{}),
	}
}

// ProcessDueCharges walks the active subscriptions and creates the
// charges due at now. It returns the number of expenses created. One
// failing subscription does not stop the run.
func (p *BillingProcessor) ProcessDueCharges(ctx context.Context, now time.Time) (int, error) {
	if p.subscriptions == nil || p.ledger == nil || p.expenses == nil {
		return 0, fmt.Errorf("billing processor not properly initialized")
	}

	subs, err := p.subscriptions.ListActiveSubscriptions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active subscriptions: %w", err)
	}

	month := core.MonthPeriodOf(now)
	slog.InfoContext(ctx, "Processing subscription charges",
		"total_active", len(subs),
		"month", string(month),
		"processing_date", now.Format("2006-01-02"))

	created := 0
	for _, sub := range subs {
		ok, err := p.processOne(ctx, sub, now, month)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize subscription charge",
				"subscription", sub.Name,
				"error", err)
			continue
		}
		if ok {
			created++
		}
	}

	slog.InfoContext(ctx, "Subscription billing complete",
		"created", created,
		"total_checked", len(subs))
	return created, nil
}

func (p *BillingProcessor) processOne(ctx context.Context, sub core.Subscription, now time.Time, month core.MonthPeriod) (bool, error) {
	effectiveDay := sub.BillingDay
	if days := core.DaysInMonth(now); effectiveDay > days {
		effectiveDay = days
	}
	if now.Day() < effectiveDay {
		return false, nil
	}

	marker := core.AutoChargeMarker(sub.Name)

	// Concurrent runs of the same schedule must not double-charge; the
	// database's unique index is the backstop, this guard avoids the
	// round trip.
	key := fmt.Sprintf("%d:%s", sub.ID, month)
	p.mu.Lock()
	if _, busy := p.inFlight[key]; busy {
		p.mu.Unlock()
		return false, nil
	}
	p.inFlight[key] = struct{}{}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.inFlight, key)
		p.mu.Unlock()
	}()

	exists, err := p.ledger.AutoChargeExists(ctx, marker, month)
	if err != nil {
		return false, fmt.Errorf("check existing charge: %w", err)
	}
	if exists {
		return false, nil
	}

	expense := core.Expense{
		Category:    sub.Category,
		Amount:      sub.Amount,
		Description: sub.Name,
		RawInput:    marker,
		Date:        time.Date(now.Year(), now.Month(), effectiveDay, 0, 0, 0, 0, now.Location()),
	}

	if _, err := p.expenses.CreateExpense(ctx, expense); err != nil {
		if errors.Is(err, storage.ErrDuplicateAutoCharge) {
			slog.InfoContext(ctx, "Charge already materialized, skipping",
				"subscription", sub.Name,
				"month", string(month))
			return false, nil
		}
		return false, err
	}

	slog.InfoContext(ctx, "Materialized subscription charge",
		"subscription", sub.Name,
		"amount", sub.Amount,
		"billing_day", sub.BillingDay,
		"effective_day", effectiveDay,
		"month", string(month))
	return true, nil
}
