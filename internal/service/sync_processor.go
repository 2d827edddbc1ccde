package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/centsible/sync-worker/internal/aggregator"
	"github.com/centsible/sync-worker/internal/models"
	"github.com/centsible/sync-worker/internal/reconcile"
)

const (
	DefaultItemPollInterval = 5 * time.Second

	// DefaultPollBudget leaves headroom under a 540s runtime deadline.
	DefaultPollBudget = 480 * time.Second

	DefaultSyncWindow = 90 * 24 * time.Hour
)

// ErrPollTimeout marks an item that never reached a terminal status within
// the poll budget. Producers use the distinct reason to decide whether to
// re-enqueue later.
var ErrPollTimeout = errors.New("item update polling timed out")

// AggregatorClient is the slice of the aggregator API the processor drives.
type AggregatorClient interface {
	RequestUpdate(ctx context.Context, itemID string) error
	GetItem(ctx context.Context, itemID string) (*aggregator.Item, error)
	ListAccounts(ctx context.Context, itemID string) ([]aggregator.Account, error)
	ListTransactions(ctx context.Context, accountID string, from time.Time) ([]aggregator.Transaction, error)
	GetTransaction(ctx context.Context, transactionID string) (*aggregator.Transaction, error)
}

// AccountStore persists fetched accounts.
type AccountStore interface {
	Upsert(ctx context.Context, account *models.Account) error
}

// TransactionStore persists fetched transactions.
type TransactionStore interface {
	Upsert(ctx context.Context, tx *models.Transaction) error
}

// SubscriptionStore reads a user's registered subscriptions.
type SubscriptionStore interface {
	GetByUser(ctx context.Context, userID string) ([]models.Subscription, error)
}

// ConfirmationSink receives the reconciliation output stream.
type ConfirmationSink interface {
	Record(ctx context.Context, c *models.SubscriptionConfirmation) error
}

// Options tune the poll loop and fetch window. Zero values fall back to the
// defaults above.
type Options struct {
	PollInterval time.Duration
	PollBudget   time.Duration
	SyncWindow   time.Duration
}

// SyncProcessor drives the external synchronization protocol for one
// claimed job: request refresh, poll until the connection settles, fetch
// accounts and transactions, reconcile each transaction before upsert.
type SyncProcessor struct {
	client        AggregatorClient
	accounts      AccountStore
	transactions  TransactionStore
	subscriptions SubscriptionStore
	confirmations ConfirmationSink
	institutions  *aggregator.InstitutionCache
	engine        *reconcile.Engine

	pollInterval time.Duration
	pollBudget   time.Duration
	syncWindow   time.Duration
}

func NewSyncProcessor(
	client AggregatorClient,
	accounts AccountStore,
	transactions TransactionStore,
	subscriptions SubscriptionStore,
	confirmations ConfirmationSink,
	institutions *aggregator.InstitutionCache,
	opts Options,
) *SyncProcessor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultItemPollInterval
	}
	if opts.PollBudget <= 0 {
		opts.PollBudget = DefaultPollBudget
	}
	if opts.SyncWindow <= 0 {
		opts.SyncWindow = DefaultSyncWindow
	}
	return &SyncProcessor{
		client:        client,
		accounts:      accounts,
		transactions:  transactions,
		subscriptions: subscriptions,
		confirmations: confirmations,
		institutions:  institutions,
		engine:        reconcile.NewEngine(),
		pollInterval:  opts.PollInterval,
		pollBudget:    opts.PollBudget,
		syncWindow:    opts.SyncWindow,
	}
}

// ProcessSyncJob executes one claimed job to completion. Every error it
// returns is terminal for the job; the watcher records it via MarkFailed.
func (p *SyncProcessor) ProcessSyncJob(ctx context.Context, job *models.SyncJob) error {
	log.Printf("Processing sync job %s (type: %s, user: %s, item: %s, attempt: %d)",
		job.ID, job.Type, job.UserID, job.ItemID, job.Attempts)

	if job.CreditTransactionID != nil {
		return p.replayRefund(ctx, job)
	}

	if job.Type == models.JobTypeTrigger {
		if err := p.client.RequestUpdate(ctx, job.ItemID); err != nil {
			return fmt.Errorf("failed to request item update: %w", err)
		}
		if err := p.waitForUpdate(ctx, job.ItemID); err != nil {
			return err
		}
	}

	return p.fullFetch(ctx, job)
}

// pollOutcome is the typed result of one item status read.
type pollOutcome int

const (
	pollPending pollOutcome = iota
	pollUpdated
	pollFailed
)

type pollResult struct {
	outcome pollOutcome
	reason  string
}

func classifyItem(item *aggregator.Item) pollResult {
	switch item.Status {
	case aggregator.ItemStatusUpdated:
		return pollResult{outcome: pollUpdated}
	case aggregator.ItemStatusLoginError, aggregator.ItemStatusOutdated, aggregator.ItemStatusWaitingUserInput:
		reason := item.Status
		if item.Error != nil {
			reason = fmt.Sprintf("%s: %s", item.Error.Code, item.Error.Message)
		}
		return pollResult{outcome: pollFailed, reason: reason}
	default:
		return pollResult{outcome: pollPending}
	}
}

// waitForUpdate polls the item at a fixed interval until it settles or the
// wall-clock budget elapses.
func (p *SyncProcessor) waitForUpdate(ctx context.Context, itemID string) error {
	deadline := time.Now().Add(p.pollBudget)
	for {
		item, err := p.client.GetItem(ctx, itemID)
		if err != nil {
			return fmt.Errorf("failed to poll item %s: %w", itemID, err)
		}

		switch res := classifyItem(item); res.outcome {
		case pollUpdated:
			p.institutions.Put(itemID, item.Connector.Name)
			return nil
		case pollFailed:
			return fmt.Errorf("item update failed: %s", res.reason)
		}

		if time.Now().Add(p.pollInterval).After(deadline) {
			return fmt.Errorf("%w after %s", ErrPollTimeout, p.pollBudget)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
}

// fullFetch upserts every account under the connection and reconciles each
// transaction in the sync window before storing it. Accounts and
// transactions are processed sequentially, so matching and enrichment see
// fetch order.
func (p *SyncProcessor) fullFetch(ctx context.Context, job *models.SyncJob) error {
	institution, err := p.institutionName(ctx, job.ItemID)
	if err != nil {
		log.Printf("Warning: could not resolve institution for item %s: %v", job.ItemID, err)
	}

	accounts, err := p.client.ListAccounts(ctx, job.ItemID)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	subs, err := p.subscriptions.GetByUser(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}

	from := time.Now().Add(-p.syncWindow)
	total := 0
	for _, acc := range accounts {
		record := &models.Account{
			ID:          acc.ID,
			UserID:      job.UserID,
			ItemID:      job.ItemID,
			Name:        acc.Name,
			Institution: institution,
			Balance:     acc.Balance,
			Currency:    acc.CurrencyCode,
		}
		if err := p.accounts.Upsert(ctx, record); err != nil {
			return fmt.Errorf("failed to upsert account %s: %w", acc.ID, err)
		}

		fetched, err := p.client.ListTransactions(ctx, acc.ID, from)
		if err != nil {
			return fmt.Errorf("failed to list transactions for account %s: %w", acc.ID, err)
		}
		for _, tx := range fetched {
			if err := p.processTransaction(ctx, job.UserID, tx, subs); err != nil {
				return err
			}
		}
		total += len(fetched)
	}

	log.Printf("Sync job %s fetched %d account(s), %d transaction(s)", job.ID, len(accounts), total)
	return nil
}

func (p *SyncProcessor) processTransaction(ctx context.Context, userID string, fetched aggregator.Transaction, subs []models.Subscription) error {
	record := toTransaction(userID, fetched)

	for _, c := range p.engine.Reconcile(record, subs) {
		confirmation := &models.SubscriptionConfirmation{
			UserID:         c.UserID,
			SubscriptionID: c.SubscriptionID,
			InvoiceMonth:   c.InvoiceMonth.String(),
		}
		if err := p.confirmations.Record(ctx, confirmation); err != nil {
			return fmt.Errorf("failed to record confirmation: %w", err)
		}
	}

	if err := p.transactions.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert transaction %s: %w", record.ID, err)
	}
	return nil
}

// replayRefund fetches only the referenced transaction, marks it as a
// refund and stores it. Subscription matching never re-runs on this path.
func (p *SyncProcessor) replayRefund(ctx context.Context, job *models.SyncJob) error {
	fetched, err := p.client.GetTransaction(ctx, *job.CreditTransactionID)
	if err != nil {
		return fmt.Errorf("failed to fetch refunded transaction: %w", err)
	}

	record := toTransaction(job.UserID, *fetched)
	record.IsRefund = true

	if err := p.transactions.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert refunded transaction %s: %w", record.ID, err)
	}

	log.Printf("Sync job %s replayed refund for transaction %s", job.ID, record.ID)
	return nil
}

func (p *SyncProcessor) institutionName(ctx context.Context, itemID string) (string, error) {
	if name, ok := p.institutions.Get(itemID); ok {
		return name, nil
	}
	item, err := p.client.GetItem(ctx, itemID)
	if err != nil {
		return "", err
	}
	p.institutions.Put(itemID, item.Connector.Name)
	return item.Connector.Name, nil
}

func toTransaction(userID string, fetched aggregator.Transaction) *models.Transaction {
	txType := models.TypeIncome
	if fetched.Amount.IsNegative() {
		txType = models.TypeExpense
	}
	return &models.Transaction{
		ID:          fetched.ID,
		UserID:      userID,
		AccountID:   fetched.AccountID,
		Description: fetched.Description,
		Amount:      fetched.Amount,
		Date:        fetched.Date,
		Category:    fetched.Category,
		Type:        txType,
		PaymentMeta: models.JSONB(fetched.PaymentData),
	}
}
