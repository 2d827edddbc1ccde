package reconcile

import (
	"fmt"
	"strings"

	"github.com/centsible/sync-worker/internal/models"
)

// Confirmation is the signal that a fetched transaction paid a known
// subscription for a given invoice month.
type Confirmation struct {
	UserID         string
	SubscriptionID string
	InvoiceMonth   InvoiceMonth
}

// genericPattern describes one low-information description family and the
// enriched form it rewrites to. The enriched continuation is what keeps
// enrichment idempotent: a description that already carries it never
// matches the generic test again.
type genericPattern struct {
	prefix   string // normalized generic family
	enriched string // normalized continuation of the enriched form
	template string // rewritten description, counterparty name interpolated
	received bool   // prefer the payer name when true
}

var genericPatterns = []genericPattern{
	{prefix: "pix recebido", enriched: "pix recebido de ", template: "Pix Recebido De %s", received: true},
	{prefix: "pix enviado", enriched: "pix enviado para ", template: "Pix Enviado Para %s", received: false},
	{prefix: "ted recebida", enriched: "ted recebida de ", template: "Ted Recebida De %s", received: true},
	{prefix: "ted enviada", enriched: "ted enviada para ", template: "Ted Enviada Para %s", received: false},
}

// Engine maps a fetched transaction onto existing domain state: installment
// tagging, subscription matching and description enrichment.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Reconcile mutates tx in place (installments, enriched description) and
// returns the subscription confirmations it produced. subs must belong to
// the transaction's owner; entries for other accounts are skipped.
func (e *Engine) Reconcile(tx *models.Transaction, subs []models.Subscription) []Confirmation {
	if inst, ok := ParseInstallment(tx.Description); ok {
		tx.InstallmentNumber = &inst.Current
		tx.TotalInstallments = &inst.Total
	}

	normalized := Normalize(tx.Description)

	var confirmations []Confirmation
	for _, sub := range subs {
		if sub.AccountID != tx.AccountID {
			continue
		}
		name := Normalize(sub.Name)
		if name == "" || !strings.Contains(normalized, name) {
			continue
		}
		confirmations = append(confirmations, Confirmation{
			UserID:         tx.UserID,
			SubscriptionID: sub.ID,
			InvoiceMonth:   ResolveInvoiceMonth(tx.Date, sub.ClosingDay),
		})
	}

	e.enrich(tx, normalized)
	return confirmations
}

// enrich rewrites a generic PIX/TED description to a human-readable form
// using the counterparty name from payment metadata. No-op when the
// description is already enriched or no counterparty name is available.
func (e *Engine) enrich(tx *models.Transaction, normalized string) {
	for _, p := range genericPatterns {
		if normalized != p.prefix && !strings.HasPrefix(normalized, p.prefix+" ") {
			continue
		}
		if strings.HasPrefix(normalized, p.enriched) {
			return
		}
		name := counterparty(tx.Metadata(), p.received)
		if name == "" {
			return
		}
		tx.Description = fmt.Sprintf(p.template, name)
		return
	}
}

// counterparty picks the name of the other side of a transfer, falling back
// to whichever side the aggregator populated.
func counterparty(meta models.PaymentMetadata, received bool) string {
	if received {
		if meta.PayerName != "" {
			return meta.PayerName
		}
		return meta.ReceiverName
	}
	if meta.ReceiverName != "" {
		return meta.ReceiverName
	}
	return meta.PayerName
}
