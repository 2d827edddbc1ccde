package aggregator

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item statuses reported while a connection refreshes. Anything not listed
// under terminal handling is treated as still pending.
const (
	ItemStatusUpdating         = "UPDATING"
	ItemStatusUpdated          = "UPDATED"
	ItemStatusLoginError       = "LOGIN_ERROR"
	ItemStatusOutdated         = "OUTDATED"
	ItemStatusWaitingUserInput = "WAITING_USER_INPUT"
)

// Item is one connection to a financial institution.
type Item struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	Connector Connector  `json:"connector"`
	Error     *ItemError `json:"error"`
}

type Connector struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Account struct {
	ID           string          `json:"id"`
	ItemID       string          `json:"itemId"`
	Name         string          `json:"name"`
	Balance      decimal.Decimal `json:"balance"`
	CurrencyCode string          `json:"currencyCode"`
}

type Transaction struct {
	ID          string                 `json:"id"`
	AccountID   string                 `json:"accountId"`
	Description string                 `json:"description"`
	Amount      decimal.Decimal        `json:"amount"`
	Date        time.Time              `json:"date"`
	Category    *string                `json:"category"`
	PaymentData map[string]interface{} `json:"paymentData"`
}

type authResponse struct {
	APIKey string `json:"apiKey"`
}

type accountsResponse struct {
	Results []Account `json:"results"`
}

type transactionsResponse struct {
	Results    []Transaction `json:"results"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
}
