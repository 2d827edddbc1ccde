package reconcile

import (
	"fmt"
	"time"
)

// InvoiceMonth identifies the statement month a card charge bills under.
type InvoiceMonth struct {
	Year  int
	Month time.Month
}

func (m InvoiceMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// ResolveInvoiceMonth attributes a charge to a statement month: days after
// the card's closing day roll into the next month, December into January of
// the next year.
func ResolveInvoiceMonth(date time.Time, closingDay int) InvoiceMonth {
	year, month, day := date.Date()
	if day > closingDay {
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return InvoiceMonth{Year: year, Month: month}
}
