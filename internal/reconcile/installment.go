package reconcile

import (
	"regexp"
	"strconv"
)

var installmentRe = regexp.MustCompile(`\b(\d+)\s*/\s*(\d+)\b`)

// Installment is a parsed "current/total" marker from a description.
type Installment struct {
	Current int
	Total   int
}

// ParseInstallment extracts the first valid current/total pair from a raw
// description. A pair is valid when both numbers are positive and current
// does not exceed total; anything else reports no match. Date-like tokens
// such as "12/05" fail the range check and are skipped.
func ParseInstallment(s string) (Installment, bool) {
	for _, m := range installmentRe.FindAllStringSubmatch(s, -1) {
		current, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		total, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if current < 1 || total < 1 || current > total {
			continue
		}
		return Installment{Current: current, Total: total}, true
	}
	return Installment{}, false
}
