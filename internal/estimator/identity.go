package estimator

import (
	"strings"

	"github.com/google/uuid"
)

// TicketID derives a stable identifier from the task description. The same
// text always produces the same id, which makes it usable as a content /
// idempotency key for de-duplicating repeated estimate requests.
func TicketID(task string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(task)).String()
}

// TicketNumber generates a random human-facing ticket number in the
// TKT-XXXXXXXX format. It is display-only; a low collision probability is
// acceptable.
func TicketNumber() string {
	return "TKT-" + strings.ToUpper(uuid.NewString()[:8])
}
