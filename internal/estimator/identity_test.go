package estimator

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketIDDeterministic(t *testing.T) {
	a := TicketID("Add user login with email and password")
	b := TicketID("Add user login with email and password")
	c := TicketID("Completely different task")

	assert.Equal(t, a, b, "same text must produce the same id")
	assert.NotEqual(t, a, c, "different texts must produce different ids")
	assert.NotEmpty(t, a)
}

var ticketNumberRe = regexp.MustCompile(`^TKT-[0-9A-F]{8}$`)

func TestTicketNumberFormat(t *testing.T) {
	prev := TicketNumber()
	assert.Regexp(t, ticketNumberRe, prev)
	for i := 0; i < 10000; i++ {
		n := TicketNumber()
		assert.Regexp(t, ticketNumberRe, n)
		assert.NotEqual(t, prev, n, "consecutive ticket numbers must differ")
		prev = n
	}
}
