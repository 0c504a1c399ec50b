package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTitle(t *testing.T) {
	task := "Add user login with email and password"

	tests := []struct {
		name      string
		candidate string
		want      string
	}{
		{"four words accepted verbatim", "Add user email login", "Add user email login"},
		{"trimmed before counting", "  Add user email login  ", "Add user email login"},
		{"one word falls back", "Login", "Add user login with email and"},
		{"ten words falls back", "Add a brand new login page with email and password", "Add user login with email and"},
		{"empty candidate falls back", "", "Add user login with email and"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveTitle(tt.candidate, task))
		})
	}
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "New Ticket", ShortTitle(""))
	assert.Equal(t, "New Ticket", ShortTitle("   \n  "))
	assert.Equal(t, "Fix the build", ShortTitle("fix the build"))
	assert.Equal(t, "Migrate billing service to the new",
		ShortTitle("migrate billing\nservice to the\nnew cluster tonight"))
}
