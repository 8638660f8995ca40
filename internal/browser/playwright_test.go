package browser

import (
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCandidatesOrderAndShape(t *testing.T) {
	require.NotEmpty(t, roleCandidates)
	assert.Equal(t, playwright.AriaRoleButton, roleCandidates[0], "buttons are tried first")

	seen := make(map[playwright.AriaRole]bool, len(roleCandidates))
	for _, role := range roleCandidates {
		require.NotNil(t, role)
		assert.False(t, seen[*role], "role %v listed twice", *role)
		seen[*role] = true
	}
}
