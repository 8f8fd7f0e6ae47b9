package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectivePermissions(t *testing.T) {
	tests := []struct {
		name string
		user User
		cap  Capability
		want bool
	}{
		{"admin ignores stored values", User{IsAdmin: true}, CapDeleteItems, true},
		{"admin manage users", User{IsAdmin: true, Permissions: ViewOnly}, CapManageUsers, true},
		{"standard can add", User{Permissions: StandardAccess}, CapAddItems, true},
		{"standard cannot delete", User{Permissions: StandardAccess}, CapDeleteItems, false},
		{"view-only cannot add", User{Permissions: ViewOnly}, CapAddItems, false},
		// Capabilities are independent: delete without edit is valid.
		{"delete without edit", User{Permissions: Permissions{CanDeleteItems: true}}, CapDeleteItems, true},
		{"edit not implied by delete", User{Permissions: Permissions{CanDeleteItems: true}}, CapEditItems, false},
		// Unknown capabilities fail closed.
		{"unknown capability", User{IsAdmin: true}, Capability("can_fly"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.user.Can(tt.cap), tt.name)
	}
}

func TestToggle(t *testing.T) {
	var p Permissions
	for _, c := range Capabilities {
		require.True(t, p.Toggle(c), "Toggle(%q)", c)
	}
	assert.Equal(t, FullAccess, p, "all capabilities after toggling each once")

	p.Toggle(CapEditItems)
	assert.Equal(t, Permissions{CanAddItems: true, CanDeleteItems: true, CanManageUsers: true}, p)

	assert.False(t, p.Toggle(Capability("nope")))
}

func TestParseCapability(t *testing.T) {
	c, ok := ParseCapability("can_manage_users")
	assert.True(t, ok)
	assert.Equal(t, CapManageUsers, c)

	_, ok = ParseCapability("canManageUsers")
	assert.False(t, ok, "camelCase names are not capabilities")
}

func TestPresetByName(t *testing.T) {
	for name, want := range map[string]Permissions{
		"full":      FullAccess,
		"standard":  StandardAccess,
		"view-only": ViewOnly,
	} {
		got, ok := PresetByName(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := PresetByName("root")
	assert.False(t, ok)
}

func TestValidateSecret(t *testing.T) {
	tests := []struct {
		secret  string
		wantErr bool
	}{
		{"", true},
		{"abc", true},
		{"abcd", false},
		{"çãõé", false},
		{"a-longer-secret", false},
		{strings.Repeat("a", MaxSecretBytes), false},
		{strings.Repeat("a", 80), true},
		// 37 two-byte runes exceed the byte limit.
		{strings.Repeat("ç", 37), true},
	}

	for _, tt := range tests {
		err := ValidateSecret(tt.secret)
		assert.Equal(t, tt.wantErr, err != nil, "ValidateSecret(%q) = %v", tt.secret, err)
	}
}

func TestValidateSecretSize(t *testing.T) {
	assert.NoError(t, ValidateSecretSize("x"))
	assert.Error(t, ValidateSecretSize(strings.Repeat("a", MaxSecretBytes+1)))
}
