package model

import (
	"fmt"
	"unicode/utf8"
)

// AdminID is the fixed id of the administrator profile.
const AdminID = "admin"

// MinSecretLength is the shortest password a user may set for themselves.
const MinSecretLength = 4

// MaxSecretBytes is the longest password, in bytes, that bcrypt can hash.
const MaxSecretBytes = 72

// Capability is one independent permission a profile may hold.
type Capability string

// Capabilities.
const (
	CapAddItems    Capability = "can_add_items"
	CapEditItems   Capability = "can_edit_items"
	CapDeleteItems Capability = "can_delete_items"
	CapManageUsers Capability = "can_manage_users"
)

// Capabilities lists every capability in display order.
var Capabilities = []Capability{CapAddItems, CapEditItems, CapDeleteItems, CapManageUsers}

// ParseCapability returns the capability named s.
func ParseCapability(s string) (Capability, bool) {
	for _, c := range Capabilities {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Permissions holds the four capabilities of a profile. They are independent:
// any combination is valid.
type Permissions struct {
	CanAddItems    bool `json:"can_add_items" yaml:"can_add_items"`
	CanEditItems   bool `json:"can_edit_items" yaml:"can_edit_items"`
	CanDeleteItems bool `json:"can_delete_items" yaml:"can_delete_items"`
	CanManageUsers bool `json:"can_manage_users" yaml:"can_manage_users"`
}

// Presets used by the seed data.
var (
	FullAccess     = Permissions{CanAddItems: true, CanEditItems: true, CanDeleteItems: true, CanManageUsers: true}
	StandardAccess = Permissions{CanAddItems: true, CanEditItems: true}
	ViewOnly       = Permissions{}
)

// PresetByName resolves a named preset ("full", "standard", "view-only").
func PresetByName(name string) (Permissions, bool) {
	switch name {
	case "full":
		return FullAccess, true
	case "standard":
		return StandardAccess, true
	case "view-only", "view":
		return ViewOnly, true
	default:
		return Permissions{}, false
	}
}

// Has reports whether c is granted. Unknown capabilities fail closed.
func (p Permissions) Has(c Capability) bool {
	switch c {
	case CapAddItems:
		return p.CanAddItems
	case CapEditItems:
		return p.CanEditItems
	case CapDeleteItems:
		return p.CanDeleteItems
	case CapManageUsers:
		return p.CanManageUsers
	default:
		return false
	}
}

// Toggle flips c and reports whether c was a known capability.
func (p *Permissions) Toggle(c Capability) bool {
	switch c {
	case CapAddItems:
		p.CanAddItems = !p.CanAddItems
	case CapEditItems:
		p.CanEditItems = !p.CanEditItems
	case CapDeleteItems:
		p.CanDeleteItems = !p.CanDeleteItems
	case CapManageUsers:
		p.CanManageUsers = !p.CanManageUsers
	default:
		return false
	}
	return true
}

// User is an operator account.
type User struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Role           string      `json:"role"`
	Pass           string      `json:"-"`
	IsAdmin        bool        `json:"is_admin"`
	Permissions    Permissions `json:"permissions"`
	ResetRequested bool        `json:"reset_requested"`
}

// Effective returns the permissions that apply to u. The administrator
// always resolves to full access regardless of what is stored.
func (u User) Effective() Permissions {
	if u.IsAdmin {
		return FullAccess
	}
	return u.Permissions
}

// Can reports whether u holds c.
func (u User) Can(c Capability) bool {
	return u.Effective().Has(c)
}

// ValidateSecret checks that a self-chosen password meets the minimum length
// and fits MaxSecretBytes.
func ValidateSecret(secret string) error {
	if utf8.RuneCountInString(secret) < MinSecretLength {
		return fmt.Errorf("password must be at least %d characters", MinSecretLength)
	}
	return ValidateSecretSize(secret)
}

// ValidateSecretSize checks only the upper bound. Administrators may set
// shorter secrets on behalf of others.
func ValidateSecretSize(secret string) error {
	if len(secret) > MaxSecretBytes {
		return fmt.Errorf("password must be at most %d bytes", MaxSecretBytes)
	}
	return nil
}
