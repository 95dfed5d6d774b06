package domain

import (
	"fmt"
	"strings"
)

// UserRole controls which variant of a safety report a viewer sees.
type UserRole string

const (
	// RoleEquipmentEng is the trusted, internal audience. It sees original content.
	RoleEquipmentEng UserRole = "EQUIPMENT_ENG"
	// RoleYieldEng is the restricted audience. It sees redacted content.
	RoleYieldEng UserRole = "YIELD_ENG"
)

// DefaultRole is the role a new session starts with.
const DefaultRole = RoleEquipmentEng

// Trusted reports whether the role may see original content.
// Anything other than RoleEquipmentEng is treated as restricted.
func (r UserRole) Trusted() bool {
	return r == RoleEquipmentEng
}

func (r UserRole) String() string { return string(r) }

// ParseUserRole maps a wire value onto a known role.
func ParseUserRole(s string) (UserRole, error) {
	switch UserRole(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleEquipmentEng:
		return RoleEquipmentEng, nil
	case RoleYieldEng:
		return RoleYieldEng, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}
