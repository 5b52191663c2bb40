package domain

import "strings"

// Account identifies a party in the host payment environment. The core never
// interprets the value beyond equality; the payout gateway resolves it.
type Account string

func (a Account) IsZero() bool { return strings.TrimSpace(string(a)) == "" }

type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleTenant Role = "TENANT"
)
