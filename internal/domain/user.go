package domain

import (
	"strings"
	"time"
)

// Role enumerates the closed set of workflow roles.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleAnalyst   Role = "ANALYST"
	RoleRequester Role = "REQUESTER"
)

// RoleSet is a normalized set of roles derived once per call from the
// caller's stored role rows. Matching is case-insensitive at construction.
type RoleSet map[Role]struct{}

// NewRoleSet normalizes raw role names into a RoleSet. Unknown names are
// dropped; authority never comes from a name the rules don't reference.
func NewRoleSet(names []string) RoleSet {
	set := make(RoleSet, len(names))
	for _, name := range names {
		switch Role(strings.ToUpper(strings.TrimSpace(name))) {
		case RoleAdmin:
			set[RoleAdmin] = struct{}{}
		case RoleAnalyst:
			set[RoleAnalyst] = struct{}{}
		case RoleRequester:
			set[RoleRequester] = struct{}{}
		}
	}
	return set
}

// Has reports membership.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// IsAdmin reports ADMIN membership.
func (s RoleSet) IsAdmin() bool { return s.Has(RoleAdmin) }

// IsAnalyst reports ANALYST membership.
func (s RoleSet) IsAnalyst() bool { return s.Has(RoleAnalyst) }

// Names returns the contained role names, for token claims.
func (s RoleSet) Names() []string {
	names := make([]string, 0, len(s))
	for role := range s {
		names = append(names, string(role))
	}
	return names
}

// User is a worker account; requesters and analysts share the table.
type User struct {
	ID           int64
	FirstNames   string
	LastName     string
	Email        string
	PasswordHash string
	DepartmentID *int64
	Roles        []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins the worker name fields the way the catalog queries do.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstNames + " " + u.LastName)
}

// AnalystLoad pairs an analyst with their open-ticket count.
type AnalystLoad struct {
	ID       int64
	FullName string
	Load     int
}
