package domain

import "time"

// SessionUser is the principal a credential resolves to. Roles are granted
// per customer; this service only ever reads them.
type SessionUser struct {
	ID      string
	Created time.Time
	Roles   map[int][]string
}

// RolesForCustomer returns the roles granted for the given customer.
func (s *SessionUser) RolesForCustomer(customer int) []string {
	if s == nil {
		return nil
	}
	return s.Roles[customer]
}

// AuthToken binds a bearer value and a cookie-carried session id to a
// SessionUser. A token past its expiry is invalid regardless of store state.
type AuthToken struct {
	ID          string
	Customer    int
	BearerToken string
	CookieID    string
	Expires     time.Time
	TTL         time.Duration
	LastChecked time.Time
	SessionUser *SessionUser
}

// Expired reports whether the token expiry has passed.
func (t *AuthToken) Expired(now time.Time) bool {
	return !t.Expires.After(now)
}
