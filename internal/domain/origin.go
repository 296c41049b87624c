package domain

// Origin strategy types. Default means the origin is openly reachable and a
// client can be redirected to it; basic-http origins require credentials the
// client does not hold, so delivery streams through this service.
const (
	OriginStrategyDefault   = "default"
	OriginStrategyBasicHTTP = "basic-http-authentication"
)

// OriginCredentials are the basic-auth credentials attached to a strategy.
type OriginCredentials struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// OriginStrategy tells how to reach asset origins matching Regex for one
// customer. Strategies are evaluated in Order; the first regex match wins.
type OriginStrategy struct {
	ID          string
	Customer    int
	Regex       string
	Strategy    string
	Credentials *OriginCredentials
	Order       int
}

// Credentialed reports whether origins under this strategy need server-side
// fetching with credentials.
func (s OriginStrategy) Credentialed() bool {
	return s.Strategy == OriginStrategyBasicHTTP && s.Credentials != nil
}
