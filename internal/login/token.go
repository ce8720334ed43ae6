package login

import "github.com/google/uuid"

// OpaqueIssuer hands out random bearer tokens. Deployments that need JWTs
// plug their own TokenIssuer in instead.
type OpaqueIssuer struct{}

func (OpaqueIssuer) Issue(User) (string, error) {
	return uuid.NewString(), nil
}
