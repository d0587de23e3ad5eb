package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the raw claims carried in an Entra ID access token.
// Signature, issuer, and audience checks happen in the validator; this type
// only describes the payload shape.
type Claims struct {
	jwt.RegisteredClaims
	Roles        []string `json:"roles"`
	Scope        string   `json:"scp"`
	AppID        string   `json:"appid"`
	AuthorizedParty string `json:"azp"`
	IdentityType string   `json:"idtyp"`
}

// ClaimsContext is an immutable, request-scoped view of a caller's validated
// identity claims. It is the only input the policy evaluator sees, so it
// carries no framework types.
type ClaimsContext struct {
	Authenticated     bool
	Roles             []string
	AppID             string
	HasDelegatedScope bool
	IdentityType      string
}

// HasRole reports whether the caller carries the given app role.
func (c ClaimsContext) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// NewClaimsContext builds a ClaimsContext from raw token claims.
// The application identifier comes from appid (v1 tokens) or azp (v2 tokens).
func NewClaimsContext(claims *Claims) ClaimsContext {
	appID := claims.AppID
	if appID == "" {
		appID = claims.AuthorizedParty
	}
	return ClaimsContext{
		Authenticated:     true,
		Roles:             claims.Roles,
		AppID:             appID,
		HasDelegatedScope: strings.TrimSpace(claims.Scope) != "",
		IdentityType:      claims.IdentityType,
	}
}

// AnonymousClaims returns the claims view for a request that presented no
// credential at all.
func AnonymousClaims() ClaimsContext {
	return ClaimsContext{Authenticated: false}
}

// ExtractClaims parses the claims of a token that has already been validated
// elsewhere. No signature verification is performed.
func ExtractClaims(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := &Claims{}
	_, _, err := parser.ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	return claims, nil
}
