package auth

import "strings"

// PolicyConfig holds the process-wide authorization policy. It is built once
// at startup and never mutated afterwards; changing the policy requires a
// restart.
type PolicyConfig struct {
	// RequiredRole is the app role every caller must carry.
	RequiredRole string

	// AllowedAppIDs is the case-insensitive allow-list of calling
	// applications. When empty, AllowAnyAppWhenListEmpty decides.
	AllowedAppIDs []string

	// AllowAnyAppWhenListEmpty permits any application identifier when the
	// allow-list is empty. Defaults to false; config validation refuses to
	// start with an empty list and this flag unset outside development.
	AllowAnyAppWhenListEmpty bool
}

// Decision is the outcome of a policy evaluation. Reason is for internal
// logging only and must never be echoed to the caller.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Evaluate decides whether the caller described by claims may invoke
// protected operations. Pure function: no I/O, no side effects, and the same
// inputs always produce the same decision.
//
// Only application-only (client-credential) callers are accepted. A token
// carrying a delegated scope claim, or an identity type other than "app", is
// denied regardless of role membership.
func Evaluate(claims ClaimsContext, cfg PolicyConfig) Decision {
	if !claims.Authenticated {
		return deny("caller is not authenticated")
	}

	if !claims.HasRole(cfg.RequiredRole) {
		return deny("required role not present: " + cfg.RequiredRole)
	}

	if strings.TrimSpace(claims.AppID) == "" {
		return deny("token does not identify a calling application")
	}

	if claims.HasDelegatedScope {
		return deny("delegated scope claim present; only application tokens are accepted")
	}

	if claims.IdentityType != "" && !strings.EqualFold(claims.IdentityType, "app") {
		return deny("identity type is not app: " + claims.IdentityType)
	}

	if len(cfg.AllowedAppIDs) == 0 {
		if cfg.AllowAnyAppWhenListEmpty {
			return allow()
		}
		return deny("application allow-list is empty and open access is disabled")
	}

	for _, id := range cfg.AllowedAppIDs {
		if strings.EqualFold(id, claims.AppID) {
			return allow()
		}
	}
	return deny("application is not in the allow-list")
}
