// Package auth supplies caller identity decisions to the ledger core and
// the OAuth2 client used by outbound HTTP calls. The core never performs
// authentication itself; it only consumes these predicates.
package auth

// IdentityProvider answers the two authorization questions the ledger
// asks: who is the administrator, and who may claim on whose behalf.
type IdentityProvider interface {
	IsAdministrator(identity string) bool
	// IsAuthorizedClaimant reports whether caller may claim for
	// beneficiary. Every beneficiary is authorized for itself.
	IsAuthorizedClaimant(caller, beneficiary string) bool
}

// StaticProvider implements IdentityProvider from configuration: a single
// administrator identity and an optional set of delegated claimants.
type StaticProvider struct {
	admin     string
	delegates map[string]map[string]bool // beneficiary -> allowed callers
}

// NewStaticProvider builds a provider for the given administrator.
// delegates maps a beneficiary to identities allowed to claim for it.
func NewStaticProvider(admin string, delegates map[string][]string) *StaticProvider {
	d := make(map[string]map[string]bool, len(delegates))
	for beneficiary, callers := range delegates {
		set := make(map[string]bool, len(callers))
		for _, c := range callers {
			set[c] = true
		}
		d[beneficiary] = set
	}
	return &StaticProvider{admin: admin, delegates: d}
}

func (p *StaticProvider) IsAdministrator(identity string) bool {
	return identity != "" && identity == p.admin
}

func (p *StaticProvider) IsAuthorizedClaimant(caller, beneficiary string) bool {
	if caller == "" {
		return false
	}
	if caller == beneficiary {
		return true
	}
	return p.delegates[beneficiary][caller]
}
