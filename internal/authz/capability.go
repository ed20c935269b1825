package authz

import "crypto/subtle"

// Capability is the explicit credential object passed into access decisions.
// It replaces any ambient "trusted caller" flag: a handler that needs
// operator access must receive a Capability and ask, never consult request
// context state.
type Capability struct {
	readOperations bool
}

// FromToken derives the caller's capability from a presented bearer token.
// An empty configured token grants nothing; operator access cannot be left
// accidentally open.
func FromToken(presented, configured string) Capability {
	if configured == "" || presented == "" {
		return Capability{}
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) != 1 {
		return Capability{}
	}
	return Capability{readOperations: true}
}

// CanViewOperations reports whether the capability grants read access to the
// delivery ledger, orders, and plates.
func CanViewOperations(capability Capability) bool {
	return capability.readOperations
}
