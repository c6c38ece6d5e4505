package service

import "github.com/ikkim/storefront-backend/pkg/util"

// Identity is the authenticated caller, resolved from the session and passed explicitly.
type Identity struct {
	ID    uint
	Name  string
	Email string
	Kind  string // util.KindUser or util.KindEmployee
}

func (i Identity) IsEmployee() bool {
	return i.Kind == util.KindEmployee
}

func (i Identity) IsUser() bool {
	return i.Kind == util.KindUser
}

// Capability is what a requester may do with a resource owned by some user.
type Capability struct {
	IsOwner bool
	IsAdmin bool
}

// CapabilityFor compares user IDs only for shopper identities; employee and user IDs live in
// separate tables and may collide.
func CapabilityFor(requester Identity, ownerID uint) Capability {
	return Capability{
		IsOwner: requester.IsUser() && requester.ID == ownerID,
		IsAdmin: requester.IsEmployee(),
	}
}
