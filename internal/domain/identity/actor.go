// Package identity carries the capability model used at service boundaries.
// Authorization checks ask whether an actor holds a capability instead of
// inspecting role names, so role storage stays decoupled from policy.
package identity

type Capability string

const (
	// ManageBookings allows confirming, completing and cancelling any booking.
	ManageBookings Capability = "bookings:manage"
	// ManageListings allows catalog mutations in the back office.
	ManageListings Capability = "listings:manage"
)

// Actor is an already-authenticated caller. The booking core never touches
// tokens; the HTTP boundary resolves them and hands an Actor down.
type Actor struct {
	ID           string
	Capabilities []Capability
}

func (a Actor) Can(c Capability) bool {
	for _, held := range a.Capabilities {
		if held == c {
			return true
		}
	}
	return false
}

// Owns reports whether the actor is the referenced owner.
func (a Actor) Owns(ownerID string) bool {
	return a.ID != "" && a.ID == ownerID
}
