package entity

import "strings"

// GuestIDPrefix marks identifiers issued to anonymous visitors.
const GuestIDPrefix = "guest_"

// Actor is the identity a request runs as. Guests are exempt from credit metering.
type Actor struct {
	UserID  string
	IsGuest bool
}

// GuestActor builds an actor for an anonymous visitor id.
func GuestActor(id string) Actor {
	return Actor{UserID: id, IsGuest: true}
}

// RegisteredActor builds an actor for a signed-in user.
func RegisteredActor(id string) Actor {
	return Actor{UserID: id}
}

// IsGuestID reports whether id was issued to a guest.
func IsGuestID(id string) bool {
	return strings.HasPrefix(id, GuestIDPrefix)
}
