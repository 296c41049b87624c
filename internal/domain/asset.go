package domain

import "fmt"

// Family enumerates how an asset is delivered. It is a closed tag set; every
// delivery decision switches over it rather than relying on media type
// sniffing.
type Family string

const (
	FamilyImage     Family = "I"
	FamilyTimebased Family = "T"
	FamilyFile      Family = "F"
)

// AssetID identifies one deliverable item as a (customer, space, identifier)
// triple. It is immutable and used as a map/storage key throughout.
type AssetID struct {
	Customer   int
	Space      int
	Identifier string
}

// String returns the canonical "{customer}/{space}/{identifier}" form.
func (id AssetID) String() string {
	return fmt.Sprintf("%d/%d/%s", id.Customer, id.Space, id.Identifier)
}

// Asset is the delivery view of a stored item. The management API owns its
// lifecycle; this service only reads.
type Asset struct {
	ID              AssetID
	Family          Family
	MediaType       string
	Width           int
	Height          int
	MaxUnauthorised int // longest edge servable without auth; -1 disables the bypass
	Roles           []string
	NotForDelivery  bool
	Batch           int
	Origin          string
	String1         string
	String2         string
	String3         string
	Number1         int64
	Number2         int64
	Number3         int64
}

// RequiresAuth reports whether the asset has any access-control roles.
func (a *Asset) RequiresAuth() bool {
	return len(a.Roles) > 0
}

// Customer is the path element owning spaces and assets. Requests may address
// it by numeric id or by name.
type Customer struct {
	ID          int
	Name        string
	DisplayName string
}
