package domain

import (
	"github.com/google/uuid"
)

// EntityKind identifies a kind of foreign entity replicated locally. The set
// is closed; repositories map each kind to its own table.
type EntityKind string

const (
	KindUser           EntityKind = "user"
	KindProduct        EntityKind = "product"
	KindProductVariant EntityKind = "product variant"
)

// UserStub is the minimal locally-cached existence record for a user owned by
// the user service. Presence means the ID is known to exist upstream.
type UserStub struct {
	ID uuid.UUID `json:"id"`
}

// ProductStub is the minimal existence record for a product owned by the
// catalog service.
type ProductStub struct {
	ID uuid.UUID `json:"id"`
}

// ProductVariantStub is the existence record for a product variant, carrying
// the owning product's ID. The product itself need not have a stub; no
// cross-kind foreign key is enforced.
type ProductVariantStub struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
}
