package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/rentloop/rentcore/pkg/rental"
)

const errorSubjectListing = "listing"

// ListingDirectory is a read-only rental.ListingDirectory over the listings
// table. Listing CRUD lives with the listings collaborator; the core only
// resolves host, kind, price, and the slot buffer.
type ListingDirectory struct {
	db *gorm.DB
}

// NewListingDirectory returns a directory backed by gorm.DB.
func NewListingDirectory(db *gorm.DB) *ListingDirectory {
	return &ListingDirectory{db: db}
}

func (directory *ListingDirectory) GetListing(ctx context.Context, id rental.ListingID) (rental.Listing, error) {
	var row Listing
	err := directory.db.WithContext(ctx).Where("listing_id = ?", id.String()).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rental.Listing{}, wrapStoreError(errorSubjectListing, errorCodeGet, rental.ErrListingNotFound)
		}
		return rental.Listing{}, wrapStoreError(errorSubjectListing, errorCodeGet, err)
	}
	return mapListing(row)
}

// SeedListing inserts a listing if it does not exist yet. Intended for dev
// and test databases where no listings collaborator runs.
func (directory *ListingDirectory) SeedListing(ctx context.Context, listing rental.Listing) error {
	row := Listing{
		ListingID:         listing.ID.String(),
		HostID:            listing.HostID.String(),
		Kind:              listing.Kind.String(),
		PricePerDayCents:  listing.PricePerDayCents.Int64(),
		PricePerSlotCents: listing.PricePerSlotCents.Int64(),
		SlotBufferMinutes: listing.SlotBufferMinutes,
		IsActive:          listing.IsActive,
		CreatedAt:         time.Now().UTC(),
	}
	err := directory.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err) {
		return nil
	}
	if err != nil {
		return wrapStoreError(errorSubjectListing, errorCodeCreate, err)
	}
	return nil
}

func mapListing(row Listing) (rental.Listing, error) {
	listingID, err := rental.NewListingID(row.ListingID)
	if err != nil {
		return rental.Listing{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
	}
	hostID, err := rental.NewUserID(row.HostID)
	if err != nil {
		return rental.Listing{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
	}
	perDay, err := rental.NewAmountCents(row.PricePerDayCents)
	if err != nil {
		return rental.Listing{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
	}
	perSlot, err := rental.NewAmountCents(row.PricePerSlotCents)
	if err != nil {
		return rental.Listing{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
	}
	return rental.Listing{
		ID:                listingID,
		HostID:            hostID,
		Kind:              rental.BookingKind(row.Kind),
		PricePerDayCents:  perDay,
		PricePerSlotCents: perSlot,
		SlotBufferMinutes: row.SlotBufferMinutes,
		IsActive:          row.IsActive,
	}, nil
}
