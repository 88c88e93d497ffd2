package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Booking mirrors the bookings table.
type Booking struct {
	BookingID         string         `gorm:"type:uuid;primaryKey"`
	ListingID         string         `gorm:"not null;index:idx_bookings_listing_status,priority:1"`
	RenterID          string         `gorm:"not null;index"`
	HostID            string         `gorm:"not null;index"`
	Kind              string         `gorm:"not null"`
	StartDate         datatypes.Date `gorm:"not null"`
	EndDate           datatypes.Date `gorm:"not null"`
	StartMinute       int            `gorm:"not null"`
	EndMinute         int            `gorm:"not null"`
	TotalCents        int64          `gorm:"not null"`
	CommissionRateBps int64          `gorm:"not null"`
	Status            string         `gorm:"not null;index:idx_bookings_listing_status,priority:2"`
	DisputeStatus     string         `gorm:"not null"`
	CreatedAt         time.Time      `gorm:"not null"`
}

func (Booking) TableName() string { return "bookings" }

func (booking *Booking) BeforeCreate(tx *gorm.DB) error {
	if booking.BookingID == "" {
		booking.BookingID = uuid.NewString()
	}
	return nil
}

// PaymentIntent mirrors the payment_intents table. The unique booking index
// enforces the 1:1 intent-per-booking shape.
type PaymentIntent struct {
	PaymentIntentID string    `gorm:"type:uuid;primaryKey"`
	BookingID       string    `gorm:"type:uuid;not null;index:uniq_intent_booking,unique"`
	RenterID        string    `gorm:"not null"`
	HostID          string    `gorm:"not null"`
	AmountCents     int64     `gorm:"not null"`
	Currency        string    `gorm:"not null"`
	Status          string    `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (PaymentIntent) TableName() string { return "payment_intents" }

func (intent *PaymentIntent) BeforeCreate(tx *gorm.DB) error {
	if intent.PaymentIntentID == "" {
		intent.PaymentIntentID = uuid.NewString()
	}
	return nil
}

// LedgerEntry mirrors the ledger_entries table. Rows are append-only except
// for the POSTED to REVERSED flip with its back-link.
type LedgerEntry struct {
	EntryID         string    `gorm:"type:uuid;primaryKey"`
	BookingID       string    `gorm:"type:uuid;not null;index:idx_entries_booking"`
	PaymentIntentID string    `gorm:"type:uuid;not null;index:idx_entries_booking"`
	HostID          string    `gorm:"not null;index:idx_entries_host_type,priority:1"`
	Type            string    `gorm:"not null;index:idx_entries_host_type,priority:2"`
	Direction       string    `gorm:"not null"`
	AmountCents     int64     `gorm:"not null"`
	Currency        string    `gorm:"not null"`
	Status          string    `gorm:"not null"`
	Reason          string    `gorm:"not null"`
	ReversalOf      *string   `gorm:"type:uuid"`
	ReversedBy      *string   `gorm:"type:uuid"`
	CreatedAt       time.Time `gorm:"not null;index"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

func (entry *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	return nil
}

// Payout mirrors the payouts table.
type Payout struct {
	PayoutID    string     `gorm:"type:uuid;primaryKey"`
	HostID      string     `gorm:"not null;index"`
	AmountCents int64      `gorm:"not null"`
	Currency    string     `gorm:"not null"`
	Status      string     `gorm:"not null"`
	Method      string     `gorm:"not null"`
	Reference   string     `gorm:"not null"`
	Notes       string     `gorm:"not null"`
	PaidAt      *time.Time `gorm:""`
	CreatedAt   time.Time  `gorm:"not null"`
}

func (Payout) TableName() string { return "payouts" }

func (payout *Payout) BeforeCreate(tx *gorm.DB) error {
	if payout.PayoutID == "" {
		payout.PayoutID = uuid.NewString()
	}
	return nil
}

// PayoutItem mirrors the payout_items table. The unique entry index makes a
// credit consumable at most once across all payouts.
type PayoutItem struct {
	PayoutID string `gorm:"type:uuid;primaryKey"`
	EntryID  string `gorm:"type:uuid;primaryKey;index:uniq_payout_item_entry,unique"`
}

func (PayoutItem) TableName() string { return "payout_items" }

// Listing mirrors the listings table. The core only reads it; listing CRUD
// belongs to the listings collaborator.
type Listing struct {
	ListingID         string    `gorm:"primaryKey"`
	HostID            string    `gorm:"not null;index"`
	Kind              string    `gorm:"not null"`
	PricePerDayCents  int64     `gorm:"not null"`
	PricePerSlotCents int64     `gorm:"not null"`
	SlotBufferMinutes int       `gorm:"not null"`
	IsActive          bool      `gorm:"not null"`
	CreatedAt         time.Time `gorm:"not null"`
}

func (Listing) TableName() string { return "listings" }

// AutoMigrate creates or updates the schema for every table the store owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Booking{}, &PaymentIntent{}, &LedgerEntry{}, &Payout{}, &PayoutItem{}, &Listing{})
}
