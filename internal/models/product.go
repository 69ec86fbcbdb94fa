package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups produce in the catalog.
type Category string

const (
	CategoryVegetables Category = "vegetables"
	CategoryFruits     Category = "fruits"
	CategoryGrains     Category = "grains"
	CategoryDairy      Category = "dairy"
	CategoryMeat       Category = "meat"
	CategoryHerbs      Category = "herbs"
	CategoryOther      Category = "other"
)

// Unit is the unit of sale a price refers to.
type Unit string

const (
	UnitKg     Unit = "kg"
	UnitLb     Unit = "lb"
	UnitPiece  Unit = "piece"
	UnitDozen  Unit = "dozen"
	UnitLiter  Unit = "liter"
	UnitGallon Unit = "gallon"
)

// Product is a listing owned by exactly one farmer.
// AverageRating and ReviewCount are cached from the product's reviews.
type Product struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SellerID      string          `json:"seller_id" gorm:"index;type:varchar(36);not null"`
	Name          string          `json:"name" gorm:"type:varchar(100);not null" validate:"required,min=2,max=100"`
	Description   string          `json:"description" validate:"omitempty,max=1000"`
	Category      Category        `json:"category" gorm:"index;type:varchar(20);not null" validate:"required,oneof=vegetables fruits grains dairy meat herbs other"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null" validate:"gte=0"`
	Unit          Unit            `json:"unit" gorm:"type:varchar(10);not null" validate:"required,oneof=kg lb piece dozen liter gallon"`
	Quantity      int             `json:"quantity" gorm:"not null" validate:"gte=0"`
	IsOrganic     bool            `json:"is_organic"`
	IsAvailable   bool            `json:"is_available"`
	Images        []string        `json:"images" gorm:"serializer:json" validate:"omitempty,max=10,dive,required"`
	HarvestDate   *time.Time      `json:"harvest_date,omitempty"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
	Latitude      float64         `json:"latitude" validate:"latitude"`
	Longitude     float64         `json:"longitude" validate:"longitude"`
	AverageRating float64         `json:"average_rating"`
	ReviewCount   int             `json:"review_count"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `json:"-" gorm:"index"`
}

// ProductFilter narrows catalog listings. Zero values mean "any".
type ProductFilter struct {
	Category      Category
	SellerID      string
	Organic       *bool
	AvailableOnly bool
	Search        string
}
