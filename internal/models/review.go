package models

import (
	"time"

	"github.com/samber/lo"
)

// Review is a customer's rating of a product. A product holds at most one
// review per author.
type Review struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID     string    `json:"product_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_reviews_product_author"`
	AuthorID      string    `json:"author_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_reviews_product_author"`
	Rating        int       `json:"rating" gorm:"not null" validate:"required,min=1,max=5"`
	Comment       string    `json:"comment" validate:"required,min=10,max=500"`
	Images        []string  `json:"images" gorm:"serializer:json" validate:"omitempty,max=5,dive,required"`
	HelpfulVoters []string  `json:"helpful_voters" gorm:"serializer:json"`
	Verified      bool      `json:"verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToggleHelpful adds voterID to the helpful voters, or removes it if already
// there. The set never holds duplicates.
func (r *Review) ToggleHelpful(voterID string) {
	if lo.Contains(r.HelpfulVoters, voterID) {
		r.HelpfulVoters = lo.Without(r.HelpfulVoters, voterID)
		return
	}
	r.HelpfulVoters = append(lo.Uniq(r.HelpfulVoters), voterID)
}

// RatingSummary is the aggregate view of a product's reviews.
type RatingSummary struct {
	ProductID     string      `json:"product_id"`
	AverageRating float64     `json:"average_rating"`
	ReviewCount   int         `json:"review_count"`
	Histogram     map[int]int `json:"histogram"`
}
