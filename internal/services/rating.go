package services

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"agromart/internal/models"
)

// AverageRating is the mean of ratings rounded half-up to one decimal place,
// or 0 when there are none.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := decimal.NewFromInt(int64(lo.Sum(ratings)))
	mean := sum.Div(decimal.NewFromInt(int64(len(ratings))))
	return mean.Round(1).InexactFloat64()
}

// RatingHistogram counts ratings per star. Keys 1 to 5 are always present.
func RatingHistogram(ratings []int) map[int]int {
	histogram := map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, r := range ratings {
		if _, ok := histogram[r]; ok {
			histogram[r]++
		}
	}
	return histogram
}

func reviewRatings(reviews []models.Review) []int {
	return lo.Map(reviews, func(r models.Review, _ int) int {
		return r.Rating
	})
}
