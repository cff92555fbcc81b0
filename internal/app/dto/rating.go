package dto

import "deskrent/internal/domain/rating"

// Rating exposes the accumulator fields as stored.
type Rating struct {
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"total_reviews"`
	TotalRatings float64 `json:"total_ratings"`
}

func MapRating(agg rating.Aggregate) Rating {
	return Rating{Rating: agg.Average(), TotalReviews: agg.TotalReviews, TotalRatings: agg.TotalRatings}
}
