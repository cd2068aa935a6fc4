package dto

import (
	executordto "golang-stock-suggester/internal/executor/dto"
)

// SuggestionsQuery are the filters of the suggestions listing.
type SuggestionsQuery struct {
	Date     string  `query:"date" validate:"omitempty,datetime=2006-01-02"`
	MinScore float64 `query:"min_score" validate:"gte=0,lte=1"`
	Limit    int     `query:"limit" validate:"gte=0,lte=50"`
}

// SuggestionsResponse wraps a list of suggestions.
type SuggestionsResponse struct {
	Count       int                      `json:"count"`
	Suggestions []executordto.Suggestion `json:"suggestions"`
}
