package models

import (
	"encoding/json"
	"time"
)

// HazardScore is an EWG hazard score. Clients send it as either a JSON
// string or a bare number; both decode to the string form.
type HazardScore string

func (s *HazardScore) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = HazardScore(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = HazardScore(num.String())
	return nil
}

// Ingredient is a single product ingredient with its EWG hazard score
// (1-10, or "N/A" when the score could not be read) and any listed concerns.
type Ingredient struct {
	Name     string      `json:"name" bson:"name"`
	Score    HazardScore `json:"score" bson:"score"`
	Concerns []string    `json:"concerns,omitempty" bson:"concerns,omitempty"`
}

// Product is the result of an ingredient lookup.
type Product struct {
	ProductName string       `json:"product_name" bson:"product_name"`
	ProductURL  string       `json:"product_url" bson:"product_url"`
	Ingredients []Ingredient `json:"ingredients" bson:"ingredients"`
}

// CachedProduct wraps a Product with the lookup key and fetch time for the
// 30-day product cache.
type CachedProduct struct {
	SearchKey   string    `bson:"search_key"`
	Product     Product   `bson:"product"`
	LastUpdated time.Time `bson:"last_updated"`
}

// RecommendRequest is the body of POST /recommend.
type RecommendRequest struct {
	ProductName string                 `json:"product_name"`
	Ingredients []Ingredient           `json:"ingredients"`
	UserProfile map[string]interface{} `json:"user_profile"`
	SessionID   string                 `json:"session_id,omitempty"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// SummaryRequest is the body of POST /ingredient-summary.
type SummaryRequest struct {
	Ingredients []Ingredient `json:"ingredients"`
}

type SummaryResponse struct {
	Summary []string `json:"summary"`
}
