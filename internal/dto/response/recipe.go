package response

type RecipeIngredient struct {
	Name    string `json:"name"`
	Measure string `json:"measure,omitempty"`
	InStock bool   `json:"in_stock"`
}

type RecipeResponse struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Category      string             `json:"category,omitempty"`
	Glass         string             `json:"glass,omitempty"`
	Instructions  string             `json:"instructions,omitempty"`
	ThumbnailURL  string             `json:"thumbnail_url,omitempty"`
	Ingredients   []RecipeIngredient `json:"ingredients"`
	MatchScore    float64            `json:"match_score"`
	FullyMakeable bool               `json:"fully_makeable"`
	Missing       []string           `json:"missing,omitempty"`
}

type RecommendationsResponse struct {
	Recipes []RecipeResponse `json:"recipes"`
	Total   int              `json:"total"`
}
