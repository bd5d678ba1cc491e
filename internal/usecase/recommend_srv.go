package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"mycabinet-backend/internal/data/repository"
	"mycabinet-backend/internal/dto/response"
	"mycabinet-backend/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// How many random drinks to sample per recommendation request. The
	// upstream API only hands out one drink per call.
	randomDrawCount = 12

	defaultRecommendLimit = 5
	maxRecommendLimit     = 10

	cocktailTimeout = 10 * time.Second
)

type RecommendService interface {
	Recommend(ctx context.Context, userID uuid.UUID, limit int) (*response.RecommendationsResponse, error)
}

type recommendService struct {
	repo    *repository.Repository
	client  *http.Client
	baseURL string
	log     *zap.Logger
}

func NewRecommendService(repo *repository.Repository, config *utils.Config, log *zap.Logger) RecommendService {
	return &recommendService{
		repo:    repo,
		client:  &http.Client{Timeout: cocktailTimeout},
		baseURL: strings.TrimRight(config.Cocktail.BaseURL, "/"),
		log:     log,
	}
}

// drinkPayload mirrors the upstream JSON. Ingredients arrive as 15 numbered
// string fields, most of them null.
type drinkPayload struct {
	ID           string `json:"idDrink"`
	Name         string `json:"strDrink"`
	Category     string `json:"strCategory"`
	Glass        string `json:"strGlass"`
	Instructions string `json:"strInstructions"`
	Thumbnail    string `json:"strDrinkThumb"`

	Ingredient1  string `json:"strIngredient1"`
	Ingredient2  string `json:"strIngredient2"`
	Ingredient3  string `json:"strIngredient3"`
	Ingredient4  string `json:"strIngredient4"`
	Ingredient5  string `json:"strIngredient5"`
	Ingredient6  string `json:"strIngredient6"`
	Ingredient7  string `json:"strIngredient7"`
	Ingredient8  string `json:"strIngredient8"`
	Ingredient9  string `json:"strIngredient9"`
	Ingredient10 string `json:"strIngredient10"`
	Ingredient11 string `json:"strIngredient11"`
	Ingredient12 string `json:"strIngredient12"`
	Ingredient13 string `json:"strIngredient13"`
	Ingredient14 string `json:"strIngredient14"`
	Ingredient15 string `json:"strIngredient15"`

	Measure1  string `json:"strMeasure1"`
	Measure2  string `json:"strMeasure2"`
	Measure3  string `json:"strMeasure3"`
	Measure4  string `json:"strMeasure4"`
	Measure5  string `json:"strMeasure5"`
	Measure6  string `json:"strMeasure6"`
	Measure7  string `json:"strMeasure7"`
	Measure8  string `json:"strMeasure8"`
	Measure9  string `json:"strMeasure9"`
	Measure10 string `json:"strMeasure10"`
	Measure11 string `json:"strMeasure11"`
	Measure12 string `json:"strMeasure12"`
	Measure13 string `json:"strMeasure13"`
	Measure14 string `json:"strMeasure14"`
	Measure15 string `json:"strMeasure15"`
}

type drinksEnvelope struct {
	Drinks []drinkPayload `json:"drinks"`
}

func (d *drinkPayload) ingredientPairs() [][2]string {
	raw := [][2]string{
		{d.Ingredient1, d.Measure1}, {d.Ingredient2, d.Measure2},
		{d.Ingredient3, d.Measure3}, {d.Ingredient4, d.Measure4},
		{d.Ingredient5, d.Measure5}, {d.Ingredient6, d.Measure6},
		{d.Ingredient7, d.Measure7}, {d.Ingredient8, d.Measure8},
		{d.Ingredient9, d.Measure9}, {d.Ingredient10, d.Measure10},
		{d.Ingredient11, d.Measure11}, {d.Ingredient12, d.Measure12},
		{d.Ingredient13, d.Measure13}, {d.Ingredient14, d.Measure14},
		{d.Ingredient15, d.Measure15},
	}

	var pairs [][2]string
	for _, p := range raw {
		if strings.TrimSpace(p[0]) != "" {
			pairs = append(pairs, p)
		}
	}
	return pairs
}

// Recommend samples random cocktails and ranks them by how much of each
// recipe the user's pantry covers.
func (s *recommendService) Recommend(ctx context.Context, userID uuid.UUID, limit int) (*response.RecommendationsResponse, error) {
	if limit <= 0 {
		limit = defaultRecommendLimit
	}
	if limit > maxRecommendLimit {
		limit = maxRecommendLimit
	}

	items, err := s.repo.Pantry.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pantry")
	}

	stock := make(map[string]bool, len(items))
	for _, item := range items {
		stock[canonicalIngredient(item.IngredientName)] = true
	}

	seen := make(map[string]bool)
	var recipes []response.RecipeResponse
	for i := 0; i < randomDrawCount; i++ {
		drink, err := s.fetchRandom(ctx)
		if err != nil {
			// One bad draw is fine; an upstream outage is not.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("cocktail service unavailable")
			}
			s.log.Warn("Random cocktail fetch failed", zap.Error(err))
			continue
		}
		if drink == nil || seen[drink.ID] {
			continue
		}
		seen[drink.ID] = true
		recipes = append(recipes, scoreDrink(drink, stock))
	}

	if len(recipes) == 0 {
		return nil, fmt.Errorf("cocktail service unavailable")
	}

	// Makeable drinks first, then by coverage.
	sort.SliceStable(recipes, func(i, j int) bool {
		if recipes[i].FullyMakeable != recipes[j].FullyMakeable {
			return recipes[i].FullyMakeable
		}
		return recipes[i].MatchScore > recipes[j].MatchScore
	})

	if len(recipes) > limit {
		recipes = recipes[:limit]
	}

	return &response.RecommendationsResponse{
		Recipes: recipes,
		Total:   len(recipes),
	}, nil
}

func (s *recommendService) fetchRandom(ctx context.Context) (*drinkPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/random.php", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch random cocktail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cocktail api returned %d", resp.StatusCode)
	}

	var envelope drinksEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode cocktail response: %w", err)
	}
	if len(envelope.Drinks) == 0 {
		return nil, nil
	}

	return &envelope.Drinks[0], nil
}

func scoreDrink(drink *drinkPayload, stock map[string]bool) response.RecipeResponse {
	pairs := drink.ingredientPairs()

	recipe := response.RecipeResponse{
		ID:           drink.ID,
		Name:         drink.Name,
		Category:     drink.Category,
		Glass:        drink.Glass,
		Instructions: drink.Instructions,
		ThumbnailURL: drink.Thumbnail,
		Ingredients:  make([]response.RecipeIngredient, 0, len(pairs)),
	}

	have := 0
	for _, pair := range pairs {
		inStock := stock[canonicalIngredient(pair[0])]
		if inStock {
			have++
		} else {
			recipe.Missing = append(recipe.Missing, strings.TrimSpace(pair[0]))
		}
		recipe.Ingredients = append(recipe.Ingredients, response.RecipeIngredient{
			Name:    strings.TrimSpace(pair[0]),
			Measure: strings.TrimSpace(pair[1]),
			InStock: inStock,
		})
	}

	if len(pairs) > 0 {
		recipe.MatchScore = float64(have) / float64(len(pairs))
	}
	recipe.FullyMakeable = len(pairs) > 0 && have == len(pairs)

	return recipe
}

// Filler words that recipes bolt onto ingredient names without changing
// what sits on the shelf.
var ingredientFillers = regexp.MustCompile(`\b(fresh|freshly|squeezed|chilled|cold|hot|crushed|cracked|large|small|whole)\b`)

var spaceRun = regexp.MustCompile(`\s+`)

// canonicalIngredient reduces an ingredient name to a comparable key:
// lowercase, fillers stripped, naive singular.
func canonicalIngredient(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = ingredientFillers.ReplaceAllString(key, " ")
	key = spaceRun.ReplaceAllString(key, " ")
	key = strings.TrimSpace(key)

	// "limes" and "lime" must collapse; "glass" must not become "glas".
	if strings.HasSuffix(key, "s") && !strings.HasSuffix(key, "ss") && len(key) > 3 {
		key = strings.TrimSuffix(key, "s")
	}

	return key
}
