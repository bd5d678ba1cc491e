package usecase

import "testing"

func TestCanonicalIngredient(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Lime", "lime"},
		{"limes", "lime"},
		{"Fresh Lime Juice", "lime juice"},
		{"  Freshly Squeezed Orange Juice ", "orange juice"},
		{"Crushed Ice", "ice"},
		{"glass", "glass"}, // double s never singularizes
		{"Angostura Bitters", "angostura bitter"},
		{"gin", "gin"},
	}

	for _, tc := range cases {
		if got := canonicalIngredient(tc.in); got != tc.want {
			t.Errorf("canonicalIngredient(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestScoreDrink(t *testing.T) {
	drink := &drinkPayload{
		ID:          "11000",
		Name:        "Gin Sour",
		Ingredient1: "Gin", Measure1: "2 oz",
		Ingredient2: "Fresh Lime Juice", Measure2: "1 oz",
		Ingredient3: "Simple Syrup", Measure3: "0.5 oz",
	}

	stock := map[string]bool{
		canonicalIngredient("gin"):        true,
		canonicalIngredient("lime juice"): true,
	}

	recipe := scoreDrink(drink, stock)

	if len(recipe.Ingredients) != 3 {
		t.Fatalf("ingredients = %d, want 3", len(recipe.Ingredients))
	}
	if recipe.FullyMakeable {
		t.Error("recipe marked makeable with a missing ingredient")
	}
	if want := 2.0 / 3.0; recipe.MatchScore != want {
		t.Errorf("match score = %v, want %v", recipe.MatchScore, want)
	}
	if len(recipe.Missing) != 1 || recipe.Missing[0] != "Simple Syrup" {
		t.Errorf("missing = %v, want [Simple Syrup]", recipe.Missing)
	}

	stock[canonicalIngredient("simple syrup")] = true
	recipe = scoreDrink(drink, stock)
	if !recipe.FullyMakeable || recipe.MatchScore != 1 {
		t.Errorf("fully stocked recipe: makeable=%v score=%v", recipe.FullyMakeable, recipe.MatchScore)
	}
	if len(recipe.Missing) != 0 {
		t.Errorf("missing = %v, want none", recipe.Missing)
	}
}

func TestScoreDrinkNoIngredients(t *testing.T) {
	recipe := scoreDrink(&drinkPayload{ID: "1", Name: "Empty"}, map[string]bool{})
	if recipe.FullyMakeable {
		t.Error("empty recipe marked makeable")
	}
	if recipe.MatchScore != 0 {
		t.Errorf("match score = %v, want 0", recipe.MatchScore)
	}
}
