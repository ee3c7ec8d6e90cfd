// Package sqlite provides SQLite database setup and the seed recipe catalogue
package sqlite

import (
	"context"
	"fmt"
	"strings"

	gormModels "github.com/alchemorsel/discovery/internal/infrastructure/persistence/gorm"
	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupDatabase creates and migrates a SQLite recipe database
func SetupDatabase(dbPath string, logLevel logger.LogLevel) (*gorm.DB, error) {
	// Use in-memory database if no path provided
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dbPath == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := gormModels.Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// SeedDatabase loads the curated catalogue plus fakeRecipes generated filler
// recipes. It does nothing when the recipes table already has rows.
func SeedDatabase(ctx context.Context, db *gorm.DB, fakeRecipes int) (int, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&gormModels.RecipeModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	models := make([]gormModels.RecipeModel, 0, len(catalogue)+fakeRecipes)
	for i, r := range catalogue {
		models = append(models, r.model(float64(len(catalogue)-i)))
	}
	models = append(models, FakeRecipes(fakeRecipes, 42)...)

	if err := db.WithContext(ctx).CreateInBatches(&models, 100).Error; err != nil {
		return 0, fmt.Errorf("failed to seed recipes: %w", err)
	}
	return len(models), nil
}

// FakeRecipes generates n deterministic filler recipes
func FakeRecipes(n int, seed int64) []gormModels.RecipeModel {
	if n <= 0 {
		return nil
	}
	faker := gofakeit.New(seed)
	cuisines := []string{"italian", "mexican", "indian", "thai", "french", "greek", "japanese", "american"}
	ingredients := []string{"chicken", "beef", "pork", "salmon", "tofu", "rice", "pasta", "beans", "potatoes", "mushrooms", "eggs", "spinach"}

	out := make([]gormModels.RecipeModel, n)
	for i := range out {
		role, title := "main", faker.Dinner()
		switch faker.Number(0, 3) {
		case 0:
			role, title = "breakfast", faker.Breakfast()
		case 1:
			role, title = "lunch", faker.Lunch()
		case 2:
			role, title = "dessert", faker.Dessert()
		}
		out[i] = gormModels.RecipeModel{
			Title:            title,
			Description:      faker.Sentence(8),
			Cuisine:          faker.RandomString(cuisines),
			Category:         role,
			MealRole:         role,
			Ingredients:      gormModels.StringSlice{faker.RandomString(ingredients), faker.RandomString(ingredients)},
			TotalTimeMinutes: faker.Number(10, 120),
			IsEasy:           faker.Bool(),
			IsOnePot:         faker.Bool(),
			KidFriendly:      faker.Bool(),
			LeftoverFriendly: faker.Bool(),
			Popularity:       faker.Float64Range(0, 1),
		}
	}
	return out
}

type seedRecipe struct {
	title    string
	cuisine  string
	category string
	role     string
	minutes  int
	// flags: e easy, o one-pot, k kid-friendly, l leftover-friendly
	flags       string
	ingredients []string
	tags        []string
}

func (s seedRecipe) model(popularity float64) gormModels.RecipeModel {
	return gormModels.RecipeModel{
		Title:            s.title,
		Cuisine:          s.cuisine,
		Category:         s.category,
		MealRole:         s.role,
		Ingredients:      gormModels.StringSlice(s.ingredients),
		Tags:             gormModels.StringSlice(s.tags),
		TotalTimeMinutes: s.minutes,
		IsEasy:           strings.Contains(s.flags, "e"),
		IsOnePot:         strings.Contains(s.flags, "o"),
		KidFriendly:      strings.Contains(s.flags, "k"),
		LeftoverFriendly: strings.Contains(s.flags, "l"),
		Popularity:       popularity,
	}
}

func list(items ...string) []string { return items }

var catalogue = []seedRecipe{
	// chicken
	{"Lemon Herb Roast Chicken", "french", "roast", "main", 75, "kl", list("chicken", "lemon", "thyme", "garlic"), list("dinner", "family", "roasted")},
	{"Chicken Tikka Masala", "indian", "curry", "main", 50, "l", list("chicken", "yogurt", "tomato", "garam masala"), list("dinner", "popular")},
	{"Chicken Parmesan", "italian", "bake", "main", 45, "k", list("chicken", "mozzarella", "marinara", "breadcrumbs"), list("dinner", "family")},
	{"Chicken Fajitas", "mexican", "skillet", "main", 30, "ek", list("chicken", "peppers", "onion", "tortillas"), list("dinner", "weeknight", "quick")},
	{"Thai Green Curry Chicken", "thai", "curry", "main", 35, "ol", list("chicken", "coconut milk", "green curry paste", "basil"), list("dinner", "weeknight")},
	{"Sheet Pan Chicken Thighs", "american", "sheet pan", "main", 40, "eokl", list("chicken", "potatoes", "carrots"), list("dinner", "weeknight", "easy")},
	{"Chicken Noodle Soup", "american", "soup", "main", 45, "eokl", list("chicken", "egg noodles", "carrots", "celery"), list("soup", "hearty", "winter")},
	{"Greek Chicken Souvlaki", "greek", "grill", "main", 35, "ek", list("chicken", "oregano", "lemon", "pita"), list("grilled", "summer")},
	{"Chicken Stir Fry", "asian", "stir fry", "main", 20, "eok", list("chicken", "broccoli", "soy sauce", "ginger"), list("stir fry", "quick", "weeknight")},
	{"Chicken Shawarma Bowl", "middle eastern", "bowl", "main", 40, "l", list("chicken", "tahini", "cucumber", "rice"), list("dinner", "meal prep")},
	{"Chicken Teriyaki", "japanese", "skillet", "main", 25, "ek", list("chicken", "teriyaki sauce", "rice"), list("quick", "dinner")},
	{"Chicken Caesar Salad", "american", "salad", "lunch", 20, "e", list("chicken", "romaine", "parmesan", "croutons"), list("salad", "fresh", "lunch")},
	// poultry alternatives
	{"Turkey Meatballs", "italian", "bake", "main", 40, "ekl", list("turkey", "breadcrumbs", "parmesan", "marinara"), list("dinner", "family", "meal prep")},
	{"Turkey Chili", "american", "stew", "main", 60, "eokl", list("turkey", "beans", "tomato", "chili powder"), list("hearty", "winter", "batch")},
	{"Roast Turkey Breast", "american", "roast", "main", 90, "l", list("turkey", "sage", "butter"), list("thanksgiving", "holiday", "festive")},
	{"Turkey Taco Lettuce Wraps", "mexican", "tacos", "main", 20, "ek", list("turkey", "lettuce", "salsa"), list("quick", "light", "healthy")},
	{"Crispy Duck Breast with Cherries", "french", "skillet", "main", 40, "", list("duck", "cherries", "port"), list("date night", "impressive")},
	{"Duck Fried Rice", "asian", "stir fry", "main", 30, "ol", list("duck", "rice", "eggs", "scallions"), list("leftovers", "stir fry")},
	{"Roast Cornish Hens", "french", "roast", "main", 70, "", list("cornish hen", "thyme", "shallots"), list("date night", "holiday")},
	// red meat
	{"Beef Stir Fry", "asian", "stir fry", "main", 25, "eo", list("beef", "snap peas", "soy sauce"), list("stir fry", "quick")},
	{"Classic Beef Stew", "french", "stew", "main", 150, "ol", list("beef", "potatoes", "carrots", "red wine"), list("hearty", "winter", "braised")},
	{"Beef Tacos", "mexican", "tacos", "main", 25, "ek", list("beef", "tortillas", "cheddar", "salsa"), list("family", "weeknight", "game day")},
	{"Lamb Kofta", "middle eastern", "grill", "main", 35, "", list("lamb", "cumin", "parsley", "yogurt"), list("grilled", "summer")},
	{"Pork Carnitas", "mexican", "slow cooker", "main", 240, "ol", list("pork", "orange", "cumin"), list("party", "crowd", "batch")},
	{"Honey Garlic Pork Chops", "american", "skillet", "main", 25, "ek", list("pork", "honey", "garlic"), list("weeknight", "easy")},
	// seafood
	{"Baked Salmon with Dill", "mediterranean", "bake", "main", 25, "e", list("salmon", "dill", "lemon"), list("healthy", "light", "high protein")},
	{"Miso Glazed Salmon", "japanese", "bake", "main", 20, "e", list("salmon", "miso", "rice"), list("quick", "healthy")},
	{"Shrimp Scampi", "italian", "pasta", "main", 20, "e", list("shrimp", "pasta", "garlic", "butter"), list("quick", "date night")},
	{"Fish Tacos", "mexican", "tacos", "main", 30, "ek", list("cod", "cabbage", "lime", "tortillas"), list("summer", "fresh")},
	{"Shrimp Pad Thai", "thai", "noodle bowl", "main", 30, "", list("shrimp", "rice noodles", "peanuts", "eggs"), list("noodle bowl", "popular")},
	// vegetarian
	{"Crispy Tofu Stir Fry", "asian", "stir fry", "main", 30, "eo", list("tofu", "broccoli", "soy sauce"), list("vegetarian", "vegan", "stir fry")},
	{"Chickpea Curry", "indian", "curry", "main", 35, "eol", list("chickpeas", "coconut milk", "spinach"), list("vegan", "vegetarian", "batch")},
	{"Lentil Soup", "mediterranean", "soup", "main", 45, "eokl", list("lentils", "carrots", "cumin"), list("vegan", "hearty", "winter")},
	{"Black Bean Enchiladas", "mexican", "casserole", "main", 50, "kl", list("beans", "tortillas", "cheddar", "enchilada sauce"), list("vegetarian", "family")},
	{"Mushroom Risotto", "italian", "rice", "main", 45, "", list("mushrooms", "rice", "parmesan"), list("vegetarian", "date night")},
	{"Vegetable Lasagna", "italian", "casserole", "main", 80, "kl", list("pasta", "ricotta", "spinach", "zucchini"), list("vegetarian", "family", "make ahead")},
	{"Falafel Wraps", "middle eastern", "wrap", "lunch", 35, "k", list("chickpeas", "tahini", "pita"), list("vegan", "lunch")},
	{"Roasted Cauliflower Steaks", "mediterranean", "roast", "main", 35, "e", list("cauliflower", "tahini", "pomegranate"), list("vegan", "roasted", "autumn")},
	{"Spring Pea and Asparagus Pasta", "italian", "pasta", "main", 25, "e", list("pasta", "peas", "asparagus", "lemon"), list("spring", "fresh", "vegetarian")},
	{"Pumpkin Soup", "american", "soup", "main", 40, "eol", list("pumpkin", "onion", "cream"), list("autumn", "fall", "harvest", "soup")},
	{"Butternut Squash Curry", "indian", "curry", "main", 40, "ol", list("squash", "coconut milk", "chickpeas"), list("autumn", "vegan", "harvest")},
	{"Summer Garden Salad", "mediterranean", "salad", "lunch", 15, "e", list("tomato", "cucumber", "feta"), list("summer", "fresh", "salad", "no cook")},
	{"Grilled Vegetable Skewers", "mediterranean", "grill", "side", 25, "ek", list("zucchini", "peppers", "onion"), list("grilled", "summer", "vegan")},
	// pasta and noodles
	{"Spaghetti Carbonara", "italian", "pasta", "main", 25, "e", list("pasta", "eggs", "pancetta", "pecorino"), list("quick", "popular")},
	{"One Pot Mac and Cheese", "american", "pasta", "main", 25, "eok", list("pasta", "cheddar", "milk"), list("family", "easy")},
	{"Penne Arrabbiata", "italian", "pasta", "main", 20, "eo", list("pasta", "tomato", "chili flakes"), list("vegan", "quick")},
	{"Ramen Noodle Bowl", "japanese", "noodle bowl", "main", 35, "o", list("ramen noodles", "eggs", "scallions", "miso"), list("noodle bowl", "winter")},
	{"Sesame Noodle Bowl", "asian", "noodle bowl", "lunch", 20, "ek", list("noodles", "sesame", "cucumber"), list("quick", "lunch", "vegan")},
	// breakfast
	{"Fluffy Buttermilk Pancakes", "american", "breakfast", "breakfast", 25, "ek", list("flour", "buttermilk", "eggs"), list("breakfast", "family", "easy")},
	{"Shakshuka", "middle eastern", "breakfast", "breakfast", 30, "eo", list("eggs", "tomato", "peppers"), list("breakfast", "brunch", "vegetarian")},
	{"Overnight Oats", "american", "breakfast", "breakfast", 5, "ekl", list("oats", "milk", "berries"), list("breakfast", "meal prep", "no cook")},
	{"Breakfast Burritos", "mexican", "breakfast", "breakfast", 25, "ekl", list("eggs", "tortillas", "potatoes", "cheddar"), list("breakfast", "make ahead")},
	// desserts
	{"Chocolate Chip Cookies", "american", "dessert", "dessert", 30, "ek", list("flour", "chocolate", "butter"), list("dessert", "baking", "party")},
	{"Tiramisu", "italian", "dessert", "dessert", 40, "", list("mascarpone", "espresso", "ladyfingers"), list("dessert", "make ahead", "date night")},
	{"Mango Sticky Rice", "thai", "dessert", "dessert", 45, "", list("mango", "rice", "coconut milk"), list("dessert", "summer")},
	{"Apple Crumble", "american", "dessert", "dessert", 55, "ek", list("apples", "oats", "butter"), list("dessert", "autumn", "fall")},
	// sides and casseroles
	{"Green Bean Casserole", "american", "casserole", "side", 45, "k", list("green beans", "mushrooms", "fried onions"), list("thanksgiving", "holiday", "side")},
	{"Garlic Mashed Potatoes", "american", "side", "side", 30, "ek", list("potatoes", "garlic", "butter"), list("side", "holiday", "family")},
	{"Cheesy Potato Casserole", "american", "casserole", "side", 60, "kl", list("potatoes", "cheddar", "sour cream"), list("potluck", "party", "crowd")},
	{"Mediterranean Quinoa Salad", "mediterranean", "salad", "side", 20, "el", list("quinoa", "cucumber", "olives", "feta"), list("salad", "meal prep", "healthy")},
	{"Korean Beef Bulgogi", "korean", "grill", "main", 40, "", list("beef", "pear", "soy sauce", "sesame"), list("grilled", "dinner")},
	{"Vietnamese Pho", "vietnamese", "soup", "main", 180, "o", list("beef", "rice noodles", "star anise"), list("soup", "hearty")},
	{"Kung Pao Chicken", "chinese", "stir fry", "main", 25, "e", list("chicken", "peanuts", "chili"), list("stir fry", "quick")},
}
