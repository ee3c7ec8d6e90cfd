package discovery

import (
	"time"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
)

// intentPattern is one row of the classifier's pattern table
type intentPattern struct {
	intent   discovery.Intent
	weight   float64
	patterns []string
}

var intentPatterns = []intentPattern{
	{
		intent: discovery.IntentMealPlanning,
		weight: 1.0,
		patterns: []string{
			"meal plan", "meal planning", "plan my meals", "plan meals", "weekly menu",
			"week of meals", "meal prep", "this week", "for the week", "weekly", "menu for",
		},
	},
	{
		intent: discovery.IntentSubstitution,
		weight: 1.0,
		patterns: []string{
			"substitute", "substitution", "instead of", "replace", "replacement",
			"swap", "alternative to", "out of", "don't have", "dont have",
		},
	},
	{
		intent: discovery.IntentGuidance,
		weight: 0.9,
		patterns: []string{
			"how do i", "how to", "how long", "what temperature", "tips",
			"technique", "help me", "explain", "why does", "learn",
		},
	},
	{
		intent: discovery.IntentCompleteMeal,
		weight: 0.9,
		patterns: []string{
			"complete meal", "full meal", "side dish", "sides", "goes with",
			"pair with", "serve with", "whole meal", "main and", "three course",
		},
	},
	{
		intent: discovery.IntentOccasionBased,
		weight: 0.85,
		patterns: []string{
			"party", "birthday", "holiday", "thanksgiving", "christmas", "date night",
			"potluck", "game day", "picnic", "anniversary", "guests", "entertaining",
		},
	},
	{
		intent: discovery.IntentDietary,
		weight: 0.85,
		patterns: []string{
			"vegan", "vegetarian", "gluten-free", "gluten free", "dairy-free", "dairy free",
			"keto", "low carb", "paleo", "nut-free", "low sodium", "high protein",
		},
	},
	{
		intent: discovery.IntentRecipeSearch,
		weight: 0.6,
		patterns: []string{
			"recipe", "make", "cook", "dinner", "lunch", "breakfast",
			"quick", "easy", "dish", "ideas",
		},
	},
}

// termGroup maps a canonical value to the phrases that indicate it
type termGroup struct {
	value   string
	phrases []string
}

var dietaryGroups = []termGroup{
	{"vegan", []string{"vegan", "plant-based", "plant based"}},
	{"vegetarian", []string{"vegetarian", "meatless", "veggie"}},
	{"gluten-free", []string{"gluten-free", "gluten free", "celiac"}},
	{"dairy-free", []string{"dairy-free", "dairy free", "lactose"}},
	{"keto", []string{"keto", "low carb", "low-carb"}},
	{"paleo", []string{"paleo", "whole30"}},
	{"nut-free", []string{"nut-free", "nut free", "peanut allergy"}},
	{"low-sodium", []string{"low sodium", "low-sodium", "low salt"}},
	{"high-protein", []string{"high protein", "high-protein", "protein packed"}},
}

var mealTypeGroups = []termGroup{
	{"breakfast", []string{"breakfast", "morning"}},
	{"brunch", []string{"brunch"}},
	{"lunch", []string{"lunch", "lunchbox"}},
	{"dinner", []string{"dinner", "supper", "weeknight"}},
	{"snack", []string{"snack", "snacks"}},
	{"dessert", []string{"dessert", "sweet treat", "baking"}},
	{"appetizer", []string{"appetizer", "starter", "finger food"}},
}

var occasionGroups = []termGroup{
	{"thanksgiving", []string{"thanksgiving"}},
	{"christmas", []string{"christmas", "xmas"}},
	{"holiday", []string{"holiday", "festive"}},
	{"birthday", []string{"birthday"}},
	{"date night", []string{"date night", "romantic", "anniversary"}},
	{"party", []string{"party", "entertaining", "guests"}},
	{"potluck", []string{"potluck"}},
	{"game day", []string{"game day", "super bowl", "tailgate"}},
	{"picnic", []string{"picnic"}},
}

var cookingMethodGroups = []termGroup{
	{"slow cooker", []string{"slow cooker", "crockpot", "crock pot"}},
	{"instant pot", []string{"instant pot", "pressure cooker"}},
	{"air fryer", []string{"air fryer", "air fried", "air-fried"}},
	{"sheet pan", []string{"sheet pan", "traybake"}},
	{"one pot", []string{"one pot", "one-pot", "one pan"}},
	{"stir fry", []string{"stir fry", "stir-fry", "stir fried"}},
	{"grill", []string{"grill", "grilled", "grilling", "bbq", "barbecue"}},
	{"bake", []string{"bake", "baked", "oven"}},
	{"roast", []string{"roast", "roasted"}},
	{"fry", []string{"fry", "fried", "deep fried"}},
	{"no cook", []string{"no cook", "no-cook", "raw"}},
}

var beginnerPhrases = []string{"beginner", "easy", "simple", "basic", "first time", "novice", "foolproof"}
var intermediatePhrases = []string{"intermediate", "moderate"}
var advancedPhrases = []string{"advanced", "challenging", "complex", "gourmet", "impressive", "restaurant"}

var quickPhrases = []string{"quick", "fast", "speedy", "in a hurry"}
var hourPhrases = []string{"under an hour", "an hour", "one hour"}

// coreIngredients is ordered so that multi-word and specific names win
var coreIngredients = []termGroup{
	{"cornish hen", []string{"cornish hen"}},
	{"chicken", []string{"chicken"}},
	{"turkey", []string{"turkey"}},
	{"duck", []string{"duck"}},
	{"beef", []string{"beef", "steak", "brisket"}},
	{"pork", []string{"pork", "bacon", "ham"}},
	{"lamb", []string{"lamb"}},
	{"salmon", []string{"salmon"}},
	{"shrimp", []string{"shrimp", "prawn"}},
	{"cod", []string{"cod"}},
	{"fish", []string{"fish", "tilapia", "halibut"}},
	{"tofu", []string{"tofu"}},
	{"tempeh", []string{"tempeh"}},
	{"pasta", []string{"pasta", "spaghetti", "penne", "macaroni"}},
	{"rice", []string{"rice", "risotto"}},
	{"eggs", []string{"egg", "eggs"}},
	{"beans", []string{"bean", "beans"}},
	{"lentils", []string{"lentil", "lentils"}},
	{"chickpeas", []string{"chickpea", "chickpeas"}},
	{"mushrooms", []string{"mushroom", "mushrooms"}},
	{"potatoes", []string{"potato", "potatoes"}},
	{"cauliflower", []string{"cauliflower"}},
}

var cuisineGroups = []termGroup{
	{"middle eastern", []string{"middle eastern", "lebanese", "persian"}},
	{"italian", []string{"italian"}},
	{"mexican", []string{"mexican", "tex-mex"}},
	{"mediterranean", []string{"mediterranean"}},
	{"indian", []string{"indian"}},
	{"french", []string{"french"}},
	{"thai", []string{"thai"}},
	{"japanese", []string{"japanese"}},
	{"greek", []string{"greek"}},
	{"chinese", []string{"chinese"}},
	{"korean", []string{"korean"}},
	{"vietnamese", []string{"vietnamese"}},
	{"asian", []string{"asian"}},
	{"american", []string{"american"}},
}

// ingredientAlternatives drives the alternative-ingredient tier
var ingredientAlternatives = map[string][]string{
	"chicken":     {"turkey", "duck", "cornish hen"},
	"turkey":      {"chicken", "duck", "pork"},
	"duck":        {"chicken", "turkey", "cornish hen"},
	"cornish hen": {"chicken", "turkey", "duck"},
	"beef":        {"lamb", "bison", "venison"},
	"pork":        {"chicken", "turkey", "lamb"},
	"lamb":        {"beef", "goat", "pork"},
	"salmon":      {"trout", "arctic char", "cod"},
	"cod":         {"halibut", "haddock", "salmon"},
	"fish":        {"shrimp", "scallops", "salmon"},
	"shrimp":      {"scallops", "crab", "lobster"},
	"tofu":        {"tempeh", "seitan", "chickpeas"},
	"tempeh":      {"tofu", "seitan", "lentils"},
	"pasta":       {"gnocchi", "noodles", "risotto"},
	"rice":        {"quinoa", "couscous", "farro"},
	"eggs":        {"tofu", "chickpeas", "cheese"},
	"beans":       {"lentils", "chickpeas", "tofu"},
	"lentils":     {"beans", "chickpeas", "split peas"},
	"chickpeas":   {"lentils", "beans", "tofu"},
	"mushrooms":   {"eggplant", "zucchini", "cauliflower"},
	"potatoes":    {"sweet potato", "cauliflower", "squash"},
	"cauliflower": {"broccoli", "potatoes", "mushrooms"},
}

// ingredientFamilies groups ingredients for the broad search phase
var ingredientFamilies = map[string]string{
	"chicken":     "poultry",
	"turkey":      "poultry",
	"duck":        "poultry",
	"cornish hen": "poultry",
	"beef":        "red meat",
	"pork":        "red meat",
	"lamb":        "red meat",
	"salmon":      "seafood",
	"cod":         "seafood",
	"fish":        "seafood",
	"shrimp":      "seafood",
	"tofu":        "vegetarian",
	"tempeh":      "vegetarian",
	"beans":       "vegetarian",
	"lentils":     "vegetarian",
	"chickpeas":   "vegetarian",
	"mushrooms":   "vegetarian",
	"cauliflower": "vegetarian",
	"potatoes":    "vegetarian",
	"eggs":        "vegetarian",
	"pasta":       "pasta",
	"rice":        "rice",
}

// cuisineRotation is the order the cuisine tier walks through
var cuisineRotation = []string{
	"italian", "asian", "mexican", "mediterranean", "indian",
	"french", "thai", "middle eastern", "japanese", "greek",
}

// discoveryCategories are deliberately unrelated directions for discovery mode
var discoveryCategories = []string{
	"soup", "salad", "curry", "stir fry", "casserole",
	"tacos", "noodle bowl", "sheet pan", "dessert", "breakfast",
}

type seasonModifiers struct {
	name  string
	terms []string
}

var (
	winter = seasonModifiers{"winter", []string{"hearty", "stew", "roasted", "braised"}}
	spring = seasonModifiers{"spring", []string{"spring", "fresh", "asparagus", "peas"}}
	summer = seasonModifiers{"summer", []string{"summer", "grilled", "salad", "fresh"}}
	autumn = seasonModifiers{"autumn", []string{"autumn", "fall", "pumpkin", "squash", "harvest"}}
)

func seasonFor(t time.Time) seasonModifiers {
	switch t.Month() {
	case time.December, time.January, time.February:
		return winter
	case time.March, time.April, time.May:
		return spring
	case time.June, time.July, time.August:
		return summer
	default:
		return autumn
	}
}

// intentFallbacks are the fallback phase terms per intent
var intentFallbacks = map[discovery.Intent][]string{
	discovery.IntentRecipeSearch:  {"easy", "dinner", "weeknight"},
	discovery.IntentMealPlanning:  {"meal prep", "make ahead", "leftovers", "batch"},
	discovery.IntentSubstitution:  {"swap", "alternative", "pantry"},
	discovery.IntentCompleteMeal:  {"side", "main", "salad", "dinner"},
	discovery.IntentOccasionBased: {"party", "crowd", "festive", "holiday"},
	discovery.IntentDietary:       {"healthy", "vegetarian", "light"},
	discovery.IntentGuidance:      {"easy", "beginner", "simple", "classic"},
}

var ultraBroadTerms = []string{"dinner", "easy", "popular", "family"}
