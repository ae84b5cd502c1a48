package views

import "github.com/ItzSouraseez/knowyourplate/models"

// ItemField is one labelled line of a food item card.
type ItemField struct {
	Label string
	Value string
}

var itemFields = []struct {
	label, key     string
	prefix, suffix string
}{
	{"Price", models.AttrPrice, "$", ""},
	{"Ingredients", models.AttrIngredients, "", ""},
	{"Calories", models.AttrCalories, "", " kcal"},
	{"Protein", models.AttrProtein, "", "g"},
	{"Carbs", models.AttrCarbs, "", "g"},
	{"Fat", models.AttrFat, "", "g"},
	{"Vitamins", models.AttrVitamins, "", ""},
	{"Allergens", models.AttrAllergens, "", ""},
}

// ItemFields returns the card lines in display order. Units are only added
// to present values; missing ones read N/A.
func ItemFields(f models.FoodItem) []ItemField {
	out := make([]ItemField, len(itemFields))
	for i, d := range itemFields {
		v := f.Attr(d.key)
		if v != models.NotAvailable {
			v = d.prefix + v + d.suffix
		}
		out[i] = ItemField{Label: d.label, Value: v}
	}
	return out
}
