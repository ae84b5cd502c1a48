package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// NotAvailable is rendered for any missing or empty food attribute.
const NotAvailable = "N/A"

// Attribute keys understood by the renderers. The bag may hold others.
const (
	AttrName        = "name"
	AttrPrice       = "price"
	AttrIngredients = "ingredients"
	AttrCalories    = "calories"
	AttrProtein     = "protein"
	AttrCarbs       = "carbs"
	AttrFat         = "fat"
	AttrVitamins    = "vitamins"
	AttrAllergens   = "allergens"
	AttrImages      = "images"
)

// FoodItem is one dish. Everything but the id lives in an open attribute bag
// decoded from the store's JSON document.
type FoodItem struct {
	ID         string
	SectionID  string
	Attributes map[string]any
}

// Name returns the item's name or NotAvailable.
func (f FoodItem) Name() string {
	return f.Attr(AttrName)
}

// Attr formats one attribute for display. nil, "", 0, false and empty lists
// all render as NotAvailable; lists are joined with ", ".
func (f FoodItem) Attr(key string) string {
	s := formatValue(f.Attributes[key])
	if s == "" {
		return NotAvailable
	}
	return s
}

// Images returns the non-empty image addresses in stored order.
func (f FoodItem) Images() []string {
	var out []string
	switch v := f.Attributes[AttrImages].(type) {
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
	case string:
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		if t == 0 {
			return ""
		}
		return strconv.Itoa(t)
	case int64:
		if t == 0 {
			return ""
		}
		return strconv.FormatInt(t, 10)
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return ""
		}
		return t.String()
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := formatValue(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return formatValue(toAny(t))
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
