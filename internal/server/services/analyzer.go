package services

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/fitiq/fitiq/internal/server/models"
)

// ErrNoFoodRecognized is returned by an Analyzer that found nothing it knows
// in the description.
var ErrNoFoodRecognized = errors.New("no food recognized")

// Analyzer turns a free-text meal description into food items.
type Analyzer interface {
	Analyze(ctx context.Context, rawInput string) ([]models.MealItem, error)
}

// KeywordAnalyzer matches each comma or "and" separated part of a meal
// description against a calorie table. A leading number is read as the
// portion count.
type KeywordAnalyzer struct {
	// Calories per portion, keyed by lower-case food name.
	Table map[string]float64
}

func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{Table: defaultCalorieTable}
}

var defaultCalorieTable = map[string]float64{
	"egg":      78,
	"toast":    80,
	"bread":    80,
	"banana":   105,
	"apple":    95,
	"oatmeal":  150,
	"yogurt":   100,
	"coffee":   5,
	"milk":     103,
	"rice":     205,
	"chicken":  165,
	"salmon":   208,
	"salad":    35,
	"soup":     120,
	"pasta":    220,
	"pizza":    285,
	"burger":   354,
	"fries":    365,
	"sandwich": 300,
	"cheese":   113,
	"avocado":  240,
	"almonds":  164,
	"orange":   62,
	"potato":   161,
	"steak":    271,
}

var (
	partSep     = regexp.MustCompile(`\s*(?:,|;|\band\b|\bwith\b|\+)\s*`)
	leadingQty  = regexp.MustCompile(`^(\d+(?:\.\d+)?|a|an|one|two|three|half)\s+`)
	wordNumbers = map[string]float64{"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "half": 0.5}
)

func (a *KeywordAnalyzer) Analyze(ctx context.Context, rawInput string) ([]models.MealItem, error) {
	var items []models.MealItem
	for _, part := range partSep.Split(strings.ToLower(strings.TrimSpace(rawInput)), -1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if part == "" {
			continue
		}
		qty, qtyText := 1.0, ""
		if m := leadingQty.FindStringSubmatch(part); m != nil {
			qtyText = m[1]
			if n, ok := wordNumbers[qtyText]; ok {
				qty = n
			} else if n, err := strconv.ParseFloat(qtyText, 64); err == nil {
				qty = n
			}
			part = part[len(m[0]):]
		}
		name, kcal, ok := a.lookup(part)
		if !ok {
			continue
		}
		items = append(items, models.MealItem{
			Name:     name,
			Quantity: qtyText,
			Calories: math.Round(kcal*qty*10) / 10,
		})
	}
	if len(items) == 0 {
		return nil, ErrNoFoodRecognized
	}
	return items, nil
}

// lookup matches any word of part, singularised, against the table.
func (a *KeywordAnalyzer) lookup(part string) (string, float64, bool) {
	for _, w := range strings.Fields(part) {
		for _, candidate := range []string{w, strings.TrimSuffix(w, "s"), strings.TrimSuffix(w, "es")} {
			if kcal, ok := a.Table[candidate]; ok {
				return candidate, kcal, true
			}
		}
	}
	return "", 0, false
}

func totalCalories(items []models.MealItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Calories
	}
	return math.Round(total*10) / 10
}
