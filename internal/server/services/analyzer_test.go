package services

import (
	"context"
	"testing"

	"github.com/fitiq/fitiq/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordAnalyzer(t *testing.T) {
	a := NewKeywordAnalyzer()

	tests := []struct {
		name  string
		input string
		want  []models.MealItem
	}{
		{
			name:  "counts and plurals",
			input: "2 eggs and toast",
			want: []models.MealItem{
				{Name: "egg", Quantity: "2", Calories: 156},
				{Name: "toast", Calories: 80},
			},
		},
		{
			name:  "word quantities",
			input: "Half avocado, an apple",
			want: []models.MealItem{
				{Name: "avocado", Quantity: "half", Calories: 120},
				{Name: "apple", Quantity: "an", Calories: 95},
			},
		},
		{
			name:  "unknown parts are skipped",
			input: "grilled chicken with mystery sauce",
			want:  []models.MealItem{{Name: "chicken", Calories: 165}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Analyze(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordAnalyzer_NothingRecognized(t *testing.T) {
	_, err := NewKeywordAnalyzer().Analyze(context.Background(), "something vague")
	require.ErrorIs(t, err, ErrNoFoodRecognized)
}

func TestTotalCalories(t *testing.T) {
	assert.InDelta(t, 236.0, totalCalories([]models.MealItem{{Calories: 156}, {Calories: 80}}), 1e-9)
	assert.Zero(t, totalCalories(nil))
}
