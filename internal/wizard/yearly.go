package wizard

import "slices"

var yearlySteps = []Step{
	{ID: "year_word", Title: "Describe the year in one word", Kind: KindText, Required: true, MaxLength: 40},
	{ID: "mood", Title: "How was the year overall?", Kind: KindEnum, Required: true, Options: []string{"great", "good", "okay", "hard"}},
	{ID: "best_moment", Title: "The best moment of the year", Kind: KindText, MaxLength: 1000},
	{ID: "best_moment_date", Title: "When did it happen?", Kind: KindDate},
	{ID: "achievement", Title: "Your main achievement", Kind: KindText, Required: true, MaxLength: 1000},
	{ID: "challenge", Title: "The hardest challenge you faced", Kind: KindText, MaxLength: 1000},
	{ID: "lesson", Title: "The most important lesson", Kind: KindText, MaxLength: 1000},
	{ID: "books_read", Title: "How many books did you read?", Kind: KindNumber},
	{ID: "gratitude", Title: "Who are you grateful to?", Kind: KindText, MaxLength: 1000},
	{ID: "next_focus", Title: "Main focus for next year", Kind: KindEnum, Required: true, Options: []string{"health", "career", "family", "finance", "growth", "rest"}},
	{ID: "next_goal", Title: "One goal for next year", Kind: KindText, Required: true, MaxLength: 500},
}

// YearlySteps шаги годовой рефлексии.
func YearlySteps() []Step {
	return slices.Clone(yearlySteps)
}
