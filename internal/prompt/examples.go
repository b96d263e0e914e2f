package prompt

// Example is a sample homework question for a tier
type Example struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Subject     string `json:"subject"`
	Level       string `json:"level"`
	AgeRange    string `json:"ageRange"`
	Description string `json:"description"`
	Question    string `json:"question"`
}

var examples = []Example{
	{
		ID:          "1",
		Title:       "Cookie Division",
		Subject:     "Math",
		Level:       Elementary.String(),
		AgeRange:    Elementary.AgeRange(),
		Description: "Learning division through sharing cookies with friends",
		Question:    "I have 12 cookies and want to share them equally with my 3 friends. How many cookies will each person get?",
	},
	{
		ID:          "2",
		Title:       "Plant Growth",
		Subject:     "Science",
		Level:       Elementary.String(),
		AgeRange:    Elementary.AgeRange(),
		Description: "Understanding what plants need to grow",
		Question:    "My plant is getting yellow leaves and not growing well. What might it need?",
	},
	{
		ID:          "3",
		Title:       "Story Characters",
		Subject:     "Reading",
		Level:       Elementary.String(),
		AgeRange:    Elementary.AgeRange(),
		Description: "Understanding character feelings and motivations",
		Question:    "In the story, why do you think the little rabbit was scared to go into the dark forest?",
	},
	{
		ID:          "4",
		Title:       "Algebra Word Problem",
		Subject:     "Math",
		Level:       Middle.String(),
		AgeRange:    Middle.AgeRange(),
		Description: "Setting up equations from word problems",
		Question:    "Sarah has twice as many stickers as Tom. Together they have 36 stickers. How many stickers does each person have?",
	},
	{
		ID:          "5",
		Title:       "Ecosystem Food Chain",
		Subject:     "Science",
		Level:       Middle.String(),
		AgeRange:    Middle.AgeRange(),
		Description: "Understanding predator-prey relationships",
		Question:    "If the rabbit population in a forest suddenly decreased, what might happen to the plant life and wolf population?",
	},
	{
		ID:          "6",
		Title:       "Historical Cause & Effect",
		Subject:     "History",
		Level:       Middle.String(),
		AgeRange:    Middle.AgeRange(),
		Description: "Analyzing historical events and their consequences",
		Question:    "What were the main causes of the American Revolution, and how did it change daily life for colonists?",
	},
	{
		ID:          "7",
		Title:       "Calculus Applications",
		Subject:     "Math",
		Level:       HighSchool.String(),
		AgeRange:    HighSchool.AgeRange(),
		Description: "Real-world applications of derivatives",
		Question:    "A company's profit function is P(x) = -2x² + 100x - 800. At what production level is profit maximized?",
	},
	{
		ID:          "8",
		Title:       "Chemical Equilibrium",
		Subject:     "Chemistry",
		Level:       HighSchool.String(),
		AgeRange:    HighSchool.AgeRange(),
		Description: "Understanding Le Chatelier's principle",
		Question:    "In the reaction N₂ + 3H₂ ⇌ 2NH₃ + heat, what happens to the equilibrium if we increase the temperature?",
	},
	{
		ID:          "9",
		Title:       "Literary Analysis",
		Subject:     "Literature",
		Level:       HighSchool.String(),
		AgeRange:    HighSchool.AgeRange(),
		Description: "Analyzing themes and symbolism in literature",
		Question:    "How does the author use the green light symbolism in The Great Gatsby to represent the American Dream?",
	},
}

// Examples returns a copy of the full catalog
func Examples() []Example {
	out := make([]Example, len(examples))
	copy(out, examples)
	return out
}

// ExamplesFor returns the catalog entries for one tier
func ExamplesFor(t Tier) []Example {
	var out []Example
	for _, e := range examples {
		if e.Level == t.String() {
			out = append(out, e)
		}
	}
	return out
}
