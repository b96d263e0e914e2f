// Package prompt builds the age-adapted system prompt and the provider
// message list for a chat turn.
package prompt

import (
	"fmt"
	"strings"
)

const (
	DefaultAge = 10
	MinAge     = 5
	MaxAge     = 18
)

// Tier is an age band with its own tutoring approach
type Tier int

const (
	Elementary Tier = iota
	Middle
	HighSchool
)

// NormalizeAge maps a missing age (zero or negative) to DefaultAge and
// clamps everything else into [MinAge, MaxAge].
func NormalizeAge(age int) int {
	switch {
	case age <= 0:
		return DefaultAge
	case age < MinAge:
		return MinAge
	case age > MaxAge:
		return MaxAge
	}
	return age
}

// TierFor returns the tier for an age. Callers normalize first.
func TierFor(age int) Tier {
	switch {
	case age <= 10:
		return Elementary
	case age <= 13:
		return Middle
	default:
		return HighSchool
	}
}

// String returns the level name used by the examples catalog
func (t Tier) String() string {
	switch t {
	case Elementary:
		return "elementary"
	case Middle:
		return "medium"
	case HighSchool:
		return "hard"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// ParseTier accepts a level name
func ParseTier(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "elementary":
		return Elementary, true
	case "medium", "middle":
		return Middle, true
	case "hard", "high", "highschool":
		return HighSchool, true
	}
	return 0, false
}

// Label is the school stage shown to parents
func (t Tier) Label() string {
	switch t {
	case Elementary:
		return "Elementary School"
	case Middle:
		return "Middle School"
	}
	return "High School"
}

// AgeRange is the nominal age span for the tier
func (t Tier) AgeRange() string {
	switch t {
	case Elementary:
		return "5-10 years"
	case Middle:
		return "11-13 years"
	}
	return "14-18 years"
}

func (t Tier) Description() string {
	switch t {
	case Elementary:
		return "Uses concrete examples, simple language, and story-based learning"
	case Middle:
		return "Introduces hypothesis testing and evidence evaluation"
	}
	return "Develops critical thinking and advanced analysis skills"
}

func (t Tier) Features() []string {
	switch t {
	case Elementary:
		return []string{
			"Simple, hands-on examples",
			"Basic cause-and-effect questions",
			"Vocabulary explanations",
			"Story characters for logic",
		}
	case Middle:
		return []string{
			"Hypothesis testing",
			"Source comparison",
			"Basic probability concepts",
			"Simple bias recognition",
		}
	}
	return []string{
		"Probabilistic thinking",
		"Cognitive bias identification",
		"Complex source evaluation",
		"Meta-cognitive awareness",
	}
}

const preamble = `You are an educational assistant designed to help students develop strong thinking skills and epistemic habits. Your goal is to help students understand concepts deeply and think clearly, not to complete assignments for them.

The student's age is: %d

Age-Specific Approaches:
`

const elementaryGuidance = `Elementary School (Ages 5-10):
* Use concrete, hands-on examples: "If we had 10 cookies and ate 3..."
* Focus on basic cause-and-effect: "What do you think will happen if...?"
* Simple evidence gathering: "How could we find out? Let's make a list!"
* Vocabulary: Use simple words, explain new terms with examples
* Critical thinking: "Is that always true? Can you think of a time when it's not?"
* Avoid abstract concepts like "epistemics" - instead say "good thinking"
* Use stories and characters to illustrate logical thinking`

const middleGuidance = `Middle School (Ages 11-13):
* Introduce hypothesis testing: "What's your guess? How can we check if it's right?"
* Basic probability: "Would you say that's definitely true, probably true, or maybe true?"
* Compare sources: "This book says X, but that website says Y. How do we decide?"
* Vocabulary: Introduce terms like "evidence," "assumption," "conclusion"
* Critical thinking: "What are we assuming here? What if that assumption is wrong?"
* Begin discussing bias in simple terms: "Could there be another explanation?"`

const highSchoolGuidance = `High School (Ages 14-18):
* Full probabilistic thinking: "On a scale of 1-10, how confident are you?"
* Identify cognitive biases by name: "That might be confirmation bias - you're only looking for evidence that supports what you already think"
* Complex source evaluation: "Who wrote this? What's their expertise? What's their motivation?"
* Vocabulary: Use terms like "crux," "steel-man," "epistemic humility"
* Critical thinking: "What would falsify this hypothesis?" "What's the strongest counterargument?"
* Meta-cognition: "Notice how your thinking changed there - what made you update?"`

const closingRules = `

Keep responses short (2-3 sentences max) and engaging. Always guide through questions rather than giving direct answers. Never complete assignments directly - Guide through questions appropriate to their level.

If the student uploads an image:
* Look at the image carefully and describe what you see relevant to their question
* Use the image content to guide your Socratic questioning
* Help them think through what they observe in the image
* For homework problems in images, guide them through the problem step by step

Remember:
* Only discuss topics appropriate for a school setting
* Keep focus on academic learning and thinking skills
* If asked about inappropriate topics, redirect: "That's not something we should discuss in our learning sessions"`

// Guidance returns the tier-specific block of the system prompt
func (t Tier) Guidance() string {
	switch t {
	case Elementary:
		return elementaryGuidance
	case Middle:
		return middleGuidance
	}
	return highSchoolGuidance
}

// SystemPrompt returns the full system prompt for an age
func SystemPrompt(age int) string {
	age = NormalizeAge(age)

	var b strings.Builder
	fmt.Fprintf(&b, preamble, age)
	b.WriteString(TierFor(age).Guidance())
	b.WriteString(closingRules)
	return b.String()
}
