package handlers

import (
	"net/http"
	"strconv"

	"github.com/andrew/scoutchat/internal/prompt"
)

// TierResponse describes how the tutor adapts to an age
type TierResponse struct {
	Age         int      `json:"age"`
	Level       string   `json:"level"`
	Label       string   `json:"label"`
	AgeRange    string   `json:"ageRange"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

// HandleExamples handles GET /examples?age=N or ?level=elementary|medium|hard
func HandleExamples(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if level := query.Get("level"); level != "" && level != "all" {
		tier, ok := prompt.ParseTier(level)
		if !ok {
			respondError(w, http.StatusBadRequest, "unknown level: "+level)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"examples": prompt.ExamplesFor(tier)})
		return
	}

	if a := query.Get("age"); a != "" {
		age, err := strconv.Atoi(a)
		if err != nil {
			respondError(w, http.StatusBadRequest, "age must be a number")
			return
		}
		tier := prompt.TierFor(prompt.NormalizeAge(age))
		respondJSON(w, http.StatusOK, map[string]interface{}{"examples": prompt.ExamplesFor(tier)})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"examples": prompt.Examples()})
}

// HandleTier handles GET /settings/tier?age=N
func HandleTier(w http.ResponseWriter, r *http.Request) {
	age := 0
	if a := r.URL.Query().Get("age"); a != "" {
		parsed, err := strconv.Atoi(a)
		if err != nil {
			respondError(w, http.StatusBadRequest, "age must be a number")
			return
		}
		age = parsed
	}

	age = prompt.NormalizeAge(age)
	tier := prompt.TierFor(age)
	respondJSON(w, http.StatusOK, TierResponse{
		Age:         age,
		Level:       tier.String(),
		Label:       tier.Label(),
		AgeRange:    tier.AgeRange(),
		Description: tier.Description(),
		Features:    tier.Features(),
	})
}
