package extract

import (
	"strings"

	"github.com/dealhound/dealhound/models"
)

// conditionKeywords is checked in order: the most specific phrase wins,
// so "like new" resolves before the bare "new"/"used" it contains.
var conditionKeywords = []struct {
	keyword   string
	canonical string
}{
	{"like new", models.ConditionLikeNew},
	{"open box", models.ConditionOpenBox},
	{"refurbished", models.ConditionRefurbished},
	{"pre-owned", models.ConditionUsed},
	{"brand new", models.ConditionNew},
	{"good condition", models.ConditionGood},
	{"fair condition", models.ConditionFair},
	{"poor condition", models.ConditionPoor},
	{"new", models.ConditionNew},
	{"used", models.ConditionUsed},
}

// InferCondition scans free text for condition vocabulary when a listing
// has no explicit condition element. Returns "Not specified" when no
// keyword matches.
func InferCondition(text string) string {
	lower := strings.ToLower(text)
	for _, c := range conditionKeywords {
		if strings.Contains(lower, c.keyword) {
			return c.canonical
		}
	}
	return models.ConditionNotSpecified
}

// NormalizeCondition canonicalizes an explicit condition label ("Pre-Owned"
// becomes "Used"). Unrecognized non-empty labels pass through trimmed, so
// source-specific wording such as "Seller refurbished" is preserved when
// no canonical keyword applies.
func NormalizeCondition(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return models.ConditionNotSpecified
	}
	if c := InferCondition(trimmed); c != models.ConditionNotSpecified {
		return c
	}
	return trimmed
}
