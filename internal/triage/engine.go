// Package triage assigns a category, severity, department and resolution
// estimate to an incoming civic-issue report using weighted keyword scoring.
package triage

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/opencivic/civictriage/internal/models"
	"github.com/opencivic/civictriage/pkg/utils"
)

// defaultKeywords maps each category to its scoring keywords. Keywords
// longer than four characters score double.
var defaultKeywords = map[models.Category][]string{
	models.CategoryPothole:       {"pothole", "road", "crack", "asphalt", "pavement", "hole", "bump", "uneven"},
	models.CategoryStreetlight:   {"light", "lamp", "bulb", "dark", "illumination", "pole", "electricity", "broken light"},
	models.CategoryGarbage:       {"trash", "garbage", "waste", "bin", "dump", "litter", "smell", "overflow", "dirty"},
	models.CategoryWaterLeak:     {"water", "leak", "pipe", "burst", "flooding", "wet", "drip", "plumbing"},
	models.CategoryDrainage:      {"drain", "sewer", "flood", "water", "clog", "overflow", "storm", "gutter"},
	models.CategorySidewalk:      {"sidewalk", "pavement", "walkway", "pedestrian", "crack", "broken", "uneven"},
	models.CategoryTrafficSignal: {"signal", "traffic", "light", "red", "green", "yellow", "intersection", "crossing"},
	models.CategorySigns:         {"sign", "board", "missing", "damaged", "faded", "fallen", "visibility"},
	models.CategoryParkEquipment: {"park", "playground", "bench", "swing", "slide", "equipment", "broken"},
	models.CategoryFallenTree:    {"tree", "fallen", "branch", "storm", "blocking", "road", "path"},
	models.CategoryEncroachment:  {"encroachment", "illegal", "construction", "blocking", "unauthorized", "violation"},
}

// Severity indicator word lists, scanned in critical, high, low order.
// The low ceiling runs last and caps unconditionally, so a text matching
// both a critical and a low word ends up at severity 2 or below.
var (
	criticalWords = []string{"emergency", "dangerous", "urgent", "blocking", "major", "severe", "critical"}
	highWords     = []string{"important", "significant", "affecting", "multiple", "busy", "main"}
	lowWords      = []string{"cosmetic", "aesthetic", "slight", "barely", "minimal"}
	urgentWords   = []string{"urgent", "emergency", "dangerous", "blocking"}
)

// severityAdjustments shifts severity for categories that are inherently
// more or less urgent
var severityAdjustments = map[models.Category]int{
	models.CategoryWaterLeak:     1,
	models.CategoryTrafficSignal: 1,
	models.CategoryFallenTree:    1,
	models.CategoryGarbage:       -1,
}

// departments routes each category to the agency that resolves it
var departments = map[models.Category]string{
	models.CategoryPothole:       "Roads & Infrastructure",
	models.CategoryStreetlight:   "Electrical Department",
	models.CategoryGarbage:       "Sanitation Department",
	models.CategoryWaterLeak:     "Water Works Department",
	models.CategoryDrainage:      "Water Works Department",
	models.CategorySidewalk:      "Roads & Infrastructure",
	models.CategoryTrafficSignal: "Traffic Management",
	models.CategorySigns:         "Traffic Management",
	models.CategoryParkEquipment: "Parks & Recreation",
	models.CategoryFallenTree:    "Parks & Recreation",
	models.CategoryEncroachment:  "Enforcement Department",
	models.CategoryOthers:        "General Administration",
}

// baseETADays is the base resolution estimate per category, before the
// severity multiplier
var baseETADays = map[models.Category]float64{
	models.CategoryPothole:       3,
	models.CategoryStreetlight:   1,
	models.CategoryGarbage:       0.5,
	models.CategoryWaterLeak:     1,
	models.CategoryDrainage:      2,
	models.CategorySidewalk:      5,
	models.CategoryTrafficSignal: 0.5,
	models.CategorySigns:         2,
	models.CategoryParkEquipment: 3,
	models.CategoryFallenTree:    1,
	models.CategoryEncroachment:  7,
	models.CategoryOthers:        3,
}

// categoryPriority feeds the monsoon priority score
var categoryPriority = map[models.Category]int{
	models.CategoryWaterLeak:     30,
	models.CategoryTrafficSignal: 25,
	models.CategoryFallenTree:    20,
	models.CategoryDrainage:      15,
	models.CategoryPothole:       10,
	models.CategoryStreetlight:   10,
	models.CategoryGarbage:       5,
	models.CategorySidewalk:      5,
	models.CategorySigns:         5,
	models.CategoryParkEquipment: 5,
	models.CategoryEncroachment:  0,
	models.CategoryOthers:        0,
}

// Central-area bounding box used by the placeholder location priority rule
const (
	centralLatMin = 28.61
	centralLatMax = 28.62
	centralLngMin = 77.20
	centralLngMax = 77.23
)

type keywordPattern struct {
	re     *regexp.Regexp
	weight int
}

// Engine scores reports against the keyword tables. All tables are fixed
// at construction; Triage is a pure function of its input, safe for
// concurrent use.
type Engine struct {
	patterns map[models.Category][]keywordPattern
}

// New creates a triage engine with the built-in keyword table
func New() *Engine {
	return NewWithKeywords(defaultKeywords)
}

// NewWithKeywords creates a triage engine with a custom keyword table,
// e.g. one loaded from a rules file. Patterns are compiled once here
// rather than per call.
func NewWithKeywords(keywords map[models.Category][]string) *Engine {
	patterns := make(map[models.Category][]keywordPattern, len(keywords))
	for category, words := range keywords {
		compiled := make([]keywordPattern, 0, len(words))
		for _, word := range words {
			word = strings.ToLower(word)
			weight := 1
			if len(word) > 4 {
				weight = 2
			}
			compiled = append(compiled, keywordPattern{
				re:     regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`),
				weight: weight,
			})
		}
		patterns[category] = compiled
	}
	return &Engine{patterns: patterns}
}

// DepartmentFor returns the agency that resolves issues of the given
// category. The mapping is total over the category enumeration.
func DepartmentFor(category models.Category) string {
	return departments[category]
}

// Triage classifies a report. It never fails for validated input; a report
// with neither text nor hints legitimately comes back as a low-confidence
// Pothole rather than an error.
func (e *Engine) Triage(report models.Report) models.TriageResult {
	text := strings.ToLower(report.Title + " " + report.Description)

	scores := e.scoreCategories(text)
	category, confidence := bestCategory(scores, report.CategoryHint)

	severity := analyzeSeverity(text, category, report.SeverityHint)
	eta := estimateETA(category, severity)
	priority := priorityScore(category, severity, report.Geo)

	return models.TriageResult{
		Category:      category,
		Severity:      severity,
		Department:    departments[category],
		ETA:           eta,
		Confidence:    confidence,
		PriorityScore: priority,
		Reasoning:     reasoning(confidence, severity, text),
	}
}

// scoreCategories sums whole-word match counts times keyword weight for
// every category
func (e *Engine) scoreCategories(text string) map[models.Category]int {
	scores := make(map[models.Category]int, len(e.patterns))
	for category, patterns := range e.patterns {
		score := 0
		for _, p := range patterns {
			if matches := p.re.FindAllStringIndex(text, -1); matches != nil {
				score += len(matches) * p.weight
			}
		}
		scores[category] = score
	}
	return scores
}

// bestCategory picks the winner and reconciles it with the reporter's hint.
// Ties break to the first category in table order, so the result depends
// only on the fixed table, never on map iteration.
func bestCategory(scores map[models.Category]int, hint *models.Category) (models.Category, float64) {
	best := models.Categories[0]
	maxScore := 0
	for _, category := range models.Categories {
		if scores[category] > maxScore {
			maxScore = scores[category]
			best = category
		}
	}

	// Reporter hint agrees: boost confidence
	if hint != nil && *hint == best {
		return best, math.Min(0.95, 0.7+float64(maxScore)*0.05)
	}

	// Reporter hint disagrees strongly: defer to the reporter
	if hint != nil && float64(scores[*hint]) < float64(maxScore)*0.5 {
		return *hint, 0.6
	}

	if maxScore > 0 {
		return best, math.Min(0.9, 0.5+float64(maxScore)*0.1)
	}
	return best, 0.3
}

// analyzeSeverity derives severity from the hint, the indicator word lists
// and the category adjustment. The three indicator checks run in order:
// critical floor, high floor, low ceiling.
func analyzeSeverity(text string, category models.Category, hint *models.Severity) models.Severity {
	severity := 3
	if hint != nil {
		severity = int(*hint)
	}

	if utils.ContainsAny(text, criticalWords) && severity < 4 {
		severity = 4
	}
	if utils.ContainsAny(text, highWords) && severity < 3 {
		severity = 3
	}
	if utils.ContainsAny(text, lowWords) && severity > 2 {
		severity = 2
	}

	severity += severityAdjustments[category]

	return models.Severity(severity).Clamp()
}

// estimateETA turns the per-category base estimate into a human string,
// halved for high severity and stretched for low severity
func estimateETA(category models.Category, severity models.Severity) string {
	days := baseETADays[category]

	if severity >= 4 {
		days *= 0.5
	} else if severity <= 2 {
		days *= 1.5
	}

	if days < 1 {
		return fmt.Sprintf("%d hours", int(math.Round(days*24)))
	}
	return fmt.Sprintf("%d days", int(math.Round(days)))
}

// priorityScore combines severity, category priority and a flat bonus for
// the central-area bounding box. The box is a placeholder for demographic
// weighting. Capped at 100.
func priorityScore(category models.Category, severity models.Severity, geo *models.GeoLocation) int {
	score := int(severity)*20 + categoryPriority[category]

	if geo != nil && geo.Lat > centralLatMin && geo.Lat < centralLatMax &&
		geo.Lng > centralLngMin && geo.Lng < centralLngMax {
		score += 15
	}

	if score > 100 {
		score = 100
	}
	return score
}

// reasoning assembles the fixed explanation fragments
func reasoning(confidence float64, severity models.Severity, text string) string {
	var reasons []string

	if confidence > 0.8 {
		reasons = append(reasons, "High confidence categorization based on keyword analysis")
	} else if confidence < 0.5 {
		reasons = append(reasons, "Low confidence - manual review recommended")
	}

	if severity >= 4 {
		reasons = append(reasons, "High severity detected from description")
	}

	if utils.ContainsAny(text, urgentWords) {
		reasons = append(reasons, "Urgent language detected")
	}

	if len(reasons) == 0 {
		return "Standard categorization applied"
	}
	return strings.Join(reasons, ". ")
}
