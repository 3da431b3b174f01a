// Package dedupe decides whether a new report describes the same
// real-world issue as a ticket already on file.
package dedupe

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/opencivic/civictriage/internal/geo"
	"github.com/opencivic/civictriage/internal/models"
	"github.com/opencivic/civictriage/internal/phash"
	"github.com/opencivic/civictriage/pkg/utils"
)

// Candidate filter constants
const (
	candidateRadiusKm  = 0.5
	candidateWindow    = 7 * 24 * time.Hour
	mergeThreshold     = 0.75
	linkThreshold      = 0.5
	geoFullScoreKm     = 0.1 // geo similarity fades to zero at 100m
	closeMatchKm       = 0.05
	recentMatchWindow  = 24 * time.Hour
	confidenceCeiling  = 0.95
	distinctConfidence = 0.8
)

// Similarity dimension weights. The denominator is always the full 100
// even when the geo or media dimension cannot be evaluated, so missing
// data dilutes the similarity rather than renormalizing it. Documented
// behavior; keep it.
const (
	textWeight     = 40
	geoWeight      = 30
	categoryWeight = 20
	mediaWeight    = 10
	totalWeight    = textWeight + geoWeight + categoryWeight + mediaWeight
)

// Engine scores a report against the open-ticket snapshot. Stateless and
// safe for concurrent use; each call sees only its own snapshot.
type Engine struct{}

// New creates a dedupe engine
func New() *Engine {
	return &Engine{}
}

type match struct {
	ticket     models.Ticket
	similarity float64
	confidence float64
	reason     string
}

// CheckDuplicate compares a report against existing tickets and classifies
// the best match as duplicate, related, or distinct. The existing slice is
// treated as an immutable snapshot.
func (e *Engine) CheckDuplicate(report models.Report, existing []models.Ticket) models.DedupeResult {
	candidates := findCandidates(report, existing)

	if len(candidates) == 0 {
		return models.DedupeResult{
			IsDuplicate: false,
			Similarity:  0,
			Confidence:  0.9,
		}
	}

	best := findBestMatch(report, candidates)

	if best.similarity > mergeThreshold {
		return models.DedupeResult{
			IsDuplicate:     true,
			MasterCaseID:    best.ticket.ID,
			Similarity:      best.similarity,
			Confidence:      best.confidence,
			Reason:          best.reason,
			SuggestedAction: models.ActionMerge,
		}
	}

	if best.similarity > linkThreshold {
		return models.DedupeResult{
			IsDuplicate:     false,
			Similarity:      best.similarity,
			Confidence:      best.confidence,
			RelatedCases:    []string{best.ticket.ID},
			Reason:          "Similar but distinct issue",
			SuggestedAction: models.ActionLink,
		}
	}

	return models.DedupeResult{
		IsDuplicate: false,
		Similarity:  best.similarity,
		Confidence:  distinctConfidence,
	}
}

// findCandidates applies the coarse filter: same category, unresolved,
// within 500m when both sides carry coordinates, created in the last week
func findCandidates(report models.Report, existing []models.Ticket) []models.Ticket {
	var candidates []models.Ticket
	for _, ticket := range existing {
		if report.CategoryHint == nil || ticket.Category != *report.CategoryHint {
			continue
		}
		if ticket.Status == models.StatusResolved {
			continue
		}
		if report.Geo != nil && ticket.Geo != nil &&
			geo.DistanceKm(*ticket.Geo, *report.Geo) > candidateRadiusKm {
			continue
		}
		if time.Since(ticket.CreatedAt) > candidateWindow {
			continue
		}
		candidates = append(candidates, ticket)
	}
	return candidates
}

func findBestMatch(report models.Report, candidates []models.Ticket) match {
	best := match{ticket: candidates[0]}

	for _, candidate := range candidates {
		similarity := calculateSimilarity(report, candidate)
		if similarity > best.similarity {
			best = match{
				ticket:     candidate,
				similarity: similarity,
				confidence: calculateConfidence(report, candidate, similarity),
				reason:     generateReason(report, candidate, similarity),
			}
		}
	}

	return best
}

// calculateSimilarity computes the weighted multi-factor score
func calculateSimilarity(report models.Report, candidate models.Ticket) float64 {
	total := 0.0

	// Text similarity
	textSim := utils.JaccardSimilarity(reportText(report), ticketText(candidate))
	total += textSim * textWeight

	// Geographic similarity fades linearly to zero at 100m
	if report.Geo != nil && candidate.Geo != nil {
		distance := geo.DistanceKm(*report.Geo, *candidate.Geo)
		geoSim := math.Max(0, 1-distance/geoFullScoreKm)
		total += geoSim * geoWeight
	}

	// Category similarity: candidates are pre-filtered to the same
	// category, so this dimension always scores full
	total += categoryWeight

	// Media similarity
	if len(report.Media) > 0 && len(candidate.Media) > 0 {
		total += mediaSimilarity(report.Media, candidate.Media) * mediaWeight
	}

	return total / totalWeight
}

// mediaSimilarity is the best pairwise fingerprint match across the two
// image sets. Non-image media are skipped.
func mediaSimilarity(media1, media2 []models.Media) float64 {
	maxSim := 0.0
	for _, m1 := range media1 {
		if m1.Type != models.MediaImage {
			continue
		}
		for _, m2 := range media2 {
			if m2.Type != models.MediaImage {
				continue
			}
			h1 := m1.PHash
			if h1 == "" {
				h1 = phash.Generate(m1.URI)
			}
			h2 := m2.PHash
			if h2 == "" {
				h2 = phash.Generate(m2.URI)
			}
			if sim := phash.Compare(h1, h2); sim > maxSim {
				maxSim = sim
			}
		}
	}
	return maxSim
}

// calculateConfidence starts from the similarity and boosts for very close
// geographic matches and very recent candidates
func calculateConfidence(report models.Report, candidate models.Ticket, similarity float64) float64 {
	confidence := similarity

	if report.Geo != nil && candidate.Geo != nil {
		if geo.DistanceKm(*report.Geo, *candidate.Geo) < closeMatchKm {
			confidence += 0.1
		}
	}

	if time.Since(candidate.CreatedAt) < recentMatchWindow {
		confidence += 0.05
	}

	return math.Min(confidenceCeiling, confidence)
}

// generateReason assembles the explanation fragments
func generateReason(report models.Report, candidate models.Ticket, similarity float64) string {
	var reasons []string

	if report.Geo != nil && candidate.Geo != nil {
		distance := geo.DistanceKm(*report.Geo, *candidate.Geo)
		if distance < geoFullScoreKm {
			reasons = append(reasons, fmt.Sprintf("Located within %dm of existing report",
				int(math.Round(distance*1000))))
		}
	}

	textSim := utils.JaccardSimilarity(reportText(report), ticketText(candidate))
	if textSim > 0.6 {
		reasons = append(reasons, fmt.Sprintf("High text similarity (%d%%)",
			int(math.Round(textSim*100))))
	}

	if similarity > 0.8 {
		reasons = append(reasons, "Very similar issue characteristics")
	}

	if len(reasons) == 0 {
		return fmt.Sprintf("%d%% similarity detected", int(math.Round(similarity*100)))
	}
	return strings.Join(reasons, ". ")
}

func reportText(r models.Report) string {
	return r.Title + " " + r.Description
}

func ticketText(t models.Ticket) string {
	return t.Title + " " + t.Description
}
