package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opencivic/civictriage/internal/dedupe"
	"github.com/opencivic/civictriage/internal/logger"
	"github.com/opencivic/civictriage/internal/metrics"
	"github.com/opencivic/civictriage/internal/middleware"
	"github.com/opencivic/civictriage/internal/models"
	"github.com/opencivic/civictriage/internal/store"
	"github.com/opencivic/civictriage/internal/triage"
)

// Handler handles HTTP requests for the API
type Handler struct {
	store     store.Store
	triage    *triage.Engine
	dedupe    *dedupe.Engine
	version   string
	buildTime string
	gitCommit string
	startTime time.Time
}

// NewHandler creates a new API handler
func NewHandler(store store.Store, triageEngine *triage.Engine, dedupeEngine *dedupe.Engine, version, buildTime, gitCommit string) *Handler {
	return &Handler{
		store:     store,
		triage:    triageEngine,
		dedupe:    dedupeEngine,
		version:   version,
		buildTime: buildTime,
		gitCommit: gitCommit,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {
		// Health check endpoints
		r.Get("/health", h.healthHandler)
		r.Get("/health/ready", h.readinessHandler)
		r.Get("/health/live", h.livenessHandler)

		// Scoring endpoints: evaluate a report without persisting it
		r.Post("/triage", h.triageHandler)
		r.Post("/dedupe", h.dedupeHandler)

		// Ticket endpoints
		r.Post("/tickets", h.createTicketHandler)
		r.Get("/tickets", h.getTicketsHandler)
		r.Get("/tickets/{id}", h.getTicketHandler)

		// System info
		r.Get("/version", h.versionHandler)
	})

	// Root health check
	r.Get("/health", h.healthHandler)
}

// healthHandler provides basic health check
func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// readinessHandler checks if the application is ready to serve traffic
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{
		"store": "ok",
	}

	statusCode := http.StatusOK

	// Check store health
	if err := h.store.Health(ctx); err != nil {
		checks["store"] = "error: " + err.Error()
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	}

	h.writeJSONResponse(w, statusCode, response)
}

// livenessHandler checks if the application is alive
func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// versionHandler returns version information
func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"version":    h.version,
		"build_time": h.buildTime,
		"git_commit": h.gitCommit,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// triageHandler handles POST /triage
func (h *Handler) triageHandler(w http.ResponseWriter, r *http.Request) {
	report, ok := h.decodeReport(w, r)
	if !ok {
		return
	}

	result := h.triage.Triage(report)
	metrics.RecordTriage(string(result.Category), "scored")

	h.writeJSONResponse(w, http.StatusOK, result)
}

// dedupeHandler handles POST /dedupe, checking a report against open tickets
func (h *Handler) dedupeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, ok := h.decodeReport(w, r)
	if !ok {
		return
	}

	existing, err := h.store.OpenTickets(ctx)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to load open tickets", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	result := h.dedupe.CheckDuplicate(report, existing)
	metrics.RecordDedupe(dedupeVerdict(result))

	h.writeJSONResponse(w, http.StatusOK, result)
}

// createTicketResponse is the submission result envelope
type createTicketResponse struct {
	Ticket models.Ticket       `json:"ticket"`
	Triage models.TriageResult `json:"triage"`
	Dedupe models.DedupeResult `json:"dedupe"`
}

// createTicketHandler handles POST /tickets: validate, triage, dedupe, persist
func (h *Handler) createTicketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reporterID := r.Header.Get(middleware.ReporterHeader)
	if reporterID == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "reporter ID header is required")
		return
	}

	report, ok := h.decodeReport(w, r)
	if !ok {
		return
	}

	triageResult := h.triage.Triage(report)
	metrics.RecordTriage(string(triageResult.Category), "scored")

	// Dedupe against the triaged category, not just the submitted hint
	category := triageResult.Category
	report.CategoryHint = &category

	existing, err := h.store.OpenTickets(ctx)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to load open tickets", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	dedupeResult := h.dedupe.CheckDuplicate(report, existing)
	metrics.RecordDedupe(dedupeVerdict(dedupeResult))

	now := time.Now().UTC()
	createdAt := report.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	ticket := models.Ticket{
		ID:          uuid.New().String(),
		ReporterID:  reporterID,
		Title:       report.Title,
		Description: report.Description,
		Category:    triageResult.Category,
		Severity:    triageResult.Severity,
		Status:      models.StatusSubmitted,
		Department:  triageResult.Department,
		ETA:         triageResult.ETA,
		Geo:         report.Geo,
		Media:       report.Media,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}

	if dedupeResult.IsDuplicate {
		ticket.DuplicateOf = dedupeResult.MasterCaseID
	}

	if err := h.store.UpsertTickets(ctx, []models.Ticket{ticket}); err != nil {
		logger.WithContext(ctx).Error("Failed to store ticket", "error", err, "ticket_id", ticket.ID)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.WithContext(ctx).Info("Ticket created",
		"ticket_id", ticket.ID,
		"category", ticket.Category,
		"severity", int(ticket.Severity),
		"duplicate_of", ticket.DuplicateOf,
	)

	h.writeJSONResponse(w, http.StatusCreated, createTicketResponse{
		Ticket: ticket,
		Triage: triageResult,
		Dedupe: dedupeResult,
	})
}

// getTicketsHandler handles GET /tickets
func (h *Handler) getTicketsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := h.parseTicketQuery(r)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tickets, err := h.store.QueryTickets(ctx, q)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to query tickets", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := map[string]interface{}{
		"data":      tickets,
		"count":     len(tickets),
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	h.writeJSONResponse(w, http.StatusOK, response)
}

// getTicketHandler handles GET /tickets/{id}
func (h *Handler) getTicketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticketID := chi.URLParam(r, "id")

	if ticketID == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "ticket ID is required")
		return
	}

	ticket, err := h.store.GetTicket(ctx, ticketID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to get ticket", "error", err, "ticket_id", ticketID)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	if ticket == nil {
		h.writeErrorResponse(w, r, http.StatusNotFound, "Ticket not found")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	h.writeJSONResponse(w, http.StatusOK, ticket)
}

// decodeReport decodes and validates a report body, writing the error itself
func (h *Handler) decodeReport(w http.ResponseWriter, r *http.Request) (models.Report, bool) {
	var report models.Report

	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid request body")
		return report, false
	}

	if err := report.Validate(); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return report, false
	}

	return report, true
}

// parseTicketQuery parses query parameters into TicketQuery
func (h *Handler) parseTicketQuery(r *http.Request) (models.TicketQuery, error) {
	q := models.TicketQuery{}

	// Parse limit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return q, fmt.Errorf("invalid limit: %s", limitStr)
		}
		if limit < 0 || limit > 1000 {
			return q, fmt.Errorf("limit must be between 0 and 1000")
		}
		q.Limit = limit
	}

	// Parse offset
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return q, fmt.Errorf("invalid offset: %s", offsetStr)
		}
		if offset < 0 {
			return q, fmt.Errorf("offset must be non-negative")
		}
		q.Offset = offset
	}

	// Parse time filters
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return q, fmt.Errorf("invalid since format: %s", sinceStr)
		}
		q.Since = since
	}

	if untilStr := r.URL.Query().Get("until"); untilStr != "" {
		until, err := time.Parse(time.RFC3339, untilStr)
		if err != nil {
			return q, fmt.Errorf("invalid until format: %s", untilStr)
		}
		q.Until = until
	}

	// Parse array filters
	for _, c := range r.URL.Query()["category"] {
		q.Categories = append(q.Categories, models.Category(c))
	}
	for _, s := range r.URL.Query()["status"] {
		q.Statuses = append(q.Statuses, models.TicketStatus(s))
	}
	q.ReporterID = r.URL.Query().Get("reporter_id")

	return q, nil
}

// dedupeVerdict names the outcome for metrics
func dedupeVerdict(result models.DedupeResult) string {
	switch result.SuggestedAction {
	case models.ActionMerge:
		return "merge"
	case models.ActionLink:
		return "link"
	default:
		return "distinct"
	}
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: r.Header.Get("X-Request-ID"),
	}

	h.writeJSONResponse(w, statusCode, response)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
