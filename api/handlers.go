/*
handlers.go - HTTP API handlers for the reservation allocation engine

PURPOSE:
  Exposes the allocation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Materials:
    GET    /api/materials/{id}/license-plates   Ranked reservable pool
    GET    /api/materials/{id}/coverage         Line coverage
    GET    /api/materials/{id}/reservations     Active reservations + coverage
    POST   /api/materials/{id}/reservations     Commit picked quantities
    POST   /api/materials/{id}/reservations/auto Auto-reserve down the ranking

  Reservations:
    DELETE /api/reservations/{id}               Release (full or ?quantity=)

  Work orders:
    POST   /api/work-orders/{id}/release        Release all active reservations

ARCHITECTURE:
  Handler struct holds the engine; handlers never touch the store directly,
  so every mutation goes through the engine's transactional path.

REQUEST FLOW:
  1. Parse HTTP request
  2. Resolve actor identity (X-Actor-ID header) for mutations
  3. Call domain logic (engine)
  4. Serialize response
  5. Map domain errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with a stable machine-readable code:
  - 400: invalid_quantity, unknown_lp, bad input
  - 401: missing_actor
  - 404: not_found
  - 409: conflict, duplicate_idempotency_key, over_reservation_not_acknowledged
  - 500: internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/allocation-engine/allocation"
)

// actorHeader carries the authenticated identity recorded on every mutation.
const actorHeader = "X-Actor-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *allocation.Engine
}

// NewHandler creates a new handler on the given engine.
func NewHandler(engine *allocation.Engine) *Handler {
	return &Handler{Engine: engine}
}

// =============================================================================
// MATERIAL POOL HANDLERS
// =============================================================================

// ListLicensePlates returns the ranked reservable pool for a material.
// GET /api/materials/{id}/license-plates?work_order=&sort=fifo|fefo
func (h *Handler) ListLicensePlates(w http.ResponseWriter, r *http.Request) {
	materialID := allocation.MaterialID(chi.URLParam(r, "id"))
	workOrderID := allocation.WorkOrderID(r.URL.Query().Get("work_order"))
	policy := allocation.ParsePickPolicy(r.URL.Query().Get("sort"))

	lps, err := h.Engine.ListAvailableLPs(r.Context(), materialID, workOrderID, policy)
	if err != nil {
		writeEngineError(w, "Failed to list license plates", err)
		return
	}

	dtos := make([]LicensePlateDTO, len(lps))
	for i, lp := range lps {
		dtos[i] = toLicensePlateDTO(lp)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCoverage returns the recomputed coverage of a material line.
// GET /api/materials/{id}/coverage
func (h *Handler) GetCoverage(w http.ResponseWriter, r *http.Request) {
	materialID := allocation.WorkOrderMaterialID(chi.URLParam(r, "id"))

	cov, err := h.Engine.LineCoverage(r.Context(), materialID)
	if err != nil {
		writeEngineError(w, "Failed to compute coverage", err)
		return
	}
	writeJSON(w, http.StatusOK, toCoverageDTO(*cov))
}

// ListReservations returns a line's active reservations with coverage.
// GET /api/materials/{id}/reservations
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	materialID := allocation.WorkOrderMaterialID(chi.URLParam(r, "id"))

	reservations, cov, err := h.Engine.LineReservations(r.Context(), materialID)
	if err != nil {
		writeEngineError(w, "Failed to list reservations", err)
		return
	}
	writeJSON(w, http.StatusOK, LineReservationsResponse{
		Reservations: toReservationDTOs(reservations),
		Coverage:     toCoverageDTO(*cov),
	})
}

// =============================================================================
// COMMIT HANDLERS
// =============================================================================

// CommitReservations durably reserves the picked quantities.
// POST /api/materials/{id}/reservations
func (h *Handler) CommitReservations(w http.ResponseWriter, r *http.Request) {
	materialID := allocation.WorkOrderMaterialID(chi.URLParam(r, "id"))

	actorID := r.Header.Get(actorHeader)
	if actorID == "" {
		writeError(w, http.StatusUnauthorized, "missing_actor", "Missing "+actorHeader+" header", nil)
		return
	}

	var req CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body", err)
		return
	}

	picks := make([]allocation.Pick, len(req.Picks))
	for i, p := range req.Picks {
		picks[i] = allocation.Pick{LPID: allocation.LPID(p.LPID), Quantity: p.Quantity}
	}

	result, err := h.Engine.Commit(r.Context(), materialID, picks, allocation.CommitOptions{
		AllowOverReservation: req.AllowOverReservation,
		ActorID:              actorID,
		IdempotencyKey:       req.IdempotencyKey,
	})
	if err != nil {
		writeEngineError(w, "Failed to commit reservations", err)
		return
	}

	writeJSON(w, http.StatusCreated, CommitResponse{
		Reservations: toReservationDTOs(result.Reservations),
		Coverage:     toCoverageDTO(result.Coverage),
	})
}

// AutoReserve fills the line's remaining demand down the ranked pool.
// POST /api/materials/{id}/reservations/auto?sort=fifo|fefo
func (h *Handler) AutoReserve(w http.ResponseWriter, r *http.Request) {
	materialID := allocation.WorkOrderMaterialID(chi.URLParam(r, "id"))
	policy := allocation.ParsePickPolicy(r.URL.Query().Get("sort"))

	actorID := r.Header.Get(actorHeader)
	if actorID == "" {
		writeError(w, http.StatusUnauthorized, "missing_actor", "Missing "+actorHeader+" header", nil)
		return
	}

	result, err := h.Engine.AutoReserve(r.Context(), materialID, policy, actorID)
	if err != nil {
		writeEngineError(w, "Failed to auto-reserve", err)
		return
	}

	writeJSON(w, http.StatusCreated, AutoReserveResponse{
		Reservations: toReservationDTOs(result.Reservations),
		Allocated:    result.Allocated,
		Shortage:     result.Shortage,
		Coverage:     toCoverageDTO(result.Coverage),
	})
}

// =============================================================================
// RELEASE HANDLERS
// =============================================================================

// ReleaseReservation releases a reservation, fully or partially.
// DELETE /api/reservations/{id}?quantity=
func (h *Handler) ReleaseReservation(w http.ResponseWriter, r *http.Request) {
	id := allocation.ReservationID(chi.URLParam(r, "id"))

	actorID := r.Header.Get(actorHeader)
	if actorID == "" {
		writeError(w, http.StatusUnauthorized, "missing_actor", "Missing "+actorHeader+" header", nil)
		return
	}

	var quantity *decimal.Decimal
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		q, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Invalid quantity parameter", err)
			return
		}
		quantity = &q
	}

	result, err := h.Engine.Release(r.Context(), id, quantity, actorID)
	if err != nil {
		writeEngineError(w, "Failed to release reservation", err)
		return
	}

	writeJSON(w, http.StatusOK, ReleaseResponse{
		Reservation:      toReservationDTO(result.Reservation),
		ReleasedQuantity: result.ReleasedQuantity,
		AlreadyReleased:  result.AlreadyReleased,
		Coverage:         toCoverageDTO(result.Coverage),
	})
}

// ReleaseWorkOrder releases every active reservation of a work order.
// POST /api/work-orders/{id}/release
func (h *Handler) ReleaseWorkOrder(w http.ResponseWriter, r *http.Request) {
	workOrderID := allocation.WorkOrderID(chi.URLParam(r, "id"))

	actorID := r.Header.Get(actorHeader)
	if actorID == "" {
		writeError(w, http.StatusUnauthorized, "missing_actor", "Missing "+actorHeader+" header", nil)
		return
	}

	released, err := h.Engine.ReleaseWorkOrder(r.Context(), workOrderID, actorID)
	if err != nil {
		writeEngineError(w, "Failed to release work order reservations", err)
		return
	}

	writeJSON(w, http.StatusOK, ReleaseWorkOrderResponse{
		WorkOrderID: string(workOrderID),
		Released:    released,
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps domain errors to HTTP status codes and stable
// machine-readable codes so callers can branch without string matching.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, allocation.ErrMissingActor):
		writeError(w, http.StatusUnauthorized, "missing_actor", message, err)
	case allocation.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", message, err)
	case errors.Is(err, allocation.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "invalid_quantity", message, err)
	case errors.Is(err, allocation.ErrUnknownLP):
		writeError(w, http.StatusBadRequest, "unknown_lp", message, err)
	case errors.Is(err, allocation.ErrExceedsAvailable):
		writeError(w, http.StatusConflict, "exceeds_available", message, err)
	case errors.Is(err, allocation.ErrOverReservationNotAcknowledged):
		writeError(w, http.StatusConflict, "over_reservation_not_acknowledged", message, err)
	case errors.Is(err, allocation.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, "duplicate_idempotency_key", message, err)
	case allocation.IsRetryable(err):
		writeError(w, http.StatusConflict, "conflict", message, err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", message, err)
	}
}
