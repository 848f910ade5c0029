/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

QUANTITY ENCODING:
  All quantities travel as JSON strings ("12.5"), decoded straight into
  decimal.Decimal. Floats never touch a quantity on the wire.

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - allocation/types.go: The domain types these mirror
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// LicensePlateDTO represents one pool entry in API responses.
type LicensePlateDTO struct {
	ID                string                `json:"id"`
	LPNumber          string                `json:"lp_number"`
	MaterialID        string                `json:"material_id"`
	QuantityOnHand    decimal.Decimal       `json:"quantity_on_hand"`
	QuantityReserved  decimal.Decimal       `json:"quantity_reserved"`
	AvailableQuantity decimal.Decimal       `json:"available_quantity"`
	ReceivedAt        string                `json:"received_at"`
	ExpiryAt          *string               `json:"expiry_at,omitempty"`
	LotNumber         string                `json:"lot_number,omitempty"`
	Location          string                `json:"location,omitempty"`
	UOM               string                `json:"uom"`
	QAStatus          string                `json:"qa_status"`
	Suggested         bool                  `json:"suggested"`
	NearExpiry        bool                  `json:"near_expiry"`
	OtherReservations []OtherReservationDTO `json:"other_reservations,omitempty"`
}

// OtherReservationDTO is quantity held on an LP by another work order.
type OtherReservationDTO struct {
	WorkOrderID string          `json:"work_order_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// ReservationDTO represents a reservation in API responses.
type ReservationDTO struct {
	ID                  string          `json:"id"`
	LPID                string          `json:"lp_id"`
	WorkOrderID         string          `json:"work_order_id"`
	WorkOrderMaterialID string          `json:"wo_material_id"`
	Quantity            decimal.Decimal `json:"quantity"`
	Status              string          `json:"status"`
	CreatedAt           string          `json:"created_at"`
	CreatedBy           string          `json:"created_by"`
	ReleasedAt          *string         `json:"released_at,omitempty"`
}

// CoverageDTO represents the computed coverage of a material line.
type CoverageDTO struct {
	Status    string          `json:"status"`
	Percent   int64           `json:"percent"`
	Progress  int64           `json:"progress"`
	Required  decimal.Decimal `json:"required"`
	Reserved  decimal.Decimal `json:"reserved"`
	Shortfall decimal.Decimal `json:"shortfall"`
	Excess    decimal.Decimal `json:"excess"`
}

// PickDTO is one (LP, quantity) pick in a commit request.
type PickDTO struct {
	LPID     string          `json:"lp_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// CommitRequest is the request to reserve picked quantities.
type CommitRequest struct {
	Picks                []PickDTO `json:"picks"`
	AllowOverReservation bool      `json:"allow_over_reservation,omitempty"`
	IdempotencyKey       string    `json:"idempotency_key,omitempty"`
}

// CommitResponse reports the reservations created and the recomputed
// coverage.
type CommitResponse struct {
	Reservations []ReservationDTO `json:"reservations"`
	Coverage     CoverageDTO      `json:"coverage"`
}

// AutoReserveResponse reports what an automatic allocation achieved.
type AutoReserveResponse struct {
	Reservations []ReservationDTO `json:"reservations"`
	Allocated    decimal.Decimal  `json:"allocated"`
	Shortage     decimal.Decimal  `json:"shortage"`
	Coverage     CoverageDTO      `json:"coverage"`
}

// ReleaseResponse reports a release outcome.
type ReleaseResponse struct {
	Reservation      ReservationDTO  `json:"reservation"`
	ReleasedQuantity decimal.Decimal `json:"released_quantity"`
	AlreadyReleased  bool            `json:"already_released"`
	Coverage         CoverageDTO     `json:"coverage"`
}

// ReleaseWorkOrderResponse reports a work-order-wide release.
type ReleaseWorkOrderResponse struct {
	WorkOrderID string `json:"work_order_id"`
	Released    int    `json:"released"`
}

// LineReservationsResponse lists a material line's active reservations with
// its coverage.
type LineReservationsResponse struct {
	Reservations []ReservationDTO `json:"reservations"`
	Coverage     CoverageDTO      `json:"coverage"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toLicensePlateDTO(lp allocation.AvailableLP) LicensePlateDTO {
	dto := LicensePlateDTO{
		ID:                string(lp.ID),
		LPNumber:          lp.LPNumber,
		MaterialID:        string(lp.MaterialID),
		QuantityOnHand:    lp.QuantityOnHand,
		QuantityReserved:  lp.QuantityReserved,
		AvailableQuantity: lp.AvailableQuantity(),
		ReceivedAt:        lp.ReceivedAt.Format(time.RFC3339),
		LotNumber:         lp.LotNumber,
		Location:          lp.Location,
		UOM:               lp.UOM,
		QAStatus:          string(lp.QAStatus),
		Suggested:         lp.Suggested,
		NearExpiry:        lp.NearExpiry,
	}
	if lp.ExpiryAt != nil {
		dto.ExpiryAt = strPtr(lp.ExpiryAt.Format(time.RFC3339))
	}
	for _, or := range lp.OtherReservations {
		dto.OtherReservations = append(dto.OtherReservations, OtherReservationDTO{
			WorkOrderID: string(or.WorkOrderID),
			Quantity:    or.Quantity,
		})
	}
	return dto
}

func toReservationDTO(r allocation.Reservation) ReservationDTO {
	dto := ReservationDTO{
		ID:                  string(r.ID),
		LPID:                string(r.LPID),
		WorkOrderID:         string(r.WorkOrderID),
		WorkOrderMaterialID: string(r.WorkOrderMaterialID),
		Quantity:            r.Quantity,
		Status:              string(r.Status),
		CreatedAt:           r.CreatedAt.Format(time.RFC3339),
		CreatedBy:           r.CreatedBy,
	}
	if r.ReleasedAt != nil {
		dto.ReleasedAt = strPtr(r.ReleasedAt.Format(time.RFC3339))
	}
	return dto
}

func toReservationDTOs(rs []allocation.Reservation) []ReservationDTO {
	dtos := make([]ReservationDTO, len(rs))
	for i, r := range rs {
		dtos[i] = toReservationDTO(r)
	}
	return dtos
}

func toCoverageDTO(c allocation.CoverageResult) CoverageDTO {
	return CoverageDTO{
		Status:    string(c.Status),
		Percent:   c.Percent,
		Progress:  c.Progress(),
		Required:  c.Required,
		Reserved:  c.Reserved,
		Shortfall: c.Shortfall,
		Excess:    c.Excess,
	}
}

func strPtr(s string) *string {
	return &s
}
