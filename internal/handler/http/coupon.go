package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mpro775/tagdod-promo-engine/internal/service"
	"github.com/mpro775/tagdod-promo-engine/pkg/validator"
)

// CouponHandler handles HTTP requests for coupon endpoints.
type CouponHandler struct {
	service *service.CouponService
	logger  *slog.Logger
}

// NewCouponHandler creates a new coupon HTTP handler.
func NewCouponHandler(svc *service.CouponService, logger *slog.Logger) *CouponHandler {
	return &CouponHandler{
		service: svc,
		logger:  logger,
	}
}

// ValidateCouponRequest is the JSON request body for validating a coupon.
type ValidateCouponRequest struct {
	Code   string            `json:"code" validate:"required,max=50"`
	UserID string            `json:"user_id" validate:"omitempty,uuid"`
	Lines  []CartLineRequest `json:"lines" validate:"required,min=1,max=200,dive"`
}

// RedeemCouponRequest is the JSON request body for redeeming a coupon.
type RedeemCouponRequest struct {
	Code           string            `json:"code" validate:"required,max=50"`
	UserID         string            `json:"user_id" validate:"required,uuid"`
	OrderID        string            `json:"order_id" validate:"required,uuid"`
	Lines          []CartLineRequest `json:"lines" validate:"required,min=1,max=200,dive"`
	AppliedRuleIDs []string          `json:"applied_rule_ids" validate:"omitempty,dive,uuid"`
	IdempotencyKey string            `json:"idempotency_key" validate:"omitempty,max=100"`
}

// ReleaseCouponRequest is the JSON request body for releasing a redemption.
type ReleaseCouponRequest struct {
	Code           string   `json:"code" validate:"required,max=50"`
	UserID         string   `json:"user_id" validate:"required,uuid"`
	OrderID        string   `json:"order_id" validate:"required,uuid"`
	AppliedRuleIDs []string `json:"applied_rule_ids" validate:"omitempty,dive,uuid"`
}

// Validate handles POST /api/v1/coupons/validate
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req ValidateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	result, err := h.service.Validate(r.Context(), &service.ValidateInput{
		Code:   req.Code,
		UserID: req.UserID,
		Lines:  toCartLines(req.Lines),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: result})
}

// Redeem handles POST /api/v1/coupons/redeem
func (h *CouponHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req RedeemCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	result, err := h.service.Redeem(r.Context(), &service.RedeemInput{
		Code:           req.Code,
		UserID:         req.UserID,
		OrderID:        req.OrderID,
		Lines:          toCartLines(req.Lines),
		AppliedRuleIDs: req.AppliedRuleIDs,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	if !result.Valid {
		status = http.StatusConflict
	}
	writeJSON(w, status, response{Data: result})
}

// Release handles POST /api/v1/coupons/release
func (h *CouponHandler) Release(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req ReleaseCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.service.Release(r.Context(), &service.ReleaseInput{
		Code:           req.Code,
		UserID:         req.UserID,
		OrderID:        req.OrderID,
		AppliedRuleIDs: req.AppliedRuleIDs,
	}); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
