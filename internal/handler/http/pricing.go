package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
	"github.com/mpro775/tagdod-promo-engine/internal/service"
	"github.com/mpro775/tagdod-promo-engine/pkg/validator"
)

// PricingHandler handles HTTP requests for pricing endpoints.
type PricingHandler struct {
	service *service.PricingService
	logger  *slog.Logger
}

// NewPricingHandler creates a new pricing HTTP handler.
func NewPricingHandler(svc *service.PricingService, logger *slog.Logger) *PricingHandler {
	return &PricingHandler{
		service: svc,
		logger:  logger,
	}
}

// CartLineRequest is one cart line in a quote request.
type CartLineRequest struct {
	VariantID  string `json:"variant_id" validate:"required"`
	ProductID  string `json:"product_id"`
	CategoryID string `json:"category_id"`
	BrandID    string `json:"brand_id"`
	UnitPrice  int64  `json:"unit_price" validate:"gte=0"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

// QuoteRequest is the JSON request body for a cart quote.
type QuoteRequest struct {
	Lines        []CartLineRequest `json:"lines" validate:"required,min=1,max=200,dive"`
	UserID       string            `json:"user_id" validate:"omitempty,uuid"`
	AccountType  string            `json:"account_type" validate:"omitempty,oneof=retail wholesale vip"`
	Currency     string            `json:"currency" validate:"omitempty,len=3"`
	CouponCode   string            `json:"coupon_code" validate:"omitempty,max=50"`
	ShippingCost int64             `json:"shipping_cost" validate:"gte=0"`
}

// PriceLineRequest is the JSON request body for a single-line evaluation.
type PriceLineRequest struct {
	VariantID   string `json:"variant_id" validate:"required"`
	ProductID   string `json:"product_id"`
	CategoryID  string `json:"category_id"`
	BrandID     string `json:"brand_id"`
	UnitPrice   int64  `json:"unit_price" validate:"gte=0"`
	Quantity    int    `json:"quantity" validate:"omitempty,gt=0"`
	AccountType string `json:"account_type" validate:"omitempty,oneof=retail wholesale vip"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
}

// Quote handles POST /api/v1/pricing/quote
func (h *PricingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req QuoteRequest
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

	input := &service.QuoteInput{
		Lines:        toCartLines(req.Lines),
		UserID:       req.UserID,
		AccountType:  req.AccountType,
		Currency:     req.Currency,
		CouponCode:   req.CouponCode,
		ShippingCost: req.ShippingCost,
	}

	quote, err := h.service.Quote(r.Context(), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: quote})
}

// PriceLine handles POST /api/v1/pricing/line
func (h *PricingHandler) PriceLine(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req PriceLineRequest
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

	input := &service.PriceLineInput{
		Line: domain.CartLine{
			VariantID:  req.VariantID,
			ProductID:  req.ProductID,
			CategoryID: req.CategoryID,
			BrandID:    req.BrandID,
			UnitPrice:  req.UnitPrice,
			Quantity:   req.Quantity,
		},
		AccountType: req.AccountType,
		Currency:    req.Currency,
	}

	result, err := h.service.PriceLine(r.Context(), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: result})
}

func toCartLines(reqs []CartLineRequest) []domain.CartLine {
	lines := make([]domain.CartLine, len(reqs))
	for i, l := range reqs {
		lines[i] = domain.CartLine{
			VariantID:  l.VariantID,
			ProductID:  l.ProductID,
			CategoryID: l.CategoryID,
			BrandID:    l.BrandID,
			UnitPrice:  l.UnitPrice,
			Quantity:   l.Quantity,
		}
	}
	return lines
}
