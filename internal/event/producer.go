package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mpro775/tagdod-promo-engine/internal/domain"
	pkgkafka "github.com/mpro775/tagdod-promo-engine/pkg/kafka"
	pkglogger "github.com/mpro775/tagdod-promo-engine/pkg/logger"
)

// Kafka topic constants for promotion domain events.
const (
	TopicCouponRedeemed = "promo.coupon.redeemed"
	TopicCouponReleased = "promo.coupon.released"
)

// Aggregate type constant.
const AggregateTypeCoupon = "coupon"

// Source identifier for events originating from the promo engine.
const SourcePromoEngine = "promo-engine"

// CouponRedeemedData is the payload for a coupon.redeemed event.
type CouponRedeemedData struct {
	Code           string `json:"code"`
	UserID         string `json:"user_id"`
	OrderID        string `json:"order_id"`
	DiscountAmount int64  `json:"discount_amount"`
}

// CouponReleasedData is the payload for a coupon.released event.
type CouponReleasedData struct {
	Code    string `json:"code"`
	UserID  string `json:"user_id"`
	OrderID string `json:"order_id"`
}

// Producer publishes promotion domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the promo engine.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCouponRedeemed publishes a coupon.redeemed event.
func (p *Producer) PublishCouponRedeemed(ctx context.Context, red *domain.Redemption) error {
	data := CouponRedeemedData{
		Code:           red.Code,
		UserID:         red.UserID,
		OrderID:        red.OrderID,
		DiscountAmount: red.DiscountAmount,
	}

	event, err := pkgkafka.NewEvent(TopicCouponRedeemed, red.Code, AggregateTypeCoupon, SourcePromoEngine, data)
	if err != nil {
		return fmt.Errorf("create coupon.redeemed event: %w", err)
	}
	event.WithCorrelationID(pkglogger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, TopicCouponRedeemed, event); err != nil {
		return fmt.Errorf("publish coupon.redeemed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published coupon.redeemed event",
		slog.String("code", red.Code),
		slog.String("order_id", red.OrderID),
	)

	return nil
}

// PublishCouponReleased publishes a coupon.released event.
func (p *Producer) PublishCouponReleased(ctx context.Context, code, userID, orderID string) error {
	data := CouponReleasedData{
		Code:    code,
		UserID:  userID,
		OrderID: orderID,
	}

	event, err := pkgkafka.NewEvent(TopicCouponReleased, code, AggregateTypeCoupon, SourcePromoEngine, data)
	if err != nil {
		return fmt.Errorf("create coupon.released event: %w", err)
	}
	event.WithCorrelationID(pkglogger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, TopicCouponReleased, event); err != nil {
		return fmt.Errorf("publish coupon.released event: %w", err)
	}

	p.logger.DebugContext(ctx, "published coupon.released event",
		slog.String("code", code),
		slog.String("order_id", orderID),
	)

	return nil
}
