package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/oakmart/review-service/internal/event"
	apperrors "github.com/oakmart/review-service/pkg/errors"
	"github.com/oakmart/review-service/pkg/httputil"
)

// Pub/sub topics delivered over the HTTP transport.
const (
	PubsubTopicUserCreated           = "user-created"
	PubsubTopicProductCreated        = "product-created"
	PubsubTopicProductVariantCreated = "product-variant-created"
)

// pubsubName is the broker component name announced in the subscription list.
const pubsubName = "pubsub"

// eventDeliveryRoute is the route all announced subscriptions point at.
const eventDeliveryRoute = "/events"

// Subscription describes one topic subscription to the pub/sub sidecar.
type Subscription struct {
	PubsubName string `json:"pubsubName"`
	Topic      string `json:"topic"`
	Route      string `json:"route"`
}

// TopicEventResponse acknowledges a delivery. Status 0 means processed.
type TopicEventResponse struct {
	Status int `json:"status"`
}

// EventEnvelope is the relevant part of a delivered event.
type EventEnvelope struct {
	Topic string    `json:"topic"`
	Data  EventData `json:"data"`
}

// EventData is the payload of an entity-created event. ProductID is only
// present on product-variant-created events.
type EventData struct {
	ID        uuid.UUID  `json:"id"`
	ProductID *uuid.UUID `json:"productId"`
}

// EventHandler handles the pub/sub subscription discovery and event delivery
// endpoints.
type EventHandler struct {
	service event.ReplicaApplier
	logger  *slog.Logger
}

// NewEventHandler creates a new pub/sub event HTTP handler.
func NewEventHandler(svc event.ReplicaApplier, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		service: svc,
		logger:  logger,
	}
}

// ListSubscriptions handles GET /dapr/subscribe. It announces the topics
// this service consumes and the route deliveries should be posted to.
func (h *EventHandler) ListSubscriptions(w http.ResponseWriter, _ *http.Request) {
	subscriptions := []Subscription{
		{PubsubName: pubsubName, Topic: PubsubTopicUserCreated, Route: eventDeliveryRoute},
		{PubsubName: pubsubName, Topic: PubsubTopicProductCreated, Route: eventDeliveryRoute},
		{PubsubName: pubsubName, Topic: PubsubTopicProductVariantCreated, Route: eventDeliveryRoute},
	}
	httputil.WriteJSON(w, http.StatusOK, subscriptions)
}

// OnTopicEvent handles POST /events. Deliveries are at-least-once: a 200
// with status 0 acknowledges the event, any other status code makes the
// broker redeliver or dead-letter per its own policy. Processing is
// all-or-nothing per delivery.
func (h *EventHandler) OnTopicEvent(w http.ResponseWriter, r *http.Request) {
	var envelope EventEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid event envelope: " + err.Error()},
		})
		return
	}

	h.logger.InfoContext(r.Context(), "processing pub/sub event",
		slog.String("topic", envelope.Topic),
		slog.String("entity_id", envelope.Data.ID.String()),
	)

	if err := h.dispatch(r, envelope); err != nil {
		// Non-2xx tells the broker to redeliver. Unknown topics also land
		// here so a subscription mismatch is loud rather than silently
		// swallowed.
		h.logger.ErrorContext(r.Context(), "event processing failed",
			slog.String("topic", envelope.Topic),
			slog.String("entity_id", envelope.Data.ID.String()),
			slog.String("error", err.Error()),
		)
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, TopicEventResponse{Status: 0})
}

func (h *EventHandler) dispatch(r *http.Request, envelope EventEnvelope) error {
	ctx := r.Context()

	switch envelope.Topic {
	case PubsubTopicUserCreated:
		return h.service.ApplyUserCreated(ctx, envelope.Data.ID)
	case PubsubTopicProductCreated:
		return h.service.ApplyProductCreated(ctx, envelope.Data.ID)
	case PubsubTopicProductVariantCreated:
		if envelope.Data.ProductID == nil {
			return apperrors.Wrap(errors.New("product-variant-created event without productId"), "dispatch event")
		}
		return h.service.ApplyProductVariantCreated(ctx, envelope.Data.ID, *envelope.Data.ProductID)
	default:
		return apperrors.UnknownTopic(envelope.Topic)
	}
}
