// Package auth decides whether an acting user may mutate reviews owned by a
// target user.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/oakmart/review-service/pkg/errors"
	"github.com/oakmart/review-service/pkg/httpclient"
)

// Authorizer checks that the acting user may operate on reviews owned by the
// target user. The acting user ID comes from the gateway-verified identity
// header on the incoming request.
type Authorizer interface {
	Authorize(ctx context.Context, actingUserID string, targetUserID uuid.UUID) error
}

// SelfAuthorizer grants access only when the acting user is the target user.
// It is the fallback policy when no auth service is configured.
type SelfAuthorizer struct{}

// Authorize implements Authorizer.
func (SelfAuthorizer) Authorize(_ context.Context, actingUserID string, targetUserID uuid.UUID) error {
	if actingUserID == "" {
		return apperrors.Unauthorized("authentication required")
	}
	if actingUserID != targetUserID.String() {
		return apperrors.Forbidden("user may only manage their own reviews")
	}
	return nil
}

// HTTPAuthorizer delegates the decision to the auth service over HTTP, behind
// a circuit breaker. When the breaker is open the request is rejected rather
// than allowed through.
type HTTPAuthorizer struct {
	client  *httpclient.CircuitBreakerClient
	baseURL string
	logger  *slog.Logger
}

// NewHTTPAuthorizer creates an authorizer backed by the auth service at
// baseURL.
func NewHTTPAuthorizer(client *httpclient.CircuitBreakerClient, baseURL string, logger *slog.Logger) *HTTPAuthorizer {
	return &HTTPAuthorizer{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Authorize implements Authorizer. It asks the auth service whether the
// acting user may act on behalf of the target user.
func (a *HTTPAuthorizer) Authorize(ctx context.Context, actingUserID string, targetUserID uuid.UUID) error {
	if actingUserID == "" {
		return apperrors.Unauthorized("authentication required")
	}

	url := fmt.Sprintf("%s/api/v1/users/%s/authorize", a.baseURL, targetUserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build authorize request: %w", err)
	}
	req.Header.Set("X-User-ID", actingUserID)

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		a.logger.ErrorContext(ctx, "auth service call failed",
			slog.String("target_user_id", targetUserID.String()),
			slog.String("error", err.Error()),
		)
		return apperrors.Wrap(err, "authorize user")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.Unauthorized("authentication required")
	case resp.StatusCode == http.StatusForbidden:
		return apperrors.Forbidden("user may only manage their own reviews")
	default:
		return fmt.Errorf("authorize user: unexpected status %d", resp.StatusCode)
	}
}
