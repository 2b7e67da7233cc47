package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/domain/entity"
	"github.com/jcmexdev/cart-service/internal/cart-service/core/ports"
	"github.com/jcmexdev/cart-service/internal/pkg/constants"
)

var _ ports.TokenValidator = (*RESTTokenValidator)(nil)

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"userId"`
}

// RESTTokenValidator asks the auth service whether a bearer token is valid.
// Calls are not retried: one failed call rejects the request.
type RESTTokenValidator struct {
	httpClient *http.Client
	url        string
	apiKey     string
}

func NewRESTTokenValidator(httpClient *http.Client, url, apiKey string) *RESTTokenValidator {
	return &RESTTokenValidator{
		httpClient: httpClient,
		url:        url,
		apiKey:     apiKey,
	}
}

// Validate returns the user id for a valid token. Every other outcome wraps
// entity.ErrUnauthorized.
func (v *RESTTokenValidator) Validate(ctx context.Context, token string) (string, error) {
	body, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", entity.ErrUnauthorized, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", entity.ErrUnauthorized, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(constants.HeaderXInternalAPIKey, v.apiKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: auth service call failed: %v", entity.ErrUnauthorized, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: auth service returned %d", entity.ErrUnauthorized, resp.StatusCode)
	}

	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode auth response: %v", entity.ErrUnauthorized, err)
	}
	if !out.Valid {
		return "", fmt.Errorf("%w: token rejected", entity.ErrUnauthorized)
	}
	if out.UserID == "" {
		return "", fmt.Errorf("%w: auth service returned no user id", entity.ErrUnauthorized)
	}

	return out.UserID, nil
}
