package ldm

import (
	"context"
	"errors"
	"fmt"

	"github.com/lastdm/ldm-bridge/internal/domain"
)

// errTokenRejected is returned by a SendFunc when LDM answers 401
var errTokenRejected = errors.New("token rejected")

// errNoTokenEndpoint marks a token fetch that reached LDM but got no token;
// submissions then go out without the auth header.
var errNoTokenEndpoint = errors.New("token endpoint unavailable")

// SendFunc performs one submission attempt with the given token
type SendFunc func(ctx context.Context, token string, req domain.SubmitRequest) (map[string]interface{}, error)

// WithTokenRetry wraps send so a rejected token is replaced and the identical
// request is sent exactly once more. A second rejection is surfaced as
// domain.ErrUnauthorized.
func WithTokenRetry(tokens TokenProvider, send SendFunc) func(ctx context.Context, req domain.SubmitRequest) (map[string]interface{}, error) {
	return func(ctx context.Context, req domain.SubmitRequest) (map[string]interface{}, error) {
		token, err := currentToken(ctx, tokens)
		if err != nil {
			return nil, err
		}

		data, err := send(ctx, token, req)
		if !errors.Is(err, errTokenRejected) {
			return data, err
		}

		tokens.Invalidate()
		token, err = currentToken(ctx, tokens)
		if err != nil {
			return nil, err
		}

		data, err = send(ctx, token, req)
		if errors.Is(err, errTokenRejected) {
			return nil, fmt.Errorf("%w: token refused after refresh", domain.ErrUnauthorized)
		}
		return data, err
	}
}

func currentToken(ctx context.Context, tokens TokenProvider) (string, error) {
	token, err := tokens.Token(ctx)
	if errors.Is(err, errNoTokenEndpoint) {
		return "", nil
	}
	return token, err
}
