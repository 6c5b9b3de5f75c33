package ai

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestClassifyGeminiError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want any
	}{
		{"unauthorized", &googleapi.Error{Code: 401, Message: "invalid credentials"}, &AuthError{}},
		{"forbidden", &googleapi.Error{Code: 403, Message: "permission denied"}, &AuthError{}},
		{"bad api key", &googleapi.Error{Code: 400, Message: "API key not valid. Please pass a valid API key."}, &AuthError{}},
		{"bad request", &googleapi.Error{Code: 400, Message: "invalid argument"}, &BadRequestError{}},
		{"rate limited", &googleapi.Error{Code: 429, Message: "too many requests"}, &RateLimitError{}},
		{"quota", &googleapi.Error{Code: 429, Message: "Resource has been exhausted (e.g. check quota)."}, &QuotaExceededError{}},
		{"model not found", &googleapi.Error{Code: 404, Message: "models/nope is not found"}, &ModelNotFoundError{}},
		{"server", &googleapi.Error{Code: 503, Message: "backend unavailable"}, &ServerError{}},
		{"wrapped", fmt.Errorf("call: %w", &googleapi.Error{Code: 500}), &ServerError{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyGeminiError(tc.err)
			var ok bool
			switch tc.want.(type) {
			case *AuthError:
				var e *AuthError
				ok = errors.As(got, &e)
			case *BadRequestError:
				var e *BadRequestError
				ok = errors.As(got, &e)
			case *RateLimitError:
				var e *RateLimitError
				ok = errors.As(got, &e)
			case *QuotaExceededError:
				var e *QuotaExceededError
				ok = errors.As(got, &e)
			case *ModelNotFoundError:
				var e *ModelNotFoundError
				ok = errors.As(got, &e)
			case *ServerError:
				var e *ServerError
				ok = errors.As(got, &e)
			}
			if !ok {
				t.Fatalf("classifyGeminiError(%v) = %T (%v), want %T", tc.err, got, got, tc.want)
			}
		})
	}
}

func TestClassifyGeminiErrorPassesThroughOtherErrors(t *testing.T) {
	base := errors.New("dial tcp: connection refused")
	got := classifyGeminiError(base)
	if !errors.Is(got, base) {
		t.Fatalf("expected wrapped original error, got %v", got)
	}
	var apiErr *APIError
	if errors.As(got, &apiErr) {
		t.Fatalf("unexpected API error classification: %v", got)
	}
	if got := classifyGeminiError(&googleapi.Error{Code: 409, Message: "conflict"}); !errors.As(got, &apiErr) || apiErr.StatusCode != 409 {
		t.Fatalf("unclassified status should stay an APIError, got %T", got)
	}
}
