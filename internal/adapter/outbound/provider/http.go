package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Maxborland/cutroom/internal/shared/errors"
)

// postJSON executes one JSON POST and classifies the outcome into the
// pipeline error taxonomy. The raw provider body is preserved verbatim
// in terminal errors so operators can diagnose provider-side issues.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any, retryable func(int) bool) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, apperrors.Cancelled("provider request")
		}
		// Timeouts and network errors are retryable.
		return nil, apperrors.Transient(fmt.Sprintf("request %s: %v", url, err), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Transient(fmt.Sprintf("read response: %v", err), err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}
	if retryable != nil && retryable(resp.StatusCode) {
		return nil, apperrors.Transient(fmt.Sprintf("http %d: %s", resp.StatusCode, respBody), nil)
	}
	return nil, &statusError{
		status:   resp.StatusCode,
		appError: apperrors.Provider(fmt.Sprintf("http %d: %s", resp.StatusCode, respBody)),
		body:     string(respBody),
	}
}

// statusError carries the HTTP status and raw body of a terminal
// provider rejection, for fallback predicates to inspect.
type statusError struct {
	status   int
	body     string
	appError *apperrors.AppError
}

func (e *statusError) Error() string { return e.appError.Error() }

func (e *statusError) Unwrap() error { return e.appError }
