package api

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	json "github.com/json-iterator/go"

	cuberrors "github.com/BelikanM/cub/pkg/errors"
)

// APIError represents an API error response
type APIError struct {
	Code       string
	Message    string
	Field      string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%d] %s: %s (field: %s)", e.StatusCode, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// ParseError turns a non-2xx response into a StoreError carrying the APIError
func ParseError(resp *resty.Response) error {
	status := resp.StatusCode()

	apiErr := &APIError{Code: "unknown_error", Message: string(resp.Body()), StatusCode: status}
	var errResp ErrorResponse
	if err := json.Unmarshal(resp.Body(), &errResp); err == nil && errResp.Code != "" {
		apiErr.Code = errResp.Code
		apiErr.Message = errResp.Message
		apiErr.Field = errResp.Field
	}

	se := cuberrors.FromStatus(status, apiErr.Message)
	se.Field = apiErr.Field
	se.Cause = apiErr
	return se
}

// CheckResponse checks if response is successful and returns error if not.
// Transport failures come back as connectivity errors.
func CheckResponse(resp *resty.Response, err error) error {
	if err != nil {
		return cuberrors.CategorizeError(err)
	}
	if !resp.IsSuccess() {
		return ParseError(resp)
	}
	return nil
}

func decode(resp *resty.Response, target any) error {
	if err := json.Unmarshal(resp.Body(), target); err != nil {
		return cuberrors.New(cuberrors.ErrorTypeUnknown, "malformed response from server", err)
	}
	return nil
}
