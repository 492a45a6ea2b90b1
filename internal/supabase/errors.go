package supabase

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/wolfeidau/organizehub/internal/store"
)

// PostgREST error codes that signal an empty single-row result.
const (
	codeSingularNoRows = "PGRST116"
	codeNoRows         = "PGRST104"
)

// APIError is an error reported by the REST API. Code is either a PostgREST
// code (PGRSTxxx) or the SQLSTATE of the failing database statement.
type APIError struct {
	Status  int     `json:"-"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details"`
	Hint    *string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with HTTP %d", e.Status)
	}
	return e.Message
}

// Is maps backend codes onto the store sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case store.ErrNoRows:
		return e.Code == codeSingularNoRows || e.Code == codeNoRows
	case store.ErrConflict:
		return e.Code == pgerrcode.UniqueViolation
	case store.ErrReference:
		return e.Code == pgerrcode.ForeignKeyViolation
	case store.ErrNotAuthenticated:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// AuthError is an error reported by the auth API. Both the current
// ({"error_code","msg"}) and legacy ({"error","error_description"}) body
// shapes are understood.
type AuthError struct {
	Status  int
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth request failed with HTTP %d", e.Status)
	}
	return e.Message
}

func (e *AuthError) Is(target error) bool {
	return target == store.ErrNotAuthenticated && e.Status == http.StatusUnauthorized
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || (apiErr.Message == "" && apiErr.Code == "") {
		apiErr.Message = fallbackMessage(resp.StatusCode, body)
	}
	apiErr.Status = resp.StatusCode

	return apiErr
}

func decodeAuthError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var raw struct {
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	authErr := &AuthError{Status: resp.StatusCode}

	if err := json.Unmarshal(body, &raw); err != nil {
		authErr.Message = fallbackMessage(resp.StatusCode, body)
		return authErr
	}

	authErr.Code = firstNonEmpty(raw.ErrorCode, raw.Error)
	authErr.Message = firstNonEmpty(raw.Msg, raw.Message, raw.ErrorDescription, raw.Error)
	if authErr.Message == "" {
		authErr.Message = fallbackMessage(resp.StatusCode, body)
	}

	return authErr
}

func fallbackMessage(status int, body []byte) string {
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
		return text
	}
	return http.StatusText(status)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
