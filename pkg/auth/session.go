package auth

import (
	"errors"
	"net/http"

	"github.com/BelikanM/cub/pkg/credentials"
	cuberrors "github.com/BelikanM/cub/pkg/errors"
	"github.com/BelikanM/cub/pkg/logger"
)

const loginHint = "Run 'cub auth login' to sign in."

// RequireCredentials loads the stored session and fails with an
// authorization error when there is none or it has expired.
func RequireCredentials() (*credentials.Credentials, error) {
	creds, err := credentials.Load()
	if err != nil {
		return nil, cuberrors.New(cuberrors.ErrorTypeUnknown, "failed to load credentials", err)
	}
	if creds == nil {
		return nil, cuberrors.New(cuberrors.ErrorTypeAuthorization, "not logged in", nil).WithSuggestion(loginHint)
	}
	if creds.IsExpired() {
		return nil, cuberrors.New(cuberrors.ErrorTypeAuthorization, "session expired", nil).WithSuggestion(loginHint)
	}
	return creds, nil
}

// IsSessionError reports whether err means the token was rejected, as
// opposed to the caller lacking rights on one item.
func IsSessionError(err error) bool {
	var se *cuberrors.StoreError
	if !errors.As(err, &se) {
		return false
	}
	return se.Type == cuberrors.ErrorTypeAuthorization && se.StatusCode == http.StatusUnauthorized
}

// HandleSessionError drops stored credentials when the server rejected the
// token, so the next command asks for a fresh login.
func HandleSessionError(err error) error {
	if !IsSessionError(err) {
		return err
	}
	logger.Debug("Token rejected, clearing credentials")
	if delErr := credentials.Delete(); delErr != nil {
		logger.Warn("Failed to delete credentials", "error", delErr)
	}
	var se *cuberrors.StoreError
	if errors.As(err, &se) {
		se.Suggestion = loginHint
	}
	return err
}
