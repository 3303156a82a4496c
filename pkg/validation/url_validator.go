package validation

import (
	"net/url"
	"strings"

	apperrors "go-sign-classifier/internal/errors"
)

const (
	// MsgEmptyURL is shown when the URL field is blank
	MsgEmptyURL = "Please enter a valid image URL."
	// MsgInvalidURL is shown when the URL does not parse as an http(s) URL
	MsgInvalidURL = "Invalid URL format. Please enter a valid image URL."
)

// URLValidator handles URL validation logic
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates a new URL validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateImageURL checks that imageURL is well formed. It never touches the network.
// The returned AppError carries the user-facing message; Details names the failed rule.
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return invalid(MsgEmptyURL, "URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil {
		return invalid(MsgInvalidURL, "URL does not parse", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return invalid(MsgInvalidURL, "URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return invalid(MsgInvalidURL, "URL must have a valid host", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Hostname()) {
		return invalid(MsgInvalidURL, "URL host not allowed", nil)
	}

	return nil
}

func invalid(message, details string, cause error) *apperrors.AppError {
	err := apperrors.NewValidationError(message, cause)
	err.Details = details
	return err
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}
