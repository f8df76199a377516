package betfair

import "fmt"

// Exchange error codes the engine cares about
const (
	ErrorInvalidSessionInformation = "INVALID_SESSION_INFORMATION"
	ErrorNoSession                 = "NO_SESSION"
	ErrorInsufficientFunds         = "INSUFFICIENT_FUNDS"
	ErrorMarketSuspended           = "MARKET_SUSPENDED"
	ErrorInvalidBetSize            = "INVALID_BET_SIZE"
	ErrorBetTakenOrLapsed          = "BET_TAKEN_OR_LAPSED"
	ErrorTimeoutError              = "TIMEOUT_ERROR"
	ErrorErrorInMatcher            = "ERROR_IN_MATCHER"
	ErrorServiceBusy               = "SERVICE_BUSY"
)

// APIError represents an error returned by the exchange API
type APIError struct {
	Method    string
	ErrorCode string
	Message   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange API error on %s: %s (code: %s)", e.Method, e.Message, e.ErrorCode)
}

// AuthenticationError represents a login or session failure. Never
// retried by the transport; the scheduler handles re-auth.
type AuthenticationError struct {
	Message string
	Cause   error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error { return e.Cause }

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string, cause error) *AuthenticationError {
	return &AuthenticationError{Message: message, Cause: cause}
}

// IsAuthError reports whether err is an authentication failure
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(*AuthenticationError); ok {
		return true
	}
	if api, ok := err.(*APIError); ok {
		return api.ErrorCode == ErrorInvalidSessionInformation || api.ErrorCode == ErrorNoSession
	}
	return false
}

// recoverableOrderCodes are instruction-report error codes that leave
// the selection biddable on a later tick. Anything else is final for
// the trading day.
var recoverableOrderCodes = map[string]bool{
	ErrorMarketSuspended: true,
	ErrorTimeoutError:    true,
	ErrorErrorInMatcher:  true,
	ErrorServiceBusy:     true,
}

// RecoverableOrderError reports whether a rejected order may be
// retried against the same selection.
func RecoverableOrderError(code string) bool {
	return recoverableOrderCodes[code]
}
