package common

// AuthorizationHeaderName carries the access token on outbound requests,
// using the standard "Bearer <token>" form.
const AuthorizationHeaderName = "Authorization"

// AccessTokenCookieName is the cookie fallback for browser clients that do
// not set the Authorization header themselves.
const AccessTokenCookieName = "access_token"

// ErrorCode values returned in JSON error bodies so clients can react
// without parsing free-form messages.
const (
	CodeTokenExpired        = "token_expired"
	CodeInvalidToken        = "invalid_token"
	CodeInvalidRefreshToken = "invalid_refresh_token"
	CodeReuseDetected       = "reuse_detected"
	CodeStoreUnavailable    = "store_unavailable"
	CodeUnauthorized        = "unauthorized"
	CodeInternal            = "internal_error"
)
