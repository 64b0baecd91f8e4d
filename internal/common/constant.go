package common

const (
	// AccessTokenHeaderName is the gRPC metadata key used to carry the
	// access token on outbound sensor requests.
	AccessTokenHeaderName = "access_token"

	// SessionCookieName is the HTTP cookie holding the opaque session token.
	SessionCookieName = "netguard_session"

	// NormalLabel is the class label the model assigns to benign traffic.
	NormalLabel = "normal"
)
