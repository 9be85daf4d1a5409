package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound ledger requests.
const AccessTokenHeaderName = "access_token"

// DefaultMailDomain is appended to bare user names when registering.
const DefaultMailDomain = "decenter-test.test"
