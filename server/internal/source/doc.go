// Package source provides the registration data providers.
//
// Every provider implements Source. Fetch returns a Result holding the
// records; a failed fetch (connectivity, auth, parse, empty payload) is
// reported through Result.Err, never as a returned error, so callers treat
// it uniformly as "no data available".
//
// Implemented providers: the placeholder generator (stub.go), a Prometheus
// text-exposition feed (prometheus.go), a local CSV file (csv.go) and the
// portal probe (portal.go). Factory: New(config.Source).
//
// Authentication (mTLS, API key, bearer token, basic) is handled by the shared
// authRoundTripper in base.go. CheckCert (cert.go) reports the TLS certificate
// state of https endpoints.
package source
