// Package auth provides authentication middleware for the dashboard REST API.
//
// APIKey(mode, header, key) returns a gorilla/mux middleware that validates
// the API key sent in the named HTTP header.
//
// When mode != "apikey" or key == "", all requests pass through (useful for
// local development with auth disabled). When the key is incorrect or absent,
// the middleware answers 401 with a JSON error body.
package auth
