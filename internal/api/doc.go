// Package api serves the localhost control surface: it translates HTTP
// requests from the presentation layer into facade and service operations,
// validates payloads, and formats sanitized JSON responses.
package api
