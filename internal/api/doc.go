// Package api exposes study sessions and deck management over HTTP.
//
// Handlers decode and validate JSON requests, call into the study-session
// controllers and the deck service, and map domain and store errors to
// status codes with sanitized messages. Each session started through the API
// gets its own controller, tracked by a SessionRegistry.
package api
