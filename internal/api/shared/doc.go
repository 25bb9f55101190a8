// Package shared holds the HTTP plumbing used by every handler: trace IDs,
// JSON request decoding and validation, and the JSON response envelopes.
package shared
