// Package api exposes the task service over HTTP with chi. Handlers decode
// and validate requests, call the service and translate its results: a
// success becomes 200/201/204, a not-found result 404, an invalid result a
// 400 listing the offending fields, and errors go through HandleAPIError.
package api
