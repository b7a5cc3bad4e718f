// Package handler implements the request path of the proxy: the retry
// driver that walks the endpoint pool on rate-limit failures, the HTTP
// adapter that feeds it, and the health endpoint.
package handler
