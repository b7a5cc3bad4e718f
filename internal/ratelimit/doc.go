// Package ratelimit classifies upstream responses as rate-limit
// failures. The matching rules are plain data on the classifier so the
// policy stays visible and testable rather than scattered across the
// request path.
package ratelimit
