// Package endpoint models a single upstream RPC provider and its health
// state. An endpoint is demoted when a rate-limit failure is recorded
// against it and becomes eligible again once its recovery window elapses.
package endpoint
