package handler

import (
	"encoding/json"
)

// JSON-RPC error codes the proxy emits itself. Upstream codes pass
// through untouched.
const (
	// CodeInternalError covers transport failures and pool exhaustion.
	CodeInternalError = -32603
	// CodeInvalidRequest is returned for non-POST calls.
	CodeInvalidRequest = -32600
)

type rpcErrorBody struct {
	Error rpcErrorDetail `json:"error"`
}

type rpcErrorDetail struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func errorEnvelope(code int, message string) []byte {
	body, _ := json.Marshal(rpcErrorBody{
		Error: rpcErrorDetail{Message: message, Code: code},
	})

	return body
}
