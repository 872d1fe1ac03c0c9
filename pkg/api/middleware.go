package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ssargent/nexas/pkg/codec"
)

// apiKeyMiddleware validates the X-API-Key header
func apiKeyMiddleware(expectedKey string, metrics Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expectedKey)) != 1 {
				metrics.RecordAuthRequest(false)
				sendError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			metrics.RecordAuthRequest(true)
			next.ServeHTTP(w, r)
		})
	}
}

// sendSuccess sends a successful JSON response
func sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	response := APIResponse{
		Success: true,
		Data:    data,
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// sendError sends an error JSON response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	sendResponse(w, APIResponse{Success: false, Error: message}, statusCode)
}

// sendConversionError reports a failed conversion. Codec errors carry their
// kind, field and offset and map to 422; anything else is a bad request.
func sendConversionError(w http.ResponseWriter, err error) {
	var ce *codec.Error
	if !errors.As(err, &ce) {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := APIResponse{
		Success: false,
		Error:   ce.Error(),
		Kind:    ce.Kind.String(),
		Field:   ce.Field,
	}
	if ce.Offset >= 0 {
		offset := ce.Offset
		response.Offset = &offset
	}
	sendResponse(w, response, http.StatusUnprocessableEntity)
}

func sendResponse(w http.ResponseWriter, response APIResponse, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// sendBytes writes a raw payload
func sendBytes(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
