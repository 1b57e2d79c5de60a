package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/rafaelguerrae/TeamSync/internal/model"
)

// writeFailure sends the standard error envelope.
func writeFailure(w http.ResponseWriter, status int, apiErr model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{Success: false, Error: &apiErr})
}

func failureBody(apiErr model.APIError) string {
	body, err := json.Marshal(model.APIResponse{Success: false, Error: &apiErr})
	if err != nil {
		panic(err)
	}
	return string(body)
}
