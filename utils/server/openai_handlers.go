package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// startTime stands in for the model creation time, which the catalog does not track
var startTime = time.Now().Unix()

// sendOpenAIError sends an error response in OpenAI format
func sendOpenAIError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(OpenAIError{
		Error: OpenAIErrorDetail{
			Message: message,
			Type:    errType,
		},
	})
}

// handleListModels handles GET /v1/models - lists the configured tag models
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendOpenAIError(w, http.StatusMethodNotAllowed, "invalid_request_error", "Method not allowed")
		return
	}

	data := make([]ModelInfo, 0, len(s.envConfig.Models))
	for _, name := range s.envConfig.ModelNames() {
		m, err := s.envConfig.GetModel(name)
		if err != nil {
			continue
		}
		data = append(data, ModelInfo{
			ID:      m.Name,
			Object:  "model",
			Created: startTime,
			OwnedBy: "tagup",
			Version: m.Version,
			Backend: m.Backend,
			Default: m.Name == s.envConfig.DefaultModel,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ModelListResponse{
		Object: "list",
		Data:   data,
	})
}
