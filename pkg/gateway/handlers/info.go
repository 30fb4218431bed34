package handlers

import (
	"encoding/json"
	"net/http"
)

// InfoHandler answers the root probe; carriers and load balancers use it to
// confirm the relay is up.
type InfoHandler struct{}

func (h InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"message": "Twilio Media Stream Server is running!",
	})
}
