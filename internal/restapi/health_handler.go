package restapi

import (
	"encoding/json"
	"net/http"

	"weekendest.com/stations/internal/logging"
)

// HealthResponse represents the JSON response from the health endpoint.
type HealthResponse struct {
	Status          string `json:"status"`
	Detail          string `json:"detail,omitempty"`
	TopologyVersion string `json:"topologyVersion,omitempty"`
}

// healthHandler verifies that a topology is published and the topology store
// answers. It returns 503 Service Unavailable until the first snapshot loads.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// 1. Liveness: is the manager wired at all?
	if api.Application == nil || api.GtfsManager == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "unavailable",
			Detail: "manager not initialized",
		})
		return
	}

	// 2. Readiness: has a topology snapshot been published?
	if !api.GtfsManager.IsReady() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "starting",
			Detail: "topology is loading",
		})
		return
	}

	// 3. Connectivity: the store backs restarts, so it must be reachable.
	if db := api.GtfsManager.TopoDB; db != nil {
		if err := db.DB.PingContext(r.Context()); err != nil {
			logging.LogError(api.logger(), "topology store ping failed", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(HealthResponse{
				Status: "unavailable",
				Detail: "topology store connection failed",
			})
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:          "ok",
		TopologyVersion: api.GtfsManager.TopologyInfo().Version,
	})
}
