package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, data interface{}) {
	response := models.NewOKResponse(data)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		api.Logger.Error("failed to encode response", "error", err, "path", r.URL.Path)
	}
}
