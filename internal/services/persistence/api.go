package persistence

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
)

// NewRouter serves GET /healthz and GET /data/latest.
func NewRouter(svc *Service) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) }).Methods(http.MethodGet)
	r.HandleFunc("/data/latest", func(w http.ResponseWriter, _ *http.Request) {
		list := svc.Latest()
		sort.Slice(list, func(i, j int) bool {
			if list[i].FieldID != list[j].FieldID {
				return list[i].FieldID < list[j].FieldID
			}
			return list[i].SensorID < list[j].SensorID
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}).Methods(http.MethodGet)
	return r
}
