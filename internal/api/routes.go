package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Metrics(),
		Logging(h.logger),
	)

	// Nodes
	mux.Handle("GET /api/v1/nodes", chain(http.HandlerFunc(h.ListNodes)))
	mux.Handle("POST /api/v1/nodes", chain(http.HandlerFunc(h.CreateNode)))
	mux.Handle("POST /api/v1/nodes/apply", chain(http.HandlerFunc(h.ApplyNodes)))
	mux.Handle("GET /api/v1/nodes/{id}", chain(http.HandlerFunc(h.GetNode)))
	mux.Handle("PUT /api/v1/nodes/{id}", chain(http.HandlerFunc(h.UpdateNode)))
	mux.Handle("DELETE /api/v1/nodes/{id}", chain(http.HandlerFunc(h.DeleteNode)))
	mux.Handle("POST /api/v1/nodes/{id}/inject", chain(http.HandlerFunc(h.InjectMessage)))
	mux.Handle("GET /api/v1/nodes/{id}/dispatches", chain(http.HandlerFunc(h.ListNodeDispatches)))

	// Dispatches
	mux.Handle("GET /api/v1/dispatches", chain(http.HandlerFunc(h.ListDispatches)))
	mux.Handle("GET /api/v1/dispatches/{id}", chain(http.HandlerFunc(h.GetDispatch)))

	// Schedules
	mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	mux.Handle("POST /api/v1/nodes/{id}/schedules", chain(http.HandlerFunc(h.CreateSchedule)))
	mux.Handle("GET /api/v1/schedules/{id}", chain(http.HandlerFunc(h.GetSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}", chain(http.HandlerFunc(h.UpdateSchedule)))
	mux.Handle("DELETE /api/v1/schedules/{id}", chain(http.HandlerFunc(h.DeleteSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}/enabled", chain(http.HandlerFunc(h.SetScheduleEnabled)))

	// Actions
	mux.Handle("GET /api/v1/actions/{kind}", chain(http.HandlerFunc(h.ListActions)))

	// Discovery
	mux.Handle("POST /containerSearch", chain(http.HandlerFunc(h.ContainerSearch)))
	mux.Handle("POST /volumeSearch", chain(http.HandlerFunc(h.VolumeSearch)))

	// Logging оборачивает ResponseWriter, который не поддерживает Hijack:
	// WebSocket регистрируется только с Recovery.
	mux.Handle("GET /api/v1/status/ws", Recovery(h.logger)(http.HandlerFunc(h.StatusStream)))
}
