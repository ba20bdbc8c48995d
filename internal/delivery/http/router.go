package http

import (
	"net/http"

	"go-opd-token-system/internal/delivery/http/handler"
	"go-opd-token-system/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router         *mux.Router
	tokenHandler   *handler.TokenHandler
	doctorHandler  *handler.DoctorHandler
	slotHandler    *handler.SlotHandler
	corsMiddleware *middleware.CORSMiddleware
}

func NewRouter(
	tokenHandler *handler.TokenHandler,
	doctorHandler *handler.DoctorHandler,
	slotHandler *handler.SlotHandler,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:         mux.NewRouter(),
		tokenHandler:   tokenHandler,
		doctorHandler:  doctorHandler,
		slotHandler:    slotHandler,
		corsMiddleware: corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Token routes
	api.HandleFunc("/tokens", r.tokenHandler.CreateToken).Methods(http.MethodPost)
	api.HandleFunc("/tokens", r.tokenHandler.GetAllTokens).Methods(http.MethodGet)
	api.HandleFunc("/tokens/emergency", r.tokenHandler.EmergencyInsert).Methods(http.MethodPost)
	api.HandleFunc("/tokens/{id}", r.tokenHandler.GetToken).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{id}/cancel", r.tokenHandler.CancelToken).Methods(http.MethodPost)
	api.HandleFunc("/tokens/{id}/no-show", r.tokenHandler.MarkNoShow).Methods(http.MethodPost)
	api.HandleFunc("/tokens/{id}/reallocate", r.tokenHandler.ReallocateToken).Methods(http.MethodPost)

	// Doctor routes
	api.HandleFunc("/doctors", r.doctorHandler.CreateDoctor).Methods(http.MethodPost)
	api.HandleFunc("/doctors", r.doctorHandler.GetAllDoctors).Methods(http.MethodGet)
	api.HandleFunc("/doctors/{id}", r.doctorHandler.GetDoctor).Methods(http.MethodGet)
	api.HandleFunc("/doctors/{id}", r.doctorHandler.UpdateDoctor).Methods(http.MethodPut)
	api.HandleFunc("/doctors/{id}", r.doctorHandler.DeleteDoctor).Methods(http.MethodDelete)
	api.HandleFunc("/doctors/{doctorId}/availability", r.slotHandler.GetAvailability).Methods(http.MethodGet)

	// Time slot routes
	api.HandleFunc("/slots", r.slotHandler.CreateSlot).Methods(http.MethodPost)
	api.HandleFunc("/slots", r.slotHandler.GetAllSlots).Methods(http.MethodGet)
	api.HandleFunc("/slots/{id}", r.slotHandler.GetSlot).Methods(http.MethodGet)
	api.HandleFunc("/slots/{id}", r.slotHandler.UpdateSlot).Methods(http.MethodPut)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
