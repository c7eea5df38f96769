package routes

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	handlers "bakery/internal/handlers"
	"bakery/internal/middleware"
)

// Setup configures and returns the status API router.
func Setup(handlers *handlers.Handlers, logger *slog.Logger) http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	api := router.PathPrefix("/api").Subrouter()

	// GET routes report state; nothing here touches a device.
	setupGetRoutes(api, handlers)

	// POST routes
	setupPostRoutes(api, handlers)

	return middleware.Chain(middleware.Default(logger)...)(router)
}

func setupGetRoutes(router *mux.Router, handlers *handlers.Handlers) {
	router.HandleFunc("/status", handlers.GetStatus).Methods("GET").Name("Status")
	router.HandleFunc("/images", handlers.GetImages).Methods("GET").Name("Images")
	router.HandleFunc("/devices", handlers.GetDevices).Methods("GET").Name("Devices")
	router.HandleFunc("/writes", handlers.GetWrites).Methods("GET").Name("Writes")
	router.HandleFunc("/writes/{id}", handlers.GetWrite).Methods("GET").Name("Write")
}

func setupPostRoutes(router *mux.Router, handlers *handlers.Handlers) {
	router.HandleFunc("/images/rescan", handlers.RescanImages).Methods("POST").Name("RescanImages")
}
