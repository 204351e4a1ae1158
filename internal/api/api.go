package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"uniasset/pkg/uniasset"
)

// NewRouter builds the HTTP API router. A nil logger uses slog.Default.
func NewRouter(core *uniasset.Core, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core, logger: logger}

	r.Get("/api/health", h.health)
	r.Get("/api/dashboard", h.getDashboard)

	// Assets
	r.Get("/api/assets", h.getAssets)
	r.Post("/api/assets", h.addAsset)
	r.Post("/api/assets/reconcile", h.reconcileDraft)
	r.Post("/api/assets/parse", h.parseDraft)
	r.Get("/api/assets/quote", h.getQuote)
	r.Get("/api/assets/{id}", h.getAsset)
	r.Put("/api/assets/{id}", h.updateAsset)
	r.Delete("/api/assets/{id}", h.deleteAsset)

	// Catalog
	r.Get("/api/catalog/symbols", h.suggestSymbols)
	r.Get("/api/catalog/platforms", h.suggestPlatforms)

	// Wallets
	r.Get("/api/wallets", h.getWallets)
	r.Post("/api/wallets", h.connectWallet)
	r.Get("/api/wallets/classify", h.classifyAddress)
	r.Post("/api/wallets/sync", h.syncAllWallets)
	r.Post("/api/wallets/{id}/sync", h.syncWallet)
	r.Delete("/api/wallets/{id}", h.removeWallet)

	// Events
	r.Get("/api/events", h.getEvents)
	r.Post("/api/events/refresh", h.refreshEvents)
	r.Get("/api/events/{id}/exposure", h.getEventExposure)

	// Advisory
	r.Get("/api/advisory/messages", h.getMessages)
	r.Post("/api/advisory/messages", h.sendMessage)

	// Operation logs
	r.Get("/api/operation-logs", h.getOperationLogs)

	return r
}

type handler struct {
	core   *uniasset.Core
	logger *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	setErrorMessage(w, message)
	writeJSON(w, status, ErrorResponse{Code: status, Message: message})
}
