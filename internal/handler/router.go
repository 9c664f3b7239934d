package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"banking-ledger/internal/model"
)

// NewRouter собирает маршруты API
func NewRouter(accounts *AccountHandler, transactions *TransactionHandler, tokens TokenParser, logger *logrus.Logger) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(AuthMiddleware(tokens, logger))

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(RequireRole(logger, model.RoleAdmin, model.RoleSuperAdmin))

	accounts.RegisterRoutes(api.PathPrefix("/accounts").Subrouter())
	accounts.RegisterAdminRoutes(admin.PathPrefix("/accounts").Subrouter())
	transactions.RegisterRoutes(api.PathPrefix("/transactions").Subrouter())
	return router
}
