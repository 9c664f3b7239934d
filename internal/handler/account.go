package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"banking-ledger/internal/model"
	"banking-ledger/internal/service"
)

// AccountHandler обрабатывает запросы, связанные со счетами
type AccountHandler struct {
	accountService *service.AccountService // Сервис для работы со счетами
	recorder       *service.Recorder       // Журнал операций
	logger         *logrus.Logger          // Логгер
}

// NewAccountHandler создает новый AccountHandler
func NewAccountHandler(accountService *service.AccountService, recorder *service.Recorder, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		recorder:       recorder,
		logger:         logger,
	}
}

// RegisterRoutes регистрирует маршруты владельца счетов
func (h *AccountHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("", h.GetUserAccounts).Methods("GET")                       // Счета пользователя
	router.HandleFunc("/{number}/balance", h.GetBalance).Methods("GET")           // Баланс счета
	router.HandleFunc("/{number}/transactions", h.GetTransactions).Methods("GET") // История операций
}

// RegisterAdminRoutes регистрирует маршруты администратора.
// Роль проверяет middleware подроутера.
func (h *AccountHandler) RegisterAdminRoutes(router *mux.Router) {
	router.HandleFunc("", h.CreateAccount).Methods("POST")                 // Открытие счета клиенту
	router.HandleFunc("/{number}/status", h.UpdateStatus).Methods("PATCH") // Смена статуса счета
}

type balanceResponse struct {
	AccountNumber string `json:"account_number"`
	Balance       string `json:"balance"`
}

// CreateAccount открывает счет клиенту, указанному в account_holder_id
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req model.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Warn("Не удалось декодировать запрос на создание счета")
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.accountService.CreateAccount(r.Context(), req, userID)
	if err != nil {
		status, msg := httpStatusForErr(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithError(err).Error("Не удалось создать счет")
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusCreated, account.Summary())
}

// UpdateStatus замораживает, размораживает или закрывает счет
func (h *AccountHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req model.UpdateAccountStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Warn("Не удалось декодировать запрос на смену статуса счета")
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.accountService.SetStatus(r.Context(), mux.Vars(r)["number"], req.Status, userID)
	if err != nil {
		status, msg := httpStatusForErr(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithError(err).Error("Не удалось сменить статус счета")
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, account.Summary())
}

// GetUserAccounts обрабатывает запрос на получение счетов пользователя
func (h *AccountHandler) GetUserAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accounts, err := h.accountService.GetUserAccounts(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get accounts")
		return
	}

	out := make([]model.AccountSummary, 0, len(accounts))
	for i := range accounts {
		out = append(out, accounts[i].Summary())
	}
	writeJSON(w, http.StatusOK, out)
}

// GetBalance возвращает баланс счета владельцу
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	number := mux.Vars(r)["number"]

	balance, err := h.accountService.GetAccountBalance(r.Context(), number, userID)
	if err != nil {
		status, msg := httpStatusForErr(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{AccountNumber: number, Balance: balance.StringFixed(2)})
}

// GetTransactions возвращает историю операций по счету
func (h *AccountHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	history, err := h.recorder.History(r.Context(), mux.Vars(r)["number"], userID)
	if err != nil {
		status, msg := httpStatusForErr(err)
		writeError(w, status, msg)
		return
	}
	if history == nil {
		history = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, history)
}
