package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"banking-ledger/internal/model"
	"banking-ledger/internal/service"
)

// TransactionHandler принимает операции с деньгами
type TransactionHandler struct {
	transactionService *service.TransactionService
	logger             *logrus.Logger
}

func NewTransactionHandler(transactionService *service.TransactionService, logger *logrus.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// RegisterRoutes регистрирует маршруты операций
func (h *TransactionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/transfer", h.handle(h.transactionService.ProcessTransfer)).Methods("POST")
	router.HandleFunc("/deposit", h.handle(h.transactionService.ProcessDeposit)).Methods("POST")
	router.HandleFunc("/withdraw", h.handle(h.transactionService.ProcessWithdrawal)).Methods("POST")
}

type processFunc func(ctx context.Context, req model.TransactionRequest) (*model.Result, error)

func (h *TransactionHandler) handle(process processFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req model.TransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.WithError(err).Warn("Не удалось декодировать запрос на операцию")
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req.ActingUserID = userID

		res, err := process(r.Context(), req)
		if err != nil {
			h.logger.WithError(err).Error("Сбой при обработке операции")
		}
		writeJSON(w, httpStatusForResult(res, err), res)
	}
}
