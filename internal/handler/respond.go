package handler

import (
	"encoding/json"
	"net/http"

	"banking-ledger/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

const msgInternal = "Internal server error"

// httpStatusForErr переводит ошибку сервиса в HTTP статус и сообщение для клиента.
// Внутренние подробности наружу не попадают.
func httpStatusForErr(err error) (int, string) {
	rej, ok := model.AsRejection(err)
	if !ok {
		return http.StatusInternalServerError, msgInternal
	}
	switch {
	case rej == model.ErrAccountNotFound:
		return http.StatusNotFound, rej.ClientMessage
	case rej.Unprocessable:
		return http.StatusUnprocessableEntity, rej.ClientMessage
	default:
		return http.StatusBadRequest, rej.ClientMessage
	}
}

// httpStatusForResult - статус ответа на операцию с деньгами
func httpStatusForResult(res *model.Result, err error) int {
	switch {
	case err != nil, res.AuditGap:
		return http.StatusInternalServerError
	case res.Status == model.TransactionStatusSuccessful:
		return http.StatusCreated
	case res.Unprocessable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
