// Package rest holds the response helpers shared by the HTTP handlers.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cardledger/payments-service/internal/application"
	"github.com/cardledger/payments-service/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	if errors.Is(err, domain.ErrCardNotFound) {
		WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: domain.MsgCardNotFound})
		return
	}

	if svcErr, ok := application.IsServiceError(err); ok {
		if svcErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error("request failed", "code", svcErr.Code, "error", err)
		}
		WriteJSON(w, svcErr.HTTPStatus, ErrorResponse{Error: svcErr.Message})
		return
	}

	logger.Error("request failed", "error", err)
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
