package web

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"chatwire/pkg/apperror"
)

type errorBody struct {
	Code    apperror.Code `json:"code"`
	Message string        `json:"message"`
	Detail  string        `json:"detail,omitempty"`
}

type Responder struct {
	log         *zap.Logger
	development bool
}

func NewResponder(log *zap.Logger, development bool) *Responder {
	return &Responder{log: log, development: development}
}

func (r *Responder) JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			r.log.Warn("encode response", zap.Error(err))
		}
	}
}

// Error maps an error to its HTTP status and a caller-safe body. The
// underlying cause is logged, and serialized only in development mode.
func (r *Responder) Error(w http.ResponseWriter, err error) {
	code := apperror.CodeOf(err)
	status := code.HTTPStatus()

	body := errorBody{Code: code, Message: apperror.MessageOf(err)}
	if r.development {
		body.Detail = err.Error()
	}
	if status >= http.StatusInternalServerError {
		r.log.Error("request failed", zap.String("code", string(code)), zap.Error(err))
	} else {
		r.log.Debug("request rejected", zap.String("code", string(code)), zap.Error(err))
	}

	r.JSON(w, status, body)
}
