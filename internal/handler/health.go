package handler

import (
	"net/http"

	"github.com/cradoe/galpe/internal/errHandler"
	"github.com/cradoe/galpe/internal/response"
	"github.com/cradoe/galpe/internal/version"
)

type healthCheckHandler struct {
	err *errHandler.ErrorHandler
}

func NewHealthCheckHandler(err *errHandler.ErrorHandler) *healthCheckHandler {
	return &healthCheckHandler{
		err: err,
	}
}

func (app *healthCheckHandler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	message := "Up and grateful"

	data := map[string]any{
		"version": version.Get(),
	}

	err := response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		app.err.ServerError(w, r, err)
	}
}
