package handler

import (
	"context"
	"net/http"

	"order-notifier/internal/ports"
)

// ----- Handler: POST /drivers/{driver_id}/online -----

func (handler *GatewayHTTPHandler) handleGoOnline(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var body struct {
		CompanyID string `json:"company_id"`
	}
	if !handler.decodeJSON(ctx, w, r, &body) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()

	res, err := handler.svc.GoOnline(ctx, ports.GoOnlineInput{
		DriverID:  r.PathValue("driver_id"),
		CompanyID: body.CompanyID,
	})
	if err != nil {
		handler.serviceError(ctx, w, "failed to go online", err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, res)
}

// ----- Handler: POST /drivers/{driver_id}/offline -----

func (handler *GatewayHTTPHandler) handleGoOffline(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(handler.withReqID(r.Context(), r), serviceTimeout)
	defer cancel()

	res, err := handler.svc.GoOffline(ctx, r.PathValue("driver_id"))
	if err != nil {
		handler.serviceError(ctx, w, "failed to go offline", err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, res)
}

// ----- Handler: PUT /drivers/{driver_id}/backend -----

func (handler *GatewayHTTPHandler) handleSetBackend(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var body struct {
		BaseURL string `json:"base_url"`
		APIKey  string `json:"api_key"`
	}
	if !handler.decodeJSON(ctx, w, r, &body) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()

	res, err := handler.svc.SetBackend(ctx, ports.SetBackendInput{
		DriverID: r.PathValue("driver_id"),
		BaseURL:  body.BaseURL,
		APIKey:   body.APIKey,
	})
	if err != nil {
		handler.serviceError(ctx, w, "failed to save backend credentials", err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, res)
}
