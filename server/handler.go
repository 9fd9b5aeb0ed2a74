package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/erikmagkekse/vsphere-nfs-ds/model"
	"github.com/erikmagkekse/vsphere-nfs-ds/reconcile"
	"github.com/erikmagkekse/vsphere-nfs-ds/vsphere"

	"github.com/labstack/echo/v5"
	"github.com/rs/zerolog/log"
)

// DialFunc opens a session for one reconcile call. The default uses
// vsphere.Dial; tests substitute a fake.
type DialFunc func(ctx context.Context, ep vsphere.Endpoint) (vsphere.API, func(context.Context) error, error)

func defaultDial(ctx context.Context, ep vsphere.Endpoint) (vsphere.API, func(context.Context) error, error) {
	c, err := vsphere.Dial(ctx, ep)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

type Handler struct {
	Defaults vsphere.Endpoint
	Dial     DialFunc
}

func (h *Handler) dial() DialFunc {
	if h.Dial != nil {
		return h.Dial
	}
	return defaultDial
}

// Reconcile handles POST /v1/reconcile. Each request gets its own
// session, logged out when the reconciliation finishes.
func (h *Handler) Reconcile(c *echo.Context) error {
	var req ReconcileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "invalid request body", Code: "BAD_REQUEST"})
	}

	state, err := model.ParseState(req.State)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Msg: err.Error(), Code: "BAD_REQUEST"})
	}

	ep := h.Defaults
	if o := req.Endpoint; o != nil {
		if o.Hostname != "" {
			ep.Hostname = o.Hostname
		}
		if o.Username != "" {
			ep.Username = o.Username
		}
		if o.Password != "" {
			ep.Password = o.Password
		}
		if o.Insecure != nil {
			ep.Insecure = *o.Insecure
		}
		if o.Datacenter != "" {
			ep.Datacenter = o.Datacenter
		}
	}
	if ep.Hostname == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "no vSphere endpoint configured", Code: "BAD_REQUEST"})
	}

	ctx := c.Request().Context()
	api, closeSession, err := h.dial()(ctx, ep)
	if err != nil {
		return faultError(c, err)
	}
	defer func() {
		if err := closeSession(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("session logout failed")
		}
	}()

	res, err := reconcile.Reconcile(ctx, api, state, req.Request)
	if err != nil {
		var ire *reconcile.InvalidRequestError
		if errors.As(err, &ire) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Msg: err.Error(), Code: "BAD_REQUEST"})
		}
		return faultError(c, err)
	}

	return c.JSON(http.StatusOK, ReconcileResponse{Changed: res.Changed, Result: res.Detail})
}

var kindStatus = map[vsphere.Kind]int{
	vsphere.KindNotFound:     http.StatusNotFound,
	vsphere.KindMethodFault:  http.StatusUnprocessableEntity,
	vsphere.KindRuntimeFault: http.StatusBadGateway,
}

func faultError(c *echo.Context, err error) error {
	kind := vsphere.KindOf(err)
	status, found := kindStatus[kind]
	if !found {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, ErrorResponse{Msg: err.Error(), Code: string(kind)})
}
