package server

import "github.com/erikmagkekse/vsphere-nfs-ds/reconcile"

// request models

type ReconcileRequest struct {
	State string `json:"state"`
	reconcile.Request
	Endpoint *EndpointOverride `json:"endpoint,omitempty"`
}

// EndpointOverride lets a request target a different vSphere endpoint
// than the one the server was configured with. Unset fields fall back to
// the server defaults.
type EndpointOverride struct {
	Hostname   string `json:"hostname,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	Insecure   *bool  `json:"insecure,omitempty"`
	Datacenter string `json:"datacenter,omitempty"`
}

// response models

type ReconcileResponse struct {
	Changed bool   `json:"changed"`
	Result  string `json:"result,omitempty"`
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Commit        string            `json:"commit"`
	UptimeSeconds int               `json:"uptime_seconds"`
	Features      map[string]string `json:"features"`
}

type ErrorResponse struct {
	Msg  string `json:"msg"`
	Code string `json:"code"`
}
