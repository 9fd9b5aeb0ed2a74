package server

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"

	"github.com/erikmagkekse/vsphere-nfs-ds/model"
	"github.com/erikmagkekse/vsphere-nfs-ds/vsphere"

	"github.com/labstack/echo/v5"
	"github.com/rs/zerolog/log"
)

type Server struct {
	cfg     *model.ServerConfig
	version string
	commit  string
	echo    *echo.Echo
}

func New(cfg *model.ServerConfig, version, commit string) *Server {
	return &Server{cfg: cfg, version: version, commit: commit}
}

func (s *Server) Start(ctx context.Context) {
	e := echo.New()

	e.Use(MetricsMiddleware())

	features := map[string]string{}
	if s.cfg.VSphereHostname != "" {
		features["endpoint"] = s.cfg.VSphereHostname
	}
	if s.cfg.VSphereDatacenter != "" {
		features["datacenter"] = s.cfg.VSphereDatacenter
	}

	// unauthenticated endpoints
	e.GET("/healthz", Healthz(s.version, s.commit, features))
	e.GET("/metrics", MetricsHandler())

	tokens := parseTokens(s.cfg.Tokens)
	if tokens == nil {
		log.Fatal().Msg("no valid API tokens configured")
	}

	h := &Handler{
		Defaults: vsphere.Endpoint{
			Hostname:   s.cfg.VSphereHostname,
			Username:   s.cfg.VSphereUsername,
			Password:   s.cfg.VSpherePassword,
			Insecure:   s.cfg.VSphereInsecure,
			Datacenter: s.cfg.VSphereDatacenter,
		},
	}

	api := e.Group("/v1", AuthMiddleware(tokens))
	api.POST("/reconcile", h.Reconcile)

	s.echo = e

	go func() {
		var err error
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			srv := &http.Server{
				Addr:    s.cfg.ListenAddr,
				Handler: e,
				TLSConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			}
			log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting server with TLS")
			err = srv.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			log.Warn().Str("addr", s.cfg.ListenAddr).Msg("starting server without TLS - set SERVER_TLS_CERT and SERVER_TLS_KEY for production")
			err = e.Start(s.cfg.ListenAddr)
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()
}

// parseTokens parses "name:token,name:token" into map[token]name.
// Returns nil if no valid entry is found.
func parseTokens(s string) map[string]string {
	if s == "" {
		return nil
	}
	m := make(map[string]string)
	for _, entry := range strings.Split(s, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 2)
		if len(parts) == 2 {
			name := strings.TrimSpace(parts[0])
			token := strings.TrimSpace(parts[1])
			if name != "" && token != "" {
				m[token] = name
			}
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
