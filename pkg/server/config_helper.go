package server

import (
	"net/http"

	"github.com/opencitations/ramose/pkg/config"
)

// FromConfig converts a config.ServerConfig into a server.Config. The
// handler is supplied separately since it isn't something a config file
// can express.
func FromConfig(sc config.ServerConfig, handler http.Handler) Config {
	return Config{
		Name:        sc.Name,
		Host:        sc.Host,
		Port:        sc.Port,
		Handler:     handler,
		GZIP:        sc.GZIP,

		SSLCert:         sc.SSLCert,
		SSLKey:          sc.SSLKey,
		SelfSignedSSL:   sc.SelfSignedSSL,
		AutoTLS:         sc.AutoTLS,
		AutoTLSDomains:  sc.AutoTLSDomains,
		AutoTLSCacheDir: sc.AutoTLSCacheDir,
		AutoTLSEmail:    sc.AutoTLSEmail,

		ShutdownTimeout: sc.ShutdownTimeout,
		DrainTimeout:    sc.DrainTimeout,
		ReadTimeout:     sc.ReadTimeout,
		WriteTimeout:    sc.WriteTimeout,
		IdleTimeout:     sc.IdleTimeout,
	}
}
