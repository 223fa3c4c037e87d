package config

import (
	"fmt"
	"strings"
)

type EnvVars struct {
	AppName     string `env:"APP_NAME" default:"SSE Forum"`
	Env         string `env:"ENV" default:"DEV"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	PortOAuth   string `env:"PORT_OAUTH" default:"8443"`
	PortWS      string `env:"PORT_WS" default:"8444"`
	WSHost      string `env:"WS_HOST"`
	TLSCertFile string `env:"TLS_CERT_FILE"`
	TLSKeyFile  string `env:"TLS_KEY_FILE"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) GetPort() string {
	return listenAddr(e.PortOAuth)
}

func (e EnvVars) GetWSPort() string {
	return listenAddr(e.PortWS)
}

// GetWSHost is the host:port the browser dials for the forum websocket.
func (e EnvVars) GetWSHost() string {
	if e.WSHost != "" {
		return e.WSHost
	}
	return "localhost" + e.GetWSPort()
}

func (e EnvVars) GetTLSFiles() (string, string, bool) {
	return e.TLSCertFile, e.TLSKeyFile, e.TLSCertFile != "" && e.TLSKeyFile != ""
}

func listenAddr(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
