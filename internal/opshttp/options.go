package opshttp

import (
	"net/http"

	"github.com/keithlinneman/rentwise-web/internal/health"
	"github.com/keithlinneman/rentwise-web/internal/log"
)

type Options struct {
	Port        int
	Logger      log.Logger
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe
	// Info is served at /-/info (build and listing feed identity).
	Info         http.Handler
	UseRecoverMW bool
	OnPanic      func()
}
