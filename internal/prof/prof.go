// Package prof starts the optional Pyroscope continuous profiler.
package prof

import (
	"context"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"github.com/keithlinneman/rentwise-web/internal/log"
	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

type Options struct {
	Enabled       bool
	AppName       string
	ServerAddress string
	AuthToken     string
	TenantID      string
	Tags          map[string]string
	// MutexFraction and BlockRate enable the contention profiles when > 0.
	MutexFraction int
	BlockRate     int
}

var baseProfiles = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

// profileTypes only asks for mutex/block profiles the runtime will populate.
func profileTypes(o Options) []pyroscope.ProfileType {
	out := append([]pyroscope.ProfileType(nil), baseProfiles...)
	if o.MutexFraction > 0 {
		out = append(out, pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration)
	}
	if o.BlockRate > 0 {
		out = append(out, pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration)
	}
	return out
}

// Start returns a stop func that is always safe to call, even on error.
func Start(ctx context.Context, o Options) (func(), error) {
	L := log.FromContext(ctx)
	noop := func() {}

	if !o.Enabled {
		L.Debug(ctx, "pyroscope disabled")
		return noop, nil
	}
	if o.ServerAddress == "" {
		return noop, xerrors.New("pyroscope server address is empty")
	}

	if o.MutexFraction > 0 {
		runtime.SetMutexProfileFraction(o.MutexFraction)
	}
	if o.BlockRate > 0 {
		runtime.SetBlockProfileRate(o.BlockRate)
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   o.AppName,
		ServerAddress:     o.ServerAddress,
		BasicAuthPassword: o.AuthToken,
		TenantID:          o.TenantID,
		Tags:              o.Tags,
		ProfileTypes:      profileTypes(o),
	})
	if err != nil {
		return noop, xerrors.Wrapf(err, "pyroscope start server=%s", o.ServerAddress)
	}

	L.Info(ctx, "pyroscope started", "server_address", o.ServerAddress, "app_name", o.AppName)
	return func() {
		if err := profiler.Stop(); err != nil {
			L.Warn(context.Background(), "pyroscope stop", "error", err.Error())
			return
		}
		L.Info(context.Background(), "pyroscope stopped")
	}, nil
}
