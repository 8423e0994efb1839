package observability

import (
	"os"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"media-service/pkg/logger"
)

// StartProfiling 在设置了 PYROSCOPE_SERVER_ADDRESS 时开启持续性能分析
func StartProfiling(appName string) *pyroscope.Profiler {
	addr := os.Getenv("PYROSCOPE_SERVER_ADDRESS")
	if addr == "" {
		return nil
	}

	runtime.SetMutexProfileFraction(5)
	runtime.SetBlockProfileRate(5)

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   addr,
		Tags:            map[string]string{"hostname": hostname()},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileBlockCount,
		},
	})
	if err != nil {
		logger.Warnf("pyroscope start failed addr=%s error=%v", addr, err)
		return nil
	}
	logger.Infof("pyroscope profiling enabled addr=%s app=%s", addr, appName)
	return profiler
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
