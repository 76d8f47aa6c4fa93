package export

import (
	"runtime"
	"runtime/debug"
)

type goRuntime struct {
	Implementation string `json:"implementation"`
	Version        string `json:"version"`
}

type runtimeInfo struct {
	Dependencies map[string]string `json:"dependencies"`
	Go           goRuntime         `json:"go"`
}

// runtimeSection reports the toolchain and module dependency versions the
// snapshot was produced with.
func runtimeSection() runtimeInfo {
	deps := map[string]string{}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			deps[dep.Path] = dep.Version
		}
	}
	return runtimeInfo{
		Dependencies: deps,
		Go: goRuntime{
			Implementation: runtime.Compiler,
			Version:        runtime.Version(),
		},
	}
}
