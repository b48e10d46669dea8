// Package build provides values that are set at build-time with the -X
// ldflag, e.g.
//
//	go build -ldflags "-X github.com/lone-faerie/lenconv/internal/build.version=v1.2.0"
//
// Values that are not given at build-time are taken from [debug.BuildInfo].
package build

import (
	"regexp"
	"runtime/debug"
	"strings"
	"sync"
)

var (
	pkg       string
	version   string
	buildTime string
)

var once sync.Once

var semverRe = regexp.MustCompile(`v?\d+(\.\d+){0,2}`)

func semver(v string) string {
	loc := semverRe.FindStringIndex(v)
	if loc == nil {
		return v
	}
	return v[loc[0]:loc[1]]
}

func load() {
	if version != "" {
		version = semver(version)
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if pkg == "" {
		pkg = info.Main.Path
	}
	if version == "" {
		version = info.Main.Version
	}
	if buildTime != "" {
		return
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.time" {
			buildTime = s.Value
			if t, ok := strings.CutSuffix(buildTime, "Z"); ok {
				buildTime = t + "+00:00"
			}
			break
		}
	}
}

// Package returns the module path, e.g. "github.com/lone-faerie/lenconv".
func Package() string {
	once.Do(load)
	return pkg
}

func Version() string {
	once.Do(load)
	return version
}

func BuildTime() string {
	once.Do(load)
	return buildTime
}
