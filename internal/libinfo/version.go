/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo provides build information of the module (version, user agent, Prometheus label).
package libinfo

import (
	"debug/buildinfo"
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const shortName = "apisched"

const moduleName = "github.com/statwatch/" + shortName

// PrometheusVersionLabel is the name of the const label added to the exported metrics.
const PrometheusVersionLabel = "apisched_version"

// AddPrometheusVersionLabel returns a copy of labels extended with the version label.
func AddPrometheusVersionLabel(labels prometheus.Labels) prometheus.Labels {
	labelsCopy := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		labelsCopy[k] = v
	}
	labelsCopy[PrometheusVersionLabel] = GetVersion()
	return labelsCopy
}

var version string
var versionOnce sync.Once

// GetVersion returns the module version, "v0.0.0" if it cannot be determined.
func GetVersion() string {
	versionOnce.Do(initVersion)
	return version
}

// UserAgent returns the default User-Agent for outbound requests.
func UserAgent() string {
	return shortName + "/" + GetVersion()
}

func initVersion() {
	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		version = extractVersion(buildInfo, moduleName)
	}
	if version == "" || version == "(devel)" {
		version = "v0.0.0"
	}
}

// extractVersion extracts the version of the given module from the build info.
// The module may be either the main module (binary built from this repository)
// or a dependency in the form "moduleName" or "moduleName/vX".
func extractVersion(buildInfo *buildinfo.BuildInfo, modName string) string {
	if buildInfo == nil {
		return ""
	}
	re, err := regexp.Compile(`^` + regexp.QuoteMeta(modName) + `(/v[0-9]+)?$`)
	if err != nil {
		return "" // should never happen
	}
	if re.MatchString(buildInfo.Main.Path) {
		return buildInfo.Main.Version
	}
	for _, dep := range buildInfo.Deps {
		if re.MatchString(dep.Path) {
			return dep.Version
		}
	}
	return ""
}
