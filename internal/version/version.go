// Package version reports the build of the running globsync binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	AppName    = "globsync"
	devVersion = "0.1.0-dev"
	unknownRev = "HEAD"
)

// Set with -ldflags "-X github.com/openmined/globsync/internal/version.Version=..." by release builds.
var (
	Version   = devVersion
	Revision  = unknownRev
	BuildDate = ""
)

// Info describes the running build
type Info struct {
	Version   string
	Revision  string
	BuildDate string
	GoVersion string
	Platform  string
}

// Current returns the build info after ldflags and module build metadata are applied
func Current() Info {
	return Info{
		Version:   Version,
		Revision:  Revision,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders `0.1.0 (5e23a4; go1.23.6; linux/amd64; 2025-12-12T01:00:00Z)`
func (i Info) String() string {
	return fmt.Sprintf("%s (%s; %s; %s; %s)", i.Version, i.Revision, i.GoVersion, i.Platform, i.BuildDate)
}

// WithApp prefixes String with the application name
func (i Info) WithApp() string {
	return AppName + " " + i.String()
}

// applyBuildInfo fills whatever ldflags left at its default from the module build metadata
func applyBuildInfo(mainVersion string, settings map[string]string) {
	if (Version == devVersion || Version == "") && mainVersion != "" && mainVersion != "(devel)" {
		Version = strings.TrimPrefix(mainVersion, "v")
	}

	if rev := settings["vcs.revision"]; rev != "" && (Revision == unknownRev || Revision == "") {
		if settings["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Revision = rev
	}

	if BuildDate == "" {
		BuildDate = settings["vcs.time"]
	}
}

func init() {
	if info, ok := debug.ReadBuildInfo(); ok && info != nil {
		settings := make(map[string]string, len(info.Settings))
		for _, s := range info.Settings {
			settings[s.Key] = s.Value
		}
		applyBuildInfo(info.Main.Version, settings)
	}

	if BuildDate == "" {
		BuildDate = time.Now().UTC().Format(time.RFC3339)
	}
}
