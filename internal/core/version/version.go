// Package version provides information about the build version of the service.
package version

// BuildInfo holds version information about the service build.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information for the named binary. The version, commit,
// and date variables are set at build time using -ldflags:
//
//	-X 'scorekeeper/internal/core/version.version=v0.1.0'
//	-X 'scorekeeper/internal/core/version.commit=abcd'
func Info(service string) BuildInfo {
	if service == "" {
		service = "scorekeeper"
	}
	return BuildInfo{
		Service: service,
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// UserAgent renders the identifier sent to upstream APIs
func UserAgent(service string) string {
	bi := Info(service)
	return bi.Service + "/" + bi.Version
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
