package buildinfo

import (
	"runtime"
	"runtime/debug"
)

// set with -ldflags "-X ..."
var (
	Version    = "v1.0.0"
	CommitHash = "unknown"
)

type Info struct {
	About      string `json:"about,omitempty"`
	Service    string `json:"service,omitempty"`
	Version    string `json:"version,omitempty"`
	CommitHash string `json:"commit_hash,omitempty"`
	GoVersion  string `json:"go_version,omitempty"`
}

func GetBuildInfo() Info {
	info := Info{
		About:      "https://github.com/ShayBox/VRC-BAN",
		Service:    "VRC-BAN",
		Version:    Version,
		CommitHash: CommitHash,
		GoVersion:  runtime.Version(),
	}
	if info.CommitHash != "unknown" {
		return info
	}
	// fall back to the VCS stamp of "go build"
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				info.CommitHash = s.Value
			}
		}
	}
	return info
}
