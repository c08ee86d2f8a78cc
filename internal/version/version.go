package version

import (
	"runtime/debug"
	"strconv"
	"strings"
)

// Version values are set at build time using -ldflags.
var Version = "dev"
var Built = ""
var GitCommit = ""

type VersionInfo struct {
	Version   string `json:"version"`
	Major     int    `json:"major"`
	Minor     int    `json:"minor"`
	Patch     int    `json:"patch"`
	Built     string `json:"built,omitempty"`
	GitCommit string `json:"git_commit,omitempty"`
}

// GetVersionInfo splits Version into its numeric parts. A leading "v" and any
// pre-release suffix are ignored. Without ldflags the commit comes from the
// embedded VCS build info when available.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		Built:     Built,
		GitCommit: GitCommit,
	}
	core := strings.TrimPrefix(Version, "v")
	if cut := strings.IndexAny(core, "-+"); cut >= 0 {
		core = core[:cut]
	}
	parts := strings.SplitN(core, ".", 3)
	numbers := []*int{&info.Major, &info.Minor, &info.Patch}
	for i, part := range parts {
		*numbers[i] = parseInt(part)
	}
	if info.GitCommit == "" {
		info.GitCommit = vcsRevision()
	}
	return info
}

func (info VersionInfo) String() string {
	out := "ariaterm " + info.Version
	if info.GitCommit != "" {
		commit := info.GitCommit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		out += " (" + commit + ")"
	}
	if info.Built != "" {
		out += " built " + info.Built
	}
	return out
}

func vcsRevision() string {
	build, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range build.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}
	return ""
}

func parseInt(value string) int {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
