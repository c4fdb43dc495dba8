package autotrans

// Build metadata. Release builds override these with ldflags:
//
//	go build -ldflags "-X github.com/ZaguanLabs/autotrans.Version=1.0.0"
var (
	// Name is the application name.
	Name = "autotrans"

	// Version is the semantic version.
	Version = "0.1.0"

	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// FullVersion returns the version with the short commit hash appended when known.
func FullVersion() string {
	v := Version
	if GitCommit != "unknown" && GitCommit != "" {
		short := GitCommit
		if len(short) > 7 {
			short = short[:7]
		}
		v += "+" + short
	}
	return v
}

// UserAgent returns the User-Agent sent with backend requests.
func UserAgent() string {
	return Name + "/" + FullVersion()
}
