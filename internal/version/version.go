package version

// Set at build time via -ldflags "-X github.com/yuuki-launcher/yuuki-core/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
