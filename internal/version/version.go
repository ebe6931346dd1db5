package version

// Set at build time with
// -ldflags "-X github.com/trn-tools/trn-cli/internal/version.Version=... -X .../version.Commit=..."
var (
	Version = "dev"
	Commit  = "none"
)

func GetVersion() string {
	return Version
}

func GetCommit() string {
	return Commit
}
