package version

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/vanderheijden86/menuadmin/pkg/version.Version=v1.2.3".
var Version = "v0.1.0-dev"

// UserAgent is sent with every API request.
func UserAgent() string {
	return "menuadmin/" + Version
}
