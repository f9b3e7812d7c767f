package version

// Version is the dashboard release version. It is set at build time using
// ldflags:
// -ldflags "-X github.com/TheFahmi/binance-trading-bot/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// Header is the HTTP response header the bot API uses to advertise its
// version to connecting dashboards.
const Header = "X-Bot-Version"

// GetVersion returns the current dashboard version.
func GetVersion() string {
	return Version
}
