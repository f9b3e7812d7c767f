package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckAPICompatibility checks whether the dashboard can talk to a bot
// deployment advertising the given version. Returns nil if compatible.
//
// Compatibility rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
func CheckAPICompatibility(dashboardVersion, botVersion string) error {
	dashboardVersion = strings.TrimPrefix(dashboardVersion, "v")
	botVersion = strings.TrimPrefix(botVersion, "v")

	// development builds skip the check
	if dashboardVersion == "main" || botVersion == "main" {
		return nil
	}

	dashboardSemver, err := semver.NewVersion(dashboardVersion)
	if err != nil {
		return fmt.Errorf("invalid dashboard version '%s': %w", dashboardVersion, err)
	}

	botSemver, err := semver.NewVersion(botVersion)
	if err != nil {
		return fmt.Errorf("invalid bot version '%s': %w", botVersion, err)
	}

	if dashboardSemver.Major() != botSemver.Major() {
		return fmt.Errorf("major version mismatch: dashboard is %d.x.x but the bot serves %d.x.x",
			dashboardSemver.Major(), botSemver.Major())
	}

	if dashboardSemver.Minor() != botSemver.Minor() {
		return fmt.Errorf("minor version mismatch: dashboard is %d.%d.x but the bot serves %d.%d.x",
			dashboardSemver.Major(), dashboardSemver.Minor(),
			botSemver.Major(), botSemver.Minor())
	}

	// patch versions can differ
	return nil
}
