// ABOUTME: Build and product identity for the appliance
// ABOUTME: Version fields are stamped at build time via -ldflags -X
package version

import "fmt"

// Product identity, shown in the CLI and monitor payloads.
const (
	Product      = "CamBox"
	Manufacturer = "CamBox Project"
)

// Stamped by the release build. The defaults identify a development
// build.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String renders the full identity line.
func String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", Product, Version, GitCommit, BuildDate)
}
