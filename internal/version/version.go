// ABOUTME: Version information for oggcast binaries
// ABOUTME: Overridden at build time with -ldflags "-X"
package version

var (
	// Version is the release version
	Version = "0.1.0"

	// Product is reported in /status and the server hello
	Product = "oggcast"

	// Manufacturer identifies the project
	Manufacturer = "Resonate Protocol"
)

// String returns "product version"
func String() string {
	return Product + " " + Version
}
