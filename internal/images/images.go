package images

// Default container images for the SD-Core workloads this operator manages.
const (
	DefaultNRF = "ghcr.io/canonical/sdcore-nrf:1.6.2"
)

// ImageOrDefault returns the image if non-empty, otherwise the defaultImage.
func ImageOrDefault(image, defaultImage string) string {
	if image != "" {
		return image
	}
	return defaultImage
}
