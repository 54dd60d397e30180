package shared

import "github.com/ricochet2200/go-disk-usage/du"

// AvailableSpace returns the free bytes of the volume holding path.
func AvailableSpace(path string) uint64 {
	usage := du.NewDiskUsage(path)
	return usage.Available()
}
