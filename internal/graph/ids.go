package graph

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// NodeID derives a stable node id from the project and relative path
func NodeID(projectID, relPath string) string {
	return fmt.Sprintf("n_%016x", xxhash.Sum64String(projectID+"\x00"+relPath))
}

// EdgeID derives a stable edge id from its endpoints
func EdgeID(sourceID, targetID string) string {
	return fmt.Sprintf("e_%016x", xxhash.Sum64String(sourceID+"\x00"+targetID))
}
