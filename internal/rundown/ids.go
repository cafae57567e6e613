package rundown

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// GenerateID generates a unique identifier for playout-time entities
// (part instances, piece instances, activations, events).
func GenerateID() string {
	return uuid.New().String()
}

// DeriveRundownID derives a stable rundown id from its studio and NRCS
// external id. Repeated ingest of the same external rundown must resolve to
// the same id so its lock key is deterministic before the rundown exists.
func DeriveRundownID(studioID, externalID string) string {
	return hashID("rundown", studioID, externalID)
}

// DerivePlaylistID derives the id of the playlist auto-created for an
// ingested rundown that is not grouped into an existing playlist.
func DerivePlaylistID(studioID, externalID string) string {
	return hashID("playlist", studioID, externalID)
}

// DeriveSegmentID derives a stable segment id within a rundown.
func DeriveSegmentID(rundownID, externalID string) string {
	return hashID("segment", rundownID, externalID)
}

// DerivePartID derives a stable part id within a rundown.
func DerivePartID(rundownID, externalID string) string {
	return hashID("part", rundownID, externalID)
}

// DerivePieceID derives a stable piece id within a part. key is the
// source's own piece identifier, or a name+layer composite when the source
// has none.
func DerivePieceID(partID, key string) string {
	return hashID("piece", partID, key)
}

// hashID produces a short stable hex id from a namespace and components.
// Components are length-prefixed by a zero byte separator so ("a","bc")
// and ("ab","c") cannot collide.
func hashID(namespace string, components ...string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	for _, c := range components {
		h.Write([]byte{0})
		h.Write([]byte(c))
	}
	return hex.EncodeToString(h.Sum(nil))[:24]
}
