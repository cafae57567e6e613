package timeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ContentHash returns a stable digest of the flattened object list.
// Two generations over identical state must hash identically so the
// publisher can suppress redundant writes and MQTT traffic.
func ContentHash(objs []Obj) string {
	h := sha256.New()
	fmt.Fprintf(h, "count:%d\n", len(objs))
	for i := range objs {
		// Objects are already in deterministic document order.
		b, err := json.Marshal(&objs[i])
		if err != nil {
			// Obj contains only JSON-safe fields; marshal cannot fail
			// unless Content holds a non-serialisable value, in which
			// case the id still contributes to the digest.
			fmt.Fprintf(h, "obj:%s:unmarshalable\n", objs[i].ID)
			continue
		}
		h.Write(b)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
