package job

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// newID generates a job identifier of the form job-<unix>-<hex>,
// e.g. job-1701432000-a1b2c3d4. The timestamp keeps IDs roughly sortable;
// the random suffix keeps same-second requests apart.
func newID() string {
	ts := time.Now().Unix()
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("job-%d", ts)
	}
	return fmt.Sprintf("job-%d-%s", ts, hex.EncodeToString(buf))
}
