package deploy

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NameGenerator produces job names that are unique per submission.
// Remote job names must not collide with prior runs, so a uuid suffix
// disambiguates even when two names are generated within the same
// clock tick.
type NameGenerator struct {
	Now func() time.Time
}

// JobName returns "<prefix>-<timestamp>-<uuid8>", trimmed to the 63-char
// limit the compilation and packaging services impose.
func (g NameGenerator) JobName(prefix string) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	suffix := strings.Split(uuid.New().String(), "-")[0]
	stamp := now().UTC().Format("20060102-150405")

	// Trim the prefix, never the suffix: uniqueness lives in the uuid part.
	if max := 63 - len(stamp) - len(suffix) - 2; len(prefix) > max {
		prefix = prefix[:max]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, stamp, suffix)
}
