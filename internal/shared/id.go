package shared

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a prefixed identifier such as "AST-1b9d6bcd". Prefixes keep
// the records human-readable in exports and audit trails; the uuid suffix
// keeps them collision free without a database sequence.
func NewID(prefix string) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(suffix))
}
