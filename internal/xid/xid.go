package xid

import "github.com/google/uuid"

// New returns a prefixed random id such as "sale-3f2b...".
func New(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
