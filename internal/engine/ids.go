package engine

import (
	"github.com/google/uuid"
	"github.com/jxskiss/base62"
)

// newID returns a prefixed, url-safe unique id such as "grid_2fJk...".
func newID(prefix string) string {
	u := uuid.New()
	return prefix + "_" + base62.EncodeToString(u[:])
}
