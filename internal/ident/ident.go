// Package ident generates prefixed identifiers for stored records.
package ident

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a new identifier of the form "<prefix>-<uuid>".
func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
