// Package session resolves the identifier a conversation is stored under.
package session

import (
	"fmt"

	"github.com/google/uuid"
)

// newV7 is swapped in tests to simulate a broken generator.
var newV7 = uuid.NewV7

// Resolve returns requested unchanged when it is set. Otherwise it mints a
// time-ordered UUIDv7 and reports fresh=true.
func Resolve(requested string) (id string, fresh bool, err error) {
	if requested != "" {
		return requested, false, nil
	}
	u, err := newV7()
	if err != nil {
		return "", false, fmt.Errorf("uuid v7 generation is unavailable (%v); use a newer runtime", err)
	}
	return u.String(), true, nil
}
