// Package session assigns a short-lived identifier to each synchronization
// session, used only as the sender's log prefix so that the log lines of
// one run can be told apart. The identifier is not sent to the receiver
// (§5 has no persistent session state to key this against; nothing is
// stored under this identifier once the process exits).
package session

import (
	"fmt"

	"github.com/google/uuid"
)

// NewIdentifier generates a new random session identifier.
func NewIdentifier() (string, error) {
	randomUUID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("unable to generate session identifier: %w", err)
	}
	return randomUUID.String(), nil
}
