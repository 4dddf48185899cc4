// Package connid provides short, URL-safe connection id generation backed
// by nanoid. Clients are indexed by these ids rather than raw socket
// handles, which keeps registry bookkeeping immune to handle reuse.
package connid

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefix is prepended to every generated id.
var Prefix = "ws-"

// Alphabet defines the character set used for the random portion of the id.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// Generate returns a new unique connection id.
func Generate() (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("connid: %w", err)
	}
	return Prefix + id, nil
}
