// Package nanoid generates short url-safe identifiers.
package nanoid

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is the character set of generated ids.
	Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	eventIDSize = 21
	eventPrefix = "evt_"
)

// EventID generates an id for a published event: "evt_" followed by 21
// characters from Alphabet.
func EventID() string {
	return eventPrefix + gonanoid.MustGenerate(Alphabet, eventIDSize)
}
