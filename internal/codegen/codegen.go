// Package codegen produces random shortcode candidates.
package codegen

import (
	"fmt"
	"sync"

	nanoid "github.com/jaevor/go-nanoid"
)

// Alphabet is the 62-character set candidates are drawn from.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultLength is the length of generated codes.
const DefaultLength = 7

// Generator returns uniformly random alphanumeric codes of a fixed length.
// The underlying source is crypto/rand; codes are not enumerable in practice,
// but deployments that treat links as secrets should still prefer longer codes.
type Generator struct {
	mu     sync.Mutex
	next   func() string
	length int
}

// NewGenerator builds a generator for codes of the given length (DefaultLength if <= 0).
func NewGenerator(length int) (*Generator, error) {
	if length <= 0 {
		length = DefaultLength
	}

	next, err := nanoid.CustomASCII(Alphabet, length)
	if err != nil {
		return nil, fmt.Errorf("failed to create code generator: %w", err)
	}

	return &Generator{next: next, length: length}, nil
}

// Generate returns a fresh candidate code.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next()
}

// Length returns the length of generated codes.
func (g *Generator) Length() int {
	return g.length
}
