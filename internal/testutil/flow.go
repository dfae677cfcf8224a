package testutil

// FixedAttemptGenerator generates the same attempt id every time.
//
// This keeps join-log golden files byte-identical across runs.
//
// Unlike engine.FixedGenerator which returns ids in sequence, this generator
// always returns the same id.
//
// Thread-safety: FixedAttemptGenerator is stateless and safe for concurrent use.
type FixedAttemptGenerator struct {
	id string
}

// NewFixedAttemptGenerator creates a new fixed attempt id generator.
//
// If id is empty, Generate() returns "test-attempt-default".
func NewFixedAttemptGenerator(id string) *FixedAttemptGenerator {
	if id == "" {
		id = "test-attempt-default"
	}
	return &FixedAttemptGenerator{id: id}
}

// Generate returns the fixed attempt id.
//
// Implements engine.AttemptIDGenerator.
func (g *FixedAttemptGenerator) Generate() string {
	return g.id
}
