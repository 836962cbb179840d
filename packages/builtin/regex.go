package builtin

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/lucasjones/reggen"
)

// DefaultMaxRepeat bounds open-ended repetition (*, +, {n,}).
const DefaultMaxRepeat = 10

// Generator produces random strings matching a regular expression.
type Generator struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	maxRepeat int
}

type GeneratorOption func(*Generator)

// WithSeed makes generation deterministic.
func WithSeed(seed int64) GeneratorOption {
	return func(g *Generator) {
		g.rnd = rand.New(rand.NewSource(seed))
	}
}

func WithMaxRepeat(n int) GeneratorOption {
	return func(g *Generator) {
		g.maxRepeat = n
	}
}

func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		maxRepeat: DefaultMaxRepeat,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a random string matched by pattern. Anchors and word
// boundaries are accepted and produce no output.
func (g *Generator) Generate(pattern string) (string, error) {
	gen, err := reggen.NewGenerator(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	g.mu.Lock()
	seed := g.rnd.Int63()
	g.mu.Unlock()

	gen.SetSeed(seed)
	return gen.Generate(g.maxRepeat), nil
}

func (g *Generator) int63n(n int64) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Int63n(n)
}

func (g *Generator) float64() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Float64()
}

// pick returns n characters drawn from charset.
func (g *Generator) pick(charset string, n int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = charset[g.rnd.Intn(len(charset))]
	}
	return string(b)
}
