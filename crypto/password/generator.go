// Package password generates the random passwords that protect shared key
// envelopes.
package password

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	z "github.com/Oudwins/zog"
)

const (
	lowercase = "abcdefghijklmnopqrstuvwxyz"
	uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numbers   = "0123456789"
	symbols   = "!@#$%^&*()+_-=}{[]|:;\"/?.><,`~"
	similar   = "ilLI|`oO0"

	// maxLetterRun is the longest run of letters ExcludeWords allows.
	maxLetterRun = 3
	maxAttempts  = 64
)

// Options controls password shape.
type Options struct {
	Length         int
	Lowercase      bool
	Uppercase      bool
	Numbers        bool
	Symbols        bool
	ExcludeSimilar bool
	// Strict requires at least one character from every enabled class.
	Strict bool
	// ExcludeWords caps letter runs at three characters, so no word longer
	// than that can appear. Needs numbers or symbols enabled.
	ExcludeWords bool
}

// DefaultOptions returns the options used for sharing passwords.
func DefaultOptions() Options {
	return Options{
		Length:         20,
		Lowercase:      true,
		Uppercase:      true,
		Numbers:        true,
		Symbols:        true,
		ExcludeSimilar: true,
		Strict:         true,
		ExcludeWords:   true,
	}
}

var optionsSchema = z.Struct(z.Shape{
	"length": z.Int().
		GTE(4, z.Message("password length must be at least 4")).
		LTE(256, z.Message("password length must not exceed 256")),
})

// Validate checks the options describe a producible password.
func (o Options) Validate() error {
	if errs := optionsSchema.Validate(&o); len(errs) > 0 {
		return fmt.Errorf("invalid password options: %v", errs)
	}
	classes := o.classes()
	if len(classes) == 0 {
		return fmt.Errorf("invalid password options: at least one character class must be enabled")
	}
	if o.ExcludeWords && !o.Numbers && !o.Symbols {
		return fmt.Errorf("invalid password options: excluding words requires numbers or symbols")
	}
	if o.Strict && o.Length < len(classes) {
		return fmt.Errorf("invalid password options: length %d cannot hold %d required classes", o.Length, len(classes))
	}
	return nil
}

func (o Options) classes() []string {
	var out []string
	add := func(enabled bool, set string) {
		if !enabled {
			return
		}
		if o.ExcludeSimilar {
			set = strings.Map(func(r rune) rune {
				if strings.ContainsRune(similar, r) {
					return -1
				}
				return r
			}, set)
		}
		out = append(out, set)
	}
	add(o.Lowercase, lowercase)
	add(o.Uppercase, uppercase)
	add(o.Numbers, numbers)
	add(o.Symbols, symbols)
	return out
}

// Generator draws passwords from a random source.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a generator reading from r, or crypto/rand when r is
// nil.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// Generate returns a password shaped by opts.
func (g *Generator) Generate(opts Options) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}

	classes := opts.classes()
	pool := strings.Join(classes, "")
	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := g.draw(opts, classes, pool)
		if err != nil {
			return "", err
		}
		if !opts.ExcludeWords || !hasLetterRun(out) {
			return string(out), nil
		}
	}
	return "", fmt.Errorf("no password without letter runs after %d attempts", maxAttempts)
}

func (g *Generator) draw(opts Options, classes []string, pool string) ([]byte, error) {
	out := make([]byte, 0, opts.Length)
	if opts.Strict {
		for _, set := range classes {
			c, err := g.pick(set)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	for len(out) < opts.Length {
		c, err := g.pick(pool)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	if opts.Strict {
		if err := g.shuffle(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func hasLetterRun(b []byte) bool {
	run := 0
	for _, c := range b {
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			run++
			if run > maxLetterRun {
				return true
			}
			continue
		}
		run = 0
	}
	return false
}

func (g *Generator) pick(set string) (byte, error) {
	i, err := g.intn(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func (g *Generator) shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := g.intn(i + 1)
		if err != nil {
			return err
		}
		b[i], b[j] = b[j], b[i]
	}
	return nil
}

// intn returns a uniform value in [0, n) for n <= 256 by rejection sampling.
func (g *Generator) intn(n int) (int, error) {
	limit := 256 - 256%n
	var buf [1]byte
	for {
		if _, err := io.ReadFull(g.rand, buf[:]); err != nil {
			return 0, fmt.Errorf("failed to read random byte: %w", err)
		}
		if int(buf[0]) < limit {
			return int(buf[0]) % n, nil
		}
	}
}
