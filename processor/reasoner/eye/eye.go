// Package eye runs the EYE reasoner as a subprocess.
package eye

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/c360studio/stbgraph/export"
	"github.com/c360studio/stbgraph/graph"
	"github.com/c360studio/stbgraph/processor/reasoner"
	"github.com/c360studio/stbgraph/source"
	"github.com/cockroachdb/errors"
)

// EngineName identifies the EYE engine.
const EngineName = "eye"

// DefaultBinary is the executable looked up on PATH.
const DefaultBinary = "eye"

// Engine invokes the eye binary once per Reason call.
type Engine struct {
	binary string
	args   []string
	logger *slog.Logger
}

var _ reasoner.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithBinary sets the path of the eye executable.
func WithBinary(path string) Option {
	return func(e *Engine) {
		if path != "" {
			e.binary = path
		}
	}
}

// WithArgs adds arguments placed before the standard flags.
func WithArgs(args ...string) Option {
	return func(e *Engine) {
		e.args = append(e.args, args...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		binary: DefaultBinary,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns EngineName.
func (e *Engine) Name() string {
	return EngineName
}

// Reason writes facts as N-Triples and the rules verbatim to a temporary
// directory, runs eye with --pass-only-new and parses its Turtle output.
func (e *Engine) Reason(ctx context.Context, facts []graph.Quad, rules reasoner.RuleSet) ([]graph.Quad, error) {
	dir, err := os.MkdirTemp("", "stbgraph-eye-*")
	if err != nil {
		return nil, errors.Wrap(err, "create work directory")
	}
	defer os.RemoveAll(dir)

	factsPath := filepath.Join(dir, "facts.nt")
	if err := writeFacts(factsPath, facts); err != nil {
		return nil, err
	}
	rulesPath := filepath.Join(dir, "rules.n3")
	if err := os.WriteFile(rulesPath, []byte(rules.Text), 0o600); err != nil {
		return nil, errors.Wrap(err, "write rules")
	}

	args := append([]string{}, e.args...)
	args = append(args, "--nope", "--quiet", "--pass-only-new", factsPath, rulesPath)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("Running eye", "binary", e.binary, "facts", len(facts))
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, errors.WithHint(
				errors.Wrapf(err, "run %s", e.binary),
				"install EYE or set reasoner.engine to builtin")
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, errors.Wrapf(err, "run %s", e.binary)
		}
		return nil, errors.Wrapf(err, "run %s: %s", e.binary, msg)
	}

	var out []graph.Quad
	for q, err := range source.DecodeTurtle(&stdout) {
		if err != nil {
			return nil, errors.Wrap(err, "parse eye output")
		}
		out = append(out, q)
	}
	return out, nil
}

func writeFacts(path string, facts []graph.Quad) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create facts file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close facts file")
		}
	}()

	if _, err := export.WriteAll(export.NewNTriplesWriter(f), graph.NoErrors(graph.Values(facts))); err != nil {
		return errors.Wrap(err, "write facts")
	}
	return nil
}
