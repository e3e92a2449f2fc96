package filter

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"

	"github.com/s0up4200/qbitprune/qbittorrent"
)

const day = 24 * time.Hour

// Filter is a compiled torrent predicate
type Filter struct {
	expression string
	program    *vm.Program
	logger     zerolog.Logger
}

// Expression returns the original filter expression
func (f *Filter) Expression() string {
	return f.expression
}

func (f *Filter) String() string {
	return f.expression
}

// Match evaluates the filter against a torrent. Runtime errors count as no match.
func (f *Filter) Match(torrent *qbittorrent.TorrentInfo, now time.Time) bool {
	result, err := expr.Run(f.program, newEnv(torrent, now))
	if err != nil {
		f.logger.Debug().Err(&EvaluationError{
			Expression: f.expression,
			Torrent:    torrent.Name,
			Err:        err,
		}).Msg("Filter evaluation failed")
		return false
	}

	matched, ok := result.(bool)
	return ok && matched
}

// CompilerOption configures a compiler
type CompilerOption func(*Compiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) CompilerOption {
	return func(c *Compiler) {
		if size > 0 {
			c.cache = newLRUCache[*Filter](size)
		}
	}
}

// WithLogger sets the logger compiled filters report evaluation errors to
func WithLogger(logger zerolog.Logger) CompilerOption {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// Compiler compiles filter expressions into executable filters
type Compiler struct {
	cache  *lruCache[*Filter]
	logger zerolog.Logger
}

// NewCompiler creates a new expr-based filter compiler
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile parses and type-checks an expression against the torrent environment
func (c *Compiler) Compile(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(newEnv(&qbittorrent.TorrentInfo{}, time.Time{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &Filter{
		expression: expression,
		program:    program,
		logger:     c.logger,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Size returns the number of cached filters
func (c *Compiler) Size() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Size()
}

// Variables lists the names available to expressions
func Variables() []string {
	return slices.Sorted(maps.Keys(newEnv(&qbittorrent.TorrentInfo{}, time.Time{})))
}

func newEnv(torrent *qbittorrent.TorrentInfo, now time.Time) map[string]any {
	inactive := max(0, float64(now.Sub(torrent.LastActivity))/float64(day))

	return map[string]any{
		"Name":         torrent.Name,
		"Category":     torrent.Category,
		"Tracker":      torrent.TrackerHost,
		"State":        torrent.State,
		"SavePath":     torrent.SavePath,
		"Size":         torrent.Size,
		"Uploaded":     torrent.Uploaded,
		"Ratio":        torrent.Ratio,
		"SeedDays":     float64(torrent.SeedingTime) / float64(day),
		"InactiveDays": inactive,
		"Tags":         torrent.Tags,

		"hasTag": func(tag string) bool {
			return slices.ContainsFunc(torrent.Tags, func(t string) bool {
				return strings.EqualFold(t, tag)
			})
		},
		"gib": func(n float64) float64 {
			return n * (1 << 30)
		},
	}
}
