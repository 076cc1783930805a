// Package wilayah turns the Indonesian administrative-code dump (wilayah.sql)
// into a tree of JSON files, one per hierarchy level and parent code:
//
//	data/states.json
//	data/cities/<state-code>.json
//	data/districts/<city-code>.json
//	data/villages/<district-code>.json
//
// The dump is fetched, scanned for ('<code>','<value>') tuples, bucketed by the
// number of dots in each code, and serialized. Each stage runs once, in order.
package wilayah

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultSourceURL is the upstream location of the dump.
	DefaultSourceURL = "https://raw.githubusercontent.com/cahyadsn/wilayah/master/db/wilayah.sql"
	// DefaultDumpName is used when the source URL has no usable file name.
	DefaultDumpName = "wilayah.sql"
	DefaultRawDir   = "raw"
	DefaultDataDir  = "data"
)

// Config contains the options for a pipeline run.
type Config struct {
	SourceURL   string        // Dump location (default: DefaultSourceURL)
	RawDir      string        // Directory for the raw copy (default: "raw")
	DataDir     string        // Output root for the default filesystem store (default: "data")
	Offline     bool          // Reuse an existing raw copy instead of downloading
	HTTPTimeout time.Duration // Per-download limit (default: 5m)
	HTTPClient  *http.Client  // Overrides HTTPTimeout when set
	Store       Store         // Output destination (default: FSStore at DataDir)
	Logger      *zap.Logger   // Structured logs (default: no-op)
	Output      io.Writer     // Progress lines (default: io.Discard)
	Metrics     *Metrics      // Run counters (default: a fresh private registry)
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Config)

// WithSourceURL sets the dump location.
func WithSourceURL(u string) Option {
	return func(c *Config) { c.SourceURL = u }
}

// WithRawDir sets the directory the raw dump is saved to.
func WithRawDir(dir string) Option {
	return func(c *Config) { c.RawDir = dir }
}

// WithDataDir sets the output root of the default filesystem store.
// It has no effect when WithStore is also given.
func WithDataDir(dir string) Option {
	return func(c *Config) { c.DataDir = dir }
}

// WithOffline skips the download when the raw copy already exists.
func WithOffline(offline bool) Option {
	return func(c *Config) { c.Offline = offline }
}

// WithHTTPTimeout bounds the download.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Config) { c.HTTPTimeout = d }
}

// WithHTTPClient sets the client used for the download.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithStore sets where the JSON documents are written.
func WithStore(s Store) Option {
	return func(c *Config) { c.Store = s }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithOutput sets the writer for human-readable progress lines.
func WithOutput(w io.Writer) Option {
	return func(c *Config) { c.Output = w }
}

// WithMetrics sets the metrics the run reports into.
func WithMetrics(m *Metrics) Option {
	return func(c *Config) { c.Metrics = m }
}

func defaultConfig() *Config {
	return &Config{
		SourceURL:   DefaultSourceURL,
		RawDir:      DefaultRawDir,
		DataDir:     DefaultDataDir,
		HTTPTimeout: defaultHTTPTimeout,
		Logger:      zap.NewNop(),
		Output:      io.Discard,
	}
}

// Pipeline runs fetch, extract, classify and write for one dump.
type Pipeline struct {
	config  *Config
	client  *http.Client
	store   Store
	logger  *zap.Logger
	out     io.Writer
	metrics *Metrics
}

// New creates a Pipeline. Unless WithStore is given, the output directories
// under DataDir are created here.
func New(opts ...Option) (*Pipeline, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.SourceURL == "" {
		return nil, errors.New("wilayah: empty source URL")
	}

	p := &Pipeline{
		config:  cfg,
		client:  cfg.HTTPClient,
		store:   cfg.Store,
		logger:  cfg.Logger,
		out:     cfg.Output,
		metrics: cfg.Metrics,
	}
	if p.client == nil {
		p.client = newHTTPClient(cfg.HTTPTimeout)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.out == nil {
		p.out = io.Discard
	}
	if p.metrics == nil {
		p.metrics = NewMetrics()
	}
	if p.store == nil {
		fs, err := NewFSStore(cfg.DataDir, City.Dir(), District.Dir(), Village.Dir())
		if err != nil {
			return nil, err
		}
		p.store = fs
	}
	return p, nil
}

// RawPath returns where the raw dump is stored.
func (p *Pipeline) RawPath() string {
	return filepath.Join(p.config.RawDir, dumpName(p.config.SourceURL))
}

// Summary reports what a run produced.
type Summary struct {
	States    int // entries in states.json
	Cities    int // files under cities/
	Districts int // files under districts/
	Villages  int // files under villages/
	Skipped   int // tuples with a non-numeric code
	Rejected  int // numeric codes outside the four-level model
	Duration  time.Duration
}

// Print writes the completion report.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "\nData extraction complete!")
	fmt.Fprintf(w, "States: %d entries\n", s.States)
	fmt.Fprintf(w, "Cities: %d files\n", s.Cities)
	fmt.Fprintf(w, "Districts: %d files\n", s.Districts)
	fmt.Fprintf(w, "Villages: %d files\n", s.Villages)
}

// Run executes the pipeline with the given options.
func Run(ctx context.Context, opts ...Option) (Summary, error) {
	p, err := New(opts...)
	if err != nil {
		return Summary{}, err
	}
	return p.Run(ctx)
}

// Run fetches the dump, classifies its records and writes the JSON tree.
// Any error aborts the run; documents written before the error remain.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	s, err := p.run(ctx)
	s.Duration = time.Since(start)
	p.metrics.observeRun(s.Duration, err)
	if err != nil {
		p.logger.Error("run failed",
			zap.String("store", string(p.store.Driver())),
			zap.Error(err),
			zap.Duration("duration", s.Duration),
		)
		return s, err
	}
	p.logger.Info("run complete",
		zap.String("store", string(p.store.Driver())),
		zap.Int("states", s.States),
		zap.Int("city_files", s.Cities),
		zap.Int("district_files", s.Districts),
		zap.Int("village_files", s.Villages),
		zap.Int("skipped", s.Skipped),
		zap.Int("rejected", s.Rejected),
		zap.Duration("duration", s.Duration),
	)
	return s, nil
}

func (p *Pipeline) run(ctx context.Context) (Summary, error) {
	var s Summary
	rawPath := p.RawPath()
	if err := p.fetch(ctx, rawPath); err != nil {
		return s, err
	}

	b, skipped, err := p.parse(rawPath)
	if err != nil {
		return s, err
	}
	s.States = len(b.States)
	s.Skipped = skipped
	s.Rejected = len(b.Rejected)

	counts, err := p.write(ctx, b)
	s.Cities, s.Districts, s.Villages = counts[City], counts[District], counts[Village]
	return s, err
}

func (p *Pipeline) fetch(ctx context.Context, rawPath string) error {
	name := filepath.Base(rawPath)
	if p.config.Offline {
		if _, err := os.Stat(rawPath); err == nil {
			fmt.Fprintf(p.out, "Using existing %s...\n", name)
			p.logger.Info("using existing raw copy", zap.String("path", rawPath))
			return nil
		}
		p.logger.Info("raw copy missing, downloading", zap.String("path", rawPath))
	}

	fmt.Fprintf(p.out, "Downloading %s...\n", name)
	p.logger.Info("downloading dump", zap.String("url", p.config.SourceURL), zap.String("path", rawPath))
	if err := Fetch(ctx, p.client, p.config.SourceURL, rawPath); err != nil {
		return fmt.Errorf("downloading %s: %w", name, err)
	}
	return nil
}

func (p *Pipeline) parse(rawPath string) (*Buckets, int, error) {
	fmt.Fprintf(p.out, "Processing %s...\n", filepath.Base(rawPath))

	fi, err := os.Open(rawPath)
	if err != nil {
		return nil, 0, fmt.Errorf("reading raw dump: %w", err)
	}
	defer fi.Close()

	pairs, skipped, err := ExtractReader(fi)
	if err != nil {
		return nil, 0, fmt.Errorf("reading raw dump: %w", err)
	}
	b := Classify(pairs)
	for _, r := range b.Rejected {
		p.logger.Debug("rejected code", zap.String("code", r.Code), zap.String("value", r.Value))
	}
	p.logger.Info("dump parsed",
		zap.Int("pairs", len(pairs)),
		zap.Int("skipped", skipped),
		zap.Int("rejected", len(b.Rejected)),
	)
	p.metrics.observeBuckets(b, skipped)
	return b, skipped, nil
}

// write stores the tree and returns the number of documents per level.
func (p *Pipeline) write(ctx context.Context, b *Buckets) (map[Level]int, error) {
	counts, err := Write(ctx, p.store, b, func(l Level, docs int) {
		if l == Region {
			fmt.Fprintf(p.out, "Writing %s...\n", StatesKey)
			return
		}
		fmt.Fprintf(p.out, "Writing %d %s files...\n", docs, l)
	})
	for _, l := range Levels {
		if n, ok := counts[l]; ok {
			p.metrics.observeFiles(l, n)
			p.logger.Debug("level written", zap.Stringer("level", l), zap.Int("files", n))
		}
	}
	return counts, err
}
