package memory

import (
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/serenitylabs/recall/embedding"
)

// Options tunes the memory subsystem. Zero values fall back to defaults.
type Options struct {
	RecentLimit        int     // short-term verbatim window
	ImportantLimit     int     // important older turns kept verbatim
	SummaryThreshold   int     // summarize only above this many turns
	RetrieveLimit      int     // semantic matches per bundle
	StoreThreshold     float64 // minimum importance for long-term storage
	ProfileTTLHours    int     // emotional profile freshness window
	ReflectionTTLHours int     // meta reflection freshness window
	ProfileWindowDays  int     // emotion-log aggregation window
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		RecentLimit:        5,
		ImportantLimit:     2,
		SummaryThreshold:   15,
		RetrieveLimit:      3,
		StoreThreshold:     0.55,
		ProfileTTLHours:    12,
		ReflectionTTLHours: 48,
		ProfileWindowDays:  30,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RecentLimit <= 0 {
		o.RecentLimit = d.RecentLimit
	}
	if o.ImportantLimit <= 0 {
		o.ImportantLimit = d.ImportantLimit
	}
	if o.SummaryThreshold <= 0 {
		o.SummaryThreshold = d.SummaryThreshold
	}
	if o.RetrieveLimit <= 0 {
		o.RetrieveLimit = d.RetrieveLimit
	}
	if o.StoreThreshold <= 0 {
		o.StoreThreshold = d.StoreThreshold
	}
	if o.ProfileTTLHours <= 0 {
		o.ProfileTTLHours = d.ProfileTTLHours
	}
	if o.ReflectionTTLHours <= 0 {
		o.ReflectionTTLHours = d.ReflectionTTLHours
	}
	if o.ProfileWindowDays <= 0 {
		o.ProfileWindowDays = d.ProfileWindowDays
	}
	return o
}

// Store manages all layered-memory persistence and the bundle assembly on
// top of it: semantic memories, the per-conversation context cache, cached
// emotional profiles and meta reflections.
type Store struct {
	db       *sql.DB
	embedder embedding.Embedder
	insights InsightProvider
	journals JournalSource
	selector *Selector
	opts     Options
	logger   zerolog.Logger

	nowFn func() time.Time // overridable in tests
}

// NewStore creates and returns a Store.
func NewStore(
	db *sql.DB,
	embedder embedding.Embedder,
	insights InsightProvider,
	journals JournalSource,
	opts Options,
	logger zerolog.Logger,
) *Store {
	logger = logger.With().Str("component", "memory_store").Logger()
	opts = opts.withDefaults()
	logger.Info().
		Str("embedder", embedder.Name()).
		Int("recent_limit", opts.RecentLimit).
		Int("retrieve_limit", opts.RetrieveLimit).
		Float64("store_threshold", opts.StoreThreshold).
		Msg("initializing memory store")
	return &Store{
		db:       db,
		embedder: embedder,
		insights: insights,
		journals: journals,
		selector: &Selector{
			RecentLimit:      opts.RecentLimit,
			ImportantLimit:   opts.ImportantLimit,
			SummaryThreshold: opts.SummaryThreshold,
		},
		opts:   opts,
		logger: logger,
		nowFn:  time.Now,
	}
}

func (s *Store) now() time.Time { return s.nowFn() }

// Helper function to safely truncate strings (for log safety).
func truncateString(str string, n int) string {
	rs := []rune(str)
	if len(rs) > n {
		return string(rs[:n]) + "..."
	}
	return str
}
