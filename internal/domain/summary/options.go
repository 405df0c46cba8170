package summary

import "time"

// Option applies a configuration option to the Summarizer.
type Option func(*Summarizer)

// WithProfile sets the reduction profile.
func WithProfile(p Profile) Option {
	return func(s *Summarizer) {
		s.profile = p
	}
}

// WithClock sets the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Summarizer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the summary id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Summarizer) {
		if gen != nil {
			s.newID = gen
		}
	}
}
