package chat

import "time"

// Option tunes a Server before it starts.
type Option func(s *Server)

// WithRecorder attaches a transcript. Newcomers receive the last greets
// recorded messages after the welcome line.
func WithRecorder(r Recorder, greets int) Option {
	return func(s *Server) {
		s.handler.recorder = r
		s.handler.historyGreets = greets
	}
}

// WithMaxMessageLength truncates chat text longer than n bytes. n <= 0
// disables truncation.
func WithMaxMessageLength(n int) Option {
	return func(s *Server) {
		s.handler.maxMessageLength = n
	}
}

// WithWriteTimeout bounds every single line write. Zero means no deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d < 0 {
			d = 0
		}
		s.handler.writeTimeout = d
	}
}
