package chat

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	bannerLine = "Broadcast Chat Server"
	namePrompt = "Enter your name:"

	maxNameLength = 32
)

// Recorder keeps a transcript of broadcast messages.
type Recorder interface {
	Record(msg Message) error
	Recent(n int) ([]Message, error)
}

// Handler drives sessions through handshake, message loop and teardown.
type Handler struct {
	registry   *Registry
	dispatcher *Dispatcher
	logger     *slog.Logger

	recorder         Recorder
	historyGreets    int
	maxMessageLength int
	writeTimeout     time.Duration
}

func NewHandler(registry *Registry, dispatcher *Dispatcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry:         registry,
		dispatcher:       dispatcher,
		logger:           logger,
		maxMessageLength: 512,
	}
}

// Serve owns conn until the session is CLOSED. Cleanup is deferred so it
// runs on every exit path.
func (h *Handler) Serve(conn net.Conn) {
	s := NewSession(conn, h.writeTimeout)
	log := h.logger.With("session", s.ID, "addr", s.RemoteAddr())
	defer func() {
		_ = s.Close()
		s.setStatus(StatusClosed)
		log.Debug("session closed")
	}()

	name, err := h.handshake(s)
	if err != nil {
		h.reject(s, log, err)
		return
	}
	log = log.With("name", name)
	log.Info("user registered")

	defer h.teardown(s, log)

	h.join(s, log)
	h.loop(s, log)
}

func (h *Handler) handshake(s *Session) (string, error) {
	if err := s.sendf("%s", bannerLine); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if err := s.sendf("%s", namePrompt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	line, err := s.ReadLine()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	name := strings.TrimSpace(line)
	if !validName(name) {
		return "", ErrNameInvalid
	}
	if err := h.registry.Register(name, s); err != nil {
		return "", err
	}
	return name, nil
}

// validName keeps names short and free of the chat separator so every
// server line has exactly one reading.
func validName(name string) bool {
	return name != "" &&
		len(name) <= maxNameLength &&
		!strings.ContainsAny(name, "\r\n") &&
		!strings.Contains(name, chatSep)
}

func (h *Handler) reject(s *Session, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, ErrNameTaken):
		HandshakeRejections.WithLabelValues(string(ErrNameTaken)).Inc()
		_ = s.sendf("ERR %s", ErrNameTaken)
		log.Info("name rejected", "error", err)
	case errors.Is(err, ErrNameInvalid):
		HandshakeRejections.WithLabelValues(string(ErrNameInvalid)).Inc()
		_ = s.sendf("ERR %s", ErrNameInvalid)
		log.Info("name rejected", "error", err)
	default:
		HandshakeRejections.WithLabelValues(string(ErrHandshake)).Inc()
		log.Debug("handshake aborted", "error", err)
	}
}

func (h *Handler) join(s *Session, log *slog.Logger) {
	var history []Message
	if h.recorder != nil && h.historyGreets > 0 {
		recent, err := h.recorder.Recent(h.historyGreets)
		if err != nil {
			log.Warn("transcript read failed", "error", err)
		}
		history = recent
	}

	h.publish(Join(s.Name), h.registry.Snapshot(), log)

	if err := s.sendf("Welcome %s. Send %s to disconnect.", s.Name, QuitSentinel); err != nil {
		log.Debug("welcome not delivered", "error", err)
		return
	}
	for _, m := range history {
		if err := s.Send(m.Render()); err != nil {
			log.Debug("history not delivered", "error", err)
			return
		}
	}
}

func (h *Handler) loop(s *Session, log *slog.Logger) {
	for {
		line, err := s.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug("read failed", "error", err)
			}
			return
		}

		text := strings.TrimSpace(line)
		switch {
		case text == QuitSentinel:
			log.Debug("quit requested")
			return
		case text == "":
			continue
		}

		h.publish(Chat(s.Name, h.truncate(text)), h.registry.Snapshot(), log)
	}
}

// teardown unregisters before closing and takes the leave snapshot after
// unregistering, so the departing session never sees its own notice.
func (h *Handler) teardown(s *Session, log *slog.Logger) {
	h.registry.Unregister(s.Name)
	_ = s.Close()
	h.publish(Leave(s.Name), h.registry.Snapshot(), log)
	log.Info("user left")
}

func (h *Handler) publish(msg Message, recipients []*Session, log *slog.Logger) {
	h.dispatcher.Broadcast(msg, recipients)
	if h.recorder == nil {
		return
	}
	if err := h.recorder.Record(msg); err != nil {
		log.Warn("transcript write failed", "kind", msg.Kind.String(), "error", err)
	}
}

func (h *Handler) truncate(text string) string {
	if h.maxMessageLength <= 0 || len(text) <= h.maxMessageLength {
		return text
	}
	cut := h.maxMessageLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
