package chat

import "strings"

// QuitSentinel ends a session when a peer sends it as a whole (trimmed) line.
const QuitSentinel = "QUIT"

// Status is the lifecycle state of a Session.
type Status int32

const (
	StatusConnecting Status = iota
	StatusActive
	StatusClosing
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusActive:
		return "active"
	case StatusClosing:
		return "closing"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Kind tags the Message variant.
type Kind int

const (
	KindChat Kind = iota + 1
	KindJoin
	KindLeave
)

func (k Kind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindJoin:
		return "join"
	case KindLeave:
		return "leave"
	default:
		return "unknown"
	}
}

const (
	joinSuffix  = " has connected!"
	leaveSuffix = " has left the room"
	chatSep     = ": "
)

// Message is one protocol message. It is rendered to text only when it
// reaches the wire.
type Message struct {
	Kind   Kind
	Sender string
	Text   string
}

func Chat(sender, text string) Message {
	return Message{Kind: KindChat, Sender: sender, Text: singleLine(text)}
}

func Join(name string) Message {
	return Message{Kind: KindJoin, Sender: name}
}

func Leave(name string) Message {
	return Message{Kind: KindLeave, Sender: name}
}

// Render returns the newline terminated wire form of m.
func (m Message) Render() string {
	switch m.Kind {
	case KindJoin:
		return m.Sender + joinSuffix + "\n"
	case KindLeave:
		return m.Sender + leaveSuffix + "\n"
	default:
		return m.Sender + chatSep + singleLine(m.Text) + "\n"
	}
}

// ParseLine classifies a server line. ok is false for lines that are not
// Chat, Join or Leave (prompts, welcome, errors). Names never contain
// ": ", so the first separator always ends the sender of a chat line.
func ParseLine(line string) (m Message, ok bool) {
	line = strings.TrimRight(line, "\r\n")
	if sender, text, found := strings.Cut(line, chatSep); found {
		if sender == "" {
			return Message{}, false
		}
		return Chat(sender, text), true
	}
	switch {
	case strings.HasSuffix(line, joinSuffix) && len(line) > len(joinSuffix):
		return Join(strings.TrimSuffix(line, joinSuffix)), true
	case strings.HasSuffix(line, leaveSuffix) && len(line) > len(leaveSuffix):
		return Leave(strings.TrimSuffix(line, leaveSuffix)), true
	}
	return Message{}, false
}

// singleLine keeps the newline reserved as the message boundary.
func singleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

var (
	ErrNameTaken   = errorString("name_taken")
	ErrNameInvalid = errorString("name_invalid")
	ErrHandshake   = errorString("handshake_failed")
)

type errorString string

func (e errorString) Error() string { return string(e) }
