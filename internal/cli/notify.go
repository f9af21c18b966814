package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/dshills/undocore/internal/engine/history"
	"github.com/dshills/undocore/internal/event"
	"github.com/dshills/undocore/internal/logging"
)

var (
	colorWarning = lipgloss.Color("#F59E0B") // Yellow
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#6B7280") // Gray

	styleFailed = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	styleRefused = lipgloss.NewStyle().
			Foreground(colorWarning)

	styleDeclined = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// Notifier surfaces replay failures, refusals and declines. On a terminal
// they are printed styled; otherwise they go to the log.
type Notifier struct {
	out    io.Writer
	color  bool
	logger *logging.Logger

	mu   sync.Mutex
	bus  *event.Bus
	subs []*event.Subscription
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithColor overrides terminal detection.
func WithColor(on bool) NotifierOption {
	return func(n *Notifier) {
		n.color = on
	}
}

// WithNotifyLogger sets where notices go when out is not a terminal.
func WithNotifyLogger(l *logging.Logger) NotifierOption {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewNotifier creates a notifier writing to out.
func NewNotifier(out io.Writer, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		out:    out,
		color:  isTerminal(out),
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.WithComponent("notify")
	return n
}

// Attach subscribes the notifier to replay events on bus.
func (n *Notifier) Attach(bus *event.Bus) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, topic := range []event.Topic{
		history.TopicReplayFailed,
		history.TopicReplayRefused,
		history.TopicReplayDeclined,
	} {
		sub, err := bus.Subscribe(topic, n.handle)
		if err != nil {
			return err
		}
		n.subs = append(n.subs, sub)
	}
	n.bus = bus
	return nil
}

// Detach removes the notifier's subscriptions.
func (n *Notifier) Detach() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.bus == nil {
		return
	}
	for _, sub := range n.subs {
		n.bus.Unsubscribe(sub)
	}
	n.subs = nil
	n.bus = nil
}

func (n *Notifier) handle(ev event.Event) {
	f, ok := ev.Payload.(history.FailureEvent)
	if !ok {
		return
	}
	msg := fmt.Sprintf("%s of %q on %s: %v", f.Direction, f.GroupName, f.Document, f.Err)

	var (
		style lipgloss.Style
		label string
	)
	switch ev.Topic {
	case history.TopicReplayFailed:
		style, label = styleFailed, "failed"
	case history.TopicReplayRefused:
		style, label = styleRefused, "refused"
	default:
		style, label = styleDeclined, "declined"
	}

	if !n.color {
		if ev.Topic == history.TopicReplayFailed {
			n.logger.WithField("group", f.GroupID).Error("%s %s", label, msg)
		} else {
			n.logger.Warn("%s %s", label, msg)
		}
		return
	}
	fmt.Fprintln(n.out, style.Render(label+": "+msg))
}

// isTerminal reports whether v is a terminal file.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
