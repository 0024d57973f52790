package logging

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogNotifier shows notifications by logging them and, when a writer is
// set, printing them on their own line.
type LogNotifier struct {
	logger *logrus.Logger
	out    io.Writer
	mu     sync.Mutex
}

// NewLogNotifier creates a notifier. Either argument may be nil.
func NewLogNotifier(logger *logrus.Logger, out io.Writer) *LogNotifier {
	return &LogNotifier{logger: logger, out: out}
}

// Show implements domain.Notifier.
func (n *LogNotifier) Show(message string) {
	if n.logger != nil {
		n.logger.WithField("notification", message).Debug("User notification")
	}
	if n.out != nil {
		n.mu.Lock()
		fmt.Fprintln(n.out, message)
		n.mu.Unlock()
	}
}

// BufferNotifier collects notifications so a caller can hand them back in a
// response.
type BufferNotifier struct {
	mu       sync.Mutex
	messages []string
}

// Show implements domain.Notifier.
func (b *BufferNotifier) Show(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message)
}

// Drain returns the collected messages and empties the buffer.
func (b *BufferNotifier) Drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.messages
	b.messages = nil
	return out
}
