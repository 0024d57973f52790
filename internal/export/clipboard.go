package export

import (
	"fmt"
	"io"
	"sync"
)

// WriterClipboard "copies" by printing the text to a writer, for terminals
// without a system clipboard.
type WriterClipboard struct {
	W io.Writer
}

// WriteText implements domain.Clipboard.
func (c WriterClipboard) WriteText(text string) error {
	_, err := fmt.Fprintln(c.W, text)
	return err
}

// MemoryClipboard keeps the last copied text.
type MemoryClipboard struct {
	mu   sync.Mutex
	text string
}

// WriteText implements domain.Clipboard.
func (c *MemoryClipboard) WriteText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	return nil
}

// Text returns the last copied text.
func (c *MemoryClipboard) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}
