// Package output implements nested output buffering over an io.Writer.
package output

import (
	"bytes"
	"io"
	"sync"
)

// Buffer captures writes in a stack of buffers. With no buffer started,
// writes go straight to the underlying writer.
type Buffer struct {
	mu    sync.Mutex
	out   io.Writer
	stack []*bytes.Buffer
}

// New returns a Buffer writing to out.
func New(out io.Writer) *Buffer {
	return &Buffer{out: out}
}

// Write appends p to the innermost buffer, or to the underlying writer
// when no buffer is active.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(b.stack); n > 0 {
		return b.stack[n-1].Write(p)
	}
	return b.out.Write(p)
}

// Start pushes a new buffer.
func (b *Buffer) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stack = append(b.stack, new(bytes.Buffer))
}

// Level returns the number of active buffers.
func (b *Buffer) Level() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stack)
}

// Contents returns what the innermost buffer holds without removing it.
func (b *Buffer) Contents() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(b.stack); n > 0 {
		return b.stack[n-1].String()
	}
	return ""
}

// GetClean pops the innermost buffer and returns its content. ok is false
// when no buffer was active.
func (b *Buffer) GetClean() (content string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.stack)
	if n == 0 {
		return "", false
	}
	top := b.stack[n-1]
	b.stack = b.stack[:n-1]
	return top.String(), true
}

// Flush pops the innermost buffer and writes its content one level down.
func (b *Buffer) Flush() error {
	content, ok := b.GetClean()
	if !ok || content == "" {
		return nil
	}
	_, err := b.Write([]byte(content))
	return err
}

// FlushAll flushes every active buffer down to the underlying writer.
func (b *Buffer) FlushAll() error {
	for b.Level() > 0 {
		if err := b.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Swap opens a fresh buffer in place of the innermost one. Whatever the old
// buffer held is written into the new one, so nothing written before the swap
// is lost. Without an active buffer it simply starts one.
func Swap(b *Buffer) {
	content, _ := b.GetClean()
	b.Start()
	if content != "" {
		_, _ = b.Write([]byte(content))
	}
}
