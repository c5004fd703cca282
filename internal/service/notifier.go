package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/logger"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Notifier surfaces the outcome of every settled operation to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

func success(msg string) Notification {
	return Notification{Level: LevelSuccess, Title: "Success", Message: msg}
}

func failure(msg string) Notification {
	return Notification{Level: LevelError, Title: "Error", Message: msg}
}

type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, note Notification) {
	l := n.Logger
	if l == nil {
		l = slog.Default()
	}
	l = logger.WithContext(ctx, l)
	if note.Level == LevelError {
		l.Warn(note.Message, "notification", note.Title)
		return
	}
	l.Info(note.Message, "notification", note.Title)
}

// WriterNotifier prints one line per notification, e.g. to stderr for the CLI.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(_ context.Context, note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "[%s] %s\n", note.Title, note.Message)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) {}
