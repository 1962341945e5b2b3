package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ConversationLogConfig controls NDJSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// ConversationLogEvent is one line of a conversation log.
type ConversationLogEvent struct {
	Timestamp  string         `json:"ts"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// ConversationLogger writes exchanges to per-session NDJSON files.
type ConversationLogger interface {
	Recorder
	Log(event ConversationLogEvent)
	Close() error
}

type noopConversationLogger struct{}

func (noopConversationLogger) Record(context.Context, Result) {}
func (noopConversationLogger) Log(ConversationLogEvent)       {}
func (noopConversationLogger) Close() error                   { return nil }

// NewConversationLogger returns a logger writing under cfg.Dir, or a no-op
// logger when logging is disabled.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return noopConversationLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("conversation log dir is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &fileConversationLogger{
		dir:    cfg.Dir,
		queue:  make(chan ConversationLogEvent, cfg.QueueSize),
		logger: logger,
	}
	l.wg.Add(1)
	go l.writeLoop()
	return l, nil
}

type fileConversationLogger struct {
	dir    string
	queue  chan ConversationLogEvent
	logger *slog.Logger
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// Log enqueues event. Events are dropped when the queue is full.
func (l *fileConversationLogger) Log(event ConversationLogEvent) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if event.Content == "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("conversation log queue full, dropping event",
			"user_id", event.UserID,
			"session_id", event.SessionID,
			"event_type", event.EventType,
		)
	}
}

// Record logs the user message and the assistant reply of an exchange.
func (l *fileConversationLogger) Record(_ context.Context, result Result) {
	meta := map[string]any{
		"exchange_id": result.ExchangeID,
		"language":    string(result.Language),
	}
	l.Log(ConversationLogEvent{
		Timestamp:  result.StartedAt.UTC().Format(time.RFC3339Nano),
		UserID:     result.Owner.UserID,
		SessionID:  result.Owner.SessionID,
		Channel:    "assistant",
		Direction:  "outbound",
		EventType:  "chat_user_message",
		ContentRaw: result.UserText,
		Meta:       meta,
	})

	replyMeta := map[string]any{
		"exchange_id": result.ExchangeID,
		"language":    string(result.Language),
		"outcome":     string(result.Outcome),
		"latency_ms":  result.Latency.Milliseconds(),
	}
	if result.Err != nil {
		replyMeta["error"] = result.Err.Error()
	}
	l.Log(ConversationLogEvent{
		Timestamp:  result.StartedAt.Add(result.Latency).UTC().Format(time.RFC3339Nano),
		UserID:     result.Owner.UserID,
		SessionID:  result.Owner.SessionID,
		Channel:    "assistant",
		Direction:  "inbound",
		EventType:  "chat_assistant_message",
		ContentRaw: result.Reply.Text,
		Meta:       replyMeta,
	})
}

// Close drains the queue and stops the writer.
func (l *fileConversationLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	l.wg.Wait()
	return nil
}

func (l *fileConversationLogger) writeLoop() {
	defer l.wg.Done()
	for event := range l.queue {
		if err := l.write(event); err != nil {
			l.logger.Warn("failed to write conversation log event", "error", err, "user_id", event.UserID)
		}
	}
}

func (l *fileConversationLogger) write(event ConversationLogEvent) error {
	userDir := filepath.Join(l.dir, safePathComponent(event.UserID, "anonymous"))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return fmt.Errorf("create user log dir: %w", err)
	}

	path := filepath.Join(userDir, safePathComponent(event.SessionID, "default")+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	line, err := json.Marshal(event)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("marshal log event: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("write log event: %w", err)
	}
	return f.Close()
}

var (
	ansiPattern       = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	unsafePathPattern = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

func safePathComponent(s, fallback string) string {
	s = unsafePathPattern.ReplaceAllString(strings.TrimSpace(s), "_")
	if s == "" || s == "." || s == ".." {
		return fallback
	}
	return s
}

// cleanForReadability strips terminal escape sequences and collapses
// whitespace runs.
func cleanForReadability(raw string) string {
	clean := ansiPattern.ReplaceAllString(raw, "")
	return strings.Join(strings.Fields(clean), " ")
}
