package workspace

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
)

var (
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("ask a question first")
	// ErrNoDatabase is returned when no database is selected.
	ErrNoDatabase = errors.New("select a database first")
	// ErrNothingToRegenerate is returned before any question was asked.
	ErrNothingToRegenerate = errors.New("nothing to regenerate")
	// ErrSuperseded is returned when a newer question replaced this one.
	ErrSuperseded = errors.New("question superseded")
)

// Message roles.
const (
	RoleQuestion = "user"
	RoleAnswer   = "assistant"
)

// Message is one chat bubble.
type Message struct {
	Role    string
	Text    string
	Err     string
	Stopped bool
	At      time.Time
}

// Asker answers questions against a document database.
type Asker interface {
	Ask(ctx context.Context, q backend.Question) (string, error)
}

// Conversation is the Ask AI transcript for the selected database. Only
// one question is in flight at a time; asking again supersedes it.
type Conversation struct {
	asker Asker
	user  string

	mu       sync.Mutex
	messages []Message
	last     string
	seq      uint64
	cancel   context.CancelFunc
}

func newConversation(asker Asker, user string) *Conversation {
	return &Conversation{asker: asker, user: user}
}

// AskOptions are the per-question toggles.
type AskOptions struct {
	UseCache bool
	UseWeb   bool
}

// Ask sends question to db and appends the exchange. A stop while waiting
// appends a "Stopped" answer and returns context.Canceled.
func (c *Conversation) Ask(ctx context.Context, db, question string, opts AskOptions) (Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Message{}, ErrEmptyQuestion
	}
	if db == "" {
		return Message{}, ErrNoDatabase
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	seq := c.seq
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.last = question
	c.messages = append(c.messages, Message{Role: RoleQuestion, Text: question, At: time.Now()})
	c.mu.Unlock()
	defer cancel()

	answer, err := c.asker.Ask(ctx, backend.Question{
		Query:    question,
		User:     c.user,
		UseCache: opts.UseCache,
		UseWeb:   opts.UseWeb,
		DB:       db,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return Message{}, ErrSuperseded
	}
	c.cancel = nil
	msg := Message{Role: RoleAnswer, Text: answer, At: time.Now()}
	switch {
	case err == nil:
	case backend.IsCanceled(err):
		msg.Text = "Stopped"
		msg.Stopped = true
	default:
		msg.Err = backend.UserMessage(err)
	}
	c.messages = append(c.messages, msg)
	return msg, err
}

// Regenerate asks the last question again, bypassing the answer cache.
func (c *Conversation) Regenerate(ctx context.Context, db string, useWeb bool) (Message, error) {
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()
	if last == "" {
		return Message{}, ErrNothingToRegenerate
	}
	return c.Ask(ctx, db, last, AskOptions{UseCache: false, UseWeb: useWeb})
}

// Stop cancels the question in flight. It reports whether one was running.
func (c *Conversation) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// Busy reports whether a question is in flight.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Load replaces the transcript with a past exchange.
func (c *Conversation) Load(question, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	now := time.Now()
	c.messages = []Message{
		{Role: RoleQuestion, Text: question, At: now},
		{Role: RoleAnswer, Text: answer, At: now},
	}
	c.last = question
}

// Reset clears the transcript and stops any question in flight.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.messages = nil
	c.last = ""
}

func (c *Conversation) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.seq++
}

// Messages returns the transcript.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

// LastQuestion is the question Regenerate would send.
func (c *Conversation) LastQuestion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
