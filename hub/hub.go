// Package hub is the forum's broadcast channel: every admitted connection
// receives every message, plus join and leave notices carrying the number of
// active participants.
package hub

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/sse-forum/internal/errors"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultQueueSize    = 1024
	outboxSize          = 64
	hueRange            = 360
)

// Sender is the transport side of a member connection.
type Sender interface {
	Send(payload []byte, deadline time.Time) error
	Close() error
}

// Identity is what the transport knows about a connecting client.
type Identity struct {
	SessionID string
	Name      string
	Email     string
}

// Conn is one hub member. Its outbox is drained by a dedicated writer so a
// slow peer only ever delays itself.
type Conn struct {
	key    string
	meta   Metadata
	sender Sender
	outbox chan []byte
	done   chan struct{}

	// mu serializes Send with removal; closed is guarded by mu.
	mu     sync.Mutex
	closed bool
}

// Key identifies the connection in logs.
func (c *Conn) Key() string {
	return c.key
}

func (c *Conn) Metadata() Metadata {
	return c.meta
}

func (c *Conn) deliver(payload []byte, deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return apperrors.ErrConnectionClosed
	}
	return c.sender.Send(payload, deadline)
}

type Options struct {
	BroadcastDelay time.Duration
	WriteTimeout   time.Duration
	QueueSize      int
	Logger         zerolog.Logger
}

type broadcast struct {
	payload []byte
	due     time.Time
	message string
}

type Hub struct {
	mu      sync.Mutex
	members map[*Conn]struct{}
	stopped bool

	queue        chan broadcast
	delay        time.Duration
	writeTimeout time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

func New(opts Options) *Hub {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.BroadcastDelay < 0 {
		opts.BroadcastDelay = 0
	}
	return &Hub{
		members:      make(map[*Conn]struct{}),
		queue:        make(chan broadcast, opts.QueueSize),
		delay:        opts.BroadcastDelay,
		writeTimeout: opts.WriteTimeout,
		logger:       opts.Logger,
		now:          time.Now,
	}
}

// Len is the number of active participants.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.members)
}

// Join admits a connection and announces it to every member, itself included.
func (h *Hub) Join(sender Sender, identity Identity) *Conn {
	now := h.now()
	id := identity.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	c := &Conn{
		key:    ulid.Make().String(),
		sender: sender,
		outbox: make(chan []byte, outboxSize),
		done:   make(chan struct{}),
		meta: Metadata{
			ID:    id,
			Color: rand.IntN(hueRange),
			Date:  now.Format(TimeLayout),
			Name:  identity.Name,
			Email: identity.Email,
		},
	}
	go h.writeLoop(c)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.members[c] = struct{}{}
	_ = h.enqueueLocked(c, MessageJoined, now)

	h.logger.Info().Str("conn", c.key).Str("session", id).Int("participants", len(h.members)).Msg("Joined forum")
	return c
}

// Message broadcasts text under the sender's bound metadata.
func (h *Hub) Message(c *Conn, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.members[c]; !ok {
		return apperrors.ErrConnectionClosed
	}
	return h.enqueueLocked(c, text, h.now())
}

// Leave removes the connection before announcing its departure, so the notice
// carries the post-leave count and is never delivered to the leaver. It waits
// for an in-flight write to c, after which nothing more is sent to it.
func (h *Hub) Leave(c *Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.members[c]; !ok {
		return
	}
	delete(h.members, c)
	c.closed = true
	close(c.done)
	_ = h.enqueueLocked(c, MessageLeft, h.now())

	h.logger.Info().Str("conn", c.key).Str("session", c.meta.ID).Int("participants", len(h.members)).Msg("Left forum")
}

// CloseAll closes every member transport. Read loops then call Leave.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.members))
	for c := range h.members {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.sender.Close(); err != nil {
			h.logger.Debug().Err(err).Str("conn", c.key).Msg("Close connection")
		}
	}
}

// enqueueLocked must be called with h.mu held so queue order matches the
// order in which participant counts were taken.
func (h *Hub) enqueueLocked(c *Conn, message string, now time.Time) error {
	if h.stopped {
		return apperrors.ErrHubClosed
	}
	payload, err := Envelope{
		Metadata:           c.meta,
		Message:            message,
		Time:               now.Format(TimeLayout),
		ActiveParticipants: len(h.members),
	}.encode()
	if err != nil {
		return apperrors.Wrapf(err, "[hub enqueue] encode envelope")
	}

	select {
	case h.queue <- broadcast{payload: payload, due: now.Add(h.delay), message: message}:
		return nil
	default:
		h.logger.Warn().Str("conn", c.key).Int("queue", cap(h.queue)).Msg("Broadcast queue full, dropping message")
		return apperrors.ErrQueueFull
	}
}

// Run delivers queued broadcasts once they are due, until ctx is done.
// Afterwards Message reports ErrHubClosed.
func (h *Hub) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	defer func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case b := <-h.queue:
			if wait := b.due.Sub(h.now()); wait > 0 {
				timer.Reset(wait)
				select {
				case <-ctx.Done():
					return
				case <-timer.C:
				}
			}
			h.fanOut(b)
		}
	}
}

// fanOut hands the payload to every member's outbox without waiting on any
// of them. A member whose outbox is full is too slow to keep and is evicted.
func (h *Hub) fanOut(b broadcast) {
	h.mu.Lock()
	recipients := make([]*Conn, 0, len(h.members))
	for c := range h.members {
		recipients = append(recipients, c)
	}
	h.mu.Unlock()

	for _, c := range recipients {
		select {
		case c.outbox <- b.payload:
		default:
			h.logger.Warn().Str("conn", c.key).Int("outbox", cap(c.outbox)).Msg("Member too slow, evicting")
			go h.evict(c)
		}
	}
}

func (h *Hub) writeLoop(c *Conn) {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.outbox:
			err := c.deliver(payload, h.now().Add(h.writeTimeout))
			if apperrors.Is(err, apperrors.ErrConnectionClosed) {
				return
			}
			if err != nil {
				// A timed out write may leave a partial frame, so the stream is unusable.
				h.logger.Warn().Err(err).Str("conn", c.key).Msg("Broadcast delivery failed, evicting")
				h.evict(c)
				return
			}
		}
	}
}

// evict closes the transport first so a blocked write returns, then removes
// the member.
func (h *Hub) evict(c *Conn) {
	if err := c.sender.Close(); err != nil {
		h.logger.Debug().Err(err).Str("conn", c.key).Msg("Close connection")
	}
	h.Leave(c)
}
