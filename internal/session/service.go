package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/PsychoBear10/ChatSplit/internal/oracle"
	"github.com/PsychoBear10/ChatSplit/internal/split"
)

// Chat texts the bot emits
const (
	welcomeText = "Great! I've read the receipt. Now, tell me who had what."
	ackText     = "Got it! I've updated the bill."
)

var (
	// ErrSessionBusy is returned when an upload or command arrives while
	// another one is still in flight for the same session. Assignment
	// replacement is not commutative, so overlapping requests are
	// rejected rather than queued.
	ErrSessionBusy = errors.New("session is busy processing another request")

	// ErrNoReceipt is returned for a chat command before any receipt has
	// been uploaded
	ErrNoReceipt = errors.New("no receipt loaded")
)

// IDGenerator generates unique IDs for sessions and chat messages
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service sequences the oracle and the allocation engine against session
// state. Receipt, assignments and totals are replaced wholesale on
// success and left untouched on failure; totals are recomputed exactly
// once per successful mutation.
type Service struct {
	store       Store
	oracle      oracle.Oracle
	idGenerator IDGenerator
	timeSource  TimeSource

	// guards the busy check-and-set; the oracle call itself runs
	// unlocked so other sessions are never blocked
	mu sync.Mutex
}

// NewService creates a new Service with default ID generator and time source
func NewService(store Store, o oracle.Oracle) *Service {
	return &Service{
		store:       store,
		oracle:      o,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(store Store, o oracle.Oracle, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		store:       store,
		oracle:      o,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// StartSession creates a new empty session
func (s *Service) StartSession() (*Session, error) {
	now := s.timeSource.Now()
	session := &Session{
		ID:          s.idGenerator.Generate(),
		Assignments: oracle.Assignments{},
		Chat:        []ChatMessage{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Put(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session by ID
func (s *Service) GetSession(id string) (*Session, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return session, nil
}

// UploadReceipt extracts a receipt image and resets the session around
// it: the chat log and error state are cleared up front, and on success
// the receipt replaces any previous one with all assignments emptied.
// On failure the previous receipt and assignments are left untouched.
func (s *Service) UploadReceipt(id string, imageData []byte, contentType string) (*Session, error) {
	session, err := s.beginUpload(id)
	if err != nil {
		return nil, err
	}

	timer := prometheus.NewTimer(oracleDuration.WithLabelValues("extract"))
	data, extractErr := s.oracle.ExtractReceipt(imageData, contentType)
	timer.ObserveDuration()
	observeOutcome(uploadsTotal, extractErr)

	s.mu.Lock()
	defer s.mu.Unlock()
	session.IsLoading = false
	session.UpdatedAt = s.timeSource.Now()

	if extractErr != nil {
		slog.Error("Failed to extract receipt",
			"session", id,
			"content_type", contentType,
			"image_size", len(imageData),
			"error", extractErr,
		)
		wrapped := fmt.Errorf("failed to analyze the receipt, please try a clearer image: %w", extractErr)
		session.LastError = wrapped.Error()
		if putErr := s.store.Put(session); putErr != nil {
			slog.Error("Failed to save session", "session", id, "error", putErr)
		}
		return session, wrapped
	}

	session.Receipt = data
	session.Assignments = oracle.EmptyAssignments(data.Items)
	session.PeopleTotals = split.Allocate(session.Receipt, session.Assignments)
	session.Chat = append(session.Chat, ChatMessage{
		ID:     s.idGenerator.Generate(),
		Sender: SenderBot,
		Text:   welcomeText,
	})
	if err := s.store.Put(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	return session, nil
}

// HandleCommand interprets a free-text instruction against the current
// receipt. The user message is appended before the oracle call so it is
// visible while processing. On success the returned assignment map
// replaces the previous one wholesale; on failure the assignments stay
// and the bot reports the error in the chat log.
func (s *Service) HandleCommand(id string, text string) (*Session, error) {
	session, err := s.beginCommand(id, text)
	if err != nil {
		return nil, err
	}

	timer := prometheus.NewTimer(oracleDuration.WithLabelValues("interpret"))
	assignments, interpretErr := s.oracle.InterpretCommand(session.Receipt.Items, session.Assignments, text)
	timer.ObserveDuration()
	observeOutcome(commandsTotal, interpretErr)

	s.mu.Lock()
	defer s.mu.Unlock()
	session.IsProcessing = false
	session.UpdatedAt = s.timeSource.Now()

	if interpretErr != nil {
		slog.Error("Failed to interpret command",
			"session", id,
			"command", text,
			"error", interpretErr,
		)
		wrapped := fmt.Errorf("could not understand that command, please try rephrasing: %w", interpretErr)
		session.LastError = wrapped.Error()
		session.Chat = append(session.Chat, ChatMessage{
			ID:     s.idGenerator.Generate(),
			Sender: SenderBot,
			Text:   fmt.Sprintf("Sorry, there was an issue: %s", wrapped.Error()),
		})
		if putErr := s.store.Put(session); putErr != nil {
			slog.Error("Failed to save session", "session", id, "error", putErr)
		}
		return session, wrapped
	}

	session.Assignments = assignments
	session.PeopleTotals = split.Allocate(session.Receipt, session.Assignments)
	session.Chat = append(session.Chat, ChatMessage{
		ID:     s.idGenerator.Generate(),
		Sender: SenderBot,
		Text:   ackText,
	})
	if err := s.store.Put(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	return session, nil
}

// DeleteSession removes a session. Busy sessions are rejected so a
// concurrent upload or command cannot resurrect the session when it
// saves its result.
func (s *Service) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.store.Get(id)
	if err != nil {
		return fmt.Errorf("getting session: %w", err)
	}
	if session.Busy() {
		return ErrSessionBusy
	}
	if err := s.store.Delete(id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// beginUpload atomically checks that the session exists and is idle,
// marks it loading and clears the chat log and error state
func (s *Service) beginUpload(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if session.Busy() {
		return nil, ErrSessionBusy
	}

	session.IsLoading = true
	session.Chat = []ChatMessage{}
	session.LastError = ""
	session.UpdatedAt = s.timeSource.Now()
	if err := s.store.Put(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// beginCommand is beginUpload's counterpart for chat commands: it
// additionally requires a loaded receipt and appends the user's message
// up front
func (s *Service) beginCommand(id string, text string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if session.Busy() {
		return nil, ErrSessionBusy
	}
	if session.Receipt == nil {
		return nil, ErrNoReceipt
	}

	session.IsProcessing = true
	session.LastError = ""
	session.Chat = append(session.Chat, ChatMessage{
		ID:     s.idGenerator.Generate(),
		Sender: SenderUser,
		Text:   text,
	})
	session.UpdatedAt = s.timeSource.Now()
	if err := s.store.Put(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}
