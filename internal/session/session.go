package session

import (
	"time"

	"github.com/PsychoBear10/ChatSplit/internal/oracle"
	"github.com/PsychoBear10/ChatSplit/internal/split"
)

// Message senders
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// ChatMessage is one entry in a session's append-only chat log
type ChatMessage struct {
	ID     string `json:"id"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Session holds all state for one bill-splitting conversation. The
// receipt, assignments and totals are only ever replaced wholesale; the
// chat log only grows, except on a new upload which clears it.
type Session struct {
	ID           string              `json:"id"`
	Receipt      *oracle.ReceiptData `json:"receipt"`
	Assignments  oracle.Assignments  `json:"assignments"`
	PeopleTotals split.PersonTotals  `json:"people_totals"`
	Chat         []ChatMessage       `json:"chat"`
	IsLoading    bool                `json:"is_loading"`
	IsProcessing bool                `json:"is_processing"`
	LastError    string              `json:"last_error,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Busy reports whether an upload or command is currently in flight
func (s *Session) Busy() bool {
	return s.IsLoading || s.IsProcessing
}

// Clone returns a deep copy of the session. The store saves and serves
// copies, so a session being encoded for a read never aliases one being
// mutated by an in-flight upload or command.
func (s *Session) Clone() *Session {
	c := *s
	if s.Receipt != nil {
		receipt := *s.Receipt
		if s.Receipt.Items != nil {
			receipt.Items = make([]oracle.ReceiptItem, len(s.Receipt.Items))
			copy(receipt.Items, s.Receipt.Items)
		}
		c.Receipt = &receipt
	}
	if s.Assignments != nil {
		c.Assignments = make(oracle.Assignments, len(s.Assignments))
		for item, people := range s.Assignments {
			names := make([]string, len(people))
			copy(names, people)
			c.Assignments[item] = names
		}
	}
	if s.PeopleTotals != nil {
		c.PeopleTotals = make(split.PersonTotals, len(s.PeopleTotals))
		for person, total := range s.PeopleTotals {
			c.PeopleTotals[person] = total
		}
	}
	if s.Chat != nil {
		c.Chat = make([]ChatMessage, len(s.Chat))
		copy(c.Chat, s.Chat)
	}
	return &c
}
