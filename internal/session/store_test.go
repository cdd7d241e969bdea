package session

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/PsychoBear10/ChatSplit/internal/oracle"
)

var _ = Describe("MemoryStore", func() {
	var store *MemoryStore

	BeforeEach(func() {
		store = NewMemoryStore()
	})

	Describe("Put and Get", func() {
		It("round-trips a session", func() {
			Expect(store.Put(&Session{ID: "abc"})).To(Succeed())

			session, err := store.Get("abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(session.ID).To(Equal("abc"))
		})

		It("returns ErrSessionNotFound for an unknown ID", func() {
			_, err := store.Get("missing")
			Expect(err).To(MatchError(ErrSessionNotFound))
		})

		It("stores a snapshot insulated from later writes to the argument", func() {
			session := &Session{ID: "abc", Assignments: oracle.Assignments{"Pizza": {"Alice"}}}
			Expect(store.Put(session)).To(Succeed())

			session.LastError = "boom"
			session.Assignments["Pizza"] = append(session.Assignments["Pizza"], "Bob")

			saved, err := store.Get("abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.LastError).To(BeEmpty())
			Expect(saved.Assignments["Pizza"]).To(Equal([]string{"Alice"}))
		})

		It("returns a copy insulated from later writes by the caller", func() {
			Expect(store.Put(&Session{
				ID:          "abc",
				Receipt:     &oracle.ReceiptData{Items: []oracle.ReceiptItem{{Description: "Pizza", Price: 20}}},
				Assignments: oracle.Assignments{"Pizza": {"Alice"}},
				Chat:        []ChatMessage{{ID: "m1", Sender: SenderBot, Text: "hello"}},
			})).To(Succeed())

			first, err := store.Get("abc")
			Expect(err).NotTo(HaveOccurred())
			first.Receipt.Items[0].Price = 99
			first.Assignments["Pizza"][0] = "Mallory"
			first.Chat[0].Text = "tampered"

			second, err := store.Get("abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Receipt.Items[0].Price).To(Equal(20.0))
			Expect(second.Assignments["Pizza"]).To(Equal([]string{"Alice"}))
			Expect(second.Chat[0].Text).To(Equal("hello"))
		})

		It("overwrites an existing session", func() {
			Expect(store.Put(&Session{ID: "abc"})).To(Succeed())
			Expect(store.Put(&Session{ID: "abc", LastError: "boom"})).To(Succeed())

			session, err := store.Get("abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(session.LastError).To(Equal("boom"))
		})
	})

	Describe("Delete", func() {
		It("removes a session", func() {
			Expect(store.Put(&Session{ID: "abc"})).To(Succeed())
			Expect(store.Delete("abc")).To(Succeed())

			_, err := store.Get("abc")
			Expect(err).To(HaveOccurred())
		})

		It("returns ErrSessionNotFound for an unknown ID", func() {
			Expect(store.Delete("missing")).To(MatchError(ErrSessionNotFound))
		})
	})
})
