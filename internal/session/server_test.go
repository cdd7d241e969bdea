package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var errServTest = errors.New("oracle exploded")

// multipartUpload builds a multipart body with a single "file" part
func multipartUpload(filename string, data []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		store   *MemoryStore
		o       *mockOracle
		service *Service
		server  *Server
	)

	BeforeEach(func() {
		store = NewMemoryStore()
		o = newMockOracle()
		service = NewService(store, o)
		server = NewServer(service, BasicAuth{})
	})

	createSession := func() *Session {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest("POST", "/api/sessions", nil))
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var session Session
		Expect(json.Unmarshal(rec.Body.Bytes(), &session)).To(Succeed())
		return &session
	}

	uploadReceipt := func(id string) *httptest.ResponseRecorder {
		body, contentType := multipartUpload("receipt.jpg", []byte("fake image"))
		req := httptest.NewRequest("POST", "/api/sessions/"+id+"/receipt", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		return rec
	}

	sendCommand := func(id string, message string) *httptest.ResponseRecorder {
		payload, err := json.Marshal(map[string]string{"message": message})
		Expect(err).NotTo(HaveOccurred())
		req := httptest.NewRequest("POST", "/api/sessions/"+id+"/chat",
			strings.NewReader(string(payload)))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		return rec
	}

	Describe("POST /api/sessions", func() {
		It("creates an empty session", func() {
			session := createSession()
			Expect(session.ID).NotTo(BeEmpty())
			Expect(session.Receipt).To(BeNil())
		})
	})

	Describe("GET /api/sessions/{id}", func() {
		It("returns the session state", func() {
			session := createSession()

			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, httptest.NewRequest("GET", "/api/sessions/"+session.ID, nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var fetched Session
			Expect(json.Unmarshal(rec.Body.Bytes(), &fetched)).To(Succeed())
			Expect(fetched.ID).To(Equal(session.ID))
		})

		It("returns 404 for an unknown session", func() {
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, httptest.NewRequest("GET", "/api/sessions/unknown", nil))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("DELETE /api/sessions/{id}", func() {
		It("removes the session", func() {
			session := createSession()

			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/sessions/"+session.ID, nil))
			Expect(rec.Code).To(Equal(http.StatusNoContent))

			rec = httptest.NewRecorder()
			server.ServeHTTP(rec, httptest.NewRequest("GET", "/api/sessions/"+session.ID, nil))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 404 for an unknown session", func() {
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/sessions/unknown", nil))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /api/sessions/{id}/receipt", func() {
		It("extracts the receipt and returns the updated session", func() {
			session := createSession()

			rec := uploadReceipt(session.ID)
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var updated Session
			Expect(json.Unmarshal(rec.Body.Bytes(), &updated)).To(Succeed())
			Expect(updated.Receipt).NotTo(BeNil())
			Expect(updated.Receipt.Items).To(HaveLen(2))
			Expect(updated.Assignments).To(HaveLen(2))
			Expect(updated.Chat).To(HaveLen(1))
		})

		It("returns the extraction error as JSON", func() {
			session := createSession()
			o.extractErr = errServTest

			rec := uploadReceipt(session.ID)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var body map[string]string
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body["error"]).To(ContainSubstring("failed to analyze the receipt"))
		})

		It("returns 400 when no file is provided", func() {
			session := createSession()

			body := &bytes.Buffer{}
			writer := multipart.NewWriter(body)
			Expect(writer.Close()).To(Succeed())
			req := httptest.NewRequest("POST", "/api/sessions/"+session.ID+"/receipt", body)
			req.Header.Set("Content-Type", writer.FormDataContentType())
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/sessions/{id}/chat", func() {
		It("updates assignments and totals", func() {
			session := createSession()
			Expect(uploadReceipt(session.ID).Code).To(Equal(http.StatusCreated))

			rec := sendCommand(session.ID, "alice and bob split the pizza")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var updated Session
			Expect(json.Unmarshal(rec.Body.Bytes(), &updated)).To(Succeed())
			Expect(updated.Assignments["Pizza"]).To(Equal([]string{"Alice", "Bob"}))
			Expect(updated.PeopleTotals).To(HaveKey("Alice"))
			Expect(updated.Chat).To(HaveLen(3))
		})

		It("returns 400 before a receipt is uploaded", func() {
			session := createSession()

			rec := sendCommand(session.ID, "alice had the pizza")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns the session with the bot error on interpretation failure", func() {
			session := createSession()
			Expect(uploadReceipt(session.ID).Code).To(Equal(http.StatusCreated))
			o.interpretErr = errServTest

			rec := sendCommand(session.ID, "gibberish")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var updated Session
			Expect(json.Unmarshal(rec.Body.Bytes(), &updated)).To(Succeed())
			Expect(updated.Chat[len(updated.Chat)-1].Text).To(ContainSubstring("Sorry, there was an issue"))
		})

		It("rejects an empty message", func() {
			session := createSession()
			Expect(uploadReceipt(session.ID).Code).To(Equal(http.StatusCreated))

			rec := sendCommand(session.ID, "   ")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			server = NewServer(service, BasicAuth{Username: "user", Password: "pass"})
		})

		It("rejects requests without credentials", func() {
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, httptest.NewRequest("POST", "/api/sessions", nil))
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("accepts requests with valid credentials", func() {
			req := httptest.NewRequest("POST", "/api/sessions", nil)
			req.SetBasicAuth("user", "pass")
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusCreated))
		})
	})

	Describe("GET /", func() {
		It("serves the HTML interface", func() {
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(ContainSubstring("text/html"))
		})
	})
})
