// Package remotetest provides an in-memory stand-in for the CosmicDS REST
// backend, for tests of code that talks to it.
package remotetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

type Classroom struct {
	Info map[string]any
}

type SignUp struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	Institution   string `json:"institution"`
	Email         string `json:"email"`
	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	ClassroomCode string `json:"classroomCode"`
}

type Call struct {
	Method string
	Path   string
}

type student struct {
	ID   int
	Code string
}

// Backend implements the REST contract with maps. The exported knobs may be
// set before the server receives traffic.
type Backend struct {
	// APIKey, when set, is required in the Authorization header.
	APIKey string
	// RejectSignUps makes /student-sign-up answer 500.
	RejectSignUps bool
	// HiddenReads hides a newly signed-up student from that many lookups,
	// emulating a backend without read-after-write consistency.
	HiddenReads int

	mu         sync.Mutex
	nextID     int
	students   map[string]student
	classrooms map[string]Classroom
	stages     map[string]json.RawMessage
	stories    map[string]json.RawMessage
	signUps    []SignUp
	calls      []Call
	hidden     map[string]int
}

func NewBackend() *Backend {
	return &Backend{
		nextID:     1,
		students:   map[string]student{},
		classrooms: map[string]Classroom{},
		stages:     map[string]json.RawMessage{},
		stories:    map[string]json.RawMessage{},
		hidden:     map[string]int{},
	}
}

// NewServer starts b behind an httptest server closed at test cleanup.
func NewServer(t testing.TB, b *Backend) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)
	r.Use(b.authorize)
	r.Get("/student/{hash}", b.getStudent)
	r.Get("/class-for-student-story/{studentID}/{story}", b.getClass)
	r.Post("/student-sign-up", b.signUp)
	r.Get("/stage-state/{studentID}/{story}/{stage}", b.getStage)
	r.Put("/stage-state/{studentID}/{story}/{stage}", b.putStage)
	r.Delete("/stage-state/{studentID}/{story}/{stage}", b.deleteStage)
	r.Get("/story-state/{studentID}/{story}", b.getStory)
	r.Put("/story-state/{studentID}/{story}", b.putStory)
	return r
}

// AddClassroom registers a class code students can sign up with.
func (b *Backend) AddClassroom(code string, info map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.classrooms[code] = Classroom{Info: info}
}

// AddStudent seeds a student and returns its id.
func (b *Backend) AddStudent(hash, classCode string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addStudentLocked(hash, classCode)
}

func (b *Backend) addStudentLocked(hash, classCode string) int {
	id := b.nextID
	b.nextID++
	b.students[hash] = student{ID: id, Code: classCode}
	return id
}

// SetStageState seeds the raw "state" object of a stage record.
func (b *Backend) SetStageState(studentID int, story, stage string, raw string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stages[stageKey(strconv.Itoa(studentID), story, stage)] = json.RawMessage(raw)
}

// StageState returns the stored stage record, if any.
func (b *Backend) StageState(studentID int, story, stage string) (json.RawMessage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.stages[stageKey(strconv.Itoa(studentID), story, stage)]
	return raw, ok
}

// SetStoryState seeds the raw "state" object of a story record.
func (b *Backend) SetStoryState(studentID int, story string, raw string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stories[storyKey(strconv.Itoa(studentID), story)] = json.RawMessage(raw)
}

func (b *Backend) StoryState(studentID int, story string) (json.RawMessage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.stories[storyKey(strconv.Itoa(studentID), story)]
	return raw, ok
}

func (b *Backend) SignUps() []SignUp {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SignUp(nil), b.signUps...)
}

func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CountCalls returns how many requests used method.
func (b *Backend) CountCalls(method string) int {
	n := 0
	for _, call := range b.Calls() {
		if call.Method == method {
			n++
		}
	}
	return n
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls = append(b.calls, Call{Method: r.Method, Path: r.URL.Path})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.APIKey != "" && r.Header.Get("Authorization") != b.APIKey {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) getStudent(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	b.mu.Lock()
	s, ok := b.students[hash]
	if ok && b.hidden[hash] > 0 {
		b.hidden[hash]--
		ok = false
	}
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"student": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"student": map[string]any{"id": s.ID, "username": hash},
	})
}

func (b *Backend) getClass(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "studentID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "bad student id"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	code := ""
	for _, s := range b.students {
		if s.ID == id {
			code = s.Code
		}
	}
	class, ok := b.classrooms[code]
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"class": nil, "size": 0})
		return
	}
	size := 0
	for _, s := range b.students {
		if s.Code == code {
			size++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"class": class.Info, "size": size})
}

func (b *Backend) signUp(w http.ResponseWriter, r *http.Request) {
	var req SignUp
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.signUps = append(b.signUps, req)
	if b.RejectSignUps {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false})
		return
	}
	if _, exists := b.students[req.Username]; exists {
		writeJSON(w, http.StatusConflict, map[string]any{"success": false})
		return
	}
	id := b.addStudentLocked(req.Username, req.ClassroomCode)
	if b.HiddenReads > 0 {
		b.hidden[req.Username] = b.HiddenReads
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "student_id": id})
}

func (b *Backend) getStage(w http.ResponseWriter, r *http.Request) {
	key := stageKey(chi.URLParam(r, "studentID"), chi.URLParam(r, "story"), chi.URLParam(r, "stage"))
	b.mu.Lock()
	raw, ok := b.stages[key]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "stage state not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": raw})
}

func (b *Backend) putStage(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	key := stageKey(chi.URLParam(r, "studentID"), chi.URLParam(r, "story"), chi.URLParam(r, "stage"))
	b.mu.Lock()
	b.stages[key] = raw
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) deleteStage(w http.ResponseWriter, r *http.Request) {
	key := stageKey(chi.URLParam(r, "studentID"), chi.URLParam(r, "story"), chi.URLParam(r, "stage"))
	b.mu.Lock()
	_, ok := b.stages[key]
	delete(b.stages, key)
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) getStory(w http.ResponseWriter, r *http.Request) {
	key := storyKey(chi.URLParam(r, "studentID"), chi.URLParam(r, "story"))
	b.mu.Lock()
	raw, ok := b.stories[key]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "story state not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": raw})
}

func (b *Backend) putStory(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	key := storyKey(chi.URLParam(r, "studentID"), chi.URLParam(r, "story"))
	b.mu.Lock()
	b.stories[key] = raw
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func stageKey(studentID, story, stage string) string {
	return studentID + "/" + story + "/" + stage
}

func storyKey(studentID, story string) string {
	return studentID + "/" + story
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
