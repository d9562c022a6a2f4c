package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/brightpath-ai/tutoring-platform/internal/llm"
	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/internal/store"
)

// In-memory store fakes. They return store.ErrNotFound exactly like the
// real stores so the services' error mapping is exercised.

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
	// getErrs is a queue of errors returned by GetByID before it starts
	// succeeding, used to simulate a flaky store.
	getErrs []error
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]*model.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.getErrs) > 0 {
		err := f.getErrs[0]
		f.getErrs = f.getErrs[1:]
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) Update(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) List(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) ListStudentsOfTeacher(_ context.Context, teacherID string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, u := range f.users {
		if u.Role == model.RoleStudent && u.TeacherID != nil && *u.TeacherID == teacherID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) HardDelete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

type fakeConversations struct {
	mu      sync.Mutex
	convs   map[string]*model.Conversation
	deleted map[string]bool
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{
		convs:   make(map[string]*model.Conversation),
		deleted: make(map[string]bool),
	}
}

func (f *fakeConversations) Create(_ context.Context, c *model.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.convs[c.ID] = &cp
	return nil
}

func (f *fakeConversations) GetOwned(_ context.Context, userID, id string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok || f.deleted[id] || c.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConversations) List(_ context.Context, userID string, limit, offset int) ([]model.Conversation, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Conversation
	for id, c := range f.convs {
		if c.UserID == userID && !f.deleted[id] {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeConversations) Rename(_ context.Context, userID, id, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok || f.deleted[id] || c.UserID != userID {
		return store.ErrNotFound
	}
	c.Title = title
	return nil
}

func (f *fakeConversations) SoftDelete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok || f.deleted[id] || c.UserID != userID {
		return store.ErrNotFound
	}
	f.deleted[id] = true
	return nil
}

func (f *fakeConversations) Touch(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return store.ErrNotFound
	}
	c.MessageCount++
	c.LastActivity = at
	return nil
}

func (f *fakeConversations) ListAll(_ context.Context, limit, offset int) ([]model.Conversation, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Conversation
	for _, c := range f.convs {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeConversations) GetAny(_ context.Context, id string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConversations) HardDelete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.convs[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.convs, id)
	delete(f.deleted, id)
	return nil
}

type fakeMessages struct {
	mu   sync.Mutex
	msgs []*model.Message
}

func (f *fakeMessages) Create(_ context.Context, m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.msgs = append(f.msgs, &cp)
	return nil
}

func (f *fakeMessages) List(_ context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, m := range f.msgs {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMessages) ListRecent(_ context.Context, conversationID string, limit int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, m := range f.msgs {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeMessages) GetByID(_ context.Context, id string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeMessages) SetFlagged(_ context.Context, id string, flagged bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			m.Flagged = flagged
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeMessages) ListFlaggedForTeacher(_ context.Context, teacherID string, limit int) ([]model.Message, error) {
	return nil, nil
}

type fakeQuizzes struct {
	mu          sync.Mutex
	quizzes     map[string]*model.Quiz
	assignments map[string]*model.QuizAssignment
}

func newFakeQuizzes() *fakeQuizzes {
	return &fakeQuizzes{
		quizzes:     make(map[string]*model.Quiz),
		assignments: make(map[string]*model.QuizAssignment),
	}
}

func (f *fakeQuizzes) Create(_ context.Context, q *model.Quiz) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *q
	f.quizzes[q.ID] = &cp
	return nil
}

func (f *fakeQuizzes) Get(_ context.Context, id string) (*model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quizzes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuizzes) ListByTeacher(_ context.Context, teacherID string) ([]model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Quiz
	for _, q := range f.quizzes {
		if q.TeacherID == teacherID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeQuizzes) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.quizzes[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.quizzes, id)
	return nil
}

func (f *fakeQuizzes) CountLiveAssignments(_ context.Context, quizID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, a := range f.assignments {
		if a.QuizID == quizID && !a.Completed {
			n++
		}
	}
	return n, nil
}

func (f *fakeQuizzes) CreateAssignments(_ context.Context, assignments []model.QuizAssignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range assignments {
		cp := a
		f.assignments[a.ID] = &cp
	}
	return nil
}

func (f *fakeQuizzes) ListAssignmentsByQuiz(_ context.Context, quizID string) ([]model.QuizAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.QuizAssignment
	for _, a := range f.assignments {
		if a.QuizID == quizID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeQuizzes) ListAssignmentsByStudent(_ context.Context, studentID string) ([]model.QuizAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.QuizAssignment
	for _, a := range f.assignments {
		if a.StudentID == studentID {
			cp := *a
			if q, ok := f.quizzes[a.QuizID]; ok {
				qc := *q
				cp.Quiz = &qc
			}
			out = append(out, cp)
		}
	}
	return out, nil
}

func (f *fakeQuizzes) GetAssignment(_ context.Context, studentID, assignmentID string) (*model.QuizAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[assignmentID]
	if !ok || a.StudentID != studentID {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeQuizzes) CompleteAssignment(_ context.Context, assignmentID string, score int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[assignmentID]
	if !ok {
		return store.ErrNotFound
	}
	a.Completed = true
	a.Score = &score
	a.CompletedAt = &at
	return nil
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*model.StudentProfile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[string]*model.StudentProfile)}
}

func (f *fakeProfiles) GetByStudent(_ context.Context, studentID string) (*model.StudentProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[studentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Upsert(_ context.Context, p *model.StudentProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.profiles[p.StudentID] = &cp
	return nil
}

type fakeEvents struct {
	mu       sync.Mutex
	messages []*model.Message
	events   []*model.TutorEvent
}

func (f *fakeEvents) PublishMessage(_ context.Context, userID string, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *msg
	f.messages = append(f.messages, &cp)
	return nil
}

func (f *fakeEvents) PublishEvent(_ context.Context, event *model.TutorEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *event
	f.events = append(f.events, &cp)
	return nil
}

// fakeLLM scripts a provider: Complete returns the canned content,
// CompleteStream emits tokens then optionally fails.
type fakeLLM struct {
	name      string
	content   string
	tokens    []string
	streamErr error
	lastReq   *llm.CompletionRequest
}

func (f *fakeLLM) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.lastReq = req
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return &llm.CompletionResponse{
		Content:    f.content,
		Model:      req.Model,
		TokensIn:   10,
		TokensOut:  20,
		StopReason: "stop",
	}, nil
}

func (f *fakeLLM) CompleteStream(_ context.Context, req *llm.CompletionRequest, callback llm.StreamCallback) (*llm.CompletionResponse, error) {
	f.lastReq = req
	var emitted string
	for i, tok := range f.tokens {
		if err := callback(tok, i); err != nil {
			return nil, err
		}
		emitted += tok
	}
	if f.streamErr != nil {
		return nil, &llm.StreamError{Partial: emitted, Err: f.streamErr}
	}
	return &llm.CompletionResponse{
		Content:    emitted,
		Model:      req.Model,
		TokensIn:   10,
		TokensOut:  len(f.tokens),
		StopReason: "stop",
	}, nil
}

func (f *fakeLLM) Name() string { return f.name }

func (f *fakeLLM) Models() []string { return []string{f.name + "-model"} }
