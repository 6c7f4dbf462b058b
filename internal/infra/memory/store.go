package memory

import (
	"context"
	"sort"
	"sync"

	"bugfeature-quiz-service/internal/domain"
	"bugfeature-quiz-service/internal/history"
)

// Store is an in-memory implementation of app.Store. It backs the unit tests
// and the no-Postgres fallback wiring. A single mutex covers every operation,
// which also gives Upvote its check-then-mutate atomicity.
type Store struct {
	mu        sync.RWMutex
	questions map[string]*domain.Question
	order     []string // question idents in insertion order
	users     map[string]*domain.User
	byName    map[string]string // user name -> ident
}

func NewStore() *Store {
	return &Store{
		questions: make(map[string]*domain.Question),
		users:     make(map[string]*domain.User),
		byName:    make(map[string]string),
	}
}

func (s *Store) InsertQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := q
	s.questions[q.Ident] = &copied
	s.order = append(s.order, q.Ident)
	return nil
}

func (s *Store) GetQuestion(_ context.Context, ident string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[ident]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return *q, nil
}

func (s *Store) QuestionsByVotes(_ context.Context, order domain.VoteOrder) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	questions := make([]domain.Question, 0, len(s.order))
	for _, ident := range s.order {
		if q, ok := s.questions[ident]; ok {
			questions = append(questions, *q)
		}
	}
	// SliceStable keeps insertion order for equal vote counts.
	sort.SliceStable(questions, func(i, j int) bool {
		if order == domain.VotesAscending {
			return questions[i].Votes < questions[j].Votes
		}
		return questions[i].Votes > questions[j].Votes
	})
	return questions, nil
}

func (s *Store) SetQuestionVotes(_ context.Context, ident string, votes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[ident]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.Votes = votes
	return nil
}

// DeleteQuestion removes a question. Administrative surface; history entries
// referencing it simply stop matching during selection.
func (s *Store) DeleteQuestion(_ context.Context, ident string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[ident]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, ident)
	for i, got := range s.order {
		if got == ident {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) InsertUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[u.Name]; ok {
		return domain.ErrUserExists
	}
	copied := u
	s.users[u.Ident] = &copied
	s.byName[u.Name] = u.Ident
	return nil
}

func (s *Store) GetUser(_ context.Context, ident string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[ident]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *u, nil
}

func (s *Store) GetUserByName(_ context.Context, name string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.byName[name]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *s.users[ident], nil
}

// DeleteUserByIdent removes a user by ident. Administrative surface.
func (s *Store) DeleteUserByIdent(_ context.Context, ident string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[ident]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(s.byName, u.Name)
	delete(s.users, ident)
	return nil
}

// DeleteUserByName removes a user by name. Kept distinct from
// DeleteUserByIdent; the store never dispatches on argument shape.
func (s *Store) DeleteUserByName(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ident, ok := s.byName[name]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, ident)
	delete(s.byName, name)
	return nil
}

func (s *Store) AppendHistory(_ context.Context, userIdent string, field domain.HistoryField, questionIdent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendHistoryLocked(userIdent, field, questionIdent)
}

func (s *Store) appendHistoryLocked(userIdent string, field domain.HistoryField, questionIdent string) error {
	u, ok := s.users[userIdent]
	if !ok {
		return domain.ErrUserNotFound
	}
	switch field {
	case domain.CorrectAnswers:
		u.CorrectAnswers = history.Append(u.CorrectAnswers, questionIdent)
	case domain.IncorrectAnswers:
		u.IncorrectAnswers = history.Append(u.IncorrectAnswers, questionIdent)
	case domain.SubmittedQuestions:
		u.SubmittedQuestions = history.Append(u.SubmittedQuestions, questionIdent)
	case domain.UpvotedQuestions:
		u.UpvotedQuestions = history.Append(u.UpvotedQuestions, questionIdent)
	}
	return nil
}

func (s *Store) Upvote(_ context.Context, userIdent, questionIdent string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userIdent]
	if !ok {
		return false, 0, domain.ErrUserNotFound
	}
	q, ok := s.questions[questionIdent]
	if !ok {
		return false, 0, domain.ErrQuestionNotFound
	}
	if history.Contains(u.UpvotedQuestions, questionIdent) {
		return false, q.Votes, nil
	}
	if err := s.appendHistoryLocked(userIdent, domain.UpvotedQuestions, questionIdent); err != nil {
		return false, 0, err
	}
	q.Votes++
	return true, q.Votes, nil
}
