package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bugfeature-quiz-service/internal/domain"
	"bugfeature-quiz-service/internal/history"
)

// Store abstracts the durable record store holding questions and users
// (in-memory, Postgres, or a caching layer in front of either).
type Store interface {
	InsertQuestion(ctx context.Context, q domain.Question) error
	GetQuestion(ctx context.Context, ident string) (domain.Question, error)
	// QuestionsByVotes returns every question ordered by vote count. Ties keep
	// insertion order, so the result is deterministic for a fixed snapshot.
	QuestionsByVotes(ctx context.Context, order domain.VoteOrder) ([]domain.Question, error)
	// SetQuestionVotes overwrites the vote count, bypassing the per-user
	// ledger. Administrative path only; see QuizService.OverrideVotes.
	SetQuestionVotes(ctx context.Context, ident string, votes int) error

	InsertUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, ident string) (domain.User, error)
	GetUserByName(ctx context.Context, name string) (domain.User, error)
	AppendHistory(ctx context.Context, userIdent string, field domain.HistoryField, questionIdent string) error

	// Upvote atomically records the (user, question) pair in the user's
	// upvoted history and bumps the question's vote count by one. It must
	// re-check membership under whatever locking the store provides, so that
	// concurrent calls for the same pair apply at most once.
	Upvote(ctx context.Context, userIdent, questionIdent string) (applied bool, votes int, err error)
}

// QuizService contains the quiz use cases: resolving users, serving unseen
// questions, grading answers, casting upvotes and computing stats.
type QuizService struct {
	store Store
}

func NewQuizService(store Store) *QuizService {
	return &QuizService{store: store}
}

// ResolveOrCreateUser returns the user for name, creating it with empty
// history on first contact. An existing user with a mismatched password
// yields domain.ErrWrongPassword.
func (s *QuizService) ResolveOrCreateUser(ctx context.Context, name, password string) (domain.User, error) {
	user, err := s.store.GetUserByName(ctx, name)
	if err == nil {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			return domain.User{}, domain.ErrWrongPassword
		}
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, fmt.Errorf("look up user %q: %w", name, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user = domain.User{
		Ident:        uuid.NewString(),
		Name:         name,
		PasswordHash: string(hash),
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("create user %q: %w", name, err)
	}
	log.Printf("created user %q with ident %s", name, user.Ident)
	return user, nil
}

// SubmitQuestion inserts a new question and records the submitter in its
// author's submitted-questions history.
func (s *QuizService) SubmitQuestion(ctx context.Context, userIdent string, sub domain.QuestionSubmission) (domain.Question, error) {
	if _, err := s.store.GetUser(ctx, userIdent); err != nil {
		return domain.Question{}, err
	}

	q := domain.Question{
		Ident:       uuid.NewString(),
		Title:       sub.Title,
		Text:        sub.Text,
		Answer:      sub.Answer,
		Explanation: sub.Explanation,
		Difficulty:  sub.Difficulty,
		Votes:       sub.SeedVotes,
	}
	if err := s.store.InsertQuestion(ctx, q); err != nil {
		return domain.Question{}, fmt.Errorf("insert question %q: %w", sub.Title, err)
	}
	if err := s.store.AppendHistory(ctx, userIdent, domain.SubmittedQuestions, q.Ident); err != nil {
		return domain.Question{}, fmt.Errorf("record submission for user %s: %w", userIdent, err)
	}
	log.Printf("inserted question %q (%s) by user %s", q.Title, q.Ident, userIdent)
	return q, nil
}

// NextQuestionFor picks the highest-voted question the user has not answered
// yet. Returns domain.ErrNoUnseenQuestions when the user has seen everything.
func (s *QuizService) NextQuestionFor(ctx context.Context, userIdent string) (domain.Question, error) {
	return s.NextQuestionOrdered(ctx, userIdent, domain.VotesDescending)
}

// NextQuestionOrdered is NextQuestionFor with an explicit vote ordering.
func (s *QuizService) NextQuestionOrdered(ctx context.Context, userIdent string, order domain.VoteOrder) (domain.Question, error) {
	user, err := s.store.GetUser(ctx, userIdent)
	if err != nil {
		return domain.Question{}, err
	}

	seen := make(map[string]struct{})
	for _, ident := range history.Decode(user.CorrectAnswers) {
		seen[ident] = struct{}{}
	}
	for _, ident := range history.Decode(user.IncorrectAnswers) {
		seen[ident] = struct{}{}
	}

	questions, err := s.store.QuestionsByVotes(ctx, order)
	if err != nil {
		return domain.Question{}, fmt.Errorf("list questions: %w", err)
	}
	for _, q := range questions {
		if _, ok := seen[q.Ident]; !ok {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrNoUnseenQuestions
}

// GradeAnswer compares the submitted answer with the canonical one and files
// the question into exactly one of the user's correct/incorrect histories.
// The returned feedback names the right category on a miss and always carries
// the stored explanation on a new line.
func (s *QuizService) GradeAnswer(ctx context.Context, userIdent, questionIdent, answer string) (string, bool, error) {
	if _, err := s.store.GetUser(ctx, userIdent); err != nil {
		return "", false, err
	}
	q, err := s.store.GetQuestion(ctx, questionIdent)
	if err != nil {
		return "", false, err
	}

	correct := strings.EqualFold(answer, q.Answer)
	field := domain.IncorrectAnswers
	feedback := fmt.Sprintf("Sorry, this was a %q.", q.Answer)
	if correct {
		field = domain.CorrectAnswers
		feedback = "Correct!"
	}
	if err := s.store.AppendHistory(ctx, userIdent, field, q.Ident); err != nil {
		return "", false, fmt.Errorf("record answer for user %s question %s: %w", userIdent, q.Ident, err)
	}
	return feedback + "\n" + q.Explanation, correct, nil
}

// CastUpvote applies at most one upvote per (user, question) pair. Repeat
// calls are a no-op returning applied=false with the current vote count.
func (s *QuizService) CastUpvote(ctx context.Context, userIdent, questionIdent string) (bool, int, error) {
	user, err := s.store.GetUser(ctx, userIdent)
	if err != nil {
		return false, 0, err
	}
	q, err := s.store.GetQuestion(ctx, questionIdent)
	if err != nil {
		return false, 0, err
	}

	// Fast path; the store re-checks under its own lock before mutating.
	if history.Contains(user.UpvotedQuestions, questionIdent) {
		return false, q.Votes, nil
	}

	applied, votes, err := s.store.Upvote(ctx, userIdent, questionIdent)
	if err != nil {
		return false, 0, fmt.Errorf("upvote question %s by user %s: %w", questionIdent, userIdent, err)
	}
	return applied, votes, nil
}

// OverrideVotes sets an absolute vote count, bypassing the per-user ledger.
// Used for seeding and tests; never wired into the websocket transport.
func (s *QuizService) OverrideVotes(ctx context.Context, questionIdent string, votes int) error {
	if _, err := s.store.GetQuestion(ctx, questionIdent); err != nil {
		return err
	}
	return s.store.SetQuestionVotes(ctx, questionIdent, votes)
}

// UserStats derives the accuracy score and submission tallies from the
// user's accumulated history.
func (s *QuizService) UserStats(ctx context.Context, userIdent string) (domain.UserStats, error) {
	user, err := s.store.GetUser(ctx, userIdent)
	if err != nil {
		return domain.UserStats{}, err
	}

	correct := len(history.Decode(user.CorrectAnswers))
	incorrect := len(history.Decode(user.IncorrectAnswers))
	submitted := history.Decode(user.SubmittedQuestions)

	votes, err := s.totalSubmissionVotes(ctx, submitted)
	if err != nil {
		return domain.UserStats{}, err
	}
	return domain.UserStats{
		Score:          AccuracyScore(correct, incorrect),
		ScoreText:      FormatScore(correct, incorrect),
		SubmittedCount: len(submitted),
		SubmittedVotes: votes,
	}, nil
}

// totalSubmissionVotes sums the current vote counts across the given
// questions. A missing question is a fatal lookup error rather than a silent
// skip: a dangling ident here points at data corruption worth surfacing.
func (s *QuizService) totalSubmissionVotes(ctx context.Context, idents []string) (int, error) {
	total := 0
	for _, ident := range idents {
		q, err := s.store.GetQuestion(ctx, ident)
		if err != nil {
			return 0, fmt.Errorf("sum votes for question %s: %w", ident, err)
		}
		total += q.Votes
	}
	return total, nil
}
