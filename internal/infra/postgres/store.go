package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"bugfeature-quiz-service/internal/domain"
	"bugfeature-quiz-service/internal/history"
)

const uniqueViolation = "23505"

// Store implements app.Store on Postgres. History fields live as delimited
// text columns; Upvote runs its check-append-increment inside a transaction
// with the user row locked, so concurrent votes apply at most once.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) InsertQuestion(ctx context.Context, q domain.Question) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO questions (ident, title, txt, answer, expl, difficulty, votes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		q.Ident, q.Title, q.Text, q.Answer, q.Explanation, q.Difficulty, q.Votes)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, ident string) (domain.Question, error) {
	var q domain.Question
	err := s.pool.QueryRow(ctx, `
		SELECT ident, title, txt, answer, expl, difficulty, votes
		FROM questions WHERE ident=$1`, ident).
		Scan(&q.Ident, &q.Title, &q.Text, &q.Answer, &q.Explanation, &q.Difficulty, &q.Votes)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

func (s *Store) QuestionsByVotes(ctx context.Context, order domain.VoteOrder) ([]domain.Question, error) {
	// Secondary sort on id keeps ties in insertion order.
	query := `
		SELECT ident, title, txt, answer, expl, difficulty, votes
		FROM questions ORDER BY votes DESC, id ASC`
	if order == domain.VotesAscending {
		query = `
		SELECT ident, title, txt, answer, expl, difficulty, votes
		FROM questions ORDER BY votes ASC, id ASC`
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.Ident, &q.Title, &q.Text, &q.Answer, &q.Explanation, &q.Difficulty, &q.Votes); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) SetQuestionVotes(ctx context.Context, ident string, votes int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE questions SET votes=$2 WHERE ident=$1`, ident, votes)
	if err != nil {
		return fmt.Errorf("set votes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

// DeleteQuestion removes a question by ident. Administrative surface.
func (s *Store) DeleteQuestion(ctx context.Context, ident string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE ident=$1`, ident)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) InsertUser(ctx context.Context, u domain.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (ident, user_name, password, correct_answers, incorrect_answers, submitted_questions, upvoted_questions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.Ident, u.Name, u.PasswordHash, u.CorrectAnswers, u.IncorrectAnswers, u.SubmittedQuestions, u.UpvotedQuestions)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, ident string) (domain.User, error) {
	return s.getUser(ctx, `WHERE ident=$1`, ident)
}

func (s *Store) GetUserByName(ctx context.Context, name string) (domain.User, error) {
	return s.getUser(ctx, `WHERE user_name=$1`, name)
}

func (s *Store) getUser(ctx context.Context, where, arg string) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, `
		SELECT ident, user_name, password, correct_answers, incorrect_answers, submitted_questions, upvoted_questions
		FROM users `+where, arg).
		Scan(&u.Ident, &u.Name, &u.PasswordHash, &u.CorrectAnswers, &u.IncorrectAnswers, &u.SubmittedQuestions, &u.UpvotedQuestions)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// DeleteUserByIdent removes a user by ident. Administrative surface.
func (s *Store) DeleteUserByIdent(ctx context.Context, ident string) error {
	return s.deleteUser(ctx, `WHERE ident=$1`, ident)
}

// DeleteUserByName removes a user by name. Kept distinct from
// DeleteUserByIdent; callers choose the operation, not the argument type.
func (s *Store) DeleteUserByName(ctx context.Context, name string) error {
	return s.deleteUser(ctx, `WHERE user_name=$1`, name)
}

func (s *Store) deleteUser(ctx context.Context, where, arg string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users `+where, arg)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) AppendHistory(ctx context.Context, userIdent string, field domain.HistoryField, questionIdent string) error {
	column, err := historyColumn(field)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE users SET %s = CASE WHEN %s = '' THEN $2 ELSE %s || ', ' || $2 END
		WHERE ident=$1`, column, column, column),
		userIdent, questionIdent)
	if err != nil {
		return fmt.Errorf("append %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) Upvote(ctx context.Context, userIdent, questionIdent string) (bool, int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("begin upvote tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var upvoted string
	err = tx.QueryRow(ctx, `SELECT upvoted_questions FROM users WHERE ident=$1 FOR UPDATE`, userIdent).Scan(&upvoted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, 0, domain.ErrUserNotFound
	}
	if err != nil {
		return false, 0, fmt.Errorf("lock user row: %w", err)
	}

	if history.Contains(upvoted, questionIdent) {
		var votes int
		err := tx.QueryRow(ctx, `SELECT votes FROM questions WHERE ident=$1`, questionIdent).Scan(&votes)
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, domain.ErrQuestionNotFound
		}
		if err != nil {
			return false, 0, fmt.Errorf("read votes: %w", err)
		}
		return false, votes, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET upvoted_questions = CASE WHEN upvoted_questions = '' THEN $2 ELSE upvoted_questions || ', ' || $2 END
		WHERE ident=$1`, userIdent, questionIdent)
	if err != nil {
		return false, 0, fmt.Errorf("record upvote: %w", err)
	}

	var votes int
	err = tx.QueryRow(ctx, `UPDATE questions SET votes = votes + 1 WHERE ident=$1 RETURNING votes`, questionIdent).Scan(&votes)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, 0, domain.ErrQuestionNotFound
	}
	if err != nil {
		return false, 0, fmt.Errorf("increment votes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("commit upvote: %w", err)
	}
	return true, votes, nil
}

func historyColumn(field domain.HistoryField) (string, error) {
	switch field {
	case domain.CorrectAnswers:
		return "correct_answers", nil
	case domain.IncorrectAnswers:
		return "incorrect_answers", nil
	case domain.SubmittedQuestions:
		return "submitted_questions", nil
	case domain.UpvotedQuestions:
		return "upvoted_questions", nil
	}
	return "", fmt.Errorf("unknown history field %q", field)
}
