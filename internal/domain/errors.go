package domain

import "errors"

var (
	// ErrUserNotFound is returned when a user ident does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when a user name is already taken on insert.
	ErrUserExists = errors.New("user name already exists")
	// ErrWrongPassword is returned on a credential mismatch for an existing user.
	ErrWrongPassword = errors.New("wrong password, try again")
	// ErrQuestionNotFound is returned when a question ident does not resolve.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoUnseenQuestions signals the user has answered every question in the
	// database. Expected terminal state, not an internal failure.
	ErrNoUnseenQuestions = errors.New("no unseen questions remain")
)
