package domain

// Answer categories a question can be filed under.
const (
	AnswerBug     = "Bug"
	AnswerFeature = "Feature"
)

// VoteOrder controls how questions are ordered when served.
type VoteOrder string

const (
	VotesDescending VoteOrder = "desc"
	VotesAscending  VoteOrder = "asc"
)

// Question is a quiz item: a snippet of code plus the verdict on it.
type Question struct {
	Ident       string `json:"ident"`
	Title       string `json:"title"`
	Text        string `json:"txt"`
	Answer      string `json:"answer"`
	Explanation string `json:"expl"`
	Difficulty  int    `json:"difficulty"`
	Votes       int    `json:"votes"`
}

// QuestionSubmission carries the fields a user provides when adding a question.
// SeedVotes bootstraps the vote count (0 for user submissions).
type QuestionSubmission struct {
	Title       string
	Text        string
	Answer      string
	Explanation string
	Difficulty  int
	SeedVotes   int
}

// HistoryField names one of the per-user answer-history columns.
type HistoryField string

const (
	CorrectAnswers     HistoryField = "correct_answers"
	IncorrectAnswers   HistoryField = "incorrect_answers"
	SubmittedQuestions HistoryField = "submitted_questions"
	UpvotedQuestions   HistoryField = "upvoted_questions"
)

// User is a quiz participant. The four history fields hold question idents
// encoded as delimited text; decode them with the history package, never by hand.
type User struct {
	Ident              string
	Name               string
	PasswordHash       string
	CorrectAnswers     string
	IncorrectAnswers   string
	SubmittedQuestions string
	UpvotedQuestions   string
}

// UserStats is the derived per-user scoreboard shown alongside questions.
type UserStats struct {
	Score          float64 `json:"user_score"`
	ScoreText      string  `json:"user_score_str"`
	SubmittedCount int     `json:"user_submitted_questions_count"`
	SubmittedVotes int     `json:"user_submitted_questions_votes"`
}
