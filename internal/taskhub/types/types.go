package types

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "Pending"
	StatusApproved SubmissionStatus = "Approved"
	StatusRejected SubmissionStatus = "Rejected"
)

type Token struct {
	Symbol string `json:"symbol"`
	URL    string `json:"url"`
}

type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Instructions string     `json:"instructions"`
	Reward       float64    `json:"reward"`
	Difficulty   Difficulty `json:"difficulty"`
	Link         string     `json:"link,omitempty"`
	Tokens       []Token    `json:"tokens,omitempty"`
}

type User struct {
	ID             int    `json:"id"`
	UserName       string `json:"user_name"`
	Password       string `json:"-"`
	TasksCompleted int    `json:"tasks_completed"`
}

type UserRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

type TaskSubmission struct {
	ID          string           `json:"id" db:"id"`
	TaskID      string           `json:"task_id" db:"task_id"`
	UserID      string           `json:"user_id" db:"user_id"`
	Status      SubmissionStatus `json:"status" db:"status"`
	SubmittedAt time.Time        `json:"submitted_at" db:"submitted_at"`
	Text        *string          `json:"text,omitempty" db:"text"`
	Screenshot  *string          `json:"screenshot,omitempty" db:"screenshot"`
}

// SubmissionData is the user supplied proof of completion.
type SubmissionData struct {
	Text       *string `json:"text,omitempty"`
	Screenshot *string `json:"screenshot,omitempty"`
}

type SubmitRequest struct {
	SubmissionData
	Status SubmissionStatus
}

type UserProgress struct {
	UserID              string          `json:"user_id"`
	CompletedTasks      map[string]bool `json:"completed_tasks"`
	CompletedFirstClick map[string]bool `json:"completed_first_click"`
	VisitedTasks        map[string]bool `json:"visited_tasks"`
	GlobalAttemptCount  int             `json:"global_attempt_count"`
	FailAttemptCount    int             `json:"fail_attempt_count"`
}

// ProgressUpdate carries the fields to merge into a stored UserProgress, nil fields are left untouched.
type ProgressUpdate struct {
	CompletedTasks      map[string]bool
	CompletedFirstClick map[string]bool
	VisitedTasks        map[string]bool
	GlobalAttemptCount  *int
	FailAttemptCount    *int
}

type FlagRequest struct {
	Value bool `json:"value"`
}
