package view

import (
	"fmt"

	"github.com/SakuraBurst/taskhub/internal/taskhub/types"
)

const (
	explorePath   = "/explore"
	backLinkLabel = "Back to Tasks"
)

type TaskLookup interface {
	GetTaskByID(id string) (types.Task, bool)
}

type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

type NotFound struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	BackLink Link   `json:"back_link"`
}

type TokenLink struct {
	Symbol string `json:"symbol"`
	Href   string `json:"href"`
}

type Badge struct {
	Label string `json:"label"`
	Tone  string `json:"tone"`
}

type TaskView struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Reward       string      `json:"reward"`
	Difficulty   Badge       `json:"difficulty"`
	Instructions string      `json:"instructions"`
	TaskLink     *Link       `json:"task_link,omitempty"`
	Tokens       []TokenLink `json:"tokens,omitempty"`
	BackLink     Link        `json:"back_link"`
}

// Details is the read-only task page, exactly one of NotFound and Task is set.
type Details struct {
	Found    bool      `json:"found"`
	NotFound *NotFound `json:"not_found,omitempty"`
	Task     *TaskView `json:"task,omitempty"`
}

func TaskDetails(tasks TaskLookup, id string) Details {
	back := Link{Label: backLinkLabel, Href: explorePath}
	task, ok := tasks.GetTaskByID(id)
	if id == "" || !ok {
		return Details{NotFound: &NotFound{
			Title:    "Task Not Found",
			Message:  "The task you're looking for doesn't exist.",
			BackLink: back,
		}}
	}

	v := &TaskView{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Reward:       fmt.Sprintf("$%.2f", task.Reward),
		Difficulty:   difficultyBadge(task.Difficulty),
		Instructions: task.Instructions,
		BackLink:     back,
	}
	if task.Link != "" {
		v.TaskLink = &Link{Label: "Open Task Link", Href: task.Link}
	}
	for _, token := range task.Tokens {
		v.Tokens = append(v.Tokens, TokenLink{Symbol: token.Symbol, Href: token.URL})
	}
	return Details{Found: true, Task: v}
}

func difficultyBadge(d types.Difficulty) Badge {
	switch d {
	case types.DifficultyEasy:
		return Badge{Label: string(d), Tone: "green"}
	case types.DifficultyMedium:
		return Badge{Label: string(d), Tone: "yellow"}
	case types.DifficultyHard:
		return Badge{Label: string(d), Tone: "red"}
	default:
		return Badge{Label: string(d), Tone: "blue"}
	}
}
