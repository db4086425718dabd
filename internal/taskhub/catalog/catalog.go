package catalog

import (
	"github.com/SakuraBurst/taskhub/internal/taskhub/types"
	"github.com/go-faster/errors"
)

var ErrDuplicateTask = errors.New("duplicate task id")

// Catalog is an ordered, read-only list of tasks.
type Catalog struct {
	tasks []types.Task
	index map[string]int
}

func New(tasks ...types.Task) (*Catalog, error) {
	c := &Catalog{
		tasks: make([]types.Task, 0, len(tasks)),
		index: make(map[string]int, len(tasks)),
	}
	for _, t := range tasks {
		if t.ID == "" {
			return nil, errors.New("task without id")
		}
		if _, ok := c.index[t.ID]; ok {
			return nil, errors.Wrapf(ErrDuplicateTask, "task %q", t.ID)
		}
		c.index[t.ID] = len(c.tasks)
		c.tasks = append(c.tasks, copyTask(t))
	}
	return c, nil
}

func MustNew(tasks ...types.Task) *Catalog {
	c, err := New(tasks...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) All() []types.Task {
	result := make([]types.Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		result = append(result, copyTask(t))
	}
	return result
}

func (c *Catalog) GetTaskByID(id string) (types.Task, bool) {
	i, ok := c.index[id]
	if !ok {
		return types.Task{}, false
	}
	return copyTask(c.tasks[i]), true
}

func (c *Catalog) Len() int {
	return len(c.tasks)
}

func copyTask(t types.Task) types.Task {
	if t.Tokens != nil {
		t.Tokens = append([]types.Token(nil), t.Tokens...)
	}
	return t
}
