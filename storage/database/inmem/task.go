package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/aquatrack/aquatrack/core/task"
)

type taskRepository struct {
	db *DB
}

func NewTaskRepository(db *DB) task.Repository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) CreateTask(ctx context.Context, t task.ServiceTask) (task.ServiceTask, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if t.ID == "" {
		t.ID = repo.db.nextPK()
	}
	repo.db.tasks[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) GetTaskByID(ctx context.Context, id string) (task.ServiceTask, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.tasks[id]; ok {
		return *t, nil
	}
	return task.ServiceTask{}, task.ErrNotFound
}

func (repo *taskRepository) QueryTasksByOrganization(ctx context.Context, orgID string, from, to time.Time) ([]task.ServiceTask, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	from, to = dateOnly(from), dateOnly(to)
	var tasks []task.ServiceTask
	for _, t := range repo.db.tasks {
		if t.OrganizationID != orgID {
			continue
		}
		if dateOnly(t.StartDate).After(to) || dateOnly(t.LastDate()).Before(from) {
			continue
		}
		tasks = append(tasks, *t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].StartDate.Equal(tasks[j].StartDate) {
			return tasks[i].StartDate.Before(tasks[j].StartDate)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(ctx context.Context, t task.ServiceTask) (task.ServiceTask, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tasks[t.ID]; !ok {
		return task.ServiceTask{}, task.ErrNotFound
	}
	repo.db.tasks[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) DeleteTask(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tasks[id]; !ok {
		return task.ErrNotFound
	}
	delete(repo.db.tasks, id)
	return nil
}

func (repo *taskRepository) CreateChange(ctx context.Context, c task.Change) (task.Change, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if c.ID == "" {
		c.ID = repo.db.nextPK()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	repo.db.taskChanges = append(repo.db.taskChanges, &c)
	return c, nil
}

func (repo *taskRepository) QueryChangesByTask(ctx context.Context, taskID string) ([]task.Change, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var changes []task.Change
	for _, c := range repo.db.taskChanges {
		if c.TaskID == taskID {
			changes = append(changes, *c)
		}
	}
	return changes, nil
}
