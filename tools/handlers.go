package tools

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"taskwing/store"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

func validateTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Title is required"
	}
	if len(title) > maxTitleLen {
		return "Title must be 200 characters or less"
	}
	return ""
}

func taskItem(t *store.Task) map[string]interface{} {
	return map[string]interface{}{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"completed":   t.Completed,
		"created_at":  fmtTime(t.CreatedAt),
		"updated_at":  fmtTime(t.UpdatedAt),
	}
}

func (e *Executor) createTask(ctx context.Context, owner string, args map[string]interface{}) Result {
	title := stringArg(args, "title")
	if msg := validateTitle(title); msg != "" {
		return failure("%s", msg)
	}
	description := stringArg(args, "description")
	if len(description) > maxDescriptionLen {
		return failure("Description must be 1000 characters or less")
	}

	task := &store.Task{
		UserID:      owner,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
	}
	if err := e.store.CreateTask(task); err != nil {
		return failure("Failed to create task: %v", err)
	}

	e.emitter.TaskCreated(owner, task.ID, task.Title, task.Description)

	return Result{
		"success":     true,
		"id":          task.ID,
		"title":       task.Title,
		"description": task.Description,
		"completed":   task.Completed,
		"created_at":  fmtTime(task.CreatedAt),
	}
}

func (e *Executor) listTasks(ctx context.Context, owner string, args map[string]interface{}) Result {
	tasks, err := e.store.ListTasks(owner)
	if err != nil {
		return failure("Failed to list tasks: %v", err)
	}

	items := make([]map[string]interface{}, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskItem(t))
	}
	return Result{"success": true, "tasks": items, "count": len(items)}
}

func (e *Executor) getTask(ctx context.Context, owner string, args map[string]interface{}) Result {
	taskID, ok := intArg(args, "task_id")
	if !ok {
		return failure("task_id is required")
	}

	task, err := e.store.GetTask(owner, taskID)
	if err == store.ErrNotFound {
		return failure("Task with ID %d not found", taskID)
	}
	if err != nil {
		return failure("Failed to get task: %v", err)
	}

	item := taskItem(task)
	item["success"] = true
	return item
}

func (e *Executor) updateTask(ctx context.Context, owner string, args map[string]interface{}) Result {
	taskID, ok := intArg(args, "task_id")
	if !ok {
		return failure("task_id is required")
	}

	title := optionalString(args, "title")
	description := optionalString(args, "description")
	if title == nil && description == nil {
		return failure("Must provide at least one field to update (title or description)")
	}
	if title != nil && len(*title) > maxTitleLen {
		return failure("Title must be 200 characters or less")
	}
	if description != nil && len(*description) > maxDescriptionLen {
		return failure("Description must be 1000 characters or less")
	}

	task, err := e.store.GetTask(owner, taskID)
	if err == store.ErrNotFound {
		return failure("Task with ID %d not found", taskID)
	}
	if err != nil {
		return failure("Failed to update task: %v", err)
	}

	if title != nil {
		task.Title = strings.TrimSpace(*title)
	}
	if description != nil {
		task.Description = strings.TrimSpace(*description)
	}
	if err := e.store.UpdateTask(task); err != nil {
		return failure("Failed to update task: %v", err)
	}

	e.emitter.TaskUpdated(owner, task.ID, title, description)

	return Result{
		"success":     true,
		"id":          task.ID,
		"title":       task.Title,
		"description": task.Description,
		"completed":   task.Completed,
		"updated_at":  fmtTime(task.UpdatedAt),
	}
}

func (e *Executor) completeTask(ctx context.Context, owner string, args map[string]interface{}) Result {
	taskID, ok := intArg(args, "task_id")
	if !ok {
		return failure("task_id is required")
	}

	task, err := e.store.GetTask(owner, taskID)
	if err == store.ErrNotFound {
		return failure("Task with ID %d not found", taskID)
	}
	if err != nil {
		return failure("Failed to update task: %v", err)
	}

	task.Completed = !task.Completed
	if err := e.store.UpdateTask(task); err != nil {
		return failure("Failed to update task: %v", err)
	}

	e.emitter.TaskToggled(owner, task.ID, task.Completed)

	status := "incomplete"
	if task.Completed {
		status = "completed"
	}
	return Result{
		"success":   true,
		"id":        task.ID,
		"title":     task.Title,
		"completed": task.Completed,
		"message":   fmt.Sprintf("Task '%s' marked as %s", task.Title, status),
	}
}

func (e *Executor) deleteTask(ctx context.Context, owner string, args map[string]interface{}) Result {
	taskID, ok := intArg(args, "task_id")
	if !ok {
		return failure("task_id is required")
	}

	err := e.store.DeleteTask(owner, taskID)
	if err == store.ErrNotFound {
		return failure("Task with ID %d not found", taskID)
	}
	if err != nil {
		return failure("Failed to delete task: %v", err)
	}

	e.emitter.TaskDeleted(owner, taskID)

	return Result{
		"success": true,
		"message": fmt.Sprintf("Task %d deleted successfully", taskID),
	}
}

func (e *Executor) searchTasks(ctx context.Context, owner string, args map[string]interface{}) Result {
	rawKeyword := stringArg(args, "keyword")
	keyword := strings.ToLower(strings.TrimSpace(rawKeyword))
	if keyword == "" {
		return failure("Keyword cannot be empty")
	}
	completedOnly := optionalBool(args, "completed_only")

	tasks, err := e.store.ListTasks(owner)
	if err != nil {
		return failure("Failed to search tasks: %v", err)
	}

	items := make([]map[string]interface{}, 0)
	for _, t := range tasks {
		if completedOnly != nil && t.Completed != *completedOnly {
			continue
		}
		if !strings.Contains(strings.ToLower(t.Title), keyword) &&
			!strings.Contains(strings.ToLower(t.Description), keyword) {
			continue
		}
		items = append(items, map[string]interface{}{
			"id":          t.ID,
			"title":       t.Title,
			"description": t.Description,
			"completed":   t.Completed,
			"created_at":  fmtTime(t.CreatedAt),
		})
	}

	e.logger.Debug("searched tasks",
		zap.String("user_id", owner),
		zap.String("keyword", keyword),
		zap.Int("matches", len(items)))

	return Result{
		"success": true,
		"tasks":   items,
		"count":   len(items),
		"keyword": rawKeyword,
	}
}
