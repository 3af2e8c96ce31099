package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/services"
)

type getTaskResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func newGetTaskResponse(task *models.Task) getTaskResponse {
	return getTaskResponse{
		ID:          task.ID,
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		Priority:    string(task.Priority),
		DueDate:     task.DueDate,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func newGetTasksResponse(tasks []*models.Task) []getTaskResponse {
	response := make([]getTaskResponse, len(tasks))
	for i, task := range tasks {
		response[i] = newGetTaskResponse(task)
	}
	return response
}

type taskStatisticsResponse struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByPriority map[string]int64 `json:"by_priority"`
	Overdue    int64            `json:"overdue"`
}

func newTaskStatisticsResponse(stats *models.TaskStatistics) taskStatisticsResponse {
	response := taskStatisticsResponse{
		Total:      stats.Total,
		ByStatus:   make(map[string]int64, len(stats.ByStatus)),
		ByPriority: make(map[string]int64, len(stats.ByPriority)),
		Overdue:    stats.Overdue,
	}
	for status, n := range stats.ByStatus {
		response.ByStatus[string(status)] = n
	}
	for priority, n := range stats.ByPriority {
		response.ByPriority[string(priority)] = n
	}
	return response
}

type createTaskRequest struct {
	Title       string          `json:"title" binding:"required,min=1,max=255"`
	Description string          `json:"description" binding:"max=2000"`
	Priority    models.Priority `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time      `json:"due_date"`
}

func (r createTaskRequest) params() services.CreateTaskParams {
	return services.CreateTaskParams{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		DueDate:     r.DueDate,
	}
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if !h.bindJSON(c, &req) {
		return
	}

	task, err := h.services(c).Tasks.Create(c, actorFromContext(c), req.params())
	if err != nil {
		h.abortWithServiceError(c, err, "failed to create task")
		return
	}

	h.respond(c, http.StatusCreated, newGetTaskResponse(task))
}

type getTasksQuery struct {
	Skip     uint64 `form:"skip" binding:"max=9223372036854775807"`
	Limit    uint64 `form:"limit" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=pending in_progress completed archived"`
	Priority string `form:"priority" binding:"omitempty,oneof=low medium high urgent"`
}

func (q getTasksQuery) params() services.ListTasksParams {
	return services.ListTasksParams{
		Status:   models.TaskStatus(q.Status),
		Priority: models.Priority(q.Priority),
		Offset:   q.Skip,
		Limit:    q.Limit,
	}
}

func (h *handlerImpl) HandleGetTasks(c *gin.Context) {
	var query getTasksQuery
	if !h.bindQuery(c, &query) {
		return
	}
	h.listTasks(c, query.params())
}

type searchTasksQuery struct {
	Skip      uint64    `form:"skip" binding:"max=9223372036854775807"`
	Limit     uint64    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status    string    `form:"status" binding:"omitempty,oneof=pending in_progress completed archived"`
	Priority  string    `form:"priority" binding:"omitempty,oneof=low medium high urgent"`
	OwnerID   string    `form:"owner_id" binding:"omitempty,uuid"`
	Query     string    `form:"q" binding:"max=255"`
	DueAfter  time.Time `form:"due_after" time_format:"2006-01-02T15:04:05Z07:00"`
	DueBefore time.Time `form:"due_before" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (h *handlerImpl) HandleSearchTasks(c *gin.Context) {
	var query searchTasksQuery
	if !h.bindQuery(c, &query) {
		return
	}

	h.listTasks(c, services.ListTasksParams{
		OwnerID:   query.OwnerID,
		Status:    models.TaskStatus(query.Status),
		Priority:  models.Priority(query.Priority),
		DueAfter:  optionalTime(query.DueAfter),
		DueBefore: optionalTime(query.DueBefore),
		Query:     query.Query,
		Offset:    query.Skip,
		Limit:     query.Limit,
	})
}

func (h *handlerImpl) listTasks(c *gin.Context, params services.ListTasksParams) {
	tasks, err := h.services(c).Tasks.List(c, actorFromContext(c), params)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to list tasks")
		return
	}

	h.logger.Debug().
		Int("count", len(tasks)).
		Msg("fetched tasks")
	h.respond(c, http.StatusOK, newGetTasksResponse(tasks))
}

func (h *handlerImpl) HandleGetTaskStatistics(c *gin.Context) {
	stats, err := h.services(c).Tasks.Statistics(c, actorFromContext(c))
	if err != nil {
		h.abortWithServiceError(c, err, "failed to get task statistics")
		return
	}

	h.respond(c, http.StatusOK, newTaskStatisticsResponse(stats))
}

type bulkCreateTasksRequest struct {
	Items []createTaskRequest `json:"items" binding:"required,min=1,max=100,dive"`
}

func (h *handlerImpl) HandleBulkCreateTasks(c *gin.Context) {
	var req bulkCreateTasksRequest
	if !h.bindJSON(c, &req) {
		return
	}

	params := make([]services.CreateTaskParams, len(req.Items))
	for i, item := range req.Items {
		params[i] = item.params()
	}

	tasks, err := h.services(c).Tasks.BulkCreate(c, actorFromContext(c), params)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to bulk create tasks")
		return
	}

	h.respond(c, http.StatusCreated, newGetTasksResponse(tasks))
}

type bulkUpdateTaskStatusRequest struct {
	IDs    []string          `json:"ids" binding:"required,min=1,max=100"`
	Status models.TaskStatus `json:"status" binding:"required,oneof=pending in_progress completed archived"`
}

func (h *handlerImpl) HandleBulkUpdateTaskStatus(c *gin.Context) {
	var req bulkUpdateTaskStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	for _, id := range req.IDs {
		if !parseID(id) {
			h.logger.Error().
				Str("task_id", id).
				Msg("invalid task id")
			abort(c, newNotFoundError("task "+id+": "+services.ErrTaskNotFound.Error()))
			return
		}
	}

	tasks, err := h.services(c).Tasks.BulkUpdateStatus(c, actorFromContext(c), req.IDs, req.Status)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to bulk update task status")
		return
	}

	h.respond(c, http.StatusOK, newGetTasksResponse(tasks))
}

func (h *handlerImpl) taskID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !parseID(id) {
		h.logger.Error().
			Str("task_id", id).
			Msg("invalid task id")
		abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
		return "", false
	}
	return id, true
}

func (h *handlerImpl) HandleGetTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	task, err := h.services(c).Tasks.Get(c, actorFromContext(c), id)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to get task")
		return
	}

	h.respond(c, http.StatusOK, newGetTaskResponse(task))
}

type updateTaskRequest struct {
	Title       *string            `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string            `json:"description" binding:"omitempty,max=2000"`
	Status      *models.TaskStatus `json:"status" binding:"omitempty,oneof=pending in_progress completed archived"`
	Priority    *models.Priority   `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time         `json:"due_date"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if !h.bindJSON(c, &req) {
		return
	}

	task, err := h.services(c).Tasks.Update(c, actorFromContext(c), id, services.UpdateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.abortWithServiceError(c, err, "failed to update task")
		return
	}

	h.respond(c, http.StatusOK, newGetTaskResponse(task))
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	task, err := h.services(c).Tasks.Archive(c, actorFromContext(c), id)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to archive task")
		return
	}

	h.respond(c, http.StatusOK, newGetTaskResponse(task))
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
