package api

// CreateTaskRequest defines the payload for POST /api/tasks.
type CreateTaskRequest struct {
	BoardID     string  `json:"board_id"    validate:"required,anyuuid"`
	Title       string  `json:"title"       validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// UpdateTaskRequest defines the payload for PUT /api/tasks/{id}.
type UpdateTaskRequest struct {
	Title       string  `json:"title"       validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// MoveTaskRequest defines the payload for PATCH /api/tasks/{id}/move.
// NewPosition is a pointer so a missing value is told apart from 0.
type MoveTaskRequest struct {
	NewStatus   string `json:"new_status"   validate:"required"`
	NewPosition *int   `json:"new_position" validate:"required,min=0,max=2147483647"`
}
