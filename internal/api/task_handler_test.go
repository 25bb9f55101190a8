package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/kanban-api/internal/api/middleware"
	"github.com/phrazzld/kanban-api/internal/api/shared"
	"github.com/phrazzld/kanban-api/internal/domain"
	"github.com/phrazzld/kanban-api/internal/events"
	"github.com/phrazzld/kanban-api/internal/platform/logger"
	"github.com/phrazzld/kanban-api/internal/platform/memory"
	"github.com/phrazzld/kanban-api/internal/result"
	"github.com/phrazzld/kanban-api/internal/service"
	"github.com/phrazzld/kanban-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, svc service.TaskService) http.Handler {
	t.Helper()
	l, _ := logger.GetTestLogger(t)

	r := chi.NewRouter()
	r.Use(middleware.NewTraceMiddleware(l))
	r.Route("/api", NewTaskHandler(svc, l).RegisterRoutes)
	return r
}

// newTestServer wires the real service over the memory store.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	l, _ := logger.GetTestLogger(t)

	db := memory.NewStore(l)
	uow := store.NewUnitOfWork(db, events.NewDispatcher(l), l)
	svc, err := service.NewTaskService(uow, l)
	require.NoError(t, err)
	return newRouter(t, svc)
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func createTask(t *testing.T, h http.Handler, boardID uuid.UUID, title string) uuid.UUID {
	t.Helper()

	rec := doRequest(t, h, http.MethodPost, "/api/tasks", map[string]interface{}{
		"board_id": boardID.String(),
		"title":    title,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created service.CreatedTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created.ID
}

func move(t *testing.T, h http.Handler, id uuid.UUID, status string, position int) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, h, http.MethodPatch, "/api/tasks/"+id.String()+"/move", map[string]interface{}{
		"new_status":   status,
		"new_position": position,
	})
}

func TestCreateTaskEndpoint(t *testing.T) {
	h := newTestServer(t)
	boardID := uuid.New()

	rec := doRequest(t, h, http.MethodPost, "/api/tasks", map[string]interface{}{
		"board_id":    boardID.String(),
		"title":       "Implement login feature",
		"description": "Add OAuth2 authentication",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var created service.CreatedTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "Implement login feature", created.Title)
	assert.Equal(t, boardID, created.BoardID)
	assert.Equal(t, "/api/tasks/"+created.ID.String(), rec.Header().Get("Location"))

	get := doRequest(t, h, http.MethodGet, "/api/tasks/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, get.Code)
	var dto service.TaskDTO
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &dto))
	assert.Equal(t, "ToDo", dto.Status)
	assert.Equal(t, 1, dto.StatusValue)
	require.NotNil(t, dto.Description)
	assert.Equal(t, "Add OAuth2 authentication", *dto.Description)
}

func TestCreateTaskValidation(t *testing.T) {
	h := newTestServer(t)

	testCases := []struct {
		name      string
		body      interface{}
		wantField string
	}{
		{
			name:      "missing title",
			body:      map[string]interface{}{"board_id": uuid.NewString()},
			wantField: "title",
		},
		{
			name:      "malformed board id",
			body:      map[string]interface{}{"board_id": "not-a-uuid", "title": "Task"},
			wantField: "board_id",
		},
		{
			name: "title too long",
			body: map[string]interface{}{
				"board_id": uuid.NewString(),
				"title":    string(bytes.Repeat([]byte("a"), 201)),
			},
			wantField: "title",
		},
		{
			name: "description too long",
			body: map[string]interface{}{
				"board_id":    uuid.NewString(),
				"title":       "Task",
				"description": string(bytes.Repeat([]byte("d"), 2001)),
			},
			wantField: "description",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/api/tasks", tc.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, shared.ValidationFailedMessage, resp.Error)
			require.NotEmpty(t, resp.Errors)
			assert.Equal(t, tc.wantField, resp.Errors[0].Identifier)
			assert.NotEmpty(t, resp.TraceID)
		})
	}
}

func TestCreateTaskWhitespaceTitle(t *testing.T) {
	h := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/api/tasks", map[string]interface{}{
		"board_id": uuid.NewString(),
		"title":    "   ",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error, "invalid title")
}

func TestCreateTaskMalformedBody(t *testing.T) {
	h := newTestServer(t)

	for _, body := range []string{`{"title":`, `{"title":"x","board_id":"` + uuid.NewString() + `","extra":1}`} {
		rec := doRequest(t, h, http.MethodPost, "/api/tasks", body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request format", decodeError(t, rec).Error)
	}
}

func TestMoveTaskEndpoint(t *testing.T) {
	h := newTestServer(t)
	id := createTask(t, h, uuid.New(), "Movable")

	rec := move(t, h, id, "Done", 0)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, service.FieldNewStatus, resp.Errors[0].Identifier)
	assert.Contains(t, resp.Errors[0].Message, "cannot skip from ToDo directly to Done")

	rec = move(t, h, id, "InProgress", 2)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = move(t, h, id, "Done", 0)
	require.Equal(t, http.StatusOK, rec.Code)

	get := doRequest(t, h, http.MethodGet, "/api/tasks/"+id.String(), nil)
	var dto service.TaskDTO
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &dto))
	assert.Equal(t, "Done", dto.Status)
	assert.Equal(t, 3, dto.StatusValue)
}

func TestMoveTaskEndpointErrors(t *testing.T) {
	h := newTestServer(t)
	id := createTask(t, h, uuid.New(), "Task")

	rec := move(t, h, id, "Archived", 0)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t,
		"invalid status 'Archived'. Valid values are: ToDo, InProgress, Done",
		resp.Errors[0].Message)

	rec = move(t, h, id, "InProgress", -1)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "new_position", decodeError(t, rec).Errors[0].Identifier)

	rec = doRequest(t, h, http.MethodPatch, "/api/tasks/"+id.String()+"/move",
		map[string]interface{}{"new_status": "InProgress"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "new_position", decodeError(t, rec).Errors[0].Identifier)

	rec = move(t, h, uuid.New(), "InProgress", 0)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.TaskNotFoundMessage, decodeError(t, rec).Error)
}

func TestUpdateAndDeleteTaskEndpoints(t *testing.T) {
	h := newTestServer(t)
	id := createTask(t, h, uuid.New(), "Draft")
	path := "/api/tasks/" + id.String()

	rec := doRequest(t, h, http.MethodPut, path, map[string]interface{}{"title": "Final"})
	require.Equal(t, http.StatusOK, rec.Code)

	get := doRequest(t, h, http.MethodGet, path, nil)
	var dto service.TaskDTO
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &dto))
	assert.Equal(t, "Final", dto.Title)
	assert.Nil(t, dto.Description)

	rec = doRequest(t, h, http.MethodPut, path, map[string]interface{}{"title": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h, http.MethodPut, path, map[string]interface{}{"title": "Gone"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTaskInvalidID(t *testing.T) {
	h := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/api/tasks/not-a-uuid", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "id", resp.Errors[0].Identifier)
}

func TestListBoardTasksEndpoint(t *testing.T) {
	h := newTestServer(t)
	boardID := uuid.New()

	done := createTask(t, h, boardID, "Done")
	inProgress := createTask(t, h, boardID, "In progress")
	todo := createTask(t, h, boardID, "To do")
	require.Equal(t, http.StatusOK, move(t, h, done, "InProgress", 0).Code)
	require.Equal(t, http.StatusOK, move(t, h, done, "Done", 0).Code)
	require.Equal(t, http.StatusOK, move(t, h, inProgress, "InProgress", 0).Code)

	rec := doRequest(t, h, http.MethodGet, "/api/boards/"+boardID.String()+"/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []service.TaskDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 3)
	assert.Equal(t, []uuid.UUID{todo, inProgress, done}, []uuid.UUID{tasks[0].ID, tasks[1].ID, tasks[2].ID})

	rec = doRequest(t, h, http.MethodGet, "/api/boards/"+boardID.String()+"/tasks?status=InProgress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, inProgress, tasks[0].ID)

	rec = doRequest(t, h, http.MethodGet, "/api/boards/"+boardID.String()+"/tasks?status=inprogress", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.FieldFilterStatus, decodeError(t, rec).Errors[0].Identifier)

	rec = doRequest(t, h, http.MethodGet, "/api/boards/"+uuid.NewString()+"/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

// mockTaskService stubs the service to reach the error paths.
type mockTaskService struct {
	mock.Mock
}

func (m *mockTaskService) CreateTask(
	ctx context.Context, title string, boardID uuid.UUID, description *string,
) (result.Result[service.CreatedTask], error) {
	args := m.Called(ctx, title, boardID, description)
	return args.Get(0).(result.Result[service.CreatedTask]), args.Error(1)
}

func (m *mockTaskService) UpdateTask(
	ctx context.Context, taskID uuid.UUID, title string, description *string,
) (result.Result[result.Empty], error) {
	args := m.Called(ctx, taskID, title, description)
	return args.Get(0).(result.Result[result.Empty]), args.Error(1)
}

func (m *mockTaskService) MoveTask(
	ctx context.Context, taskID uuid.UUID, newStatus string, newPosition int,
) (result.Result[result.Empty], error) {
	args := m.Called(ctx, taskID, newStatus, newPosition)
	return args.Get(0).(result.Result[result.Empty]), args.Error(1)
}

func (m *mockTaskService) DeleteTask(ctx context.Context, taskID uuid.UUID) (result.Result[result.Empty], error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(result.Result[result.Empty]), args.Error(1)
}

func (m *mockTaskService) GetTaskByID(ctx context.Context, taskID uuid.UUID) (result.Result[service.TaskDTO], error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(result.Result[service.TaskDTO]), args.Error(1)
}

func (m *mockTaskService) GetTasksByBoard(
	ctx context.Context, boardID uuid.UUID, filterStatus *string,
) (result.Result[[]service.TaskDTO], error) {
	args := m.Called(ctx, boardID, filterStatus)
	return args.Get(0).(result.Result[[]service.TaskDTO]), args.Error(1)
}

func TestTaskHandlerInfrastructureErrors(t *testing.T) {
	leaky := service.NewTaskServiceError("get_task", "failed to retrieve task",
		errors.New("dial tcp db.internal.example.com:5432: connection refused"))

	svc := &mockTaskService{}
	svc.On("GetTaskByID", mock.Anything, mock.Anything).
		Return(result.Result[service.TaskDTO]{}, leaky)
	svc.On("CreateTask", mock.Anything, "Task", mock.Anything, mock.Anything).
		Return(result.Result[service.CreatedTask]{}, service.NewTaskServiceError("create_task", "failed", store.ErrDuplicate))
	h := newRouter(t, svc)

	rec := doRequest(t, h, http.MethodGet, "/api/tasks/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "Failed to retrieve task", resp.Error)
	assert.NotContains(t, rec.Body.String(), "db.internal")

	rec = doRequest(t, h, http.MethodPost, "/api/tasks", map[string]interface{}{
		"board_id": uuid.NewString(),
		"title":    "Task",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Task already exists", decodeError(t, rec).Error)

	svc.AssertExpectations(t)
}

func TestNewTaskHandlerPanicsOnNilService(t *testing.T) {
	assert.Panics(t, func() { NewTaskHandler(nil, nil) })
}

func TestMoveTaskPositionUpperBound(t *testing.T) {
	h := newTestServer(t)
	id := createTask(t, h, uuid.New(), "Far right")

	rec := move(t, h, id, "InProgress", 3000000000)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "new_position", resp.Errors[0].Identifier)
	assert.Equal(t, "must be at most 2147483647", resp.Errors[0].Message)

	rec = move(t, h, id, "InProgress", domain.MaxPosition)
	require.Equal(t, http.StatusOK, rec.Code)

	get := doRequest(t, h, http.MethodGet, "/api/tasks/"+id.String(), nil)
	var dto service.TaskDTO
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &dto))
	assert.Equal(t, domain.MaxPosition, dto.Position)
}

func TestBoardIDCaseInsensitive(t *testing.T) {
	h := newTestServer(t)
	boardID := uuid.New()
	upper := strings.ToUpper(boardID.String())

	rec := doRequest(t, h, http.MethodPost, "/api/tasks", map[string]interface{}{
		"board_id": upper,
		"title":    "Shouted board",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, h, http.MethodGet, "/api/boards/"+upper+"/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []service.TaskDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, boardID, tasks[0].BoardID)
}
