package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/tasks"
	"golang.org/x/oauth2"
)

func oauthConfigForTest() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    "client",
		RedirectURL: "http://localhost:3000/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.example.com/authorize",
			TokenURL: "https://accounts.example.com/token",
		},
	}
}

// mockEngine implements tasks.SyncEngine with pluggable behavior.
type mockEngine struct {
	startFn   func(ctx context.Context, progress chan<- tasks.ProgressUpdate, req tasks.SyncRequest) (*models.SyncTask, error)
	statusFn  func(taskID string) (*models.SyncTask, error)
	historyFn func(userID string, limit int) ([]models.SyncTask, error)
	cancelFn  func(taskID string) error
}

var _ tasks.SyncEngine = (*mockEngine)(nil)

func (m *mockEngine) StartSync(ctx context.Context, progress chan<- tasks.ProgressUpdate, req tasks.SyncRequest) (*models.SyncTask, error) {
	return m.startFn(ctx, progress, req)
}

func (m *mockEngine) Status(taskID string) (*models.SyncTask, error) {
	return m.statusFn(taskID)
}

func (m *mockEngine) History(userID string, limit int) ([]models.SyncTask, error) {
	return m.historyFn(userID, limit)
}

func (m *mockEngine) Cancel(taskID string) error {
	return m.cancelFn(taskID)
}

func (m *mockEngine) Wait() {}

func pendingTask(id string) *models.SyncTask {
	task := models.NewSyncTask("u1", "PL1")
	task.SetID(id)
	return task
}

func newTestRouter(engine tasks.SyncEngine) *BasicRouter {
	router := NewBasicRouter()
	router.Handler(NewSyncHandler(engine))
	return router
}

func TestSyncHandlerStart(t *testing.T) {
	t.Run("accepts a valid request", func(t *testing.T) {
		var got tasks.SyncRequest
		engine := &mockEngine{
			startFn: func(_ context.Context, _ chan<- tasks.ProgressUpdate, req tasks.SyncRequest) (*models.SyncTask, error) {
				got = req
				return pendingTask("task-1"), nil
			},
		}

		body := `{"user_id":"u1","source_playlist_id":"PL1"}`
		rec := httptest.NewRecorder()
		newTestRouter(engine).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(body)))

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.UserID != "u1" || got.SourcePlaylistID != "PL1" {
			t.Errorf("request not decoded: %+v", got)
		}

		var task models.SyncTask
		if err := json.NewDecoder(rec.Body).Decode(&task); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if task.TaskID != "task-1" {
			t.Errorf("unexpected task in response: %+v", task)
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		engine := &mockEngine{
			startFn: func(_ context.Context, _ chan<- tasks.ProgressUpdate, _ tasks.SyncRequest) (*models.SyncTask, error) {
				t.Fatal("engine should not be called")
				return nil, nil
			},
		}

		rec := httptest.NewRecorder()
		newTestRouter(engine).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader("{not json")))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("maps validation errors to 400", func(t *testing.T) {
		engine := &mockEngine{
			startFn: func(_ context.Context, _ chan<- tasks.ProgressUpdate, _ tasks.SyncRequest) (*models.SyncTask, error) {
				return nil, shared.ErrMissingArgument
			},
		}

		rec := httptest.NewRecorder()
		newTestRouter(engine).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader("{}")))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestSyncHandlerStatus(t *testing.T) {
	t.Run("returns the task snapshot", func(t *testing.T) {
		engine := &mockEngine{
			statusFn: func(taskID string) (*models.SyncTask, error) {
				if taskID != "task-1" {
					t.Errorf("unexpected task ID %s", taskID)
				}
				return pendingTask("task-1"), nil
			},
		}

		rec := httptest.NewRecorder()
		newTestRouter(engine).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status?task_id=task-1", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("requires task_id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestRouter(&mockEngine{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("maps unknown tasks to 404", func(t *testing.T) {
		engine := &mockEngine{
			statusFn: func(string) (*models.SyncTask, error) {
				return nil, shared.ErrTaskNotFound
			},
		}

		rec := httptest.NewRecorder()
		newTestRouter(engine).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status?task_id=nope", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestSyncHandlerHistory(t *testing.T) {
	t.Run("returns a user's tasks", func(t *testing.T) {
		engine := &mockEngine{
			historyFn: func(userID string, limit int) ([]models.SyncTask, error) {
				if userID != "u1" || limit != 5 {
					t.Errorf("unexpected query: user=%s limit=%d", userID, limit)
				}
				return []models.SyncTask{pendingTask("t1").Summary(), pendingTask("t2").Summary()}, nil
			},
		}

		rec := httptest.NewRecorder()
		newTestRouter(engine).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sync/history?user_id=u1&limit=5", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var payload struct {
			Tasks []models.SyncTask `json:"tasks"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if len(payload.Tasks) != 2 {
			t.Errorf("expected 2 tasks, got %d", len(payload.Tasks))
		}
	})

	t.Run("rejects a negative limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestRouter(&mockEngine{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sync/history?user_id=u1&limit=-1", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestSyncHandlerCancel(t *testing.T) {
	t.Run("cancels a running task", func(t *testing.T) {
		cancelled := ""
		engine := &mockEngine{
			cancelFn: func(taskID string) error {
				cancelled = taskID
				return nil
			},
		}

		rec := httptest.NewRecorder()
		newTestRouter(engine).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync/cancel?task_id=task-1", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if cancelled != "task-1" {
			t.Errorf("cancel not forwarded, got %q", cancelled)
		}
	})

	t.Run("maps terminal tasks to 409", func(t *testing.T) {
		engine := &mockEngine{
			cancelFn: func(string) error {
				return models.ErrInvalidState
			},
		}

		rec := httptest.NewRecorder()
		newTestRouter(engine).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync/cancel?task_id=task-1", nil))

		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})
}

func TestRouterMiddlewareOrder(t *testing.T) {
	router := NewBasicRouter()

	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	router.Use(mark("outer"), mark("inner"))
	router.Handle("GET /ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	want := []string{"outer", "inner", "handler"}
	for i, name := range want {
		if i >= len(order) || order[i] != name {
			t.Fatalf("middleware order %v, want %v", order, want)
		}
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for wrong method, got %d", rec.Code)
	}
}

func TestOAuthHandler(t *testing.T) {
	t.Run("rejects a bad state", func(t *testing.T) {
		h := NewOAuthHandler(oauthConfigForTest(), "expected-state")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=wrong&code=abc", nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if result.Error() == nil {
			t.Error("expected an error result")
		}
	})

	t.Run("surfaces provider errors", func(t *testing.T) {
		h := NewOAuthHandler(oauthConfigForTest(), "s")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied&error_description=nope", nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("unexpected result error: %v", result.Error())
		}
	})

	t.Run("only processes one callback", func(t *testing.T) {
		h := NewOAuthHandler(oauthConfigForTest(), "s")

		first := httptest.NewRecorder()
		h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?state=wrong", nil))

		second := httptest.NewRecorder()
		h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil))

		if second.Code != http.StatusBadRequest {
			t.Errorf("expected replay rejection, got %d", second.Code)
		}
	})
}
