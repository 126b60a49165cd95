package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/userdir/internal/domain"
	"github.com/simp-lee/userdir/internal/pkg"
)

// --- mock service ---

type mockService struct {
	users map[string]*domain.User

	createErr error
	searchErr error
	listErr   error
	deleteErr error

	lastParams         domain.SearchParams
	lastIncludeDeleted bool
	lastPassword       string
	restored           []string
	purged             []string
}

func newMockService() *mockService {
	return &mockService{users: make(map[string]*domain.User)}
}

func (m *mockService) seed(t *testing.T, name, email string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(domain.UserProps{Name: name, Email: email, PasswordHash: "hash", CreatedAt: t0})
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	m.users[u.ID()] = u
	return u
}

func (m *mockService) CreateUser(_ context.Context, name, email, _ string) (*domain.User, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	u, err := domain.NewUser(domain.UserProps{Name: name, Email: email, CreatedAt: t0})
	if err != nil {
		return nil, err
	}
	m.users[u.ID()] = u
	return u, nil
}

func (m *mockService) GetUser(_ context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok || u.IsDeleted() {
		return nil, domain.NotFoundf("user", "id", id)
	}
	return u, nil
}

func (m *mockService) SearchUsers(_ context.Context, params domain.SearchParams) (*domain.SearchResult[*domain.User], error) {
	m.lastParams = params
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var items []*domain.User
	for _, u := range m.users {
		items = append(items, u)
	}
	return domain.NewSearchResult(items, int64(len(items)), params.Normalize(), "createdAt", domain.SortDesc), nil
}

func (m *mockService) ListUsers(_ context.Context, includeDeleted bool) ([]*domain.User, error) {
	m.lastIncludeDeleted = includeDeleted
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*domain.User
	for _, u := range m.users {
		if includeDeleted || !u.IsDeleted() {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockService) UpdateUser(ctx context.Context, id, name, email string) (*domain.User, error) {
	u, err := m.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Rename(name, t0)
	u.ChangeEmail(email, t0)
	return u, nil
}

func (m *mockService) ChangePassword(ctx context.Context, id, password string) error {
	if _, err := m.GetUser(ctx, id); err != nil {
		return err
	}
	m.lastPassword = password
	return nil
}

func (m *mockService) SoftDeleteUser(ctx context.Context, id string) error {
	u, err := m.GetUser(ctx, id)
	if err != nil {
		return err
	}
	u.SoftDelete(t0)
	return nil
}

func (m *mockService) RestoreUser(_ context.Context, id string) error {
	u, ok := m.users[id]
	if !ok {
		return domain.NotFoundf("user", "id", id)
	}
	u.Restore(t0)
	m.restored = append(m.restored, id)
	return nil
}

func (m *mockService) DeleteUser(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.users[id]; !ok {
		return domain.NotFoundf("user", "id", id)
	}
	delete(m.users, id)
	m.purged = append(m.purged, id)
	return nil
}

// --- helpers ---

// setupAPIRouter mounts the user module under /api/v1 the way the
// application does.
func setupAPIRouter(svc domain.UserService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewModule(NewUserHandler(svc)).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return v
}

type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// --- tests ---

func TestUserHandler_Create(t *testing.T) {
	r := setupAPIRouter(newMockService())

	w := doRequest(r, http.MethodPost, "/api/v1/users", `{"name":"Alice","email":"alice@example.com","password":"password123"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[envelope[map[string]any]](t, w)
	if resp.Code != http.StatusCreated {
		t.Errorf("expected response code 201, got %d", resp.Code)
	}
	if resp.Message != "created" {
		t.Errorf("expected message 'created', got %q", resp.Message)
	}
	if resp.Data["name"] != "Alice" || resp.Data["id"] == "" {
		t.Errorf("unexpected data: %v", resp.Data)
	}
	if _, ok := resp.Data["password_hash"]; ok {
		t.Error("password hash must not be exposed")
	}
	if _, ok := resp.Data["deleted_at"]; ok {
		t.Error("deleted_at should be omitted for active users")
	}
}

func TestUserHandler_Create_ValidationError(t *testing.T) {
	r := setupAPIRouter(newMockService())

	w := doRequest(r, http.MethodPost, "/api/v1/users", `{"name":"","email":"","password":"short"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	resp := decode[pkg.ValidationErrorResponse](t, w)
	if resp.Message != "validation error" {
		t.Errorf("expected message 'validation error', got %q", resp.Message)
	}
	for _, field := range []string{"name", "email", "password"} {
		if _, ok := resp.Errors[field]; !ok {
			t.Errorf("expected %q field in errors map, got %v", field, resp.Errors)
		}
	}
}

func TestUserHandler_Create_ServiceError(t *testing.T) {
	svc := newMockService()
	svc.createErr = domain.NewAppError(domain.CodeConflict, "email address already used", nil)
	r := setupAPIRouter(svc)

	w := doRequest(r, http.MethodPost, "/api/v1/users", `{"name":"Alice","email":"alice@example.com","password":"password123"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}
	resp := decode[pkg.Response](t, w)
	if resp.Message != "email address already used" {
		t.Errorf("unexpected message %q", resp.Message)
	}
}

func TestUserHandler_Get(t *testing.T) {
	svc := newMockService()
	u := svc.seed(t, "Alice", "alice@example.com")
	r := setupAPIRouter(svc)

	w := doRequest(r, http.MethodGet, "/api/v1/users/"+u.ID(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	resp := decode[envelope[UserResponse]](t, w)
	if resp.Data.ID != u.ID() || resp.Data.Email != "alice@example.com" {
		t.Errorf("unexpected data: %+v", resp.Data)
	}
}

func TestUserHandler_Get_NotFound(t *testing.T) {
	r := setupAPIRouter(newMockService())

	w := doRequest(r, http.MethodGet, "/api/v1/users/missing", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
	resp := decode[pkg.Response](t, w)
	if resp.Message != "user not found using id missing" {
		t.Errorf("unexpected message %q", resp.Message)
	}
}

func TestUserHandler_Get_BlankID(t *testing.T) {
	r := setupAPIRouter(newMockService())

	w := doRequest(r, http.MethodGet, "/api/v1/users/%20", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestUserHandler_Search(t *testing.T) {
	svc := newMockService()
	svc.seed(t, "Érick Nilson", "erick@example.com")
	r := setupAPIRouter(svc)

	w := doRequest(r, http.MethodGet, "/api/v1/users?page=2&per_page=5&sort=name&sort_dir=ASC&filter=erick", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	want := domain.SearchParams{Page: 2, PerPage: 5, Sort: "name", SortDir: domain.SortAsc, Filter: "erick"}
	if svc.lastParams != want {
		t.Errorf("service got params %+v; want %+v", svc.lastParams, want)
	}

	resp := decode[envelope[domain.SearchResult[UserResponse]]](t, w)
	if resp.Data.CurrentPage != 2 || resp.Data.PerPage != 5 {
		t.Errorf("unexpected page metadata: %+v", resp.Data)
	}
	if resp.Data.Filter != "erick" {
		t.Errorf("filter = %q; want erick", resp.Data.Filter)
	}
	if len(resp.Data.Items) != 1 || resp.Data.Items[0].Name != "Érick Nilson" {
		t.Errorf("unexpected items: %+v", resp.Data.Items)
	}
}

func TestUserHandler_Search_ServiceError(t *testing.T) {
	svc := newMockService()
	svc.searchErr = domain.NewAppError(domain.CodeInternal, "database error", nil)
	r := setupAPIRouter(svc)

	w := doRequest(r, http.MethodGet, "/api/v1/users", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	resp := decode[pkg.Response](t, w)
	if resp.Message != "internal error" {
		t.Errorf("internal details leaked: %q", resp.Message)
	}
}

func TestUserHandler_ListAll(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bool
		count int
	}{
		{"active only", "", false, 1},
		{"include deleted", "?include_deleted=true", true, 2},
		{"unparsable flag", "?include_deleted=maybe", false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockService()
			svc.seed(t, "Alice", "alice@example.com")
			gone := svc.seed(t, "Bob", "bob@example.com")
			gone.SoftDelete(t0)
			r := setupAPIRouter(svc)

			w := doRequest(r, http.MethodGet, "/api/v1/users/all"+tt.query, "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", w.Code)
			}
			if svc.lastIncludeDeleted != tt.want {
				t.Errorf("includeDeleted = %v; want %v", svc.lastIncludeDeleted, tt.want)
			}
			resp := decode[envelope[[]UserResponse]](t, w)
			if len(resp.Data) != tt.count {
				t.Errorf("got %d users; want %d", len(resp.Data), tt.count)
			}
		})
	}
}

func TestUserHandler_Update(t *testing.T) {
	svc := newMockService()
	u := svc.seed(t, "Alice", "alice@example.com")
	r := setupAPIRouter(svc)

	w := doRequest(r, http.MethodPut, "/api/v1/users/"+u.ID(), `{"name":"Alice Updated","email":"alice2@example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	resp := decode[envelope[UserResponse]](t, w)
	if resp.Data.Name != "Alice Updated" || resp.Data.Email != "alice2@example.com" {
		t.Errorf("unexpected data: %+v", resp.Data)
	}
}

func TestUserHandler_Update_ValidationError(t *testing.T) {
	svc := newMockService()
	u := svc.seed(t, "Alice", "alice@example.com")
	r := setupAPIRouter(svc)

	w := doRequest(r, http.MethodPut, "/api/v1/users/"+u.ID(), `{"name":"","email":"invalid"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	resp := decode[pkg.ValidationErrorResponse](t, w)
	if _, ok := resp.Errors["name"]; !ok {
		t.Error("expected 'name' field in errors map")
	}
	if msg := resp.Errors["email"]; msg != "Must be a valid email address" {
		t.Errorf("email message = %q", msg)
	}
}

func TestUserHandler_Update_NotFound(t *testing.T) {
	r := setupAPIRouter(newMockService())

	w := doRequest(r, http.MethodPut, "/api/v1/users/missing", `{"name":"Alice","email":"alice@example.com"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestUserHandler_ChangePassword(t *testing.T) {
	svc := newMockService()
	u := svc.seed(t, "Alice", "alice@example.com")
	r := setupAPIRouter(svc)

	w := doRequest(r, http.MethodPut, "/api/v1/users/"+u.ID()+"/password", `{"password":"short"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for short password, got %d", w.Code)
	}

	w = doRequest(r, http.MethodPut, "/api/v1/users/"+u.ID()+"/password", `{"password":"new-password"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if svc.lastPassword != "new-password" {
		t.Errorf("service got password %q", svc.lastPassword)
	}
}

func TestUserHandler_SoftDeleteAndRestore(t *testing.T) {
	svc := newMockService()
	u := svc.seed(t, "Alice", "alice@example.com")
	r := setupAPIRouter(svc)

	if w := doRequest(r, http.MethodDelete, "/api/v1/users/"+u.ID(), ""); w.Code != http.StatusOK {
		t.Fatalf("soft delete: expected status 200, got %d", w.Code)
	}
	if !u.IsDeleted() {
		t.Fatal("expected user to be soft deleted")
	}
	if w := doRequest(r, http.MethodGet, "/api/v1/users/"+u.ID(), ""); w.Code != http.StatusNotFound {
		t.Errorf("get after soft delete: expected 404, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodDelete, "/api/v1/users/"+u.ID(), ""); w.Code != http.StatusNotFound {
		t.Errorf("second soft delete: expected 404, got %d", w.Code)
	}

	if w := doRequest(r, http.MethodPost, "/api/v1/users/"+u.ID()+"/restore", ""); w.Code != http.StatusOK {
		t.Fatalf("restore: expected status 200, got %d", w.Code)
	}
	if u.IsDeleted() {
		t.Error("expected user to be active after restore")
	}
	if w := doRequest(r, http.MethodPost, "/api/v1/users/missing/restore", ""); w.Code != http.StatusNotFound {
		t.Errorf("restore missing: expected 404, got %d", w.Code)
	}
}

func TestUserHandler_Purge(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		deleteErr error
		want      int
	}{
		{"existing", "", nil, http.StatusOK},
		{"missing", "missing", nil, http.StatusNotFound},
		{"storage failure", "", domain.NewAppError(domain.CodeInternal, "database error", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockService()
			u := svc.seed(t, "Alice", "alice@example.com")
			svc.deleteErr = tt.deleteErr
			r := setupAPIRouter(svc)

			id := tt.id
			if id == "" {
				id = u.ID()
			}
			w := doRequest(r, http.MethodDelete, "/api/v1/users/"+id+"/permanent", "")
			if w.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, w.Code)
			}
			if tt.want == http.StatusOK && (len(svc.purged) != 1 || svc.purged[0] != u.ID()) {
				t.Errorf("purged = %v", svc.purged)
			}
		})
	}
}
