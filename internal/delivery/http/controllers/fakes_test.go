package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
// Entity ids are UUIDs; path ids are rejected otherwise.
const (
	testEventID      = "3f1c2a4e-8b7d-4e6a-9c1f-0a1b2c3d4e01"
	otherEventID     = "3f1c2a4e-8b7d-4e6a-9c1f-0a1b2c3d4e02"
	testSessionID    = "5b7e9d1c-2f4a-4b6c-8d0e-1f2a3b4c5d01"
	testAssistantID  = "6c4d1e2f-3a5b-4c7d-8e9f-0a1b2c3d4a01"
	otherAssistantID = "6c4d1e2f-3a5b-4c7d-8e9f-0a1b2c3d4a02"
	testUserID       = "9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c01"
	missingUserID    = "9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c09"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// newRequest builds a request with path values and, unless userID is empty, an authenticated principal.
func newRequest(method, target, body, userID string, pathValues map[string]string) *http.Request {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, "http://test"+target, r)
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	if userID != "" {
		req = req.WithContext(middleware.SetClaims(req.Context(), &domain.Claims{UserID: userID}))
	}
	return req
}

// decodeEnvelope decodes the API envelope and unmarshals data into out when out is non-nil.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, out any) *helpers.APIError {
	t.Helper()
	var raw struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))
	if out != nil && raw.Error == nil {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return raw.Error
}

// fakeUserService implements domain.UserService for handler tests.
type fakeUserService struct {
	err          error
	user         *domain.User
	users        []*domain.User
	total        int
	token        string
	lastID       string
	lastInput    *domain.UserInput
	lastUpdate   domain.UserUpdate
	lastParams   domain.PaginationParams
	lastEmail    string
	lastPassword string
	lastCurrent  string
	lastNext     string
}

func (f *fakeUserService) CreateUser(_ context.Context, input *domain.UserInput) (*domain.User, error) {
	f.lastInput = input
	return f.user, f.err
}

func (f *fakeUserService) GetUser(_ context.Context, id string) (*domain.User, error) {
	f.lastID = id
	return f.user, f.err
}

func (f *fakeUserService) ListUsers(_ context.Context, params domain.PaginationParams) ([]*domain.User, int, error) {
	f.lastParams = params
	return f.users, f.total, f.err
}

func (f *fakeUserService) UpdateUser(_ context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	f.lastID = id
	f.lastUpdate = upd
	return f.user, f.err
}

func (f *fakeUserService) DeactivateUser(_ context.Context, id string) error {
	f.lastID = id
	return f.err
}

func (f *fakeUserService) Login(_ context.Context, email, password string) (string, *domain.User, error) {
	f.lastEmail, f.lastPassword = email, password
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, f.user, nil
}

func (f *fakeUserService) ChangePassword(_ context.Context, userID, current, next string) error {
	f.lastID, f.lastCurrent, f.lastNext = userID, current, next
	return f.err
}

func (f *fakeUserService) IsActive(_ context.Context, _ string) (bool, error) {
	return f.err == nil, f.err
}

// fakeRoleService implements domain.RoleService for handler tests.
type fakeRoleService struct {
	err       error
	role      *domain.Role
	roles     []*domain.Role
	lastSlug  string
	lastName  string
	lastPerms []domain.Permission
}

func (f *fakeRoleService) ListRoles(_ context.Context) ([]*domain.Role, error) {
	return f.roles, f.err
}

func (f *fakeRoleService) GetRoleBySlug(_ context.Context, slug string) (*domain.Role, error) {
	f.lastSlug = slug
	return f.role, f.err
}

func (f *fakeRoleService) CreateRole(_ context.Context, name string, perms []domain.Permission) (*domain.Role, error) {
	f.lastName, f.lastPerms = name, perms
	return f.role, f.err
}

func (f *fakeRoleService) UpdateRolePermissions(_ context.Context, slug string, perms []domain.Permission) (*domain.Role, error) {
	f.lastSlug, f.lastPerms = slug, perms
	return f.role, f.err
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	err         error
	event       *domain.Event
	events      []*domain.Event
	total       int
	lastID      string
	lastInput   *domain.EventInput
	lastCreator string
	lastUpdate  domain.EventUpdate
	lastParams  domain.PaginationParams
	lastText    string
	lastFilter  domain.SearchFilter
}

func (f *fakeEventService) CreateEvent(_ context.Context, input *domain.EventInput, creatorID string) (*domain.Event, error) {
	f.lastInput, f.lastCreator = input, creatorID
	return f.event, f.err
}

func (f *fakeEventService) GetEventByID(_ context.Context, id string) (*domain.Event, error) {
	f.lastID = id
	return f.event, f.err
}

func (f *fakeEventService) ListEvents(_ context.Context, params domain.PaginationParams) ([]*domain.Event, int, error) {
	f.lastParams = params
	return f.events, f.total, f.err
}

func (f *fakeEventService) UpdateEvent(_ context.Context, id string, upd domain.EventUpdate) (*domain.Event, error) {
	f.lastID, f.lastUpdate = id, upd
	return f.event, f.err
}

func (f *fakeEventService) DeleteEvent(_ context.Context, id string) error {
	f.lastID = id
	return f.err
}

func (f *fakeEventService) Search(_ context.Context, text string, filter domain.SearchFilter) ([]*domain.Event, error) {
	f.lastText, f.lastFilter = text, filter
	return f.events, f.err
}

func (f *fakeEventService) IsFull(context.Context, string) (bool, error) { return false, f.err }

func (f *fakeEventService) GetTitle(context.Context, string) (string, error) { return "", f.err }

func (f *fakeEventService) GetCreatorEmail(context.Context, string) (string, error) { return "", f.err }

func (f *fakeEventService) RefreshIndex(context.Context, string) {}

// fakeSessionService implements domain.SessionService for handler tests.
type fakeSessionService struct {
	err         error
	session     *domain.Session
	sessions    []*domain.Session
	total       int
	lastID      string
	lastEventID string
	lastInput   *domain.SessionInput
	lastUpdate  domain.SessionUpdate
	lastParams  domain.PaginationParams
}

func (f *fakeSessionService) CreateSession(_ context.Context, eventID string, input *domain.SessionInput) (*domain.Session, error) {
	f.lastEventID, f.lastInput = eventID, input
	return f.session, f.err
}

func (f *fakeSessionService) GetSession(_ context.Context, id string) (*domain.Session, error) {
	f.lastID = id
	return f.session, f.err
}

func (f *fakeSessionService) ListSessions(_ context.Context, eventID string, params domain.PaginationParams) ([]*domain.Session, int, error) {
	f.lastEventID, f.lastParams = eventID, params
	return f.sessions, f.total, f.err
}

func (f *fakeSessionService) UpdateSession(_ context.Context, id string, upd domain.SessionUpdate) (*domain.Session, error) {
	f.lastID, f.lastUpdate = id, upd
	return f.session, f.err
}

func (f *fakeSessionService) DeleteSession(_ context.Context, id string) error {
	f.lastID = id
	return f.err
}

// fakeAssistantService implements domain.AssistantService for handler tests.
type fakeAssistantService struct {
	err         error
	assistant   *domain.Assistant
	assistants  []*domain.Assistant
	total       int
	lastID      string
	lastEventID string
	lastInput   *domain.AssistantInput
	lastUpdate  domain.AssistantUpdate
	lastParams  domain.PaginationParams
}

func (f *fakeAssistantService) CreateAssistant(_ context.Context, eventID string, input *domain.AssistantInput) (*domain.Assistant, error) {
	f.lastEventID, f.lastInput = eventID, input
	return f.assistant, f.err
}

func (f *fakeAssistantService) GetAssistant(_ context.Context, id string) (*domain.Assistant, error) {
	f.lastID = id
	return f.assistant, f.err
}

func (f *fakeAssistantService) ListAssistants(_ context.Context, eventID string, params domain.PaginationParams) ([]*domain.Assistant, int, error) {
	f.lastEventID, f.lastParams = eventID, params
	return f.assistants, f.total, f.err
}

func (f *fakeAssistantService) UpdateAssistant(_ context.Context, id string, upd domain.AssistantUpdate) (*domain.Assistant, error) {
	f.lastID, f.lastUpdate = id, upd
	return f.assistant, f.err
}

func (f *fakeAssistantService) DeleteAssistant(_ context.Context, id string) error {
	f.lastID = id
	return f.err
}
