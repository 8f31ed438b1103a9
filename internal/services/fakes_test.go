package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"eventhub/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const testTimeout = 5 * time.Second

// fakeEventRepo is an in-memory EventRepository for tests. Soft-deleted rows stay in byID.
type fakeEventRepo struct {
	byID      map[string]*domain.Event
	nextID    int
	createErr error
	updateErr error
	creates   int
	updates   int
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byID: make(map[string]*domain.Event), nextID: 1}
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if f.createErr != nil {
		return f.createErr
	}
	e.ID = fmt.Sprintf("ev-%d", f.nextID)
	f.nextID++
	f.creates++
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if e, ok := f.byID[id]; ok && e.Active {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) active() []*domain.Event {
	var out []*domain.Event
	for _, e := range f.byID {
		if e.Active {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

func (f *fakeEventRepo) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Event, int, error) {
	all := f.active()
	return paginate(all, params), len(all), nil
}

func (f *fakeEventRepo) ListOverlapping(ctx context.Context, start, end time.Time) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range f.active() {
		if !e.StartDate.After(end) && !e.EndDate.Before(start) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, e *domain.Event) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	cur, ok := f.byID[e.ID]
	if !ok || !cur.Active {
		return domain.ErrNotFound
	}
	f.updates++
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

func (f *fakeEventRepo) SoftDelete(ctx context.Context, id string) error {
	e, ok := f.byID[id]
	if !ok || !e.Active {
		return domain.ErrNotFound
	}
	e.Active = false
	return nil
}

func (f *fakeEventRepo) put(e *domain.Event) *domain.Event {
	if e.ID == "" {
		e.ID = fmt.Sprintf("ev-%d", f.nextID)
		f.nextID++
	}
	e.Active = true
	cp := *e
	f.byID[e.ID] = &cp
	return e
}

// fakeSessionRepo is an in-memory SessionRepository for tests.
type fakeSessionRepo struct {
	byID   map[string]*domain.Session
	nextID int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byID: make(map[string]*domain.Session), nextID: 1}
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	s.ID = fmt.Sprintf("sess-%d", f.nextID)
	f.nextID++
	cp := *s
	f.byID[s.ID] = &cp
	return nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if s, ok := f.byID[id]; ok && s.Active {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSessionRepo) ListAllByEvent(ctx context.Context, eventID string) ([]*domain.Session, error) {
	var out []*domain.Session
	for _, s := range f.byID {
		if s.Active && s.EventID == eventID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (f *fakeSessionRepo) ListByEvent(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Session, int, error) {
	all, _ := f.ListAllByEvent(ctx, eventID)
	return paginate(all, params), len(all), nil
}

func (f *fakeSessionRepo) ListOverlapping(ctx context.Context, eventID string, start, end time.Time) ([]*domain.Session, error) {
	all, _ := f.ListAllByEvent(ctx, eventID)
	var out []*domain.Session
	for _, s := range all {
		if !s.StartDate.After(end) && !s.EndDate.Before(start) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) CountBySpeaker(ctx context.Context, speakerID string) (int, error) {
	n := 0
	for _, s := range f.byID {
		if s.Active && s.SpeakerID == speakerID {
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionRepo) Update(ctx context.Context, s *domain.Session) error {
	cur, ok := f.byID[s.ID]
	if !ok || !cur.Active {
		return domain.ErrNotFound
	}
	cp := *s
	f.byID[s.ID] = &cp
	return nil
}

func (f *fakeSessionRepo) SoftDelete(ctx context.Context, id string) error {
	s, ok := f.byID[id]
	if !ok || !s.Active {
		return domain.ErrNotFound
	}
	s.Active = false
	return nil
}

// fakeAssistantRepo is an in-memory AssistantRepository for tests.
type fakeAssistantRepo struct {
	byID   map[string]*domain.Assistant
	nextID int
}

func newFakeAssistantRepo() *fakeAssistantRepo {
	return &fakeAssistantRepo{byID: make(map[string]*domain.Assistant), nextID: 1}
}

func (f *fakeAssistantRepo) Create(ctx context.Context, a *domain.Assistant) error {
	a.ID = fmt.Sprintf("as-%d", f.nextID)
	f.nextID++
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAssistantRepo) GetByID(ctx context.Context, id string) (*domain.Assistant, error) {
	if a, ok := f.byID[id]; ok && a.Active {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAssistantRepo) ListByEvent(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Assistant, int, error) {
	var all []*domain.Assistant
	for _, a := range f.byID {
		if a.Active && a.EventID == eventID {
			cp := *a
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, params), len(all), nil
}

func (f *fakeAssistantRepo) CountByEvent(ctx context.Context, eventID string) (int, error) {
	n := 0
	for _, a := range f.byID {
		if a.Active && a.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (f *fakeAssistantRepo) Update(ctx context.Context, a *domain.Assistant) error {
	cur, ok := f.byID[a.ID]
	if !ok || !cur.Active {
		return domain.ErrNotFound
	}
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAssistantRepo) SoftDelete(ctx context.Context, id string) error {
	a, ok := f.byID[id]
	if !ok || !a.Active {
		return domain.ErrNotFound
	}
	a.Active = false
	return nil
}

func (f *fakeAssistantRepo) put(a *domain.Assistant) *domain.Assistant {
	if a.ID == "" {
		a.ID = fmt.Sprintf("as-%d", f.nextID)
		f.nextID++
	}
	a.Active = true
	cp := *a
	f.byID[a.ID] = &cp
	return a
}

// fakeUserRepo is an in-memory UserRepository for tests.
type fakeUserRepo struct {
	byID      map[string]*domain.User
	creds     map[string][]domain.Credential
	nextID    int
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:   make(map[string]*domain.User),
		creds:  make(map[string][]domain.Credential),
		nextID: 1,
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User, secret string) error {
	if f.createErr != nil {
		return f.createErr
	}
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	cp := *u
	f.byID[u.ID] = &cp
	f.creds[u.ID] = []domain.Credential{{ID: "cred-" + u.ID, UserID: u.ID, Active: true, Secret: secret}}
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := f.byID[id]; ok && u.Active {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.Active && u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) List(ctx context.Context, params domain.PaginationParams) ([]*domain.User, int, error) {
	var all []*domain.User
	for _, u := range f.byID {
		if u.Active {
			cp := *u
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, params), len(all), nil
}

func (f *fakeUserRepo) ListCredentials(ctx context.Context, userID string) ([]domain.Credential, error) {
	return append([]domain.Credential(nil), f.creds[userID]...), nil
}

func (f *fakeUserRepo) Update(ctx context.Context, u *domain.User) error {
	if _, ok := f.byID[u.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) Deactivate(ctx context.Context, id string) error {
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Active = false
	return nil
}

func (f *fakeUserRepo) RotateCredential(ctx context.Context, userID, secret string) error {
	creds := f.creds[userID]
	for i := range creds {
		creds[i].Active = false
	}
	creds = append(creds, domain.Credential{ID: fmt.Sprintf("cred-%s-%d", userID, len(creds)), UserID: userID, Active: true, Secret: secret})
	f.creds[userID] = creds
	return nil
}

func (f *fakeUserRepo) put(u *domain.User, secret string) *domain.User {
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", f.nextID)
		f.nextID++
	}
	u.Active = true
	cp := *u
	f.byID[u.ID] = &cp
	if secret != "" {
		f.creds[u.ID] = []domain.Credential{{ID: "cred-" + u.ID, UserID: u.ID, Active: true, Secret: secret}}
	}
	return u
}

// fakeRoleRepo implements domain.RoleRepository for tests.
type fakeRoleRepo struct {
	bySlug map[string]*domain.Role
	nextID int
}

func newFakeRoleRepo() *fakeRoleRepo {
	f := &fakeRoleRepo{bySlug: make(map[string]*domain.Role), nextID: 1}
	f.bySlug[domain.AdminRoleSlug] = &domain.Role{ID: "role-admin", Name: "Administrator", Slug: domain.AdminRoleSlug,
		Permissions: []domain.Permission{{Resource: domain.ResourceEvents, Verbs: []string{domain.VerbCreate, domain.VerbDelete}}}}
	f.bySlug[domain.UserRoleSlug] = &domain.Role{ID: "role-user", Name: "User", Slug: domain.UserRoleSlug,
		Permissions: []domain.Permission{{Resource: domain.ResourceEvents, Verbs: []string{domain.VerbGet}}}}
	return f
}

func (f *fakeRoleRepo) Create(ctx context.Context, r *domain.Role) error {
	if _, ok := f.bySlug[r.Slug]; ok {
		return domain.ErrDuplicateSlug
	}
	r.ID = fmt.Sprintf("role-%d", f.nextID)
	f.nextID++
	f.bySlug[r.Slug] = r
	return nil
}

func (f *fakeRoleRepo) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	for _, r := range f.bySlug {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRoleRepo) GetBySlug(ctx context.Context, slug string) (*domain.Role, error) {
	if r, ok := f.bySlug[slug]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRoleRepo) List(ctx context.Context) ([]*domain.Role, error) {
	var out []*domain.Role
	for _, r := range f.bySlug {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (f *fakeRoleRepo) ReplacePermissions(ctx context.Context, roleID string, perms []domain.Permission) error {
	for _, r := range f.bySlug {
		if r.ID == roleID {
			r.Permissions = perms
			return nil
		}
	}
	return domain.ErrNotFound
}

// fakeIndex records indexed documents and answers Search with a fixed id list.
type fakeIndex struct {
	docs      map[string]*domain.EventDocument
	removed   []string
	searchIDs []string
	indexErr  error
	searchErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: make(map[string]*domain.EventDocument)}
}

func (f *fakeIndex) Search(ctx context.Context, text string, filter domain.SearchFilter) ([]string, error) {
	return f.searchIDs, f.searchErr
}

func (f *fakeIndex) Index(ctx context.Context, doc *domain.EventDocument) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeIndex) Remove(ctx context.Context, id string) error {
	f.removed = append(f.removed, id)
	delete(f.docs, id)
	return nil
}

// fakeLocker counts acquisitions per scope. onAcquire, when set, runs once
// the scope is granted, which lets a test interleave a competing writer.
type fakeLocker struct {
	mu        sync.Mutex
	acquired  map[string]int
	held      map[string]bool
	err       error
	onAcquire func(scope string)
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{acquired: make(map[string]int), held: make(map[string]bool)}
}

func (f *fakeLocker) Acquire(ctx context.Context, scope string) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.acquired[scope]++
	f.held[scope] = true
	hook := f.onAcquire
	f.mu.Unlock()
	if hook != nil {
		hook(scope)
	}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.held[scope] = false
	}, nil
}

// fakeEmailService records sent messages.
type fakeEmailService struct {
	welcome      []*domain.WelcomeEmailData
	eventFull    []*domain.EventFullEmailData
	removedOwner []*domain.AssistantRemovedEmailData
	removed      []*domain.AssistantRemovedEmailData
	err          error
}

func (f *fakeEmailService) SendWelcome(ctx context.Context, data *domain.WelcomeEmailData) error {
	f.welcome = append(f.welcome, data)
	return f.err
}

func (f *fakeEmailService) SendEventFull(ctx context.Context, data *domain.EventFullEmailData) error {
	f.eventFull = append(f.eventFull, data)
	return f.err
}

func (f *fakeEmailService) SendAssistantRemovedOwner(ctx context.Context, data *domain.AssistantRemovedEmailData) error {
	f.removedOwner = append(f.removedOwner, data)
	return f.err
}

func (f *fakeEmailService) SendAssistantRemoved(ctx context.Context, data *domain.AssistantRemovedEmailData) error {
	f.removed = append(f.removed, data)
	return f.err
}

// fakeHasher prefixes the password instead of hashing it.
type fakeHasher struct {
	err      error
	verified []string
}

func (f *fakeHasher) Hash(password string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "hash-" + password, nil
}

func (f *fakeHasher) Verify(hash, password string) error {
	f.verified = append(f.verified, hash)
	if hash != "hash-"+password {
		return errors.New("mismatch")
	}
	return nil
}

// fakeIssuer returns a token naming the user and the sorted permission resources.
type fakeIssuer struct {
	lastClaims *domain.Claims
	lastExpiry time.Duration
}

func (f *fakeIssuer) Issue(claims *domain.Claims, expiry time.Duration) (string, error) {
	f.lastClaims = claims
	f.lastExpiry = expiry
	var resources []string
	for r := range claims.Permissions {
		resources = append(resources, r)
	}
	sort.Strings(resources)
	return "token-" + claims.UserID + ":" + strings.Join(resources, ","), nil
}

func paginate[T any](all []T, params domain.PaginationParams) []T {
	if params.PageSize <= 0 {
		return all
	}
	off := params.Offset()
	if off >= len(all) {
		return []T{}
	}
	end := off + params.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[off:end]
}
