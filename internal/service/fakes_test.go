package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/mail"
	"github.com/NiketSingh147/StoreIt/internal/models"
)

// mockSessions implements SessionGateway with overridable funcs.
type mockSessions struct {
	ResolveFunc    func(ctx context.Context, token string) (models.Session, error)
	ChangeFunc     func(ctx context.Context, token, password string) error
	InvalidateFunc func(ctx context.Context, token string) error

	invalidated []string
}

func (m *mockSessions) ResolveSession(ctx context.Context, token string) (models.Session, error) {
	if m.ResolveFunc == nil {
		return models.Session{}, common.ErrNoSession
	}
	return m.ResolveFunc(ctx, token)
}

func (m *mockSessions) ChangePassword(ctx context.Context, token, password string) error {
	if m.ChangeFunc == nil {
		return nil
	}
	return m.ChangeFunc(ctx, token, password)
}

func (m *mockSessions) InvalidateSession(ctx context.Context, token string) error {
	m.invalidated = append(m.invalidated, token)
	if m.InvalidateFunc == nil {
		return nil
	}
	return m.InvalidateFunc(ctx, token)
}

// mockAdmin implements AdminGateway; unset funcs fail loudly.
type mockAdmin struct {
	CreateIdentityFunc  func(ctx context.Context, email, name string) (string, error)
	FindByEmailFunc     func(ctx context.Context, email string) (models.Identity, error)
	LookupFunc          func(ctx context.Context, accountID string) (models.Identity, error)
	IssueChallengeFunc  func(ctx context.Context, accountID string) error
	VerifyChallengeFunc func(ctx context.Context, accountID, code string) (string, error)
	PasswordLoginFunc   func(ctx context.Context, email, password string) (string, error)
	IssueRecoveryFunc   func(ctx context.Context, email string) error
	PeekRecoveryFunc    func(ctx context.Context, accountID, secret string) error
	ConsumeRecoveryFunc func(ctx context.Context, accountID, secret, password string) error
}

var errUnexpectedCall = errors.New("unexpected call")

func (m *mockAdmin) CreateIdentity(ctx context.Context, email, name string) (string, error) {
	if m.CreateIdentityFunc == nil {
		return "", errUnexpectedCall
	}
	return m.CreateIdentityFunc(ctx, email, name)
}

func (m *mockAdmin) FindIdentityByEmail(ctx context.Context, email string) (models.Identity, error) {
	if m.FindByEmailFunc == nil {
		return models.Identity{}, errUnexpectedCall
	}
	return m.FindByEmailFunc(ctx, email)
}

func (m *mockAdmin) LookupIdentity(ctx context.Context, accountID string) (models.Identity, error) {
	if m.LookupFunc == nil {
		return models.Identity{}, errUnexpectedCall
	}
	return m.LookupFunc(ctx, accountID)
}

func (m *mockAdmin) IssueChallenge(ctx context.Context, accountID string) error {
	if m.IssueChallengeFunc == nil {
		return errUnexpectedCall
	}
	return m.IssueChallengeFunc(ctx, accountID)
}

func (m *mockAdmin) VerifyChallenge(ctx context.Context, accountID, code string) (string, error) {
	if m.VerifyChallengeFunc == nil {
		return "", errUnexpectedCall
	}
	return m.VerifyChallengeFunc(ctx, accountID, code)
}

func (m *mockAdmin) PasswordLogin(ctx context.Context, email, password string) (string, error) {
	if m.PasswordLoginFunc == nil {
		return "", errUnexpectedCall
	}
	return m.PasswordLoginFunc(ctx, email, password)
}

func (m *mockAdmin) IssueRecoveryToken(ctx context.Context, email string) error {
	if m.IssueRecoveryFunc == nil {
		return errUnexpectedCall
	}
	return m.IssueRecoveryFunc(ctx, email)
}

func (m *mockAdmin) PeekRecoveryToken(ctx context.Context, accountID, secret string) error {
	if m.PeekRecoveryFunc == nil {
		return errUnexpectedCall
	}
	return m.PeekRecoveryFunc(ctx, accountID, secret)
}

func (m *mockAdmin) ConsumeRecoveryToken(ctx context.Context, accountID, secret, password string) error {
	if m.ConsumeRecoveryFunc == nil {
		return errUnexpectedCall
	}
	return m.ConsumeRecoveryFunc(ctx, accountID, secret, password)
}

// memProfiles is an in-memory ProfileStore, unique on email.
type memProfiles struct {
	mu      sync.Mutex
	byEmail map[string]models.Profile
	creates int
	err     error
}

func newMemProfiles() *memProfiles {
	return &memProfiles{byEmail: map[string]models.Profile{}}
}

func (m *memProfiles) Create(_ context.Context, p models.Profile) (models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.Profile{}, m.err
	}
	if existing, ok := m.byEmail[p.Email]; ok {
		return existing, nil
	}
	m.creates++
	m.byEmail[p.Email] = p
	return p, nil
}

func (m *memProfiles) FindByEmail(_ context.Context, email string) (models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.Profile{}, m.err
	}
	p, ok := m.byEmail[email]
	if !ok {
		return models.Profile{}, common.ErrNotFound
	}
	return p, nil
}

func (m *memProfiles) FindByAccountID(_ context.Context, accountID string) (models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.Profile{}, m.err
	}
	for _, p := range m.byEmail {
		if p.AccountID == accountID {
			return p, nil
		}
	}
	return models.Profile{}, common.ErrNotFound
}

// memFiles is an in-memory FileStore.
type memFiles struct {
	mu        sync.Mutex
	byID      map[string]models.File
	createErr error
	deleteErr error
	listErr   error
}

func newMemFiles(files ...models.File) *memFiles {
	m := &memFiles{byID: map[string]models.File{}}
	for _, f := range files {
		m.byID[f.ID] = f
	}
	return m
}

func (m *memFiles) Create(_ context.Context, f models.File) (models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return models.File{}, m.createErr
	}
	m.byID[f.ID] = f
	return f, nil
}

func (m *memFiles) Get(_ context.Context, id string) (models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.byID[id]
	if !ok {
		return models.File{}, common.ErrNotFound
	}
	return f, nil
}

func (m *memFiles) List(_ context.Context, ownerID, email string, q models.FileQuery) ([]models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.File
	for _, f := range m.byID {
		visible := f.OwnerID == ownerID
		for _, e := range f.SharedWith {
			visible = visible || e == email
		}
		if visible && (q.Search == "" || strings.Contains(strings.ToLower(f.Name), strings.ToLower(q.Search))) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memFiles) ListOwned(_ context.Context, ownerID string) ([]models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.File
	for _, f := range m.byID {
		if f.OwnerID == ownerID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memFiles) Rename(_ context.Context, id, name string) (models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.byID[id]
	if !ok {
		return models.File{}, common.ErrNotFound
	}
	f.Name = name
	m.byID[id] = f
	return f, nil
}

func (m *memFiles) SetSharedWith(_ context.Context, id string, emails []string) (models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.byID[id]
	if !ok {
		return models.File{}, common.ErrNotFound
	}
	f.SharedWith = append([]string{}, emails...)
	m.byID[id] = f
	return f, nil
}

func (m *memFiles) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

// memBlobs is an in-memory BlobStore.
type memBlobs struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	next      int
	putErr    error
	deleteErr error
}

func newMemBlobs() *memBlobs { return &memBlobs{blobs: map[string][]byte{}} }

func (m *memBlobs) PutBlob(_ context.Context, name, _ string, _ int64, body io.Reader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return "", m.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	m.next++
	key := fmt.Sprintf("blob-%d-%s", m.next, name)
	m.blobs[key] = buf.Bytes()
	return key, nil
}

func (m *memBlobs) DeleteBlob(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.blobs, key)
	return nil
}

func (m *memBlobs) PresignGet(_ context.Context, key, fileName string) (string, error) {
	return "https://blobs.example/" + key + "?name=" + fileName, nil
}

func (m *memBlobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// outbox records sent mail.
type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) recipients() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var to []string
	for _, m := range o.sent {
		to = append(to, m.To)
	}
	return to
}
