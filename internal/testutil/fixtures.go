package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dom/speed-dating/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	displayName string
	gender      string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		displayName: fmt.Sprintf("testuser_%s", uuid.New().String()[:8]),
	}
}

// WithDisplayName sets the display name
func (b *UserBuilder) WithDisplayName(name string) *UserBuilder {
	b.displayName = name
	return b
}

func (b *UserBuilder) WithGender(gender string) *UserBuilder {
	b.gender = gender
	return b
}

// Build creates the user in the database
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) *domain.User {
	t.Helper()

	user := &domain.User{
		ID:          uuid.New(),
		DisplayName: b.displayName,
		Gender:      b.gender,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user
}

// BuildAndAuthenticate creates the user and starts a login session for it.
// Accounts are created outside this service, so tokens are issued directly.
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, string, string) {
	t.Helper()

	user := b.Build(t, ts.DB.DB)
	result, err := ts.Services.Auth.IssueTokens(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("failed to issue tokens: %v", err)
	}

	return user, result.AccessToken, result.RefreshToken
}

// StaticDirectory is an in-memory collab.Directory. Every user has queue
// access unless denied.
type StaticDirectory struct {
	mu       sync.Mutex
	banned   map[uuid.UUID]bool
	denied   map[uuid.UUID]bool
	reports  map[uuid.UUID]map[uuid.UUID]bool
	intros   map[uuid.UUID]map[uuid.UUID]bool
	failWith error
}

func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		banned:  make(map[uuid.UUID]bool),
		denied:  make(map[uuid.UUID]bool),
		reports: make(map[uuid.UUID]map[uuid.UUID]bool),
		intros:  make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (d *StaticDirectory) Ban(userID uuid.UUID) {
	d.mu.Lock()
	d.banned[userID] = true
	d.mu.Unlock()
}

func (d *StaticDirectory) DenyAccess(userID uuid.UUID) {
	d.mu.Lock()
	d.denied[userID] = true
	d.mu.Unlock()
}

func (d *StaticDirectory) Report(reporterID, reportedID uuid.UUID) {
	d.mu.Lock()
	if d.reports[reporterID] == nil {
		d.reports[reporterID] = make(map[uuid.UUID]bool)
	}
	d.reports[reporterID][reportedID] = true
	d.mu.Unlock()
}

func (d *StaticDirectory) Introduce(userID, subjectID uuid.UUID) {
	d.mu.Lock()
	if d.intros[userID] == nil {
		d.intros[userID] = make(map[uuid.UUID]bool)
	}
	d.intros[userID][subjectID] = true
	d.mu.Unlock()
}

// FailWith makes every lookup return err. Pass nil to recover.
func (d *StaticDirectory) FailWith(err error) {
	d.mu.Lock()
	d.failWith = err
	d.mu.Unlock()
}

func (d *StaticDirectory) IsBanned(_ context.Context, userID uuid.UUID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWith != nil {
		return false, d.failWith
	}
	return d.banned[userID], nil
}

func (d *StaticDirectory) HasAccess(_ context.Context, userID uuid.UUID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWith != nil {
		return false, d.failWith
	}
	return !d.denied[userID], nil
}

func (d *StaticDirectory) ReportedBy(_ context.Context, reporterID uuid.UUID) (map[uuid.UUID]bool, error) {
	return d.set(d.reports, reporterID)
}

func (d *StaticDirectory) IntroducedTo(_ context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	return d.set(d.intros, userID)
}

func (d *StaticDirectory) set(sets map[uuid.UUID]map[uuid.UUID]bool, key uuid.UUID) (map[uuid.UUID]bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWith != nil {
		return nil, d.failWith
	}
	out := make(map[uuid.UUID]bool, len(sets[key]))
	for id := range sets[key] {
		out[id] = true
	}
	return out, nil
}
