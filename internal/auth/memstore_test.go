package auth

import (
	"context"
	"sync"
	"time"
)

// memStore is an in-memory Store used across the package tests. Delta
// application counters let reconciliation tests assert idempotence.
type memStore struct {
	mu sync.Mutex

	users    map[string]User
	apiKeys  map[string]APIKey
	location map[string]Location

	directScopes map[string]map[Scope]struct{}
	roles        map[string]AccessRole
	roleScopes   map[string]map[Scope]struct{}
	assignments  map[string]map[string]struct{}

	orgGrants map[string]map[OrganizationGrantKind]struct{}
	locGrants map[string]map[LocationGrantKind]struct{}

	orgDeltaCalls   int
	locDeltaCalls   int
	scopeDeltaCalls int

	grantErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[string]User),
		apiKeys:      make(map[string]APIKey),
		location:     make(map[string]Location),
		directScopes: make(map[string]map[Scope]struct{}),
		roles:        make(map[string]AccessRole),
		roleScopes:   make(map[string]map[Scope]struct{}),
		assignments:  make(map[string]map[string]struct{}),
		orgGrants:    make(map[string]map[OrganizationGrantKind]struct{}),
		locGrants:    make(map[string]map[LocationGrantKind]struct{}),
	}
}

func grantKey(userID, resourceID string) string { return userID + "|" + resourceID }

func (m *memStore) FindUser(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memStore) FindAPIKey(_ context.Context, id string) (APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.apiKeys[id]
	if !ok {
		return APIKey{}, ErrNotFound
	}
	return k, nil
}

func (m *memStore) FindAPIKeyBySecretHash(_ context.Context, secretHash string) (APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.apiKeys {
		if k.SecretHash == secretHash {
			return k, nil
		}
	}
	return APIKey{}, ErrNotFound
}

func (m *memStore) FindLocation(_ context.Context, id string) (Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.location[id]
	if !ok {
		return Location{}, ErrNotFound
	}
	return l, nil
}

func (m *memStore) DirectScopes(_ context.Context, principalID string) ([]Scope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Scope
	for s := range m.directScopes[principalID] {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) AddDirectScope(_ context.Context, principalID string, scope Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.directScopes[principalID] == nil {
		m.directScopes[principalID] = make(map[Scope]struct{})
	}
	m.directScopes[principalID][scope] = struct{}{}
	return nil
}

func (m *memStore) RemoveDirectScope(_ context.Context, principalID string, scope Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.directScopes[principalID], scope)
	return nil
}

func (m *memStore) ReplaceDirectScopes(_ context.Context, principalID string, add, remove []Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopeDeltaCalls++
	if m.directScopes[principalID] == nil {
		m.directScopes[principalID] = make(map[Scope]struct{})
	}
	for _, s := range remove {
		delete(m.directScopes[principalID], s)
	}
	for _, s := range add {
		m.directScopes[principalID][s] = struct{}{}
	}
	return nil
}

func (m *memStore) CreateRole(_ context.Context, name string) (AccessRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role := AccessRole{ID: "role-" + name, Name: name, CreatedAt: time.Now()}
	m.roles[role.ID] = role
	return role, nil
}

func (m *memStore) SetRoleScopes(_ context.Context, roleID string, scopes []Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[Scope]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	m.roleScopes[roleID] = set
	return nil
}

func (m *memStore) RoleScopes(_ context.Context, roleID string) ([]Scope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[roleID]; !ok {
		return nil, ErrNotFound
	}
	var out []Scope
	for s := range m.roleScopes[roleID] {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) AssignRole(_ context.Context, principalID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assignments[principalID] == nil {
		m.assignments[principalID] = make(map[string]struct{})
	}
	m.assignments[principalID][roleID] = struct{}{}
	return nil
}

func (m *memStore) RemoveRoleAssignment(_ context.Context, principalID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assignments[principalID], roleID)
	return nil
}

func (m *memStore) RoleAssignments(_ context.Context, principalID string) ([]RoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RoleAssignment
	for roleID := range m.assignments[principalID] {
		out = append(out, RoleAssignment{PrincipalID: principalID, RoleID: roleID})
	}
	return out, nil
}

func (m *memStore) OrganizationGrants(_ context.Context, userID, organizationID string) ([]OrganizationGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grantErr != nil {
		return nil, m.grantErr
	}
	var out []OrganizationGrant
	for kind := range m.orgGrants[grantKey(userID, organizationID)] {
		out = append(out, OrganizationGrant{UserID: userID, OrganizationID: organizationID, Kind: kind})
	}
	return out, nil
}

func (m *memStore) HasOrganizationGrant(_ context.Context, userID, organizationID string, kind OrganizationGrantKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grantErr != nil {
		return false, m.grantErr
	}
	_, ok := m.orgGrants[grantKey(userID, organizationID)][kind]
	return ok, nil
}

func (m *memStore) ApplyOrganizationGrantDelta(_ context.Context, userID, organizationID string, add, remove []OrganizationGrantKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grantErr != nil {
		return m.grantErr
	}
	m.orgDeltaCalls++
	key := grantKey(userID, organizationID)
	if m.orgGrants[key] == nil {
		m.orgGrants[key] = make(map[OrganizationGrantKind]struct{})
	}
	for _, k := range remove {
		delete(m.orgGrants[key], k)
	}
	for _, k := range add {
		m.orgGrants[key][k] = struct{}{}
	}
	return nil
}

func (m *memStore) LocationGrants(_ context.Context, userID, locationID string) ([]LocationGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grantErr != nil {
		return nil, m.grantErr
	}
	var out []LocationGrant
	for kind := range m.locGrants[grantKey(userID, locationID)] {
		out = append(out, LocationGrant{UserID: userID, LocationID: locationID, Kind: kind})
	}
	return out, nil
}

func (m *memStore) HasLocationGrant(_ context.Context, userID, locationID string, kind LocationGrantKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grantErr != nil {
		return false, m.grantErr
	}
	_, ok := m.locGrants[grantKey(userID, locationID)][kind]
	return ok, nil
}

func (m *memStore) ApplyLocationGrantDelta(_ context.Context, userID, locationID string, add, remove []LocationGrantKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grantErr != nil {
		return m.grantErr
	}
	m.locDeltaCalls++
	key := grantKey(userID, locationID)
	if m.locGrants[key] == nil {
		m.locGrants[key] = make(map[LocationGrantKind]struct{})
	}
	for _, k := range remove {
		delete(m.locGrants[key], k)
	}
	for _, k := range add {
		m.locGrants[key][k] = struct{}{}
	}
	return nil
}
