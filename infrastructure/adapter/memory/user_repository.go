package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fixora/flowauth/application/port/outbound"
	"github.com/fixora/flowauth/domain/entity"
)

// UserRepository is an in-process user, role and permission store for
// development and tests.
type UserRepository struct {
	mu              sync.RWMutex
	nextID          int64
	users           map[int64]entity.User
	byUsername      map[string]int64
	userRoles       map[int64][]string
	rolePermissions map[string][]string
	// usernames of soft-deleted users stay in byUsername.
	deleted map[int64]struct{}
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		nextID:          1,
		users:           make(map[int64]entity.User),
		byUsername:      make(map[string]int64),
		userRoles:       make(map[int64][]string),
		rolePermissions: make(map[string][]string),
		deleted:         make(map[int64]struct{}),
	}
}

// live returns the user unless it is missing or soft-deleted. Callers hold
// the lock.
func (r *UserRepository) live(id int64) (entity.User, bool) {
	if _, gone := r.deleted[id]; gone {
		return entity.User{}, false
	}
	u, ok := r.users[id]
	return u, ok
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.live(id)
	if !ok {
		return nil, outbound.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return nil, outbound.ErrUserNotFound
	}
	u, ok := r.live(id)
	if !ok {
		return nil, outbound.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUsername[username]
	return ok, nil
}

// Create stores user, assigning its ID, and links it to roleCodes.
func (r *UserRepository) Create(ctx context.Context, user *entity.User, roleCodes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUsername[user.Username]; ok {
		return outbound.ErrUserAlreadyExists
	}

	user.ID = r.nextID
	r.nextID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
		user.UpdatedAt = user.CreatedAt
	}
	r.users[user.ID] = *user
	r.byUsername[user.Username] = user.ID
	r.userRoles[user.ID] = append([]string(nil), roleCodes...)
	return nil
}

func (r *UserRepository) FindAuthorities(ctx context.Context, userID int64) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.live(userID); !ok {
		return nil, outbound.ErrUserNotFound
	}

	roles := r.userRoles[userID]
	authorities := make([]string, 0, len(roles))
	perms := make(map[string]struct{})
	for _, role := range roles {
		authorities = append(authorities, "ROLE_"+role)
		for _, p := range r.rolePermissions[role] {
			perms[p] = struct{}{}
		}
	}

	codes := make([]string, 0, len(perms))
	for p := range perms {
		codes = append(codes, p)
	}
	sort.Strings(codes)
	return append(authorities, codes...), nil
}

// GrantPermissions attaches permission codes to a role.
func (r *UserRepository) GrantPermissions(roleCode string, permissions ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roleCode = strings.ToUpper(roleCode)
	r.rolePermissions[roleCode] = append(r.rolePermissions[roleCode], permissions...)
}

// AssignRoles replaces the roles of a user.
func (r *UserRepository) AssignRoles(ctx context.Context, userID int64, roleCodes ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live(userID); !ok {
		return outbound.ErrUserNotFound
	}
	r.userRoles[userID] = append([]string(nil), roleCodes...)
	return nil
}

func (r *UserRepository) UpdateStatus(ctx context.Context, userID int64, status int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.live(userID)
	if !ok {
		return outbound.ErrUserNotFound
	}
	u.Status = status
	u.UpdatedAt = time.Now()
	r.users[userID] = u
	return nil
}

// Update replaces the stored copy of user, re-keying it when the username
// changed.
func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.live(user.ID)
	if !ok {
		return outbound.ErrUserNotFound
	}
	if user.Username != old.Username {
		if _, taken := r.byUsername[user.Username]; taken {
			return outbound.ErrUserAlreadyExists
		}
		delete(r.byUsername, old.Username)
		r.byUsername[user.Username] = user.ID
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) SoftDelete(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live(userID); !ok {
		return outbound.ErrUserNotFound
	}
	r.deleted[userID] = struct{}{}
	delete(r.userRoles, userID)
	return nil
}

func (r *UserRepository) FindAll(ctx context.Context, offset, limit int, filters outbound.UserFilters) ([]*entity.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keyword := strings.ToLower(filters.Keyword)
	matched := make([]entity.User, 0, len(r.users))
	for id := range r.users {
		u, ok := r.live(id)
		if !ok {
			continue
		}
		if filters.Status != nil && u.Status != *filters.Status {
			continue
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(u.Username), keyword) &&
			!strings.Contains(strings.ToLower(u.RealName), keyword) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	if offset >= total {
		return []*entity.User{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	page := make([]*entity.User, 0, end-offset)
	for i := offset; i < end; i++ {
		u := matched[i]
		page = append(page, &u)
	}
	return page, total, nil
}
