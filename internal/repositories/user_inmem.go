package repositories

import (
	"sync"
	"time"

	"planhub_backend/internal/models"

	"github.com/google/uuid"
)

// userInMemRepository - потокобезопасная in-memory реализация UserRepository.
// Используется в тестах и как запасной вариант без БД.
type userInMemRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserInMem() UserRepository {
	return &userInMemRepository{
		users: make(map[string]models.User),
	}
}

func (r *userInMemRepository) FindByID(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (r *userInMemRepository) FindByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *userInMemRepository) Exists(id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.users[id]
	return ok, nil
}

func (r *userInMemRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return ErrUserAlreadyExists
		}
	}

	r.users[user.ID] = *user
	return nil
}

func (r *userInMemRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}
