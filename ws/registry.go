package ws

import "sync"

// Registry - процессный реестр "пользователь -> активное соединение".
// Хранит не более одной записи на пользователя: повторная регистрация
// молча перезаписывает предыдущую (последнее подключение выигрывает
// point-to-point доставку). Безопасен для конкурентного использования,
// внешних блокировок не требует.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]string // userID -> connID
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]string),
	}
}

// Register вставляет или перезаписывает привязку. Всегда успешен.
func (r *Registry) Register(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = connID
}

// Unregister удаляет записи, чья привязка равна connID.
// Запись, уже перезаписанная более новым соединением, не задевается:
// поздний disconnect старого соединения не выселяет новую привязку.
// Безопасен для соединений, которые так и не прошли аутентификацию.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, stored := range r.conns {
		if stored == connID {
			delete(r.conns, userID)
		}
	}
}

// Lookup отвечает "достижим ли пользователь и через какое соединение" за O(1).
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.conns[userID]
	return connID, ok
}

// Len возвращает количество активных привязок
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
