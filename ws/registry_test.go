package ws

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	_, ok := r.Lookup("user-1")
	assert.False(t, ok, "пустой реестр не должен находить пользователя")

	r.Register("user-1", "conn-1")

	connID, ok := r.Lookup("user-1")
	assert.True(t, ok)
	assert.Equal(t, "conn-1", connID)
	assert.Equal(t, 1, r.Len())
}

// Последнее подключение выигрывает, а поздний disconnect старого
// соединения не выселяет новую привязку.
func TestRegistry_LastConnectWins(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	r.Register("user-1", "conn-1")
	r.Register("user-1", "conn-2")

	connID, ok := r.Lookup("user-1")
	assert.True(t, ok)
	assert.Equal(t, "conn-2", connID, "вторая регистрация должна перезаписать первую")
	assert.Equal(t, 1, r.Len(), "не более одной записи на пользователя")

	// Старое соединение отключается уже после перезаписи
	r.Unregister("conn-1")

	connID, ok = r.Lookup("user-1")
	assert.True(t, ok, "устаревший disconnect не должен трогать новую привязку")
	assert.Equal(t, "conn-2", connID)

	r.Unregister("conn-2")
	_, ok = r.Lookup("user-1")
	assert.False(t, ok)
}

// Отключение соединения, которое так и не аутентифицировалось - no-op.
func TestRegistry_UnregisterUnknownIsNoop(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("user-1", "conn-1")

	r.Unregister("never-registered")

	connID, ok := r.Lookup("user-1")
	assert.True(t, ok)
	assert.Equal(t, "conn-1", connID)
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", n%10)
			connID := fmt.Sprintf("conn-%d", n)
			r.Register(userID, connID)
			r.Lookup(userID)
			r.Unregister(connID)
		}(i)
	}
	wg.Wait()

	// После того как каждый connID снял свою привязку, реестр пуст
	assert.Equal(t, 0, r.Len())
}
