package notifyclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"planhub_backend/ws"

	"github.com/gorilla/websocket"
)

var (
	ErrConnectFailed = errors.New("notifyclient: connection attempts exhausted")
	ErrClosed        = errors.New("notifyclient: client closed")
	ErrNotConnected  = errors.New("notifyclient: not connected")
)

// Notification - клиентское представление уведомления
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	FromID    *string   `json:"fromId"`
	CreatedAt time.Time `json:"createdAt"`
	IsRead    bool      `json:"isRead"`
}

type Config struct {
	URL              string        // ws://host:port/ws
	RequestHeader    http.Header   // например, Authorization
	MaxAttempts      int           // попыток подключения, по умолчанию 5
	RetryDelay       time.Duration // пауза между попытками, по умолчанию 2s
	HandshakeTimeout time.Duration // таймаут установки соединения, по умолчанию 5s
	SettleDelay      time.Duration // пауза перед resync после connect, по умолчанию 300ms
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 300 * time.Millisecond
	}
}

// Client держит один логический socket к шлюзу уведомлений: переживает
// обрывы через ограниченные реконнекты и после каждого успешного
// подключения запрашивает resync непрочитанных. Локальный список
// дедуплицируется по id: один и тот же id из live-push и resync
// сходится к одной записи.
type Client struct {
	cfg Config

	// Колбэки приложения. Выставляются до Connect, вызываются из
	// горутины чтения.
	OnNotification func(Notification)
	OnResync       func([]Notification)
	OnError        func(error)
	OnDisconnect   func(error)

	mu        sync.Mutex
	wmu       sync.Mutex // gorilla допускает только одного писателя
	conn      *websocket.Conn
	userID    string
	connected bool
	closed    bool
	done      chan struct{}

	items []Notification // новые первыми
	seen  map[string]bool
}

func New(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:  cfg,
		done: make(chan struct{}),
		seen: make(map[string]bool),
	}
}

// Connect устанавливает (или переиспользует) соединение и аутентифицирует
// userID. Если соединение уже живо, повторная аутентификация выполняется
// только при смене identity - поддержка смены сессии без перезапуска.
func (c *Client) Connect(ctx context.Context, userID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.connected {
		sameUser := c.userID == userID
		c.userID = userID
		c.mu.Unlock()
		if !sameUser {
			return c.authenticate(userID)
		}
		return nil
	}
	c.userID = userID
	c.mu.Unlock()

	return c.dial(ctx, userID)
}

// dial - цикл ограниченных попыток с фиксированной паузой между ними.
func (c *Client) dial(ctx context.Context, userID string) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		conn, _, err := dialer.DialContext(ctx, c.cfg.URL, c.cfg.RequestHeader)
		if err == nil {
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				conn.Close()
				return ErrClosed
			}
			if c.connected && c.conn != nil {
				// Параллельный dial уже победил; лишнее соединение закрываем
				c.mu.Unlock()
				conn.Close()
				return nil
			}
			c.conn = conn
			c.connected = true
			c.mu.Unlock()

			go c.readLoop(conn)

			if err := c.authenticate(userID); err != nil {
				return err
			}

			// Намеренно дублируем серверный авто-resync: лишний resync
			// безвреден, а гонка порядка событий на handshake - нет
			go c.resyncAfterSettle()
			return nil
		}

		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return ErrClosed
		case <-time.After(c.cfg.RetryDelay):
		}
	}

	return fmt.Errorf("%w: %v", ErrConnectFailed, lastErr)
}

func (c *Client) resyncAfterSettle() {
	select {
	case <-c.done:
		return
	case <-time.After(c.cfg.SettleDelay):
	}
	if err := c.RequestResync(); err != nil && c.OnError != nil {
		c.OnError(err)
	}
}

func (c *Client) authenticate(userID string) error {
	return c.writeEvent(ws.EventAuthenticate, ws.AuthenticatePayload{UserID: userID})
}

// RequestResync запрашивает у шлюза полный список непрочитанных.
func (c *Client) RequestResync() error {
	return c.writeEvent(ws.EventGetUnread, nil)
}

// Create отправляет запрос на создание уведомления.
func (c *Client) Create(notificationType, content, fromUserID, toUserID string) error {
	return c.writeEvent(ws.EventCreate, ws.CreatePayload{
		Type:       notificationType,
		Content:    content,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
	})
}

// MarkAsRead подтверждает чтение и оптимистично обновляет локальный список.
func (c *Client) MarkAsRead(notificationID string) error {
	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == notificationID {
			c.items[i].IsRead = true
			break
		}
	}
	c.mu.Unlock()

	return c.writeEvent(ws.EventMarkAsRead, ws.MarkAsReadPayload{NotificationID: notificationID})
}

// Notifications возвращает снимок локального списка, новые первыми.
func (c *Client) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make([]Notification, len(c.items))
	copy(snapshot, c.items)
	return snapshot
}

// Connected сообщает, живо ли соединение.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close разрывает соединение и гасит все фоновые ретраи.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.connected = false
	close(c.done)
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (c *Client) writeEvent(event string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	msg := ws.Message{Event: event}
	if payload != nil {
		msg.Data = payload
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	return conn.WriteJSON(msg)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDrop(conn, err)
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	var env ws.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if c.OnError != nil {
			c.OnError(fmt.Errorf("notifyclient: malformed frame: %w", err))
		}
		return
	}

	switch env.Event {
	case ws.EventNew:
		var n Notification
		if err := json.Unmarshal(env.Data, &n); err != nil {
			return
		}
		if c.addNew(n) && c.OnNotification != nil {
			c.OnNotification(n)
		}

	case ws.EventUnread:
		var list []Notification
		if err := json.Unmarshal(env.Data, &list); err != nil {
			return
		}
		c.replaceUnread(list)
		if c.OnResync != nil {
			c.OnResync(list)
		}

	case ws.EventError:
		var payload ws.ErrorPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return
		}
		if c.OnError != nil {
			c.OnError(errors.New(payload.Message))
		}
	}
}

// addNew добавляет live-push в начало списка; уже известный id игнорируется.
func (c *Client) addNew(n Notification) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seen[n.ID] {
		return false
	}
	c.seen[n.ID] = true
	c.items = append([]Notification{n}, c.items...)
	return true
}

// replaceUnread замещает локальный список содержимым resync-а,
// дедуплицируя по id.
func (c *Client) replaceUnread(list []Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = c.items[:0]
	c.seen = make(map[string]bool, len(list))
	for _, n := range list {
		if c.seen[n.ID] {
			continue
		}
		c.seen[n.ID] = true
		c.items = append(c.items, n)
	}
}

func (c *Client) handleDrop(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		// Уже заменено новым соединением; отработавшее закрываем
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = nil
	c.connected = false
	closed := c.closed
	userID := c.userID
	c.mu.Unlock()

	if c.OnDisconnect != nil && !closed {
		c.OnDisconnect(err)
	}
	if closed {
		return
	}

	// Автоматический реконнект с тем же identity; исчерпание попыток
	// превращается в состояние connection-error, без вечных ретраев
	if dialErr := c.dial(context.Background(), userID); dialErr != nil {
		if c.OnError != nil && !errors.Is(dialErr, ErrClosed) {
			c.OnError(dialErr)
		}
	}
}
