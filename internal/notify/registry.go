package notify

import "sync"

// Conn — активное realtime-подключение пользователя. Транспорт (websocket
// и т.п.) живёт вне ядра, сюда он заходит только через этот интерфейс.
type Conn interface {
	Send(payload []byte) error
}

// Registry — процессный реестр подключений: register при коннекте,
// deregister при дисконнекте. Пуш best-effort, мёртвое соединение
// просто пропускаем.
type Registry struct {
	mu    sync.RWMutex
	conns map[uint][]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: map[uint][]Conn{}}
}

// Connections — реестр процесса (один на сервер)
var Connections = NewRegistry()

func (r *Registry) Register(userID uint, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = append(r.conns[userID], c)
}

func (r *Registry) Deregister(userID uint, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := r.conns[userID][:0]
	for _, conn := range r.conns[userID] {
		if conn != c {
			remaining = append(remaining, conn)
		}
	}
	if len(remaining) == 0 {
		delete(r.conns, userID)
		return
	}
	r.conns[userID] = remaining
}

// Push — отправка во все подключения пользователя, ошибки игнорируем
func (r *Registry) Push(userID uint, payload []byte) {
	r.mu.RLock()
	conns := append([]Conn(nil), r.conns[userID]...)
	r.mu.RUnlock()

	for _, c := range conns {
		_ = c.Send(payload)
	}
}
