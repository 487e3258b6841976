package mode

import (
	"sync"
	"time"
)

// Mode представляет режим работы бота
type Mode string

const (
	// Manual — сделки принимаются только в личке от оператора
	Manual Mode = "Manual"
	// Signal — сигналы принимаются из привязанных групп
	Signal Mode = "Signal"
)

// Controller хранит общее состояние процесса: текущий режим,
// привязанные группы и момент старта. Все мутации проходят через
// методы контроллера под мьютексом, чтобы пайплайны не наблюдали
// частично измененное состояние.
type Controller struct {
	mu          sync.Mutex
	mode        Mode
	boundGroups map[int64]int64 // groupID -> доверенный adminID
	startedAt   time.Time
}

// NewController создает контроллер в режиме Manual без привязанных групп
func NewController() *Controller {
	return &Controller{
		mode:        Manual,
		boundGroups: make(map[int64]int64),
		startedAt:   time.Now(),
	}
}

// Mode возвращает текущий режим
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode переключает режим, не трогая привязанные группы
func (c *Controller) SetMode(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
}

// StartInGroup переводит бота в Signal режим и привязывает группу
// к оператору, выдавшему команду
func (c *Controller) StartInGroup(groupID, adminID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = Signal
	c.boundGroups[groupID] = adminID
}

// BindGroup привязывает группу с ее admin identity.
// Возвращает false, если группа уже привязана.
func (c *Controller) BindGroup(groupID, adminID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.boundGroups[groupID]; exists {
		return false
	}
	c.boundGroups[groupID] = adminID
	return true
}

// Exit безусловно сбрасывает состояние: режим Manual, группы отвязаны
func (c *Controller) Exit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = Manual
	c.boundGroups = make(map[int64]int64)
}

// AuthorizeGroupSignal проверяет, что сообщение из группы можно трактовать
// как сигнал: режим Signal, группа привязана, отправитель совпадает с
// ее доверенным админом
func (c *Controller) AuthorizeGroupSignal(groupID, senderID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != Signal {
		return false
	}
	adminID, bound := c.boundGroups[groupID]
	return bound && adminID == senderID
}

// IsStale сообщает, что сообщение отправлено до старта процесса.
// Такие сообщения игнорируются, чтобы при рестарте не переигрывать
// накопившиеся апдейты.
func (c *Controller) IsStale(t time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return t.Before(c.startedAt)
}

// BoundGroupCount возвращает число привязанных групп
func (c *Controller) BoundGroupCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.boundGroups)
}
