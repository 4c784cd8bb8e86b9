package bot

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"deltarb/internal/models"
	"deltarb/internal/repository"
	"deltarb/pkg/utils"
)

// Ошибки реестра позиций
var (
	ErrDuplicateKey     = errors.New("position with this natural key already open")
	ErrPositionNotFound = errors.New("position not found")
	ErrInvalidSize      = errors.New("resulting size would be negative")
	ErrBadTransition    = errors.New("status transition not allowed")
)

// PositionStore - внешнее долговременное хранилище позиций
type PositionStore interface {
	Save(p *models.PositionState) error
	LoadAll() ([]*models.PositionState, error)
	Update(p *models.PositionState) error
	Remove(id string) error
}

// pendingOp - вызов хранилища, который ещё не дошёл до него
type pendingOp int

const (
	opSave   pendingOp = iota // строка ещё ни разу не записана
	opUpdate                  // строка в хранилище есть, изменение отложено
)

// dirtyRecord - отложенное изменение вместе с видом вызова.
// Вид важен: позиция, открытая во время недоступности хранилища,
// должна уехать через Save, а не Update - обновлять ещё нечего.
type dirtyRecord struct {
	pos *models.PositionState
	op  pendingOp
}

// PositionLedger хранит незакрытые позиции, индексированные естественным
// ключом (long_symbol, short_symbol). Недоступность хранилища не фатальна:
// реестр продолжает работать в памяти и досинхронизирует изменения
// при следующем успешном обращении.
type PositionLedger struct {
	mu        sync.RWMutex
	positions map[string]*models.PositionState // ключ = NaturalKey()

	store PositionStore
	dirty map[string]*dirtyRecord // несинхронизированные изменения по ID
}

// NewPositionLedger создает реестр поверх хранилища. store может быть nil -
// тогда реестр работает только в памяти.
func NewPositionLedger(store PositionStore) *PositionLedger {
	return &PositionLedger{
		positions: make(map[string]*models.PositionState),
		store:     store,
		dirty:     make(map[string]*dirtyRecord),
	}
}

// Open регистрирует новую позицию. Отказывает, если естественный ключ
// уже занят незакрытой позицией: биржа допускает максимум одну позицию
// на инструмент+направление, двойной вход недопустим.
func (l *PositionLedger) Open(p *models.PositionState) error {
	if p.RemainingSize < 0 {
		return ErrInvalidSize
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := p.NaturalKey()
	if existing, ok := l.positions[key]; ok && existing.IsActive() {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}

	p.Status = models.PositionStatusOpen
	l.positions[key] = p
	OpenPositions.Set(float64(len(l.positions)))

	l.persist(p, opSave)
	return nil
}

// PartialClose уменьшает remaining_size и переводит позицию в partial_close.
// Частичные закрытия всегда уменьшают обе ноги симметрично, поэтому
// размер один.
func (l *PositionLedger) PartialClose(longSymbol, shortSymbol string, reduceBy float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.lookup(longSymbol, shortSymbol)
	if !ok {
		return ErrPositionNotFound
	}

	if reduceBy < 0 || p.RemainingSize-reduceBy < 0 {
		return fmt.Errorf("%w: remaining %v, reduce %v", ErrInvalidSize, p.RemainingSize, reduceBy)
	}
	if !models.CanTransition(p.Status, models.PositionStatusPartialClose) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, p.Status, models.PositionStatusPartialClose)
	}

	p.RemainingSize -= reduceBy
	p.Status = models.PositionStatusPartialClose

	l.persist(p, opUpdate)
	return nil
}

// Close закрывает позицию: статус closed, remaining_size = 0
func (l *PositionLedger) Close(longSymbol, shortSymbol string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.lookup(longSymbol, shortSymbol)
	if !ok {
		return ErrPositionNotFound
	}
	if !models.CanTransition(p.Status, models.PositionStatusClosed) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, p.Status, models.PositionStatusClosed)
	}

	p.RemainingSize = 0
	p.Status = models.PositionStatusClosed
	now := time.Now()
	p.ClosedAt = &now

	delete(l.positions, p.NaturalKey())
	OpenPositions.Set(float64(len(l.positions)))

	l.persist(p, opUpdate)
	return nil
}

// Find - единственный поиск для сверки, O(1) по естественному ключу.
// Поиск по биржевому id не нужен: сами биржи обеспечивают уникальность
// позиции на инструмент, что и делает этот ключ надёжным.
func (l *PositionLedger) Find(longSymbol, shortSymbol string) (*models.PositionState, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.lookup(longSymbol, shortSymbol)
	if !ok {
		return nil, false
	}
	copied := *p
	return &copied, true
}

// All возвращает снимок всех незакрытых позиций
func (l *PositionLedger) All() []*models.PositionState {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*models.PositionState, 0, len(l.positions))
	for _, p := range l.positions {
		copied := *p
		out = append(out, &copied)
	}
	return out
}

// Len возвращает число незакрытых позиций
func (l *PositionLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}

// Restore наполняет реестр позициями из хранилища при старте
func (l *PositionLedger) Restore(positions []*models.PositionState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range positions {
		if !p.IsActive() {
			continue
		}
		l.positions[p.NaturalKey()] = p
	}
	OpenPositions.Set(float64(len(l.positions)))
}

// Dirty сообщает, есть ли изменения, не дошедшие до хранилища
func (l *PositionLedger) Dirty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.dirty) > 0
}

// lookup ищет незакрытую позицию. Вызывается под mu.
func (l *PositionLedger) lookup(longSymbol, shortSymbol string) (*models.PositionState, bool) {
	p, ok := l.positions[longSymbol+"|"+shortSymbol]
	if !ok || !p.IsActive() {
		return nil, false
	}
	return p, true
}

// persist отправляет изменение в хранилище. При недоступности хранилища
// изменение откладывается и будет досинхронизировано при следующем
// успешном вызове. Вызывается под mu.
func (l *PositionLedger) persist(p *models.PositionState, op pendingOp) {
	if l.store == nil {
		return
	}

	// Пока первоначальный Save не дошёл до хранилища, все последующие
	// изменения этой позиции едут тем же Save: Update обновлять нечего
	if rec, ok := l.dirty[p.ID]; ok && rec.op == opSave {
		op = opSave
	}

	if err := l.apply(p, op); err != nil {
		if repository.IsUnavailable(err) {
			l.dirty[p.ID] = &dirtyRecord{pos: p, op: op}
			LedgerDirty.Set(1)
			utils.Warn("storage unavailable, ledger continues in-memory",
				utils.PositionID(p.ID),
				utils.Err(err))
			return
		}
		utils.Error("position persist failed",
			utils.PositionID(p.ID),
			utils.Err(err))
		return
	}

	delete(l.dirty, p.ID)
	l.resyncLocked()
}

// apply выполняет вызов хранилища с перекрёстным восстановлением:
// Update по строке, которой в хранилище нет (потеряна или так и не была
// записана), переигрывается как Save; Save по уже существующей - как Update.
func (l *PositionLedger) apply(p *models.PositionState, op pendingOp) error {
	if op == opSave {
		err := l.store.Save(p)
		if err != nil && !repository.IsUnavailable(err) {
			if err2 := l.store.Update(p); err2 == nil {
				return nil
			}
		}
		return err
	}

	err := l.store.Update(p)
	if errors.Is(err, repository.ErrNotFound) {
		return l.store.Save(p)
	}
	return err
}

// resyncLocked доталкивает отложенные изменения после успешного вызова.
// Вызывается под mu.
func (l *PositionLedger) resyncLocked() {
	if len(l.dirty) == 0 {
		LedgerDirty.Set(0)
		return
	}

	for id, rec := range l.dirty {
		if err := l.apply(rec.pos, rec.op); err != nil {
			if repository.IsUnavailable(err) {
				return
			}
			utils.Error("ledger resync failed", utils.PositionID(id), utils.Err(err))
		}
		delete(l.dirty, id)
	}

	if len(l.dirty) == 0 {
		LedgerDirty.Set(0)
	}
}
