package actions

import (
	"sort"
	"sync"

	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/resolve"
)

// Router — таблицы операций по видам ресурсов.
//
// Таблицы заполняются при создании и дальше только читаются.
// Потокобезопасен.
type Router struct {
	mu     sync.RWMutex
	tables map[domain.ResourceKind]map[string]*Operation
}

// NewRouter создаёт пустой Router.
func NewRouter() *Router {
	return &Router{
		tables: make(map[domain.ResourceKind]map[string]*Operation),
	}
}

// DefaultRouter создаёт Router со всеми стандартными таблицами.
func DefaultRouter() *Router {
	r := NewRouter()
	for _, op := range containerOperations() {
		r.Register(domain.ResourceContainer, op)
	}
	for _, op := range volumeOperations() {
		r.Register(domain.ResourceVolume, op)
	}
	for _, op := range configOperations() {
		r.Register(domain.ResourceConfig, op)
	}
	return r
}

// Register добавляет операцию. Операция с тем же именем перезаписывается.
func (r *Router) Register(kind domain.ResourceKind, op *Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	table, ok := r.tables[kind]
	if !ok {
		table = make(map[string]*Operation)
		r.tables[kind] = table
	}
	table[op.Action] = op
}

// Route возвращает операцию для (kind, action).
// Имена действий регистрозависимые.
func (r *Router) Route(kind domain.ResourceKind, action string) (*Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.tables[kind][action]
	if !ok {
		return nil, &UnknownActionError{Kind: kind, Action: action}
	}
	return op, nil
}

// Has проверяет, зарегистрировано ли действие.
func (r *Router) Has(kind domain.ResourceKind, action string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tables[kind][action]
	return ok
}

// Actions возвращает отсортированный список действий вида ресурса.
func (r *Router) Actions(kind domain.ResourceKind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tables[kind]))
	for name := range r.tables[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe возвращает описание действий вида ресурса (для API).
func (r *Router) Describe(kind domain.ResourceKind) []Info {
	r.mu.RLock()
	table := r.tables[kind]
	r.mu.RUnlock()

	infos := make([]Info, 0, len(table))
	for _, name := range r.Actions(kind) {
		op := table[name]
		infos = append(infos, Info{
			Action:         op.Action,
			Mode:           op.Mode.String(),
			Label:          op.Label,
			TargetOptional: resolve.IsTargetOptional(kind, op.Action),
		})
	}
	return infos
}

// Info — описание действия для клиентов API.
type Info struct {
	Action         string `json:"action"`
	Mode           string `json:"mode"`
	Label          string `json:"label"`
	TargetOptional bool   `json:"target_optional"`
}
