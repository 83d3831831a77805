package domain

// Ключи ActionRequest.Extra.
const (
	ExtraImage         = "image"
	ExtraPullImage     = "pullImage"
	ExtraCreateOptions = "createOptions"
	ExtraStartOptions  = "startOptions"
)

// ActionRequest — каноническое описание одной попытки dispatch.
//
// Создаётся заново для каждого входящего сообщения и не владеет ресурсами.
// После разбора значения полей не меняются.
type ActionRequest struct {
	// Kind — вид ресурса.
	Kind ResourceKind `json:"kind"`

	// ResourceID — идентификатор ресурса. Пустой только для действий,
	// которым не нужна цель (list, prune, create, ...).
	ResourceID string `json:"resource_id,omitempty"`

	// Action — имя действия, регистрозависимое.
	Action string `json:"action"`

	// Command — команда для exec / run, путь для archive-info.
	Command string `json:"command,omitempty"`

	// Options — параметры операции. Никогда не nil.
	Options map[string]any `json:"options"`

	// Extra — поля, специфичные для вида ресурса (image, createOptions, ...).
	Extra map[string]any `json:"extra,omitempty"`
}

// HasTarget возвращает true, если идентификатор ресурса задан.
func (r *ActionRequest) HasTarget() bool {
	return r.ResourceID != ""
}

// ExtraString возвращает строковое поле Extra.
func (r *ActionRequest) ExtraString(key string) string {
	s, _ := r.Extra[key].(string)
	return s
}

// ExtraBool возвращает булево поле Extra.
func (r *ActionRequest) ExtraBool(key string) bool {
	b, _ := r.Extra[key].(bool)
	return b
}

// ExtraMap возвращает поле Extra как объект; nil превращается в пустой объект.
func (r *ActionRequest) ExtraMap(key string) map[string]any {
	if m, ok := r.Extra[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
