package resolve

import "github.com/shaiso/dockflow/internal/domain"

// Имена полей запроса.
const (
	FieldAction     = "action"
	FieldResourceID = "resourceId"
	FieldCommand    = "command"
	FieldOptions    = "options"
)

// Table — порядок источников для каждого поля одного вида ресурса.
type Table struct {
	Kind       domain.ResourceKind
	Action     Field
	ResourceID Field
	Command    Field
	Options    Field
	Extra      []Field

	// TargetOptional — действия, которым не нужен идентификатор ресурса.
	TargetOptional map[string]bool

	// Requires — дополнительные обязательные поля Extra по действию.
	Requires map[string][]string
}

func nodeAction(n *domain.Node) string { return n.Action }
func nodeResourceID(n *domain.Node) string { return n.ResourceID }
func nodeCommand(n *domain.Node) string { return n.Command }
func nodeResourceExpr(n *domain.Node) domain.Property { return n.ResourceExpr }
func nodeOptions(n *domain.Node) domain.Property { return n.Options }
func nodeImage(n *domain.Node) domain.Property { return n.Image }
func nodeCreateOptions(n *domain.Node) domain.Property { return n.CreateOptions }
func nodeStartOptions(n *domain.Node) domain.Property { return n.StartOptions }
func nodePullImage(n *domain.Node) bool { return n.PullImage }

// commonAction — действие: узел → msg.action → msg.payload.action.
var commonAction = Field{Name: FieldAction, Sources: []Accessor{
	Static("action", nodeAction),
	MsgField("action"),
	PayloadField("action"),
}}

// commonCommand — команда с legacy алиасами cmd / command / comand.
var commonCommand = Field{Name: FieldCommand, Sources: []Accessor{
	Static("command", nodeCommand),
	MsgField("cmd"),
	PayloadField("cmd"),
	MsgField("command"),
	PayloadField("command"),
	MsgField("comand"),
	PayloadField("comand"),
}}

// commonOptions — параметры операции, по умолчанию {}.
var commonOptions = Field{Name: FieldOptions, Sources: []Accessor{
	Expr("options", nodeOptions),
	MsgField("options"),
	PayloadField("options"),
	EmptyObject(),
}}

var containerTable = &Table{
	Kind:   domain.ResourceContainer,
	Action: commonAction,
	ResourceID: Field{Name: FieldResourceID, Sources: []Accessor{
		Static("resource_id", nodeResourceID),
		Expr("resource_expr", nodeResourceExpr),
		MsgField("containerId"),
		PayloadField("containerId"),
		MsgField("containerName"),
		PayloadField("containerName"),
	}},
	Command: commonCommand,
	Options: commonOptions,
	Extra: []Field{
		{Name: domain.ExtraImage, Sources: []Accessor{
			Expr("image", nodeImage),
			MsgField("image"),
			PayloadField("image"),
		}},
		{Name: domain.ExtraPullImage, Sources: []Accessor{
			Flag("pull_image", nodePullImage),
		}},
		{Name: domain.ExtraCreateOptions, Sources: []Accessor{
			Expr("create_options", nodeCreateOptions),
			MsgField("createOptions"),
			PayloadField("createOptions"),
			EmptyObject(),
		}, Object: true},
		{Name: domain.ExtraStartOptions, Sources: []Accessor{
			Expr("start_options", nodeStartOptions),
			MsgField("startOptions"),
			PayloadField("startOptions"),
			EmptyObject(),
		}, Object: true},
	},
	TargetOptional: map[string]bool{
		"list":   true,
		"prune":  true,
		"create": true,
		"pull":   true,
		"run":    true,
	},
	Requires: map[string][]string{
		"pull": {domain.ExtraImage},
		"run":  {domain.ExtraImage},
	},
}

var volumeTable = &Table{
	Kind:   domain.ResourceVolume,
	Action: commonAction,
	ResourceID: Field{Name: FieldResourceID, Sources: []Accessor{
		Static("resource_id", nodeResourceID),
		Expr("resource_expr", nodeResourceExpr),
		MsgField("volumeId"),
		PayloadField("volumeId"),
		MsgField("volume"),
		PayloadField("volume"),
	}},
	Command: commonCommand,
	Options: commonOptions,
	TargetOptional: map[string]bool{
		"list":   true,
		"prune":  true,
		"create": true,
	},
}

var configTable = &Table{
	Kind: domain.ResourceConfig,
	Action: Field{Name: FieldAction, Sources: []Accessor{
		Static("action", nodeAction),
		MsgField("action"),
		PayloadField("action"),
		PayloadString(),
	}},
	ResourceID: Field{Name: FieldResourceID, Sources: []Accessor{
		Static("resource_id", nodeResourceID),
		Expr("resource_expr", nodeResourceExpr),
		MsgField("configId"),
		PayloadField("configId"),
		MsgField("config"),
		PayloadField("config"),
	}},
	Command:        commonCommand,
	Options:        commonOptions,
	TargetOptional: map[string]bool{},
}

// tables — таблицы полей по виду ресурса.
var tables = map[domain.ResourceKind]*Table{
	domain.ResourceContainer: containerTable,
	domain.ResourceVolume:    volumeTable,
	domain.ResourceConfig:    configTable,
}

// TableFor возвращает таблицу полей вида ресурса.
func TableFor(kind domain.ResourceKind) (*Table, bool) {
	t, ok := tables[kind]
	return t, ok
}

// IsTargetOptional проверяет, может ли действие выполняться без идентификатора.
func IsTargetOptional(kind domain.ResourceKind, action string) bool {
	t, ok := tables[kind]
	return ok && t.TargetOptional[action]
}
