package engine

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/dockflow/internal/domain"
)

// NodeDef — определение узла в файле набора (YAML или JSON).
//
// Wires ссылаются на имена узлов: идентификаторы появляются
// только после сохранения.
type NodeDef struct {
	Name          string          `yaml:"name" json:"name"`
	Kind          string          `yaml:"kind" json:"kind"`
	Action        string          `yaml:"action,omitempty" json:"action,omitempty"`
	ResourceID    string          `yaml:"resource_id,omitempty" json:"resource_id,omitempty"`
	ResourceExpr  domain.Property `yaml:"resource_expr,omitempty" json:"resource_expr,omitempty"`
	Command       string          `yaml:"command,omitempty" json:"command,omitempty"`
	Options       domain.Property `yaml:"options,omitempty" json:"options,omitempty"`
	Image         domain.Property `yaml:"image,omitempty" json:"image,omitempty"`
	PullImage     bool            `yaml:"pull_image,omitempty" json:"pull_image,omitempty"`
	CreateOptions domain.Property `yaml:"create_options,omitempty" json:"create_options,omitempty"`
	StartOptions  domain.Property `yaml:"start_options,omitempty" json:"start_options,omitempty"`
	Wires         []string        `yaml:"wires,omitempty" json:"wires,omitempty"`
}

// Node превращает определение в domain.Node без wires.
func (d *NodeDef) Node() domain.Node {
	return domain.Node{
		Name:          d.Name,
		Kind:          domain.ResourceKind(d.Kind),
		Action:        d.Action,
		ResourceID:    d.ResourceID,
		ResourceExpr:  d.ResourceExpr,
		Command:       d.Command,
		Options:       d.Options,
		Image:         d.Image,
		PullImage:     d.PullImage,
		CreateOptions: d.CreateOptions,
		StartOptions:  d.StartOptions,
	}
}

// bundle — корневой документ файла набора.
type bundle struct {
	Nodes []NodeDef `yaml:"nodes"`
}

// ActionSet отвечает, зарегистрировано ли действие для вида ресурса.
type ActionSet interface {
	Has(kind domain.ResourceKind, action string) bool
}

// ParseNodes разбирает набор узлов.
//
// Поддерживаются два формата:
//
//	nodes:
//	  - name: web-inspect
//	    kind: container
//	    action: inspect
//
// и просто список узлов верхнего уровня. JSON тоже подходит,
// так как является подмножеством YAML.
func ParseNodes(data []byte) ([]NodeDef, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyBundle
	}

	var defs []NodeDef
	if data[0] == '[' || data[0] == '-' {
		if err := yaml.Unmarshal(data, &defs); err != nil {
			return nil, fmt.Errorf("parse node bundle: %w", err)
		}
	} else {
		var b bundle
		if err := yaml.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("parse node bundle: %w", err)
		}
		defs = b.Nodes
	}

	if len(defs) == 0 {
		return nil, ErrEmptyBundle
	}
	return defs, nil
}

// ValidateBundle валидирует набор: каждый узел, уникальность имён
// и ссылки wires на узлы из набора или из known.
func ValidateBundle(defs []NodeDef, actions ActionSet, known map[string]bool) error {
	names := make(map[string]bool, len(defs))
	var errs []error

	for i := range defs {
		def := &defs[i]
		node := def.Node()
		if err := ValidateNode(&node, actions); err != nil {
			errs = append(errs, err)
			continue
		}
		if names[def.Name] {
			errs = append(errs, NewValidationError(def.Name, "name",
				fmt.Sprintf("duplicate node name: %s", def.Name), ErrDuplicateNodeName))
		}
		names[def.Name] = true
	}

	for i := range defs {
		for _, wire := range defs[i].Wires {
			if !names[wire] && !known[wire] {
				errs = append(errs, NewValidationError(defs[i].Name, "wires",
					fmt.Sprintf("wire to unknown node: %s", wire), nil))
			}
		}
	}

	return errors.Join(errs...)
}

// ValidateNode выполняет валидацию одного узла.
//
// Проверяет:
// - Наличие имени
// - Вид ресурса
// - Статическое действие (если задано) по таблице операций
// - Типы выражений
func ValidateNode(node *domain.Node, actions ActionSet) error {
	if node.Name == "" {
		return NewValidationError("", "name", "node has empty name", ErrEmptyNodeName)
	}

	if !node.Kind.IsValid() {
		return NewValidationError(node.Name, "kind",
			fmt.Sprintf("unknown resource kind: %q", node.Kind), ErrUnknownKind)
	}

	if node.Action != "" && actions != nil && !actions.Has(node.Kind, node.Action) {
		return NewValidationError(node.Name, "action",
			fmt.Sprintf("unknown %s action: %s", node.Kind, node.Action), ErrUnknownAction)
	}

	props := []struct {
		field string
		prop  domain.Property
	}{
		{"resource_expr", node.ResourceExpr},
		{"options", node.Options},
		{"image", node.Image},
		{"create_options", node.CreateOptions},
		{"start_options", node.StartOptions},
	}
	for _, p := range props {
		if !IsValidPropertyType(p.prop.Type) {
			return NewValidationError(node.Name, p.field,
				fmt.Sprintf("unknown property type: %s", p.prop.Type), ErrUnknownPropertyType)
		}
	}

	return nil
}
