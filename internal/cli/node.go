package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewNodeCmd создаёт группу команд для управления узлами.
func NewNodeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage nodes",
	}

	cmd.AddCommand(
		newNodeListCmd(clientFn, outputFn),
		newNodeCreateCmd(clientFn, outputFn),
		newNodeShowCmd(clientFn, outputFn),
		newNodeDeleteCmd(clientFn, outputFn),
		newNodeApplyCmd(clientFn, outputFn),
		newNodeInjectCmd(clientFn, outputFn),
	)

	return cmd
}

var nodeHeaders = []string{"ID", "NAME", "KIND", "ACTION", "RESOURCE", "WIRES"}

func nodeRow(n NodeResponse) []string {
	resource := n.ResourceID
	if resource == "" && n.ResourceExpr.Value != "" {
		resource = n.ResourceExpr.Type + ":" + n.ResourceExpr.Value
	}
	return []string{n.ID, n.Name, n.Kind, n.Action, resource, strconv.Itoa(len(n.Wires))}
}

func newNodeListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := clientFn().ListNodes(kind)
			if err != nil {
				return err
			}

			rows := make([][]string, len(nodes))
			for i, n := range nodes {
				rows[i] = nodeRow(n)
			}

			outputFn().Print(nodeHeaders, rows, nodes)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Filter by resource kind (container, volume, config)")

	return cmd
}

func newNodeCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req NodeRequest
	var resourceMsg string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a node",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			if resourceMsg != "" {
				req.ResourceExpr = Property{Value: resourceMsg, Type: "msg"}
			}

			node, err := clientFn().CreateNode(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Node created: %s", node.ID))
			out.Print(nodeHeaders, [][]string{nodeRow(*node)}, node)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Node name (required)")
	cmd.Flags().StringVar(&req.Kind, "kind", "", "Resource kind: container, volume, config (required)")
	cmd.Flags().StringVar(&req.Action, "action", "", "Static action; empty means msg.action")
	cmd.Flags().StringVar(&req.ResourceID, "resource", "", "Static resource id or name")
	cmd.Flags().StringVar(&resourceMsg, "resource-from", "", "Message path for the resource id (e.g. payload.id)")
	cmd.Flags().StringVar(&req.Command, "command", "", "Command for exec/run or path for archive actions")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("kind")

	return cmd
}

func newNodeShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:     "show ID",
		Short:   "Show node details",
		Aliases: []string{"get"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := clientFn().GetNode(args[0])
			if err != nil {
				return err
			}

			outputFn().Print(nodeHeaders, [][]string{nodeRow(*node)}, node)
			return nil
		},
	}
}

func newNodeDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteNode(args[0]); err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Node deleted: %s", args[0]))
			return nil
		},
	}
}

func newNodeApplyCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update nodes from a YAML/JSON bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			var data []byte
			var err error
			if file == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("failed to read bundle: %w", err)
			}

			resp, err := clientFn().ApplyNodes(data)
			if err != nil {
				return err
			}

			rows := make([][]string, len(resp.Nodes))
			for i, n := range resp.Nodes {
				rows[i] = nodeRow(n)
			}

			out.Success(fmt.Sprintf("Applied %d node(s)", len(resp.Nodes)))
			out.Print(nodeHeaders, rows, resp.Nodes)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Bundle file, '-' for stdin (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newNodeInjectCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var payload string
	var fields []string
	var key string

	cmd := &cobra.Command{
		Use:   "inject ID",
		Short: "Send a message to a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			req := InjectRequest{IdempotencyKey: key}
			if payload != "" {
				req.Payload = parseValue(payload)
			}
			if len(fields) > 0 {
				msg, err := parseKV(fields)
				if err != nil {
					return err
				}
				req.Message = msg
			}

			d, err := clientFn().Inject(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Dispatch queued: %s", d.ID))
			out.Print(dispatchHeaders, [][]string{dispatchRow(*d)}, d)
			return nil
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "", "msg.payload (JSON or plain string)")
	cmd.Flags().StringSliceVar(&fields, "set", nil, "Message fields as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&key, "idempotency-key", "", "Deduplication key")

	return cmd
}

// parseKV разбирает KEY=VALUE пары. Значения в JSON разбираются.
func parseKV(pairs []string) (map[string]any, error) {
	result := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid format %q, expected KEY=VALUE", kv)
		}
		result[k] = parseValue(v)
	}
	return result, nil
}

// parseValue возвращает JSON значение или строку как есть.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
