package cli

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"
)

// NewActionsCmd создаёт команду просмотра таблицы действий.
func NewActionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "actions KIND",
		Short: "List actions of a resource kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := clientFn().ListActions(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ACTION", "MODE", "LABEL", "TARGET_OPTIONAL"}
			rows := make([][]string, len(infos))
			for i, a := range infos {
				rows[i] = []string{a.Action, a.Mode, a.Label, strconv.FormatBool(a.TargetOptional)}
			}

			outputFn().Print(headers, rows, infos)
			return nil
		},
	}
}

// NewSearchCmd создаёт группу команд поиска ресурсов Docker.
func NewSearchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "List Docker resources for node configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "containers",
			Short: "List all containers",
			RunE: func(cmd *cobra.Command, args []string) error {
				raw, err := clientFn().SearchContainers(nil)
				if err != nil {
					return err
				}
				return printContainers(outputFn(), raw)
			},
		},
		&cobra.Command{
			Use:   "volumes",
			Short: "List all volumes",
			RunE: func(cmd *cobra.Command, args []string) error {
				raw, err := clientFn().SearchVolumes(nil)
				if err != nil {
					return err
				}
				return printVolumes(outputFn(), raw)
			},
		},
	)

	return cmd
}

func printContainers(out *Output, raw json.RawMessage) error {
	var containers []struct {
		ID    string   `json:"Id"`
		Names []string `json:"Names"`
		Image string   `json:"Image"`
		State string   `json:"State"`
	}
	if err := json.Unmarshal(raw, &containers); err != nil {
		return err
	}

	rows := make([][]string, len(containers))
	for i, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = c.Names[0]
		}
		id := c.ID
		if len(id) > 12 {
			id = id[:12]
		}
		rows[i] = []string{id, name, c.Image, c.State}
	}

	out.Print([]string{"ID", "NAME", "IMAGE", "STATE"}, rows, raw)
	return nil
}

func printVolumes(out *Output, raw json.RawMessage) error {
	var list struct {
		Volumes []struct {
			Name       string `json:"Name"`
			Driver     string `json:"Driver"`
			Mountpoint string `json:"Mountpoint"`
		} `json:"Volumes"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return err
	}

	rows := make([][]string, len(list.Volumes))
	for i, v := range list.Volumes {
		rows[i] = []string{v.Name, v.Driver, v.Mountpoint}
	}

	out.Print([]string{"NAME", "DRIVER", "MOUNTPOINT"}, rows, raw)
	return nil
}
