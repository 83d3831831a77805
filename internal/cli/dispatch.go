package cli

import (
	"slices"
	"strconv"

	"github.com/spf13/cobra"
)

// NewDispatchCmd создаёт группу команд для просмотра dispatch.
func NewDispatchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Inspect dispatches",
	}

	cmd.AddCommand(
		newDispatchListCmd(clientFn, outputFn),
		newDispatchShowCmd(clientFn, outputFn),
	)

	return cmd
}

var dispatchHeaders = []string{"ID", "NODE_ID", "STATE", "ACTION", "OUTCOME", "EMITTED", "ERROR"}

func dispatchRow(d DispatchResponse) []string {
	return []string{d.ID, d.NodeID, d.State, d.Action, d.Outcome, strconv.Itoa(d.Emitted), d.Error}
}

func newDispatchListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListDispatchesOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dispatches",
		RunE: func(cmd *cobra.Command, args []string) error {
			dispatches, err := clientFn().ListDispatches(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(dispatches))
			for i, d := range dispatches {
				rows[i] = dispatchRow(d)
			}

			outputFn().Print(dispatchHeaders, rows, dispatches)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.NodeID, "node-id", "", "Filter by node ID")
	cmd.Flags().StringVar(&opts.State, "state", "", "Filter by state (QUEUED, INVOKING, COMPLETED, FAILED, ...)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Max number of dispatches")

	return cmd
}

func newDispatchShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:     "show ID",
		Short:   "Show dispatch details",
		Aliases: []string{"get"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := clientFn().GetDispatch(args[0])
			if err != nil {
				return err
			}

			headers := slices.Concat(dispatchHeaders, []string{"STARTED", "FINISHED"})
			row := append(dispatchRow(*d), d.StartedAt, d.FinishedAt)
			outputFn().Print(headers, [][]string{row}, d)
			return nil
		},
	}
}
