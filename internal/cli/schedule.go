package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// previewWidth — сколько символов сообщения показывать в таблицах.
const previewWidth = 40

// NewScheduleCmd создаёт группу команд schedule.
//
// Schedule по cron или интервалу отправляет узлу заданное сообщение.
func NewScheduleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule",
		Short:   "Manage timed messages sent to nodes",
		Aliases: []string{"schedules", "sched"},
	}

	cmd.AddCommand(
		newScheduleListCmd(clientFn, outputFn),
		newScheduleCreateCmd(clientFn, outputFn),
		newScheduleShowCmd(clientFn, outputFn),
		newScheduleUpdateCmd(clientFn, outputFn),
		newScheduleDeleteCmd(clientFn, outputFn),
		newScheduleToggleCmd(clientFn, outputFn, true),
		newScheduleToggleCmd(clientFn, outputFn, false),
	)

	return cmd
}

// scheduleHeaders — колонки list и ответов create/update.
var scheduleHeaders = []string{"ID", "NODE", "NAME", "TRIGGER", "STATE", "NEXT_DUE", "LAST_RUN", "MESSAGE"}

func scheduleRow(s ScheduleResponse) []string {
	return []string{
		s.ID,
		s.NodeID,
		s.Name,
		scheduleTrigger(s),
		scheduleState(s.Enabled),
		s.NextDueAt,
		s.LastRunAt,
		messagePreview(s.Message),
	}
}

// scheduleTrigger описывает срабатывание: "cron 0 3 * * * (UTC)" или "every 1m30s".
func scheduleTrigger(s ScheduleResponse) string {
	switch {
	case s.CronExpr != "":
		if s.Timezone != "" {
			return fmt.Sprintf("cron %s (%s)", s.CronExpr, s.Timezone)
		}
		return "cron " + s.CronExpr
	case s.IntervalSec > 0:
		return "every " + (time.Duration(s.IntervalSec) * time.Second).String()
	default:
		return ""
	}
}

func scheduleState(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

// messagePreview — сообщение одной строкой JSON, обрезанное до previewWidth.
func messagePreview(msg map[string]any) string {
	if len(msg) == 0 {
		return ""
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Sprint(msg)
	}
	if r := []rune(string(b)); len(r) > previewWidth {
		return string(r[:previewWidth-1]) + "…"
	}
	return string(b)
}

func printSchedule(out *Output, s *ScheduleResponse) {
	out.Print(scheduleHeaders, [][]string{scheduleRow(*s)}, s)
}

func newScheduleListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var nodeID string
	var enabledOnly bool

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List schedules",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			schedules, err := clientFn().ListSchedules(nodeID)
			if err != nil {
				return err
			}

			shown := make([]ScheduleResponse, 0, len(schedules))
			rows := make([][]string, 0, len(schedules))
			for _, s := range schedules {
				if enabledOnly && !s.Enabled {
					continue
				}
				shown = append(shown, s)
				rows = append(rows, scheduleRow(s))
			}

			outputFn().Print(scheduleHeaders, rows, shown)
			return nil
		},
	}

	cmd.Flags().StringVar(&nodeID, "node-id", "", "Only schedules of this node")
	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "Hide disabled schedules")

	return cmd
}

func newScheduleCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		req      CreateScheduleRequest
		fields   []string
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "create NODE_ID",
		Short: "Schedule a message for a node",
		Example: `  dockflow schedule create $NODE --name nightly-restart --cron "0 3 * * *" --set action=restart
  dockflow schedule create $NODE --name poll --interval 30 --set 'payload={"containerId":"web"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.CronExpr == "" && req.IntervalSec <= 0 {
				return fmt.Errorf("one of --cron or --interval is required")
			}
			req.Enabled = !disabled

			if len(fields) > 0 {
				msg, err := parseKV(fields)
				if err != nil {
					return err
				}
				req.Message = msg
			}

			schedule, err := clientFn().CreateSchedule(args[0], req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Schedule created: %s", schedule.ID))
			printSchedule(out, schedule)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Schedule name (required)")
	cmd.Flags().StringVar(&req.CronExpr, "cron", "", "Cron expression, e.g. '0 * * * *'")
	cmd.Flags().IntVar(&req.IntervalSec, "interval", 0, "Interval in seconds")
	cmd.Flags().StringVar(&req.Timezone, "timezone", "", "Timezone of the cron expression, e.g. 'Europe/Moscow'")
	cmd.Flags().StringSliceVar(&fields, "set", nil, "Message field as KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the schedule disabled")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagsMutuallyExclusive("cron", "interval")

	return cmd
}

func newScheduleShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:     "show ID",
		Short:   "Show one schedule field by field",
		Aliases: []string{"get"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := clientFn().GetSchedule(args[0])
			if err != nil {
				return err
			}

			msg := ""
			if len(s.Message) > 0 {
				b, _ := json.Marshal(s.Message)
				msg = string(b)
			}

			fields := [][]string{
				{"ID", s.ID},
				{"NODE", s.NodeID},
				{"NAME", s.Name},
				{"TRIGGER", scheduleTrigger(*s)},
				{"STATE", scheduleState(s.Enabled)},
				{"NEXT_DUE", s.NextDueAt},
				{"LAST_RUN", s.LastRunAt},
				{"LAST_DISPATCH", s.LastDispatchID},
				{"MESSAGE", msg},
				{"CREATED", s.CreatedAt},
				{"UPDATED", s.UpdatedAt},
			}
			outputFn().Print([]string{"FIELD", "VALUE"}, fields, s)
			return nil
		},
	}
}

func newScheduleUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		name     string
		cronExpr string
		interval int
		timezone string
		fields   []string
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a schedule; only the given flags are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := cmd.Flags().Changed

			var req UpdateScheduleRequest
			if changed("name") {
				req.Name = &name
			}
			if changed("cron") {
				req.CronExpr = &cronExpr
			}
			if changed("interval") {
				req.IntervalSec = &interval
			}
			if changed("timezone") {
				req.Timezone = &timezone
			}
			if changed("set") {
				msg, err := parseKV(fields)
				if err != nil {
					return err
				}
				req.Message = &msg
			}

			schedule, err := clientFn().UpdateSchedule(args[0], req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Schedule updated: %s", schedule.ID))
			printSchedule(out, schedule)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New schedule name")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "New cron expression")
	cmd.Flags().IntVar(&interval, "interval", 0, "New interval in seconds")
	cmd.Flags().StringVar(&timezone, "timezone", "", "New timezone")
	cmd.Flags().StringSliceVar(&fields, "set", nil, "Replace the message with KEY=VALUE fields (repeatable)")

	return cmd
}

func newScheduleDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Short:   "Delete a schedule",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteSchedule(args[0]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Schedule deleted: %s", args[0]))
			return nil
		},
	}
}

// newScheduleToggleCmd — enable или disable.
func newScheduleToggleCmd(clientFn func() *Client, outputFn func() *Output, enabled bool) *cobra.Command {
	verb, short := "disable", "Stop a schedule from firing"
	if enabled {
		verb, short = "enable", "Resume a disabled schedule"
	}

	return &cobra.Command{
		Use:   verb + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, err := clientFn().SetScheduleEnabled(args[0], enabled)
			if err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Schedule %sd: %s", verb, args[0]))
			if enabled && schedule.NextDueAt != "" {
				outputFn().Success("Next due at " + schedule.NextDueAt)
			}
			return nil
		},
	}
}
