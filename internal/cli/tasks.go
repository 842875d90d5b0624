package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/spf13/cobra"
)

func newListCommand(flags *globalFlags) *cobra.Command {
	var (
		search   string
		status   string
		priority string
		tag      string
		sortBy   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the filtered and sorted task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			filter := model.DefaultFilter()
			filter.Search = search
			if status != "" {
				filter.Status = model.Status(status)
			}
			if priority != "" {
				filter.Priority = model.Priority(priority)
			}
			if tag != "" {
				filter.Tag = tag
			}
			return printTasks(cmd.OutOrStdout(), a.engine.VisibleTasks(filter, model.SortCriterion(sortBy)))
		},
	}

	cmd.Flags().StringVarP(&search, "search", "q", "", "match title or description")
	cmd.Flags().StringVar(&status, "status", "", "pendente, concluida or todas")
	cmd.Flags().StringVar(&priority, "priority", "", "baixa, media, alta or todas")
	cmd.Flags().StringVar(&tag, "tag", "", "only tasks carrying this tag")
	cmd.Flags().StringVar(&sortBy, "sort", string(model.SortNewest), "criacao-recente, criacao-antiga, prioridade-alta or vencimento-proximo")
	return cmd
}

func printTasks(w io.Writer, tasks []model.Task) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tDUE\tTITLE\tTAGS\tSUBTASKS")
	for _, task := range tasks {
		due := task.DueDate
		if due == "" {
			due = "-"
		}
		done := 0
		for _, subtask := range task.Subtasks {
			if subtask.Status == model.StatusDone {
				done++
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d/%d\n",
			task.ID, task.Status, task.Priority, due, task.Title, strings.Join(task.Tags, ","), done, len(task.Subtasks))
	}
	return tw.Flush()
}

func newAddCommand(flags *globalFlags) *cobra.Command {
	var input model.NewTask
	var priority string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		Example: `  lazytodo add --title "Read" --description "Chapter 3" --tag Estudo --priority alta
  lazytodo add -t "Taxes" -d "File the return" --due 2026-04-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Priority = model.Priority(priority)
			if err := input.Validate(); err != nil {
				return err
			}

			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			task, err := a.engine.AddTask(input)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), task.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input.Title, "title", "t", "", "task title")
	cmd.Flags().StringVarP(&input.Description, "description", "d", "", "task description")
	cmd.Flags().StringSliceVar(&input.Tags, "tag", nil, "tag to attach, repeatable")
	cmd.Flags().StringVarP(&priority, "priority", "p", string(model.PriorityMedium), "baixa, media or alta")
	cmd.Flags().StringVar(&input.DueDate, "due", "", "due date, YYYY-MM-DD")
	return cmd
}

func newToggleCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task between pending and done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, ok := a.engine.Task(args[0]); !ok {
				return fmt.Errorf("task %s not found", args[0])
			}
			a.engine.ToggleTaskStatus(args[0])
			task, _ := a.engine.Task(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", task.ID, task.Status)
			return nil
		},
	}
}

func newRemoveCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, ok := a.engine.Task(args[0]); !ok {
				return fmt.Errorf("task %s not found", args[0])
			}
			a.engine.RemoveTask(args[0])
			return nil
		},
	}
}
