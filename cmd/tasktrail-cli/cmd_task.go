package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/persistorai/tasktrail/client"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(taskCreateCmd())
	cmd.AddCommand(taskGetCmd())
	cmd.AddCommand(taskUpdateCmd())
	cmd.AddCommand(taskDeleteCmd())
	cmd.AddCommand(taskListCmd())
	return cmd
}

// parseID validates a positional task id.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

func taskIDArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	_, err := parseID(args[0])
	return err
}

func taskCreateCmd() *cobra.Command {
	var description, priority string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			req := &client.CreateTaskRequest{Title: args[0], Priority: priority}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			task, err := apiClient.Tasks.Create(context.Background(), req)
			if err != nil {
				fatal("create task", err)
			}
			output(task, strconv.FormatInt(task.ID, 10))
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringVar(&priority, "priority", "", "Low, Medium or High (default Medium)")
	return cmd
}

func taskGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a task by ID",
		Args:  taskIDArg,
		Run: func(cmd *cobra.Command, args []string) {
			id, _ := parseID(args[0])
			task, err := apiClient.Tasks.Get(context.Background(), id)
			if err != nil {
				fatal("get task", err)
			}
			output(task, strconv.FormatInt(task.ID, 10))
		},
	}
}

// buildUpdate turns the flags that were explicitly set into a patch.
func buildUpdate(cmd *cobra.Command, title, description, priority string, completed bool) (*client.UpdateTaskRequest, error) {
	req := &client.UpdateTaskRequest{}
	flags := cmd.Flags()

	if flags.Changed("title") {
		req.Title = &title
	}
	if flags.Changed("description") {
		req.Description = &description
	}
	if flags.Changed("priority") {
		req.Priority = &priority
	}
	if flags.Changed("completed") {
		req.Completed = &completed
	}

	if clearDesc, _ := flags.GetBool("clear-description"); clearDesc {
		if req.Description != nil {
			return nil, fmt.Errorf("--description and --clear-description are mutually exclusive")
		}
		req.ClearDescription = true
	}

	if req.Title == nil && req.Description == nil && req.Priority == nil && req.Completed == nil && !req.ClearDescription {
		return nil, fmt.Errorf("nothing to update: set at least one of --title, --description, --clear-description, --priority, --completed")
	}

	return req, nil
}

func taskUpdateCmd() *cobra.Command {
	var title, description, priority string
	var completed bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task; only the given flags change",
		Args:  taskIDArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID(args[0])
			req, err := buildUpdate(cmd, title, description, priority, completed)
			if err != nil {
				return err
			}
			task, err := apiClient.Tasks.Update(context.Background(), id, req)
			if err != nil {
				fatal("update task", err)
			}
			output(task, strconv.FormatInt(task.ID, 10))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().Bool("clear-description", false, "Remove the description")
	cmd.Flags().StringVar(&priority, "priority", "", "Low, Medium or High")
	cmd.Flags().BoolVar(&completed, "completed", false, "Mark completed (use --completed=false to reopen)")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  taskIDArg,
		Run: func(cmd *cobra.Command, args []string) {
			id, _ := parseID(args[0])
			if err := apiClient.Tasks.Delete(context.Background(), id); err != nil {
				fatal("delete task", err)
			}
			fmt.Println("deleted")
		},
	}
}

func taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your tasks",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			tasks, err := apiClient.Tasks.List(context.Background())
			if err != nil {
				fatal("list tasks", err)
			}
			switch flagFmt {
			case "table":
				formatTable(taskHeaders, taskRows(tasks))
			case "quiet":
				for _, t := range tasks {
					fmt.Println(t.ID)
				}
			default:
				output(tasks, "")
			}
		},
	}
}
