package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflow.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowListCmd(clientFn, outputFn),
		newWorkflowCreateCmd(clientFn, outputFn),
		newWorkflowShowCmd(clientFn, outputFn),
		newWorkflowUpdateCmd(clientFn, outputFn),
		newWorkflowDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func workflowRow(wf *WorkflowResponse) []string {
	return []string{wf.ID, wf.Name, strconv.FormatBool(wf.IsActive), wf.CreatedAt}
}

var workflowHeaders = []string{"ID", "NAME", "ACTIVE", "CREATED"}

func newWorkflowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflows, err := client.ListWorkflows()
			if err != nil {
				return err
			}

			rows := make([][]string, len(workflows))
			for i, wf := range workflows {
				rows[i] = workflowRow(&wf)
			}

			out.Print(workflowHeaders, rows, workflows)
			return nil
		},
	}
}

func newWorkflowCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow from a definition file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read definition file: %w", err)
			}

			wf, err := client.CreateWorkflow(data)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow created: %s", wf.ID))
			out.Print(workflowHeaders, [][]string{workflowRow(wf)}, wf)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to workflow definition (JSON or YAML, required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newWorkflowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show workflow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			wf, err := client.GetWorkflow(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "ACTIVE", "NODES", "EDGES", "CREATED"}
			row := []string{
				wf.ID, wf.Name, strconv.FormatBool(wf.IsActive),
				strconv.Itoa(len(wf.Nodes)), strconv.Itoa(len(wf.Edges)), wf.CreatedAt,
			}
			out.Print(headers, [][]string{row}, wf)
			return nil
		},
	}
}

func newWorkflowUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var active string
	var file string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdateWorkflowRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("active") {
				b, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("invalid value for --active: %s", active)
				}
				req.IsActive = &b
			}
			if cmd.Flags().Changed("file") {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read definition file: %w", err)
				}
				// Definition вкладывается в JSON-тело запроса,
				// поэтому YAML здесь не поддерживается
				if !json.Valid(data) {
					return fmt.Errorf("definition file must be valid JSON")
				}
				req.Definition = data
			}

			wf, err := client.UpdateWorkflow(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Workflow updated")
			out.Print(workflowHeaders, [][]string{workflowRow(wf)}, wf)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New workflow name")
	cmd.Flags().StringVar(&active, "active", "", "Set active status (true/false)")
	cmd.Flags().StringVar(&file, "file", "", "Replace the graph from a definition file")

	return cmd
}

func newWorkflowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteWorkflow(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow deleted: %s", args[0]))
			return nil
		},
	}
}
