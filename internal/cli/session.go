package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewSessionCmd создаёт группу команд для управления сессиями.
func NewSessionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage execution sessions",
	}

	cmd.AddCommand(
		newSessionListCmd(clientFn, outputFn),
		newSessionStartCmd(clientFn, outputFn),
		newSessionShowCmd(clientFn, outputFn),
		newSessionCancelCmd(clientFn, outputFn),
		newSessionRecordsCmd(clientFn, outputFn),
	)

	return cmd
}

var sessionHeaders = []string{"ID", "WORKFLOW_ID", "STATUS", "CREATED"}

func sessionRow(s *SessionResponse) []string {
	return []string{s.ID, s.WorkflowID, s.Status, s.CreatedAt}
}

func newSessionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var workflowID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			sessions, err := client.ListSessions(ListSessionsOpts{
				WorkflowID: workflowID,
				Status:     status,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(sessions))
			for i, s := range sessions {
				rows[i] = sessionRow(&s)
			}

			out.Print(sessionHeaders, rows, sessions)
			return nil
		},
	}

	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "Filter by workflow ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, running, completed, failed, cancelled)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newSessionStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var inputs []string
	var inputFile string

	cmd := &cobra.Command{
		Use:   "start WORKFLOW_ID",
		Short: "Start a new session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := CreateSessionRequest{}

			if inputFile != "" {
				data, err := os.ReadFile(inputFile)
				if err != nil {
					return fmt.Errorf("failed to read input file: %w", err)
				}
				if err := json.Unmarshal(data, &req.Input); err != nil {
					return fmt.Errorf("input file is not a valid JSON object: %w", err)
				}
			}

			if len(inputs) > 0 {
				if req.Input == nil {
					req.Input = make(map[string]any)
				}
				for _, kv := range inputs {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid input format %q, expected KEY=VALUE", kv)
					}
					req.Input[parts[0]] = parts[1]
				}
			}

			session, err := client.CreateSession(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Session started: %s", session.ID))
			out.Print(sessionHeaders, [][]string{sessionRow(session)}, session)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Input values as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&inputFile, "input-file", "", "Path to JSON file with session input")

	return cmd
}

func newSessionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show session details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			session, err := client.GetSession(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ID", "WORKFLOW_ID", "STATUS", "ERROR", "STARTED", "COMPLETED"}
			row := []string{
				session.ID, session.WorkflowID, session.Status,
				session.Error, session.StartedAt, session.CompletedAt,
			}
			out.Print(headers, [][]string{row}, session)
			return nil
		},
	}
}

func newSessionCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Request session cancellation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			session, err := client.CancelSession(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Session cancelled: %s", session.ID))
			out.Print(sessionHeaders, [][]string{sessionRow(session)}, session)
			return nil
		},
	}
}

func newSessionRecordsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "records SESSION_ID",
		Short: "List node execution records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			records, err := client.ListRecords(args[0])
			if err != nil {
				return err
			}

			headers := []string{"NODE_ID", "TYPE", "STATUS", "DURATION_MS", "ERROR"}
			rows := make([][]string, len(records))
			for i, r := range records {
				rows[i] = []string{
					r.NodeID, r.NodeType, r.Status,
					fmt.Sprintf("%d", r.DurationMs), r.Error,
				}
			}

			out.Print(headers, rows, records)
			return nil
		},
	}
}
