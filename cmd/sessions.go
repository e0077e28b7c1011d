package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/myretriever/retriever/internal/api"
	"github.com/myretriever/retriever/internal/chat"
	"github.com/myretriever/retriever/internal/sessionlist"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List, rename and delete chat sessions",
	}

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsRenameCmd())
	cmd.AddCommand(newSessionsDeleteCmd())

	return cmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your chat sessions, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.UserID == "" {
				fmt.Println("게스트 모드에서는 세션 목록이 없습니다")
				return nil
			}

			client := api.NewClient(cfg.APIBase, cfg.APIToken)
			items, err := client.ListSessions(cmd.Context(), cfg.UserID)
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}
			printSessions(items)
			return nil
		},
	}
}

func newSessionsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a chat session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client := api.NewClient(cfg.APIBase, cfg.APIToken)
			title := args[1]
			for _, extra := range args[2:] {
				title += " " + extra
			}
			if err := client.RenameSession(cmd.Context(), args[0], title); err != nil {
				return fmt.Errorf("renaming session: %w", err)
			}
			fmt.Println("변경되었습니다")
			return nil
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client := api.NewClient(cfg.APIBase, cfg.APIToken)
			if err := client.DeleteSession(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deleting session: %w", err)
			}
			fmt.Println("삭제되었습니다")
			return nil
		},
	}
}

func printSessions(items []chat.SessionItem) {
	if len(items) == 0 {
		fmt.Println("세션이 없습니다")
		return
	}

	now := time.Now()
	for _, item := range items {
		title := item.Title
		if title == "" {
			title = "(제목 없음)"
		}
		touched := item.UpdatedAt
		if touched == 0 {
			touched = item.CreatedAt
		}
		when := ""
		if touched != 0 {
			when = sessionlist.FormatRelative(time.UnixMilli(touched), now)
		}
		fmt.Printf("%s  %s  %s\n", item.ID, title, when)
	}
}
