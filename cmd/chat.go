package cmd

import (
	"bufio"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/myretriever/retriever/internal/api"
	"github.com/myretriever/retriever/internal/attach"
	"github.com/myretriever/retriever/internal/chat"
	"github.com/myretriever/retriever/internal/db"
	"github.com/myretriever/retriever/internal/debug"
	"github.com/myretriever/retriever/internal/draft"
	"github.com/myretriever/retriever/internal/events"
	"github.com/myretriever/retriever/internal/panel"
	"github.com/myretriever/retriever/internal/session"
	"github.com/myretriever/retriever/internal/sessionlist"
)

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DraftDBPath())
	if err != nil {
		return fmt.Errorf("opening draft database: %w", err)
	}
	defer database.Close()

	ctx := cmd.Context()
	client := api.NewClient(cfg.APIBase, cfg.APIToken)
	bus := events.NewSessionBus()
	defer bus.Shutdown()

	sessions := session.NewService(session.NewPrefs(cfg.DataDir))
	drafts := draft.NewService(draft.NewSQLiteStore(database))

	list := sessionlist.New(ctx, client, bus)
	defer list.Close()
	p := panel.New(ctx, client, bus, sessions, drafts)
	defer p.Close()

	list.SetIdentity(cfg.UserID)
	p.SetIdentity(cfg.UserID)
	debug.Event("chat", "mounted", "user="+cfg.UserID)

	if draftText := p.Input(); draftText != "" {
		fmt.Printf("(임시 저장된 메시지) %s\n", draftText)
	}

	fmt.Println("명령어: /sessions /select <id> /new /rename <id> <제목> /delete <id> /attach <파일> /quit")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	shown := 0

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}

		if strings.HasPrefix(line, "/") {
			runChatCommand(cmd, list, p, line)
			shown = printNewMessages(p, shown)
			continue
		}

		p.SetInput(line)
		if err := p.Send(ctx); err != nil {
			switch err {
			case panel.ErrRateLimited:
				fmt.Println("잠시 후 다시 시도해주세요")
			case panel.ErrNothingToSend, panel.ErrInputTooLong, panel.ErrSendInFlight:
				// Input stays in the panel; nothing to report.
			default:
				fmt.Println(p.ErrMessage())
			}
		}
		shown = printNewMessages(p, shown)
	}

	return scanner.Err()
}

func runChatCommand(cmd *cobra.Command, list *sessionlist.List, p *panel.Panel, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/sessions":
		printSessions(list.Items())

	case "/select":
		if len(fields) < 2 {
			fmt.Println("사용법: /select <id>")
			return
		}
		list.Select(fields[1])

	case "/new":
		p.NewConversation()
		fmt.Println("새 대화를 시작합니다")

	case "/rename":
		if len(fields) < 3 {
			fmt.Println("사용법: /rename <id> <제목>")
			return
		}
		title := strings.Join(fields[2:], " ")
		if err := list.Rename(cmd.Context(), fields[1], title); err != nil {
			fmt.Println(list.ErrMessage())
		}

	case "/delete":
		if len(fields) < 2 {
			fmt.Println("사용법: /delete <id>")
			return
		}
		if err := list.Delete(cmd.Context(), fields[1]); err != nil {
			fmt.Println(list.ErrMessage())
		}

	case "/attach":
		if len(fields) < 2 {
			fmt.Println("사용법: /attach <파일>")
			return
		}
		attachFile(p, fields[1])

	default:
		fmt.Printf("알 수 없는 명령어: %s\n", fields[0])
	}
}

func attachFile(p *panel.Panel, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("파일을 읽을 수 없습니다: %v\n", err)
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("파일을 읽을 수 없습니다: %v\n", err)
		return
	}

	f := attach.File{
		Name:         filepath.Base(path),
		Size:         info.Size(),
		LastModified: info.ModTime().UnixMilli(),
		ContentType:  mime.TypeByExtension(filepath.Ext(path)),
		Data:         data,
	}
	p.Attach([]attach.File{f})

	if notice := p.Notice(); notice != "" {
		fmt.Println(notice)
		return
	}
	fmt.Printf("첨부됨: %s (%d/%d)\n", f.Name, len(p.Staged()), attach.MaxCount)
}

// printNewMessages prints transcript entries past shown and returns the new
// count. A shrunk transcript (session switch) reprints from the top.
func printNewMessages(p *panel.Panel, shown int) int {
	msgs := p.Messages()
	if len(msgs) < shown {
		shown = 0
	}
	for _, m := range msgs[shown:] {
		printMessage(m)
	}
	return len(msgs)
}

func printMessage(m chat.Message) {
	prefix := "나"
	if m.Role == chat.RoleAssistant {
		prefix = "도우미"
	}
	fmt.Printf("[%s] %s\n", prefix, m.Content)

	for _, a := range m.Attachments {
		fmt.Printf("  첨부: %s\n", a.URL)
	}
	for _, match := range m.Matches {
		fmt.Printf("  후보: %s", match.Title)
		if match.Place != "" {
			fmt.Printf(" (%s)", match.Place)
		}
		fmt.Println()
	}
}
