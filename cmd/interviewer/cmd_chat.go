package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/interview"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/session"
)

var (
	chatUser    string
	chatSession string
	chatLocale  string
	chatLang    string
	chatVersion string
	chatResume  bool
	chatTrace   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interview in the terminal",
	Long: `Reads answers from stdin, one per line. Besides answers the prompt accepts:
  /status   progress report
  /reset    delete the session and start over
  /quit     leave (the session stays resumable)`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "local", "User id")
	chatCmd.Flags().StringVar(&chatSession, "session", "", "Continue this session id")
	chatCmd.Flags().BoolVar(&chatResume, "resume", false, "Continue the user's unfinished session if there is one")
	chatCmd.Flags().StringVar(&chatLocale, "locale", os.Getenv("LANG"), "Client locale tag used for language detection")
	chatCmd.Flags().StringVar(&chatLang, "lang", "", "Force the interview language")
	chatCmd.Flags().StringVar(&chatVersion, "prompt-version", "", "Pin a prompt version for a new session")
	chatCmd.Flags().BoolVar(&chatTrace, "trace", false, "Print the controller directive after every answer")
	chatCmd.Flags().BoolVar(&jsonOut, "json", false, "Print raw turn output as JSON")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := openChat(ctx, a.svc)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "session %s (/status, /reset, /quit)\n", id)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		switch text {
		case "/quit", "/exit":
			return nil
		case "/status":
			report, err := a.svc.Status(ctx, id)
			if err != nil {
				fmt.Fprintf(os.Stderr, "status: %v\n", err)
				continue
			}
			fmt.Printf("\n%s\n\n", report)
			continue
		case "/reset":
			if err := a.svc.Reset(ctx, id); err != nil {
				return err
			}
			chatSession, chatResume = "", false
			if id, err = openChat(ctx, a.svc); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "session %s\n", id)
			continue
		}

		out, err := a.svc.Turn(ctx, interview.TurnInput{SessionID: id, Text: text, Locale: chatLocale})
		printTurn(out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			if errors.Is(err, interview.ErrInvalidTurnOrder) {
				return nil
			}
			continue
		}
		if out.Done {
			return nil
		}
	}
	return scanner.Err()
}

// openChat picks the session to talk in and prints its current question.
func openChat(ctx context.Context, svc *interview.Service) (string, error) {
	if chatSession != "" {
		sess, err := svc.Session(ctx, chatSession)
		if err != nil {
			return "", err
		}
		fmt.Printf("\n(resuming at %s, depth %d/4)\n\n", sess.Stage, sess.Depth)
		return sess.ID, nil
	}
	if chatResume {
		sess, err := svc.Active(ctx, chatUser)
		if err == nil {
			fmt.Printf("\n(resuming at %s, depth %d/4)\n\n", sess.Stage, sess.Depth)
			return sess.ID, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return "", err
		}
	}

	out, err := svc.Start(ctx, interview.StartInput{
		UserID:   chatUser,
		Locale:   chatLocale,
		Language: chatLang,
		Version:  chatVersion,
	})
	if err != nil {
		return "", err
	}
	printTurn(out)
	return out.SessionID, nil
}

func printTurn(out interview.TurnOutput) {
	if jsonOut {
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}
	fmt.Printf("\n%s\n\n", out.Response)
	if chatTrace && out.Directive.Kind != "" {
		d := out.Directive
		fmt.Fprintf(os.Stderr, "[%s] kind=%s probe=%s stage=%s depth=%d completeness=%d engagement=%s forced=%v\n",
			d.From, d.Kind, d.Probe, d.Stage, d.Depth, d.Completeness, d.Engagement, d.Forced)
	}
}
