package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/maktab-chat/backend/internal/analysis/intent"
	"github.com/zhouzirui/maktab-chat/backend/internal/model/chat"
	"github.com/zhouzirui/maktab-chat/backend/internal/model/participant"
	"github.com/zhouzirui/maktab-chat/backend/internal/obs"
	chatService "github.com/zhouzirui/maktab-chat/backend/internal/service/chat"
	"github.com/zhouzirui/maktab-chat/backend/internal/service/responder"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type simOptions struct {
	delay   time.Duration
	timeout time.Duration
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &simOptions{}
	cmd := &cobra.Command{
		Use:           "widgetsim",
		Short:         "Drive the support chat core in-process",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().DurationVar(&opts.delay, "delay", 50*time.Millisecond, "auto-responder delay")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "how long to wait for auto-responses")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log core activity to stderr")

	cmd.AddCommand(newAskCmd(opts), newDemoCmd(opts), newInboxCmd(opts))
	return cmd
}

func newAskCmd(opts *simOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <text>",
		Short: "Send one end-user message and print the auto-responder answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.newService(cmd.Context())
			if err != nil {
				return err
			}
			user, _ := cmd.Flags().GetString("user")

			ctrl, err := svc.CreateSession(cmd.Context(), chat.Identity{UserID: user, Role: "student"})
			if err != nil {
				return err
			}
			if err := ctrl.Open(); err != nil {
				return err
			}
			if _, err := ctrl.Submit(strings.Join(args, " ")); err != nil {
				return err
			}
			if err := opts.waitIdle(svc, user); err != nil {
				return err
			}
			return printThread(cmd.OutOrStdout(), ctrl)
		},
	}
	cmd.Flags().String("user", "u1", "participant id of the end user")
	return cmd
}

func newDemoCmd(opts *simOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a student question followed by an admin threaded reply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			svc, err := opts.newService(ctx)
			if err != nil {
				return err
			}

			student, err := svc.CreateSession(ctx, chat.Identity{UserID: "u1", Role: "student"})
			if err != nil {
				return err
			}
			if err := student.Open(); err != nil {
				return err
			}
			question, err := student.AskQuickQuestion(1)
			if err != nil {
				return err
			}
			if err := opts.waitIdle(svc, "u1"); err != nil {
				return err
			}
			fmt.Fprintln(out, "== student view")
			if err := printThread(out, student); err != nil {
				return err
			}

			admin, err := svc.CreateSession(ctx, chat.Identity{UserID: "admin1", Role: chat.RoleAdmin})
			if err != nil {
				return err
			}
			steps := []func() error{
				admin.Open,
				admin.ToggleMode,
				func() error { return admin.Focus("u1") },
				func() error { return admin.BeginReply(question.ID) },
			}
			for _, step := range steps {
				if err := step(); err != nil {
					return err
				}
			}
			if _, err := admin.SendReply("Sizning o'rtacha bahoyingiz 4.5"); err != nil {
				return err
			}

			fmt.Fprintln(out, "\n== admin inbox")
			if err := printInbox(out, admin); err != nil {
				return err
			}
			fmt.Fprintln(out, "\n== admin thread")
			if err := printThread(out, admin); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nstudent badge: %d\n", student.Badge())
			return nil
		},
	}
}

func newInboxCmd(opts *simOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "Have every seeded participant ask a question and print the admin inbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := opts.newService(ctx)
			if err != nil {
				return err
			}

			questions := svc.Catalog().QuickQuestions
			for i, p := range participant.Seed() {
				ctrl, err := svc.CreateSession(ctx, chat.Identity{UserID: p.ID, Role: p.Role})
				if err != nil {
					return err
				}
				if _, err := ctrl.AskQuickQuestion(i % len(questions)); err != nil {
					return err
				}
				if err := opts.waitIdle(svc, p.ID); err != nil {
					return err
				}
			}

			admin, err := svc.CreateSession(ctx, chat.Identity{UserID: "admin1", Role: chat.RoleAdmin})
			if err != nil {
				return err
			}
			if err := admin.Open(); err != nil {
				return err
			}
			if err := admin.ToggleMode(); err != nil {
				return err
			}
			return printInbox(cmd.OutOrStdout(), admin)
		},
	}
}

func (o *simOptions) newService(ctx context.Context) (*chatService.Service, error) {
	logger := obs.Discard()
	if o.verbose {
		logger = obs.NewLogger(true, "debug")
	}
	responderSvc, err := responder.NewService(ctx, intent.DefaultCatalog(), logger)
	if err != nil {
		return nil, err
	}
	return chatService.NewService(responderSvc, participant.NewMemoryStore(participant.Seed()), chatService.Options{
		ResponseDelay: o.delay,
		Catalog:       responderSvc.Catalog(),
		Logger:        logger,
	}), nil
}

func (o *simOptions) waitIdle(svc *chatService.Service, participantID string) error {
	deadline := time.Now().Add(o.timeout)
	for svc.AutoResponsePending(participantID) {
		if time.Now().After(deadline) {
			return errors.New("timed out waiting for the auto-responder")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func printThread(out io.Writer, ctrl *chatService.Controller) error {
	thread, err := ctrl.Thread()
	if err != nil {
		return err
	}
	for _, msg := range thread {
		if msg.ReplyPreview != "" {
			fmt.Fprintf(out, "  | %s\n", msg.ReplyPreview)
		}
		fmt.Fprintf(out, "[%s] %s:\n", msg.CreatedAt.Format("15:04:05"), senderLabel(msg.Sender))
		for _, line := range msg.Lines {
			fmt.Fprintf(out, "    %s\n", line)
		}
	}
	return nil
}

func printInbox(out io.Writer, ctrl *chatService.Controller) error {
	conversations, err := ctrl.Inbox(true)
	if err != nil {
		return err
	}
	for _, conv := range conversations {
		flag := " "
		if conv.HasUnreplied {
			flag = "*"
		}
		fmt.Fprintf(out, "%s %s %-18s %s, %s unread, %s\n",
			flag,
			conv.AvatarGlyph,
			conv.DisplayName,
			humanize.Comma(int64(conv.MessageCount))+" msgs",
			humanize.Comma(int64(conv.UnreadCount)),
			humanize.Time(conv.LastActivity),
		)
		if conv.LastMessagePreview != "" {
			fmt.Fprintf(out, "      %s\n", conv.LastMessagePreview)
		}
	}
	fmt.Fprintf(out, "%d awaiting a reply, badge %d\n", ctrl.UnrepliedCount(), ctrl.Badge())
	return nil
}

func senderLabel(s chat.Sender) string {
	switch s {
	case chat.SenderEndUser:
		return "user"
	case chat.SenderAutoResponder:
		return "support"
	default:
		return string(s)
	}
}
