package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/burnroom/internal/config"
	"github.com/vovakirdan/burnroom/internal/feed"
	"github.com/vovakirdan/burnroom/internal/lifecycle"
	"github.com/vovakirdan/burnroom/internal/realtime"
	"github.com/vovakirdan/burnroom/internal/room"
	"github.com/vovakirdan/burnroom/internal/roomapi"
	"github.com/vovakirdan/burnroom/internal/utils"
	"github.com/vovakirdan/burnroom/internal/view"
)

const (
	cmdQuit    = "/quit"
	cmdDestroy = "/destroy"
	cmdRetry   = "/retry"
)

func newCreateCmd(flags *rootFlags) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new room and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := flags.load()
			if err != nil {
				return err
			}
			if server != "" {
				cfg.Client.ServerURL = server
			}

			api, err := roomapi.New(cfg.Client.ServerURL, cfg.Client.RequestTimeout)
			if err != nil {
				return err
			}
			roomID, err := api.CreateRoom(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, roomID)
			fmt.Fprintf(out, "join with: burnroom join %s\n", roomID)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "server URL override")
	return cmd
}

func newJoinCmd(flags *rootFlags) *cobra.Command {
	var server, username string

	cmd := &cobra.Command{
		Use:   "join <room-id>",
		Short: "Join a room and chat until it self-destructs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			if server != "" {
				cfg.Client.ServerURL = server
			}
			if username != "" {
				cfg.Client.Username = username
			}
			if cfg.Client.Username == "" {
				cfg.Client.Username = utils.DefaultUsername()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return join(ctx, cfg, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), logger)
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "server URL override")
	cmd.Flags().StringVarP(&username, "username", "u", "", "name shown to other participants")
	return cmd
}

// join runs one room view until the room ends, the user quits or ctx is done.
func join(ctx context.Context, cfg config.Config, roomID string, in io.Reader, out io.Writer, logger *zerolog.Logger) error {
	api, err := roomapi.New(cfg.Client.ServerURL, cfg.Client.RequestTimeout)
	if err != nil {
		return err
	}
	transport, err := realtime.NewWSTransport(cfg.Client.ServerURL, logger)
	if err != nil {
		return err
	}

	term := view.NewTerminal(out)
	ctrl := lifecycle.New(roomID, cfg.Client.Username, cfg.Client.ArmDelay, lifecycle.Deps{
		API:        api,
		Feed:       feed.NewClient(api, logger),
		Subscriber: realtime.NewSubscriber(transport, logger),
		View:       term,
		Logger:     logger,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		reason room.EndReason
		err    error
	}
	done := make(chan result, 1)
	go func() {
		reason, err := ctrl.Run(ctx)
		logger.Debug().Str("room_id", roomID).Str("reason", reason.String()).Err(err).Msg("room view closed")
		done <- result{reason, err}
	}()

	lines := make(chan string)
	go scanLines(ctx, in, lines)

	term.Notice(fmt.Sprintf("joined as %s. %s destroys the room, %s leaves.", cfg.Client.Username, cmdDestroy, cmdQuit))
	draft := feed.NewDraft("")
	for {
		select {
		case res := <-done:
			return finish(res.err, term)
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == cmdQuit {
				cancel()
				res := <-done
				return finish(res.err, term)
			}
			handleLine(ctx, ctrl, draft, term, line)
		}
	}
}

func handleLine(ctx context.Context, ctrl *lifecycle.Controller, draft *feed.Draft, term *view.Terminal, line string) {
	switch strings.TrimSpace(line) {
	case cmdDestroy:
		if err := ctrl.Destroy(ctx); err != nil && !errors.Is(err, room.ErrRoomGone) {
			term.Notice("destroy failed, try again")
		}
		return
	case cmdRetry:
		// resend the kept draft
	default:
		draft.Set(line)
	}

	err := ctrl.Send(ctx, draft)
	switch {
	case err == nil, errors.Is(err, room.ErrEmptyMessage):
	case errors.Is(err, room.ErrRoomGone):
		term.Notice("room is not active")
	default:
		term.Notice(fmt.Sprintf("message not sent, type %s to resend", cmdRetry))
	}
}

// finish maps the end of Run to the command result. The terminal has
// already printed why the room ended.
func finish(err error, term *view.Terminal) error {
	if errors.Is(err, context.Canceled) {
		term.Notice(view.EndedMessage(room.ReasonNone))
		return nil
	}
	return err
}

func scanLines(ctx context.Context, in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}
