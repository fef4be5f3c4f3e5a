package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/liliang-cn/askstream/internal/chat"
	"github.com/liliang-cn/askstream/internal/domain"
	"github.com/liliang-cn/askstream/internal/session"
	"github.com/liliang-cn/askstream/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	showReasoning bool

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and stream the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively; Ctrl-C stops an answer, /reset starts over",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}

	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Forget the stored conversation",
		Args:  cobra.NoArgs,
		RunE:  runReset,
	}
)

func init() {
	for _, cmd := range []*cobra.Command{askCmd, chatCmd} {
		cmd.Flags().BoolVar(&showReasoning, "reasoning", true, "Show reasoning steps under answers")
	}
}

// newClient builds a client from configuration. The returned func releases
// the session store. A store that cannot be opened disables continuity.
func newClient() (*chat.Client, func()) {
	store, err := session.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		logger.Warn("Session storage unavailable, continuing without continuity", zap.Error(err))
	}
	closeStore := func() {
		if c, ok := store.(io.Closer); ok {
			_ = c.Close()
		}
	}

	var httpClient *http.Client
	if cfg.Client.Timeout > 0 {
		httpClient = &http.Client{Timeout: cfg.Client.Timeout}
	}

	client := chat.New(chat.Config{
		APIBase:    cfg.Client.APIBase,
		Token:      cfg.Client.Token,
		Mode:       chat.Mode(cfg.Client.Mode),
		Namespace:  cfg.Client.Namespace,
		HTTPClient: httpClient,
	},
		chat.WithLogger(logger),
		chat.WithStore(store),
	)
	return client, closeStore
}

func runAsk(cmd *cobra.Command, args []string) error {
	client, closeStore := newClient()
	defer closeStore()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	renderer := ui.NewRenderer(cmd.OutOrStdout(), showReasoning)
	defer client.Subscribe(renderer.Observe)()

	result, err := client.Send(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	renderer.Finish(result)
	if result.Outcome == chat.OutcomeFailed {
		return result.Err
	}
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	client, closeStore := newClient()
	defer closeStore()

	out := cmd.OutOrStdout()
	renderer := ui.NewRenderer(out, showReasoning)
	defer client.Subscribe(renderer.Observe)()

	// Ctrl-C stops the running answer, or quits when idle
	quit := make(chan struct{})
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			if !client.Stop() {
				close(quit)
				return
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	if id := client.ConversationID(); id != "" {
		fmt.Fprintln(out, ui.Styles.Muted.Render("continuing conversation "+id))
	}

	for {
		fmt.Fprint(out, ui.Styles.Prompt.Render("> "))

		var line string
		select {
		case <-quit:
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/reset":
			client.Reset()
			fmt.Fprintln(out, ui.Styles.Muted.Render("conversation reset"))
			continue
		case "/quit", "/exit":
			return nil
		}

		result, err := client.Send(context.Background(), line)
		if errors.Is(err, domain.ErrEmptyMessage) || errors.Is(err, domain.ErrTurnInFlight) {
			continue
		}
		if err != nil {
			return err
		}
		renderer.Finish(result)
	}
}

func runReset(cmd *cobra.Command, args []string) error {
	client, closeStore := newClient()
	defer closeStore()

	client.Reset()
	fmt.Fprintln(cmd.OutOrStdout(), "conversation reset")
	return nil
}
