package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"kabiseo/cmd/kabiseo/chat"
	"kabiseo/internal/identity"
	"kabiseo/internal/logging"
	"kabiseo/internal/session"
	"kabiseo/internal/transport"
)

// chatCmd opens the conversation for the stored identity
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the chat for the logged-in reviewer",
	Long: `Connects to the chat server, replays the conversation history for the
logged-in reviewer and opens the chat screen.

The chat ends on its own when 'kabiseo logout' or 'kabiseo login' changes
the stored identity from another terminal.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	store := identity.NewStore(configDir())
	id, err := store.Load()
	if errors.Is(err, identity.ErrNoIdentity) {
		return fmt.Errorf("not logged in: run 'kabiseo login --name <이름> --phone <연락처>' first")
	}
	if err != nil {
		return fmt.Errorf("failed to load identity: %w", err)
	}

	logging.Boot("starting chat for %s (server %s)", id.Name, cfg.Server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := identity.NewWatcher(store, id)
	if err != nil {
		return fmt.Errorf("failed to watch identity: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		// The chat still works; it just won't notice a logout elsewhere.
		logging.BootError("identity watcher unavailable: %v", err)
		watcher.Stop()
		watcher = nil
	}

	client := transport.New(transportConfig(), id, logging.Get(logging.CategoryTransport).Zap())

	var w chat.IdentityWatcher
	if watcher != nil {
		w = watcher
	}
	m := chat.New(chatConfig(id), client, w)

	reason, err := chat.Run(m)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	if reason != "" {
		fmt.Fprintln(cmd.OutOrStdout(), reason)
	}
	return nil
}

func transportConfig() transport.Config {
	return transport.Config{
		URL:             cfg.Server.URL,
		Origin:          cfg.Server.Origin,
		DialTimeout:     cfg.GetDialTimeout(),
		InitialInterval: cfg.GetInitialInterval(),
		MaxInterval:     cfg.GetMaxInterval(),
		Multiplier:      cfg.Reconnect.Multiplier,
	}
}

func chatConfig(id session.Identity) chat.Config {
	return chat.Config{
		Identity:  id,
		BotName:   cfg.UI.BotName,
		Theme:     cfg.UI.Theme,
		MaxHeight: cfg.Composer.MaxHeight,
		CharLimit: cfg.Composer.CharLimit,
		QuickMenu: cfg.QuickMenu.Session(),
	}
}
