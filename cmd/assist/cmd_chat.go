package main

import (
	"context"
	"path/filepath"

	"ambuassist/cmd/assist/chat"
	"ambuassist/internal/config"
	"ambuassist/internal/logging"
	"ambuassist/internal/speech"
	"ambuassist/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// runInteractiveChat opens the chat panel and blocks until it is closed.
func runInteractiveChat() error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logging.Initialize(filepath.Dir(path), cfg.LoggingSettings()); err != nil {
		return err
	}
	defer logging.CloseAll()
	logging.Boot("starting assistant for %q against %s", cfg.Scope, cfg.API.BaseURL)

	deps := chat.Deps{
		Config:    cfg,
		Backend:   newClient(cfg),
		Navigator: chat.NewExecNavigator(cfg.UI.WebBaseURL, cfg.UI.OpenCommand),
	}

	if cache, err := store.OpenRosterCache(cfg.Cache.Path); err != nil {
		logging.Get(logging.CategoryStore).Warn("roster cache disabled: %v", err)
	} else {
		defer cache.Close()
		deps.Cache = cache
	}

	rec, syn := speech.Detect(cfg.Speech)
	deps.Speech = speech.NewBridge(rec, syn)

	p := tea.NewProgram(
		chat.InitChat(deps),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher, err := config.NewWatcher(path, func(next *config.Config) {
		applyFlagOverrides(next)
		p.Send(chat.ConfigReloadedMsg{Config: next})
	})
	if err != nil {
		logging.Get(logging.CategoryBoot).Warn("config hot reload disabled: %v", err)
	} else if err := watcher.Start(ctx); err != nil {
		logging.Get(logging.CategoryBoot).Warn("config hot reload disabled: %v", err)
	} else {
		defer watcher.Stop()
	}

	final, err := p.Run()
	if m, ok := final.(chat.Model); ok {
		m.Shutdown()
	}
	return err
}
