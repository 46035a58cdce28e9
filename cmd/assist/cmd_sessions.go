package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ambuassist/internal/assistant"
	"ambuassist/internal/config"
	"ambuassist/internal/store"
	"ambuassist/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// SESSION MANAGEMENT COMMANDS
// =============================================================================

// sessionsCmd lists the conversations of the ambulatorio
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List the saved conversations",
	Long: `List and manage the conversations saved by the assistant service.

When the service is unreachable the last roster seen is read from the
local cache.

Subcommands:
  delete - Delete one conversation`,
	Args: cobra.NoArgs,
	RunE: runSessionsList,
}

// sessionsDeleteCmd deletes one conversation
var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

// historyCmd groups whole-history operations
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the whole chat history",
}

var clearConfirmed bool

// historyClearCmd deletes every conversation of the ambulatorio
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every conversation of the ambulatorio",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetAPITimeout())
	defer cancel()

	cache, cerr := store.OpenRosterCache(cfg.Cache.Path)
	if cerr != nil {
		logger.Warn("roster cache unavailable", zap.Error(cerr))
	} else {
		defer cache.Close()
	}

	out := cmd.OutOrStdout()
	sessions, err := newClient(cfg).ListSessions(ctx)
	switch {
	case err == nil:
		if cache != nil {
			if err := cache.ReplaceRoster(cfg.Scope, sessions); err != nil {
				logger.Warn("cannot cache roster", zap.Error(err))
			}
		}
	case assistant.IsConnectivity(err) && cache != nil:
		logger.Warn("service unreachable, reading cached roster", zap.Error(err))
		sessions, err = cache.Roster(cfg.Scope)
		if err != nil {
			return fmt.Errorf("failed to read cached roster: %w", err)
		}
		fmt.Fprintln(out, "⚠️  Servizio non raggiungibile: elenco dalla cache")
	default:
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	printRoster(cmd, cfg, sessions)
	return nil
}

func printRoster(cmd *cobra.Command, cfg *config.Config, sessions []types.SessionSummary) {
	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "Nessuna chat precedente.")
		return
	}

	fmt.Fprintf(out, "📁 Chat di %s\n", cfg.Scope)
	fmt.Fprintln(out, strings.Repeat("─", 60))
	for i, s := range sessions {
		date := "--/--/---- --:--"
		if t := assistant.ParseTimestamp(s.LastTimestamp); !t.IsZero() {
			date = t.Local().Format("02/01/2006 15:04")
		}
		preview := s.LastMessage
		if r := []rune(preview); len(r) > 40 {
			preview = string(r[:39]) + "…"
		}
		fmt.Fprintf(out, "  %2d. %s  %s  %s\n", i+1, date, s.ID, preview)
	}
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintf(out, "Totale: %d chat\n", len(sessions))
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetAPITimeout())
	defer cancel()

	if err := newClient(cfg).DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	logger.Info("session deleted", zap.String("session_id", id), zap.String("scope", cfg.Scope))

	if cache, err := store.OpenRosterCache(cfg.Cache.Path); err == nil {
		if err := cache.Remove(cfg.Scope, id); err != nil {
			logger.Warn("cannot uncache session", zap.String("session_id", id), zap.Error(err))
		}
		cache.Close()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Chat %s eliminata.\n", id)
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	if !clearConfirmed {
		return errors.New("this deletes every conversation of the ambulatorio; rerun with --yes to confirm")
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetAPITimeout())
	defer cancel()

	if err := newClient(cfg).ClearHistory(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	logger.Info("history cleared", zap.String("scope", cfg.Scope))

	if cache, err := store.OpenRosterCache(cfg.Cache.Path); err == nil {
		if err := cache.Clear(cfg.Scope); err != nil {
			logger.Warn("cannot clear roster cache", zap.Error(err))
		}
		cache.Close()
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✅ Cronologia eliminata.")
	return nil
}

func init() {
	historyClearCmd.Flags().BoolVarP(&clearConfirmed, "yes", "y", false, "Confirm the deletion")

	sessionsCmd.AddCommand(sessionsDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
}
