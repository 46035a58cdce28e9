package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ambuassist/cmd/assist/chat"
	"ambuassist/internal/extraction"
	"ambuassist/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// ONE-SHOT COMMANDS
// =============================================================================

var (
	askSession      string
	extractCategory string
	extractConfirm  bool
)

// askCmd sends one message to the assistant
var askCmd = &cobra.Command{
	Use:   "ask <messaggio...>",
	Short: "Send one message to the assistant",
	Long: `Sends a single chat turn and prints the reply.

Example:
  assist ask "Quanti PICC ho impiantato questo mese?"
  assist ask --session 3f2a... "e a novembre?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// extractCmd reads patient names from a photo
var extractCmd = &cobra.Command{
	Use:   "extract <immagine>",
	Short: "Read patient names from a photo",
	Long: `Uploads an image (a printed list, a whiteboard) and prints the
patients found. With --confirm they are created in one batch.

Example:
  assist extract lista.jpg --category MED --confirm`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetAPITimeout())
	defer cancel()

	message := strings.Join(args, " ")
	logger.Debug("sending chat turn", zap.String("message", message), zap.String("session_id", askSession))

	client := newClient(cfg)
	resp, err := client.Chat(ctx, message, askSession)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, resp.Response)
	fmt.Fprintf(out, "\nSessione: %s\n", resp.SessionID)

	a := resp.Action
	if a == nil {
		return nil
	}
	if a.Patient != nil {
		fmt.Fprintf(out, "Paziente: %s (%s)\n", a.Patient.DisplayName(), a.Patient.Category.Label())
	}
	if a.NavigateTo != "" {
		fmt.Fprintf(out, "Apri: %s\n", chat.NewExecNavigator(cfg.UI.WebBaseURL, "").URL(a.NavigateTo))
	}
	if a.HasDocument() {
		return saveDocument(ctx, cmd, client, cfg.UI.DownloadDir, a.DocumentURL, a.DocumentEndpoint, a.Filename)
	}
	return nil
}

type downloader interface {
	Download(ctx context.Context, url, endpoint string) ([]byte, error)
}

func saveDocument(ctx context.Context, cmd *cobra.Command, d downloader, dir, url, endpoint, name string) error {
	if dir == "" {
		dir = "."
	}
	if name == "" {
		name = filepath.Base(url + endpoint)
	}
	data, err := d.Download(ctx, url, endpoint)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", name, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	dest := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", dest, err)
	}
	logger.Info("document saved", zap.String("path", dest), zap.Int("bytes", len(data)))
	fmt.Fprintf(cmd.OutOrStdout(), "📄 Documento salvato in %s\n", dest)
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	category, ok := types.ParseCategory(extractCategory)
	if !ok {
		return fmt.Errorf("unknown category %q (PICC, MED, PICC_MED)", extractCategory)
	}
	img, err := extraction.LoadImage(args[0])
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetAPITimeout())
	defer cancel()

	client := newClient(cfg)
	res, err := client.Extract(ctx, img, category)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if res == nil || len(res.Patients) == 0 {
		fmt.Fprintln(out, extraction.EmptyResultText)
		return nil
	}

	var pending extraction.Pending
	pending.Select(img)
	token, _ := pending.Begin(category)
	if _, err := pending.Resolve(token, res.Patients); err != nil {
		return err
	}
	fmt.Fprintln(out, extraction.ConfirmationPrompt(pending.Entities, pending.Category))
	if !extractConfirm {
		return nil
	}

	batch, err := pending.Take()
	if err != nil {
		return err
	}
	result, err := client.BatchCreate(ctx, batch.Patients, batch.Category)
	if err != nil {
		return fmt.Errorf("batch create failed: %w", err)
	}
	logger.Info("batch create", zap.Int("requested", len(batch.Patients)), zap.Int("created", int(result.Created)), zap.Int("failed", int(result.Errors)))
	fmt.Fprintln(out, extraction.BatchResultText(int(result.Created), int(result.Errors)))
	return nil
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "Continue an existing conversation")
	extractCmd.Flags().StringVar(&extractCategory, "category", string(types.DefaultCategory), "Category of the extracted patients")
	extractCmd.Flags().BoolVar(&extractConfirm, "confirm", false, "Create the extracted patients")
}
