package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kokistudios/cardbox/internal/deck"
	"github.com/kokistudios/cardbox/internal/httpapi"
	cardmcp "github.com/kokistudios/cardbox/internal/mcp"
	"github.com/kokistudios/cardbox/internal/savefile"
	"github.com/kokistudios/cardbox/internal/session"
	"github.com/kokistudios/cardbox/internal/study"
	"github.com/kokistudios/cardbox/internal/ui"
	"github.com/kokistudios/cardbox/internal/xlsx"
)

func studyCmd() *cobra.Command {
	var create bool
	cmd := &cobra.Command{
		Use:   "study",
		Short: "Open a deck in the interactive study view",
		Long:  "Browse, flip, edit, categorize and filter cards in a full-screen terminal view. Press ? inside for all keys.",
		Example: `  cardbox study
  cardbox study -d Spanish
  cardbox study -d ./shared/biology.json --create`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			path := s.ResolveDeck(deckFlag)
			var sess *session.Session
			if create {
				sess, err = session.OpenOrCreate(path, deckFlag, s.Config, session.WithLogger(ui.Logger))
			} else {
				_, sess, err = openDeck()
			}
			if err != nil {
				return err
			}

			err = study.Run(sess, study.Options{
				Width:    s.Config.Display.WordWrap,
				Markdown: s.Config.Display.Markdown,
			})
			if err != nil {
				ui.SanitizeTerminal()
				return err
			}
			if sess.Dirty() {
				if err := sess.Save(); err != nil {
					return err
				}
				ui.Success("Saved " + sess.Path())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "Create the deck if it does not exist")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a deck over a local HTTP API",
		Long:  "Serve the deck as JSON under /api for a browser front-end or scripts. Every change is applied to the deck file. Stop with Ctrl+C.",
		Example: `  cardbox serve
  cardbox serve -d Spanish --addr 127.0.0.1:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, sess, err := openDeck()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = s.Config.Serve.Addr
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ui.Info(fmt.Sprintf("Serving %s on http://%s", sess.Snapshot().Title, addr))
			return httpapi.New(sess, ui.Logger).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: serve.addr)")
	return cmd
}

func mcpServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "mcp-serve",
		Short:  "Run cardbox as an MCP server",
		Long:   "Start cardbox as a Model Context Protocol (MCP) server over stdio so MCP clients can read and edit a deck.",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := openDeck()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cardmcp.NewServer(sess, version).Run(ctx)
		},
	}
}

func importCmd() *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import cards from a spreadsheet or deck file",
		Long: "Append cards from an .xlsx or .csv file (columns ID, Front, Back, Category) or from another deck .json file. " +
			"Rows without an id, or with an id already in the deck, get a new one; unknown categories become Hard.",
		Example: `  cardbox import vocabulary.xlsx
  cardbox import -d Spanish words.csv
  cardbox import other-deck.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := openDeck()
			if err != nil {
				return err
			}
			st := sess.Snapshot()
			taken := make([]string, 0, st.Len())
			for _, c := range st.Cards {
				taken = append(taken, c.ID)
			}

			spin := ui.NewSpinner("Reading " + filepath.Base(args[0]))
			var result *xlsx.ImportResult
			if strings.EqualFold(filepath.Ext(args[0]), savefile.Extension) {
				result, err = importDeckFile(args[0], taken)
			} else {
				result, err = xlsx.Import(args[0], xlsx.ImportOptions{SheetName: sheet, TakenIDs: taken})
			}
			spin.Stop()
			if err != nil {
				return err
			}

			for _, msg := range result.Errors {
				ui.Warning(msg)
			}
			if len(result.Cards) == 0 {
				ui.EmptyState("No cards to import.")
				return nil
			}
			if err := sess.Apply(func(st *deck.State) error { return st.Append(result.Cards...) }); err != nil {
				return err
			}
			if err := saveIfDirty(sess); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Imported %d card(s)", len(result.Cards)))
			ui.Detail("Rows:   ", fmt.Sprint(result.TotalProcessed))
			ui.Detail("Skipped:", fmt.Sprint(result.Skipped))
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read (default: Cards, then the first sheet)")
	return cmd
}

// importDeckFile reads the cards of another deck, renaming ids that clash.
func importDeckFile(path string, taken []string) (*xlsx.ImportResult, error) {
	doc, err := savefile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rows := [][]string{xlsx.Header}
	for _, c := range doc.Cards {
		rows = append(rows, []string{c.ID, c.Front, c.Back, string(c.Category)})
	}
	return xlsx.ImportRows(rows, xlsx.ImportOptions{TakenIDs: taken}), nil
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a deck to a spreadsheet or a deck file",
		Long:  "Write the deck to .xlsx (sheet Cards), .csv, or .json (a copy of the deck file, e.g. under a new name).",
		Example: `  cardbox export cards.xlsx
  cardbox export -d Spanish spanish.csv
  cardbox export ~/Dropbox/spanish.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := openDeck()
			if err != nil {
				return err
			}
			st := sess.Snapshot()
			out := args[0]
			if strings.EqualFold(filepath.Ext(out), savefile.Extension) {
				err = savefile.WriteFile(out, savefile.FromState(st))
			} else {
				err = xlsx.Export(st, out)
			}
			if err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Exported %d card(s)", st.Len()))
			ui.Detail("File:", out)
			return nil
		},
	}
	return cmd
}
