package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kokistudios/cardbox/internal/deck"
	"github.com/kokistudios/cardbox/internal/savefile"
	"github.com/kokistudios/cardbox/internal/session"
	"github.com/kokistudios/cardbox/internal/ui"
)

func newCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "new [title]",
		Short:   "Create an empty deck",
		Long:    "Create an empty deck in CARDBOX_HOME/decks named after its title. Without a title the configured default is used.",
		Example: "  cardbox new Spanish\n  cardbox new \"Organic Chemistry\"",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			title := ""
			if len(args) == 1 {
				title = args[0]
			}
			target := deckFlag
			if target == "" {
				target = title
			}
			sess, err := session.Create(s.ResolveDeck(target), title, s.Config, session.WithLogger(ui.Logger))
			if err != nil {
				return err
			}
			ui.Success("Deck created")
			ui.KeyValue("Title:", sess.Snapshot().Title)
			ui.KeyValue("Path: ", sess.Path())
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List decks in CARDBOX_HOME",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			decks, err := s.ListDecks()
			if err != nil {
				return err
			}
			if len(decks) == 0 {
				ui.EmptyState("No decks yet. Use 'cardbox new <title>' to create one.")
				return nil
			}
			var rows [][]string
			for _, d := range decks {
				if d.Err != nil {
					rows = append(rows, []string{ui.Red("unreadable"), "-", d.Path})
					continue
				}
				rows = append(rows, []string{d.Title, fmt.Sprint(d.Cards), d.Path})
			}
			ui.Table([]string{"TITLE", "CARDS", "PATH"}, rows)
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	var all, asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the cards of a deck",
		Long:  "Show the cards that pass the current category and tag filters. Use --all to ignore the filters.",
		Example: `  cardbox show
  cardbox show -d Spanish --all
  cardbox show --json > backup.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := openDeck()
			if err != nil {
				return err
			}
			st := sess.Snapshot()
			if asJSON {
				return savefile.Encode(os.Stdout, savefile.FromState(st))
			}

			counts := st.Counts()
			ui.SectionHeader(st.Title)
			ui.Detail("Showing:", showing(counts))
			fmt.Fprintln(os.Stderr)

			cards := st.Visible()
			if all {
				cards = st.Cards
			}
			if len(cards) == 0 {
				if counts.Total == 0 {
					ui.EmptyState("No cards yet. Use 'cardbox add' to create one.")
				} else {
					ui.EmptyState("No cards match the filters. Use 'cardbox select --all' to show everything.")
				}
				return nil
			}

			var rows [][]string
			for _, c := range cards {
				rows = append(rows, []string{
					shortID(c.ID),
					ui.Category(string(c.Category)),
					c.Front,
					c.Back,
					strings.Join(st.CardTags(c), " "),
				})
			}
			ui.Table([]string{"ID", "CATEGORY", "FRONT", "BACK", "TAGS"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Show every card regardless of the filters")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the deck file contents as JSON")
	return cmd
}

func showing(c deck.Counts) string {
	return ui.Bold(fmt.Sprintf("%d of %d cards", c.Visible, c.Total))
}

func undoPrompt(left time.Duration) string {
	left = max(left.Round(time.Second), 0)
	return fmt.Sprintf("Undo? (%s left)", ui.Yellow(left.String()))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveCardID accepts a full id or a unique prefix as printed by show.
func resolveCardID(st *deck.State, arg string) (string, error) {
	if _, ok := st.Find(arg); ok {
		return arg, nil
	}
	var match string
	for _, c := range st.Cards {
		if strings.HasPrefix(c.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("card id prefix %q is ambiguous", arg)
			}
			match = c.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", deck.ErrCardNotFound, arg)
	}
	return match, nil
}

func parseCategoryFlag(v string) (deck.Category, error) {
	if v == "" {
		return "", nil
	}
	return deck.ParseCategory(v)
}

func addCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "add <front> [back]",
		Short: "Add a card",
		Long:  "Add a card. #hashtags anywhere in the front or back become filter tags.",
		Example: `  cardbox add "hola #greetings" "hello"
  cardbox add -d Chemistry "H2O" "water" --category easy`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCategoryFlag(category)
			if err != nil {
				return err
			}
			_, sess, err := openDeck()
			if err != nil {
				return err
			}
			back := ""
			if len(args) == 2 {
				back = args[1]
			}
			var added deck.Card
			err = sess.Apply(func(st *deck.State) error {
				added, err = st.AddCard(args[0], back, c)
				return err
			})
			if err != nil {
				return err
			}
			if err := saveIfDirty(sess); err != nil {
				return err
			}
			ui.Success("Card added")
			ui.KeyValue("ID:      ", added.ID)
			ui.KeyValue("Category:", ui.Category(string(added.Category)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Hard, Medium or Easy (default: deck.default_category)")
	return cmd
}

// saveIfDirty writes the deck when autosave is off; one-shot commands always
// persist their change.
func saveIfDirty(sess *session.Session) error {
	if !sess.Dirty() {
		return nil
	}
	return sess.Save()
}

func editCmd() *cobra.Command {
	var front, back string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit the text of a card",
		Long:  "Replace the front and/or back of a card. Without --front or --back both sides are prompted for interactively.",
		Example: `  cardbox edit 3f2a --back "bonjour"
  cardbox edit 3f2a`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := openDeck()
			if err != nil {
				return err
			}
			st := sess.Snapshot()
			id, err := resolveCardID(st, args[0])
			if err != nil {
				return err
			}
			card, _ := st.Find(id)

			setFront, setBack := cmd.Flags().Changed("front"), cmd.Flags().Changed("back")
			if !setFront && !setBack {
				var ok bool
				front, ok, err = ui.Prompt("Front", card.Front)
				if err != nil || !ok {
					return err
				}
				back, ok, err = ui.Prompt("Back", card.Back)
				if err != nil || !ok {
					return err
				}
				setFront, setBack = true, true
			}

			err = sess.Apply(func(st *deck.State) error {
				if setFront {
					if err := st.SetFront(id, front); err != nil {
						return err
					}
				}
				if setBack {
					return st.SetBack(id, back)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if err := saveIfDirty(sess); err != nil {
				return err
			}
			ui.Success("Card updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&front, "front", "", "New front text")
	cmd.Flags().StringVar(&back, "back", "", "New back text")
	return cmd
}

func categorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "categorize <id> <Hard|Medium|Easy>",
		Aliases:   []string{"cat"},
		Short:     "Set the difficulty category of a card",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"Hard", "Medium", "Easy"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := deck.ParseCategory(args[1])
			if err != nil {
				return err
			}
			_, sess, err := openDeck()
			if err != nil {
				return err
			}
			id, err := resolveCardID(sess.Snapshot(), args[0])
			if err != nil {
				return err
			}
			if err := sess.Apply(func(st *deck.State) error { return st.SetCategory(id, c) }); err != nil {
				return err
			}
			if err := saveIfDirty(sess); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Card %s is now %s", shortID(id), ui.Category(string(c))))
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a card",
		Long:  "Delete a card. Unless --yes is given, cardbox asks for confirmation and then offers an undo until the undo window (deck.undo_window) runs out.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := openDeck()
			if err != nil {
				return err
			}
			id, err := resolveCardID(sess.Snapshot(), args[0])
			if err != nil {
				return err
			}
			card, _ := sess.Snapshot().Find(id)

			if !yes {
				ok, err := ui.Confirm(fmt.Sprintf("Delete %q?", ui.Cell(card.Front, 40)))
				if err != nil || !ok {
					return err
				}
			}

			var d deck.Deletion
			if err := sess.Apply(func(st *deck.State) error {
				d, _ = st.Delete(id)
				return nil
			}); err != nil {
				return err
			}
			if err := saveIfDirty(sess); err != nil {
				return err
			}
			ui.Success("Card deleted")
			if yes {
				return nil
			}

			undo, err := ui.Confirm(undoPrompt(time.Until(d.Expires)))
			if err != nil || !undo {
				return err
			}
			err = sess.Apply(func(st *deck.State) error {
				_, err := st.Undo(d.NotificationID)
				return err
			})
			if err != nil {
				return fmt.Errorf("could not restore card: %w", err)
			}
			if err := saveIfDirty(sess); err != nil {
				return err
			}
			ui.Success("Card restored")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation and the undo offer")
	return cmd
}

func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List categories and tags with card counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := openDeck()
			if err != nil {
				return err
			}
			counts := sess.Snapshot().Counts()

			mark := func(on bool) string {
				if on {
					return ui.Green("shown")
				}
				return ui.Dim("hidden")
			}

			var rows [][]string
			for _, c := range counts.Categories {
				rows = append(rows, []string{ui.Category(string(c.Category)), fmt.Sprint(c.Count), mark(c.Selected)})
			}
			ui.Table([]string{"CATEGORY", "CARDS", "FILTER"}, rows)
			fmt.Println()

			if len(counts.Tags) == 0 {
				ui.EmptyState("No cards, so no tags.")
				return nil
			}
			rows = rows[:0]
			for _, t := range counts.Tags {
				rows = append(rows, []string{t.Tag, fmt.Sprint(t.Count), mark(t.Selected)})
			}
			ui.Table([]string{"TAG", "CARDS", "FILTER"}, rows)
			return nil
		},
	}
}

func selectCmd() *cobra.Command {
	var categories, tagNames []string
	var all bool
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Choose which categories and tags are shown",
		Long:  "Replace the filter selection. A card is shown when its category is selected and at least one of its tags (or Untagged) is selected. Flags that are not given keep their current value.",
		Example: `  cardbox select --all
  cardbox select --category Hard --category Medium
  cardbox select --tag "#verbs" --tag Untagged`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var parsed []deck.Category
			for _, name := range categories {
				c, err := deck.ParseCategory(name)
				if err != nil {
					return err
				}
				parsed = append(parsed, c)
			}

			_, sess, err := openDeck()
			if err != nil {
				return err
			}
			err = sess.Apply(func(st *deck.State) error {
				if all {
					st.SelectAll()
					return nil
				}
				if cmd.Flags().Changed("category") {
					if err := st.SetCategories(parsed); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("tag") {
					st.SetTags(tagNames)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if err := saveIfDirty(sess); err != nil {
				return err
			}
			counts := sess.Snapshot().Counts()
			ui.Success(fmt.Sprintf("Showing %d of %d cards", counts.Visible, counts.Total))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&categories, "category", nil, "Category to show (repeatable)")
	cmd.Flags().StringArrayVar(&tagNames, "tag", nil, "Tag to show, including Untagged (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Select every category and tag")
	return cmd
}

func renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <title>",
		Short: "Change the box title",
		Long:  "Change the title stored in the deck. The file name does not change; use 'cardbox export' to write a copy under a new name.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := openDeck()
			if err != nil {
				return err
			}
			if err := sess.Apply(func(st *deck.State) error {
				st.SetTitle(args[0])
				return nil
			}); err != nil {
				return err
			}
			if err := saveIfDirty(sess); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Renamed to %q", args[0]))
			return nil
		},
	}
}
