package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kokistudios/cardbox/internal/deck"
	"github.com/kokistudios/cardbox/internal/session"
	"github.com/kokistudios/cardbox/internal/ui"
)

// Server wraps the MCP server around an open deck.
type Server struct {
	sess   *session.Session
	server *mcp.Server
}

// NewServer creates a new cardbox MCP server.
func NewServer(sess *session.Session, version string) *Server {
	s := &Server{sess: sess}

	impl := &mcp.Implementation{
		Name:    "cardbox",
		Version: version,
	}

	s.server = mcp.NewServer(impl, nil)
	s.registerTools()

	return s
}

// Run starts the MCP server on stdio.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "cardbox_list",
		Description: "List the cards of the open card box. By default only cards passing the current " +
			"category and tag filters are returned; set all=true for every card. Each card carries its " +
			"hashtags and whether it is visible.",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cardbox_add",
		Description: "Add a card with front and back text. Hashtags in either side (e.g. #spanish) become filter tags. Category is Hard, Medium or Easy and defaults to the configured default.",
	}, s.handleAdd)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cardbox_update",
		Description: "Change the front, back or category of a card by ID. Omitted fields stay as they are.",
	}, s.handleUpdate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "cardbox_delete",
		Description: "Delete a card by ID. Returns a notification ID that cardbox_undo accepts until it " +
			"expires (a few seconds). Deleting an unknown ID does nothing.",
	}, s.handleDelete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cardbox_undo",
		Description: "Restore a card deleted by cardbox_delete, at its old position, while the notification has not expired.",
	}, s.handleUndo)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cardbox_tags",
		Description: "List the tag groups of the box with card counts and whether each is selected in the filter. Cards without hashtags are grouped under Untagged.",
	}, s.handleTags)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "cardbox_select",
		Description: "Replace the filter selection. A card is visible when its category is selected and at " +
			"least one of its tags (or Untagged) is selected. Omitted lists keep their current value.",
	}, s.handleSelect)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cardbox_select_all",
		Description: "Select every category and every tag so all cards are visible.",
	}, s.handleSelectAll)
}

// apply mutates the deck and writes it, whether or not autosave is on.
func (s *Server) apply(fn func(*deck.State) error) error {
	return s.sess.ApplySave(fn)
}

// CardView is a card as returned to agents.
type CardView struct {
	ID       string   `json:"id"`
	Front    string   `json:"front"`
	Back     string   `json:"back"`
	Category string   `json:"category"`
	Tags     []string `json:"tags,omitempty"`
	Visible  bool     `json:"visible"`
}

func viewOf(st *deck.State, c deck.Card) CardView {
	return CardView{
		ID:       c.ID,
		Front:    c.Front,
		Back:     c.Back,
		Category: string(c.Category),
		Tags:     st.CardTags(c),
		Visible:  st.IsVisible(c),
	}
}

// ListArgs defines the input for cardbox_list.
type ListArgs struct {
	All bool `json:"all,omitempty" jsonschema:"Return every card instead of only the visible ones (default: false)"`
}

// ListResult is the output of cardbox_list.
type ListResult struct {
	Title   string     `json:"title"`
	Total   int        `json:"total"`
	Visible int        `json:"visible"`
	Cards   []CardView `json:"cards"`
	Message string     `json:"message,omitempty"`
}

func (s *Server) handleList(ctx context.Context, req *mcp.CallToolRequest, args ListArgs) (*mcp.CallToolResult, any, error) {
	st := s.sess.Snapshot()
	counts := st.Counts()
	out := ListResult{Title: st.Title, Total: counts.Total, Visible: counts.Visible, Cards: []CardView{}}

	cards := st.Visible()
	if args.All {
		cards = st.Cards
	}
	for _, c := range cards {
		out.Cards = append(out.Cards, viewOf(st, c))
	}

	switch {
	case counts.Total == 0:
		out.Message = "The box is empty. Use cardbox_add to create cards."
	case len(out.Cards) == 0:
		out.Message = "No cards match the current filters. Use cardbox_select_all or pass all=true."
	}
	return nil, out, nil
}

// AddArgs defines the input for cardbox_add.
type AddArgs struct {
	Front    string `json:"front" jsonschema:"Question side of the card. May contain #hashtags."`
	Back     string `json:"back,omitempty" jsonschema:"Answer side of the card"`
	Category string `json:"category,omitempty" jsonschema:"Hard, Medium or Easy (optional)"`
}

func (s *Server) handleAdd(ctx context.Context, req *mcp.CallToolRequest, args AddArgs) (*mcp.CallToolResult, any, error) {
	var category deck.Category
	if args.Category != "" {
		c, err := deck.ParseCategory(args.Category)
		if err != nil {
			return nil, nil, err
		}
		category = c
	}

	var added deck.Card
	err := s.apply(func(st *deck.State) error {
		var err error
		added, err = st.AddCard(args.Front, args.Back, category)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("adding card: %w", err)
	}
	ui.Logger.Debug("MCP card added", "id", added.ID)
	return nil, viewOf(s.sess.Snapshot(), added), nil
}

// UpdateArgs defines the input for cardbox_update.
type UpdateArgs struct {
	ID       string  `json:"id" jsonschema:"The card ID"`
	Front    *string `json:"front,omitempty" jsonschema:"New question text"`
	Back     *string `json:"back,omitempty" jsonschema:"New answer text"`
	Category string  `json:"category,omitempty" jsonschema:"New category: Hard, Medium or Easy"`
}

func (s *Server) handleUpdate(ctx context.Context, req *mcp.CallToolRequest, args UpdateArgs) (*mcp.CallToolResult, any, error) {
	if args.ID == "" {
		return nil, nil, fmt.Errorf("card ID is required")
	}
	var category deck.Category
	if args.Category != "" {
		c, err := deck.ParseCategory(args.Category)
		if err != nil {
			return nil, nil, err
		}
		category = c
	}

	err := s.apply(func(st *deck.State) error {
		if _, ok := st.Find(args.ID); !ok {
			return fmt.Errorf("%w: %s", deck.ErrCardNotFound, args.ID)
		}
		if args.Front != nil {
			if err := st.SetFront(args.ID, *args.Front); err != nil {
				return err
			}
		}
		if args.Back != nil {
			if err := st.SetBack(args.ID, *args.Back); err != nil {
				return err
			}
		}
		if category != "" {
			return st.SetCategory(args.ID, category)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	st := s.sess.Snapshot()
	c, _ := st.Find(args.ID)
	return nil, viewOf(st, c), nil
}

// DeleteArgs defines the input for cardbox_delete.
type DeleteArgs struct {
	ID string `json:"id" jsonschema:"The card ID to delete"`
}

// DeleteResult is the output of cardbox_delete.
type DeleteResult struct {
	Deleted        bool   `json:"deleted"`
	NotificationID string `json:"notification_id,omitempty"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	Message        string `json:"message,omitempty"`
}

func (s *Server) handleDelete(ctx context.Context, req *mcp.CallToolRequest, args DeleteArgs) (*mcp.CallToolResult, any, error) {
	var d deck.Deletion
	var deleted bool
	err := s.apply(func(st *deck.State) error {
		d, deleted = st.Delete(args.ID)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !deleted {
		return nil, DeleteResult{Message: fmt.Sprintf("No card with ID %q; nothing deleted.", args.ID)}, nil
	}
	return nil, DeleteResult{
		Deleted:        true,
		NotificationID: d.NotificationID,
		ExpiresAt:      d.Expires.Format(time.RFC3339Nano),
		Message:        "Deleted. Call cardbox_undo with the notification_id to restore it before it expires.",
	}, nil
}

// UndoArgs defines the input for cardbox_undo.
type UndoArgs struct {
	NotificationID string `json:"notification_id" jsonschema:"Notification ID returned by cardbox_delete"`
}

func (s *Server) handleUndo(ctx context.Context, req *mcp.CallToolRequest, args UndoArgs) (*mcp.CallToolResult, any, error) {
	var restored deck.Card
	err := s.apply(func(st *deck.State) error {
		var err error
		restored, err = st.Undo(args.NotificationID)
		return err
	})
	if errors.Is(err, deck.ErrUndoExpired) {
		return nil, nil, fmt.Errorf("notification %s can no longer be undone", args.NotificationID)
	}
	if err != nil {
		return nil, nil, err
	}
	return nil, viewOf(s.sess.Snapshot(), restored), nil
}

// TagsArgs defines the input for cardbox_tags.
type TagsArgs struct{}

// TagsResult is the output of cardbox_tags.
type TagsResult struct {
	Categories []deck.CategoryCount `json:"categories"`
	Tags       []deck.TagCount      `json:"tags"`
}

func (s *Server) handleTags(ctx context.Context, req *mcp.CallToolRequest, args TagsArgs) (*mcp.CallToolResult, any, error) {
	counts := s.sess.Snapshot().Counts()
	out := TagsResult{Categories: counts.Categories, Tags: counts.Tags}
	if out.Tags == nil {
		out.Tags = []deck.TagCount{}
	}
	return nil, out, nil
}

// SelectArgs defines the input for cardbox_select.
type SelectArgs struct {
	Categories []string `json:"categories,omitempty" jsonschema:"Categories to show (Hard, Medium, Easy). Omit to keep the current ones."`
	Tags       []string `json:"tags,omitempty" jsonschema:"Tags to show, including Untagged. Omit to keep the current ones."`
}

func (s *Server) handleSelect(ctx context.Context, req *mcp.CallToolRequest, args SelectArgs) (*mcp.CallToolResult, any, error) {
	err := s.apply(func(st *deck.State) error {
		if args.Categories != nil {
			categories := []deck.Category{}
			for _, name := range args.Categories {
				c, err := deck.ParseCategory(name)
				if err != nil {
					return err
				}
				categories = append(categories, c)
			}
			if err := st.SetCategories(categories); err != nil {
				return err
			}
		}
		if args.Tags != nil {
			st.SetTags(args.Tags)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return s.handleList(ctx, req, ListArgs{})
}

// SelectAllArgs defines the input for cardbox_select_all.
type SelectAllArgs struct{}

func (s *Server) handleSelectAll(ctx context.Context, req *mcp.CallToolRequest, args SelectAllArgs) (*mcp.CallToolResult, any, error) {
	err := s.apply(func(st *deck.State) error {
		st.SelectAll()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return s.handleList(ctx, req, ListArgs{})
}
