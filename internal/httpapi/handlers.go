package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kokistudios/cardbox/internal/deck"
)

type cardResponse struct {
	ID       string        `json:"id"`
	Front    string        `json:"front"`
	Back     string        `json:"back"`
	Category deck.Category `json:"category"`
	Tags     []string      `json:"tags"`
	Editing  bool          `json:"editing"`
	Visible  bool          `json:"visible"`
}

func cardToResponse(st *deck.State, c deck.Card) cardResponse {
	t := st.CardTags(c)
	if t == nil {
		t = []string{}
	}
	return cardResponse{
		ID:       c.ID,
		Front:    c.Front,
		Back:     c.Back,
		Category: c.Category,
		Tags:     t,
		Editing:  st.IsEditing(c.ID),
		Visible:  st.IsVisible(c),
	}
}

func cardsToResponse(st *deck.State, cards []deck.Card) []cardResponse {
	out := make([]cardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardToResponse(st, c))
	}
	return out
}

type notificationResponse struct {
	ID        string       `json:"id"`
	Card      cardResponse `json:"card"`
	Index     int          `json:"index"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func notificationToResponse(st *deck.State, d deck.Deletion) notificationResponse {
	return notificationResponse{
		ID:        d.NotificationID,
		Card:      cardToResponse(st, d.Card),
		Index:     d.Index,
		ExpiresAt: d.Expires,
	}
}

type selectionResponse struct {
	Categories []deck.Category `json:"categories"`
	Tags       []string        `json:"tags"`
	AllTags    bool            `json:"allTags"`
}

type deckResponse struct {
	Title         string                 `json:"title"`
	Path          string                 `json:"path"`
	Dirty         bool                   `json:"dirty"`
	Cards         []cardResponse         `json:"cards"`
	Selection     selectionResponse      `json:"selection"`
	Counts        deck.Counts            `json:"counts"`
	Notifications []notificationResponse `json:"notifications"`
}

func (s *Server) getDeck(w http.ResponseWriter, r *http.Request) {
	st := s.sess.Snapshot()
	categories := st.Selection.CategoryList()
	if categories == nil {
		categories = []deck.Category{}
	}
	notifications := []notificationResponse{}
	for _, d := range st.Pending() {
		notifications = append(notifications, notificationToResponse(st, d))
	}
	s.respondJSON(w, http.StatusOK, deckResponse{
		Title:         st.Title,
		Path:          s.sess.Path(),
		Dirty:         s.sess.Dirty(),
		Cards:         cardsToResponse(st, st.Cards),
		Selection:     selectionResponse{Categories: categories, Tags: st.SelectedTags(), AllTags: st.Selection.AllTags},
		Counts:        st.Counts(),
		Notifications: notifications,
	})
}

func (s *Server) getVisible(w http.ResponseWriter, r *http.Request) {
	st := s.sess.Snapshot()
	s.respondJSON(w, http.StatusOK, cardsToResponse(st, st.Visible()))
}

func (s *Server) getTags(w http.ResponseWriter, r *http.Request) {
	tags := s.sess.Snapshot().Counts().Tags
	if tags == nil {
		tags = []deck.TagCount{}
	}
	s.respondJSON(w, http.StatusOK, tags)
}

type addCardRequest struct {
	Front    string `json:"front"`
	Back     string `json:"back"`
	Category string `json:"category" validate:"omitempty,oneof=Hard Medium Easy"`
}

// addCard appends a card. Without front or back text the card is blank
// and starts in edit mode.
func (s *Server) addCard(w http.ResponseWriter, r *http.Request) {
	var req addCardRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var added deck.Card
	err := s.sess.ApplySave(func(st *deck.State) error {
		if req.Front == "" && req.Back == "" {
			added = st.Add()
			if req.Category != "" {
				added.Category = deck.Category(req.Category)
				return st.SetCategory(added.ID, added.Category)
			}
			return nil
		}
		var err error
		added, err = st.AddCard(req.Front, req.Back, deck.Category(req.Category))
		return err
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.logger.Debug("Card added", "id", added.ID)
	s.respondJSON(w, http.StatusCreated, cardToResponse(s.sess.Snapshot(), added))
}

type updateCardRequest struct {
	Front    *string `json:"front"`
	Back     *string `json:"back"`
	Category *string `json:"category" validate:"omitempty,oneof=Hard Medium Easy"`
}

func (s *Server) updateCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateCardRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	err := s.sess.ApplySave(func(st *deck.State) error {
		if _, ok := st.Find(id); !ok {
			return deck.ErrCardNotFound
		}
		if req.Front != nil {
			if err := st.SetFront(id, *req.Front); err != nil {
				return err
			}
		}
		if req.Back != nil {
			if err := st.SetBack(id, *req.Back); err != nil {
				return err
			}
		}
		if req.Category != nil {
			return st.SetCategory(id, deck.Category(*req.Category))
		}
		return nil
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	st := s.sess.Snapshot()
	c, _ := st.Find(id)
	s.respondJSON(w, http.StatusOK, cardToResponse(st, c))
}

func (s *Server) toggleEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var editing bool
	err := s.sess.ApplySave(func(st *deck.State) error {
		var err error
		editing, err = st.ToggleEdit(id)
		return err
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"editing": editing})
}

// deleteCard removes a card and returns its undo notification. Unknown ids
// are a no-op.
func (s *Server) deleteCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var d deck.Deletion
	var deleted bool
	err := s.sess.ApplySave(func(st *deck.State) error {
		d, deleted = st.Delete(id)
		return nil
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if !deleted {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.respondJSON(w, http.StatusOK, notificationToResponse(s.sess.Snapshot(), d))
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	nid := chi.URLParam(r, "notificationID")
	var restored deck.Card
	err := s.sess.ApplySave(func(st *deck.State) error {
		var err error
		restored, err = st.Undo(nid)
		return err
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, cardToResponse(s.sess.Snapshot(), restored))
}

func (s *Server) dismiss(w http.ResponseWriter, r *http.Request) {
	nid := chi.URLParam(r, "notificationID")
	err := s.sess.ApplySave(func(st *deck.State) error {
		st.Dismiss(nid)
		return nil
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectionRequest struct {
	Categories []string `json:"categories" validate:"omitempty,dive,oneof=Hard Medium Easy"`
	Tags       []string `json:"tags"`
}

// setSelection replaces the filter. An omitted list keeps its current value.
func (s *Server) setSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	err := s.sess.ApplySave(func(st *deck.State) error {
		if req.Categories != nil {
			categories := make([]deck.Category, len(req.Categories))
			for i, c := range req.Categories {
				categories[i] = deck.Category(c)
			}
			if err := st.SetCategories(categories); err != nil {
				return err
			}
		}
		if req.Tags != nil {
			st.SetTags(req.Tags)
		}
		return nil
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.getVisible(w, r)
}

func (s *Server) selectAll(w http.ResponseWriter, r *http.Request) {
	err := s.sess.ApplySave(func(st *deck.State) error {
		st.SelectAll()
		return nil
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.getVisible(w, r)
}

type titleRequest struct {
	Title string `json:"title" validate:"max=500"`
}

func (s *Server) setTitle(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	err := s.sess.ApplySave(func(st *deck.State) error {
		st.SetTitle(req.Title)
		return nil
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"title": req.Title})
}

type saveRequest struct {
	Path string `json:"path"`
}

// save writes the deck, to a new path when one is given.
func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var err error
	if req.Path != "" {
		err = s.sess.SaveAs(req.Path)
	} else {
		err = s.sess.Save()
	}
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"path": s.sess.Path()})
}
