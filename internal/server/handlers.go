package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pauljones0/deals-storefront/internal/feed"
	"github.com/pauljones0/deals-storefront/internal/models"
	"github.com/pauljones0/deals-storefront/internal/storefront"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Catalog().Status())
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	strategy, err := feed.ParseStrategy(q.Get("strategy"))
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	more, _ := strconv.ParseBool(q.Get("more"))

	page, err := s.svc.Feed(storefront.FeedRequest{
		Query:    q.Get("q"),
		Strategy: strategy,
		Cursor:   q.Get("cursor"),
		More:     more,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	strategy, err := feed.ParseStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, ok := s.svc.Featured(r.URL.Query().Get("q"), strategy)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCarousel(w http.ResponseWriter, r *http.Request) {
	grow, _ := strconv.Atoi(r.URL.Query().Get("grow"))
	writeJSON(w, http.StatusOK, s.svc.Carousel(grow))
}

func (s *Server) handleVisitorLikes(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.LikedByVisitor(r.Context(), visitorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"liked": ids})
}

func (s *Server) handleJSONLD(w http.ResponseWriter, r *http.Request) {
	scheme := "https"
	if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") == "" {
		scheme = "http"
	}
	list, ok := s.svc.JSONLD(scheme + "://" + r.Host)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSONAs(w, http.StatusOK, "application/ld+json", list)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	related, err := s.svc.Related(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, related)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var sub storefront.Submission
	if err := decodeJSON(w, r, &sub); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Publish(r.Context(), userFrom(r.Context()), sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if p.Status == models.StatusEnriching {
		status = http.StatusAccepted
	}
	writeJSON(w, status, p)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var patch models.ProductPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Edit(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFeature(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Featured bool `json:"featured"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.SetFeatured(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id"), req.Featured); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"featured": req.Featured})
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	url, err := s.svc.RecordClick(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	liked, err := s.svc.ToggleLike(ctx, userFrom(ctx), visitorFrom(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.svc.Comments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cm, err := s.svc.AddComment(r.Context(), userFrom(r.Context()), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cm)
}

func (s *Server) handleInterest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	lead, err := s.svc.RegisterInterest(r.Context(), chi.URLParam(r, "id"), req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (s *Server) handlePitch(w http.ResponseWriter, r *http.Request) {
	text, err := s.svc.Pitch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pitch": text})
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.Enrich(r.Context(), req.URL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleVisit(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.TrackVisit(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	items, unread, err := s.svc.Notifications(r.Context(), visitorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"unread": unread,
	})
}

func (s *Server) handleNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.MarkNotificationsRead(r.Context(), visitorFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotificationsClear(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearNotifications(r.Context(), visitorFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.Posts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handlePostView(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ViewPost(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Analytics(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	leads, err := s.svc.Leads(r.Context(), userFrom(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SheetURL string `json:"sheetUrl"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.ImportSheet(r.Context(), userFrom(r.Context()), req.SheetURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
