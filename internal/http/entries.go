package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"personal-diary/internal/domain"
	"personal-diary/internal/service"
	"personal-diary/internal/session"
	"personal-diary/internal/validation"
)

func (h *Handler) listEntries(c *gin.Context) {
	entries, err := h.entries.List(c.Request.Context(), viewerID(c))
	if err != nil {
		if errors.Is(err, service.ErrLoginRequired) {
			h.redirectWithFlash(c, "/login", session.FlashError, msgLoginFirst)
			return
		}
		h.logger.WithError(err).Error("list entries")
		h.sessions.Get(c).AddFlash(session.FlashError, msgEntriesFetchError)
		h.render(c, http.StatusInternalServerError, "entries_index", "Diary", gin.H{"Entries": []domain.Entry{}})
		return
	}
	h.render(c, http.StatusOK, "entries_index", "Diary", gin.H{"Entries": entries})
}

func (h *Handler) newEntryForm(c *gin.Context) {
	h.render(c, http.StatusOK, "entries_new", "New entry", gin.H{
		"Entry":      domain.Entry{Mood: domain.MoodOther, IsPrivate: true},
		"FormAction": "/blogs",
		"Submit":     "Create entry",
	})
}

// bindEntry runs the single normalisation step and validates the result.
func bindEntry(c *gin.Context) (validation.EntryInput, error) {
	var form validation.EntryForm
	if err := c.ShouldBind(&form); err != nil {
		return validation.EntryInput{}, errors.New(msgInvalidFormEncoding)
	}
	in := validation.NormalizeEntry(form)
	if err := in.Validate(); err != nil {
		return validation.EntryInput{}, err
	}
	return in, nil
}

func (h *Handler) createEntry(c *gin.Context) {
	in, err := bindEntry(c)
	if err != nil {
		h.redirectWithFlash(c, "/blogs/new", session.FlashError, err.Error())
		return
	}

	entry := &domain.Entry{AuthorID: currentUser(c).ID}
	in.Apply(entry)
	if _, err := h.entries.Create(c.Request.Context(), entry); err != nil {
		h.logger.WithError(err).WithField("user_id", entry.AuthorID).Error("create entry")
		h.redirectWithFlash(c, "/blogs/new", session.FlashError, msgEntryCreateError)
		return
	}
	h.redirectWithFlash(c, "/blogs", session.FlashSuccess, msgEntryCreated)
}

func (h *Handler) showEntry(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		h.redirectWithFlash(c, "/blogs", session.FlashError, msgEntryNotFound)
		return
	}

	entry, err := h.entries.View(c.Request.Context(), id, viewerID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEntryNotFound):
			h.redirectWithFlash(c, "/blogs", session.FlashError, msgEntryNotFound)
		case errors.Is(err, service.ErrEntryPrivate):
			h.redirectWithFlash(c, "/blogs", session.FlashError, msgEntryPrivate)
		case errors.Is(err, service.ErrLoginRequired):
			h.redirectWithFlash(c, "/login", session.FlashError, msgLoginFirst)
		default:
			h.logger.WithError(err).WithField("entry_id", id).Error("show entry")
			h.redirectWithFlash(c, "/blogs", session.FlashError, msgEntryFetchError)
		}
		return
	}

	h.render(c, http.StatusOK, "entries_show", entry.Title, gin.H{
		"Entry":    entry,
		"IsAuthor": entry.IsAuthoredBy(viewerID(c)),
	})
}

func (h *Handler) editEntryForm(c *gin.Context) {
	entry := ownedEntry(c)
	h.render(c, http.StatusOK, "entries_edit", "Edit entry", gin.H{
		"Entry":      entry,
		"FormAction": fmt.Sprintf("/blogs/%d?_method=PUT", entry.ID),
		"Submit":     "Save changes",
	})
}

func (h *Handler) updateEntry(c *gin.Context) {
	entry := ownedEntry(c)
	editPath := fmt.Sprintf("/blogs/%d/edit", entry.ID)

	in, err := bindEntry(c)
	if err != nil {
		h.redirectWithFlash(c, editPath, session.FlashError, err.Error())
		return
	}

	in.Apply(entry)
	if _, err := h.entries.Update(c.Request.Context(), entry); err != nil {
		h.logger.WithError(err).WithField("entry_id", entry.ID).Error("update entry")
		h.redirectWithFlash(c, editPath, session.FlashError, msgEntryUpdateError)
		return
	}
	h.redirectWithFlash(c, fmt.Sprintf("/blogs/%d", entry.ID), session.FlashSuccess, msgEntryUpdated)
}

func (h *Handler) deleteEntry(c *gin.Context) {
	entry := ownedEntry(c)
	if err := h.entries.Delete(c.Request.Context(), entry); err != nil {
		h.logger.WithError(err).WithField("entry_id", entry.ID).Error("delete entry")
		h.redirectWithFlash(c, "/blogs", session.FlashError, msgEntryDeleteError)
		return
	}
	h.redirectWithFlash(c, "/blogs", session.FlashSuccess, msgEntryDeleted)
}
