package api

import (
	"net/http"

	"github.com/rpupo63/foodgram-backend/database"
	"github.com/rs/zerolog/log"
)

type tagHandler struct {
	responder Responder
	tags      *database.TagRepo
}

func newTagHandler(tags *database.TagRepo) tagHandler {
	logger := log.With().Str("handlerName", "tagHandler").Logger()

	return tagHandler{
		responder: NewResponder(logger),
		tags:      tags,
	}
}

func (h tagHandler) listTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := h.tags.List(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		out := make([]TagResponse, 0, len(tags))
		for _, tag := range tags {
			out = append(out, newTagResponse(tag))
		}
		h.responder.WriteJSON(w, out)
	}
}

func (h tagHandler) getTag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "tagID", "tag")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		tag, err := h.tags.FindByID(r.Context(), id)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, newTagResponse(*tag))
	}
}
