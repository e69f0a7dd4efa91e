package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hnpulse/hnpulse/internal/stories"
)

// TopStories handles GET /api/stories/top
func (h *Handler) TopStories(w http.ResponseWriter, r *http.Request) {
	if !h.checkRateLimit(w, r, "read", h.cfg.ReadRateLimit) {
		return
	}

	n := 10
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		parsed, err := strconv.Atoi(nStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "n must be an integer")
			return
		}
		n = parsed
	}

	list, err := h.reader.TopStories(r.Context(), n)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			// Client went away; nothing useful to write.
			return
		case errors.Is(err, stories.ErrServiceUnavailable):
			writeError(w, http.StatusServiceUnavailable, "story data temporarily unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "failed to load stories")
		}
		return
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(list); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode stories")
		return
	}

	sum := sha256.Sum256(buf.Bytes())
	etag := fmt.Sprintf(`W/"%x"`, sum[:16])
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.cfg.CacheDuration.Seconds())))
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}
