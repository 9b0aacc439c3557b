package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/michellelee0718/porespective/internal/models"
	"github.com/michellelee0718/porespective/internal/services"
)

// RecommendHandler serves the streaming AI endpoints. Responses are
// server-sent event streams: one `data: {"content": ...}` frame per model
// fragment, flushed as it arrives so clients can render incrementally.
type RecommendHandler struct {
	llm      services.LLMStreamer
	sessions *services.SessionStore
	cache    services.SummaryCache
}

func NewRecommendHandler(llm services.LLMStreamer, sessions *services.SessionStore, cache services.SummaryCache) *RecommendHandler {
	return &RecommendHandler{llm: llm, sessions: sessions, cache: cache}
}

// Recommend starts a recommendation conversation for a product. The session
// identifier is returned in the X-Session-Id header before the stream body
// begins, so it must be read from headers, not the body.
func (h *RecommendHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.ProductName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing product_name"})
		return
	}
	if len(req.Ingredients) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing or invalid ingredients"})
		return
	}

	// Prompt-build failures carry the per-ingredient validation message, e.g.
	// "Ingredient 'X' missing 'score' field".
	prompt, err := services.BuildRecommendationPrompt(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	session := h.sessions.GetOrCreate(req.SessionID)
	if err := session.BeginStream(); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "A response is already streaming for this session"})
		return
	}
	defer session.EndStream()

	session.AppendTurn("user", prompt)

	w.Header().Set("X-Session-Id", session.ID)
	h.streamToClient(w, r, session)
}

// Chat continues a conversation. An unrecognized session identifier is not
// an error: it simply starts a fresh conversation under that identifier.
func (h *RecommendHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing session_id"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing user message"})
		return
	}

	session := h.sessions.GetOrCreate(req.SessionID)
	if err := session.BeginStream(); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "A response is already streaming for this session"})
		return
	}
	defer session.EndStream()

	services.SeedFollowup(session)
	session.AppendTurn("user", req.Message)

	w.Header().Set("X-Session-Id", session.ID)
	h.streamToClient(w, r, session)
}

// streamToClient relays model output to the response as SSE frames and, on
// completion, records the full reply in the session history so follow-ups
// see it.
func (h *RecommendHandler) streamToClient(w http.ResponseWriter, r *http.Request, session *services.ChatSession) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	chunks, errs := h.llm.StreamChat(r.Context(), session.History())

	var full string
	for chunk := range chunks {
		full += chunk
		frame, err := json.Marshal(map[string]string{"content": chunk})
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", frame)
		flusher.Flush()
	}

	if err := <-errs; err != nil {
		// Headers are already sent, so the failure goes out as an error
		// frame on the stream. Partial output stays out of the history so a
		// retry does not build on a truncated reply.
		log.Printf("[Recommend] Stream for session %s failed: %v", session.ID, err)
		if frame, merr := json.Marshal(map[string]string{"error": err.Error()}); merr == nil {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
		return
	}

	session.AppendTurn("assistant", full)
}

// IngredientSummary returns a short bullet-point summary of an ingredient
// list. Summaries are cached by ingredient content, so repeat lookups of
// the same product skip the model entirely.
func (h *RecommendHandler) IngredientSummary(w http.ResponseWriter, r *http.Request) {
	var req models.SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if len(req.Ingredients) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing or invalid ingredients"})
		return
	}

	key := services.SummaryCacheKey(req.Ingredients)

	if h.cache != nil {
		if cached, err := h.cache.Get(r.Context(), key); err != nil {
			log.Printf("[Recommend] Summary cache read failed: %v", err)
		} else if cached != nil {
			writeJSON(w, http.StatusOK, models.SummaryResponse{Summary: cached})
			return
		}
	}

	prompt, err := services.BuildSummaryPrompt(req.Ingredients)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	text, err := services.Complete(r.Context(), h.llm, []services.ChatTurn{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		log.Printf("[Recommend] Summary generation failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate summary"})
		return
	}

	summary := services.ParseSummaryList(text)

	if h.cache != nil {
		if err := h.cache.Put(r.Context(), key, summary); err != nil {
			log.Printf("[Recommend] Summary cache write failed: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, models.SummaryResponse{Summary: summary})
}
