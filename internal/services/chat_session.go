package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/michellelee0718/porespective/internal/models"
)

// ErrStreamInProgress is returned when a second stream is started on a
// session whose previous stream has not finished.
var ErrStreamInProgress = errors.New("a response is already streaming for this session")

const recommendationSystemPrompt = "You are a helpful skincare recommendation assistant.\n" +
	"The user provided this product information:\n%s\n\n" +
	"Should the user use this product? Provide a concise explanation within 50 words."

const followupSystemPrompt = "You are a helpful skincare recommendation assistant. " +
	"Answer the user's follow-up questions about the product discussed so far, " +
	"keeping answers concise and grounded in the ingredient information already provided."

const summarySystemPrompt = "You are a skincare ingredient analyst. " +
	"Given the ingredient list below, extract the most important key words " +
	"describing the product's safety profile (hazards, allergens, benefits). " +
	"Return ONLY the key words, one per line, no numbering or commentary.\n\n%s"

// hazardScoreExplanation tells the model how to read EWG hazard scores.
const hazardScoreExplanation = "The hazard score represents the potential risk level of the ingredient. " +
	"A lower score (1-2) means it's considered low risk, 3-6 indicates moderate risk, " +
	"and 7-10 suggests a higher hazard potential. Please analyze the safety of the product based on these scores."

// FormatIngredients renders an ingredient list for a model prompt as
// "Name (Hazard Score: N)" lines with indented concerns.
func FormatIngredients(ingredients []models.Ingredient) (string, error) {
	if ingredients == nil {
		return "", errors.New("Missing ingredients")
	}

	var lines []string
	for _, ing := range ingredients {
		if ing.Name == "" {
			return "", errors.New("Ingredient missing 'name' field")
		}
		if ing.Score == "" {
			return "", fmt.Errorf("Ingredient '%s' missing 'score' field", ing.Name)
		}
		line := fmt.Sprintf("%s (Hazard Score: %s)", ing.Name, ing.Score)
		if len(ing.Concerns) > 0 {
			line += "\n  - Concerns: " + strings.Join(ing.Concerns, ", ")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// BuildRecommendationPrompt assembles the opening prompt for /recommend:
// product data, scored ingredients, the hazard-score explanation, and
// whatever profile fields the client sent.
func BuildRecommendationPrompt(req *models.RecommendRequest) (string, error) {
	details, err := FormatIngredients(req.Ingredients)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Product Name: %s\nIngredients:\n%s\n\n%s", req.ProductName, details, hazardScoreExplanation)

	if len(req.UserProfile) > 0 {
		sb.WriteString("\n\nUser profile:")
		for _, key := range []string{"skinType", "skinConcerns", "allergies"} {
			if v, ok := req.UserProfile[key]; ok {
				fmt.Fprintf(&sb, "\n%s: %v", key, v)
			}
		}
	}

	return fmt.Sprintf(recommendationSystemPrompt, sb.String()), nil
}

// BuildSummaryPrompt assembles the keyword-extraction prompt for
// /ingredient-summary.
func BuildSummaryPrompt(ingredients []models.Ingredient) (string, error) {
	details, err := FormatIngredients(ingredients)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(summarySystemPrompt, details), nil
}

// ParseSummaryList splits the model's keyword response into a clean list.
func ParseSummaryList(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ChatSession holds one conversation's history. At most one stream may be
// active per session at a time.
type ChatSession struct {
	ID string

	mu      sync.Mutex
	history []ChatTurn
	active  bool
}

// BeginStream marks the session as streaming. Fails if a stream is already
// in flight, preserving request-issuance ordering of responses.
func (s *ChatSession) BeginStream() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return ErrStreamInProgress
	}
	s.active = true
	return nil
}

func (s *ChatSession) EndStream() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

func (s *ChatSession) AppendTurn(role, content string) {
	s.mu.Lock()
	s.history = append(s.history, ChatTurn{Role: role, Content: content})
	s.mu.Unlock()
}

// SeedFollowup installs the follow-up system prompt on a conversation with
// no history yet, as when a chat arrives for an unknown session and starts
// a fresh conversation.
func SeedFollowup(s *ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		s.history = append(s.history, ChatTurn{Role: "system", Content: followupSystemPrompt})
	}
}

// History returns a copy of the conversation so far.
func (s *ChatSession) History() []ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatTurn, len(s.history))
	copy(out, s.history)
	return out
}

// SessionStore keeps conversations in memory, keyed by session ID. Sessions
// live for the process lifetime; an unknown ID simply starts a fresh
// conversation under that ID.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*ChatSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*ChatSession),
	}
}

// GetOrCreate returns the session for id, creating it if needed. An empty id
// gets a new random session.
func (st *SessionStore) GetOrCreate(id string) *ChatSession {
	if id == "" {
		id = uuid.NewString()
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if sess, ok := st.sessions[id]; ok {
		return sess
	}
	sess := &ChatSession{ID: id}
	st.sessions[id] = sess
	return sess
}

// Get returns the session or nil.
func (st *SessionStore) Get(id string) *ChatSession {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[id]
}
