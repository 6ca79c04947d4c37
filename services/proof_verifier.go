package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"quest-campaign-system/models"

	"golang.org/x/text/cases"
)

// Actor is one entry in the provider's engagement lists: who performed the
// action, and for comments/quotes what they wrote.
type Actor struct {
	Username string `json:"username"`
	Text     string `json:"text,omitempty"`
}

// engagementResponse covers every response shape the provider is known to
// return. Exactly one of the list fields (or Text, for post lookups) is
// expected to be present; anything else is treated as unavailable, never as
// an approval.
type engagementResponse struct {
	Likers   []Actor `json:"likers"`
	Reposts  []Actor `json:"reposts"`
	Quotes   []Actor `json:"quotes"`
	Comments []Actor `json:"comments"`
	Text     *string `json:"text"`
}

// VerificationClient calls the external social verification provider.
type VerificationClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewVerificationClient(baseURL, token string) *VerificationClient {
	return &VerificationClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// fetchEngagement POSTs the proof URL to the endpoint for the proof type.
// Network failures and non-200s surface as ErrVerificationUnavailable.
func (c *VerificationClient) fetchEngagement(ctx context.Context, endpoint, proofURL string) (*engagementResponse, error) {
	reqBody, _ := json.Marshal(map[string]string{"proof_url": proofURL})

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrVerificationUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[VERIFY] provider returned %d for %s: %.200s", resp.StatusCode, endpoint, body)
		return nil, fmt.Errorf("%w: provider status %d", ErrVerificationUnavailable, resp.StatusCode)
	}

	var out engagementResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrVerificationUnavailable, err)
	}
	return &out, nil
}

// ModerationClient calls the external content classifier: given a text, it
// answers a binary "on-topic and safe" question.
type ModerationClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewModerationClient(baseURL, token string) *ModerationClient {
	return &ModerationClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Classify returns (isValid, reason). Failures surface as
// ErrVerificationUnavailable so the submission stays PENDING.
func (c *ModerationClient) Classify(ctx context.Context, text string) (bool, string, error) {
	reqBody, _ := json.Marshal(map[string]string{"text": text})

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/moderation/classify", bytes.NewBuffer(reqBody))
	if err != nil {
		return false, "", fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[MODERATION] classifier returned %d: %.200s", resp.StatusCode, body)
		return false, "", fmt.Errorf("%w: classifier status %d", ErrVerificationUnavailable, resp.StatusCode)
	}

	var out struct {
		IsValid *bool  `json:"is_valid"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, "", fmt.Errorf("%w: malformed classifier response: %v", ErrVerificationUnavailable, err)
	}
	if out.IsValid == nil {
		return false, "", fmt.Errorf("%w: classifier response missing is_valid", ErrVerificationUnavailable)
	}
	return *out.IsValid, out.Reason, nil
}

// Verdict is the outcome of an automated proof check.
type Verdict struct {
	Approved bool
	Reason   string // present on rejection
}

// ProofVerifier combines the provider lookup with the content classifier.
type ProofVerifier struct {
	Verification *VerificationClient
	Moderation   *ModerationClient
}

func NewProofVerifier(verification *VerificationClient, moderation *ModerationClient) *ProofVerifier {
	return &ProofVerifier{Verification: verification, Moderation: moderation}
}

// NormalizeHandle strips the leading @ and case-folds, so "@Alice" matches
// "alice".
func NormalizeHandle(h string) string {
	return cases.Fold().String(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}

// Verify runs the automated check for one submission: fetch the engagement
// for the proof URL, confirm the declared handle appears among the actors,
// and where the route requires it, classify the matched text. It never
// resolves the submission itself; errors mean "could not verify", not
// "rejected".
func (v *ProofVerifier) Verify(ctx context.Context, route Route, proofType, proofURL, handle string) (Verdict, error) {
	resp, err := v.Verification.fetchEngagement(ctx, route.Endpoint, proofURL)
	if err != nil {
		return Verdict{}, err
	}

	// original_post lookups return the post body, not an actor list.
	if proofType == models.ProofTypeOriginalPost {
		if resp.Text == nil {
			return Verdict{}, fmt.Errorf("%w: post lookup returned no text", ErrVerificationUnavailable)
		}
		return v.classify(ctx, *resp.Text)
	}

	var actors []Actor
	switch proofType {
	case models.ProofTypeLike:
		actors = resp.Likers
	case models.ProofTypeRepost:
		actors = resp.Reposts
	case models.ProofTypeQuote:
		actors = resp.Quotes
	case models.ProofTypeComment:
		actors = resp.Comments
	default:
		return Verdict{}, fmt.Errorf("%w: proof type %q has no actor list", ErrVerificationUnavailable, proofType)
	}
	if actors == nil {
		return Verdict{}, fmt.Errorf("%w: expected actor list missing for %s", ErrVerificationUnavailable, proofType)
	}

	want := NormalizeHandle(handle)
	var matched *Actor
	for i := range actors {
		if NormalizeHandle(actors[i].Username) == want {
			matched = &actors[i]
			break
		}
	}
	if matched == nil {
		return Verdict{Approved: false, Reason: fmt.Sprintf("no %s by @%s found on the target post", proofType, want)}, nil
	}

	if route.ModerationRequired {
		return v.classify(ctx, matched.Text)
	}
	return Verdict{Approved: true}, nil
}

func (v *ProofVerifier) classify(ctx context.Context, text string) (Verdict, error) {
	ok, reason, err := v.Moderation.Classify(ctx, text)
	if err != nil {
		return Verdict{}, err
	}
	if !ok {
		if reason == "" {
			reason = "content did not pass moderation"
		}
		return Verdict{Approved: false, Reason: reason}, nil
	}
	return Verdict{Approved: true}, nil
}
