package services

import "quest-campaign-system/models"

// Route describes how a submission gets verified. When Automated is false
// the submission stays PENDING until a human reviewer resolves it.
type Route struct {
	Automated bool
	// Endpoint is the provider path queried for the proof type.
	Endpoint string
	// ModerationRequired: the matched text must additionally pass the
	// content classifier before approval.
	ModerationRequired bool
}

// NoAutomation is the manual-review route.
var NoAutomation = Route{}

// RouteFor maps a task's verification method and the effective proof type
// to a verification route. Pure. Anything other than AI_AUTO yields
// NoAutomation — automation never runs for manually-reviewed tasks, even
// when the proof type would otherwise be automatable.
func RouteFor(verificationMethod, proofType string) Route {
	if verificationMethod != models.VerificationAIAuto {
		return NoAutomation
	}
	switch proofType {
	case models.ProofTypeLike:
		return Route{Automated: true, Endpoint: "/v1/engagement/likes"}
	case models.ProofTypeRepost:
		return Route{Automated: true, Endpoint: "/v1/engagement/reposts"}
	case models.ProofTypeQuote:
		return Route{Automated: true, Endpoint: "/v1/engagement/quotes"}
	case models.ProofTypeComment:
		return Route{Automated: true, Endpoint: "/v1/engagement/comments", ModerationRequired: true}
	case models.ProofTypeOriginalPost:
		return Route{Automated: true, Endpoint: "/v1/posts/lookup", ModerationRequired: true}
	default:
		// generic proof has nothing the provider can check
		return NoAutomation
	}
}
