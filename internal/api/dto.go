package api

import (
	"github.com/starford/mindmaps/internal/authservice"
	"github.com/starford/mindmaps/internal/mapservice"
	"github.com/starford/mindmaps/internal/mindmap"
	"github.com/starford/mindmaps/internal/models"
)

// SignupRequest is the request body for creating an account.
type SignupRequest = authservice.SignupInput

// ResetPasswordRequest is the request body for a security-question reset.
type ResetPasswordRequest = authservice.ResetInput

// TokenResponse is returned after a successful login.
type TokenResponse = authservice.Token

// CheckEmailResponse reports whether an email is registered.
type CheckEmailResponse struct {
	Exists bool `json:"exists" example:"true"`
}

// SecurityQuestionResponse carries the question and hint of an account.
type SecurityQuestionResponse = authservice.Question

// CreateMapRequest is the request body for creating a mind map.
type CreateMapRequest = mapservice.CreateInput

// UpdateMapRequest is the request body for updating a mind map. Omitted
// fields are left unchanged.
type UpdateMapRequest = mapservice.UpdateInput

// MindMap is the mind map response type (aliased from the domain layer).
type MindMap = models.MindMap

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.MapSummary `json:"results" validate:"required"`
}

// OutlineResponse wraps a flattened mind map.
type OutlineResponse struct {
	Items []mindmap.OutlineItem `json:"items" validate:"required"`
}
