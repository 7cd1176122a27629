package dto

import "github.com/google/uuid"

type ProfileResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   *string   `json:"name"`
	School *string   `json:"school"`
	Avatar *string   `json:"avatar"`
}

// UpdateProfileRequest is a partial update. Absent fields keep their value.
type UpdateProfileRequest struct {
	Name   *string `json:"name" binding:"omitempty,max=100"`
	School *string `json:"school" binding:"omitempty,max=100"`
	Avatar *string `json:"avatar" binding:"omitempty,url,max=2048"`
}
