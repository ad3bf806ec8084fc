package main

import (
	"github.com/liamcoop/scoreform/rules"
	"github.com/liamcoop/scoreform/session"
)

// API request and response models

// UpdateKeyRequest is the body of PUT /rules/{index}/key
type UpdateKeyRequest struct {
	Key string `json:"key" example:"credit_score"`
}

// UpdateOutputFieldRequest is the body of PUT /rules/{index}/output/{field}
type UpdateOutputFieldRequest struct {
	Value string `json:"value" example:"18"`
}

// SetCombinatorRequest is the body of PUT /combinator
type SetCombinatorRequest struct {
	Combinator string `json:"combinator" example:"or"`
}

// SessionResponse wraps a session snapshot
type SessionResponse struct {
	session.Snapshot
}

// SessionsListResponse lists live session IDs
type SessionsListResponse struct {
	Sessions []string `json:"sessions"`
}

// SubmitResponse is returned by a successful submission
type SubmitResponse struct {
	Output        *rules.SubmittedExpression `json:"output"`
	Expression    *rules.CompiledExpression  `json:"expression"`
	Notifications []rules.Notification       `json:"notifications"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error         string               `json:"error" example:"validation error: no complete rules to submit"`
	Details       string               `json:"details,omitempty"`
	Notifications []rules.Notification `json:"notifications,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status         string `json:"status" example:"healthy"`
	SessionsActive int    `json:"sessionsActive" example:"3"`
}
