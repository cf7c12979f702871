package main

import (
	"github.com/liamcoop/conditions/conditions"
	"github.com/liamcoop/conditions/orgmanager"
)

// API request and response models

// CreateOrganizationRequest is the body for creating an organization
type CreateOrganizationRequest struct {
	Name string `json:"name" example:"Acme Corp"`
}

// OrganizationsListResponse lists organizations
type OrganizationsListResponse struct {
	Organizations []*orgmanager.Organization `json:"organizations"`
}

// GroupRequest is the body for creating or updating a condition group.
// ID is only honoured on create; zero lets the store assign one.
type GroupRequest struct {
	ID        int64  `json:"id,omitempty" example:"42"`
	LogicType string `json:"logicType" example:"any-short"`
}

// GroupResponse is a condition group together with its conditions
type GroupResponse struct {
	*conditions.DataConditionGroup
	Conditions []*conditions.DataCondition `json:"conditions"`
}

// GroupsListResponse lists an organization's condition groups
type GroupsListResponse struct {
	Groups []*conditions.DataConditionGroup `json:"groups"`
}

// ConditionRequest is the body for creating or updating a condition.
// ConditionGroupID moves the condition on update and defaults to the
// group in the path.
type ConditionRequest struct {
	ID               int64  `json:"id,omitempty"`
	ConditionGroupID int64  `json:"conditionGroupId,omitempty"`
	Type             string `json:"type" example:"gte"`
	Comparison       any    `json:"comparison" example:"100"`
	ConditionResult  any    `json:"conditionResult" example:"high"`
}

// ConditionsListResponse lists a group's conditions in evaluation order
type ConditionsListResponse struct {
	Conditions []*conditions.DataCondition `json:"conditions"`
}

// EvaluateRequest carries the value every condition is checked against
type EvaluateRequest struct {
	Value any `json:"value"`
}

// EvaluateResponse is the outcome of one group evaluation
type EvaluateResponse struct {
	EvaluationID   string `json:"evaluationId" example:"123e4567-e89b-12d3-a456-426614174000"`
	GroupID        int64  `json:"groupId" example:"42"`
	Triggered      bool   `json:"triggered" example:"true"`
	Results        []any  `json:"results"`
	EvaluationTime string `json:"evaluationTime" example:"45µs"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"condition validation failed"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status              string `json:"status" example:"healthy"`
	OrganizationsLoaded int    `json:"organizationsLoaded" example:"3"`
	Error               string `json:"error,omitempty"`
}
