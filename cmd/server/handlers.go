package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/liamcoop/conditions/conditions"
	"github.com/liamcoop/conditions/internal/logger"
	"github.com/liamcoop/conditions/orgmanager"
)

type processorKey struct{}

// withProcessor resolves {orgId} to the organization's processor
func (s *Server) withProcessor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID, err := pathID(r, "orgId")
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid organization id", err)
			return
		}

		processor, err := s.manager.GetProcessor(orgID)
		if err != nil {
			respondError(w, http.StatusNotFound, "organization not found", err)
			return
		}

		ctx := context.WithValue(r.Context(), processorKey{}, processor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func processorFrom(r *http.Request) *conditions.Processor {
	return r.Context().Value(processorKey{}).(*conditions.Processor)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unhealthy",
				Error:  err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:              "healthy",
		OrganizationsLoaded: len(s.manager.ListOrganizations()),
	})
}

func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	organizations, err := s.orgs.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list organizations", err)
		return
	}
	if organizations == nil {
		organizations = []*orgmanager.Organization{}
	}
	respondJSON(w, http.StatusOK, OrganizationsListResponse{Organizations: organizations})
}

func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	org, err := s.orgs.Create(r.Context(), req.Name)
	if err != nil {
		respondError(w, statusFor(err), "failed to create organization", err)
		return
	}
	if err := s.manager.CreateOrganization(org.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to initialize organization", err)
		return
	}

	s.log.Info("organization created", "organization_id", org.ID)
	respondJSON(w, http.StatusCreated, org)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := processorFrom(r).ListGroups(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list condition groups", err)
		return
	}
	if groups == nil {
		groups = []*conditions.DataConditionGroup{}
	}
	respondJSON(w, http.StatusOK, GroupsListResponse{Groups: groups})
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	group := &conditions.DataConditionGroup{
		ID:        req.ID,
		LogicType: conditions.LogicType(req.LogicType),
	}
	if err := processorFrom(r).AddGroup(r.Context(), group); err != nil {
		respondError(w, statusFor(err), "failed to create condition group", err)
		return
	}

	respondJSON(w, http.StatusCreated, group)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid condition group id", err)
		return
	}

	processor := processorFrom(r)
	group, err := processor.Group(r.Context(), groupID)
	if err != nil {
		respondError(w, statusFor(err), "condition group not found", err)
		return
	}
	conds, err := processor.Conditions(r.Context(), groupID)
	if err != nil {
		respondError(w, statusFor(err), "failed to load conditions", err)
		return
	}
	if conds == nil {
		conds = []*conditions.DataCondition{}
	}

	respondJSON(w, http.StatusOK, GroupResponse{DataConditionGroup: group, Conditions: conds})
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid condition group id", err)
		return
	}

	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	group := &conditions.DataConditionGroup{
		ID:        groupID,
		LogicType: conditions.LogicType(req.LogicType),
	}
	if err := processorFrom(r).UpdateGroup(r.Context(), group); err != nil {
		respondError(w, statusFor(err), "failed to update condition group", err)
		return
	}

	respondJSON(w, http.StatusOK, group)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid condition group id", err)
		return
	}

	if err := processorFrom(r).DeleteGroup(r.Context(), groupID); err != nil {
		respondError(w, statusFor(err), "failed to delete condition group", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleEvaluate processes a value against a group. A group that does not
// exist is not an error: the response is simply not triggered.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid condition group id", err)
		return
	}

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	evaluationID := uuid.NewString()
	start := time.Now()

	result, err := processorFrom(r).Process(r.Context(), groupID, req.Value)
	if err != nil {
		logger.Error("evaluation failed", "evaluation_id", evaluationID, "group_id", groupID, "error", err)
		respondError(w, http.StatusInternalServerError, "evaluation failed", err)
		return
	}

	respondJSON(w, http.StatusOK, EvaluateResponse{
		EvaluationID:   evaluationID,
		GroupID:        groupID,
		Triggered:      result.Triggered,
		Results:        result.Results,
		EvaluationTime: time.Since(start).String(),
	})
}

func (s *Server) handleListConditions(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid condition group id", err)
		return
	}

	processor := processorFrom(r)
	if _, err := processor.Group(r.Context(), groupID); err != nil {
		respondError(w, statusFor(err), "condition group not found", err)
		return
	}
	conds, err := processor.Conditions(r.Context(), groupID)
	if err != nil {
		respondError(w, statusFor(err), "failed to list conditions", err)
		return
	}
	if conds == nil {
		conds = []*conditions.DataCondition{}
	}

	respondJSON(w, http.StatusOK, ConditionsListResponse{Conditions: conds})
}

func (s *Server) handleCreateCondition(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid condition group id", err)
		return
	}

	var req ConditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	condition := &conditions.DataCondition{
		ID:               req.ID,
		ConditionGroupID: groupID,
		Type:             conditions.ConditionType(req.Type),
		Comparison:       req.Comparison,
		ConditionResult:  req.ConditionResult,
	}
	if err := processorFrom(r).AddCondition(r.Context(), condition); err != nil {
		respondError(w, statusFor(err), "failed to create condition", err)
		return
	}

	respondJSON(w, http.StatusCreated, condition)
}

func (s *Server) handleGetCondition(w http.ResponseWriter, r *http.Request) {
	condition, ok := s.conditionInGroup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, condition)
}

func (s *Server) handleUpdateCondition(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.conditionInGroup(w, r)
	if !ok {
		return
	}

	var req ConditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	groupID := existing.ConditionGroupID
	if req.ConditionGroupID != 0 {
		groupID = req.ConditionGroupID
	}

	condition := &conditions.DataCondition{
		ID:               existing.ID,
		ConditionGroupID: groupID,
		Type:             conditions.ConditionType(req.Type),
		Comparison:       req.Comparison,
		ConditionResult:  req.ConditionResult,
	}
	if err := processorFrom(r).UpdateCondition(r.Context(), condition); err != nil {
		respondError(w, statusFor(err), "failed to update condition", err)
		return
	}

	respondJSON(w, http.StatusOK, condition)
}

func (s *Server) handleDeleteCondition(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.conditionInGroup(w, r)
	if !ok {
		return
	}

	if err := processorFrom(r).DeleteCondition(r.Context(), existing.ID); err != nil {
		respondError(w, statusFor(err), "failed to delete condition", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// conditionInGroup loads {conditionId} and checks it belongs to {groupId},
// writing the error response when it does not
func (s *Server) conditionInGroup(w http.ResponseWriter, r *http.Request) (*conditions.DataCondition, bool) {
	groupID, err := pathID(r, "groupId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid condition group id", err)
		return nil, false
	}
	conditionID, err := pathID(r, "conditionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid condition id", err)
		return nil, false
	}

	condition, err := processorFrom(r).GetCondition(r.Context(), conditionID)
	if err != nil {
		respondError(w, statusFor(err), "condition not found", err)
		return nil, false
	}
	if condition.ConditionGroupID != groupID {
		err := fmt.Errorf("condition %d: %w in group %d", conditionID, conditions.ErrConditionNotFound, groupID)
		respondError(w, http.StatusNotFound, "condition not found", err)
		return nil, false
	}
	return condition, true
}

func pathID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", param, raw)
	}
	return id, nil
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, conditions.ErrGroupNotFound),
		errors.Is(err, conditions.ErrConditionNotFound),
		errors.Is(err, orgmanager.ErrOrganizationNotFound):
		return http.StatusNotFound
	case errors.Is(err, conditions.ErrDuplicate),
		errors.Is(err, conditions.ErrUnknownLogicType),
		errors.Is(err, conditions.ErrUnknownConditionType),
		errors.Is(err, conditions.ErrInvalidCondition),
		errors.Is(err, orgmanager.ErrInvalidOrganization):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}
