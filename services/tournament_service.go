package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flow-pantry-system/models"
	"flow-pantry-system/store"
	"flow-pantry-system/validation"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// fields a tournament update may not touch; flows and participants have their own operations.
var tournamentLocked = map[string]bool{
	"flows":        true,
	"participants": true,
	"createdBy":    true,
	"slug":         true,
}

type TournamentService struct {
	Store store.Store
	Log   *zap.Logger
}

func NewTournamentService(st store.Store, log *zap.Logger) *TournamentService {
	return &TournamentService{Store: st, Log: log}
}

func (s *TournamentService) CreateTournament(ctx context.Context, uid string, fields map[string]any) (*models.Tournament, error) {
	if err := validation.Tournament(fields); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(fields["name"].(string))
	t := &models.Tournament{
		Name:         name,
		Slug:         slug.Make(name),
		Date:         stringField(fields, "date"),
		Location:     stringField(fields, "location"),
		Description:  stringField(fields, "description"),
		Flows:        models.StringList{},
		Participants: models.StringList{uid},
		CreatedBy:    uid,
	}
	if v, ok := fields["isPublic"].(bool); ok {
		t.IsPublic = v
	}

	if err := s.Store.Create(ctx, store.Tournaments, t); err != nil {
		s.Log.Error("[Tournaments] create failed", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	s.Log.Info("🏆 [Tournaments] created", zap.String("tournament_id", t.ID), zap.String("slug", t.Slug))
	return t, nil
}

// ListUserTournaments returns the tournaments uid takes part in, latest date first.
func (s *TournamentService) ListUserTournaments(ctx context.Context, uid string) ([]models.Tournament, error) {
	var out []models.Tournament
	err := s.Store.Query(ctx, store.Tournaments, store.Query{
		Conditions: []store.Condition{store.Where("participants", store.OpArrayContains, uid)},
		OrderBy:    "date",
		Direction:  store.Desc,
	}, &out)
	if err != nil {
		s.Log.Error("[Tournaments] list by participant failed", zap.String("user_id", uid), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (s *TournamentService) ListTournaments(ctx context.Context) ([]models.Tournament, error) {
	var out []models.Tournament
	if err := s.Store.Query(ctx, store.Tournaments, store.Query{OrderBy: "name", Direction: store.Asc}, &out); err != nil {
		s.Log.Error("[Tournaments] list failed", zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (s *TournamentService) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	var t models.Tournament
	if err := s.Store.Get(ctx, store.Tournaments, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TournamentService) GetTournamentBySlug(ctx context.Context, tournamentSlug string) (*models.Tournament, error) {
	var out []models.Tournament
	if err := s.Store.Query(ctx, store.Tournaments, store.Query{
		Conditions: []store.Condition{store.Where("slug", store.OpEqual, tournamentSlug)},
		OrderBy:    "createdAt",
		Direction:  store.Asc,
		Limit:      1,
	}, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("tournament %q: %w", tournamentSlug, models.ErrNotFound)
	}
	return &out[0], nil
}

// UpdateTournament lets the creator change the descriptive fields.
func (s *TournamentService) UpdateTournament(ctx context.Context, id, uid string, patch map[string]any) (*models.Tournament, error) {
	current, err := s.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.CreatedBy != uid {
		return nil, fmt.Errorf("only the creator can update tournament %s: %w", id, models.ErrUnauthorized)
	}
	for key := range patch {
		if tournamentLocked[key] {
			return nil, models.NewValidationError(key, "cannot be updated")
		}
	}
	if d, ok := patch["date"]; ok {
		if err := validation.Tournament(map[string]any{"name": current.Name, "date": d}); err != nil {
			return nil, err
		}
	}
	if name, ok := patch["name"]; ok {
		n, isString := name.(string)
		if !isString || strings.TrimSpace(n) == "" {
			return nil, models.NewValidationError("name", "is required")
		}
		patch["name"] = strings.TrimSpace(n)
		patch["slug"] = slug.Make(n)
	}

	if err := s.Store.Update(ctx, store.Tournaments, id, patch); err != nil {
		s.Log.Error("[Tournaments] update failed", zap.String("tournament_id", id), zap.Error(err))
		return nil, err
	}
	return s.GetTournament(ctx, id)
}

func (s *TournamentService) AddFlowToTournament(ctx context.Context, tournamentID, flowID string) error {
	return addFlowID(ctx, s.Store, tournamentID, flowID)
}

func (s *TournamentService) RemoveFlowFromTournament(ctx context.Context, tournamentID, flowID string) error {
	return removeFlowID(ctx, s.Store, tournamentID, flowID)
}

// ListTournamentFlows joins at read time: active flows whose tournament.id points here.
func (s *TournamentService) ListTournamentFlows(ctx context.Context, tournamentID string) ([]models.Flow, error) {
	if _, err := s.GetTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	var flows []models.Flow
	if err := s.Store.Query(ctx, store.Flows, store.Query{
		Conditions: []store.Condition{
			store.Where("tournament.id", store.OpEqual, tournamentID),
			store.Where("status", store.OpEqual, models.FlowStatusActive),
		},
		OrderBy:   "createdAt",
		Direction: store.Desc,
	}, &flows); err != nil {
		s.Log.Error("[Tournaments] flow join failed", zap.String("tournament_id", tournamentID), zap.Error(err))
		return nil, err
	}
	return flows, nil
}

// addFlowID appends flowID to the tournament's flow array unless it is already there.
func addFlowID(ctx context.Context, st store.Store, tournamentID, flowID string) error {
	var t models.Tournament
	if err := st.Get(ctx, store.Tournaments, tournamentID, &t); err != nil {
		return err
	}
	if t.Flows.Contains(flowID) {
		return nil
	}
	flows := append(models.StringList{}, t.Flows...)
	return st.Update(ctx, store.Tournaments, tournamentID, map[string]any{"flows": append(flows, flowID)})
}

// removeFlowID drops flowID from the array. A missing id or empty array is a no-op.
func removeFlowID(ctx context.Context, st store.Store, tournamentID, flowID string) error {
	var t models.Tournament
	if err := st.Get(ctx, store.Tournaments, tournamentID, &t); err != nil {
		return err
	}
	if !t.Flows.Contains(flowID) {
		return nil
	}
	return st.Update(ctx, store.Tournaments, tournamentID, map[string]any{"flows": t.Flows.Without(flowID)})
}

// unlinkFlow is removeFlowID that also tolerates a deleted tournament.
func unlinkFlow(ctx context.Context, st store.Store, tournamentID, flowID string) error {
	if tournamentID == "" {
		return nil
	}
	if err := removeFlowID(ctx, st, tournamentID, flowID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	return nil
}

func stringField(fields map[string]any, key string) string {
	v, _ := fields[key].(string)
	return strings.TrimSpace(v)
}
