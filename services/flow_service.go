package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"flow-pantry-system/models"
	"flow-pantry-system/store"
	"flow-pantry-system/utils"
	"flow-pantry-system/validation"

	"go.uber.org/zap"
)

const flowObjectKind = "flows"

// Upload is a file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// flow fields that a patch may not overwrite.
var flowLocked = map[string]bool{
	"id":             true,
	"userId":         true,
	"createdAt":      true,
	"updatedAt":      true,
	"searchableText": true,
	"fileName":       true,
	"fileUrl":        true,
	"fileSize":       true,
	"status":         true,
}

type FlowService struct {
	Store       store.Store
	Objects     utils.ObjectStore
	Users       *UserService
	Tournaments *TournamentService
	Log         *zap.Logger
	Now         func() time.Time
}

func NewFlowService(st store.Store, objects utils.ObjectStore, users *UserService, tournaments *TournamentService, log *zap.Logger) *FlowService {
	return &FlowService{
		Store:       st,
		Objects:     objects,
		Users:       users,
		Tournaments: tournaments,
		Log:         log,
		Now:         time.Now,
	}
}

// UploadFlow stores the file, records the flow and links it to the tournament
// named in meta. The flow insert and the tournament link share one transaction.
func (s *FlowService) UploadFlow(ctx context.Context, owner models.Identity, file Upload, meta models.FlowMetadata) (*models.Flow, error) {
	if err := validation.Identity(owner); err != nil {
		return nil, err
	}
	if err := validation.FlowMetadata(file.FileName, meta); err != nil {
		return nil, err
	}

	objectPath := utils.ObjectPath(flowObjectKind, owner.UID, file.FileName)
	locator, err := s.Objects.Upload(ctx, file.Body, file.Size, file.ContentType, objectPath)
	if err != nil {
		s.Log.Error("[Flows] file upload failed", zap.String("path", objectPath), zap.Error(err))
		return nil, err
	}

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = file.FileName
	}
	pageCount := meta.PageCount
	if pageCount == 0 {
		pageCount = 1
	}
	tournamentName := strings.TrimSpace(meta.Tournament)

	flow := &models.Flow{
		UserID:   owner.UID,
		FileName: file.FileName,
		FileURL:  locator,
		Title:    title,
		Tournament: models.TournamentRef{
			Name: tournamentName,
			Date: strings.TrimSpace(meta.TournamentDate),
		},
		Round:          strings.TrimSpace(meta.Round),
		Team:           strings.ToLower(strings.TrimSpace(meta.Team)),
		Judge:          strings.TrimSpace(meta.Judge),
		Division:       strings.TrimSpace(meta.Division),
		Tags:           cleanTags(meta.Tags),
		PageCount:      pageCount,
		FileSize:       file.Size,
		Status:         models.FlowStatusActive,
	}
	flow.SearchableText = searchableText(metadataOf(flow))

	err = s.Store.Transaction(ctx, func(tx store.Store) error {
		tournament, err := findTournamentByName(ctx, tx, tournamentName)
		if err != nil {
			return err
		}
		if tournament != nil {
			flow.Tournament.ID = tournament.ID
			if flow.Tournament.Date == "" {
				flow.Tournament.Date = tournament.Date
			}
		}
		if err := tx.Create(ctx, store.Flows, flow); err != nil {
			return err
		}
		if tournament != nil {
			return addFlowID(ctx, tx, tournament.ID, flow.ID)
		}
		return nil
	})
	if err != nil {
		s.Log.Error("[Flows] saving flow failed", zap.String("user_id", owner.UID), zap.String("file", file.FileName), zap.Error(err))
		if delErr := s.Objects.Delete(ctx, locator); delErr != nil {
			s.Log.Warn("⚠️ [Flows] orphaned upload left behind", zap.String("path", objectPath), zap.Error(delErr))
		}
		return nil, err
	}

	if _, err := s.Users.EnsureUser(ctx, owner); err != nil {
		return nil, err
	}
	if _, err := s.Users.RecomputeFlowStats(ctx, owner.UID); err != nil {
		return nil, err
	}

	s.Log.Info("📄 [Flows] uploaded", zap.String("flow_id", flow.ID), zap.String("user_id", owner.UID), zap.String("tournament_id", flow.Tournament.ID))
	return flow, nil
}

// findTournamentByName returns nil when the name is empty or unknown.
func findTournamentByName(ctx context.Context, st store.Store, name string) (*models.Tournament, error) {
	if name == "" {
		return nil, nil
	}
	var found []models.Tournament
	if err := st.Query(ctx, store.Tournaments, store.Query{
		Conditions: []store.Condition{store.Where("name", store.OpEqual, name)},
		OrderBy:    "createdAt",
		Direction:  store.Asc,
		Limit:      1,
	}, &found); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// ListFlows returns uid's active flows, newest first. Round, division, tags and
// the date range are applied by the store; team, judge, title and tournament
// name are case-insensitive substring matches applied afterwards.
func (s *FlowService) ListFlows(ctx context.Context, uid string, filter models.FlowFilter) ([]models.Flow, error) {
	conditions := []store.Condition{
		store.Where("userId", store.OpEqual, uid),
		store.Where("status", store.OpEqual, models.FlowStatusActive),
	}
	if v := strings.TrimSpace(filter.Round); v != "" {
		conditions = append(conditions, store.Where("round", store.OpEqual, v))
	}
	if v := strings.TrimSpace(filter.Division); v != "" {
		conditions = append(conditions, store.Where("division", store.OpEqual, v))
	}
	if tags := cleanTags(filter.Tags); len(tags) > 0 {
		conditions = append(conditions, store.Where("tags", store.OpArrayContainsAny, []string(tags)))
	}
	if filter.StartDate != "" {
		start, err := validation.ParseDate(filter.StartDate)
		if err != nil {
			return nil, models.NewValidationError("startDate", "must be a valid date")
		}
		conditions = append(conditions, store.Where("createdAt", store.OpGreaterEqual, start.UTC()))
	}
	if filter.EndDate != "" {
		end, err := endOfDay(filter.EndDate)
		if err != nil {
			return nil, models.NewValidationError("endDate", "must be a valid date")
		}
		conditions = append(conditions, store.Where("createdAt", store.OpLessEqual, end))
	}

	var flows []models.Flow
	if err := s.Store.Query(ctx, store.Flows, store.Query{
		Conditions: conditions,
		OrderBy:    "createdAt",
		Direction:  store.Desc,
	}, &flows); err != nil {
		s.Log.Error("[Flows] list failed", zap.String("user_id", uid), zap.Error(err))
		return nil, err
	}

	out := make([]models.Flow, 0, len(flows))
	for _, f := range flows {
		if containsFold(f.Team, filter.Team) &&
			containsFold(f.Judge, filter.Judge) &&
			containsFold(f.Title, filter.Title) &&
			containsFold(f.Tournament.Name, filter.Tournament) {
			out = append(out, f)
		}
	}
	return out, nil
}

// endOfDay turns a calendar date into its last second, 23:59:59 UTC.
func endOfDay(date string) (time.Time, error) {
	return time.Parse(time.RFC3339, date+"T23:59:59Z")
}

func (s *FlowService) GetFlow(ctx context.Context, id, uid string) (*models.Flow, error) {
	var flow models.Flow
	if err := s.Store.Get(ctx, store.Flows, id, &flow); err != nil {
		return nil, err
	}
	if flow.UserID != uid {
		return nil, fmt.Errorf("flow %s belongs to another user: %w", id, models.ErrUnauthorized)
	}
	return &flow, nil
}

// UpdateFlow rewrites the whole flow with patch merged over it. Changing
// tournament.id moves the flow between tournament arrays in the same transaction.
func (s *FlowService) UpdateFlow(ctx context.Context, id, uid string, patch map[string]any) (*models.Flow, error) {
	current, err := s.GetFlow(ctx, id, uid)
	if err != nil {
		return nil, err
	}
	for key := range patch {
		if flowLocked[key] {
			return nil, models.NewValidationError(key, "cannot be updated")
		}
	}

	merged, err := mergeFlow(current, patch)
	if err != nil {
		return nil, err
	}
	merged.Team = strings.ToLower(strings.TrimSpace(merged.Team))
	merged.Tags = cleanTags(merged.Tags)
	if err := validation.FlowMetadata(merged.FileName, metadataOf(merged)); err != nil {
		return nil, err
	}

	oldTournament := current.Tournament.ID
	newTournament := merged.Tournament.ID

	err = s.Store.Transaction(ctx, func(tx store.Store) error {
		if newTournament != oldTournament && newTournament != "" {
			var t models.Tournament
			if err := tx.Get(ctx, store.Tournaments, newTournament, &t); err != nil {
				return err
			}
			merged.Tournament.Name = t.Name
			if merged.Tournament.Date == "" || merged.Tournament.Date == current.Tournament.Date {
				merged.Tournament.Date = t.Date
			}
		}
		if newTournament == "" && oldTournament != "" {
			merged.Tournament.Name = ""
			merged.Tournament.Date = ""
		}
		merged.SearchableText = searchableText(metadataOf(merged))
		if err := tx.Replace(ctx, store.Flows, merged); err != nil {
			return err
		}
		if newTournament == oldTournament {
			return nil
		}
		if err := unlinkFlow(ctx, tx, oldTournament, id); err != nil {
			return err
		}
		if newTournament != "" {
			return addFlowID(ctx, tx, newTournament, id)
		}
		return nil
	})
	if err != nil {
		s.Log.Error("[Flows] update failed", zap.String("flow_id", id), zap.Error(err))
		return nil, err
	}
	return merged, nil
}

// mergeFlow overlays patch on the JSON form of current. Unknown keys are rejected.
func mergeFlow(current *models.Flow, patch map[string]any) (*models.Flow, error) {
	raw, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	for key, v := range patch {
		if nested, ok := v.(map[string]any); ok {
			if existing, ok := doc[key].(map[string]any); ok {
				for nk, nv := range nested {
					existing[nk] = nv
				}
				continue
			}
		}
		doc[key] = v
	}

	raw, err = json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var merged models.Flow
	if err := dec.Decode(&merged); err != nil {
		return nil, models.NewValidationError("flow", fmt.Sprintf("invalid update: %v", err))
	}
	merged.CreatedAt = current.CreatedAt
	return &merged, nil
}

// DeleteFlow removes the file, the tournament link and the document, in that order.
func (s *FlowService) DeleteFlow(ctx context.Context, id, uid string) error {
	flow, err := s.GetFlow(ctx, id, uid)
	if err != nil {
		return err
	}
	if err := s.removeFlow(ctx, flow); err != nil {
		return err
	}
	_, err = s.Users.RecomputeFlowStats(ctx, uid)
	return err
}

func (s *FlowService) removeFlow(ctx context.Context, flow *models.Flow) error {
	target := flow.FileURL
	if target == "" {
		target = utils.ObjectPath(flowObjectKind, flow.UserID, flow.FileName)
	}
	if err := s.Objects.Delete(ctx, target); err != nil {
		s.Log.Error("[Flows] file delete failed", zap.String("flow_id", flow.ID), zap.Error(err))
		return err
	}
	if err := unlinkFlow(ctx, s.Store, flow.Tournament.ID, flow.ID); err != nil {
		s.Log.Error("[Flows] tournament unlink failed", zap.String("flow_id", flow.ID), zap.Error(err))
		return err
	}
	if err := s.Store.Delete(ctx, store.Flows, flow.ID); err != nil {
		return err
	}
	s.Log.Info("🗑️ [Flows] deleted", zap.String("flow_id", flow.ID))
	return nil
}

// ArchiveFlow hides a flow from listings and stats without deleting it.
func (s *FlowService) ArchiveFlow(ctx context.Context, id, uid string) error {
	if _, err := s.GetFlow(ctx, id, uid); err != nil {
		return err
	}
	if err := s.Store.Update(ctx, store.Flows, id, map[string]any{"status": models.FlowStatusDeleted}); err != nil {
		s.Log.Error("[Flows] archive failed", zap.String("flow_id", id), zap.Error(err))
		return err
	}
	_, err := s.Users.RecomputeFlowStats(ctx, uid)
	return err
}

// PurgeArchivedFlows hard-deletes flows archived longer than retention ago.
func (s *FlowService) PurgeArchivedFlows(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := s.Now().UTC().Add(-retention)
	var flows []models.Flow
	if err := s.Store.Query(ctx, store.Flows, store.Query{
		Conditions: []store.Condition{
			store.Where("status", store.OpEqual, models.FlowStatusDeleted),
			store.Where("updatedAt", store.OpLessEqual, cutoff),
		},
		OrderBy:   "updatedAt",
		Direction: store.Asc,
	}, &flows); err != nil {
		return 0, err
	}

	purged := 0
	var errs []error
	for i := range flows {
		if err := s.removeFlow(ctx, &flows[i]); err != nil {
			errs = append(errs, err)
			continue
		}
		purged++
	}
	return purged, errors.Join(errs...)
}
