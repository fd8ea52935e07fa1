package services

import (
	"context"
	"errors"
	"math"

	"flow-pantry-system/models"
	"flow-pantry-system/store"
	"flow-pantry-system/validation"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	// SheetsPerTree is how many printed pages one tree yields.
	SheetsPerTree = 8333
	// CO2KgPerSheet is the carbon cost of one printed page.
	CO2KgPerSheet = 0.006
)

type UserService struct {
	Store store.Store
	Log   *zap.Logger
}

func NewUserService(st store.Store, log *zap.Logger) *UserService {
	return &UserService{Store: st, Log: log}
}

// EnsureUser creates the user document on first sign-in and returns it.
func (s *UserService) EnsureUser(ctx context.Context, identity models.Identity) (*models.User, error) {
	if err := validation.Identity(identity); err != nil {
		return nil, err
	}

	var user models.User
	err := s.Store.Get(ctx, store.Users, identity.UID, &user)
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.Log.Error("[Users] lookup failed", zap.String("user_id", identity.UID), zap.Error(err))
		return nil, err
	}

	photo := identity.PhotoURL
	if photo == "" {
		photo = models.DefaultAvatar
	}
	user = models.User{
		Document:        models.Document{ID: identity.UID},
		DisplayName:     identity.DisplayName,
		Email:           identity.Email,
		PhotoURL:        photo,
		ItemsByCategory: datatypes.NewJSONType(map[string]int{}),
	}
	if err := s.Store.Create(ctx, store.Users, &user); err != nil {
		s.Log.Error("[Users] create failed", zap.String("user_id", identity.UID), zap.Error(err))
		return nil, err
	}
	s.Log.Info("✅ [Users] created user document", zap.String("user_id", identity.UID))
	return &user, nil
}

// GetUserProfile returns nil without error when the user has no document yet.
func (s *UserService) GetUserProfile(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := s.Store.Get(ctx, store.Users, uid, &user); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		s.Log.Error("[Users] profile lookup failed", zap.String("user_id", uid), zap.Error(err))
		return nil, err
	}
	return &user, nil
}

func (s *UserService) UpdateUserProfile(ctx context.Context, uid string, patch map[string]any) (*models.User, error) {
	if err := validation.ProfileUpdate(patch); err != nil {
		return nil, err
	}
	if err := s.Store.Update(ctx, store.Users, uid, patch); err != nil {
		s.Log.Error("[Users] profile update failed", zap.String("user_id", uid), zap.Error(err))
		return nil, err
	}
	var user models.User
	if err := s.Store.Get(ctx, store.Users, uid, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RecomputeInventoryStats rescans every inventory item of the user and
// overwrites totalItems and itemsByCategory.
func (s *UserService) RecomputeInventoryStats(ctx context.Context, uid string) (*models.User, error) {
	var items []models.InventoryItem
	if err := s.Store.Query(ctx, store.Inventory, store.Query{
		Conditions: []store.Condition{store.Where("userId", store.OpEqual, uid)},
	}, &items); err != nil {
		s.Log.Error("[Users] inventory scan failed", zap.String("user_id", uid), zap.Error(err))
		return nil, err
	}

	byCategory := make(map[string]int)
	for _, item := range items {
		byCategory[item.Category] += item.Quantity
	}
	return s.overwriteStats(ctx, uid, map[string]any{
		"totalItems":      len(items),
		"itemsByCategory": byCategory,
	})
}

// RecomputeFlowStats rescans the user's active flows and overwrites
// totalFlows and treesSpared.
func (s *UserService) RecomputeFlowStats(ctx context.Context, uid string) (*models.User, error) {
	var flows []models.Flow
	if err := s.Store.Query(ctx, store.Flows, store.Query{
		Conditions: []store.Condition{
			store.Where("userId", store.OpEqual, uid),
			store.Where("status", store.OpEqual, models.FlowStatusActive),
		},
	}, &flows); err != nil {
		s.Log.Error("[Users] flow scan failed", zap.String("user_id", uid), zap.Error(err))
		return nil, err
	}

	pages := 0
	for _, f := range flows {
		pages += f.PageCount
	}
	return s.overwriteStats(ctx, uid, map[string]any{
		"totalFlows":  len(flows),
		"treesSpared": treesSpared(pages),
	})
}

// overwriteStats fails with ErrNotFound when the user has no document to hold the numbers.
func (s *UserService) overwriteStats(ctx context.Context, uid string, stats map[string]any) (*models.User, error) {
	if err := s.Store.Update(ctx, store.Users, uid, stats); err != nil {
		s.Log.Error("[Users] stats update failed", zap.String("user_id", uid), zap.Error(err))
		return nil, err
	}
	var user models.User
	if err := s.Store.Get(ctx, store.Users, uid, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Leaderboard ranks users by active flow count.
func (s *UserService) Leaderboard(ctx context.Context, limit int) (*models.Leaderboard, error) {
	var users []models.User
	if err := s.Store.Query(ctx, store.Users, store.Query{
		OrderBy:   "totalFlows",
		Direction: store.Desc,
		Limit:     limit,
	}, &users); err != nil {
		s.Log.Error("[Users] leaderboard query failed", zap.Error(err))
		return nil, err
	}

	board := &models.Leaderboard{Entries: make([]models.LeaderboardEntry, 0, len(users))}
	for i, u := range users {
		entry := models.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      u.ID,
			DisplayName: u.DisplayName,
			PhotoURL:    u.PhotoURL,
			TotalFlows:  u.TotalFlows,
			TreesSpared: u.TreesSpared,
			CO2SavedKg:  co2Saved(u.TotalFlows),
		}
		board.Entries = append(board.Entries, entry)
		board.TotalFlows += u.TotalFlows
		board.TotalTreesSpared += u.TreesSpared
	}
	board.TotalCO2SavedKg = co2Saved(board.TotalFlows)
	return board, nil
}

// treesSpared keeps four decimals; a single flow is a tiny fraction of a tree.
func treesSpared(pages int) float64 {
	return math.Round(float64(pages)/SheetsPerTree*1e4) / 1e4
}

func co2Saved(sheets int) float64 {
	return math.Round(float64(sheets)*CO2KgPerSheet*100) / 100
}
