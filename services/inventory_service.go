package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flow-pantry-system/models"
	"flow-pantry-system/store"
	"flow-pantry-system/utils"
	"flow-pantry-system/validation"

	"go.uber.org/zap"
)

const (
	inventoryObjectKind = "inventory"
	// DefaultLowStockThreshold is the quantity at or below which an item counts as low.
	DefaultLowStockThreshold = 3
)

type InventoryService struct {
	Store   store.Store
	Objects utils.ObjectStore
	Users   *UserService
	Log     *zap.Logger
}

func NewInventoryService(st store.Store, objects utils.ObjectStore, users *UserService, log *zap.Logger) *InventoryService {
	return &InventoryService{Store: st, Objects: objects, Users: users, Log: log}
}

// UploadInventoryItem defaults quantity to 1 and category to Uncategorized,
// validates, stores the optional image and records the item. The owner must
// already have a user document to hold the aggregates.
func (s *InventoryService) UploadInventoryItem(ctx context.Context, uid string, file *Upload, fields map[string]any) (*models.InventoryItem, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	if fields["quantity"] == nil {
		fields["quantity"] = 1
	}
	switch c := fields["category"].(type) {
	case nil:
		fields["category"] = models.DefaultCategory
	case string:
		if strings.TrimSpace(c) == "" {
			fields["category"] = models.DefaultCategory
		}
	}
	if err := validation.InventoryMetadata(fields); err != nil {
		return nil, err
	}
	if err := s.Store.Get(ctx, store.Users, uid, &models.User{}); err != nil {
		s.Log.Warn("⚠️ [Inventory] owner has no user document", zap.String("user_id", uid), zap.Error(err))
		return nil, err
	}

	item := &models.InventoryItem{
		UserID:         uid,
		Name:           strings.TrimSpace(fields["name"].(string)),
		Quantity:       validation.Quantity(fields["quantity"]),
		Category:       strings.TrimSpace(fields["category"].(string)),
		Notes:          stringField(fields, "notes"),
		DetectedLabels: models.StringList{},
	}
	if d := stringField(fields, "expiryDate"); d != "" {
		item.ExpiryDate = &d
	}

	if file != nil {
		objectPath := utils.ObjectPath(inventoryObjectKind, uid, file.FileName)
		locator, err := s.Objects.Upload(ctx, file.Body, file.Size, file.ContentType, objectPath)
		if err != nil {
			s.Log.Error("[Inventory] image upload failed", zap.String("path", objectPath), zap.Error(err))
			return nil, err
		}
		item.FileName = file.FileName
		item.ImageURL = locator
	}

	if err := s.Store.Create(ctx, store.Inventory, item); err != nil {
		s.Log.Error("[Inventory] create failed", zap.String("user_id", uid), zap.Error(err))
		return nil, err
	}
	if _, err := s.Users.RecomputeInventoryStats(ctx, uid); err != nil {
		return nil, err
	}
	return item, nil
}

// ListInventory applies category and expiry on the store and the search text afterwards.
func (s *InventoryService) ListInventory(ctx context.Context, uid string, filter models.InventoryFilter) ([]models.InventoryItem, error) {
	conditions := []store.Condition{store.Where("userId", store.OpEqual, uid)}
	if c := strings.TrimSpace(filter.Category); c != "" {
		conditions = append(conditions, store.Where("category", store.OpEqual, c))
	}
	if d := strings.TrimSpace(filter.ExpiryDate); d != "" {
		if _, err := validation.ParseDate(d); err != nil {
			return nil, models.NewValidationError("expiryDate", "must be a valid date")
		}
		conditions = append(conditions, store.Where("expiryDate", store.OpLessEqual, d))
	}

	var items []models.InventoryItem
	if err := s.Store.Query(ctx, store.Inventory, store.Query{
		Conditions: conditions,
		OrderBy:    "updatedAt",
		Direction:  store.Desc,
	}, &items); err != nil {
		s.Log.Error("[Inventory] list failed", zap.String("user_id", uid), zap.Error(err))
		return nil, err
	}

	if strings.TrimSpace(filter.Search) == "" {
		return items, nil
	}
	out := make([]models.InventoryItem, 0, len(items))
	for _, item := range items {
		if matchesSearch(item, filter.Search) {
			out = append(out, item)
		}
	}
	return out, nil
}

func matchesSearch(item models.InventoryItem, term string) bool {
	if containsFold(item.Name, term) || containsFold(item.Category, term) {
		return true
	}
	for _, label := range item.DetectedLabels {
		if containsFold(label, term) {
			return true
		}
	}
	return false
}

// LowStockItems lists items with quantity at or below threshold, lowest first.
func (s *InventoryService) LowStockItems(ctx context.Context, uid string, threshold int) ([]models.InventoryItem, error) {
	if threshold < 0 {
		threshold = DefaultLowStockThreshold
	}
	var items []models.InventoryItem
	err := s.Store.Query(ctx, store.Inventory, store.Query{
		Conditions: []store.Condition{
			store.Where("userId", store.OpEqual, uid),
			store.Where("quantity", store.OpLessEqual, threshold),
		},
		OrderBy:   "quantity",
		Direction: store.Asc,
	}, &items)
	return items, err
}

func (s *InventoryService) GetInventoryItem(ctx context.Context, id, uid string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := s.Store.Get(ctx, store.Inventory, id, &item); err != nil {
		return nil, err
	}
	if item.UserID != uid {
		return nil, fmt.Errorf("inventory item %s belongs to another user: %w", id, models.ErrUnauthorized)
	}
	return &item, nil
}

// UpdateInventoryItem applies a validated partial update. Quantity changes refresh the user's stats.
func (s *InventoryService) UpdateInventoryItem(ctx context.Context, id, uid string, patch map[string]any) (*models.InventoryItem, error) {
	if _, err := s.GetInventoryItem(ctx, id, uid); err != nil {
		return nil, err
	}
	for _, key := range []string{"userId", "imageUrl", "fileName"} {
		if _, ok := patch[key]; ok {
			return nil, models.NewValidationError(key, "cannot be updated")
		}
	}
	if err := s.Store.Update(ctx, store.Inventory, id, patch); err != nil {
		s.Log.Error("[Inventory] update failed", zap.String("item_id", id), zap.Error(err))
		return nil, err
	}
	_, quantityChanged := patch["quantity"]
	_, categoryChanged := patch["category"]
	if quantityChanged || categoryChanged {
		if _, err := s.Users.RecomputeInventoryStats(ctx, uid); err != nil {
			return nil, err
		}
	}
	return s.GetInventoryItem(ctx, id, uid)
}

func (s *InventoryService) UpdateItemQuantity(ctx context.Context, id, uid string, quantity any) (*models.InventoryItem, error) {
	return s.UpdateInventoryItem(ctx, id, uid, map[string]any{"quantity": quantity})
}

// DeleteInventoryItem removes the image at inventory/{uid}/{fileName}, then the document.
func (s *InventoryService) DeleteInventoryItem(ctx context.Context, id, uid string) error {
	item, err := s.GetInventoryItem(ctx, id, uid)
	if err != nil {
		return err
	}
	if item.FileName != "" {
		if err := s.Objects.Delete(ctx, utils.ObjectPath(inventoryObjectKind, uid, item.FileName)); err != nil {
			s.Log.Error("[Inventory] image delete failed", zap.String("item_id", id), zap.Error(err))
			return err
		}
	}
	if err := s.Store.Delete(ctx, store.Inventory, id); err != nil {
		return err
	}
	_, err = s.Users.RecomputeInventoryStats(ctx, uid)
	return err
}

// ItemsAwaitingLabels returns images that have not been through object detection yet.
func (s *InventoryService) ItemsAwaitingLabels(ctx context.Context, limit int) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := s.Store.Query(ctx, store.Inventory, store.Query{
		Conditions: []store.Condition{
			store.Where("labelsCheckedAt", store.OpEqual, nil),
			store.Where("imageUrl", store.OpNotEqual, ""),
		},
		OrderBy:   "createdAt",
		Direction: store.Asc,
		Limit:     limit,
	}, &items)
	return items, err
}

// RecordLabels stores detection output and marks the item as checked.
func (s *InventoryService) RecordLabels(ctx context.Context, id string, labels []string) error {
	return s.Store.Update(ctx, store.Inventory, id, map[string]any{
		"detectedLabels":  labels,
		"labelsCheckedAt": time.Now().UTC(),
	})
}
