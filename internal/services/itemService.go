package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"shelftrack/internal/metrics"
	"shelftrack/internal/models"
	"shelftrack/internal/query"
	"shelftrack/internal/repositories"
	"shelftrack/internal/storage"
	"shelftrack/internal/utils"
)

// searchFields are the item fields the free-text "q" parameter matches.
var searchFields = []string{"title", "author", "brand"}

var defaultSort = bson.D{{Key: "createdAt", Value: -1}}

type ItemService interface {
	GetItems(ctx context.Context, params url.Values) (*models.ItemListResponse, error)
	GetItemByID(ctx context.Context, itemID primitive.ObjectID) (*models.ItemWithOwner, error)
	AddItem(ctx context.Context, userID primitive.ObjectID, req models.AddItemRequest) (*models.Item, error)
	UpdateItem(ctx context.Context, userID, itemID primitive.ObjectID, req models.UpdateItemRequest) (*models.ItemWithOwner, error)
	DeleteItem(ctx context.Context, userID, itemID primitive.ObjectID) error
}

type itemServiceImpl struct {
	itemRepo    repositories.ItemRepository
	images      storage.ImageStore
	imageFolder string
}

func NewItemService(itemRepo repositories.ItemRepository, images storage.ImageStore, imageFolder string) ItemService {
	return &itemServiceImpl{itemRepo: itemRepo, images: images, imageFolder: imageFolder}
}

// GetItems runs the filtered page read and the total count concurrently
// against the same predicate. Either failure fails the whole listing.
func (s *itemServiceImpl) GetItems(ctx context.Context, params url.Values) (*models.ItemListResponse, error) {
	filter := query.BuildFilter(params, searchFields)
	page, limit, skip := query.GetPagination(params)

	var (
		items []models.ItemWithOwner
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.itemRepo.FindPage(gctx, filter, defaultSort, skip, limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.itemRepo.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Interface("filter", filter).Msg("Error running paged item query")
		return nil, err
	}

	if items == nil {
		items = []models.ItemWithOwner{}
	}

	return &models.ItemListResponse{
		Collections: items,
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  (total + limit - 1) / limit,
	}, nil
}

func (s *itemServiceImpl) GetItemByID(ctx context.Context, itemID primitive.ObjectID) (*models.ItemWithOwner, error) {
	item, err := s.itemRepo.FindByIDWithOwner(ctx, itemID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn().Str("itemID", itemID.Hex()).Msg("Item not found")
			return nil, ErrItemNotFound
		}
		log.Error().Err(err).Str("itemID", itemID.Hex()).Msg("Error finding item by ID")
		return nil, err
	}
	return item, nil
}

var releaseDateLayouts = []string{time.RFC3339, "2006-01-02", "01-2006"}

func parseReleaseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ValidationError("invalid release date format")
}

func validateAddItem(req *models.AddItemRequest) error {
	switch {
	case req.Title == "":
		return ValidationError("title is required")
	case req.Caption == "":
		return ValidationError("caption is required")
	case req.Brand == "":
		return ValidationError("brand is required")
	case req.Author == "":
		return ValidationError("author is required")
	case req.Price <= 0:
		return ValidationError("price is required")
	case req.ReleaseDate == "":
		return ValidationError("release date is required")
	}

	if req.Currency == "" {
		req.Currency = models.CurrencyARS
	}
	if !req.Currency.IsValid() {
		return ValidationError(fmt.Sprintf("invalid currency %q", req.Currency))
	}
	if req.Category == "" {
		req.Category = models.CategoryBook
	}
	if !req.Category.IsValid() {
		return ValidationError(fmt.Sprintf("invalid category %q", req.Category))
	}
	if req.Status == "" {
		req.Status = models.StatusOwned
	}
	if !req.Status.IsValid() {
		return ValidationError(fmt.Sprintf("invalid status %q", req.Status))
	}

	if !hasImagePayload(req.FileBuffers, req.Images, req.Image) {
		return ValidationError("at least one image is required")
	}
	return nil
}

// hasImagePayload reports whether at least one non-empty image payload is
// present. Blank encoded strings do not count; they would upload nothing.
func hasImagePayload(buffers [][]byte, encoded []string, single string) bool {
	for _, buf := range buffers {
		if len(buf) > 0 {
			return true
		}
	}
	for _, enc := range encoded {
		if strings.TrimSpace(enc) != "" {
			return true
		}
	}
	return strings.TrimSpace(single) != ""
}

// uploadAll pushes every image payload to the object store and returns
// parallel URL / public-id slices. The first failure aborts the batch.
func (s *itemServiceImpl) uploadAll(ctx context.Context, buffers [][]byte, encoded []string) (urls, publicIDs []string, err error) {
	doUpload := func(fn func() (*storage.Upload, error)) (*storage.Upload, error) {
		status := "success"
		timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
			utils.ImageUploadDurationSeconds.WithLabelValues(status).Observe(v)
		}))
		defer timer.ObserveDuration()

		up, err := fn()
		if err != nil {
			status = "error"
		}
		return up, err
	}

	for _, buf := range buffers {
		if len(buf) == 0 {
			continue
		}
		up, err := doUpload(func() (*storage.Upload, error) {
			return s.images.UploadBuffer(ctx, buf, s.imageFolder)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("image upload failed: %w", err)
		}
		urls = append(urls, up.SecureURL)
		publicIDs = append(publicIDs, up.PublicID)
	}

	for _, enc := range encoded {
		if enc == "" {
			continue
		}
		up, err := doUpload(func() (*storage.Upload, error) {
			return s.images.UploadEncoded(ctx, enc, s.imageFolder)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("image upload failed: %w", err)
		}
		urls = append(urls, up.SecureURL)
		publicIDs = append(publicIDs, up.PublicID)
	}

	return urls, publicIDs, nil
}

// AddItem uploads every image before touching the database, so no record is
// ever persisted without its image.
func (s *itemServiceImpl) AddItem(ctx context.Context, userID primitive.ObjectID, req models.AddItemRequest) (*models.Item, error) {
	if err := validateAddItem(&req); err != nil {
		log.Warn().Err(err).Str("userID", userID.Hex()).Msg("Rejected item create payload")
		return nil, err
	}

	releaseDate, err := parseReleaseDate(req.ReleaseDate)
	if err != nil {
		return nil, err
	}

	encoded := req.Images
	if len(encoded) == 0 && req.Image != "" {
		encoded = []string{req.Image}
	}

	urls, publicIDs, err := s.uploadAll(ctx, req.FileBuffers, encoded)
	if err != nil {
		log.Error().Err(err).Str("userID", userID.Hex()).Msg("Error uploading item images")
		return nil, err
	}
	if len(urls) == 0 {
		return nil, ValidationError("at least one image is required")
	}

	now := time.Now()
	item := models.Item{
		ID:             primitive.NewObjectID(),
		UserID:         userID,
		Title:          req.Title,
		Caption:        req.Caption,
		Brand:          req.Brand,
		Author:         req.Author,
		Price:          req.Price,
		Currency:       req.Currency,
		Category:       req.Category,
		Status:         req.Status,
		ReleaseDate:    releaseDate,
		ShoppingLink:   req.ShoppingLink,
		Image:          urls[0],
		ImagePublicID:  publicIDs[0],
		Images:         urls,
		ImagePublicIDs: publicIDs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.itemRepo.Create(ctx, &item)
	if err != nil {
		log.Error().Err(err).Str("userID", userID.Hex()).Msg("Error inserting item")
		return nil, err
	}

	metrics.ItemCreatedTotal.Inc()
	log.Info().Str("userID", userID.Hex()).Str("itemID", created.ID.Hex()).Msg("Item added successfully")
	return created, nil
}

func (s *itemServiceImpl) buildUpdateFields(ctx context.Context, req models.UpdateItemRequest) (bson.M, error) {
	updateFields := bson.M{}

	if req.Title != nil {
		updateFields["title"] = *req.Title
	}
	if req.Caption != nil {
		updateFields["caption"] = *req.Caption
	}
	if req.Brand != nil {
		updateFields["brand"] = *req.Brand
	}
	if req.Author != nil {
		updateFields["author"] = *req.Author
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, ValidationError("price must be positive")
		}
		updateFields["price"] = *req.Price
	}
	if req.Currency != nil {
		if !req.Currency.IsValid() {
			return nil, ValidationError(fmt.Sprintf("invalid currency %q", *req.Currency))
		}
		updateFields["currency"] = *req.Currency
	}
	if req.Category != nil {
		if !req.Category.IsValid() {
			return nil, ValidationError(fmt.Sprintf("invalid category %q", *req.Category))
		}
		updateFields["category"] = *req.Category
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, ValidationError(fmt.Sprintf("invalid status %q", *req.Status))
		}
		updateFields["status"] = *req.Status
	}
	if req.ReleaseDate != nil {
		releaseDate, err := parseReleaseDate(*req.ReleaseDate)
		if err != nil {
			return nil, err
		}
		updateFields["releaseDate"] = releaseDate
	}
	if req.ShoppingLink != nil {
		updateFields["shoppingLink"] = *req.ShoppingLink
	}

	// New image payloads replace the image arrays wholesale. Previously
	// stored assets are not deleted here; only record deletion cleans up.
	var encoded []string
	if req.Images != nil {
		encoded = *req.Images
	} else if req.Image != nil && *req.Image != "" {
		encoded = []string{*req.Image}
	}
	if len(encoded) > 0 || len(req.FileBuffers) > 0 {
		if !hasImagePayload(req.FileBuffers, encoded, "") {
			return nil, ValidationError("image payloads must not be empty")
		}
		urls, publicIDs, err := s.uploadAll(ctx, req.FileBuffers, encoded)
		if err != nil {
			return nil, err
		}
		updateFields["image"] = urls[0]
		updateFields["imagePublicId"] = publicIDs[0]
		updateFields["images"] = urls
		updateFields["imagePublicIds"] = publicIDs
	}

	return updateFields, nil
}

func (s *itemServiceImpl) UpdateItem(ctx context.Context, userID, itemID primitive.ObjectID, req models.UpdateItemRequest) (*models.ItemWithOwner, error) {
	existing, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrItemNotFound
		}
		log.Error().Err(err).Str("itemID", itemID.Hex()).Msg("Error fetching item for update")
		return nil, err
	}
	if existing.UserID != userID {
		log.Warn().Str("itemID", itemID.Hex()).Str("userID", userID.Hex()).Msg("Rejected update by non-owner")
		return nil, ErrNotOwner
	}

	updateFields, err := s.buildUpdateFields(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(updateFields) == 0 {
		return nil, ValidationError("no valid fields provided for update")
	}
	updateFields["updatedAt"] = time.Now()

	if _, err := s.itemRepo.UpdateOne(ctx, itemID, updateFields); err != nil {
		log.Error().Err(err).Str("itemID", itemID.Hex()).Msg("Error updating item")
		return nil, err
	}

	updated, err := s.itemRepo.FindByIDWithOwner(ctx, itemID)
	if err != nil {
		log.Error().Err(err).Str("itemID", itemID.Hex()).Msg("Error fetching updated item")
		return nil, fmt.Errorf("failed to retrieve updated item: %w", err)
	}

	log.Info().Str("userID", userID.Hex()).Str("itemID", itemID.Hex()).Msg("Item updated successfully")
	return updated, nil
}

// cleanupPublicIDs resolves which stored assets a delete should try to
// remove: the persisted public ids, or failing that, an id derived from the
// legacy image URL.
func cleanupPublicIDs(item *models.Item) []string {
	if len(item.ImagePublicIDs) > 0 {
		return item.ImagePublicIDs
	}
	if item.ImagePublicID != "" {
		return []string{item.ImagePublicID}
	}
	if derived := storage.PublicIDFromURL(item.Image); derived != "" {
		return []string{derived}
	}
	return nil
}

// DeleteItem removes the record after a best-effort sweep of its stored
// images. Asset cleanup failures are logged and swallowed; they never block
// the user-facing delete.
func (s *itemServiceImpl) DeleteItem(ctx context.Context, userID, itemID primitive.ObjectID) error {
	existing, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrItemNotFound
		}
		log.Error().Err(err).Str("itemID", itemID.Hex()).Msg("Error fetching item for delete")
		return err
	}
	if existing.UserID != userID {
		log.Warn().Str("itemID", itemID.Hex()).Str("userID", userID.Hex()).Msg("Rejected delete by non-owner")
		return ErrNotOwner
	}

	for _, publicID := range cleanupPublicIDs(existing) {
		if err := s.images.Delete(ctx, publicID); err != nil {
			utils.ImageCleanupFailuresTotal.Inc()
			log.Warn().Err(err).Str("publicID", publicID).Str("itemID", itemID.Hex()).Msg("Failed to delete stored image, continuing")
		}
	}

	result, err := s.itemRepo.DeleteOne(ctx, itemID)
	if err != nil {
		log.Error().Err(err).Str("itemID", itemID.Hex()).Msg("Error deleting item")
		return err
	}
	if result.DeletedCount == 0 {
		return ErrItemNotFound
	}

	log.Info().Str("userID", userID.Hex()).Str("itemID", itemID.Hex()).Msg("Item deleted successfully")
	return nil
}
