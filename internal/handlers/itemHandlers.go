package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"shelftrack/internal/models"
	"shelftrack/internal/services"
	"shelftrack/internal/utils"
)

// maxUploadSize bounds multipart request memory for image uploads.
const maxUploadSize = 32 << 20

type ItemHandler struct {
	service services.ItemService
}

func NewItemHandler(service services.ItemService) *ItemHandler {
	return &ItemHandler{service: service}
}

// writeItemError maps service errors onto the HTTP error taxonomy.
// Validation and not-found/ownership failures carry their own message;
// anything else is an external-dependency failure and stays generic.
func writeItemError(w http.ResponseWriter, err error) {
	var ve services.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.SendJSONError(w, ve.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrItemNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrNotOwner):
		utils.SendJSONError(w, err.Error(), http.StatusForbidden)
	default:
		utils.SendJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readMultipartImages drains every uploaded file under the "images" and
// "image" form fields into memory buffers.
func readMultipartImages(r *http.Request) ([][]byte, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	var buffers [][]byte
	files := append(r.MultipartForm.File["images"], r.MultipartForm.File["image"]...)
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, err
		}
		buffers = append(buffers, data)
	}
	return buffers, nil
}

func parseAddItemRequest(r *http.Request) (models.AddItemRequest, error) {
	var req models.AddItemRequest

	if !isMultipart(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return req, err
	}

	req.Title = r.FormValue("title")
	req.Caption = r.FormValue("caption")
	req.Brand = r.FormValue("brand")
	req.Author = r.FormValue("author")
	req.Currency = models.Currency(r.FormValue("currency"))
	req.Category = models.Category(r.FormValue("category"))
	req.Status = models.Status(r.FormValue("status"))
	req.ReleaseDate = r.FormValue("releaseDate")
	req.ShoppingLink = r.FormValue("shoppingLink")

	if priceStr := r.FormValue("price"); priceStr != "" {
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil {
			return req, errors.New("price must be a number")
		}
		req.Price = price
	}

	buffers, err := readMultipartImages(r)
	if err != nil {
		return req, err
	}
	req.FileBuffers = buffers
	return req, nil
}

func parseUpdateItemRequest(r *http.Request) (models.UpdateItemRequest, error) {
	var req models.UpdateItemRequest

	if !isMultipart(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return req, err
	}

	// Multipart updates keep partial-update semantics: only fields present
	// in the form are touched, so absence and empty string must differ.
	get := func(key string) *string {
		if vs, ok := r.MultipartForm.Value[key]; ok && len(vs) > 0 {
			return &vs[0]
		}
		return nil
	}

	req.Title = get("title")
	req.Caption = get("caption")
	req.Brand = get("brand")
	req.Author = get("author")
	req.ReleaseDate = get("releaseDate")
	req.ShoppingLink = get("shoppingLink")

	if s := get("currency"); s != nil {
		c := models.Currency(*s)
		req.Currency = &c
	}
	if s := get("category"); s != nil {
		c := models.Category(*s)
		req.Category = &c
	}
	if s := get("status"); s != nil {
		st := models.Status(*s)
		req.Status = &st
	}
	if s := get("price"); s != nil {
		price, err := strconv.ParseFloat(*s, 64)
		if err != nil {
			return req, errors.New("price must be a number")
		}
		req.Price = &price
	}

	buffers, err := readMultipartImages(r)
	if err != nil {
		return req, err
	}
	req.FileBuffers = buffers
	return req, nil
}

func (h *ItemHandler) GetItems(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.GetUserIDFromContext(w, r); err != nil {
		return
	}

	resp, err := h.service.GetItems(r.Context(), r.URL.Query())
	if err != nil {
		log.Error().Err(err).Msg("Error getting items from service")
		utils.SendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.GetUserIDFromContext(w, r); err != nil {
		return
	}

	itemID, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	item, err := h.service.GetItemByID(r.Context(), itemID)
	if err != nil {
		log.Error().Err(err).Str("item_id", itemID.Hex()).Msg("Error getting item by ID from service")
		writeItemError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	req, err := parseAddItemRequest(r)
	if err != nil {
		log.Error().Err(err).Msg("Error parsing AddItem request")
		utils.SendJSONError(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.service.AddItem(r.Context(), userID, req)
	if err != nil {
		log.Error().Err(err).Str("userID", userID.Hex()).Msg("Error adding item via service")
		writeItemError(w, err)
		return
	}

	log.Info().Str("item_id", item.ID.Hex()).Msg("Successfully created item")
	utils.RespondWithJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	itemID, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	req, err := parseUpdateItemRequest(r)
	if err != nil {
		log.Error().Err(err).Msg("Error parsing UpdateItem request")
		utils.SendJSONError(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.service.UpdateItem(r.Context(), userID, itemID, req)
	if err != nil {
		log.Error().Err(err).Str("item_id", itemID.Hex()).Msg("Error updating item via service")
		writeItemError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, updated)
}

func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	itemID, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	if err := h.service.DeleteItem(r.Context(), userID, itemID); err != nil {
		log.Error().Err(err).Str("item_id", itemID.Hex()).Msg("Error deleting item via service")
		writeItemError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Collection item deleted successfully"})
}
