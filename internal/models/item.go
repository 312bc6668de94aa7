package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyARS Currency = "ARS"
	CurrencyJPY Currency = "JPY"
)

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyUSD, CurrencyARS, CurrencyJPY:
		return true
	}
	return false
}

type Category string

const (
	CategoryBook   Category = "book"
	CategoryManga  Category = "manga"
	CategoryComic  Category = "comic"
	CategoryFigure Category = "figure"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryBook, CategoryManga, CategoryComic, CategoryFigure:
		return true
	}
	return false
}

type Status string

const (
	StatusOwned    Status = "owned"
	StatusWishlist Status = "wishlist"
	StatusPreorder Status = "preorder"
	StatusDeposit  Status = "deposit"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOwned, StatusWishlist, StatusPreorder, StatusDeposit:
		return true
	}
	return false
}

// Item is a tracked collection object. The singular Image/ImagePublicID
// fields are legacy; they always mirror index 0 of the Images/ImagePublicIDs
// arrays, which are kept parallel.
type Item struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID         primitive.ObjectID `json:"user_id" bson:"user"`
	Title          string             `json:"title" bson:"title"`
	Caption        string             `json:"caption" bson:"caption"`
	Brand          string             `json:"brand" bson:"brand"`
	Author         string             `json:"author" bson:"author"`
	Price          float64            `json:"price" bson:"price"`
	Currency       Currency           `json:"currency" bson:"currency"`
	Category       Category           `json:"category" bson:"category"`
	Status         Status             `json:"status" bson:"status"`
	ReleaseDate    time.Time          `json:"releaseDate" bson:"releaseDate"`
	ShoppingLink   string             `json:"shoppingLink,omitempty" bson:"shoppingLink,omitempty"`
	Image          string             `json:"image" bson:"image"`
	ImagePublicID  string             `json:"imagePublicId,omitempty" bson:"imagePublicId,omitempty"`
	Images         []string           `json:"images" bson:"images"`
	ImagePublicIDs []string           `json:"imagePublicIds" bson:"imagePublicIds"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ItemWithOwner is an Item with the owning user's public fields joined in.
type ItemWithOwner struct {
	Item  `bson:",inline"`
	Owner *Owner `json:"user,omitempty" bson:"owner,omitempty"`
}

// AddItemRequest carries the create payload. Image payloads arrive either as
// base64/data-URL strings (JSON body) or as raw file buffers (multipart);
// FileBuffers is filled by the handler and never serialized.
type AddItemRequest struct {
	Title        string   `json:"title"`
	Caption      string   `json:"caption"`
	Brand        string   `json:"brand"`
	Author       string   `json:"author"`
	Price        float64  `json:"price"`
	Currency     Currency `json:"currency"`
	Category     Category `json:"category"`
	Status       Status   `json:"status"`
	ReleaseDate  string   `json:"releaseDate"`
	ShoppingLink string   `json:"shoppingLink"`
	Image        string   `json:"image,omitempty"`
	Images       []string `json:"images,omitempty"`

	FileBuffers [][]byte `json:"-"`
}

// UpdateItemRequest uses pointers so omitted fields keep their prior value.
type UpdateItemRequest struct {
	Title        *string   `json:"title,omitempty"`
	Caption      *string   `json:"caption,omitempty"`
	Brand        *string   `json:"brand,omitempty"`
	Author       *string   `json:"author,omitempty"`
	Price        *float64  `json:"price,omitempty"`
	Currency     *Currency `json:"currency,omitempty"`
	Category     *Category `json:"category,omitempty"`
	Status       *Status   `json:"status,omitempty"`
	ReleaseDate  *string   `json:"releaseDate,omitempty"`
	ShoppingLink *string   `json:"shoppingLink,omitempty"`
	Image        *string   `json:"image,omitempty"`
	Images       *[]string `json:"images,omitempty"`

	FileBuffers [][]byte `json:"-"`
}

// ItemListResponse is the paged listing shape. The record array keeps its
// historical "collections" key.
type ItemListResponse struct {
	Collections []ItemWithOwner `json:"collections"`
	Page        int64           `json:"page"`
	Limit       int64           `json:"limit"`
	Total       int64           `json:"total"`
	TotalPages  int64           `json:"totalPages"`
}
