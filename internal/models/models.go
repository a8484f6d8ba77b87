package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductVersion is one row of the product dimension. The same shape backs
// both current_product_dimension (exactly one row per product, IsCurrent
// true) and history_product_dimension (one row per product per version).
type ProductVersion struct {
	ProductID         string              `db:"product_id" json:"product_id"`
	ProductName       string              `db:"product_name" json:"product_name"`
	Price             decimal.NullDecimal `db:"price" json:"price"`
	ProductCost       decimal.NullDecimal `db:"product_cost" json:"product_cost"`
	LastTransactionAt *time.Time          `db:"last_transaction_datetime" json:"last_transaction_datetime"`
	RecordVersion     int                 `db:"record_version" json:"record_version"`
	IsCurrent         bool                `db:"is_current" json:"is_current"`
	ParentSKU         string              `db:"parent_sku" json:"parent_sku"`
	Category          string              `db:"category" json:"category"`
}

// Product categories
const (
	CategoryDrink  = "DRINK"
	CategoryFood   = "FOOD"
	CategoryExtra  = "EXTRA"
	CategoryOthers = "OTHERS"
)

// StagingArtifact describes one CSV staged for a warehouse merge. KeyColumns
// empty means plain insert; otherwise the merge upserts on that key.
type StagingArtifact struct {
	Name       string   `json:"name"`
	Table      string   `json:"table"`
	Columns    []string `json:"columns"`
	KeyColumns []string `json:"key_columns"`
	Path       string   `json:"path"`
	RowCount   int      `json:"row_count"`
}
