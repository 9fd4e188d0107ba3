package catalog

import "time"

// UnitVariant is the reserved presentation variant. Exactly one active
// presentation with this variant, units=1 and a price mirroring the product
// price must exist per product at all times. It is created with the product,
// kept in sync on price updates and never touched by the synchronizer.
const UnitVariant = "unidad"

// Product belongs to a branch, or directly to a business when the legacy
// flattened mode applies.
type Product struct {
	ID                string
	BranchID          string
	Name              string
	Brand             string
	Barcode           string
	SKU               string
	Description       string
	Cost              float64
	Price             float64
	Stock             *float64
	Bonification      float64
	Expiration        *time.Time
	IsActive          bool
	CreatedByUserID   string
	CreatedByBranchID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// StockOrZero treats the nullable stock column as zero when unset.
func (p Product) StockOrZero() float64 {
	if p.Stock == nil {
		return 0
	}
	return *p.Stock
}

// Presentation is a sellable packaging variant of one product.
type Presentation struct {
	ID        string
	ProductID string
	Variant   string
	Units     int
	Price     *float64
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PresentationRecord is a raw presentation row as persisted, including the two
// historical columns. Legacy rows carry an empty variant and encode their
// multiplier as free text such as "x6" in the unit column.
type PresentationRecord struct {
	ID         string
	Variant    string
	Units      int
	Price      *float64
	LegacyName string
	LegacyUnit string
}

// PresentationInput describes one desired presentation. A populated ID refers
// to a persisted row; an empty one requests a fresh row.
type PresentationInput struct {
	ID      string   `json:"id"`
	Variant string   `json:"variant"`
	Units   int      `json:"units"`
	Price   *float64 `json:"price"`
}

// CreateProductInput carries a product creation request.
type CreateProductInput struct {
	BranchID      string
	Name          string
	Brand         string
	Barcode       string
	SKU           string
	Description   string
	Cost          float64
	Price         float64
	Stock         *float64
	Bonification  float64
	Expiration    *time.Time
	Presentations []PresentationInput
}

// ProductPatch updates only the supplied fields.
type ProductPatch struct {
	Name         *string
	Brand        *string
	Barcode      *string
	SKU          *string
	Description  *string
	Cost         *float64
	Price        *float64
	Stock        *float64
	Bonification *float64
	Expiration   *time.Time
}

// Empty reports whether the patch touches no field.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Brand == nil && p.Barcode == nil && p.SKU == nil &&
		p.Description == nil && p.Cost == nil && p.Price == nil && p.Stock == nil &&
		p.Bonification == nil && p.Expiration == nil
}

// CreateProductResult reports a created product.
type CreateProductResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UpdateProductResult reports a product update. UnitPriceSyncWarning carries
// the degradation notice when the secondary unit-presentation price sync
// failed while the primary update committed.
type UpdateProductResult struct {
	ID                   string `json:"id"`
	UnitPriceSyncWarning string `json:"unit_price_sync_warning,omitempty"`
}

// ImportError pairs a failed source product with its cause.
type ImportError struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
}

// ImportResult summarises a branch import. Partial success is the expected,
// reported outcome, not a hard failure.
type ImportResult struct {
	Imported int           `json:"imported"`
	Failed   int           `json:"failed"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// TransferInput carries a stock transfer request. Exactly one destination hint
// may be supplied: TargetProductID, NewProductName (with CreateIfNotExists),
// or neither for fuzzy matching.
type TransferInput struct {
	ProductID         string
	SourceBranchID    string
	TargetBranchID    string
	Quantity          float64
	TargetProductID   string
	NewProductName    string
	CreateIfNotExists bool
}

// TransferResult reports both sides of a completed move.
type TransferResult struct {
	SourceProductID string  `json:"source_product_id"`
	TargetProductID string  `json:"target_product_id"`
	Quantity        float64 `json:"quantity"`
	CreatedProduct  bool    `json:"created_product"`
}
