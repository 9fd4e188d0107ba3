package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noiddea/dash/internal/platform/httpx"
	"github.com/noiddea/dash/internal/shared"
)

// ImportEnqueuer queues a branch import for background processing.
type ImportEnqueuer interface {
	EnqueueImport(ctx context.Context, actorID, sourceBranchID, targetBranchID string) error
}

// Handler wires the public catalog operations onto HTTP.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	importQueue ImportEnqueuer
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance. importQueue may be nil, in which
// case imports always run synchronously.
func NewHandler(logger *slog.Logger, service *Service, importQueue ImportEnqueuer) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		importQueue: importQueue,
		validator:   validator.New(),
	}
}

// MountRoutes registers catalog routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Post("/batch-delete", h.deleteProducts)
		r.Post("/import", h.importFromBranch)
		r.Post("/transfer", h.transferStock)
		r.Route("/{productID}", func(r chi.Router) {
			r.Get("/", h.getProduct)
			r.Patch("/", h.updateProduct)
			r.Delete("/", h.deleteProduct)
			r.Put("/presentations", h.updatePresentations)
		})
	})
}

type presentationRequest struct {
	ID      string   `json:"id"`
	Variant string   `json:"variant" validate:"required"`
	Units   int      `json:"units" validate:"gte=1"`
	Price   *float64 `json:"price"`
}

type createProductRequest struct {
	BranchID      string                `json:"branch_id" validate:"required"`
	Name          string                `json:"name" validate:"required"`
	Brand         string                `json:"brand"`
	Barcode       string                `json:"barcode"`
	SKU           string                `json:"sku"`
	Description   string                `json:"description"`
	Cost          float64               `json:"cost" validate:"gte=0"`
	Price         float64               `json:"price" validate:"gte=0"`
	Stock         *float64              `json:"stock"`
	Bonification  float64               `json:"bonification"`
	Expiration    *time.Time            `json:"expiration"`
	Presentations []presentationRequest `json:"presentations" validate:"dive"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	input := CreateProductInput{
		BranchID:     req.BranchID,
		Name:         req.Name,
		Brand:        req.Brand,
		Barcode:      req.Barcode,
		SKU:          req.SKU,
		Description:  req.Description,
		Cost:         req.Cost,
		Price:        req.Price,
		Stock:        req.Stock,
		Bonification: req.Bonification,
		Expiration:   req.Expiration,
	}
	for _, pres := range req.Presentations {
		input.Presentations = append(input.Presentations, PresentationInput(pres))
	}

	result, err := h.service.CreateProduct(r.Context(), shared.UserIDFromContext(r.Context()), input)
	if err != nil {
		h.logger.Warn("create product failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, result)
}

type updateProductRequest struct {
	Name         *string    `json:"name"`
	Brand        *string    `json:"brand"`
	Barcode      *string    `json:"barcode"`
	SKU          *string    `json:"sku"`
	Description  *string    `json:"description"`
	Cost         *float64   `json:"cost" validate:"omitempty,gte=0"`
	Price        *float64   `json:"price" validate:"omitempty,gte=0"`
	Stock        *float64   `json:"stock"`
	Bonification *float64   `json:"bonification"`
	Expiration   *time.Time `json:"expiration"`
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	patch := ProductPatch{
		Name:         req.Name,
		Brand:        req.Brand,
		Barcode:      req.Barcode,
		SKU:          req.SKU,
		Description:  req.Description,
		Cost:         req.Cost,
		Price:        req.Price,
		Stock:        req.Stock,
		Bonification: req.Bonification,
		Expiration:   req.Expiration,
	}

	result, err := h.service.UpdateProduct(r.Context(), shared.UserIDFromContext(r.Context()), chi.URLParam(r, "productID"), patch)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if result.UnitPriceSyncWarning != "" {
		httpx.OKWithWarning(w, result, result.UnitPriceSyncWarning)
		return
	}
	httpx.OK(w, result)
}

type updatePresentationsRequest struct {
	Presentations []presentationRequest `json:"presentations" validate:"dive"`
}

func (h *Handler) updatePresentations(w http.ResponseWriter, r *http.Request) {
	var req updatePresentationsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	desired := make([]PresentationInput, 0, len(req.Presentations))
	for _, pres := range req.Presentations {
		desired = append(desired, PresentationInput(pres))
	}

	result, err := h.service.SyncPresentations(r.Context(), shared.UserIDFromContext(r.Context()), chi.URLParam(r, "productID"), desired)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, result)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteProduct(r.Context(), shared.UserIDFromContext(r.Context()), chi.URLParam(r, "productID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, map[string]any{"deleted": true})
}

type deleteProductsRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1"`
}

func (h *Handler) deleteProducts(w http.ResponseWriter, r *http.Request) {
	var req deleteProductsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.service.DeleteProducts(r.Context(), shared.UserIDFromContext(r.Context()), req.ProductIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, map[string]any{"deleted": count})
}

type importRequest struct {
	SourceBranchID string `json:"source_branch_id" validate:"required"`
	TargetBranchID string `json:"target_branch_id" validate:"required"`
	Async          bool   `json:"async"`
}

func (h *Handler) importFromBranch(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	actorID := shared.UserIDFromContext(r.Context())
	if req.Async && h.importQueue != nil {
		if err := h.importQueue.EnqueueImport(r.Context(), actorID, req.SourceBranchID, req.TargetBranchID); err != nil {
			h.logger.Error("enqueue import failed", slog.Any("error", err))
			httpx.Fail(w, http.StatusInternalServerError, "could not queue import")
			return
		}
		httpx.JSON(w, http.StatusAccepted, httpx.Envelope{Success: true, Data: map[string]any{"queued": true}})
		return
	}

	result, err := h.service.ImportFromBranch(r.Context(), actorID, req.SourceBranchID, req.TargetBranchID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, result)
}

type transferRequest struct {
	ProductID         string  `json:"product_id" validate:"required"`
	SourceBranchID    string  `json:"source_branch_id" validate:"required"`
	TargetBranchID    string  `json:"target_branch_id" validate:"required"`
	Quantity          float64 `json:"quantity" validate:"gt=0"`
	TargetProductID   string  `json:"target_product_id"`
	NewProductName    string  `json:"new_product_name"`
	CreateIfNotExists bool    `json:"create_if_not_exists"`
}

func (h *Handler) transferStock(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.TransferStock(r.Context(), shared.UserIDFromContext(r.Context()), TransferInput{
		ProductID:         req.ProductID,
		SourceBranchID:    req.SourceBranchID,
		TargetBranchID:    req.TargetBranchID,
		Quantity:          req.Quantity,
		TargetProductID:   req.TargetProductID,
		NewProductName:    req.NewProductName,
		CreateIfNotExists: req.CreateIfNotExists,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, result)
}

type productResponse struct {
	Product       productPayload        `json:"product"`
	Presentations []presentationPayload `json:"presentations"`
}

type productPayload struct {
	ID           string     `json:"id"`
	BranchID     string     `json:"branch_id"`
	Name         string     `json:"name"`
	Brand        string     `json:"brand,omitempty"`
	Barcode      string     `json:"barcode,omitempty"`
	SKU          string     `json:"sku,omitempty"`
	Description  string     `json:"description,omitempty"`
	Cost         float64    `json:"cost"`
	Price        float64    `json:"price"`
	Stock        *float64   `json:"stock"`
	Bonification float64    `json:"bonification"`
	Expiration   *time.Time `json:"expiration,omitempty"`
	IsActive     bool       `json:"is_active"`
}

type presentationPayload struct {
	ID      string   `json:"id"`
	Variant string   `json:"variant"`
	Units   int      `json:"units"`
	Price   *float64 `json:"price"`
}

func toProductPayload(p Product) productPayload {
	return productPayload{
		ID:           p.ID,
		BranchID:     p.BranchID,
		Name:         p.Name,
		Brand:        p.Brand,
		Barcode:      p.Barcode,
		SKU:          p.SKU,
		Description:  p.Description,
		Cost:         p.Cost,
		Price:        p.Price,
		Stock:        p.Stock,
		Bonification: p.Bonification,
		Expiration:   p.Expiration,
		IsActive:     p.IsActive,
	}
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, presentations, err := h.service.GetProduct(r.Context(), shared.UserIDFromContext(r.Context()), chi.URLParam(r, "productID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	resp := productResponse{Product: toProductPayload(product)}
	for _, pres := range presentations {
		resp.Presentations = append(resp.Presentations, presentationPayload{
			ID:      pres.ID,
			Variant: pres.Variant,
			Units:   pres.Units,
			Price:   pres.Price,
		})
	}
	httpx.OK(w, resp)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	branchID := r.URL.Query().Get("branch_id")
	if branchID == "" {
		httpx.Fail(w, http.StatusBadRequest, "branch_id is required")
		return
	}

	products, err := h.service.ListProducts(r.Context(), shared.UserIDFromContext(r.Context()), branchID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	payload := make([]productPayload, 0, len(products))
	for _, product := range products {
		payload = append(payload, toProductPayload(product))
	}
	httpx.OK(w, payload)
}
