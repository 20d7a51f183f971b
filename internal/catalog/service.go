// Package catalog serves the product listing and lets clubs and sponsors
// manage what they sell.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/zakup/internal/apperr"
	"github.com/joao-fontenele/zakup/internal/auth"
	"github.com/joao-fontenele/zakup/internal/domain"
)

type Store interface {
	List(ctx context.Context, f Filter) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product, setStock bool) error
	Delete(ctx context.Context, id string) error
	AddReview(ctx context.Context, productID string, review domain.Review) error
}

type ProductInput struct {
	Name        string          `json:"nom"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"prix"`
	Stock       int             `json:"stock"`
	Category    domain.Category `json:"categorie"`
	Visible     *bool           `json:"visible"`
}

// ProductPatch holds the fields a seller may change. Nil fields are left alone.
type ProductPatch struct {
	Name        *string          `json:"nom"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"prix"`
	Stock       *int             `json:"stock"`
	Category    *domain.Category `json:"categorie"`
	Visible     *bool            `json:"visible"`
}

type ReviewInput struct {
	Rating  int    `json:"note"`
	Comment string `json:"commentaire"`
}

type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func validateProduct(p *domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.BadRequest("Le nom du produit est obligatoire")
	}
	if !domain.ValidAmount(p.Price) {
		return apperr.BadRequest("Prix invalide: positif, deux décimales au plus et inférieur à %s", domain.MaxAmount)
	}
	if p.Stock < 0 || p.Stock > domain.MaxStock {
		return apperr.BadRequest("Le stock doit être compris entre 0 et %d", domain.MaxStock)
	}
	if !p.Category.Valid() {
		return apperr.BadRequest("Catégorie invalide: %s", p.Category)
	}
	return nil
}

func notFound(id string) error {
	return apperr.NotFound("Produit non trouvé: %s", id)
}

func canManage(p auth.Principal, product *domain.Product) bool {
	return p.IsAdmin() || product.SellerID == p.ID
}

func (s *Service) List(ctx context.Context, f Filter) ([]domain.Product, error) {
	return s.store.List(ctx, f)
}

// Get returns a product with its reviews. Hidden products exist only for
// their seller and administrators; everybody else gets a 404.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (*domain.Product, error) {
	product, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || (!product.Visible && !canManage(p, product)) {
		return nil, notFound(id)
	}
	return product, nil
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in ProductInput) (*domain.Product, error) {
	if !p.IsSeller() {
		return nil, apperr.Forbidden("Accès non autorisé")
	}

	now := s.now()
	product := &domain.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    in.Category,
		SellerID:    p.ID,
		SellerKind:  p.SellerKind(),
		Visible:     in.Visible == nil || *in.Visible,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("product created", "product_id", product.ID, "seller_id", product.SellerID)
	return product, nil
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id string, patch ProductPatch) (*domain.Product, error) {
	product, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, notFound(id)
	}
	if !canManage(p, product) {
		return nil, apperr.Forbidden("Accès non autorisé")
	}

	if patch.Name != nil {
		product.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}
	if patch.Category != nil {
		product.Category = *patch.Category
	}
	if patch.Visible != nil {
		product.Visible = *patch.Visible
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	product.UpdatedAt = s.now()

	if err := s.store.Update(ctx, product, patch.Stock != nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, err
	}

	s.logger.Info("product updated", "product_id", product.ID)
	return product, nil
}

// Delete removes a product. Orders keep their own copy of its name and price.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	product, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return notFound(id)
	}
	if !canManage(p, product) {
		return apperr.Forbidden("Accès non autorisé")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("product deleted", "product_id", id)
	return nil
}

func (s *Service) AddReview(ctx context.Context, p auth.Principal, id string, in ReviewInput) (*domain.Product, error) {
	if p.Role != auth.RoleUser {
		return nil, apperr.Forbidden("Accès non autorisé")
	}
	if in.Rating < domain.MinRating || in.Rating > domain.MaxRating {
		return nil, apperr.BadRequest("La note doit être comprise entre %d et %d", domain.MinRating, domain.MaxRating)
	}

	product, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.Visible {
		return nil, notFound(id)
	}

	review := domain.Review{
		UserID:    p.ID,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		CreatedAt: s.now(),
	}
	if err := s.store.AddReview(ctx, id, review); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		if errors.Is(err, ErrDuplicateReview) {
			return nil, apperr.Conflict("Vous avez déjà donné votre avis sur ce produit")
		}
		return nil, err
	}

	s.logger.Info("review added", "product_id", id, "user_id", p.ID, "rating", in.Rating)
	return s.store.GetByID(ctx, id)
}
