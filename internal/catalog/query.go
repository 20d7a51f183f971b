package catalog

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/zakup/internal/apperr"
	"github.com/joao-fontenele/zakup/internal/domain"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit inside an INTEGER offset.
	MaxPage = math.MaxInt32 / MaxLimit
)

const productColumns = `id, name, description, price, stock, category, seller_id, seller_kind,
	visible, average_rating, created_at, updated_at`

var sortClauses = map[string]string{
	"":       "created_at DESC, id",
	"recent": "created_at DESC, id",
	"prix":   "price ASC, id",
	"-prix":  "price DESC, id",
	"note":   "average_rating DESC, id",
}

// Filter narrows the public product listing. Zero values mean "no filter".
type Filter struct {
	Category   domain.Category
	SellerID   string
	SellerKind domain.SellerKind
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Search     string
	Sort       string
	Page       int
	Limit      int
}

// ParseFilter reads the listing filter from query parameters.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		Category:   domain.Category(q.Get("categorie")),
		SellerID:   q.Get("vendeur"),
		SellerKind: domain.SellerKind(q.Get("vendeurModel")),
		Search:     strings.TrimSpace(q.Get("q")),
		Sort:       q.Get("tri"),
		Page:       1,
		Limit:      DefaultLimit,
	}

	if f.Category != "" && !f.Category.Valid() {
		return Filter{}, apperr.BadRequest("Catégorie invalide: %s", f.Category)
	}
	if f.SellerKind != "" && !f.SellerKind.Valid() {
		return Filter{}, apperr.BadRequest("Type de vendeur invalide: %s", f.SellerKind)
	}
	if _, ok := sortClauses[f.Sort]; !ok {
		return Filter{}, apperr.BadRequest("Tri invalide: %s", f.Sort)
	}

	var err error
	if f.MinPrice, err = parsePrice(q.Get("prixMin")); err != nil {
		return Filter{}, apperr.BadRequest("Prix minimum invalide")
	}
	if f.MaxPrice, err = parsePrice(q.Get("prixMax")); err != nil {
		return Filter{}, apperr.BadRequest("Prix maximum invalide")
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 || page > MaxPage {
			return Filter{}, apperr.BadRequest("Page invalide")
		}
		f.Page = page
	}
	if v := q.Get("limite"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return Filter{}, apperr.BadRequest("Limite invalide")
		}
		f.Limit = min(limit, MaxLimit)
	}

	return f, nil
}

func parsePrice(v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildListQuery turns f into a parameterized SELECT over visible products.
func buildListQuery(f Filter) (string, []any) {
	conditions := []string{"visible = TRUE"}
	var args []any

	add := func(condition string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.Category != "" {
		add("category = $%d", string(f.Category))
	}
	if f.SellerID != "" {
		add("seller_id = $%d", f.SellerID)
	}
	if f.SellerKind != "" {
		add("seller_kind = $%d", string(f.SellerKind))
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if f.Search != "" {
		add("(name ILIKE $%[1]d OR description ILIKE $%[1]d)", "%"+likeEscaper.Replace(f.Search)+"%")
	}

	limit := f.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	page := max(f.Page, 1)
	args = append(args, limit, (page-1)*limit)

	query := fmt.Sprintf("SELECT %s FROM products WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		productColumns,
		strings.Join(conditions, " AND "),
		sortClauses[f.Sort],
		len(args)-1, len(args),
	)
	return query, args
}
