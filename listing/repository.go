package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals the requested listing does not exist.
	ErrNotFound = errors.New("listing: not found")
	// ErrForbidden signals the caller does not own the listing.
	ErrForbidden = errors.New("listing: not owned by user")
	// ErrAlreadySold signals a sold listing cannot be modified.
	ErrAlreadySold = errors.New("listing: already sold")
	// ErrDuplicateWishlist signals the item is already on the user's wishlist.
	ErrDuplicateWishlist = errors.New("listing: already wishlisted")
)

// Repository handles data access for marketplace listings and wishlists.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Item, error)
	GetByID(ctx context.Context, itemID string) (Item, error)
	List(ctx context.Context, filters Filters) ([]Item, int, error)
	Update(ctx context.Context, itemID, sellerID string, params UpdateParams) (Item, error)
	MarkSold(ctx context.Context, itemID, sellerID string) (Item, error)
	Delete(ctx context.Context, itemID, sellerID string) error

	AddWishlist(ctx context.Context, userID, itemID string) error
	RemoveWishlist(ctx context.Context, userID, itemID string) (bool, error)
	ListWishlist(ctx context.Context, userID string) ([]WishlistEntry, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const itemColumns = `id, title, description, category, price, condition, photos, seller_id, status, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, params CreateParams) (Item, error) {
	const insertSQL = `
		INSERT INTO items (id, title, description, category, price, condition, photos, seller_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + itemColumns

	photos := params.Photos
	if photos == nil {
		photos = []string{}
	}

	item, err := scanItem(r.pool.QueryRow(ctx, insertSQL,
		params.ID,
		params.Title,
		params.Description,
		params.Category,
		params.Price,
		params.Condition,
		photos,
		params.SellerID,
	))
	if err != nil {
		return Item{}, fmt.Errorf("listing: create: %w", err)
	}
	return item, nil
}

func (r *PGRepository) GetByID(ctx context.Context, itemID string) (Item, error) {
	const selectSQL = `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item, err := scanItem(r.pool.QueryRow(ctx, selectSQL, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, fmt.Errorf("listing: get by id: %w", err)
	}
	return item, nil
}

func (r *PGRepository) List(ctx context.Context, filters Filters) ([]Item, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	base := `SELECT ` + itemColumns + ` FROM items`
	where := []string{"1=1"}
	args := []any{}

	if filters.SellerID != "" {
		where = append(where, fmt.Sprintf("seller_id = $%d", len(args)+1))
		args = append(args, filters.SellerID)
	}
	if filters.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filters.Category)
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filters.Status)
	}
	if filters.Search != "" {
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.PriceMin > 0 {
		where = append(where, fmt.Sprintf("price >= $%d", len(args)+1))
		args = append(args, filters.PriceMin)
	}
	if filters.PriceMax > 0 {
		where = append(where, fmt.Sprintf("price <= $%d", len(args)+1))
		args = append(args, filters.PriceMax)
	}

	whereClause := " WHERE " + strings.Join(where, " AND ")
	limit := filters.PageSize
	offset := (filters.Page - 1) * filters.PageSize

	query := fmt.Sprintf("%s%s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, whereClause, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing: query list: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("listing: scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("listing: iterate items: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM items" + whereClause
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("listing: count: %w", err)
	}

	return items, total, nil
}

// Update edits descriptive fields. The ownership check rides in the WHERE
// clause; a zero-row update is disambiguated into not-found vs forbidden.
func (r *PGRepository) Update(ctx context.Context, itemID, sellerID string, params UpdateParams) (Item, error) {
	const updateSQL = `
		UPDATE items
		SET title = $3, description = $4, category = $5, price = $6, condition = $7, photos = $8,
		    updated_at = now()
		WHERE id = $1 AND seller_id = $2 AND status = 'available'
		RETURNING ` + itemColumns

	photos := params.Photos
	if photos == nil {
		photos = []string{}
	}

	item, err := scanItem(r.pool.QueryRow(ctx, updateSQL, itemID, sellerID,
		params.Title, params.Description, params.Category, params.Price, params.Condition, photos))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("listing: update: %w", err)
	}
	return Item{}, r.classifyMiss(ctx, itemID, sellerID)
}

func (r *PGRepository) MarkSold(ctx context.Context, itemID, sellerID string) (Item, error) {
	const updateSQL = `
		UPDATE items
		SET status = 'sold', updated_at = now()
		WHERE id = $1 AND seller_id = $2 AND status = 'available'
		RETURNING ` + itemColumns

	item, err := scanItem(r.pool.QueryRow(ctx, updateSQL, itemID, sellerID))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("listing: mark sold: %w", err)
	}
	return Item{}, r.classifyMiss(ctx, itemID, sellerID)
}

func (r *PGRepository) Delete(ctx context.Context, itemID, sellerID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1 AND seller_id = $2`, itemID, sellerID)
	if err != nil {
		return fmt.Errorf("listing: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, itemID).Scan(&exists); err != nil {
			return fmt.Errorf("listing: delete check: %w", err)
		}
		if exists {
			return ErrForbidden
		}
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) classifyMiss(ctx context.Context, itemID, sellerID string) error {
	var owner string
	var status Status
	err := r.pool.QueryRow(ctx, `SELECT seller_id, status FROM items WHERE id = $1`, itemID).Scan(&owner, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("listing: classify miss: %w", err)
	}
	if owner != sellerID {
		return ErrForbidden
	}
	if status == StatusSold {
		return ErrAlreadySold
	}
	return ErrNotFound
}

func (r *PGRepository) AddWishlist(ctx context.Context, userID, itemID string) error {
	const insertSQL = `
		INSERT INTO wishlists (user_id, item_id)
		SELECT $1, id FROM items WHERE id = $2
	`
	tag, err := r.pool.Exec(ctx, insertSQL, userID, itemID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateWishlist
		}
		return fmt.Errorf("listing: add wishlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) RemoveWishlist(ctx context.Context, userID, itemID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM wishlists WHERE user_id = $1 AND item_id = $2`, userID, itemID)
	if err != nil {
		return false, fmt.Errorf("listing: remove wishlist: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PGRepository) ListWishlist(ctx context.Context, userID string) ([]WishlistEntry, error) {
	const query = `
		SELECT w.user_id, w.item_id, w.created_at,
		       i.id, i.title, i.description, i.category, i.price, i.condition, i.photos, i.seller_id, i.status, i.created_at, i.updated_at
		FROM wishlists w
		JOIN items i ON i.id = w.item_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing: list wishlist: %w", err)
	}
	defer rows.Close()

	entries := make([]WishlistEntry, 0, 8)
	for rows.Next() {
		var e WishlistEntry
		if err := rows.Scan(
			&e.UserID, &e.ItemID, &e.SavedAt,
			&e.Item.ID, &e.Item.Title, &e.Item.Description, &e.Item.Category, &e.Item.Price,
			&e.Item.Condition, &e.Item.Photos, &e.Item.SellerID, &e.Item.Status,
			&e.Item.CreatedAt, &e.Item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("listing: scan wishlist entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing: iterate wishlist: %w", err)
	}
	return entries, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(
		&item.ID,
		&item.Title,
		&item.Description,
		&item.Category,
		&item.Price,
		&item.Condition,
		&item.Photos,
		&item.SellerID,
		&item.Status,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return Item{}, err
	}
	return item, nil
}
