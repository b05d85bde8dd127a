package repository

import (
	"context"
	"errors"
	"fmt"

	"shoprag/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a ProductStore backed by the products table.
func NewProductRepository(pool *pgxpool.Pool) domain.ProductStore {
	return &productRepository{pool: pool}
}

func (r *productRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

func (r *productRepository) GetByASIN(ctx context.Context, asin string) (*domain.Product, error) {
	query := `
		SELECT asin, title, category, average_rating, rating_count, price, features, description
		FROM products
		WHERE asin = $1
	`
	var p domain.Product
	err := r.getExecutor(ctx).QueryRow(ctx, query, asin).Scan(
		&p.ASIN,
		&p.Title,
		&p.Category,
		&p.AverageRating,
		&p.RatingCount,
		&p.Price,
		&p.Features,
		&p.Description,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (r *productRepository) Upsert(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (asin, title, category, average_rating, rating_count, price, features, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (asin) DO UPDATE SET
			title = EXCLUDED.title,
			category = EXCLUDED.category,
			average_rating = EXCLUDED.average_rating,
			rating_count = EXCLUDED.rating_count,
			price = EXCLUDED.price,
			features = EXCLUDED.features,
			description = EXCLUDED.description
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query,
		product.ASIN,
		product.Title,
		product.Category,
		product.AverageRating,
		product.RatingCount,
		product.Price,
		product.Features,
		product.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

func (r *productRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.getExecutor(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}
