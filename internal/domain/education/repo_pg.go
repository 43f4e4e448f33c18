package education

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/footcare/footcare/internal/platform/db"
)

type contentRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &contentRepoPG{pool: pool}
}

const (
	contentCols = `c.id, c.title, c.description, c.content, c.content_type, c.category, c.photo,
		c.views, c.created_at, c.updated_at, a.id, a.name, a.email`
	authorJoin = `LEFT JOIN accounts a ON a.id = c.created_by`
)

// sortColumns maps the accepted sort keys to columns.
var sortColumns = map[string]string{
	"createdAt": "c.created_at",
	"updatedAt": "c.updated_at",
	"title":     "c.title",
	"views":     "c.views",
	"category":  "c.category",
}

func scanContent(row pgx.Row, extra ...interface{}) (*Content, error) {
	var (
		c           Content
		authorID    *uuid.UUID
		name, email *string
	)
	dest := []interface{}{&c.ID, &c.Title, &c.Description, &c.Body, &c.ContentType, &c.Category, &c.Photo,
		&c.Views, &c.CreatedAt, &c.UpdatedAt, &authorID, &name, &email}
	err := row.Scan(append(dest, extra...)...)
	if err != nil {
		return nil, err
	}
	if authorID != nil {
		c.CreatedBy = &Author{ID: *authorID}
		if name != nil {
			c.CreatedBy.Name = *name
		}
		if email != nil {
			c.CreatedBy.Email = *email
		}
	}
	return &c, nil
}

// one runs a data-modifying statement whose RETURNING rows are exposed as
// CTE "c" and reads the result back with its author.
func (r *contentRepoPG) one(ctx context.Context, stmt string, args ...interface{}) (*Content, error) {
	c, err := scanContent(r.pool.QueryRow(ctx,
		`WITH c AS (`+stmt+`) SELECT `+contentCols+` FROM c `+authorJoin, args...))
	switch {
	case err == nil:
		return c, nil
	case db.IsNoRows(err):
		return nil, ErrNotFound
	default:
		return nil, translate(err)
	}
}

func translate(err error) error {
	name, ok := db.ConstraintViolation(err, db.CodeCheckViolation)
	if !ok {
		return err
	}
	switch name {
	case "educational_content_content_type_check":
		return ErrInvalidType
	case "educational_content_category_check":
		return InvalidCategory()
	}
	return err
}

func (r *contentRepoPG) Create(ctx context.Context, c *Content) error {
	created, err := r.one(ctx, `
		INSERT INTO educational_content (title, description, content, content_type, category, photo, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *`,
		c.Title, c.Description, c.Body, c.ContentType, c.Category, c.Photo, authorRef(c.CreatedBy))
	if err != nil {
		return err
	}
	*c = *created
	return nil
}

func (r *contentRepoPG) Get(ctx context.Context, id uuid.UUID) (*Content, error) {
	c, err := scanContent(r.pool.QueryRow(ctx,
		`SELECT `+contentCols+` FROM educational_content c `+authorJoin+` WHERE c.id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return c, err
}

func (r *contentRepoPG) GetAndCountView(ctx context.Context, id uuid.UUID) (*Content, error) {
	return r.one(ctx, `UPDATE educational_content SET views = views + 1 WHERE id = $1 RETURNING *`, id)
}

// Update locks the row while reading its current photo, so concurrent
// editors each replace the value the other committed.
func (r *contentRepoPG) Update(ctx context.Context, id uuid.UUID, p Patch) (*Content, string, error) {
	var previous string
	c, err := scanContent(r.pool.QueryRow(ctx, `
		WITH c AS (
			UPDATE educational_content e
			SET title        = COALESCE(NULLIF($2, ''), e.title),
			    description  = COALESCE(NULLIF($3, ''), e.description),
			    content      = COALESCE(NULLIF($4, ''), e.content),
			    content_type = COALESCE(NULLIF($5, ''), e.content_type),
			    category     = COALESCE(NULLIF($6, ''), e.category),
			    photo        = COALESCE(NULLIF($7, ''), e.photo),
			    updated_at   = NOW()
			FROM (SELECT id, photo FROM educational_content WHERE id = $1 FOR UPDATE) old
			WHERE e.id = old.id
			RETURNING e.*, old.photo AS previous_photo
		)
		SELECT `+contentCols+`, c.previous_photo FROM c `+authorJoin,
		id, p.Title, p.Description, p.Body, p.ContentType, p.Category, p.Photo), &previous)
	switch {
	case err == nil:
		return c, previous, nil
	case db.IsNoRows(err):
		return nil, "", ErrNotFound
	default:
		return nil, "", translate(err)
	}
}

func (r *contentRepoPG) Delete(ctx context.Context, id uuid.UUID) (*Content, error) {
	return r.one(ctx, `DELETE FROM educational_content WHERE id = $1 RETURNING *`, id)
}

func (r *contentRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Content, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	if f.Category != "" {
		where += fmt.Sprintf(` AND c.category = $%d`, idx)
		args = append(args, f.Category)
		idx++
	}
	if f.ContentType != "" {
		where += fmt.Sprintf(` AND c.content_type = $%d`, idx)
		args = append(args, f.ContentType)
		idx++
	}
	if f.Search != "" {
		where += fmt.Sprintf(` AND (c.title ILIKE $%d OR c.description ILIKE $%d)`, idx, idx)
		args = append(args, db.ContainsPattern(f.Search))
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM educational_content c`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[f.Sort]
	if !ok {
		col = sortColumns["createdAt"]
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	query := `SELECT ` + contentCols + ` FROM educational_content c ` + authorJoin + where +
		fmt.Sprintf(` ORDER BY %s %s, c.id %s`, col, dir, dir)
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, idx, idx+1)
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *contentRepoPG) Stats(ctx context.Context, top int) (*Stats, error) {
	st := &Stats{}

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM educational_content`).Scan(&st.TotalContent); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(views), 0)
		FROM educational_content
		GROUP BY category
		ORDER BY COUNT(*) DESC, category`)
	if err != nil {
		return nil, err
	}
	st.ContentByCategory, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (CategoryCount, error) {
		var cc CategoryCount
		err := row.Scan(&cc.Category, &cc.Count, &cc.TotalViews)
		return cc, err
	})
	if err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT content_type, COUNT(*) FROM educational_content
		GROUP BY content_type
		ORDER BY content_type`)
	if err != nil {
		return nil, err
	}
	st.ContentByType, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (TypeCount, error) {
		var tc TypeCount
		err := row.Scan(&tc.ContentType, &tc.Count)
		return tc, err
	})
	if err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, title, views, category, content_type FROM educational_content
		ORDER BY views DESC, created_at DESC
		LIMIT $1`, top)
	if err != nil {
		return nil, err
	}
	st.MostViewed, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (ViewedItem, error) {
		var v ViewedItem
		err := row.Scan(&v.ID, &v.Title, &v.Views, &v.Category, &v.ContentType)
		return v, err
	})
	if err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, title, category, created_at FROM educational_content
		ORDER BY created_at DESC
		LIMIT $1`, top)
	if err != nil {
		return nil, err
	}
	st.RecentContent, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (RecentItem, error) {
		var ri RecentItem
		err := row.Scan(&ri.ID, &ri.Title, &ri.Category, &ri.CreatedAt)
		return ri, err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func authorRef(a *Author) interface{} {
	if a == nil {
		return nil
	}
	return a.ID
}
