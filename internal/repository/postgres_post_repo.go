package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/marsblog/internal/model"
)

// postColumns はSELECT対象のカラム一覧。scanPostの引数順と一致させること。
const postColumns = `id, title, title_it, slug, content, content_it, media_url, media_type,
	tags, status, language, views, likes, created_at, published_at`

// PostgresPostRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// Save は記事を保存する。同一IDが存在する場合は編集可能なカラムを置き換える。
// created_atは初回挿入時の値を保持する。views/likesは挿入時のみ書き込み、
// 以後はIncrementViews/IncrementLikesの原子的な加算だけが更新する。
func (r *PostgresPostRepo) Save(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, title_it, slug, content, content_it, media_url, media_type,
		                    tags, status, language, views, likes, created_at, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (id) DO UPDATE SET
		    title = EXCLUDED.title,
		    title_it = EXCLUDED.title_it,
		    slug = EXCLUDED.slug,
		    content = EXCLUDED.content,
		    content_it = EXCLUDED.content_it,
		    media_url = EXCLUDED.media_url,
		    media_type = EXCLUDED.media_type,
		    tags = EXCLUDED.tags,
		    status = EXCLUDED.status,
		    language = EXCLUDED.language,
		    published_at = EXCLUDED.published_at`,
		post.ID, post.Title, nullStringPtr(post.TitleIT), post.Slug,
		post.Content, nullStringPtr(post.ContentIT),
		nullStringPtr(post.MediaURL), nullStringPtr(post.MediaType),
		pq.Array(tagsOrEmpty(post.Tags)), string(post.Status), string(post.Language),
		post.Views, post.Likes, post.CreatedAt, nullTimePtr(post.PublishedAt),
	)
	if err != nil {
		return model.NewStorageError("save post", err)
	}
	return nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`,
		id,
	)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewStorageError("find post by id", err)
	}
	return post, nil
}

// FindBySlug は指定スラッグの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE slug = $1`,
		slug,
	)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewStorageError("find post by slug", err)
	}
	return post, nil
}

// ListPublished は指定言語の公開記事をpublished_atの降順で返す。
func (r *PostgresPostRepo) ListPublished(ctx context.Context, lang model.Language, limit, offset int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM posts
		 WHERE status = 'published' AND language = $1
		 ORDER BY published_at DESC
		 LIMIT $2 OFFSET $3`,
		string(lang), limit, offset,
	)
	if err != nil {
		return nil, model.NewStorageError("list published posts", err)
	}
	return collectPosts(rows, "list published posts")
}

// ListAll は状態に関わらず全記事をcreated_atの降順で返す。
func (r *PostgresPostRepo) ListAll(ctx context.Context, limit, offset int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM posts
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, model.NewStorageError("list all posts", err)
	}
	return collectPosts(rows, "list all posts")
}

// Search はタイトルまたは本文に部分一致する公開記事を返す。
// クエリ中の % と _ はリテラルとして扱う。
func (r *PostgresPostRepo) Search(ctx context.Context, query string, lang model.Language) ([]*model.Post, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM posts
		 WHERE status = 'published' AND language = $1
		   AND (title ILIKE $2 ESCAPE '\' OR content ILIKE $2 ESCAPE '\')
		 ORDER BY published_at DESC`,
		string(lang), pattern,
	)
	if err != nil {
		return nil, model.NewStorageError("search posts", err)
	}
	return collectPosts(rows, "search posts")
}

// GetStats は指定言語の公開記事数と閲覧数の合計を返す。記事が無い場合は0を返す。
func (r *PostgresPostRepo) GetStats(ctx context.Context, lang model.Language) (*model.PostStats, error) {
	stats := &model.PostStats{}
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(views), 0)
		 FROM posts
		 WHERE status = 'published' AND language = $1`,
		string(lang),
	).Scan(&stats.PostCount, &stats.TotalViews)
	if err != nil {
		return nil, model.NewStorageError("get post stats", err)
	}
	return stats, nil
}

// Delete は指定IDの記事を削除する。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return model.NewStorageError("delete post", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return model.NewStorageError("delete post", err)
	}
	if rowsAffected == 0 {
		return &model.NotFoundError{Resource: "post", Key: id}
	}
	return nil
}

// IncrementViews は閲覧数を原子的に1増やし、更新後の値を返す。
func (r *PostgresPostRepo) IncrementViews(ctx context.Context, id string) (int64, error) {
	return r.increment(ctx, "views", id)
}

// IncrementLikes はいいね数を原子的に1増やし、更新後の値を返す。
func (r *PostgresPostRepo) IncrementLikes(ctx context.Context, id string) (int64, error) {
	return r.increment(ctx, "likes", id)
}

// increment はカウンタカラムを1増やす。columnは固定値のみを受け付ける。
func (r *PostgresPostRepo) increment(ctx context.Context, column, id string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE posts SET %[1]s = %[1]s + 1 WHERE id = $1 RETURNING %[1]s`, column),
		id,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &model.NotFoundError{Resource: "post", Key: id}
	}
	if err != nil {
		return 0, model.NewStorageError("increment "+column, err)
	}
	return n, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPost は1行を記事に変換する。未知のstatus値はエラーにする。
func scanPost(s rowScanner) (*model.Post, error) {
	post := &model.Post{}
	var titleIT, contentIT, mediaURL, mediaType sql.NullString
	var status, language string
	var publishedAt sql.NullTime

	err := s.Scan(
		&post.ID, &post.Title, &titleIT, &post.Slug,
		&post.Content, &contentIT, &mediaURL, &mediaType,
		pq.Array(&post.Tags), &status, &language,
		&post.Views, &post.Likes, &post.CreatedAt, &publishedAt,
	)
	if err != nil {
		return nil, err
	}

	post.Status, err = model.ParsePostStatus(status)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", post.ID, err)
	}
	post.Language = model.Language(language)
	post.TitleIT = nullStringPtrValue(titleIT)
	post.ContentIT = nullStringPtrValue(contentIT)
	post.MediaURL = nullStringPtrValue(mediaURL)
	post.MediaType = nullStringPtrValue(mediaType)
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		post.PublishedAt = &t
	}
	return post, nil
}

// collectPosts は結果セットを走査して記事スライスを返す。rowsは必ずクローズする。
func collectPosts(rows *sql.Rows, op string) ([]*model.Post, error) {
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, model.NewStorageError(op, err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError(op, err)
	}
	return posts, nil
}

// likeEscaper はILIKEパターンのメタ文字をエスケープする。
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike は検索語をILIKEのリテラルとして扱えるようにエスケープする。
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// tagsOrEmpty はnilのタグを空配列に正規化する（tagsカラムはNOT NULL）。
func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// IsUniqueViolation はerrが一意制約違反（SQLSTATE 23505）かを返す。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
