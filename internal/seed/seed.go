// Package seed はデモ用の記事を投入する。
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/marsblog/internal/model"
)

// Store はデモ投入で使う記事の永続化操作。
type Store interface {
	FindBySlug(ctx context.Context, slug string) (*model.Post, error)
	Save(ctx context.Context, post *model.Post) error
}

// Result は投入結果の件数。
type Result struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// demoPost はデモ記事の定義。
type demoPost struct {
	language  model.Language
	title     string
	titleIT   string
	content   string
	contentIT string
	tags      []string
	age       time.Duration // 公開日時を現在からどれだけ遡らせるか
}

var demoPosts = []demoPost{
	{
		language:  model.LanguagePrimary,
		title:     "Water ice detected beneath Utopia Planitia",
		titleIT:   "Ghiaccio d'acqua rilevato sotto Utopia Planitia",
		content:   "<p>Orbital radar soundings reveal a buried layer of water ice spanning an area larger than a small lake.</p>",
		contentIT: "<p>I sondaggi radar orbitali rivelano uno strato sepolto di ghiaccio d'acqua.</p>",
		tags:      []string{"ice", "radar"},
		age:       72 * time.Hour,
	},
	{
		language:  model.LanguagePrimary,
		title:     "A global dust storm, sol by sol",
		titleIT:   "Una tempesta di polvere globale, sol dopo sol",
		content:   "<p>How a regional storm grew until it wrapped the entire planet, and what it did to the rovers.</p>",
		contentIT: "<p>Come una tempesta regionale è cresciuta fino ad avvolgere l'intero pianeta.</p>",
		tags:      []string{"atmosphere", "dust"},
		age:       48 * time.Hour,
	},
	{
		language: model.LanguagePrimary,
		title:    "Reading the Jezero delta",
		content:  "<p>Layered sediments at the crater rim record a long-lived river that once fed a lake.</p>",
		tags:     []string{"geology", "jezero"},
		age:      24 * time.Hour,
	},
	{
		language: model.LanguageSecondary,
		title:    "Olympus Mons: il vulcano più alto del sistema solare",
		content:  "<p>Con i suoi 22 km di altezza, Olympus Mons supera di quasi tre volte l'Everest.</p>",
		tags:     []string{"vulcani"},
		age:      36 * time.Hour,
	},
	{
		language: model.LanguageSecondary,
		title:    "Phobos e Deimos, due lune in prestito",
		content:  "<p>Le piccole lune di Marte potrebbero essere asteroidi catturati o frammenti di un antico impatto.</p>",
		tags:     []string{"lune"},
		age:      12 * time.Hour,
	},
}

// Run はデモ記事を公開状態で投入する。同じスラッグの記事が既にある場合はスキップする。
// 何度実行しても同じ結果になる。
func Run(ctx context.Context, store Store, logger *slog.Logger) (*Result, error) {
	res := &Result{}
	now := time.Now().UTC()

	for _, d := range demoPosts {
		p := model.NewPost(model.PostInput{
			Title:     d.title,
			Content:   d.content,
			Tags:      d.tags,
			TitleIT:   model.StringPtr(d.titleIT),
			ContentIT: model.StringPtr(d.contentIT),
		})

		existing, err := store.FindBySlug(ctx, p.Slug)
		if err != nil {
			return nil, fmt.Errorf("failed to look up demo post %q: %w", p.Slug, err)
		}
		if existing != nil {
			res.Skipped++
			continue
		}

		// デモでは第2言語を基本言語とする記事も用意する
		p.Language = d.language
		p.CreatedAt = now.Add(-d.age)
		if _, err := p.Publish(); err != nil {
			return nil, err
		}
		publishedAt := p.CreatedAt
		p.PublishedAt = &publishedAt

		if err := store.Save(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to save demo post %q: %w", p.Slug, err)
		}
		res.Created++
	}

	logger.Info("demo posts seeded",
		slog.Int("created", res.Created),
		slog.Int("skipped", res.Skipped),
	)
	return res, nil
}
