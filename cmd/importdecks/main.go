package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"

	"czar/domain"
	"czar/logger"
	"czar/migrations"
	"czar/storage"

	"github.com/gosimple/slug"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type DeckImporter interface {
	ImportDeck(ctx context.Context, deck domain.Deck) (string, error)
}

// pickCount accepts both 2 and "2".
type pickCount int

func (p *pickCount) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*p = pickCount(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid pick %q: %w", s, err)
	}
	*p = pickCount(n)
	return nil
}

// responseText accepts both {"text": "..."} and a bare string.
type responseText string

func (r *responseText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = responseText(s)
		return nil
	}
	var card struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &card); err != nil {
		return err
	}
	*r = responseText(card.Text)
	return nil
}

type dumpDeck struct {
	Name  string `json:"name"`
	Black []struct {
		Text string    `json:"text"`
		Pick pickCount `json:"pick"`
	} `json:"black"`
	White []responseText `json:"white"`
}

// parseDump reads a card dump keyed by deck code, returning decks sorted by key.
func parseDump(r io.Reader) ([]domain.Deck, error) {
	var dump map[string]dumpDeck
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, err
	}

	decks := make([]domain.Deck, 0, len(dump))
	for _, key := range slices.Sorted(maps.Keys(dump)) {
		d := dump[key]
		if d.Name == "" {
			d.Name = key
		}
		deck := domain.Deck{
			Name:  d.Name,
			Slug:  slug.Make(d.Name),
			Black: make([]domain.PromptCard, 0, len(d.Black)),
			White: make([]domain.ResponseCard, 0, len(d.White)),
		}
		for _, b := range d.Black {
			deck.Black = append(deck.Black, domain.PromptCard{Text: b.Text, Pick: int(b.Pick)})
		}
		for _, w := range d.White {
			deck.White = append(deck.White, domain.ResponseCard{Text: string(w)})
		}
		decks = append(decks, deck)
	}
	return decks, nil
}

type importReport struct {
	Imported   int
	Duplicates []string
}

// importDecks keeps going past duplicate slugs and stops on any other error.
func importDecks(ctx context.Context, importer DeckImporter, decks []domain.Deck) (importReport, error) {
	var report importReport
	for _, deck := range decks {
		id, err := importer.ImportDeck(ctx, deck)
		if errors.Is(err, domain.ErrDuplicateSlug) {
			log.Warn().Str("deck", deck.Name).Str("slug", deck.Slug).Msg("deck already imported, skipping")
			report.Duplicates = append(report.Duplicates, deck.Slug)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("importing %s: %w", deck.Name, err)
		}
		log.Debug().Str("deck", deck.Name).Str("id", id).Int("black", len(deck.Black)).Int("white", len(deck.White)).Msg("deck imported")
		report.Imported++
	}
	return report, nil
}

func main() {
	_ = godotenv.Load()

	file := flag.String("file", "cards.json", "card dump to import")
	dbURL := flag.String("db", os.Getenv("POSTGRES_URL"), "postgres connection string")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	logger.Setup(*debug)

	if *dbURL == "" {
		log.Fatal().Msg("missing postgres url, set POSTGRES_URL or -db")
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("opening card dump")
	}
	decks, err := parseDump(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("parsing card dump")
	}

	if err := migrations.Migrate(*dbURL); err != nil {
		log.Fatal().Err(err).Msg("running migrations")
	}

	ctx := context.Background()
	repo, err := storage.NewPostgresRepo(ctx, *dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to postgres")
	}
	defer repo.Close()

	log.Info().Int("decks", len(decks)).Msg("import started")
	report, err := importDecks(ctx, repo, decks)
	if err != nil {
		log.Fatal().Err(err).Int("imported", report.Imported).Msg("import failed")
	}
	log.Info().Int("imported", report.Imported).Int("skipped", len(report.Duplicates)).Msg("import complete")
}
