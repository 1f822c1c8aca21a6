package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"czar/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const DecksPageSize = 10

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (pgr *PostgresRepo) Close() {
	pgr.pool.Close()
}

func wrapErr(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
}

// GetDecksByIds returns the decks in the order their ids were given.
// Ids that are not valid UUIDs or match no deck are skipped.
func (pgr *PostgresRepo) GetDecksByIds(ctx context.Context, ids []string) ([]domain.Deck, error) {
	uuids := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		uuids = append(uuids, parsed)
	}
	if len(uuids) == 0 {
		return []domain.Deck{}, nil
	}

	rows, err := pgr.pool.Query(ctx,
		`SELECT id::text, name, slug FROM decks WHERE id = ANY($1) ORDER BY array_position($1, id)`, uuids)
	if err != nil {
		return nil, wrapErr(err)
	}
	decks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Deck, error) {
		var d domain.Deck
		err := row.Scan(&d.Id, &d.Name, &d.Slug)
		return d, err
	})
	if err != nil {
		return nil, wrapErr(err)
	}

	if err := pgr.loadCards(ctx, decks); err != nil {
		return nil, err
	}
	return decks, nil
}

func (pgr *PostgresRepo) GetDeck(ctx context.Context, slug string) (domain.Deck, error) {
	var d domain.Deck
	err := pgr.pool.QueryRow(ctx, `SELECT id::text, name, slug FROM decks WHERE slug = $1`, slug).
		Scan(&d.Id, &d.Name, &d.Slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Deck{}, domain.ErrDeckNotFound
		}
		return domain.Deck{}, wrapErr(err)
	}

	decks := []domain.Deck{d}
	if err := pgr.loadCards(ctx, decks); err != nil {
		return domain.Deck{}, err
	}
	return decks[0], nil
}

// GetDecks is a case-insensitive substring search on deck names, paginated
// by DecksPageSize. Pages start at 1.
func (pgr *PostgresRepo) GetDecks(ctx context.Context, search string, page int) (domain.DeckPage, error) {
	if page < 1 {
		page = 1
	}
	pattern := "%" + escapeLike(search) + "%"

	var total int
	err := pgr.pool.QueryRow(ctx, `SELECT count(*) FROM decks WHERE name ILIKE $1 ESCAPE '\'`, pattern).Scan(&total)
	if err != nil {
		return domain.DeckPage{}, wrapErr(err)
	}

	rows, err := pgr.pool.Query(ctx, `
		SELECT d.id::text, d.name, d.slug,
			(SELECT count(*) FROM black_cards b WHERE b.deck_id = d.id),
			(SELECT count(*) FROM white_cards w WHERE w.deck_id = d.id)
		FROM decks d
		WHERE d.name ILIKE $1 ESCAPE '\'
		ORDER BY d.name, d.id
		LIMIT $2 OFFSET $3`, pattern, DecksPageSize, (page-1)*DecksPageSize)
	if err != nil {
		return domain.DeckPage{}, wrapErr(err)
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DeckSummary, error) {
		var s domain.DeckSummary
		err := row.Scan(&s.Id, &s.Name, &s.Slug, &s.BlackCount, &s.WhiteCount)
		return s, err
	})
	if err != nil {
		return domain.DeckPage{}, wrapErr(err)
	}

	totalPages := (total + DecksPageSize - 1) / DecksPageSize
	if totalPages == 0 {
		totalPages = 1
	}
	return domain.DeckPage{
		Docs:        docs,
		TotalDocs:   total,
		Limit:       DecksPageSize,
		Page:        page,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}, nil
}

// ImportDeck stores a deck and all of its cards in one transaction and
// returns the new deck id. Card order is preserved.
func (pgr *PostgresRepo) ImportDeck(ctx context.Context, deck domain.Deck) (string, error) {
	tx, err := pgr.pool.Begin(ctx)
	if err != nil {
		return "", wrapErr(err)
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `INSERT INTO decks(name, slug) VALUES($1, $2) RETURNING id::text`, deck.Name, deck.Slug).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return "", domain.ErrDuplicateSlug
		}
		return "", wrapErr(err)
	}
	deckId := uuid.MustParse(id)

	black := make([][]any, 0, len(deck.Black))
	for i, c := range deck.Black {
		black = append(black, []any{deckId, i, c.Text, c.RequiredPick()})
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"black_cards"}, []string{"deck_id", "position", "text", "pick"}, pgx.CopyFromRows(black)); err != nil {
		return "", wrapErr(err)
	}

	white := make([][]any, 0, len(deck.White))
	for i, c := range deck.White {
		white = append(white, []any{deckId, i, c.Text})
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"white_cards"}, []string{"deck_id", "position", "text"}, pgx.CopyFromRows(white)); err != nil {
		return "", wrapErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", wrapErr(err)
	}
	return id, nil
}

func (pgr *PostgresRepo) loadCards(ctx context.Context, decks []domain.Deck) error {
	if len(decks) == 0 {
		return nil
	}
	byId := make(map[string]*domain.Deck, len(decks))
	ids := make([]uuid.UUID, 0, len(decks))
	for i := range decks {
		decks[i].Black = []domain.PromptCard{}
		decks[i].White = []domain.ResponseCard{}
		byId[decks[i].Id] = &decks[i]
		ids = append(ids, uuid.MustParse(decks[i].Id))
	}

	rows, err := pgr.pool.Query(ctx,
		`SELECT id::text, deck_id::text, text, pick FROM black_cards WHERE deck_id = ANY($1) ORDER BY position`, ids)
	if err != nil {
		return wrapErr(err)
	}
	for rows.Next() {
		var c domain.PromptCard
		var deckId string
		if err := rows.Scan(&c.Id, &deckId, &c.Text, &c.Pick); err != nil {
			rows.Close()
			return wrapErr(err)
		}
		byId[deckId].Black = append(byId[deckId].Black, c)
	}
	if err := rows.Err(); err != nil {
		return wrapErr(err)
	}

	rows, err = pgr.pool.Query(ctx,
		`SELECT id::text, deck_id::text, text FROM white_cards WHERE deck_id = ANY($1) ORDER BY position`, ids)
	if err != nil {
		return wrapErr(err)
	}
	for rows.Next() {
		var c domain.ResponseCard
		var deckId string
		if err := rows.Scan(&c.Id, &deckId, &c.Text); err != nil {
			rows.Close()
			return wrapErr(err)
		}
		byId[deckId].White = append(byId[deckId].White, c)
	}
	if err := rows.Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
