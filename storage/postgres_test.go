package storage_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"czar/domain"
	"czar/migrations"
	"czar/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var repo *storage.PostgresRepo

func TestMain(m *testing.M) {
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine3.22",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testusername"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		panic(err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	if err := migrations.Migrate(connString); err != nil {
		panic(err)
	}

	repo, err = storage.NewPostgresRepo(ctx, connString)
	if err != nil {
		panic(err)
	}

	code := m.Run()

	repo.Close()
	postgresContainer.Terminate(ctx)
	os.Exit(code)
}

func sampleDeck(name, slug string, blacks, whites int) domain.Deck {
	d := domain.Deck{Name: name, Slug: slug}
	for i := range blacks {
		d.Black = append(d.Black, domain.PromptCard{Text: fmt.Sprintf("%s black %d ____", name, i), Pick: 1 + i%2})
	}
	for i := range whites {
		d.White = append(d.White, domain.ResponseCard{Text: fmt.Sprintf("%s white %d", name, i)})
	}
	return d
}

func TestPostgresRepo(t *testing.T) {
	ctx := context.Background()

	var baseId, expansionId string

	t.Run("ImportDeck", func(t *testing.T) {
		var err error
		baseId, err = repo.ImportDeck(ctx, sampleDeck("Base Set", "base-set", 3, 5))
		require.NoError(t, err)
		assert.NotEmpty(t, baseId)

		expansionId, err = repo.ImportDeck(ctx, sampleDeck("First Expansion", "first-expansion", 2, 4))
		require.NoError(t, err)
		assert.NotEmpty(t, expansionId)
	})

	t.Run("ImportDeck_Rows", func(t *testing.T) {
		var blacks, whites, maxPosition int
		err := repo.GetPool().QueryRow(ctx,
			`SELECT count(*), max(position) FROM black_cards WHERE deck_id = $1`, baseId).Scan(&blacks, &maxPosition)
		require.NoError(t, err)
		assert.Equal(t, 3, blacks)
		assert.Equal(t, 2, maxPosition)

		err = repo.GetPool().QueryRow(ctx, `SELECT count(*) FROM white_cards WHERE deck_id = $1`, expansionId).Scan(&whites)
		require.NoError(t, err)
		assert.Equal(t, 4, whites)
	})

	t.Run("ImportDeck_DuplicateSlug", func(t *testing.T) {
		_, err := repo.ImportDeck(ctx, sampleDeck("Base Set Again", "base-set", 1, 1))
		assert.ErrorIs(t, err, domain.ErrDuplicateSlug)

		var decks int
		err = repo.GetPool().QueryRow(ctx, `SELECT count(*) FROM decks WHERE slug = 'base-set'`).Scan(&decks)
		require.NoError(t, err)
		assert.Equal(t, 1, decks, "a rejected import leaves nothing behind")
	})

	t.Run("GetDeck", func(t *testing.T) {
		deck, err := repo.GetDeck(ctx, "base-set")
		require.NoError(t, err)
		assert.Equal(t, baseId, deck.Id)
		assert.Equal(t, "Base Set", deck.Name)
		require.Len(t, deck.Black, 3)
		require.Len(t, deck.White, 5)
		assert.Equal(t, "Base Set black 0 ____", deck.Black[0].Text)
		assert.Equal(t, 2, deck.Black[1].Pick)
		assert.Equal(t, "Base Set white 4", deck.White[4].Text)
		assert.NotEmpty(t, deck.White[0].Id)
	})

	t.Run("GetDeck_NotFound", func(t *testing.T) {
		_, err := repo.GetDeck(ctx, "ghost-deck")
		assert.ErrorIs(t, err, domain.ErrDeckNotFound)
	})

	t.Run("GetDecksByIds keeps requested order", func(t *testing.T) {
		decks, err := repo.GetDecksByIds(ctx, []string{expansionId, "not-a-uuid", baseId})
		require.NoError(t, err)
		require.Len(t, decks, 2)
		assert.Equal(t, "first-expansion", decks[0].Slug)
		assert.Equal(t, "base-set", decks[1].Slug)
		assert.Len(t, decks[0].White, 4)
		assert.Len(t, decks[1].Black, 3)
	})

	t.Run("GetDecksByIds empty", func(t *testing.T) {
		decks, err := repo.GetDecksByIds(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, decks)
	})

	t.Run("GetDecks search", func(t *testing.T) {
		page, err := repo.GetDecks(ctx, "EXPANSION", 1)
		require.NoError(t, err)
		assert.Equal(t, 1, page.TotalDocs)
		require.Len(t, page.Docs, 1)
		assert.Equal(t, "first-expansion", page.Docs[0].Slug)
		assert.Equal(t, 2, page.Docs[0].BlackCount)
		assert.Equal(t, 4, page.Docs[0].WhiteCount)
		assert.False(t, page.HasNextPage)
	})

	t.Run("GetDecks search escapes wildcards", func(t *testing.T) {
		page, err := repo.GetDecks(ctx, "%", 1)
		require.NoError(t, err)
		assert.Equal(t, 0, page.TotalDocs)
		assert.Empty(t, page.Docs)
	})

	t.Run("GetDecks pagination", func(t *testing.T) {
		for i := range 11 {
			_, err := repo.ImportDeck(ctx, sampleDeck(fmt.Sprintf("Pack %02d", i), fmt.Sprintf("pack-%02d", i), 1, 1))
			require.NoError(t, err)
		}

		first, err := repo.GetDecks(ctx, "pack", 1)
		require.NoError(t, err)
		assert.Equal(t, 11, first.TotalDocs)
		assert.Equal(t, 2, first.TotalPages)
		assert.Len(t, first.Docs, storage.DecksPageSize)
		assert.True(t, first.HasNextPage)
		assert.False(t, first.HasPrevPage)

		second, err := repo.GetDecks(ctx, "pack", 2)
		require.NoError(t, err)
		require.Len(t, second.Docs, 1)
		assert.Equal(t, "pack-10", second.Docs[0].Slug)
		assert.True(t, second.HasPrevPage)
	})
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, storage.EscapeLike("100%"))
	assert.Equal(t, `a\_b`, storage.EscapeLike("a_b"))
	assert.Equal(t, `c:\\`, storage.EscapeLike(`c:\`))
}
