package lore_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/knowledge"
	"github.com/becomeliminal/mindcraft-go/knowledge/store/chromem"
	"github.com/becomeliminal/mindcraft-go/lore"
	"github.com/becomeliminal/mindcraft-go/lore/splitter"
	"github.com/becomeliminal/mindcraft-go/memory/embedder/mock"
)

const sigmur = "In the age of Sigmur, everyone in the world is a zombie!"

func newLore(t *testing.T) (*lore.WorldLore, knowledge.Store) {
	t.Helper()
	store, err := chromem.Open(knowledge.Location{Kind: knowledge.KindWorld, Name: "TheAgeOfSigmur"}, mock.New())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	l, err := lore.New(context.Background(), "TheAgeOfSigmur", store)
	require.NoError(t, err)
	return l, store
}

func sentences(t *testing.T) lore.Chunker {
	t.Helper()
	s, err := splitter.NewSentenceSplitter(1, 0)
	require.NoError(t, err)
	return s
}

func TestWorldLore_SigmurScenario(t *testing.T) {
	l, _ := newLore(t)
	ctx := context.Background()

	n, err := l.Ingest(ctx, sigmur, sentences(t))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err := l.GetLore(ctx, lore.Query{Topic: "zombies", K: 5, MaxDistance: knowledge.NoThreshold})
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.Len(), 1)
	assert.Contains(t, res.Documents[0], "zombie")
	assert.Equal(t, "0", res.IDs[0])
}

func TestWorldLore_Visibility(t *testing.T) {
	l, store := newLore(t)
	ctx := context.Background()

	require.NoError(t, l.AddLore(ctx, "The crypt key is hidden under the altar", "secret", "Zombie Leader"))
	require.NoError(t, l.AddLore(ctx, "The crypt is north of the village", "public"))

	ids := func(knownBy string) []string {
		res, err := l.GetLore(ctx, lore.Query{Topic: "crypt", K: 10, KnownBy: knownBy, MaxDistance: knowledge.NoThreshold})
		require.NoError(t, err)
		return res.IDs
	}

	assert.ElementsMatch(t, []string{"secret", "public"}, ids("Zombie Leader"))
	assert.Equal(t, []string{"public"}, ids("Baker"))
	assert.Equal(t, []string{"public"}, ids(core.KnownByAll))
	assert.Equal(t, []string{"public"}, ids(""))

	// without any visibility filter the store returns everything
	raw, err := store.Query(ctx, knowledge.Query{Text: "crypt", K: 10, MaxDistance: knowledge.NoThreshold})
	require.NoError(t, err)
	assert.Equal(t, 2, raw.Len())
}

func TestWorldLore_MultipleKnowers(t *testing.T) {
	l, store := newLore(t)
	ctx := context.Background()

	require.NoError(t, l.AddLore(ctx, "The baker and the smith are siblings", "7", "Baker", "Smith", "Baker"))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one row per distinct knower")

	for _, who := range []string{"Baker", "Smith"} {
		res, err := l.GetLore(ctx, lore.Query{Topic: "siblings", K: 5, KnownBy: who, MaxDistance: knowledge.NoThreshold})
		require.NoError(t, err)
		assert.Equal(t, []string{"7"}, res.IDs, who)
	}

	res, err := l.GetLore(ctx, lore.Query{Topic: "siblings", K: 5, KnownBy: "Zombie Leader", MaxDistance: knowledge.NoThreshold})
	require.NoError(t, err)
	assert.Zero(t, res.Len())

	// "all" absorbs every other knower
	require.NoError(t, l.AddLore(ctx, "Everyone fears the moon", "8", "Baker", core.KnownByAll))
	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestWorldLore_RejectsReusedID(t *testing.T) {
	l, store := newLore(t)
	ctx := context.Background()

	require.NoError(t, l.AddLore(ctx, "the secret gate", "a", "Baker"))

	var dup *core.DuplicateIDError
	require.ErrorAs(t, l.AddLore(ctx, "the secret tunnel", "a", "Smith", "Baker"), &dup)
	assert.Equal(t, "a", dup.ID)
	require.ErrorAs(t, l.AddLore(ctx, "the secret door", "a"), &dup)

	// a single-knower id that shadows a row of a multi-knower entry
	require.NoError(t, l.AddLore(ctx, "the secret well", "w/Baker"))
	require.ErrorAs(t, l.AddLore(ctx, "the secret stair", "w", "Smith", "Baker"), &dup)
	assert.Equal(t, "w/Baker", dup.ID)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "rejected entries leave no rows behind")

	res, err := l.GetLore(ctx, lore.Query{Topic: "secret", K: 10, KnownBy: "Baker", MaxDistance: knowledge.NoThreshold})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"the secret gate", "the secret well"}, res.Documents)
}

func TestWorldLore_IngestSkipsTakenIDs(t *testing.T) {
	l, _ := newLore(t)
	ctx := context.Background()

	require.NoError(t, l.AddLore(ctx, "Sigmur rules the north.", "0"))
	require.NoError(t, l.AddLore(ctx, "The moon is red.", "2"))

	n, err := l.Ingest(ctx, "Zombies walk. Ghosts float.", sentences(t))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := l.GetLore(ctx, lore.Query{Topic: "zombies", K: 10, MaxDistance: knowledge.NoThreshold})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Len())
	assert.ElementsMatch(t, []string{"0", "1", "2", "3"}, res.IDs)
}

func TestWorldLore_IDsSurviveReopen(t *testing.T) {
	_, store := newLore(t)
	ctx := context.Background()

	first, err := lore.New(ctx, "TheAgeOfSigmur", store)
	require.NoError(t, err)
	require.NoError(t, first.AddLore(ctx, "The smith forges blades", "1", "Smith", "Baker"))

	// generation resumes at the row count
	again, err := lore.New(ctx, "TheAgeOfSigmur", store)
	require.NoError(t, err)
	_, err = again.Ingest(ctx, "Blades rust. Blades break.", sentences(t))
	require.NoError(t, err)

	all, err := store.Get(ctx, core.MetaKnownBy, core.KnownByAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, all.IDs)
}

func TestWorldLore_ContainsFilter(t *testing.T) {
	l, _ := newLore(t)
	ctx := context.Background()

	_, err := l.Ingest(ctx, "The Zombie Leader rules the crypt. The baker sells bread. The Zombie Leader hates bread.", sentences(t))
	require.NoError(t, err)

	res, err := l.GetLore(ctx, lore.Query{Topic: "bread", K: 5, Contains: "Zombie Leader", MaxDistance: knowledge.NoThreshold})
	require.NoError(t, err)
	require.NotZero(t, res.Len())
	for _, doc := range res.Documents {
		assert.Contains(t, doc, "Zombie Leader")
	}
}

func TestWorldLore_IngestKeepsOrderAndUniqueIDs(t *testing.T) {
	l, store := newLore(t)
	ctx := context.Background()

	_, err := l.Ingest(ctx, "First. Second. Third.", sentences(t))
	require.NoError(t, err)
	_, err = l.Ingest(ctx, "Fourth.", sentences(t))
	require.NoError(t, err)

	all, err := store.Get(ctx, core.MetaKnownBy, core.KnownByAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2", "3"}, all.IDs)
	assert.Equal(t, []string{"First.", "Second.", "Third.", "Fourth."}, all.Documents)
}

func TestWorldLore_IngestFile(t *testing.T) {
	l, _ := newLore(t)
	path := filepath.Join(t.TempDir(), "book.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("Zombies walk. ", 5)), 0o600))

	n, err := l.IngestFile(context.Background(), path, sentences(t), "Zombie Leader")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = l.IngestFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), sentences(t))
	assert.Error(t, err)
}

func TestWorldLore_Delete(t *testing.T) {
	l, _ := newLore(t)
	ctx := context.Background()
	require.NoError(t, l.AddLore(ctx, sigmur, "0"))

	require.NoError(t, l.Delete(ctx))
	_, err := l.GetLore(ctx, lore.Query{Topic: "zombie", K: 1})
	var closed *core.StoreClosedError
	require.ErrorAs(t, err, &closed)
}

func TestWorldLore_ConcurrentReadersDuringIngest(t *testing.T) {
	l, _ := newLore(t)
	ctx := context.Background()

	chunker := sentences(t)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := l.Ingest(ctx, strings.Repeat("The horde moves at night. ", 20), chunker)
		assert.NoError(t, err)
	}()
	for range 10 {
		res, err := l.GetLore(ctx, lore.Query{Topic: "horde", K: 3, MaxDistance: knowledge.NoThreshold})
		require.NoError(t, err)
		for _, doc := range res.Documents {
			assert.Equal(t, "The horde moves at night.", doc)
		}
	}
	wg.Wait()
}

func TestNew_RequiresName(t *testing.T) {
	_, store := newLore(t)
	_, err := lore.New(context.Background(), "", store)
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
