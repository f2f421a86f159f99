package vocab

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vocabWithType(source, name, desc string, parents ...string) *Vocabulary {
	v := NewVocabulary(source)
	v.Types[name] = &Type{Name: name, Description: Description{Plain: desc, Rich: desc}, SubClassOf: parents}
	return v
}

func TestMerge(t *testing.T) {
	t.Parallel()

	t.Run("ExtensionWinsByDefault", func(t *testing.T) {
		t.Parallel()
		base := vocabWithType("base", "X", "A")
		ext := vocabWithType("ext", "X", "B")

		ev, err := Merge(base, ext, MergeOptions{})

		require.NoError(t, err)
		x, ok := ev.Type("X")
		require.True(t, ok)
		assert.Equal(t, "B", x.Description.Plain)
		assert.Equal(t, SourceExtension, x.Source)
		assert.Equal(t, "https://schema.org.ai/X", ev.EntityID("X", x.Source))
	})

	t.Run("BaseWins", func(t *testing.T) {
		t.Parallel()
		base := vocabWithType("base", "X", "A")
		ext := vocabWithType("ext", "X", "B")

		ev, err := Merge(base, ext, MergeOptions{ConflictStrategy: BaseWins})

		require.NoError(t, err)
		x, _ := ev.Type("X")
		assert.Equal(t, "A", x.Description.Plain)
		assert.Equal(t, SourceBase, x.Source)
	})

	t.Run("ErrorOnConflict", func(t *testing.T) {
		t.Parallel()
		base := vocabWithType("base", "X", "A")
		base.Properties["p"] = &Property{Name: "p"}
		ext := vocabWithType("ext", "X", "B")
		ext.Properties["p"] = &Property{Name: "p"}
		ext.Types["Y"] = &Type{Name: "Y"}

		ev, err := Merge(base, ext, MergeOptions{ConflictStrategy: ErrorOnConflict})

		require.Error(t, err)
		assert.Nil(t, ev)
		assert.True(t, IsFatal(err))
		var cerr *ConflictError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, []string{"X"}, cerr.Types)
		assert.Equal(t, []string{"p"}, cerr.Properties)
	})

	t.Run("ErrorOnConflictWithoutCollisions", func(t *testing.T) {
		t.Parallel()
		ev, err := Merge(vocabWithType("base", "X", "A"), vocabWithType("ext", "Y", "B"),
			MergeOptions{ConflictStrategy: ErrorOnConflict})

		require.NoError(t, err)
		assert.Equal(t, []string{"X", "Y"}, ev.TypeNames())
	})

	t.Run("ExtensionOverride", func(t *testing.T) {
		t.Parallel()
		base := vocabWithType("base", "Thing", "root")
		ext := vocabWithType("ext", "Agent", "An autonomous actor", "Thing")

		ev, err := Merge(base, ext, MergeOptions{})

		require.NoError(t, err)
		agent, ok := ev.Type("Agent")
		require.True(t, ok)
		assert.Equal(t, SourceExtension, agent.Source)
		types, _ := ev.FilterBySource(SourceExtension)
		require.Len(t, types, 1)
		assert.Equal(t, "Agent", types[0].Name)
	})

	t.Run("NilExtension", func(t *testing.T) {
		t.Parallel()
		ev, err := Merge(vocabWithType("base", "Thing", ""), nil, MergeOptions{})

		require.NoError(t, err)
		assert.Equal(t, 1, ev.TypeCount())
		assert.Equal(t, 0, ev.PropertyCount())
	})

	t.Run("InputsNotMutated", func(t *testing.T) {
		t.Parallel()
		base := vocabWithType("base", "X", "A", "Thing")
		ext := vocabWithType("ext", "X", "B")

		ev, err := Merge(base, ext, MergeOptions{})
		require.NoError(t, err)

		assert.Equal(t, Source(""), base.Types["X"].Source)
		assert.Equal(t, Source(""), ext.Types["X"].Source)
		x, _ := ev.Type("X")
		assert.NotSame(t, ext.Types["X"], x)
	})

	t.Run("UnknownStrategy", func(t *testing.T) {
		t.Parallel()
		_, err := Merge(nil, nil, MergeOptions{ConflictStrategy: "coin-flip"})

		require.Error(t, err)
		assert.False(t, IsFatal(err))
	})

	t.Run("CustomContexts", func(t *testing.T) {
		t.Parallel()
		ev, err := Merge(vocabWithType("base", "Thing", ""), nil, MergeOptions{BaseContext: "https://example.org"})

		require.NoError(t, err)
		assert.Equal(t, "https://example.org/Thing", ev.EntityID("Thing", SourceBase))
		assert.Equal(t, DefaultExtensionContext, ev.ContextFor(SourceExtension))
	})
}

func TestCombine(t *testing.T) {
	t.Parallel()

	a := vocabWithType("a.jsonld", "Agent", "first")
	b := vocabWithType("b.jsonld", "Agent", "second")
	b.Properties["goal"] = &Property{Name: "goal"}

	out, warnings := Combine("extensions", a, nil, b)

	assert.Equal(t, "second", out.Types["Agent"].Description.Plain)
	assert.Contains(t, out.Properties, "goal")
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnDuplicate, warnings[0].Kind)
	assert.Contains(t, warnings[0].Message, "b.jsonld")
}
