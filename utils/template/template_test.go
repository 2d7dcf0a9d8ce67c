package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kris-hansen/tagup/utils/tags"
)

const sftTemplate = "<|bos|>{rating}{aspect_ratio}{length}<copyright>{copyright}</copyright><character>{character}</character><general>{condition}<|input_end|>"

func testTables() Tables {
	return Tables{
		AxisRating:      Enum("<|rating:%s|>", "general", "sensitive", "questionable", "explicit"),
		AxisLength:      Enum("<|length:%s|>", "very_short", "short", "medium", "long", "very_long"),
		AxisAspectRatio: Enum("<|aspect_ratio:%s|>", "tall", "square", "wide"),
	}
}

func testComposer(t *testing.T) *Composer {
	t.Helper()
	set := NewSet()
	require.NoError(t, set.Add("default", sftTemplate, map[string]string{
		"rating": "general", "length": "medium", "aspect_ratio": "tall",
		"copyright": "", "character": "", "condition": "",
	}))
	require.NoError(t, set.Add("extension", "{aspect_ratio}<copyright>{copyright}</copyright><translation>{translation}</translation>", map[string]string{
		"copyright": "", "translation": "",
	}))
	return NewComposer(testTables(), set)
}

func TestParse(t *testing.T) {
	tmpl, err := Parse("a{x}b{{literal}}{y}{x}")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, tmpl.Fields())
	assert.True(t, tmpl.Uses("y"))
	assert.False(t, tmpl.Uses("literal"))

	out, err := tmpl.Execute(map[string]string{"x": "1", "y": "2"})
	require.NoError(t, err)
	assert.Equal(t, "a1b{literal}21", out)

	_, err = tmpl.Execute(map[string]string{"x": "1"})
	assert.ErrorIs(t, err, ErrMissingValue)
}

func TestParseMalformed(t *testing.T) {
	for _, src := range []string{"{unclosed", "stray }", "{}", "{1abc}", "{with space}"} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			assert.ErrorIs(t, err, ErrMalformedTemplate)
		})
	}
}

func TestCompose(t *testing.T) {
	c := testComposer(t)

	out, err := c.Compose("default", Config{Rating: "sensitive", Length: "long", AspectRatio: "wide",
		Overrides: map[string]string{"copyright": "vocaloid", "condition": "1girl, solo"}}, nil)
	require.NoError(t, err)
	assert.Equal(t,
		"<|bos|><|rating:sensitive|><|aspect_ratio:wide|><|length:long|><copyright>vocaloid</copyright><character></character><general>1girl, solo<|input_end|>",
		out)
}

func TestComposeUsesDefaults(t *testing.T) {
	c := testComposer(t)
	out, err := c.Compose("default", Config{}, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<|bos|><|rating:general|><|aspect_ratio:tall|><|length:medium|>"))
}

func TestComposeLayering(t *testing.T) {
	c := testComposer(t)
	seeded := map[string]string{"copyright": "vocaloid", "translation": "1girl"}

	out, err := c.Compose("extension", Config{AspectRatio: "square"}, seeded)
	require.NoError(t, err)
	assert.Equal(t, "<|aspect_ratio:square|><copyright>vocaloid</copyright><translation>1girl</translation>", out)

	out, err = c.Compose("extension", Config{AspectRatio: "square", Overrides: map[string]string{"copyright": "touhou"}}, seeded)
	require.NoError(t, err)
	assert.Contains(t, out, "<copyright>touhou</copyright>", "caller overrides win over seeded values")
}

func TestComposeErrors(t *testing.T) {
	c := testComposer(t)

	_, err := c.Compose("nope", Config{}, nil)
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	_, err = c.Compose("default", Config{Rating: "sfw"}, nil)
	assert.ErrorIs(t, err, ErrUnknownEnumValue)

	_, err = c.Compose("default", Config{Rating: AutoValue}, nil)
	assert.ErrorIs(t, err, ErrUnresolvedAuto)

	_, err = c.Compose("default", Config{Overrides: map[string]string{"rating": "auto"}}, nil)
	assert.ErrorIs(t, err, ErrUnresolvedAuto)

	_, err = c.Compose("extension", Config{}, nil)
	assert.ErrorIs(t, err, ErrMissingValue, "aspect_ratio has no default in the extension template")
}

func TestResolveRatingNeverLeaksAuto(t *testing.T) {
	c := testComposer(t)
	estimates := []tags.Rating{tags.RatingGeneral, tags.RatingSensitive, tags.RatingQuestionable, tags.RatingExplicit}

	for _, r := range estimates {
		t.Run(string(r), func(t *testing.T) {
			for _, cfg := range []Config{
				{Rating: AutoValue},
				{Overrides: map[string]string{"rating": AutoValue}},
			} {
				resolved := ResolveRating(cfg, func() tags.Rating { return r })
				assert.False(t, resolved.NeedsRating())

				out, err := c.Compose("default", resolved, nil)
				require.NoError(t, err)
				assert.NotContains(t, out, "auto")
				assert.Contains(t, out, "<|rating:"+string(r)+"|>")
			}
		})
	}
}

func TestResolveRatingSkipsEstimateWhenConcrete(t *testing.T) {
	called := false
	cfg := ResolveRating(Config{Rating: "explicit"}, func() tags.Rating {
		called = true
		return tags.RatingGeneral
	})
	assert.False(t, called)
	assert.Equal(t, "explicit", cfg.Rating)
}

func TestResolveRatingDoesNotMutateOverrides(t *testing.T) {
	overrides := map[string]string{"rating": AutoValue}
	ResolveRating(Config{Overrides: overrides}, func() tags.Rating { return tags.RatingExplicit })
	assert.Equal(t, AutoValue, overrides["rating"])
}

func TestTables(t *testing.T) {
	tables := Tables{AxisRating: Pairs("general", "rating:sfw, rating:general")}
	lit, err := tables.Lookup(AxisRating, "general")
	require.NoError(t, err)
	assert.Equal(t, "rating:sfw, rating:general", lit)

	_, err = tables.Lookup(AxisLength, "long")
	assert.ErrorIs(t, err, ErrUnknownEnumValue)

	assert.Equal(t, []string{"tall", "square", "wide"}, testTables()[AxisAspectRatio].Keys())
}

func TestSetNamesAndDefaults(t *testing.T) {
	c := testComposer(t)
	assert.Equal(t, []string{"default", "extension"}, c.Set().Names())

	d, err := c.Set().Defaults("default")
	require.NoError(t, err)
	d["rating"] = "explicit"
	again, _ := c.Set().Defaults("default")
	assert.Equal(t, "general", again["rating"])

	assert.ErrorIs(t, c.Set().Add("bad", "{oops", nil), ErrMalformedTemplate)
}
