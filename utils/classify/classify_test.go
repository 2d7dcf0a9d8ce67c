package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kris-hansen/tagup/utils/tags"
	"github.com/kris-hansen/tagup/utils/vocab"
)

func newTestClassifier(t *testing.T) (*Classifier, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	v := vocab.New(map[string]int{
		"<|bos|>":    0,
		"1girl":      1,
		"solo":       2,
		"long hair":  3,
		"twintails":  4,
		"aqua hair":  5,
		"from above": 6,
	}, []string{"<|bos|>"})
	c := New(
		tags.NewTagList([]string{"vocaloid", "touhou", "both listed"}),
		tags.NewTagList([]string{"hatsune miku", "hakurei reimu", "both listed"}),
		v,
		zap.New(core),
	)
	return c, logs
}

func TestParsePartitionsInput(t *testing.T) {
	c, logs := newTestClassifier(t)

	r := c.Parse("vocaloid, hatsune_miku, 1girl, <|bos|>, sensitive, twintails, explicit", SplitComma)

	assert.Equal(t, "vocaloid", r.Copyright)
	assert.Equal(t, "hatsune miku", r.Character)
	assert.Equal(t, "1girl, twintails", r.Known)
	assert.Equal(t, "sensitive, explicit", r.Unknown)
	assert.Equal(t, tags.RatingSensitive, r.Rating, "first matching unknown tag decides")
	assert.Equal(t, []string{"<|bos|>"}, r.Dropped)
	assert.Equal(t, 6, r.Total())

	assert.Equal(t, 1, logs.FilterMessage("dropping special token from input").Len())
	assert.Equal(t, 2, logs.FilterMessage("tag not in vocabulary").Len())
}

func TestParsePartitionInvariant(t *testing.T) {
	c, _ := newTestClassifier(t)

	inputs := []string{
		"",
		"1girl",
		"touhou, hakurei reimu, solo, from above, unknown tag",
		"<|bos|>, <|bos|>, 1girl, 1girl",
		" , ,long_hair,, aqua hair ,",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			tokens := Tokenize(in, SplitComma)
			r := c.Parse(in, SplitComma)
			require.Equal(t, len(tokens)-len(r.Dropped), r.Total())

			var all []string
			all = append(all, r.CopyrightTags...)
			all = append(all, r.CharacterTags...)
			all = append(all, r.KnownTags...)
			all = append(all, r.UnknownTags...)
			all = append(all, r.Dropped...)
			assert.ElementsMatch(t, tokens, all)
		})
	}
}

func TestParseDualMembershipIsExclusive(t *testing.T) {
	c, _ := newTestClassifier(t)
	r := c.Parse("both listed", SplitComma)
	assert.Equal(t, "both listed", r.Copyright)
	assert.Empty(t, r.Character)
	assert.Equal(t, 1, r.Total())
}

func TestParseBracketMode(t *testing.T) {
	c, _ := newTestClassifier(t)

	r := c.Parse("(hatsune miku:1.2), ((1girl)), [solo], (nsfw)", SplitBrackets)
	assert.Equal(t, "hatsune miku", r.Character)
	assert.Equal(t, "1girl, solo", r.Known)
	assert.Equal(t, "nsfw", r.Unknown)
	assert.Equal(t, tags.RatingQuestionable, r.Rating)

	comma := c.Parse("(hatsune miku:1.2)", SplitComma)
	assert.Equal(t, "(hatsune miku:1.2)", comma.Unknown)
}

func TestParseFoldsFullWidthText(t *testing.T) {
	c, _ := newTestClassifier(t)
	r := c.Parse("1girl，solo", SplitComma)
	assert.Equal(t, "1girl, solo", r.Known)
}

func TestParseWithoutVocabulary(t *testing.T) {
	c := New(nil, nil, nil, nil)
	r := c.Parse("anything, goes", SplitComma)
	assert.Equal(t, "anything, goes", r.Known)
	assert.Empty(t, r.Unknown)
	assert.Equal(t, tags.RatingGeneral, r.Rating)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("brackets")
	require.NoError(t, err)
	assert.Equal(t, SplitBrackets, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, SplitComma, m)

	_, err = ParseMode("regex")
	assert.Error(t, err)
}

func TestTokenizeKeepsMarkupUnderscores(t *testing.T) {
	assert.Equal(t, []string{"<|reserved_6|>", "long hair"}, Tokenize("<|reserved_6|>, long_hair", SplitComma))
}

func TestParseMatchesUnderscoreListEntries(t *testing.T) {
	c := New(
		tags.ParseTagList([]byte("fate/grand_order\n")),
		tags.ParseTagList([]byte("hatsune_miku\n")),
		vocab.New(map[string]int{"1girl": 1}, nil),
		nil,
	)

	tests := []struct {
		name  string
		input string
	}{
		{"spaced input", "fate/grand order, hatsune miku, 1girl"},
		{"underscored input", "fate/grand_order, hatsune_miku, 1girl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := c.Parse(tt.input, SplitComma)
			assert.Equal(t, "fate/grand order", r.Copyright)
			assert.Equal(t, "hatsune miku", r.Character)
			assert.Equal(t, "1girl", r.Known)
			assert.Empty(t, r.Unknown)
		})
	}
}
