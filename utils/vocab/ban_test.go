package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleVocab() *Vocabulary {
	return New(map[string]int{"1girl": 1, "1girl_solo": 2, "solo": 3}, nil)
}

func TestCompileBanSpec(t *testing.T) {
	v := sampleVocab()

	tests := []struct {
		name string
		spec string
		want BanSpec
	}{
		{"wildcard prefix", "1girl*", BanSpec{{1}, {2}}},
		{"exact", "solo", BanSpec{{3}}},
		{"no match is no restriction", "nonexistent", nil},
		{"empty spec", " , ", nil},
		{"union in order", "solo, 1girl*", BanSpec{{3}, {1}, {2}}},
		{"duplicates collapse", "1girl, 1girl*", BanSpec{{1}, {2}}},
		{"suffix wildcard", "*solo", BanSpec{{2}, {3}}},
		{"regexp metacharacters are literal", "1gir.*", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompileBanSpec(tt.spec, v)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want == nil, got.Empty())
		})
	}
}

func TestCompileBanSpecSkipsSpecialTokensForWildcards(t *testing.T) {
	v := New(map[string]int{"<|bos|>": 0, "</general>": 1, "1girl": 2}, []string{"<|bos|>", "</general>"})

	assert.Equal(t, BanSpec{{2}}, CompileBanSpec("*", v))
	assert.Equal(t, BanSpec{{1}}, CompileBanSpec("</general>", v), "exact lookups may still name special tokens")
}

func TestCompileBanSpecNilVocabulary(t *testing.T) {
	assert.Nil(t, CompileBanSpec("1girl", nil))
}

func TestBanSpecIDs(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, BanSpec{{1}, {2, 3}}.IDs())
}
