package vocab

import (
	"encoding/json"
	"fmt"

	"github.com/kris-hansen/tagup/utils/fileutil"
)

type tokenizerFile struct {
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
	Model struct {
		Type  string          `json:"type"`
		Vocab json.RawMessage `json:"vocab"`
	} `json:"model"`
}

// LoadTokenizerJSON reads the vocabulary out of a Hugging Face tokenizer.json
func LoadTokenizerJSON(path string) (*Vocabulary, error) {
	data, err := fileutil.SafeReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokenizer: %w", err)
	}
	v, err := ParseTokenizerJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// ParseTokenizerJSON decodes tokenizer.json content. BPE/WordPiece style
// vocab objects and Unigram style [token, score] lists are both accepted.
// Added tokens are merged into the vocabulary and those flagged special are
// marked special.
func ParseTokenizerJSON(data []byte) (*Vocabulary, error) {
	var tf tokenizerFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse tokenizer: %w", err)
	}

	ids := make(map[string]int)
	if len(tf.Model.Vocab) > 0 && string(tf.Model.Vocab) != "null" {
		if err := json.Unmarshal(tf.Model.Vocab, &ids); err != nil {
			var unigram [][2]json.RawMessage
			if err2 := json.Unmarshal(tf.Model.Vocab, &unigram); err2 != nil {
				return nil, fmt.Errorf("unsupported vocab layout for model type %q: %w", tf.Model.Type, err)
			}
			for i, pair := range unigram {
				var tok string
				if err := json.Unmarshal(pair[0], &tok); err != nil {
					return nil, fmt.Errorf("unigram entry %d: %w", i, err)
				}
				ids[tok] = i
			}
		}
	}

	var special []string
	for _, t := range tf.AddedTokens {
		ids[t.Content] = t.ID
		if t.Special {
			special = append(special, t.Content)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("tokenizer has an empty vocabulary")
	}
	return New(ids, special), nil
}
