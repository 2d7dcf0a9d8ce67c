package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kris-hansen/tagup/utils/config"
	"github.com/kris-hansen/tagup/utils/history"
	"github.com/kris-hansen/tagup/utils/models"
)

const testTokenizer = `{
  "added_tokens": [
    {"id": 0, "content": "<|bos|>", "special": true},
    {"id": 1, "content": "</general>", "special": true}
  ],
  "model": {"type": "BPE", "vocab": {
    "1girl": 2, "solo": 3, "long hair": 4, "short hair": 5, "vocaloid": 6, "hatsune miku": 7
  }}
}`

// sidecar is a fake generation sidecar keyed by model and stop marker
type sidecar struct {
	mu       sync.Mutex
	requests map[string][]map[string]interface{}
}

func (s *sidecar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	model, _ := body["model"].(string)
	stop, _ := body["stop"].(string)
	tmpl, _ := body["template"].(string)

	s.mu.Lock()
	s.requests[model] = append(s.requests[model], body)
	s.mu.Unlock()

	var text string
	switch {
	case model == "dart-v2408" && stop == models.TranslationEnd:
		text = "vocaloid</copyright><character>hatsune miku</character><translation>1girl</translation>"
	case model == "dart-v2408":
		text = "twintails</extension>"
	default:
		text = "solo, long_hair"
	}
	json.NewEncoder(w).Encode(models.Output{Full: tmpl + text, New: text, Raw: tmpl + text})
}

func (s *sidecar) last(model string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	reqs := s.requests[model]
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

type fixture struct {
	server  *Server
	handler http.Handler
	sidecar *sidecar
	journal *history.Journal
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	dir := t.TempDir()
	write := func(path, content string) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	tokenizer := filepath.Join(dir, "tokenizer.json")
	write(tokenizer, testTokenizer)
	write(filepath.Join(dir, "tags", "v3", "copyright.txt"), "vocaloid\n")
	write(filepath.Join(dir, "tags", "v3", "character.txt"), "hatsune miku\n")
	write(filepath.Join(dir, "ban", "hair.txt"), "*hair\n")

	sc := &sidecar{requests: make(map[string][]map[string]interface{})}
	backend := httptest.NewServer(sc)
	t.Cleanup(backend.Close)

	env := config.DefaultEnvConfig()
	env.TagsDir = filepath.Join(dir, "tags")
	env.BanTemplateDir = filepath.Join(dir, "ban")
	env.DefaultModel = "v2408"
	env.Server.BearerToken = token
	env.Server.CORS.Enabled = true
	env.Backends["sidecar"] = config.BackendConfig{Kind: "http", Endpoint: backend.URL}
	env.Models = []config.ModelConfig{
		{Name: "v2408", Version: "v2408", Backend: "sidecar", RemoteModel: "dart-v2408"},
		{Name: "v3", Version: "v3", Backend: "sidecar", RemoteModel: "dart-v3", Tokenizer: tokenizer},
		{Name: "offline", Version: "v2"},
	}
	require.NoError(t, env.Validate())

	journal, err := history.Open(context.Background(), filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	s := New(env, models.NewCatalog(env, nil, nil), journal, nil)
	return &fixture{server: s, handler: s.Handler(), sidecar: sc, journal: journal}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var resp Response
	if rec.Header().Get("Content-Type") == "application/json" {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

// result decodes the "result" member of a response body into v
func result(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Result, v))
}

func TestHealthSkipsAuthentication(t *testing.T) {
	f := newFixture(t, "secret")
	rec, _ := f.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, HealthResponse{Status: "ok", Models: 3}, health)
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t, "secret")

	rec, resp := f.do(t, http.MethodGet, "/v1/models", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = f.do(t, http.MethodGet, "/v1/models", nil, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/v1/models", nil, "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	var list ModelListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, "list", list.Object)
	require.Len(t, list.Data, 3)
	assert.Equal(t, "offline", list.Data[0].ID)
	assert.Equal(t, "v2408", list.Data[1].ID)
	assert.True(t, list.Data[1].Default)
	assert.Equal(t, "v3", list.Data[2].Version)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, "secret")
	rec, _ := f.do(t, http.MethodOptions, "/v1/upsample", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestUpsampleTwoStage(t *testing.T) {
	f := newFixture(t, "")
	seed := 7
	rec, resp := f.do(t, http.MethodPost, "/v1/upsample", UpsampleRequest{
		Text: "a singer with long teal hair",
		Seed: &seed,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)
	assert.Equal(t, "v2408", resp.Model)

	var res struct {
		AllTags        string `json:"all_tags"`
		TranslatedTags string `json:"translated_tags"`
		ExtensionTags  string `json:"extension_tags"`
	}
	result(t, rec, &res)
	assert.Equal(t, "vocaloid, hatsune miku, 1girl, twintails", res.AllTags)
	assert.Equal(t, "vocaloid, hatsune miku, 1girl", res.TranslatedTags)
	assert.Equal(t, "twintails", res.ExtensionTags)

	last := f.sidecar.last("dart-v2408")
	assert.Equal(t, "a singer with long teal hair", last["text"])
	gen := last["generation_config"].(map[string]interface{})
	assert.EqualValues(t, 7, gen["seed"])

	entries, err := f.journal.List(context.Background(), "v2408", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "vocaloid, hatsune miku, 1girl, twintails", entries[0].AllTags)
	require.NotNil(t, entries[0].Seed)
	assert.Equal(t, 7, *entries[0].Seed)
}

func TestUpsampleSingleStageWithBanTemplate(t *testing.T) {
	f := newFixture(t, "")
	rec, _ := f.do(t, http.MethodPost, "/v1/upsample", map[string]interface{}{
		"model":        "v3",
		"text":         "vocaloid, hatsune_miku, (1girl:1.2)",
		"mode":         "brackets",
		"config":       map[string]string{"rating": "auto", "length": "short"},
		"ban_tags":     "solo",
		"ban_template": "hair",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		AllTags       string `json:"all_tags"`
		GeneratedTags string `json:"generated_tags"`
	}
	result(t, rec, &res)
	assert.Equal(t, "vocaloid, hatsune miku, 1girl, solo, long hair", res.AllTags)
	assert.Equal(t, "solo, long hair", res.GeneratedTags)

	last := f.sidecar.last("dart-v3")
	assert.Equal(t, "<|bos|><|rating:general|><|aspect_ratio:tall|><|length:short|>"+
		"<copyright>vocaloid</copyright><character>hatsune miku</character><general>1girl", last["template"])
	assert.Equal(t, []interface{}{
		[]interface{}{float64(3)},
		[]interface{}{float64(4)},
		[]interface{}{float64(5)},
	}, last["bad_words_ids"])
	_, hasText := last["text"]
	assert.False(t, hasText, "decoder-only model gets no encoder text")
}

func TestUpsampleErrors(t *testing.T) {
	f := newFixture(t, "")
	tests := []struct {
		name   string
		method string
		body   interface{}
		status int
	}{
		{"wrong method", http.MethodGet, nil, http.StatusMethodNotAllowed},
		{"unknown model", http.MethodPost, UpsampleRequest{Model: "nope", Text: "x"}, http.StatusNotFound},
		{"no backend", http.MethodPost, UpsampleRequest{Model: "offline", Text: "1girl"}, http.StatusServiceUnavailable},
		{"bad mode", http.MethodPost, UpsampleRequest{Model: "v3", Text: "x", Mode: "spaces"}, http.StatusBadRequest},
		{"bad enum", http.MethodPost, map[string]interface{}{"model": "v3", "text": "x", "config": map[string]string{"length": "huge"}}, http.StatusBadRequest},
		{"bad generation", http.MethodPost, map[string]interface{}{"text": "x", "generation_config": map[string]int{"max_new_tokens": 0}}, http.StatusBadRequest},
		{"missing ban template", http.MethodPost, UpsampleRequest{Model: "v3", Text: "x", BanTemplate: "absent"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := f.do(t, tt.method, "/v1/upsample", tt.body, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/upsample", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseEndpoint(t *testing.T) {
	f := newFixture(t, "")
	rec, resp := f.do(t, http.MethodPost, "/v1/parse", ParseRequest{Model: "v3", Text: "vocaloid, hatsune_miku, 1girl, nsfw"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	var res struct {
		Copyright string   `json:"copyright"`
		Character string   `json:"character"`
		Known     []string `json:"known_tags"`
		Unknown   []string `json:"unknown_tags"`
		Rating    string   `json:"rating"`
	}
	result(t, rec, &res)
	assert.Equal(t, "vocaloid", res.Copyright)
	assert.Equal(t, "hatsune miku", res.Character)
	assert.Equal(t, []string{"1girl"}, res.Known)
	assert.Equal(t, []string{"nsfw"}, res.Unknown)
	assert.Equal(t, "questionable", res.Rating)
}

func TestAspectEndpoint(t *testing.T) {
	f := newFixture(t, "")
	tests := []struct {
		name   string
		req    AspectRequest
		status int
		want   string
	}{
		{"log2 policy", AspectRequest{Policy: "log2", Width: 832, Height: 1216}, http.StatusOK, "tall"},
		{"linear policy", AspectRequest{Policy: "linear", Width: 512, Height: 1024}, http.StatusOK, "too_tall"},
		{"model table", AspectRequest{Model: "v3", Width: 1216, Height: 832}, http.StatusOK, "wide"},
		{"missing in model table", AspectRequest{Model: "offline", Width: 512, Height: 1024}, http.StatusBadRequest, ""},
		{"zero width", AspectRequest{Width: 0, Height: 10}, http.StatusBadRequest, ""},
		{"bad policy", AspectRequest{Policy: "cubic", Width: 1, Height: 1}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := f.do(t, http.MethodPost, "/v1/aspect", tt.req, "")
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.want == "" {
				return
			}
			var res map[string]string
			result(t, rec, &res)
			assert.Equal(t, tt.want, res["aspect_ratio"])
		})
	}
}

func TestFormatEndpoint(t *testing.T) {
	f := newFixture(t, "")
	rec, _ := f.do(t, http.MethodPost, "/v1/format", FormatRequest{}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res map[string]string
	result(t, rec, &res)
	assert.Equal(t, models.TemplateTranslation, res["template"])
	assert.Equal(t, "<|bos|><|aspect_ratio:tall|><|rating:general|><|length:very_short|><|translation|><copyright>", res["prompt"])

	rec, _ = f.do(t, http.MethodPost, "/v1/format", FormatRequest{Template: "missing"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBanEndpoint(t *testing.T) {
	f := newFixture(t, "")
	rec, _ := f.do(t, http.MethodPost, "/v1/ban", BanRequest{Model: "v3", BanTags: "solo", BanTemplate: "hair"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		BanTags string  `json:"ban_tags"`
		IDs     [][]int `json:"bad_words_ids"`
	}
	result(t, rec, &res)
	assert.Equal(t, "solo, *hair", res.BanTags)
	assert.Equal(t, [][]int{{3}, {4}, {5}}, res.IDs)
}

func TestGenerateEndpoint(t *testing.T) {
	f := newFixture(t, "")
	rec, _ := f.do(t, http.MethodPost, "/v1/generate", GenerateRequest{Model: "v3", Template: "<|bos|><general>1girl"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out models.Output
	result(t, rec, &out)
	assert.Equal(t, "solo, long_hair", out.New)
	assert.Equal(t, DefaultStop, f.sidecar.last("dart-v3")["stop"])

	rec, _ = f.do(t, http.MethodPost, "/v1/generate", GenerateRequest{Model: "v3"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
