package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/neurolytics/neuroscan/internal/domain/ai"
	domain "github.com/neurolytics/neuroscan/internal/domain/analysis"
)

// Fenced payload the provider stub replies with.
const stubAnalysisRaw = "```json\n{\"tumor\": null, \"gray_matter\": null, \"other_abnormalities\": [], \"recommendations\": [\"none\"]}\n```"

type stubAI struct {
	uploadErr       error
	awaitErr        error
	analyzeRaw      string
	analyzeErr      error
	generateOut     string
	generateErr     error
	analyzePrompts  []string
	generatePrompts []string
}

func (s *stubAI) Upload(ctx context.Context, r io.Reader, filename, mimeType string) (*ai.Asset, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	return &ai.Asset{ID: "file-1", State: ai.StateProcessing, MIMEType: mimeType}, nil
}

func (s *stubAI) AwaitActive(ctx context.Context, asset *ai.Asset) (*ai.Asset, error) {
	if s.awaitErr != nil {
		return nil, s.awaitErr
	}
	active := *asset
	active.State = ai.StateActive
	return &active, nil
}

func (s *stubAI) Analyze(ctx context.Context, asset *ai.Asset, prompt string) (string, error) {
	s.analyzePrompts = append(s.analyzePrompts, prompt)
	return s.analyzeRaw, s.analyzeErr
}

func (s *stubAI) Generate(ctx context.Context, prompt string) (string, error) {
	s.generatePrompts = append(s.generatePrompts, prompt)
	return s.generateOut, s.generateErr
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// memStore is a map-backed ArtifactStore sharing the real key layout and
// grouping rules, so round-trips through it are meaningful.
type memStore struct {
	objects  map[string][]byte
	modified map[string]time.Time
	tick     time.Time
	saveErr  error
}

func newMemStore() *memStore {
	return &memStore{
		objects:  make(map[string][]byte),
		modified: make(map[string]time.Time),
		tick:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) putObject(key string, data []byte) {
	m.tick = m.tick.Add(time.Second)
	m.objects[key] = data
	m.modified[key] = m.tick
}

func (m *memStore) listing() []domain.ObjectInfo {
	objs := make([]domain.ObjectInfo, 0, len(m.objects))
	for key := range m.objects {
		objs = append(objs, domain.ObjectInfo{Key: key, LastModified: m.modified[key]})
	}
	return objs
}

func (m *memStore) SaveAnalysis(ctx context.Context, token string, rec domain.Record, image []byte, imageExt, summary string) (domain.KeySet, error) {
	if m.saveErr != nil {
		return domain.KeySet{}, m.saveErr
	}
	keys := domain.KeysFor(token, imageExt)
	recJSON, err := rec.JSON()
	if err != nil {
		return domain.KeySet{}, err
	}
	m.putObject(keys.JSON, recJSON)
	m.putObject(keys.Image, image)
	m.putObject(keys.Summary, []byte(summary))
	return keys, nil
}

func (m *memStore) Latest(ctx context.Context) (*domain.LatestAnalysis, error) {
	ctxObj, ok := domain.LatestContext(m.listing())
	if !ok {
		return nil, nil
	}
	var rec domain.Record
	if err := json.Unmarshal(m.objects[ctxObj.Key], &rec); err != nil {
		return nil, err
	}
	latest := &domain.LatestAnalysis{Record: rec}
	for _, g := range domain.GroupObjects(m.listing()) {
		if g.JSONKey == ctxObj.Key {
			latest.Token = g.Token
			latest.ImageKey = g.ImageKey
			latest.ImageURL, _ = m.SignedURL(ctx, g.ImageKey)
			break
		}
	}
	return latest, nil
}

func (m *memStore) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	groups := domain.GroupObjects(m.listing())
	entries := make([]domain.HistoryEntry, 0, len(groups))
	for _, g := range groups {
		var rec domain.Record
		if err := json.Unmarshal(m.objects[g.JSONKey], &rec); err != nil {
			return nil, err
		}
		imageURL, _ := m.SignedURL(ctx, g.ImageKey)
		jsonURL, _ := m.SignedURL(ctx, g.JSONKey)
		entries = append(entries, domain.HistoryEntry{
			ID:        g.Token,
			ImageURL:  imageURL,
			Summary:   string(m.objects[g.SummaryKey]),
			Timestamp: g.Token,
			JSONURL:   jsonURL,
			FullData:  rec,
		})
	}
	return entries, nil
}

func (m *memStore) SignedURL(ctx context.Context, key string) (string, error) {
	return "https://signed.test/" + key, nil
}

func newService(stub *stubAI, store *memStore, at time.Time) *Service {
	return &Service{AI: stub, Store: store, Clock: fixedClock{t: at}}
}

func TestAnalyze_StoresThreeArtifactsUnderOneToken(t *testing.T) {
	stub := &stubAI{analyzeRaw: stubAnalysisRaw, generateOut: "No abnormalities were found."}
	store := newMemStore()
	svc := newService(stub, store, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	res, err := svc.Analyze(context.Background(), ScanSubmission{
		Data:        []byte("fake-image-bytes"),
		Filename:    "scan.jpg",
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	assert.Equal(t, "MRI scan analyzed and saved", res.Message)
	assert.Equal(t, "20240101_120000", res.Timestamp)
	assert.Equal(t, "saved/20240101_120000/context_20240101_120000.json", res.JSONFile)
	assert.Equal(t, "saved/20240101_120000/mri_20240101_120000.jpg", res.ImageFile)
	assert.Equal(t, "saved/20240101_120000/summary_20240101_120000.txt", res.SummaryFile)
	assert.Equal(t, "https://signed.test/"+res.ImageFile, res.ImageURL)

	assert.Equal(t, []byte("fake-image-bytes"), store.objects[res.ImageFile])
	assert.Equal(t, "No abnormalities were found.", string(store.objects[res.SummaryFile]))

	var stored domain.Record
	require.NoError(t, json.Unmarshal(store.objects[res.JSONFile], &stored))
	assert.Equal(t, domain.Record{
		"tumor":               nil,
		"gray_matter":         nil,
		"other_abnormalities": []any{},
		"recommendations":     []any{"none"},
	}, stored)

	// The summary prompt embeds the analysis as grounding context.
	require.Len(t, stub.generatePrompts, 1)
	assert.Contains(t, stub.generatePrompts[0], `"recommendations":["none"]`)
}

func TestAnalyze_DecodeFailureDegradesToErrorRecord(t *testing.T) {
	raw := "I am unable to answer in JSON."
	stub := &stubAI{analyzeRaw: raw}
	store := newMemStore()
	svc := newService(stub, store, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	res, err := svc.Analyze(context.Background(), ScanSubmission{Data: []byte("img"), Filename: "scan.png"})
	require.NoError(t, err)

	assert.True(t, res.Analysis.IsError())
	assert.Equal(t, raw, res.Analysis["raw_response"])

	// No summary call for degraded records; the artifact still gets written
	// so the group stays complete.
	assert.Empty(t, stub.generatePrompts)
	assert.Equal(t, summaryFallback, string(store.objects[res.SummaryFile]))

	entries, err := svc.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAnalyze_SummaryFailureDoesNotAbortPipeline(t *testing.T) {
	stub := &stubAI{analyzeRaw: stubAnalysisRaw, generateErr: errors.New("model unavailable")}
	store := newMemStore()
	svc := newService(stub, store, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	res, err := svc.Analyze(context.Background(), ScanSubmission{Data: []byte("img"), Filename: "scan.jpg"})
	require.NoError(t, err)
	assert.Equal(t, summaryFallback, string(store.objects[res.SummaryFile]))
}

func TestAnalyze_ProcessingFailure(t *testing.T) {
	stub := &stubAI{awaitErr: ai.ErrProcessingFailed}
	store := newMemStore()
	svc := newService(stub, store, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	_, err := svc.Analyze(context.Background(), ScanSubmission{Data: []byte("img"), Filename: "scan.jpg"})
	require.ErrorIs(t, err, ai.ErrProcessingFailed)
	assert.Empty(t, store.objects)
}

func TestHistory_RoundTripNewestFirst(t *testing.T) {
	stub := &stubAI{analyzeRaw: stubAnalysisRaw, generateOut: "All clear."}
	store := newMemStore()
	svc := newService(stub, store, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	first, err := svc.Analyze(context.Background(), ScanSubmission{Data: []byte("one"), Filename: "a.jpg"})
	require.NoError(t, err)

	svc.Clock = fixedClock{t: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)}
	second, err := svc.Analyze(context.Background(), ScanSubmission{Data: []byte("two"), Filename: "b.jpg"})
	require.NoError(t, err)

	entries, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, second.Timestamp, entries[0].ID)
	assert.Equal(t, first.Timestamp, entries[1].ID)
	assert.Equal(t, second.Analysis, entries[0].FullData)
	assert.Equal(t, "All clear.", entries[0].Summary)
	assert.True(t, strings.HasPrefix(entries[0].ImageURL, "https://signed.test/"))
	assert.True(t, strings.HasPrefix(entries[0].JSONURL, "https://signed.test/"))
}

func TestHistory_EmptyStore(t *testing.T) {
	svc := newService(&stubAI{}, newMemStore(), time.Now())

	entries, err := svc.History(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestHistory_PartialGroupInvisible(t *testing.T) {
	store := newMemStore()
	keys := domain.KeysFor("20240101_120000", ".jpg")
	store.putObject(keys.JSON, []byte(`{"tumor": null}`))

	svc := newService(&stubAI{}, store, time.Now())
	entries, err := svc.History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
