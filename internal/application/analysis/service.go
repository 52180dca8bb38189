package analysis

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"strings"

	"github.com/neurolytics/neuroscan/internal/application"
	ai "github.com/neurolytics/neuroscan/internal/domain/ai"
	domain "github.com/neurolytics/neuroscan/internal/domain/analysis"
	"github.com/neurolytics/neuroscan/internal/infra/ai/prompt"
)

// Fallback summary when the model cannot produce one; the summary artifact
// is still written so the group stays complete.
const summaryFallback = "Automatic summary is unavailable for this scan."

// ScanSubmission is the inbound image. It is request-scoped and never
// persists beyond the pipeline run that consumes it.
type ScanSubmission struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Result is the analyze response returned to the caller.
type Result struct {
	Message     string        `json:"message"`
	Analysis    domain.Record `json:"analysis"`
	Timestamp   string        `json:"timestamp"`
	JSONFile    string        `json:"json_file"`
	ImageFile   string        `json:"image_file"`
	SummaryFile string        `json:"summary_file"`
	ImageURL    string        `json:"image_url,omitempty"`
}

// Service implements the analysis-and-archival pipeline and history
// read-back. Safe for concurrent use; all state lives in the store.
type Service struct {
	AI    ai.Client
	Store domain.ArtifactStore
	Clock application.Clock
}

// Analyze runs the full pipeline: upload to the provider, wait until the
// media is active, request the structured analysis, normalize it, derive a
// summary and persist the three artifacts under one token.
func (s *Service) Analyze(ctx context.Context, sub ScanSubmission) (*Result, error) {
	mimeType := sub.ContentType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	ext := strings.ToLower(filepath.Ext(sub.Filename))
	if ext == "" {
		ext = ".jpg"
	}

	asset, err := s.AI.Upload(ctx, bytes.NewReader(sub.Data), sub.Filename, mimeType)
	if err != nil {
		return nil, err
	}
	asset, err = s.AI.AwaitActive(ctx, asset)
	if err != nil {
		return nil, err
	}

	raw, err := s.AI.Analyze(ctx, asset, prompt.GetAnalysisPrompt())
	if err != nil {
		return nil, err
	}

	rec, err := domain.Normalize(raw)
	if err != nil {
		// Soft failure: keep the raw text in a degraded record.
		log.Printf("analysis decode failed: %v", err)
		rec = domain.ErrorRecord(raw)
	}

	summary := s.summarize(ctx, rec)

	token := domain.NewToken(s.Clock.Now())
	keys, err := s.Store.SaveAnalysis(ctx, token, rec, sub.Data, ext, summary)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Message:     "MRI scan analyzed and saved",
		Analysis:    rec,
		Timestamp:   keys.Token,
		JSONFile:    keys.JSON,
		ImageFile:   keys.Image,
		SummaryFile: keys.Summary,
	}
	if url, err := s.Store.SignedURL(ctx, keys.Image); err != nil {
		log.Printf("presign image %s: %v", keys.Image, err)
	} else {
		res.ImageURL = url
	}
	return res, nil
}

// History returns the chronological feed, newest first. Summaries come from
// the pre-written summary artifacts.
func (s *Service) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	entries, err := s.Store.History(ctx)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return entries, nil
}

// summarize derives the plain-text summary for the record. Failures fall
// back to a fixed line rather than aborting the pipeline.
func (s *Service) summarize(ctx context.Context, rec domain.Record) string {
	if rec.IsError() {
		return summaryFallback
	}
	ctxJSON, err := rec.JSON()
	if err != nil {
		return summaryFallback
	}
	out, err := s.AI.Generate(ctx, prompt.GetSummaryPrompt(string(ctxJSON)))
	if err != nil {
		log.Printf("summary generation failed: %v", err)
		return summaryFallback
	}
	if out = strings.TrimSpace(out); out == "" {
		return summaryFallback
	}
	return out
}
