package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/alturatime/backend/common/cache"
	"github.com/alturatime/backend/common/callwindow"
	"github.com/alturatime/backend/common/config"
	"github.com/alturatime/backend/common/logger"
	"github.com/alturatime/backend/common/store"
)

// Upload validation failures. Handlers map these onto the public error shapes.
var (
	// ErrNoFilename is returned when the upload carries no filename.
	ErrNoFilename = errors.New("upload filename is empty")

	// ErrExtensionNotAllowed is returned when the filename extension is not
	// on the allow-list.
	ErrExtensionNotAllowed = errors.New("upload extension not allowed")

	// ErrUnparseableCalendar is returned when stored bytes cannot be parsed
	// as a calendar. Uploads are never validated, so this can surface on any
	// status read.
	ErrUnparseableCalendar = errors.New("stored schedule is not a parseable calendar")
)

// ScheduleService is the gateway between untrusted uploads and the artifact
// store. It owns upload validation, share link building, and the read paths
// behind the share page.
type ScheduleService struct {
	store       store.Store
	cache       cache.Cache
	maxBytes    int64
	allowedExts map[string]bool
	publicBase  string
	cacheTTL    time.Duration
	log         *logger.Logger
}

// NewScheduleService creates a new schedule service. cache may be nil when
// record caching is disabled.
func NewScheduleService(st store.Store, ca cache.Cache, cfg *config.Config, log *logger.Logger) *ScheduleService {
	allowed := make(map[string]bool, len(cfg.Upload.AllowedExtensions))
	for _, ext := range cfg.Upload.AllowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}

	return &ScheduleService{
		store:       st,
		cache:       ca,
		maxBytes:    cfg.Upload.MaxBytes,
		allowedExts: allowed,
		publicBase:  cfg.Upload.PublicBaseURL,
		cacheTTL:    cfg.Cache.DefaultTTL,
		log:         log,
	}
}

// UploadRequest carries one multipart upload through validation.
type UploadRequest struct {
	Name        string // display name form field, may be blank
	Filename    string // client-supplied filename, untrusted
	Content     []byte
	RequestBase string // scheme://host of the inbound request, link fallback
}

// UploadResponse reports a stored upload back to the caller.
type UploadResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Link string `json:"link"`
}

// Upload validates and persists one schedule upload.
//
// Validation order is part of the public contract: filename, then extension,
// then size. Nothing touches the store until all three pass.
func (s *ScheduleService) Upload(ctx context.Context, req *UploadRequest) (*UploadResponse, error) {
	if req.Filename == "" {
		return nil, ErrNoFilename
	}
	if !s.allowedExts[strings.ToLower(filepath.Ext(req.Filename))] {
		return nil, ErrExtensionNotAllowed
	}
	if s.maxBytes > 0 && int64(len(req.Content)) > s.maxBytes {
		return nil, fmt.Errorf("upload is %d bytes, limit is %d: %w", len(req.Content), s.maxBytes, store.ErrTooLarge)
	}

	safeName := store.SanitizeFilename(req.Filename)

	id, err := s.store.Put(ctx, req.Content, safeName, req.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = store.DefaultDisplayName
	}

	s.log.Info("upload stored",
		"upload_id", id,
		"orig_name", safeName,
		"size", len(req.Content),
	)

	return &UploadResponse{
		ID:   id,
		Name: name,
		Link: s.shareLink(req.RequestBase, id),
	}, nil
}

// Artifact returns the raw stored calendar bytes for id.
func (s *ScheduleService) Artifact(ctx context.Context, id string) ([]byte, error) {
	return s.store.GetArtifact(ctx, id)
}

// Record returns the metadata for id, read through the record cache.
// Records are immutable once written, so a cached record can never go stale.
func (s *ScheduleService) Record(ctx context.Context, id string) (*store.Record, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, id); err == nil && ok {
			var rec store.Record
			if err := json.Unmarshal(data, &rec); err == nil {
				return &rec, nil
			}
			// Corrupt entry: drop it and fall back to the store.
			_ = s.cache.Delete(ctx, id)
		}
	}

	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(rec); err == nil {
			if err := s.cache.Set(ctx, id, data, s.cacheTTL); err != nil {
				s.log.Warn("record cache set failed", "upload_id", id, "error", err)
			}
		}
	}

	return rec, nil
}

// StatusResponse is the server-side rendering of the share page clock: the
// owner's local time, the call window, and the next upcoming class.
type StatusResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timezone  string `json:"timezone"`
	LocalTime string `json:"local_time"`
	Status    string `json:"status"`
	Tone      string `json:"tone"`
	DayPart   string `json:"day_part"`
	Next      string `json:"next"`
	Events    int    `json:"events"`
}

// Status computes the live call window for one stored schedule at now.
func (s *ScheduleService) Status(ctx context.Context, id string, now time.Time) (*StatusResponse, error) {
	rec, err := s.Record(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := s.store.GetArtifact(ctx, id)
	if err != nil {
		return nil, err
	}

	sched, err := callwindow.Parse(data)
	if err != nil {
		s.log.Warn("stored schedule failed to parse", "upload_id", id, "error", err)
		return nil, ErrUnparseableCalendar
	}

	next := "No more upcoming classes today."
	if ev, ok := sched.NextEventAfter(now); ok {
		next = "Next class in " + callwindow.FormatUntil(now, ev.Start)
	}

	status := sched.StatusAt(now)

	return &StatusResponse{
		ID:        id,
		Name:      rec.Name,
		Timezone:  sched.TZID,
		LocalTime: now.In(sched.Location).Format("3:04 PM"),
		Status:    string(status),
		Tone:      status.Tone(),
		DayPart:   sched.DayPart(now),
		Next:      next,
		Events:    len(sched.Events),
	}, nil
}

// shareLink builds the public viewer URL for an upload. The configured base
// wins; otherwise the link is derived from the request that uploaded it.
func (s *ScheduleService) shareLink(requestBase, id string) string {
	base := s.publicBase
	if base == "" {
		base = requestBase
	}
	return strings.TrimRight(base, "/") + "/s/" + id
}
