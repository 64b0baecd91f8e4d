package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/logging"
	"github.com/dmitrijs2005/netguard/internal/server/inference"
	"github.com/dmitrijs2005/netguard/internal/server/metrics"
	"github.com/dmitrijs2005/netguard/internal/server/models"
	"github.com/dmitrijs2005/netguard/internal/server/policy"
	"github.com/dmitrijs2005/netguard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/netguard/internal/server/traffic"
)

const (
	recentLimit  = 10
	unknownValue = "Unknown"

	// Widths of detections.ip_address and detections.protocol.
	maxIPAddressLen = 50
	maxProtocolLen  = 20
)

// ModelSource provides the classifier bundle.
type ModelSource interface {
	Load(ctx context.Context) (*inference.Bundle, error)
}

// PredictionResult is returned to the caller of Predict.
type PredictionResult struct {
	ID            string             `json:"id"`
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Timestamp     time.Time          `json:"timestamp"`
	IsAttack      bool               `json:"is_attack"`
}

// UserDashboard summarizes one account's detections.
type UserDashboard struct {
	Stats  models.DetectionStats
	Recent []*models.Detection
}

// AdminDashboard summarizes the whole installation for an administrator.
type AdminDashboard struct {
	Users  int64
	Stats  models.DetectionStats
	Recent []*models.Detection
}

// DetectionService runs the classifier and serves detection history.
type DetectionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	model       ModelSource
	generator   *traffic.Generator
	metrics     *metrics.Metrics
	log         logging.Logger
}

func NewDetectionService(db *sql.DB, m repomanager.RepositoryManager, model ModelSource, gen *traffic.Generator, mt *metrics.Metrics, log logging.Logger) *DetectionService {
	return &DetectionService{
		db:          db,
		repomanager: m,
		model:       model,
		generator:   gen,
		metrics:     mt,
		log:         log.With("module", "detections"),
	}
}

// Predict classifies features and stores the outcome for actor.
func (s *DetectionService) Predict(ctx context.Context, actor *models.Account, features map[string]any) (*PredictionResult, error) {
	bundle, err := s.model.Load(ctx)
	if err != nil {
		s.metrics.PredictionFailed("model")
		if errors.Is(err, common.ErrModelUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrModelUnavailable, err)
	}

	started := time.Now()
	p, err := bundle.Predict(features)
	if err != nil {
		s.metrics.PredictionFailed("predict")
		return nil, fmt.Errorf("%w: %v", common.ErrPredictionFailed, err)
	}

	d := &models.Detection{
		AccountID:  actor.ID,
		Prediction: p.Label,
		Confidence: p.Confidence,
		IPAddress:  truncate(stringFeature(features, "src_ip"), maxIPAddressLen),
		Protocol:   truncate(stringFeature(features, "protocol_type"), maxProtocolLen),
		SrcBytes:   byteFeature(features, "src_bytes"),
		DstBytes:   byteFeature(features, "dst_bytes"),
	}

	d, err = s.repomanager.Detections(s.db).Create(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("error storing detection: %w", err)
	}

	s.metrics.ObservePrediction(p.Label, time.Since(started))
	s.log.Debug(ctx, "prediction stored", "account_id", actor.ID, "label", p.Label, "confidence", p.Confidence)

	return &PredictionResult{
		ID:            d.ID,
		Prediction:    p.Label,
		Confidence:    p.Confidence,
		Probabilities: p.Probabilities,
		Timestamp:     d.Timestamp,
		IsAttack:      p.Label != common.NormalLabel,
	}, nil
}

func stringFeature(features map[string]any, key string) string {
	switch v := features[key].(type) {
	case nil:
		return unknownValue
	case string:
		if v == "" {
			return unknownValue
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// byteFeature reads a byte counter, defaulting to 0 and clamping negatives.
func byteFeature(features map[string]any, key string) int64 {
	var f float64
	switch v := features[key].(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

// ListForAccount returns actor's detections, newest first.
func (s *DetectionService) ListForAccount(ctx context.Context, actor *models.Account) ([]*models.Detection, error) {
	list, err := s.repomanager.Detections(s.db).ListByAccount(ctx, actor.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("error listing detections: %w", err)
	}
	return list, nil
}

func (s *DetectionService) UserDashboard(ctx context.Context, actor *models.Account) (*UserDashboard, error) {
	repo := s.repomanager.Detections(s.db)

	stats, err := repo.Stats(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("error counting detections: %w", err)
	}
	recent, err := repo.ListByAccount(ctx, actor.ID, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("error listing detections: %w", err)
	}

	return &UserDashboard{Stats: stats, Recent: recent}, nil
}

// AdminDashboard counts the accounts actor can see plus global detection
// activity.
func (s *DetectionService) AdminDashboard(ctx context.Context, actor *models.Account) (*AdminDashboard, error) {
	if !policy.CanManageUsers(actor.Role) {
		return nil, common.ErrForbidden
	}

	users, err := s.repomanager.Accounts(s.db).CountByRoles(ctx, policy.VisibleRoles(actor.Role)...)
	if err != nil {
		return nil, fmt.Errorf("error counting accounts: %w", err)
	}

	repo := s.repomanager.Detections(s.db)
	stats, err := repo.Stats(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("error counting detections: %w", err)
	}
	recent, err := repo.Recent(ctx, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("error listing detections: %w", err)
	}

	return &AdminDashboard{Users: users, Stats: stats, Recent: recent}, nil
}

// Simulate returns n synthetic feature records. Nothing is stored.
func (s *DetectionService) Simulate(n int) []map[string]any {
	return s.generator.Samples(n)
}

// ModelInfo describes the loaded classifier.
func (s *DetectionService) ModelInfo(ctx context.Context) (*inference.Info, error) {
	bundle, err := s.model.Load(ctx)
	if err != nil {
		return nil, err
	}
	info := bundle.Describe()
	return &info, nil
}
