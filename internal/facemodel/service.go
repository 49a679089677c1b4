package facemodel

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"go.uber.org/zap"

	"github.com/kozaktomas/face-finder/internal/constants"
	"github.com/kozaktomas/face-finder/internal/facematch"
	"github.com/kozaktomas/face-finder/internal/imaging"
	"github.com/kozaktomas/face-finder/internal/logging"
)

// ErrModelUnavailable is returned when the embedding server could not be reached
// or reported an unhealthy model on first use.
var ErrModelUnavailable = errors.New("face model unavailable")

// Embedder is the subset of Client used by Service.
type Embedder interface {
	ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error)
	Health(ctx context.Context) error
}

// Service is a process-wide face detector backed by the embedding server.
// The server is probed once, lazily; a failed probe is remembered and returned
// by every later call. Inference calls are serialised.
type Service struct {
	embedder Embedder
	logger   *zap.Logger

	initOnce sync.Once
	initErr  error

	mu sync.Mutex
}

var _ facematch.Detector = (*Service)(nil)

// NewService wraps an embedder. A nil logger disables logging.
func NewService(embedder Embedder, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, logger: logging.OrNop(logger)}
}

func (s *Service) ensureReady(ctx context.Context) error {
	s.initOnce.Do(func() {
		if err := s.embedder.Health(ctx); err != nil {
			s.initErr = fmt.Errorf("%w: %w", ErrModelUnavailable, err)
			s.logger.Error("face model health check failed", zap.Error(err))
			return
		}
		s.logger.Info("face model ready")
	})
	return s.initErr
}

// Detect encodes img as JPEG, sends it to the embedding server and converts the
// returned faces. Faces with a malformed bounding box are skipped.
func (s *Service) Detect(ctx context.Context, img *image.RGBA) ([]facematch.Detection, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}

	data, err := imaging.EncodeJPEG(img, constants.ModelJPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("encoding image for face model: %w", err)
	}

	s.mu.Lock()
	resp, err := s.embedder.ComputeFaceEmbeddings(ctx, data)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("computing face embeddings: %w", err)
	}

	detections := make([]facematch.Detection, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		if len(f.BBox) != 4 {
			s.logger.Debug("skipping face with malformed bbox", zap.Int("face_index", f.FaceIndex), zap.Int("bbox_len", len(f.BBox)))
			continue
		}
		detections = append(detections, facematch.Detection{
			BBox:      [4]float64{f.BBox[0], f.BBox[1], f.BBox[2], f.BBox[3]},
			Landmarks: f.Kps,
			Embedding: f.Embedding,
			Score:     f.DetScore,
		})
	}
	return detections, nil
}
