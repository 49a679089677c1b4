package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kozaktomas/face-finder/internal/acquisition"
	"github.com/kozaktomas/face-finder/internal/config"
	"github.com/kozaktomas/face-finder/internal/facecache"
	"github.com/kozaktomas/face-finder/internal/facematch"
	"github.com/kozaktomas/face-finder/internal/facemodel"
	"github.com/kozaktomas/face-finder/internal/matcher"
	"github.com/kozaktomas/face-finder/internal/reddit"
)

// pipeline is the match machinery shared by serve and search.
type pipeline struct {
	manager *matcher.Manager
	cache   facecache.Cache
}

// newPipeline wires the face model, Reddit source, downloader and optional
// cache into a job manager.
func newPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline, error) {
	model := facemodel.NewService(facemodel.NewClient(cfg.Embedding.URL), logger)
	selector := facematch.NewSelector(model, cfg.Face.MinInterocularPx)

	source := reddit.NewClient(cfg.Reddit, logger)
	if source.UsesOAuth() {
		logger.Info("using Reddit OAuth API")
	} else {
		logger.Info("using public Reddit JSON endpoints")
	}

	cache, err := facecache.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening face cache: %w", err)
	}

	runner := matcher.NewRunner(matcher.RunnerConfig{
		Selector:   selector,
		Source:     source,
		Downloader: acquisition.NewDownloader(cfg.Download, logger),
		Cache:      cache,
		Thumbnail:  cfg.Thumbnail,
		Scoring:    cfg.Scoring,
		Logger:     logger,
	})

	return &pipeline{
		manager: matcher.NewManager(runner, matcher.NewRegistry(), logger),
		cache:   cache,
	}, nil
}

// Close stops running jobs and releases the cache.
func (p *pipeline) Close(ctx context.Context) error {
	err := p.manager.Shutdown(ctx)
	if p.cache != nil {
		if cerr := p.cache.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
