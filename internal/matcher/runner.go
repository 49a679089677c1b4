// Package matcher runs face searches as background jobs that stream their
// progress and matches as ordered events.
package matcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/face-finder/internal/acquisition"
	"github.com/kozaktomas/face-finder/internal/config"
	"github.com/kozaktomas/face-finder/internal/constants"
	"github.com/kozaktomas/face-finder/internal/facecache"
	"github.com/kozaktomas/face-finder/internal/facematch"
	"github.com/kozaktomas/face-finder/internal/imaging"
	"github.com/kozaktomas/face-finder/internal/logging"
	"github.com/kozaktomas/face-finder/internal/scoring"
)

// RunnerConfig wires a Runner. Cache is optional.
type RunnerConfig struct {
	Selector   *facematch.Selector
	Source     acquisition.Source
	Downloader acquisition.ImageDownloader
	Cache      facecache.Cache
	Thumbnail  config.ThumbnailConfig
	Scoring    config.ScoringConfig
	Logger     *zap.Logger
}

// Runner executes jobs. It holds no per-job state and can run many jobs at once.
type Runner struct {
	selector   *facematch.Selector
	source     acquisition.Source
	downloader acquisition.ImageDownloader
	cache      facecache.Cache
	thumb      config.ThumbnailConfig
	scoring    config.ScoringConfig
	logger     *zap.Logger
}

// NewRunner creates a runner; zero thumbnail and scoring settings use the defaults.
func NewRunner(cfg RunnerConfig) *Runner {
	thumb := cfg.Thumbnail
	if thumb.MaxSide <= 0 {
		thumb.MaxSide = constants.ThumbnailMaxSide
	}
	if thumb.Quality <= 0 {
		thumb.Quality = constants.ThumbnailQuality
	}
	sc := cfg.Scoring
	if sc.LowPercentile == 0 && sc.HighPercentile == 0 {
		sc.LowPercentile = constants.DefaultLowPercentile
		sc.HighPercentile = constants.DefaultHighPercentile
	}
	return &Runner{
		selector:   cfg.Selector,
		source:     cfg.Source,
		downloader: cfg.Downloader,
		cache:      cfg.Cache,
		thumb:      thumb,
		scoring:    sc,
		logger:     logging.OrNop(cfg.Logger),
	}
}

// run is the per-job state carried through one execution.
type run struct {
	job      *Job
	selector *facematch.Selector
	logger   *zap.Logger
	kept     int
	buffered []Match
}

// Run executes job to completion. Every path ends with a finalize event and
// the end of the stream, including panics inside the worker.
func (r *Runner) Run(ctx context.Context, job *Job, photo []byte, sourceURL string) {
	start := time.Now()
	st := &run{
		job:      job,
		selector: r.selector.WithMinInterocularPx(job.Options.MinInterocularPx),
		logger:   r.logger.With(zap.String("job_id", job.ID)),
	}

	st.logger.Info("job started",
		zap.String("source", logging.SanitizeForLog(sourceURL)),
		zap.Float64("threshold", job.Options.Threshold),
		zap.Stringer("mode", job.Options.Mode))

	defer func() {
		if rec := recover(); rec != nil {
			st.logger.Error("job panicked", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
			job.emit(statusEvent(msgInternalError))
		}
		r.flushBuffered(st)
		job.finish(finalizeEvent(st.kept))
		close(job.done)

		st.logger.Info("job finished",
			zap.Int("matches", st.kept),
			zap.Bool("canceled", job.StopRequested()),
			zap.Duration("duration", time.Since(start)))
	}()

	r.execute(ctx, st, photo, sourceURL)
}

func (r *Runner) execute(ctx context.Context, st *run, photo []byte, sourceURL string) {
	job := st.job

	img, err := imaging.Decode(photo)
	if err != nil {
		job.emit(statusEvent(fmt.Sprintf(msgCouldNotOpen, err)))
		return
	}

	query, err := st.selector.SelectMostProminentFace(ctx, img)
	if err != nil {
		st.logger.Warn("query face detection failed", zap.Error(err))
		job.emit(statusEvent(fmt.Sprintf(msgDetectionFailed, err)))
		return
	}
	if query == nil {
		job.emit(statusEvent(msgNoFace))
		return
	}
	job.emit(faceEvent(r.thumbnail(st, query)))

	job.emit(statusEvent(fmt.Sprintf(msgFetching, scoring.AbsolutePercent(job.Options.Threshold))))
	entries, err := r.source.FetchCandidateEntries(ctx, sourceURL)
	if err != nil {
		st.logger.Warn("fetching candidates failed", zap.Error(err))
		job.emit(statusEvent(fmt.Sprintf(msgFetchFailed, err)))
		return
	}
	if len(entries) == 0 {
		job.emit(statusEvent(msgNoImages))
		return
	}
	job.emit(statusEvent(fmt.Sprintf(msgFound, len(entries))))

	total := len(entries)
	for i, entry := range entries {
		index := i + 1
		if job.StopRequested() || ctx.Err() != nil {
			job.emit(statusEvent(msgCanceled))
			return
		}
		job.emit(progressEvent(index, total))

		obs := r.candidateFace(ctx, st, index, entry)
		if obs == nil {
			continue
		}

		score := scoring.Cosine(query.Embedding, obs.Embedding)
		if score < job.Options.Threshold {
			st.logger.Debug("candidate below threshold",
				zap.Int("index", index), zap.Float64("score", score))
			continue
		}

		st.kept++
		m := Match{
			Index:    index,
			PostURL:  entry.Link(),
			ImageURL: entry.ImageURL,
			Title:    entry.Title,
			Date:     entry.DateString(),
			ScoreRaw: score,
			Thumb:    r.thumbnail(st, obs),
		}

		if job.Options.Mode == scoring.ModePercentile {
			st.buffered = append(st.buffered, m)
			continue
		}
		m.ScorePercent = scoring.AbsolutePercent(score)
		m.Color = scoring.PercentToColor(m.ScorePercent)
		job.emit(candidateEvent(m))
	}
}

// candidateFace returns the most prominent face of one candidate, or nil when
// the candidate should be skipped.
func (r *Runner) candidateFace(ctx context.Context, st *run, index int, entry acquisition.CandidateEntry) *facematch.Observation {
	log := st.logger.With(zap.Int("index", index), zap.String("image_url", logging.SanitizeForLog(entry.ImageURL)))

	key := cacheKey(entry.ImageURL, st.selector.MinInterocularPx())
	if r.cache != nil {
		obs, found, err := r.cache.Get(ctx, key)
		switch {
		case err != nil:
			log.Warn("face cache lookup failed", zap.Error(err))
		case found && obs == nil:
			log.Debug("candidate skipped: cached without face")
			return nil
		case found:
			log.Debug("candidate face served from cache")
			return obs
		}
	}

	img, ok := r.downloader.DownloadImage(ctx, entry.ImageURL)
	if !ok {
		log.Debug("candidate skipped: download failed")
		return nil
	}

	obs, err := st.selector.SelectMostProminentFace(ctx, img)
	if err != nil {
		log.Debug("candidate skipped: face detection failed", zap.Error(err))
		return nil
	}

	if r.cache != nil {
		if err := r.cache.Put(ctx, key, obs); err != nil {
			log.Warn("face cache store failed", zap.Error(err))
		}
	}

	if obs == nil {
		log.Debug("candidate skipped: no face")
	}
	return obs
}

// cacheKey ties a cached observation to the inter-ocular filter that produced it.
func cacheKey(imageURL string, minInterocularPx float64) string {
	return imageURL + "#iod=" + strconv.FormatFloat(minInterocularPx, 'g', -1, 64)
}

// flushBuffered emits percentile-mode matches in enumeration order once the
// whole batch of scores is known.
func (r *Runner) flushBuffered(st *run) {
	if len(st.buffered) == 0 {
		return
	}
	scores := make([]float64, len(st.buffered))
	for i, m := range st.buffered {
		scores[i] = m.ScoreRaw
	}
	percents := scoring.PercentileNormalize(scores, r.scoring.LowPercentile, r.scoring.HighPercentile)
	for i, m := range st.buffered {
		m.ScorePercent = percents[i]
		m.Color = scoring.PercentToColor(m.ScorePercent)
		st.job.emit(candidateEvent(m))
	}
	st.buffered = nil
}

func (r *Runner) thumbnail(st *run, obs *facematch.Observation) string {
	if obs.Crop == nil {
		return ""
	}
	thumb, err := imaging.ThumbnailDataURL(obs.Crop, r.thumb.MaxSide, r.thumb.Quality)
	if err != nil {
		st.logger.Warn("thumbnail encoding failed", zap.Error(err))
		return ""
	}
	return thumb
}
