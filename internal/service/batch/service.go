package batch

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/image-resizer/internal/config"
	"github.com/aliskhannn/image-resizer/internal/model"
	"github.com/aliskhannn/image-resizer/internal/processor"
)

// SourceExt is the only source extension picked up (matched case-insensitively).
const SourceExt = ".tif"

// folder defines the flat local folder operations used by the batch.
// The caller provisions the output folder before Run.
type folder interface {
	BasePath() string
	Path(filename string) string
	List(ext string) ([]string, error)
}

// decoder turns a source file into a raster.
type decoder interface {
	Decode(path string) (model.SourceImage, error)
}

// renditionEncoder persists one rendition under the size ceiling.
type renditionEncoder interface {
	Encode(ctx context.Context, raster image.Image, outputPath string, dpi uint32, ceilingBytes int64) (model.Outcome, error)
}

// recorder is the skip ledger.
type recorder interface {
	Record(name string) error
}

// mirror copies accepted renditions to remote storage.
type mirror interface {
	Upload(ctx context.Context, localPath, name string) (string, error)
}

// publisher emits rendition events.
type publisher interface {
	Publish(ctx context.Context, ev model.RenditionEvent) error
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

// WithMirror uploads every accepted rendition through m.
func WithMirror(m mirror) Option {
	return func(s *Service) { s.mirror = m }
}

// WithPublisher publishes an event for every finished rendition through p.
func WithPublisher(p publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithRunID overrides the generated run id.
func WithRunID(id uuid.UUID) Option {
	return func(s *Service) { s.runID = id }
}

// Service drives the batch: for every source it decodes once, then renders
// every catalog profile and routes oversized renditions to the ledger.
type Service struct {
	cfg       *config.Config
	sources   folder
	outputs   folder
	decoder   decoder
	encoder   renditionEncoder
	ledger    recorder
	mirror    mirror
	publisher publisher
	resize    func(src image.Image, width, height int) *image.NRGBA

	runID uuid.UUID
	log   zerolog.Logger
}

// NewService creates a new Service.
func NewService(cfg *config.Config, sources, outputs folder, d decoder, e renditionEncoder, l recorder, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		sources: sources,
		outputs: outputs,
		decoder: d,
		encoder: e,
		ledger:  l,
		resize:  processor.Resize,
		runID:   uuid.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = zlog.Logger.With().Str("run_id", s.runID.String()).Logger()

	return s
}

// RunID returns the id attached to every log line and event of this service.
func (s *Service) RunID() uuid.UUID {
	return s.runID
}

// result is the terminal state of one (source, profile) pair.
type result struct {
	profile model.Profile
	outcome model.Outcome
	err     error
}

// Run processes every source in the watch folder. The output folder must
// already exist. It returns an error only when the sources cannot be listed;
// per-file and per-rendition failures are logged and counted in RunStats.
func (s *Service) Run(ctx context.Context) (RunStats, error) {
	stats := RunStats{RunID: s.runID}
	start := time.Now()

	files, err := s.sources.List(SourceExt)
	if err != nil {
		return stats, fmt.Errorf("failed to list sources: %w", err)
	}
	stats.Files = len(files)

	s.log.Info().
		Int("files", len(files)).
		Int("profiles", len(s.cfg.Profiles)).
		Int("workers", s.cfg.Workers).
		Str("watch", s.sources.BasePath()).
		Str("output", s.outputs.BasePath()).
		Str("ceiling", humanize.IBytes(uint64(s.cfg.CeilingBytes()))).
		Msg("starting batch")

	for i, path := range files {
		if ctx.Err() != nil {
			s.log.Warn().Msg("interrupted, stopping batch")
			break
		}

		s.log.Info().Msgf("[%d/%d] processing file: %s", i+1, len(files), filepath.Base(path))
		s.processFile(ctx, path, &stats)
	}

	stats.Elapsed = time.Since(start)
	s.logSummary(&stats)

	return stats, nil
}

// processFile decodes one source and renders every profile for it.
func (s *Service) processFile(ctx context.Context, path string, stats *RunStats) {
	fileCtx := ctx
	if s.cfg.FileTimeout > 0 {
		var cancel context.CancelFunc
		fileCtx, cancel = context.WithTimeout(ctx, s.cfg.FileTimeout)
		defer cancel()
	}

	src, err := s.decoder.Decode(path)
	if err != nil {
		stats.DecodeFailed++
		stats.FailedSources = append(stats.FailedSources, path)
		s.log.Error().Err(err).Str("source", path).Msg("failed to decode source, skipping file")
		return
	}
	stats.Decoded++

	s.log.Debug().
		Str("source", src.BaseName).
		Int("width", src.Width).
		Int("height", src.Height).
		Msg("decoded source")

	results := s.renderAll(fileCtx, src)

	// Outcomes are handled in catalog order, which keeps the ledger order
	// stable whatever the worker count.
	for _, r := range results {
		s.finish(ctx, src, r, stats)
	}
}

// renderAll renders every profile of src on a bounded pool. Profiles not
// yet scheduled when ctx expires are reported as failed.
func (s *Service) renderAll(ctx context.Context, src model.SourceImage) []result {
	results := make([]result, len(s.cfg.Profiles))

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)

	for i, p := range s.cfg.Profiles {
		if err := ctx.Err(); err != nil {
			results[i] = s.pending(src, p)
			results[i].err = fmt.Errorf("file deadline reached before rendering: %w", err)
			continue
		}

		i, p := i, p
		g.Go(func() error {
			results[i] = s.render(ctx, src, p)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// render resizes src to p and hands the raster to the encoder.
func (s *Service) render(ctx context.Context, src model.SourceImage, p model.Profile) result {
	r := s.pending(src, p)
	resized := s.resize(src.Raster, int(p.Width), int(p.Height))

	r.outcome, r.err = s.encoder.Encode(ctx, resized, r.outcome.Path, p.DPI, s.cfg.CeilingBytes())
	return r
}

// pending returns the not-yet-rendered state of (src, p).
func (s *Service) pending(src model.SourceImage, p model.Profile) result {
	name := p.OutputName(src.BaseName)
	return result{
		profile: p,
		outcome: model.Outcome{Name: name, Path: s.outputs.Path(name), Status: model.StatusFailed},
	}
}

// finish records the outcome of one rendition.
func (s *Service) finish(ctx context.Context, src model.SourceImage, r result, stats *RunStats) {
	out := r.outcome
	log := s.log.With().Str("source", src.BaseName).Str("profile", r.profile.String()).Str("name", out.Name).Logger()

	switch {
	case r.err != nil:
		stats.Failed++
		log.Error().Err(r.err).Msg("failed to render rendition")

	case out.Skipped():
		stats.Skipped++
		log.Warn().
			Int("attempts", out.Attempts).
			Str("size", humanize.IBytes(uint64(out.Bytes))).
			Msgf("skipped %s: file still too large after compression", out.Name)

		if err := s.ledger.Record(out.Name); err != nil {
			stats.LedgerErrors++
			log.Error().Err(err).Str("ledger", s.cfg.SkipLedgerFileName).Msg("SKIP NOT RECORDED: failed to write ledger entry")
		}

	case out.Accepted():
		stats.Accepted++
		stats.Bytes += out.Bytes
		log.Info().
			Str("tier", string(out.Tier)).
			Int("attempts", out.Attempts).
			Str("size", humanize.IBytes(uint64(out.Bytes))).
			Msg("rendition saved")

		s.upload(ctx, out, log, stats)

	default:
		stats.Failed++
		log.Error().Str("status", string(out.Status)).Msg("encoder returned no terminal state")
	}

	s.publish(ctx, src, r, stats)
}

func (s *Service) upload(ctx context.Context, out model.Outcome, log zerolog.Logger, stats *RunStats) {
	if s.mirror == nil {
		return
	}

	key, err := s.mirror.Upload(ctx, out.Path, out.Name)
	if err != nil {
		stats.MirrorErrors++
		log.Error().Err(err).Msg("failed to mirror rendition")
		return
	}
	log.Debug().Str("key", key).Msg("rendition mirrored")
}

func (s *Service) publish(ctx context.Context, src model.SourceImage, r result, stats *RunStats) {
	if s.publisher == nil {
		return
	}

	ev := model.RenditionEvent{
		ID:        uuid.New(),
		RunID:     s.runID,
		Source:    src.BaseName,
		Name:      r.outcome.Name,
		Profile:   r.profile,
		Status:    r.outcome.Status,
		Attempts:  r.outcome.Attempts,
		Bytes:     r.outcome.Bytes,
		CreatedAt: time.Now().UTC(),
	}
	if r.err != nil {
		ev.Status = model.StatusFailed
		ev.Error = r.err.Error()
	}

	if err := s.publisher.Publish(ctx, ev); err != nil {
		stats.PublishErrors++
		s.log.Error().Err(err).Str("name", ev.Name).Msg("failed to publish rendition event")
	}
}

func (s *Service) logSummary(stats *RunStats) {
	s.log.Info().
		Int("files", stats.Files).
		Int("decoded", stats.Decoded).
		Int("decode_failed", stats.DecodeFailed).
		Int("accepted", stats.Accepted).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Str("written", humanize.IBytes(uint64(stats.Bytes))).
		Dur("elapsed", stats.Elapsed).
		Msgf("done: resized images saved to %s", s.outputs.BasePath())

	if stats.Skipped > 0 {
		s.log.Info().Msgf("skipped files logged in %s", s.outputs.Path(s.cfg.SkipLedgerFileName))
	}
	if stats.LedgerErrors > 0 {
		s.log.Error().Int("ledger_errors", stats.LedgerErrors).Msg("some skipped renditions are missing from the ledger")
	}
}
