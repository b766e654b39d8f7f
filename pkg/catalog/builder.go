// Package catalog builds the map extract catalog from listing pages.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/amosWeiskopf/mapharvest/internal/metrics"
	"github.com/amosWeiskopf/mapharvest/internal/models"
	"github.com/amosWeiskopf/mapharvest/pkg/extractor"
	"github.com/amosWeiskopf/mapharvest/pkg/fetcher"
	"github.com/amosWeiskopf/mapharvest/pkg/sizes"
	"github.com/amosWeiskopf/mapharvest/pkg/utils"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"
)

// Fixed names of the synthetic categories
const (
	RootName       = "Open Street Map"
	MapDataName    = "Map Data"
	SingleFileName = "Single File"
	SubRegionsName = "Sub Regions"
)

// DefaultBaseURL is the Geofabrik download server
const DefaultBaseURL = "https://download.geofabrik.de/"

// Builder turns listing pages into a catalog tree
type Builder struct {
	fetcher   fetcher.PageFetcher
	extractor *extractor.Extractor
	baseURL   string
	workers   int
	strict    bool
	rules     DedupRules
	logger    *zap.Logger
}

// Option configures a Builder
type Option func(*Builder)

// WithBaseURL sets the root listing URL. It is treated as a directory.
func WithBaseURL(baseURL string) Option {
	return func(b *Builder) {
		b.baseURL = utils.EnsureTrailingSlash(baseURL)
	}
}

// WithWorkers bounds the number of concurrent sub-listing fetches
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithStrict makes any sub-listing failure abort the build instead of
// degrading the region to a single document
func WithStrict(strict bool) Option {
	return func(b *Builder) {
		b.strict = strict
	}
}

// WithDedupRules replaces DefaultDedupRules
func WithDedupRules(rules DedupRules) Option {
	return func(b *Builder) {
		b.rules = rules
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a Builder reading pages through f
func NewBuilder(f fetcher.PageFetcher, opts ...Option) *Builder {
	b := &Builder{
		fetcher:   f,
		extractor: extractor.New(),
		baseURL:   DefaultBaseURL,
		workers:   4,
		rules:     DefaultDedupRules,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Degradation records a region emitted without sub-regions because its
// sub-listing could not be read
type Degradation struct {
	Region string
	URL    string
	Err    error
}

// Result is the outcome of one catalog build
type Result struct {
	Root     models.LibraryItem
	Degraded []Degradation
	BuildID  string
	Pages    int // listing pages fetched successfully
}

// region is a top-level record with its size and URLs resolved
type region struct {
	name       string
	size       uint64
	fileURL    string
	listingURL string
}

type regionResult struct {
	subs    []*models.Document
	fetched bool
	err     error
}

// Build fetches the root listing and every region's sub-listing and assembles
// the catalog. Root page failures abort the build. A failed sub-listing
// degrades its region to a single document and is reported in
// Result.Degraded, or aborts the build in strict mode.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	buildID := uuid.NewString()
	logger := b.logger.With(zap.String("build_id", buildID))
	start := time.Now()

	logger.Info("catalog build started", zap.String("source", b.baseURL), zap.Int("workers", b.workers))

	result, err := b.build(ctx, logger)
	if err != nil {
		metrics.RecordBuild("error", time.Since(start))
		logger.Error("catalog build failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, err
	}
	result.BuildID = buildID

	outcome := "ok"
	if len(result.Degraded) > 0 {
		outcome = "degraded"
	}
	metrics.RecordBuild(outcome, time.Since(start))

	enabled, disabled := countDocuments(result.Root)
	metrics.SetCatalogDocuments(enabled, disabled)

	logger.Info("catalog build finished",
		zap.Int("pages", result.Pages),
		zap.Int("documents", enabled+disabled),
		zap.Int("disabled", disabled),
		zap.Int("degraded", len(result.Degraded)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (b *Builder) build(ctx context.Context, logger *zap.Logger) (*Result, error) {
	regions, err := b.rootRegions(ctx)
	if err != nil {
		return nil, err
	}

	mapper := iter.Mapper[region, regionResult]{MaxGoroutines: b.workers}
	results := mapper.Map(regions, func(r *region) regionResult {
		return b.subRegions(ctx, r)
	})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("catalog build interrupted: %w", err)
	}

	result := &Result{Pages: 1}
	mapData := models.NewCategory(MapDataName, nil, false)

	for i := range regions {
		r, res := regions[i], results[i]
		if res.fetched {
			result.Pages++
		}

		if res.err != nil {
			if b.strict {
				return nil, fmt.Errorf("region %q: %w", r.name, res.err)
			}
			logger.Warn("region degraded to single file",
				zap.String("region", r.name),
				zap.String("url", r.listingURL),
				zap.Error(res.err),
			)
			metrics.RecordDegradedRegion()
			result.Degraded = append(result.Degraded, Degradation{Region: r.name, URL: r.listingURL, Err: res.err})
			res.subs = nil
		}

		mapData.Add(assembleRegion(r, res.subs))
	}

	root := models.NewCategory(RootName, []models.LibraryItem{mapData.Item()}, false)
	result.Root = root.Item()
	return result, nil
}

// rootRegions reads the top-level listing. Every failure here is fatal.
func (b *Builder) rootRegions(ctx context.Context) ([]region, error) {
	page, err := b.fetcher.FetchPage(ctx, b.baseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch root listing: %w", err)
	}

	records, err := b.extractor.Extract(page)
	if err != nil {
		return nil, &ExtractionError{URL: b.baseURL, Reason: "unreadable markup", Err: err}
	}
	if len(records) == 0 {
		return nil, &ExtractionError{URL: b.baseURL, Reason: "no region rows found"}
	}

	regions := make([]region, 0, len(records))
	for _, rec := range records {
		size, err := sizes.Parse(rec.Size)
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", rec.Name, err)
		}
		fileURL, err := utils.ResolveURL(b.baseURL, rec.File)
		if err != nil {
			return nil, &ExtractionError{URL: b.baseURL, Reason: fmt.Sprintf("region %q file reference", rec.Name), Err: err}
		}
		listingURL, err := utils.ResolveURL(b.baseURL, rec.Path)
		if err != nil {
			return nil, &ExtractionError{URL: b.baseURL, Reason: fmt.Sprintf("region %q listing reference", rec.Name), Err: err}
		}
		regions = append(regions, region{
			name:       rec.Name,
			size:       size,
			fileURL:    fileURL,
			listingURL: listingURL,
		})
	}
	return regions, nil
}

// subRegions reads one region's sub-listing. It touches nothing shared, so
// regions run concurrently; any error applies to the whole region.
func (b *Builder) subRegions(ctx context.Context, r *region) regionResult {
	if !utils.SameSite(b.baseURL, r.listingURL) {
		return regionResult{err: &ExtractionError{URL: r.listingURL, Reason: "sub-listing is outside the source site"}}
	}

	page, err := b.fetcher.FetchPage(ctx, r.listingURL)
	if err != nil {
		return regionResult{err: fmt.Errorf("fetch sub-listing: %w", err)}
	}

	records, err := b.extractor.Extract(page)
	if err != nil {
		return regionResult{fetched: true, err: &ExtractionError{URL: r.listingURL, Reason: "unreadable markup", Err: err}}
	}

	subs := make([]*models.Document, 0, len(records))
	for _, rec := range records {
		size, err := sizes.Parse(rec.Size)
		if err != nil {
			return regionResult{fetched: true, err: fmt.Errorf("sub-region %q: %w", rec.Name, err)}
		}
		fileURL, err := utils.ResolveURL(r.listingURL, rec.File)
		if err != nil {
			return regionResult{fetched: true, err: &ExtractionError{URL: r.listingURL, Reason: fmt.Sprintf("sub-region %q file reference", rec.Name), Err: err}}
		}

		doc := models.NewDocument(rec.Name, fileURL, size, models.DownloadTypeHTTP)
		doc.Enabled = !b.rules.Disabled(r.name, rec.Name)
		subs = append(subs, doc)
	}
	return regionResult{subs: subs, fetched: true}
}

// assembleRegion emits a bare document for a region without sub-regions, or
// a category holding the region's own file followed by its sub-regions
func assembleRegion(r region, subs []*models.Document) models.LibraryItem {
	own := models.NewDocument(r.name, r.fileURL, r.size, models.DownloadTypeHTTP)
	if len(subs) == 0 {
		return own.Item()
	}

	own.Name = SingleFileName
	items := make([]models.LibraryItem, 0, len(subs))
	for _, doc := range subs {
		items = append(items, doc.Item())
	}

	category := models.NewCategory(r.name, nil, true)
	category.Add(own.Item())
	category.Add(models.NewCategory(SubRegionsName, items, false).Item())
	return category.Item()
}

func countDocuments(root models.LibraryItem) (enabled, disabled int) {
	root.Walk(func(item models.LibraryItem, _ int) {
		if item.Document == nil {
			return
		}
		if item.Document.Enabled {
			enabled++
		} else {
			disabled++
		}
	})
	return enabled, disabled
}
