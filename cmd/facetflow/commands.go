package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/facetflow"
	"github.com/poiesic/facetflow/coordinator"
	"github.com/poiesic/facetflow/core"
	"github.com/poiesic/facetflow/ingestion"
	"github.com/poiesic/facetflow/search"
	"github.com/poiesic/facetflow/store"
	"github.com/poiesic/facetflow/widget"
	"github.com/urfave/cli/v2"
)

func openEngine(cfg Config) (*facetflow.Engine, error) {
	engine, err := facetflow.Open(cfg.DB, facetflow.WithSearchOptions(
		search.WithHitsPerPage(cfg.HitsPerPage),
		search.WithPoolSize(cfg.PoolSize),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return engine, nil
}

func indexCommand(c *cli.Context) error {
	cfg, err := resolveConfig(c, true)
	if err != nil {
		return err
	}
	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	var in io.Reader = c.App.Reader
	if path := c.String("file"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		in = f
	}
	docs, err := ingestion.ReadDocuments(in)
	if err != nil {
		return err
	}

	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	pipeline, err := engine.NewIngestionPipeline(
		ingestion.WithPoolSize(cfg.PoolSize),
		ingestion.WithBatchSize(c.Int("batch-size")),
		ingestion.WithProgress(c.App.ErrWriter),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	result, err := pipeline.Ingest(c.Context, cfg.Index, docs)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "indexed %d documents into %s in %d batches (%s)\n",
		result.Documents, cfg.Index, result.Batches, result.Elapsed.Round(time.Millisecond))
	return nil
}

// searchRequest is the search command's flags in parsed form.
type searchRequest struct {
	Query       string
	Refine      []string
	Ranges      []string
	Facets      []string
	Derived     []string
	Page        int
	HitsPerPage int
}

// buildWidgets mounts one widget per requested feature and returns the
// state that selects the requested refinements.
func buildWidgets(req searchRequest) ([]*core.Widget, core.SearchState, []string, error) {
	state := core.SearchState{}
	widgets := []*core.Widget{widget.SearchBox("query")}
	if req.Query != "" {
		state["query"] = req.Query
	}

	var attributes []string
	addAttribute := func(attr string) bool {
		if slices.Contains(attributes, attr) {
			return false
		}
		attributes = append(attributes, attr)
		return true
	}

	refined := make(map[string][]string)
	for _, r := range req.Refine {
		attr, value, ok := strings.Cut(r, ":")
		if !ok || attr == "" || value == "" {
			return nil, nil, nil, fmt.Errorf("invalid refinement %q: expected attribute:value", r)
		}
		if addAttribute(attr) {
			widgets = append(widgets, widget.RefinementList(widget.RefinementListProps{Attribute: attr}))
		}
		refined[attr] = append(refined[attr], value)
	}
	for attr, values := range refined {
		state[attr] = values
	}

	for _, r := range req.Ranges {
		parts := strings.SplitN(r, ":", 3)
		if len(parts) != 3 || parts[0] == "" {
			return nil, nil, nil, fmt.Errorf("invalid range %q: expected attribute:min:max", r)
		}
		var value widget.RangeValue
		for i, bound := range []**float64{&value.Min, &value.Max} {
			raw := parts[i+1]
			if raw == "" {
				continue
			}
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("invalid range %q: %w", r, err)
			}
			*bound = widget.Bound(n)
		}
		if !addAttribute(parts[0]) {
			return nil, nil, nil, fmt.Errorf("attribute %s is refined more than once", parts[0])
		}
		props := widget.RangeProps{Attribute: parts[0]}
		widgets = append(widgets, widget.Range(props))
		state = widget.RefineRange(props, state, value)
	}

	for _, attr := range req.Facets {
		if addAttribute(attr) {
			widgets = append(widgets, widget.RefinementList(widget.RefinementListProps{Attribute: attr}))
		}
	}

	widgets = append(widgets, widget.HitsPerPage("hitsPerPage", req.HitsPerPage), widget.Pagination("page"))
	if req.Page > 1 {
		state["page"] = req.Page
	}

	for _, index := range req.Derived {
		widgets = append(widgets, widget.Scope(index, widget.Configure("derived:"+index, nil))...)
	}
	return widgets, state, attributes, nil
}

func searchCommand(c *cli.Context) error {
	cfg, err := resolveConfig(c, true)
	if err != nil {
		return err
	}
	widgets, state, attributes, err := buildWidgets(searchRequest{
		Query:       c.String("query"),
		Refine:      c.StringSlice("refine"),
		Ranges:      c.StringSlice("range"),
		Facets:      c.StringSlice("facet"),
		Derived:     c.StringSlice("derived"),
		Page:        c.Int("page"),
		HitsPerPage: cfg.HitsPerPage,
	})
	if err != nil {
		return err
	}

	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	coord, err := engine.NewCoordinator(cfg.Index,
		coordinator.WithInitialState(state),
		coordinator.WithStalledSearchDelay(cfg.StalledSearchDelay),
		coordinator.WithPoolSize(cfg.PoolSize),
	)
	if err != nil {
		return fmt.Errorf("failed to create coordinator: %w", err)
	}
	defer coord.Stop()

	stalled := false
	unsubscribe := coord.Store().Subscribe(func(st store.State) {
		if st.Searching && st.IsSearchStalled && !stalled {
			stalled = true
			slog.Warn("search is taking longer than expected", "index", cfg.Index)
		}
	})
	defer unsubscribe()

	ctx, cancel := commandContext(c)
	defer cancel()

	coord.Registry().RegisterAll(widgets...)
	if err := coord.WaitIdle(ctx); err != nil {
		return fmt.Errorf("search did not complete: %w", err)
	}

	st := coord.Store().GetState()
	if st.Error != nil {
		return fmt.Errorf("search failed: %w", st.Error)
	}
	printResults(c.App.Writer, st, cfg.Index, attributes)
	return nil
}

func facetsCommand(c *cli.Context) error {
	cfg, err := resolveConfig(c, true)
	if err != nil {
		return err
	}
	facet := c.String("facet")

	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	coord, err := engine.NewCoordinator(cfg.Index,
		coordinator.WithStalledSearchDelay(cfg.StalledSearchDelay),
		coordinator.WithPoolSize(cfg.PoolSize),
	)
	if err != nil {
		return fmt.Errorf("failed to create coordinator: %w", err)
	}
	defer coord.Stop()

	ctx, cancel := commandContext(c)
	defer cancel()

	// A settling search drops facet values, so let it finish first.
	coord.Registry().Register(widget.RefinementList(widget.RefinementListProps{Attribute: facet}))
	if err := coord.WaitIdle(ctx); err != nil {
		return fmt.Errorf("search did not complete: %w", err)
	}
	if st := coord.Store().GetState(); st.Error != nil {
		return fmt.Errorf("search failed: %w", st.Error)
	}

	if err := coord.OnSearchForFacetValues(facet, c.String("query"), c.Int("max")); err != nil {
		return err
	}
	if err := coord.WaitIdle(ctx); err != nil {
		return fmt.Errorf("facet search did not complete: %w", err)
	}

	st := coord.Store().GetState()
	if st.Error != nil {
		return fmt.Errorf("facet search failed: %w", st.Error)
	}
	for _, hit := range st.ResultsFacetValues[facet].Hits {
		fmt.Fprintf(c.App.Writer, "%s\t%d\n", hit.Value, hit.Count)
	}
	return nil
}

func indicesCommand(c *cli.Context) error {
	cfg, err := resolveConfig(c, false)
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	infos, err := engine.Indices().ListIndices(c.Context)
	if err != nil {
		return fmt.Errorf("failed to list indices: %w", err)
	}
	for _, info := range infos {
		fmt.Fprintf(c.App.Writer, "%s\t%d\t%s\n", info.Name, info.Documents, info.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func printResults(w io.Writer, st store.State, primary string, attributes []string) {
	if !st.Results.IsMultiIndex() {
		printIndexResults(w, st.Results.Flat(), attributes)
		return
	}
	indices := st.Results.Indices()
	slices.SortStableFunc(indices, func(a, b string) int {
		switch {
		case a == primary:
			return -1
		case b == primary:
			return 1
		}
		return 0
	})
	for i, index := range indices {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printIndexResults(w, st.Results.For(index), attributes)
	}
}

func printIndexResults(w io.Writer, r *core.SearchResults, attributes []string) {
	if r == nil {
		return
	}
	page := r.Page + 1
	if r.NbPages == 0 {
		page = 0
	}
	fmt.Fprintf(w, "%s: %d hits (page %d of %d)\n", r.Index, r.NbHits, page, r.NbPages)

	for _, hit := range r.Hits {
		names := make([]string, 0, len(hit.Fields))
		for name := range hit.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		fields := make([]string, 0, len(names))
		for _, name := range names {
			fields = append(fields, name+"="+hit.Fields[name])
		}
		fmt.Fprintf(w, "  %s\t%s\n", hit.ObjectID, strings.Join(fields, " "))
	}

	for _, attr := range attributes {
		if stats, ok := r.FacetStatsFor(attr); ok {
			fmt.Fprintf(w, "  [%s] min=%g max=%g avg=%g\n", attr, stats.Min, stats.Max, stats.Avg)
			continue
		}
		values := r.FacetValues(attr)
		if len(values) == 0 {
			continue
		}
		counts := make([]string, 0, len(values))
		for _, v := range values {
			counts = append(counts, fmt.Sprintf("%s (%d)", v.Value, v.Count))
		}
		fmt.Fprintf(w, "  [%s] %s\n", attr, strings.Join(counts, ", "))
	}
}
