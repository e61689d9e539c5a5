// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/facetflow/coordinator"
	"github.com/poiesic/facetflow/ingestion"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "facetflow",
		Usage: "Faceted search over locally indexed documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Index documents from a JSON lines file",
				Action: indexCommand,
				Flags: []cli.Flag{
					dbFlag(),
					indexFlag(),
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "JSON lines file to read documents from (- for stdin)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents written per transaction",
						Value: ingestion.DefaultBatchSize,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search an index and print hits and facets",
				Action: searchCommand,
				Flags: []cli.Flag{
					dbFlag(),
					indexFlag(),
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Full-text query",
					},
					&cli.StringSliceFlag{
						Name:  "refine",
						Usage: "Facet refinement as attribute:value (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "range",
						Usage: "Numeric range as attribute:min:max, either bound may be empty (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "facet",
						Usage: "Attribute to compute facet counts for (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "derived",
						Usage: "Additional index to run the same search against (repeatable)",
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "Page number, starting at 1",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "hits-per-page",
						Usage: "Number of hits per page (defaults to the configured value)",
					},
					timeoutFlag(),
				},
			},
			{
				Name:   "facets",
				Usage:  "Search the values of a facet",
				Action: facetsCommand,
				Flags: []cli.Flag{
					dbFlag(),
					indexFlag(),
					&cli.StringFlag{
						Name:     "facet",
						Usage:    "Facet attribute to search",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Prefix the facet values must match",
					},
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of values to return (1-100)",
						Value: coordinator.DefaultMaxFacetHits,
					},
					timeoutFlag(),
				},
			},
			{
				Name:   "indices",
				Usage:  "List indices and their document counts",
				Action: indicesCommand,
				Flags:  []cli.Flag{dbFlag()},
			},
		},
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to BadgerDB database directory",
	}
}

func indexFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "index",
		Aliases: []string{"i"},
		Usage:   "Index name",
	}
}

func timeoutFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Give up waiting for results after this long",
		Value: 30 * time.Second,
	}
}

// resolveConfig layers command flags over the config file over the defaults.
func resolveConfig(c *cli.Context, needIndex bool) (Config, error) {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("db") {
		cfg.DB = c.String("db")
	}
	if c.IsSet("index") {
		cfg.Index = c.String("index")
	}
	if c.IsSet("hits-per-page") {
		cfg.HitsPerPage = c.Int("hits-per-page")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if needIndex && cfg.Index == "" {
		return cfg, fmt.Errorf("index name is required")
	}
	return cfg, nil
}

func commandContext(c *cli.Context) (context.Context, context.CancelFunc) {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := c.Duration("timeout"); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
