package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

const DefaultPageSize = 100

// Sink receives ingested entries. core.LogStore is a Sink.
type Sink interface {
	// Insert reports whether the entry was new.
	Insert(ctx context.Context, entry core.AuditLogEntry) (bool, error)
}

// Result summarizes one pass over the remote log.
type Result struct {
	Pages    int `json:"pages"`
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Dropped  int `json:"dropped"`
}

type Option func(i *Ingestor)

// WithPageSize sets the number of records requested per page.
func WithPageSize(size int) Option {
	return func(i *Ingestor) {
		if size > 0 {
			i.pageSize = size
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(i *Ingestor) {
		i.logger = logger
	}
}

// Ingestor pulls the audit log of one group, newest first, until it reaches entries it already knows.
type Ingestor struct {
	source   core.AuditLogSource
	groupID  string
	pageSize int
	logger   zerolog.Logger
}

func NewIngestor(source core.AuditLogSource, groupID string, opts ...Option) *Ingestor {
	i := &Ingestor{
		source:   source,
		groupID:  groupID,
		pageSize: DefaultPageSize,
		logger:   log.With().Str("component", "ingest").Str("group_id", groupID).Logger(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Ingestor) GroupID() string {
	return i.groupID
}

// Sync walks the remote log from offset 0 and inserts every record into sink.
//
// It stops on an empty page, on the last page, or on a full page that contained no new entry.
// On a cold sink this fetches every page, on a warm one usually a single page.
// A failing sink abandons the current page.
func (i *Ingestor) Sync(ctx context.Context, sink Sink) (Result, error) {
	var res Result
	for offset := 0; ; offset += i.pageSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		page, err := i.source.AuditLogs(ctx, i.groupID, offset, i.pageSize)
		if err != nil {
			return res, fmt.Errorf("fetching page at offset %d: %w", offset, err)
		}
		res.Pages++
		res.Fetched += len(page.Records)

		if len(page.Records) == 0 {
			i.logger.Debug().Int("offset", offset).Msg("empty page, stopping")
			return res, nil
		}

		inserted := 0
		for _, rec := range page.Records {
			entry, err := rec.Entry()
			if err != nil {
				res.Dropped++
				i.logger.Warn().Err(err).Int("offset", offset).Msg("dropping malformed record")
				continue
			}
			ok, err := sink.Insert(ctx, entry)
			if err != nil {
				if !errors.Is(err, core.ErrStoreWrite) {
					err = fmt.Errorf("%w: %w", core.ErrStoreWrite, err)
				}
				return res, err
			}
			if ok {
				inserted++
				res.Inserted++
			}
		}

		i.logger.Debug().
			Int("offset", offset).
			Int("records", len(page.Records)).
			Int("inserted", inserted).
			Bool("has_next", page.HasNext).
			Msg("processed page")

		if !page.HasNext {
			return res, nil
		}
		if len(page.Records) >= i.pageSize && inserted == 0 {
			return res, nil
		}
	}
}
