package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/browser"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/config"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/event"
	pkgkafka "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/kafka"
)

// =============================================================================
// search
// =============================================================================

// filterFlags maps command-line flags to filter fields.
var filterFlags = []struct {
	flag  string
	field domain.FilterField
	usage string
}{
	{"name", domain.FieldName, "name substring, matched against every alias"},
	{"size", domain.FieldSize, "size class, e.g. B1"},
	{"element", domain.FieldElement, "element, e.g. Pyrus"},
	{"special", domain.FieldSpecialProperties, "special property, e.g. Clear"},
	{"min", domain.FieldMinPrice, "minimum current price"},
	{"max", domain.FieldMaxPrice, "maximum current price"},
	{"mode", domain.FieldMode, "catalog mode: all, bakugan or bakutech"},
}

func newSearchCmd(sess func() *session) *cobra.Command {
	var (
		values      = make([]string, len(filterFlags))
		page, limit int
		withHistory bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "List one page of catalog items",
		Example: `  browse search --name drago --mode bakugan
  browse search --mode bakutech --min 1000 --max 2000 --page 2 --history`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sess()
			c := s.controller(withHistory)
			defer c.Close()

			for i, f := range filterFlags {
				if !cmd.Flags().Changed(f.flag) {
					continue
				}
				if err := c.UpdateFilter(f.field, values[i]); err != nil {
					return fmt.Errorf("--%s: %w", f.flag, err)
				}
			}
			c.UpdatePagination(page, limit)

			if err := c.Refresh(cmd.Context()); err != nil {
				return err
			}

			snap := c.Snapshot()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), snap)
			}
			return writeSearch(cmd.OutOrStdout(), snap, withHistory)
		},
	}

	for i, f := range filterFlags {
		cmd.Flags().StringVar(&values[i], f.flag, "", f.usage)
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (default BROWSE_PAGE_SIZE)")
	cmd.Flags().BoolVar(&withHistory, "history", false, "also load the price history of every listed item")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func writeSearch(w io.Writer, snap browser.Snapshot, withHistory bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := "ID\tNAME\tSIZE\tELEMENT\tPRICE"
	if withHistory {
		header += "\tHISTORY"
	}
	fmt.Fprintln(tw, header)

	for _, item := range snap.Items {
		row := fmt.Sprintf("%s\t%s\t%s\t%s\t%s",
			item.ID, strings.Join(item.Names, " / "), item.Size, item.Element, formatPrice(item.CurrentPrice))
		if withHistory {
			if h, ok := snap.History[item.ID]; ok {
				row += "\t" + strconv.Itoa(len(h)) + " points"
			} else {
				row += "\t-"
			}
		}
		fmt.Fprintln(tw, row)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	p := snap.Pagination
	_, err := fmt.Fprintf(w, "\npage %d of %d (%d items, %d per page)\n", p.Page, p.Pages, p.Total, p.Limit)
	return err
}

// =============================================================================
// suggest
// =============================================================================

func newSuggestCmd(sess func() *session) *cobra.Command {
	return &cobra.Command{
		Use:     "suggest <query>",
		Short:   "Suggest item names containing query",
		Example: "  browse suggest dra",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := sess().controller(false)
			defer c.Close()

			names, err := c.Suggest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, n := range names {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), n); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// =============================================================================
// history
// =============================================================================

func newHistoryCmd(sess func() *session) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show the price history of one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := sess().prefetcher().Detail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), detail)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (%s)  current %s\n\n", detail.PrimaryName(), detail.ID, formatPrice(detail.CurrentPrice))
			if len(detail.PriceHistory) == 0 {
				_, err := fmt.Fprintln(w, "no price history")
				return err
			}

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tPRICE\tNOTES")
			for _, p := range detail.PriceHistory {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Timestamp, formatPrice(p.Price), p.Notes)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the item and history as JSON")
	return cmd
}

// =============================================================================
// watch
// =============================================================================

func newWatchCmd(sess func() *session) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Invalidate cached responses on catalog change events",
		Long: `watch consumes catalog events from Kafka and deletes the cached search
pages and item details they make stale. It only affects other processes when
BROWSE_CACHE_BACKEND=redis. It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sess()
			if s.cfg.CacheBackend != config.CacheRedis {
				s.log.Warn("watching with an in-process cache has no effect on other processes",
					slog.String("cache_backend", s.cfg.CacheBackend),
				)
			}

			handler := event.NewConsumer(browser.NewInvalidator(s.client, s.store, s.log), s.log)
			consumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
				Brokers:  s.cfg.KafkaBrokers,
				GroupID:  s.cfg.KafkaGroupID,
				Topics:   event.AllTopics(),
				MinBytes: 1,
				MaxBytes: 1 << 20,
			}, handler.Handle, s.log)

			s.log.Info("watching catalog events",
				slog.Any("brokers", s.cfg.KafkaBrokers),
				slog.String("group", s.cfg.KafkaGroupID),
			)
			return consumer.Start(cmd.Context())
		},
	}
}

// =============================================================================
// Output helpers
// =============================================================================

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
