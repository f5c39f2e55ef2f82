package commands

import (
	"fmt"
	"log/slog"
	"net/url"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"investhub/internal/adapters/cms"
	"investhub/internal/adapters/tui"
	"investhub/internal/application/browse"
	"investhub/internal/domain/collection"
)

func browseCmd() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "browse <collection>",
		Short: "Browse a directory listing in the terminal",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			var slugs []string
			for _, c := range collection.All() {
				slugs = append(slugs, c.Slug)
			}
			return slugs, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := findCollection(args[0])
			if err != nil {
				return err
			}
			initial, err := url.ParseQuery(query)
			if err != nil {
				return fmt.Errorf("parse --query: %w", err)
			}

			content, err := newContent(nil)
			if err != nil {
				return err
			}

			ctrl := browse.NewController(cms.NewSource(content, coll), browse.Options{
				FilterKeys: coll.FilterKeys(),
				Debounce:   cfg.Browse.Debounce,
				Navigator: browse.NavigatorFunc(func(v url.Values) {
					slog.Debug("listing_navigate", "collection", coll.Slug, "query", v.Encode())
				}),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()
			return tui.Run(ctx, ctrl, coll, initial, tea.WithAltScreen())
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "initial URL query, e.g. \"region=Kisumu&sort=asc\"")
	return cmd
}

// findCollection resolves slug against the catalog with the configured page size.
func findCollection(slug string) (collection.Collection, error) {
	for _, c := range collection.WithPageSize(cfg.CMS.PageSize) {
		if c.Slug == slug {
			return c, nil
		}
	}
	return collection.Collection{}, fmt.Errorf("%w: %q", collection.ErrUnknownCollection, slug)
}
