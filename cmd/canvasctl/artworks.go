package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newArtworksCmd(connect connector) *cobra.Command {
	artworks := &cobra.Command{
		Use:   "artworks",
		Short: "Curate artworks",
	}
	artworks.AddCommand(
		setFeaturedCmd(connect, "feature", true),
		setFeaturedCmd(connect, "unfeature", false),
	)
	return artworks
}

func setFeaturedCmd(connect connector, use string, featured bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <artwork-id>",
		Short: fmt.Sprintf("%s an artwork in the gallery", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("artwork id %q: %w", args[0], err)
			}
			return withBackend(cmd, connect, func(b *backend) error {
				if err := b.artworks.SetFeatured(cmd.Context(), id, featured); err != nil {
					return fmt.Errorf("%s %d: %w", use, id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "artwork %d featured=%t\n", id, featured)
				return nil
			})
		},
	}
}
