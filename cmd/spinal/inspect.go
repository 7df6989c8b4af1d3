package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sk2233/spinal"
	"github.com/sk2233/spinal/atlas"
	"github.com/sk2233/spinal/skeleton"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print a summary of a skeleton or atlas file",
	Long: `Decodes a .skel, .json or .atlas file and prints what it contains.

Decoding errors report the byte offset (binary) or line (atlas) of the bad field.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	if strings.EqualFold(filepath.Ext(path), ".atlas") {
		atl, err := spinal.LoadAtlas(path, spinal.WithLogger(logger))
		if err != nil {
			return err
		}
		printAtlas(cmd.OutOrStdout(), atl)
		return nil
	}
	skel, err := spinal.Load(path, spinal.WithLogger(logger))
	if err != nil {
		return err
	}
	printSkeleton(cmd.OutOrStdout(), skel)
	return nil
}

func printSkeleton(w io.Writer, skel *skeleton.Skeleton) {
	info := skel.Info
	fmt.Fprintf(w, "version: %s\n", info.Version)
	if info.Hash != "" {
		fmt.Fprintf(w, "hash: %s\n", info.Hash)
	}
	fmt.Fprintf(w, "size: %gx%g at (%g, %g)\n", info.Size.X(), info.Size.Y(), info.Origin.X(), info.Origin.Y())
	if info.FPS != nil {
		fmt.Fprintf(w, "fps: %g\n", *info.FPS)
	}
	fmt.Fprintf(w, "bones: %d  slots: %d  ik: %d  transform: %d  path: %d  events: %d\n",
		len(skel.Bones), len(skel.Slots), len(skel.IK), len(skel.Transforms), len(skel.Paths), len(skel.Events))

	skins := make([]string, 0, len(skel.Skins)+1)
	if skel.DefaultSkin != nil {
		skins = append(skins, "default")
	}
	for _, item := range skel.Skins {
		skins = append(skins, item.Name)
	}
	fmt.Fprintf(w, "skins: %s\n", strings.Join(skins, ", "))

	if len(skel.Animations) == 0 {
		return
	}
	fmt.Fprintln(w, "animations:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, item := range skel.Animations {
		timelines := len(item.Bones) + len(item.Slots) + len(item.IK) + len(item.Transforms) +
			len(item.Paths) + len(item.Deforms) + len(item.Sequences)
		fmt.Fprintf(tw, "  %s\t%.3fs\t%d timelines\t%d events\n", item.Name, item.Duration, timelines, len(item.Events))
	}
	_ = tw.Flush()
}

func printAtlas(w io.Writer, atl *atlas.Atlas) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, page := range atl.Pages {
		fmt.Fprintf(tw, "page %s\t%dx%d\t%s\t%s/%s\n", page.Name, page.Width, page.Height, page.Format, page.MinFilter, page.MagFilter)
		for _, item := range atl.Regions {
			if item.Page != i {
				continue
			}
			x, y, width, height := item.Packed()
			fmt.Fprintf(tw, "  %s\t%d,%d\t%dx%d\t%d°\n", item.Name, x, y, width, height, item.Degrees)
		}
	}
	_ = tw.Flush()
}
