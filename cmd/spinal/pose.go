package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/sk2233/spinal"
	"github.com/sk2233/spinal/pose"
	"github.com/sk2233/spinal/skeleton"
)

var poseCmd = &cobra.Command{
	Use:   "pose <skeleton>",
	Short: "Print the pose of a skeleton at a point in time",
	Long: `Evaluates an animation at --time seconds and prints the resulting bone
transforms and slot attachments.

--rotate can be repeated to add user rotation on top of the animation, e.g.
--rotate head=15 --rotate arm=-30.`,
	Args: cobra.ExactArgs(1),
	RunE: runPose,
}

func init() {
	poseCmd.Flags().String("anim", "", "animation to evaluate (default: setup pose)")
	poseCmd.Flags().Float32("time", 0, "seconds since the animation started")
	poseCmd.Flags().String("skin", "", "skin to activate (default from config)")
	poseCmd.Flags().String("atlas", "", "atlas used to resolve region indices")
	poseCmd.Flags().StringArray("rotate", nil, "bone=degrees rotation override, repeatable")
	poseCmd.Flags().String("format", "json", "output format (json, yaml or toml)")
	rootCmd.AddCommand(poseCmd)
}

// poseRequest is everything needed to pose one skeleton.
type poseRequest struct {
	Animation string
	Time      float32
	Skin      string
	Rotations map[string]float32
}

func runPose(cmd *cobra.Command, args []string) error {
	anim, _ := cmd.Flags().GetString("anim")
	at, _ := cmd.Flags().GetFloat32("time")
	skin, _ := cmd.Flags().GetString("skin")
	atlasPath, _ := cmd.Flags().GetString("atlas")
	rotate, _ := cmd.Flags().GetStringArray("rotate")
	format, _ := cmd.Flags().GetString("format")

	rotations, err := parseRotations(rotate)
	if err != nil {
		return err
	}
	if skin == "" {
		skin = cfg.Skin
	}

	var skel *skeleton.Skeleton
	opts := []pose.Option{pose.WithLogger(logger), pose.WithLoop(cfg.LoopMode)}
	if atlasPath != "" {
		project, err := spinal.LoadProject(args[0], atlasPath, spinal.WithLogger(logger))
		if err != nil {
			return err
		}
		skel = project.Skeleton
		opts = append(opts, pose.WithRegions(project.Atlas))
	} else if skel, err = spinal.Load(args[0], spinal.WithLogger(logger)); err != nil {
		return err
	}

	state := pose.NewState(opts...)
	req := poseRequest{Animation: anim, Time: at, Skin: skin, Rotations: rotations}
	if err := req.apply(skel, state); err != nil {
		return err
	}
	return encode(cmd.OutOrStdout(), format, state.Pose(skel))
}

func (r poseRequest) apply(skel *skeleton.Skeleton, state *pose.State) error {
	if err := state.SetSkin(skel, r.Skin); err != nil {
		return fmt.Errorf("skin: %w", err)
	}
	if err := state.SetActiveAnimation(skel, r.Animation); err != nil {
		return fmt.Errorf("animation: %w", err)
	}
	state.AdvanceTime(r.Time)
	for bone, degrees := range r.Rotations {
		if skel.FindBone(bone) < 0 {
			return fmt.Errorf("rotate: %w", &skeleton.ReferenceError{Kind: "bone", Name: bone, Index: -1})
		}
		state.OverrideBoneRotation(bone, degrees)
	}
	return nil
}

// parseRotations reads bone=degrees pairs, a later pair for the same bone wins.
func parseRotations(items []string) (map[string]float32, error) {
	res := make(map[string]float32, len(items))
	for _, item := range items {
		bone, value, ok := strings.Cut(item, "=")
		if !ok || bone == "" {
			return nil, fmt.Errorf("rotate: %q is not bone=degrees", item)
		}
		degrees, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
		if err != nil {
			return nil, fmt.Errorf("rotate: %q: %w", item, err)
		}
		res[strings.TrimSpace(bone)] = float32(degrees)
	}
	return res, nil
}

func encode(w io.Writer, format string, snapshot pose.Snapshot) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	case "yaml":
		data, err := yaml.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "toml":
		return toml.NewEncoder(w).Encode(snapshot)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
