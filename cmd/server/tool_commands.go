package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/video-pipeline/internal/captions"
	"github.com/codebuildervaibhav/video-pipeline/internal/logging"
	"github.com/codebuildervaibhav/video-pipeline/internal/storage"
	"github.com/codebuildervaibhav/video-pipeline/internal/timeline"
	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// parseKeepSpans reads "start-end,start-end" where each bound is seconds or
// a clock timestamp
func parseKeepSpans(s string) ([]types.TimeSpan, error) {
	var spans []types.TimeSpan
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid span %q, expected start-end", part)
		}
		start, err := types.ParseTimestamp(bounds[0])
		if err != nil {
			return nil, err
		}
		end, err := types.ParseTimestamp(bounds[1])
		if err != nil {
			return nil, err
		}
		if end <= start {
			return nil, fmt.Errorf("invalid span %q: end must follow start", part)
		}
		spans = append(spans, types.TimeSpan{Start: start, End: end})
	}
	return spans, nil
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func newTimelineCommand(ctx *commandContext) *cobra.Command {
	var keepFlag, outFlag string

	cmd := &cobra.Command{
		Use:   "timeline <video>",
		Short: "Export an xmeml editing timeline for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			engine, err := newMediaEngine(cfg)
			if err != nil {
				return err
			}

			video := args[0]
			meta, err := engine.Probe(cmd.Context(), video)
			if err != nil {
				return fmt.Errorf("probe %s: %w", video, err)
			}

			keep := []types.TimeSpan{{Start: 0, End: meta.Duration}}
			if keepFlag != "" {
				if keep, err = parseKeepSpans(keepFlag); err != nil {
					return err
				}
			}

			out := outFlag
			if out == "" {
				out = replaceExt(video, ".xml")
			}
			if err := timeline.WriteFile(out, meta, keep, filepath.Base(video)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Timeline with %d clips written to %s\n", len(keep), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&keepFlag, "keep", "", "Kept spans as start-end,start-end (whole video when empty)")
	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "Output path (video name with .xml when empty)")
	return cmd
}

func newCaptionsCommand(ctx *commandContext) *cobra.Command {
	var (
		outFlag      string
		position     string
		wordsPerLine int
		fontname     string
		fontsize     string
	)

	cmd := &cobra.Command{
		Use:   "captions <file.srt>",
		Short: "Convert an SRT transcript into a styled .ass caption script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := logging.WithComponent("captions")

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cues, errs := captions.ParseSRT(string(data))
			for _, e := range errs {
				log.Warn().Err(e).Msg("skipped malformed cue")
			}
			if len(cues) == 0 {
				return fmt.Errorf("no cues found in %s", args[0])
			}

			style := cfg.Captions.DefaultStyle
			if position != "" {
				style.Position = position
			}
			if wordsPerLine > 0 {
				style.WordsPerLine = wordsPerLine
			}
			if fontname != "" {
				style.Fontname = fontname
			}
			if fontsize != "" {
				if _, err := strconv.ParseFloat(fontsize, 64); err != nil {
					return fmt.Errorf("invalid font size %q", fontsize)
				}
				style.Fontsize = types.StyleValue(fontsize)
			}

			doc := captions.Style(captions.GroupCues(cues, style.WordsPerLine), &style)

			out := outFlag
			if out == "" {
				out = replaceExt(args[0], ".ass")
			}
			if err := os.WriteFile(out, []byte(doc.String()), 0644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d caption lines written to %s\n", len(doc.Events), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "Output path (input name with .ass when empty)")
	cmd.Flags().StringVar(&position, "position", "", "Caption position: Top, Middle or Bottom")
	cmd.Flags().IntVar(&wordsPerLine, "words-per-line", 0, "Words grouped into one caption line")
	cmd.Flags().StringVar(&fontname, "font", "", "Font name")
	cmd.Flags().StringVar(&fontsize, "font-size", "", "Font size")
	return cmd
}

func newClipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clip <video> <start> <end> <output>",
		Short: "Extract a clip between two timestamps",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			start, err := types.ParseTimestamp(args[1])
			if err != nil {
				return err
			}
			end, err := types.ParseTimestamp(args[2])
			if err != nil {
				return err
			}
			if end <= start {
				return fmt.Errorf("end %s must follow start %s", args[2], args[1])
			}

			engine, err := newMediaEngine(cfg)
			if err != nil {
				return err
			}
			if err := engine.ExtractClip(cmd.Context(), args[0], args[3], start, end); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Clip written to %s\n", args[3])
			return nil
		},
	}
}

func newDriveAuthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "drive-auth",
		Short: "Authorize Google Drive uploads and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := storage.Authorize(cmd.Context(),
				cfg.GoogleDrive.CredentialsFile,
				cfg.GoogleDrive.TokenFile,
				cmd.InOrStdin(),
				cmd.OutOrStdout(),
			); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", cfg.GoogleDrive.TokenFile)
			return nil
		},
	}
}
