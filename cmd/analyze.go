package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-genre/analyzer"
	"github.com/RyanBlaney/sonido-genre/features"
	"github.com/RyanBlaney/sonido-genre/genre"
	"github.com/RyanBlaney/sonido-genre/render"
	"github.com/RyanBlaney/sonido-genre/transcode"
)

var (
	analyzeDuration float64
	analyzeOut      string
	analyzeJSON     bool
)

// analyzeCmd classifies a single file
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Classify an audio file and render its spectrogram",
	Long: `Classify the genre of an audio file from the first seconds of audio.

The genre is printed on stdout. With --out the spectrogram is written as a PNG.

Example:
  sonido-genre analyze song.mp3
  sonido-genre analyze song.flac --duration 5 --out spectrogram.png
  sonido-genre analyze song.wav --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

// analyzeOutput is the --json document
type analyzeOutput struct {
	ID          string          `json:"id"`
	File        string          `json:"file"`
	Genre       genre.Label     `json:"genre"`
	Rule        string          `json:"rule"`
	SampleRate  int             `json:"sample_rate"`
	Features    features.Vector `json:"features"`
	ElapsedMS   int64           `json:"elapsed_ms"`
	Spectrogram string          `json:"spectrogram,omitempty"`
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Float64VarP(&analyzeDuration, "duration", "d", 0, "seconds of audio to analyze (default from config, 10)")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "write the spectrogram PNG to this path")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the result as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]

	duration := appConfig.Analysis.MaxDuration
	if cmd.Flags().Changed("duration") {
		if analyzeDuration <= 0 {
			return fmt.Errorf("--duration must be positive, got %g", analyzeDuration)
		}
		duration = analyzeDuration
	}

	decoder, err := transcode.NewDecoder(appConfig.Analysis.Decoder, appConfig.FFmpeg())
	if err != nil {
		return err
	}

	// Analysis runs on a worker; the command only waits on the future
	pool := analyzer.NewPool(analyzer.New(decoder, appConfig.RenderOptions()), 1, 1)
	pool.Start()
	defer pool.Stop()

	job := analyzer.NewJob(path, duration)
	future, err := pool.Submit(cmd.Context(), job)
	if err != nil {
		return err
	}

	result, err := future.Wait(cmd.Context())
	if err != nil {
		return err
	}

	if analyzeOut != "" {
		png, err := render.EncodePNG(result.Image)
		if err != nil {
			return err
		}
		if err := os.WriteFile(analyzeOut, png, 0o644); err != nil {
			return fmt.Errorf("failed to write spectrogram: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(analyzeOutput{
			ID:          job.ID,
			File:        path,
			Genre:       result.Label,
			Rule:        result.Rule,
			SampleRate:  result.SampleRate,
			Features:    result.Features,
			ElapsedMS:   result.Elapsed.Milliseconds(),
			Spectrogram: analyzeOut,
		})
	}

	fmt.Fprintf(out, "Genre:    %s\n", result.Label)
	fmt.Fprintf(out, "Features: %s\n", result.Features)
	if analyzeOut != "" {
		fmt.Fprintf(out, "Spectrogram: %s\n", analyzeOut)
	}
	return nil
}
