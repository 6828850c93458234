package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	flagMode         string
	flagGenerationID int
	flagRegion       string
	flagVoice        string
	flagIDs          string
)

var createJobCmd = &cobra.Command{
	Use:   "create-job",
	Short: "Submit a new job",
	RunE:  runCreateJob,
}

var getJobCmd = &cobra.Command{
	Use:   "get-job <id>",
	Short: "Show a job's current record",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetJob,
}

var pauseJobCmd = &cobra.Command{
	Use:   "pause <id>",
	Short: "Pause a running job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobAction("pause"),
}

var resumeJobCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Resume a paused job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobAction("resume"),
}

var cancelJobCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobAction("cancel"),
}

var recoverStalledCmd = &cobra.Command{
	Use:   "recover-stalled",
	Short: "Flip stalled running jobs back to queued",
	RunE:  runRecoverStalled,
}

var pauseAllCmd = &cobra.Command{
	Use:   "pause-all",
	Short: "Pause every non-terminal job",
	RunE:  runPauseAll,
}

var cancelAllCmd = &cobra.Command{
	Use:   "cancel-all",
	Short: "Cancel every non-terminal job",
	RunE:  runCancelAll,
}

func init() {
	rootCmd.AddCommand(createJobCmd, getJobCmd, pauseJobCmd, resumeJobCmd, cancelJobCmd,
		recoverStalledCmd, pauseAllCmd, cancelAllCmd)

	createJobCmd.Flags().StringVar(&flagMode, "mode", "FULL", "Job mode: FULL, SUMMARY_ONLY, AUDIO_ONLY")
	createJobCmd.Flags().IntVar(&flagGenerationID, "generation-id", 0, "Catalog generation id")
	createJobCmd.Flags().StringVar(&flagRegion, "region", "", "Region label for generated text/audio")
	createJobCmd.Flags().StringVar(&flagVoice, "voice", "", "TTS voice id")
	createJobCmd.Flags().StringVar(&flagIDs, "ids", "", "Comma-separated catalog ids")
}

func runCreateJob(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(flagIDs)
	if err != nil {
		return err
	}

	body := map[string]interface{}{
		"mode":         flagMode,
		"generationId": flagGenerationID,
		"region":       flagRegion,
		"voice":        flagVoice,
		"pokemonIds":   ids,
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := postJSON(flagAPIURL+"/jobs", body, &resp); err != nil {
		return err
	}
	fmt.Println(resp.ID)
	return nil
}

func runGetJob(cmd *cobra.Command, args []string) error {
	var job json.RawMessage
	if err := getJSON(flagAPIURL+"/jobs/"+args[0], &job); err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}

func runJobAction(action string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		url := fmt.Sprintf("%s/jobs/%s/%s", flagAPIURL, args[0], action)
		if err := postJSON(url, nil, nil); err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", action, args[0])
		return nil
	}
}

func runRecoverStalled(cmd *cobra.Command, args []string) error {
	var resp struct {
		RecoveredCount int `json:"recoveredCount"`
	}
	if err := postJSON(flagAPIURL+"/jobs/maintenance/recover-stalled", nil, &resp); err != nil {
		return err
	}
	fmt.Printf("recovered %d job(s)\n", resp.RecoveredCount)
	return nil
}

func runPauseAll(cmd *cobra.Command, args []string) error {
	var resp struct {
		PausedCount int `json:"pausedCount"`
	}
	if err := postJSON(flagAPIURL+"/jobs/maintenance/pause-all", nil, &resp); err != nil {
		return err
	}
	fmt.Printf("paused %d job(s)\n", resp.PausedCount)
	return nil
}

func runCancelAll(cmd *cobra.Command, args []string) error {
	var resp struct {
		CanceledCount int `json:"canceledCount"`
	}
	if err := postJSON(flagAPIURL+"/jobs/maintenance/cancel-all", nil, &resp); err != nil {
		return err
	}
	fmt.Printf("canceled %d job(s)\n", resp.CanceledCount)
	return nil
}

func parseIDs(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("--ids is required")
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		ids = append(ids, n)
	}
	return ids, nil
}
