package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/apresai/fieldlog/internal/progress"
)

var watchPollInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <id>",
	Short: "Poll a job until it reaches a terminal status, rendering progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchPollInterval, "interval", time.Second, "poll interval")
}

// jobView is the subset of the job record watch needs; it mirrors
// store.Job's JSON shape without importing the store package into the
// CLI binary.
type jobView struct {
	Stage   string  `json:"stage"`
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Current int     `json:"current"`
	Total   int     `json:"total"`
	Error   *string `json:"error"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	id := args[0]
	renderer := progress.NewBarRenderer(os.Stdout)

	start := time.Now()
	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	for {
		var raw json.RawMessage
		if err := getJSON(flagAPIURL+"/jobs/"+id, &raw); err != nil {
			return err
		}
		var job jobView
		if err := json.Unmarshal(raw, &job); err != nil {
			return fmt.Errorf("parse job: %w", err)
		}

		terminal := job.Status == "completed" || job.Status == "failed" || job.Status == "canceled"
		errMsg := ""
		if job.Error != nil {
			errMsg = *job.Error
		}

		renderer.Handle(progress.Event{
			Stage:    job.Stage,
			Status:   job.Status,
			Message:  job.Message,
			Current:  job.Current,
			Total:    job.Total,
			Elapsed:  time.Since(start),
			Err:      errMsg,
			Terminal: terminal,
		})

		if terminal {
			renderer.Finish()
			if job.Status == "failed" {
				return fmt.Errorf("job %s failed", id)
			}
			return nil
		}

		<-ticker.C
	}
}
