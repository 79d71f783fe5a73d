package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/loteknowledG/samus-manus/internal/automation"
	"github.com/loteknowledG/samus-manus/internal/config"
	"github.com/loteknowledG/samus-manus/internal/speech"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Report which optional backends are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			out := cmd.OutOrStdout()

			check := func(name string, ok bool, detail string) {
				mark := "missing"
				if ok {
					mark = "ok"
				}
				if detail != "" {
					fmt.Fprintf(out, "%-12s %-8s %s\n", name, mark, detail)
				} else {
					fmt.Fprintf(out, "%-12s %s\n", name, mark)
				}
			}

			check("home", true, home)
			check("automation", automation.Detect() != nil, "desktop backend (DISPLAY + xdotool)")
			check("llm", os.Getenv("OPENAI_API_KEY") != "", "OPENAI_API_KEY for planning and embeddings")
			check("tts", speech.Detect("") != nil, "say / espeak-ng / espeak")
			_, chromeErr := exec.LookPath("google-chrome")
			if chromeErr != nil {
				_, chromeErr = exec.LookPath("chromium")
			}
			check("browser", chromeErr == nil, "chrome or chromium for the web tool")

			// Everything is optional: missing backends degrade to simulation,
			// keyword planning, substring search, and printed announcements.
			return nil
		},
	}
	return cmd
}
