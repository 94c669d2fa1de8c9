package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/responder"
)

var classifyFile string

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify a reply by intent",
	Long:  "Classifies reply text given as an argument, a file (--file) or stdin, and prints the response type, confidence and matched triggers.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("local"); err != nil {
			return err
		}
		cls, _, err := loadEngine()
		if err != nil {
			return err
		}

		text, err := readText(args, classifyFile, cmd.InOrStdin())
		if err != nil {
			return err
		}

		res := cls.Classify(text)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(classifyOutput{
			Result:       res,
			TriggerWords: classify.TriggerWords(res),
			ShouldSend:   responder.ShouldSend(res),
		})
	},
}

type classifyOutput struct {
	classify.Result
	TriggerWords []string `json:"trigger_words"`
	ShouldSend   bool     `json:"should_send"`
}

func init() {
	classifyCmd.Flags().StringVar(&classifyFile, "file", "", "read reply text from file (- for stdin)")
	rootCmd.AddCommand(classifyCmd)
}

// readText returns the first arg, the contents of path, or stdin, in that
// order of preference.
func readText(args []string, path string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	var (
		data []byte
		err  error
	)
	switch path {
	case "", "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", eris.Wrap(err, "read reply text")
	}
	return strings.TrimSpace(string(data)), nil
}
