package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/model"
)

var (
	processFile string
	processMsg  model.IncomingMessage
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process one reply end to end",
	Long:  "Classifies and qualifies one reply, persists it, sends the autoresponse, schedules follow-ups, publishes the event and pushes the lead to the CRM.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		msg := processMsg
		if processFile != "" {
			m, err := readMessage(processFile)
			if err != nil {
				return err
			}
			msg = m
		}

		env, err := initApp(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := env.Pipeline.Process(ctx, msg)
		if err != nil {
			return eris.Wrap(err, "process reply")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	f := processCmd.Flags()
	f.StringVar(&processFile, "file", "", "read the reply as JSON from file")
	f.StringVar(&processMsg.Body, "body", "", "reply text")
	f.StringVar(&processMsg.SenderEmail, "email", "", "sender email")
	f.StringVar(&processMsg.SenderName, "name", "", "sender name")
	f.StringVar(&processMsg.SenderCompany, "company", "", "sender company")
	f.StringVar(&processMsg.CampaignID, "campaign", "", "campaign id")
	f.StringVar(&processMsg.AudienceSegment, "segment", "", "campaign audience segment")
	f.StringVar(&processMsg.TriggerWord, "trigger", "", "campaign trigger word")
	f.StringVar(&processMsg.MessageID, "message-id", "", "provider message id")
	rootCmd.AddCommand(processCmd)
}

func readMessage(path string) (model.IncomingMessage, error) {
	var msg model.IncomingMessage
	data, err := os.ReadFile(path)
	if err != nil {
		return msg, eris.Wrapf(err, "read reply %s", path)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, eris.Wrapf(err, "parse reply %s", path)
	}
	return msg, nil
}
