package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/africastalking-go/client"
	"github.com/example/africastalking-go/internal/util"
)

// maxBroadcastRecipients caps a single broadcast run.
const maxBroadcastRecipients = 100000

func smsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sms",
		Short: "Send and fetch text messages",
	}

	cmd.AddCommand(smsSendCmd())
	cmd.AddCommand(smsFetchCmd())
	cmd.AddCommand(smsBroadcastCmd())

	return cmd
}

func smsSendCmd() *cobra.Command {
	var (
		to      []string
		message string
		from    string
		enqueue bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one message to one or more numbers",
		Long: `Send one message to one or more numbers.

Examples:
  atctl sms send --to +254711000000 --message "Hello"
  atctl sms send --to +254711000000,+254722000000 --message "Hi" --from TUUNGANE`,
		RunE: func(cmd *cobra.Command, args []string) error {
			numbers, err := util.NormalizeE164List(to, 1, 0)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			s, err := newSession()
			if err != nil {
				return err
			}
			if from == "" {
				from = s.cfg.AfricasTalking.SenderID
			}
			resp, err := s.client.SMS.Send(cmd.Context(), client.SendSMSRequest{
				To:      numbers,
				Message: message,
				From:    from,
				Enqueue: enqueue,
			})
			if err != nil {
				return fmt.Errorf("send sms: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringSliceVarP(&to, "to", "t", nil, "Recipient numbers in E.164 format (required)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Message text (required)")
	cmd.Flags().StringVarP(&from, "from", "f", "", "Short code or sender id; defaults to AFRICASTALKING_SENDER_ID")
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Ask the gateway to queue the message")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func smsFetchCmd() *cobra.Command {
	var (
		lastID int64
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch received messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}

			var messages []client.InboxMessage
			for {
				page, err := s.client.SMS.Fetch(cmd.Context(), lastID)
				if err != nil {
					return fmt.Errorf("fetch messages: %w", err)
				}
				messages = append(messages, page.SMSMessageData.Messages...)
				next := page.LastID(lastID)
				if !all || next == lastID {
					break
				}
				lastID = next
			}
			return printJSON(cmd.OutOrStdout(), messages)
		},
	}

	cmd.Flags().Int64Var(&lastID, "last-id", 0, "Only return messages received after this id")
	cmd.Flags().BoolVar(&all, "all", false, "Keep fetching until no new messages are returned")

	return cmd
}

func smsBroadcastCmd() *cobra.Command {
	var (
		to          []string
		file        string
		message     string
		from        string
		chunkSize   int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Send one message to many numbers in parallel batches",
		Long: `Split the recipients into batches and send them concurrently.
Failed batches are reported after every batch has been attempted.

Examples:
  atctl sms broadcast --to +254711000000,+254722000000 --message "Service restored" --chunk 100
  atctl sms broadcast --file subscribers.txt --message "Service restored"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if chunkSize < 1 {
				return errors.New("--chunk must be at least 1")
			}
			numbers, err := broadcastRecipients(to, file)
			if err != nil {
				return err
			}
			s, err := newSession()
			if err != nil {
				return err
			}
			if from == "" {
				from = s.cfg.AfricasTalking.SenderID
			}

			reqs := client.ChunkRecipients(client.SendSMSRequest{Message: message, From: from}, numbers, chunkSize)
			results, sendErr := s.client.SMS.SendBatch(cmd.Context(), reqs, concurrency)

			accepted, rejected := 0, 0
			for _, r := range results {
				if r == nil {
					continue
				}
				for _, rec := range r.SMSMessageData.Recipients {
					if rec.Accepted() {
						accepted++
					} else {
						rejected++
					}
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "batches: %d accepted: %d rejected: %d\n", len(reqs), accepted, rejected)
			if sendErr != nil {
				return fmt.Errorf("broadcast: %w", sendErr)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&to, "to", "t", nil, "Recipient numbers in E.164 format")
	cmd.Flags().StringVar(&file, "file", "", "File of recipient numbers separated by commas or new lines")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Message text (required)")
	cmd.Flags().StringVarP(&from, "from", "f", "", "Short code or sender id; defaults to AFRICASTALKING_SENDER_ID")
	cmd.Flags().IntVar(&chunkSize, "chunk", 100, "Recipients per request")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Requests in flight")
	cmd.MarkFlagsOneRequired("to", "file")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

// broadcastRecipients merges the --to numbers with those read from file.
func broadcastRecipients(to []string, file string) ([]string, error) {
	numbers, err := util.NormalizeE164List(to, 0, maxBroadcastRecipients)
	if err != nil {
		return nil, fmt.Errorf("--to: %w", err)
	}
	if file == "" {
		if len(numbers) == 0 {
			return nil, errors.New("no recipients given")
		}
		return numbers, nil
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read recipients: %w", err)
	}
	fromFile, err := util.SplitPhoneList(string(raw), maxBroadcastRecipients)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	numbers = append(numbers, fromFile...)
	if len(numbers) > maxBroadcastRecipients {
		return nil, fmt.Errorf("at most %d recipients per broadcast; got %d", maxBroadcastRecipients, len(numbers))
	}
	return numbers, nil
}
