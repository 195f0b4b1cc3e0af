package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/example/africastalking-go/client"
	"github.com/example/africastalking-go/internal/ivr"
	"github.com/example/africastalking-go/voice"
)

func callCmd() *cobra.Command {
	var (
		from string
		to   []string
	)

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Place an outbound call",
		Long: `Place an outbound call from one of the account's virtual numbers.

Examples:
  atctl call --from +254711082000 --to +254711000000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			if from == "" {
				from = s.cfg.Voice.VirtualNumber
			}
			resp, err := s.client.Voice.Call(cmd.Context(), client.CallRequest{From: from, To: to})
			if err != nil {
				return fmt.Errorf("place call: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVarP(&from, "from", "f", "", "Virtual number to call from; defaults to VOICE_VIRTUAL_NUMBER")
	cmd.Flags().StringSliceVarP(&to, "to", "t", nil, "Numbers to call (required)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func voiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Voice queues and call flows",
	}
	cmd.AddCommand(voiceQueueCmd())
	cmd.AddCommand(voicePreviewCmd())
	return cmd
}

func voiceQueueCmd() *cobra.Command {
	var numbers []string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show how many callers are queued on each number",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			resp, err := s.client.Voice.QueueStatus(cmd.Context(), numbers...)
			if err != nil {
				return fmt.Errorf("queue status: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringSliceVarP(&numbers, "phone", "p", nil, "Virtual numbers to inspect (required)")
	_ = cmd.MarkFlagRequired("phone")

	return cmd
}

func voicePreviewCmd() *cobra.Command {
	var (
		digits    string
		agent     string
		recording string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the IVR response document for a simulated callback",
		Long: `Print the XML the bundled IVR returns for a callback.

Examples:
  atctl voice preview
  atctl voice preview --digits 1 --agent +254722000000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			h := ivr.New(ivr.Config{AgentNumber: agent, RecordingCallbackURL: recording}, zerolog.Nop())

			cb := voice.Callback{
				IsActive:          true,
				SessionID:         "ATVId_preview",
				Direction:         voice.DirectionInbound,
				CallerNumber:      "+254711000000",
				DestinationNumber: "+254711082000",
			}
			if cmd.Flags().Changed("digits") {
				cb.DTMFDigits = &digits
			}

			b, err := h.HandleVoice(context.Background(), cb)
			if err != nil {
				return err
			}
			doc, err := b.Build()
			if err != nil {
				return fmt.Errorf("build response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), doc)
			return nil
		},
	}

	cmd.Flags().StringVarP(&digits, "digits", "d", "", "DTMF digits pressed by the caller")
	cmd.Flags().StringVar(&agent, "agent", "", "Agent number dialled for option 1")
	cmd.Flags().StringVar(&recording, "recording-callback", "", "URL that receives voicemail recordings")

	return cmd
}
