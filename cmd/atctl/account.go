package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/africastalking-go/client"
	"github.com/example/africastalking-go/ussd"
)

func airtimeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "airtime",
		Short: "Send airtime",
	}
	cmd.AddCommand(airtimeSendCmd())
	return cmd
}

func airtimeSendCmd() *cobra.Command {
	var (
		phone    string
		amount   float64
		currency string
		retries  int
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Top up a phone number",
		Long: `Top up a phone number.

Examples:
  atctl airtime send --phone +254711000000 --amount 50 --currency KES`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			resp, err := s.client.Airtime.Send(cmd.Context(), client.AirtimeRequest{
				Recipients: []client.AirtimeRecipient{{
					PhoneNumber:  phone,
					CurrencyCode: client.Currency(strings.ToUpper(currency)),
					Amount:       amount,
				}},
				MaxNumRetry: retries,
			})
			if err != nil {
				return fmt.Errorf("send airtime: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVarP(&phone, "phone", "p", "", "Phone number in E.164 format (required)")
	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "Amount to send (required)")
	cmd.Flags().StringVarP(&currency, "currency", "c", "KES", "ISO currency code")
	cmd.Flags().IntVar(&retries, "max-retry", 0, "Gateway side retries for failed top-ups")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func balanceCmd() *cobra.Command {
	var wallet bool

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the account balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			data, err := s.client.Application.Data(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch balance: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account: %s\n", data.Balance())

			if wallet {
				w, err := s.client.Payments.WalletBalance(cmd.Context())
				if err != nil {
					return fmt.Errorf("fetch wallet balance: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wallet: %s\n", w.Balance)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&wallet, "wallet", false, "Also show the payments wallet balance")

	return cmd
}

func networkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "network <code>",
		Short: "Resolve a mobile network code",
		Long: `Resolve the networkCode sent on USSD and SMS callbacks.

Examples:
  atctl network 63902`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := ussd.FromCode(args[0])
			if !code.Known() {
				return fmt.Errorf("unknown network code %q", code.String())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", code, code.Name(), code.Country())
			return nil
		},
	}
}
