package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func storeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "store",
		Short: "Show the merchant store and balance for the active key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := providerClient(cmd)
			if err != nil {
				return err
			}
			store, err := client.GetStore(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), store)
		},
	}
}

func billingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Inspect hosted billings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get [id]",
		Short: "Fetch one billing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := providerClient(cmd)
			if err != nil {
				return err
			}
			billing, err := client.GetBilling(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), billing)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List billings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := providerClient(cmd)
			if err != nil {
				return err
			}
			billings, err := client.ListBillings(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), billings)
		},
	})
	return cmd
}

func pixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pix",
		Short: "Inspect PIX QR code charges",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [id]",
		Short: "Show the status of a PIX charge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := providerClient(cmd)
			if err != nil {
				return err
			}
			status, err := client.CheckPixQRCode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "simulate [id]",
		Short: "Mark a dev mode PIX charge as paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadToolConfig()
			if err != nil {
				return err
			}
			if !cfg.Gateway.DevMode {
				return errors.New("pix simulate requires ABACATEPAY_DEV_MODE=true")
			}
			client, err := providerClient(cmd)
			if err != nil {
				return err
			}
			pix, err := client.SimulatePixPayment(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pix)
		},
	})
	return cmd
}

func customerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Inspect Provider customers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := providerClient(cmd)
			if err != nil {
				return err
			}
			customers, err := client.ListCustomers(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), customers)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get [id]",
		Short: "Fetch one customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := providerClient(cmd)
			if err != nil {
				return err
			}
			customer, err := client.GetCustomer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), customer)
		},
	})
	return cmd
}
