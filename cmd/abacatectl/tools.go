package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/fr0stylo/abacate/internal/adapters/sqlite"
	"github.com/fr0stylo/abacate/internal/app/domain"
	"github.com/fr0stylo/abacate/internal/app/ports"
	"github.com/fr0stylo/abacate/internal/db"
	"github.com/fr0stylo/abacate/internal/server/routes"
	"github.com/fr0stylo/abacate/pkg/abacatepay"
)

func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign [file]",
		Short: "Print the webhook signature of a file, or stdin when file is -",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, _ := cmd.Flags().GetString("key")
			if strings.TrimSpace(key) == "" {
				cfg, err := loadToolConfig()
				if err != nil {
					return err
				}
				key = cfg.Gateway.Credentials().Current()
			}
			if key == "" {
				return abacatepay.ErrMissingCredential
			}

			var body []byte
			var err error
			if args[0] == "-" {
				body, err = io.ReadAll(cmd.InOrStdin())
			} else {
				body, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), abacatepay.Sign(body, key))
			return err
		},
	}
	cmd.Flags().String("key", "", "Signing key (default: API key of the active mode)")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Issue an admin API bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, _ := cmd.Flags().GetDuration("ttl")
			cfg, err := loadToolConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.AdminJWTSecret == "" {
				return errors.New("ABACATE_ADMIN_JWT_SECRET is not set")
			}
			token, err := routes.IssueAdminToken(cfg.Auth.AdminJWTSecret, args[0], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a pending demo order with one stock-managed product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			price, _ := cmd.Flags().GetString("price")
			quantity, _ := cmd.Flags().GetInt("quantity")
			stock, _ := cmd.Flags().GetInt64("stock")

			unitPrice, err := decimal.NewFromString(price)
			if err != nil || !unitPrice.IsPositive() {
				return fmt.Errorf("invalid --price %q", price)
			}
			if quantity <= 0 {
				return errors.New("--quantity must be positive")
			}

			cfg, err := loadToolConfig()
			if err != nil {
				return err
			}
			database, err := db.New(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer database.Close()

			store := sqlite.NewStore(database)
			ctx := cmd.Context()
			const productID = 1
			if err := store.UpsertProduct(ctx, ports.ProductInput{
				ID:            productID,
				Name:          "Demo product",
				StockQuantity: stock,
				ManageStock:   true,
			}); err != nil {
				return fmt.Errorf("seed product: %w", err)
			}
			orderID, err := store.CreateOrder(ctx, ports.OrderInput{
				Status:   domain.StatusPending,
				Currency: "BRL",
				Customer: domain.Customer{FirstName: "Demo", LastName: "Customer", Email: email, Phone: "11999999999"},
				Items: []domain.LineItem{{
					ProductID: productID,
					Name:      "Demo product",
					Quantity:  quantity,
					UnitPrice: unitPrice,
				}},
			})
			if err != nil {
				return fmt.Errorf("seed order: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "order %d created (total %s)\n", orderID,
				unitPrice.Mul(decimal.NewFromInt(int64(quantity))).StringFixed(2))
			return err
		},
	}
	cmd.Flags().String("email", "demo@example.com", "Customer email")
	cmd.Flags().String("price", "10.00", "Unit price")
	cmd.Flags().Int("quantity", 1, "Quantity")
	cmd.Flags().Int64("stock", 10, "Initial product stock")
	return cmd
}
