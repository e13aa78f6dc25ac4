// Package main реализует консольный клиент API сервиса роялти.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/bookleaf-royalties/internal/client"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "bookleafctl",
		Short:        "BookLeaf royalties CLI",
		Long:         `A command line interface for the BookLeaf royalties API.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the BookLeaf API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	authorsCmd := &cobra.Command{
		Use:   "authors",
		Short: "Author queries",
	}

	authorsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List authors with earnings and balance",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				res, err := newClient().ListAuthors(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(res)
			},
		},
		&cobra.Command{
			Use:   "show <author-id>",
			Short: "Show author details with per-book royalties",
			Args:  cobra.ExactArgs(1),
			RunE: withAuthorID(func(ctx context.Context, c *client.Client, id int64) (any, error) {
				return c.GetAuthor(ctx, id)
			}),
		},
		&cobra.Command{
			Use:   "sales <author-id>",
			Short: "List sales of the author's books",
			Args:  cobra.ExactArgs(1),
			RunE: withAuthorID(func(ctx context.Context, c *client.Client, id int64) (any, error) {
				return c.AuthorSales(ctx, id)
			}),
		},
		&cobra.Command{
			Use:   "withdrawals <author-id>",
			Short: "List the author's withdrawals",
			Args:  cobra.ExactArgs(1),
			RunE: withAuthorID(func(ctx context.Context, c *client.Client, id int64) (any, error) {
				return c.AuthorWithdrawals(ctx, id)
			}),
		},
	)

	var (
		authorID int64
		amount   int64
	)
	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Request a royalty withdrawal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newClient().Withdraw(cmd.Context(), authorID, amount)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	withdrawCmd.Flags().Int64Var(&authorID, "author", 0, "Author ID")
	withdrawCmd.Flags().Int64Var(&amount, "amount", 0, "Amount to withdraw")
	_ = withdrawCmd.MarkFlagRequired("author")
	_ = withdrawCmd.MarkFlagRequired("amount")

	rootCmd.AddCommand(authorsCmd, withdrawCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.NewClient(baseURL, timeout)
}

func withAuthorID(fn func(ctx context.Context, c *client.Client, id int64) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid author id %q", args[0])
		}

		res, err := fn(cmd.Context(), newClient(), id)
		if err != nil {
			return err
		}
		return printJSON(res)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
