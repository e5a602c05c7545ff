package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/grocerycompare/price-service/internal/access"
	"github.com/grocerycompare/price-service/internal/identity"
)

var (
	requestStatus string
	reviewer      string
	contributorOn bool
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Review access requests",
}

var requestsListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List access requests, newest first",
	Example:     `  grocery requests list --status pending`,
	Annotations: map[string]string{needsServices: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		var status access.Status
		if requestStatus != "" {
			var err error
			if status, err = access.ParseStatus(requestStatus); err != nil {
				return err
			}
		}
		reqs, err := svc.Access.List(cmd.Context(), status)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tSTATUS\tREQUESTED\tREVIEWED BY")
		for _, r := range reqs {
			by := "-"
			if rev, ok := access.ReviewOf(r.State); ok {
				by = rev.By
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Email, r.State.Status(), r.RequestedAt.Format(time.DateTime), by)
		}
		return w.Flush()
	},
}

var requestsApproveCmd = &cobra.Command{
	Use:         "approve <id>",
	Short:       "Approve a pending access request",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsServices: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := svc.Access.Approve(cmd.Context(), args[0], reviewerEmail())
		if err != nil {
			return err
		}
		logger.Info().Str("id", req.ID).Str("email", req.Email).Msg("Request approved")
		return nil
	},
}

var requestsRejectCmd = &cobra.Command{
	Use:         "reject <id>",
	Short:       "Reject a pending access request",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsServices: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := svc.Access.Reject(cmd.Context(), args[0], reviewerEmail())
		if err != nil {
			return err
		}
		logger.Info().Str("id", req.ID).Str("email", req.Email).Msg("Request rejected")
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage application users",
}

var usersListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List users, including approved users who have not signed in yet",
	Annotations: map[string]string{needsServices: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := svc.Access.ListUsers(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tCONTRIBUTOR\tPENDING\tLAST LOGIN")
		for _, u := range users {
			lastLogin := u.LastLogin.Format(time.DateTime)
			if u.IsTemporary() {
				lastLogin = "never"
			}
			fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\n", u.ID, u.Email, u.Contributor, u.Pending, lastLogin)
		}
		return w.Flush()
	},
}

var usersContributorCmd = &cobra.Command{
	Use:         "contributor <id>",
	Short:       "Grant or revoke data contributor access",
	Example:     `  grocery users contributor usr_abc --on=false`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsServices: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := svc.Access.SetContributor(cmd.Context(), args[0], contributorOn)
		if err != nil {
			return err
		}
		logger.Info().Str("id", u.ID).Bool("contributor", u.Contributor).Msg("Contributor flag updated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(requestsCmd, usersCmd)
	requestsCmd.AddCommand(requestsListCmd, requestsApproveCmd, requestsRejectCmd)
	usersCmd.AddCommand(usersListCmd, usersContributorCmd)

	requestsListCmd.Flags().StringVar(&requestStatus, "status", "", "Only pending, approved or rejected requests")
	for _, c := range []*cobra.Command{requestsApproveCmd, requestsRejectCmd} {
		c.Flags().StringVar(&reviewer, "reviewer", "", "Reviewer email (defaults to ADMIN_EMAIL)")
	}
	usersContributorCmd.Flags().BoolVar(&contributorOn, "on", true, "Grant (true) or revoke (false) contributor access")
}

func reviewerEmail() string {
	if reviewer != "" {
		return identity.NormalizeEmail(reviewer)
	}
	if cfg != nil && cfg.Auth.AdminEmail != "" {
		return identity.NormalizeEmail(cfg.Auth.AdminEmail)
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}
