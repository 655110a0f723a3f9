package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/commkit/steward/internal/version"
	"github.com/commkit/steward/storage/model"
)

var rootCmd = &cobra.Command{
	Use:     "stewardctl",
	Short:   "stewardctl can help you manage your Steward",
	Long:    "stewardctl talks to the staff API of a running Steward instance",
	Version: version.VERSION,
}

var apiURL string
var client *resty.Client

func initClient(*cobra.Command, []string) {
	client = resty.New().
		SetBaseURL(apiURL + "/api/v1/staff").
		SetTimeout(20 * time.Second)
}

func get(path string, target any) error {
	resp, err := client.R().SetResult(target).Get(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return errors.Errorf("%s: %s", resp.Status(), resp.Body())
	}
	return nil
}

var grantsCmd = &cobra.Command{
	Use:   "grants",
	Short: "Manage delegated privilege grants",
}

var grantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all active grants",
	RunE: func(cmd *cobra.Command, args []string) error {
		var grants []model.DelegationGrant
		if err := get("/grants", &grants); err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSUBJECT\tSITE\tLEVEL\tEXPIRES")
		for _, g := range grants {
			fmt.Fprintf(
				w, "%d\t%s\t%d\t%s\t%s\n",
				g.ID, g.SubjectID, g.SiteID, g.GrantedLevel,
				g.ExpiresAt.Format(time.RFC3339),
			)
		}
		return w.Flush()
	},
}

var grantsRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke a grant and remove it from the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := client.R().Delete("/grants/" + args[0])
		if err != nil {
			return err
		}
		if resp.IsError() {
			return errors.Errorf("%s: %s", resp.Status(), resp.Body())
		}
		fmt.Println("Revoked grant", args[0])
		return nil
	},
}

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Manage staff request tickets",
}

var ticketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tickets",
	RunE: func(cmd *cobra.Command, args []string) error {
		var tickets []model.Ticket
		if err := get("/tickets", &tickets); err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tDUE\tPENDING\tDONE")
		for _, t := range tickets {
			due := "-"
			if t.DueDate != nil {
				due = t.DueDate.Format("2006/01/02")
			}
			fmt.Fprintf(
				w, "%d\t%s\t%s\t%d\t%d\n",
				t.ID, t.Title, due,
				len(t.RecipientsByStatus(model.StatusPending)),
				len(t.RecipientsByStatus(model.StatusDone)),
			)
		}
		return w.Flush()
	},
}

var ticketsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a ticket with its recipients",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var ticket model.Ticket
		if err := get("/tickets/"+args[0], &ticket); err != nil {
			return err
		}
		out, err := json.MarshalIndent(ticket, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var closeCancel bool

var ticketsCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a ticket, expiring or canceling its pending recipients",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := client.R().
			SetBody(map[string]bool{"cancel": closeCancel}).
			Post("/tickets/" + args[0] + "/close")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return errors.Errorf("%s: %s", resp.Status(), resp.Body())
		}
		fmt.Println("Closed ticket", args[0])
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(
		&apiURL, "api", "a", "http://localhost:8765", "base url of the steward instance",
	)
	rootCmd.PersistentPreRun = initClient
	ticketsCloseCmd.Flags().BoolVar(&closeCancel, "cancel", false, "cancel instead of expire")
	grantsCmd.AddCommand(grantsListCmd, grantsRevokeCmd)
	ticketsCmd.AddCommand(ticketsListCmd, ticketsShowCmd, ticketsCloseCmd)
	rootCmd.AddCommand(grantsCmd, ticketsCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
