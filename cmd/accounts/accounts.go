// Package accounts implements the account listing command.
package accounts

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rangelog/rangelog/internal/conf"
	"github.com/rangelog/rangelog/internal/datastore"
)

// Command creates the accounts command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List registered accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listAccounts(settings)
		},
	}
}

func listAccounts(settings *conf.Settings) error {
	ds := datastore.New(settings, nil)
	if ds == nil {
		return fmt.Errorf("no database output enabled in configuration")
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		_ = ds.Close()
	}()

	accounts, err := ds.Accounts()
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tDISPLAY NAME\tADMIN\tCREATED")
	for i := range accounts {
		a := &accounts[i]
		admin := ""
		if a.Admin {
			admin = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			a.ID, a.Username, a.DisplayName, admin, a.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}
