package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Databases kept by "db purge"
var systemDatabases = map[string]bool{"_users": true, "_replicator": true, "_global_changes": true}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage databases",
}

var dbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all databases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		dbs, err := s.AllDatabases(cmdContext(cmd))
		if err != nil {
			return err
		}
		for _, db := range dbs {
			fmt.Fprintln(cmd.OutOrStdout(), db.Name())
		}
		return nil
	},
}

var dbCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		db, err := s.CreateDatabase(cmdContext(cmd), args[0])
		if err != nil {
			return err
		}
		cmd.Printf("Created %s\n", db.URL())
		return nil
	},
}

var dbDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		body, err := s.DeleteDatabase(cmdContext(cmd), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, body)
	},
}

var dbPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all user databases",
	Long:  `Delete every database except the system databases _users, _replicator and _global_changes.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		ctx := cmdContext(cmd)
		dbs, err := s.AllDatabases(ctx)
		if err != nil {
			return err
		}
		for _, db := range dbs {
			if systemDatabases[db.Name()] {
				continue
			}
			if _, err := s.DeleteDatabase(ctx, db.Name()); err != nil {
				return err
			}
			cmd.Printf("Deleted %s\n", db.Name())
		}
		return nil
	},
}

var dbInfoCmd = &cobra.Command{
	Use:   "info [name...]",
	Short: "Show information about databases",
	Long:  `Show information about the named databases, or about all databases if none is named.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		ctx := cmdContext(cmd)
		names := args
		if len(names) == 0 {
			dbs, err := s.AllDatabases(ctx)
			if err != nil {
				return err
			}
			for _, db := range dbs {
				names = append(names, db.Name())
			}
		}
		infos, err := s.DatabasesInfo(ctx, names)
		if err != nil {
			return err
		}
		return printJSON(cmd, infos)
	},
}

var dbExistsCmd = &cobra.Command{
	Use:   "exists [name]",
	Short: "Check whether a database exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		exists, err := s.Database(args[0]).Exists(cmdContext(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), exists)
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbListCmd)
	dbCmd.AddCommand(dbCreateCmd)
	dbCmd.AddCommand(dbDeleteCmd)
	dbCmd.AddCommand(dbPurgeCmd)
	dbCmd.AddCommand(dbInfoCmd)
	dbCmd.AddCommand(dbExistsCmd)
	rootCmd.AddCommand(dbCmd)
}
