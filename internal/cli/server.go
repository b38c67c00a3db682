package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show server name and version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		info, err := s.Info(cmdContext(cmd))
		if err != nil {
			return err
		}
		return printJSON(cmd, info)
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List active tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		tasks, err := s.ActiveTasks(cmdContext(cmd))
		if err != nil {
			return err
		}
		return printJSON(cmd, tasks)
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Show or configure the cluster setup",
}

var clusterShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cluster setup state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		state, err := s.ClusterSetup(cmdContext(cmd))
		if err != nil {
			return err
		}
		return printJSON(cmd, state)
	},
}

var clusterConfigureCmd = &cobra.Command{
	Use:   "configure [json]",
	Short: "Post a cluster setup action",
	Long: `Post a cluster setup action, for example:

  couchctl cluster configure '{"action":"enable_single_node","username":"admin","password":"secret"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var setup map[string]interface{}
		if err := json.Unmarshal([]byte(args[0]), &setup); err != nil {
			return fmt.Errorf("invalid setup: %w", err)
		}
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		result, err := s.ConfigureCluster(cmdContext(cmd), setup)
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

func init() {
	clusterCmd.AddCommand(clusterShowCmd)
	clusterCmd.AddCommand(clusterConfigureCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(clusterCmd)
}
