package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/intrepidcs/libicsneo-sub002/internal/config"
)

var configForce bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configUseCmd)
	configCmd.AddCommand(configPathCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing configuration file")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage device profiles",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with example profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The existing file may be the broken one being replaced, so it is
		// never parsed here.
		path := configPath
		if path == "" {
			p, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}
		if err := config.ExampleRegistry().SaveTo(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, path, err := loadRegistry()
		if err != nil {
			return err
		}
		names := reg.ProfileNames()
		if len(names) == 0 {
			fmt.Printf("No profiles in %s; the built-in %q profile is available.\n", path, config.SimProfile)
			return nil
		}
		for _, name := range names {
			p := reg.GetProfile(name)
			marker := " "
			if name == reg.DefaultProfile {
				marker = "*"
			}
			line := fmt.Sprintf("%s %-12s %-36s", marker, name, p.Transport)
			if p.Serial != "" {
				line += " " + p.Serial
			}
			fmt.Println(line)
		}
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show [profile]",
	Short: "Print a resolved profile as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := loadRegistry()
		if err != nil {
			return err
		}
		name := profileName
		if len(args) == 1 {
			name = args[0]
		}
		p, err := reg.Resolve(name)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(p)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use <profile>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, path, err := loadRegistry()
		if err != nil {
			return err
		}
		if _, err := reg.Resolve(args[0]); err != nil {
			return err
		}
		reg.DefaultProfile = args[0]
		if err := reg.SaveTo(path); err != nil {
			return err
		}
		fmt.Printf("Default profile is now %q\n", args[0])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, path, err := loadRegistry()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}
