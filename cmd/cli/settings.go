package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lastdm/ldm-bridge/internal/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change interception settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		settings := fetchSettings()
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			prettyJSON, _ := json.MarshalIndent(settings, "", "  ")
			fmt.Println(string(prettyJSON))
			return
		}
		printSettings(settings)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change settings; unspecified values are kept",
	Example: `  ldm-bridge settings set --intercept=false
  ldm-bridge settings set --ignore jpg,png,html --min-size 512
  ldm-bridge settings set --deny ads.example.com --allow ""`,
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		settings := fetchSettings()
		flags := cmd.Flags()

		if flags.Changed("intercept") {
			settings.InterceptEnabled, _ = flags.GetBool("intercept")
		}
		if flags.Changed("min-size") {
			settings.MinFileSizeKB, _ = flags.GetInt64("min-size")
		}
		if flags.Changed("ignore") {
			settings.IgnoredExtensions = listFlag(cmd, "ignore")
		}
		if flags.Changed("allow") {
			settings.DomainAllowlist = listFlag(cmd, "allow")
		}
		if flags.Changed("deny") {
			settings.DomainDenylist = listFlag(cmd, "deny")
		}
		if flags.Changed("strict-hostnames") {
			settings.StrictHostnames, _ = flags.GetBool("strict-hostnames")
		}
		if flags.Changed("notifications") {
			settings.NotificationsEnabled, _ = flags.GetBool("notifications")
		}
		if flags.Changed("sound") {
			settings.SoundEnabled, _ = flags.GetBool("sound")
		}

		var updated domain.Settings
		if err := call(http.MethodPut, "/api/v1/settings", settings, &updated, false); err != nil {
			fail(err)
		}
		printSettings(&updated)
	},
}

var settingsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a settings backup as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		var backup json.RawMessage
		if err := call(http.MethodGet, "/api/v1/settings/export", nil, &backup, false); err != nil {
			fail(err)
		}
		prettyJSON, err := json.MarshalIndent(backup, "", "  ")
		if err != nil {
			fail(err)
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			fmt.Println(string(prettyJSON))
			return
		}
		if err := os.WriteFile(output, append(prettyJSON, '\n'), 0644); err != nil {
			fail(err)
		}
		fmt.Printf("Settings exported to %s\n", output)
	},
}

var settingsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore settings from a backup",
	Long:  `Restore settings from a file written by "settings export" or by the browser options page.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		data, err := os.ReadFile(args[0])
		if err != nil {
			fail(err)
		}
		if !json.Valid(data) {
			fail(fmt.Errorf("%s is not valid JSON", args[0]))
		}

		var imported domain.Settings
		if err := call(http.MethodPost, "/api/v1/settings/import", json.RawMessage(data), &imported, false); err != nil {
			fail(err)
		}
		fmt.Println("Settings imported")
		printSettings(&imported)
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset settings, history and stats to defaults",
	Run: func(cmd *cobra.Command, args []string) {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			fail(errors.New("this erases settings, history and stats; rerun with --yes to confirm"))
		}
		ensureServer()

		var resp struct {
			Settings domain.Settings `json:"settings"`
		}
		if err := call(http.MethodPost, "/api/v1/reset", nil, &resp, false); err != nil {
			fail(err)
		}
		fmt.Println("Everything reset to defaults")
		printSettings(&resp.Settings)
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsExportCmd)
	settingsCmd.AddCommand(settingsImportCmd)
	settingsCmd.AddCommand(settingsResetCmd)

	settingsExportCmd.Flags().StringP("output", "o", "", "Write the backup to this file instead of stdout")
	settingsResetCmd.Flags().Bool("yes", false, "Confirm the reset")

	settingsShowCmd.Flags().BoolP("json", "j", false, "Output in JSON format")

	f := settingsSetCmd.Flags()
	f.Bool("intercept", true, "Intercept browser downloads")
	f.Int64("min-size", 0, "Minimum file size in KB (0 disables)")
	f.StringSlice("ignore", nil, "Ignored file extensions")
	f.StringSlice("allow", nil, "Domain allow-list (empty allows all)")
	f.StringSlice("deny", nil, "Domain deny-list")
	f.Bool("strict-hostnames", false, "Skip URLs whose hostname cannot be parsed")
	f.Bool("notifications", true, "Show desktop notifications")
	f.Bool("sound", true, "Play a sound with notifications")
}

func fetchSettings() *domain.Settings {
	var settings domain.Settings
	if err := call(http.MethodGet, "/api/v1/settings", nil, &settings, false); err != nil {
		fail(err)
	}
	return &settings
}

// listFlag reads a comma-separated flag; an empty value clears the list
func listFlag(cmd *cobra.Command, name string) []string {
	values, _ := cmd.Flags().GetStringSlice(name)
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func printSettings(s *domain.Settings) {
	fmt.Fprintf(os.Stdout, "Intercept downloads:  %t\n", s.InterceptEnabled)
	fmt.Fprintf(os.Stdout, "Ignored extensions:   %s\n", listOrNone(s.IgnoredExtensions))
	fmt.Fprintf(os.Stdout, "Minimum size (KB):    %d\n", s.MinFileSizeKB)
	fmt.Fprintf(os.Stdout, "Domain allow-list:    %s\n", listOrNone(s.DomainAllowlist))
	fmt.Fprintf(os.Stdout, "Domain deny-list:     %s\n", listOrNone(s.DomainDenylist))
	fmt.Fprintf(os.Stdout, "Strict hostnames:     %t\n", s.StrictHostnames)
	fmt.Fprintf(os.Stdout, "Notifications:        %t\n", s.NotificationsEnabled)
	fmt.Fprintf(os.Stdout, "Sound:                %t\n", s.SoundEnabled)
}

func listOrNone(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}
