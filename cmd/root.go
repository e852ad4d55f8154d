package main

import (
	// Bundled zoneinfo so audience timezones resolve on hosts without a
	// system tz database.
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "postcraft"}

	root.AddCommand(serveCMD(), planCMD())
	_ = root.Execute()
}
