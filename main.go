package main

import (
	"fmt"
	"os"

	"github.com/hkrishnan/superlifter/cmd"
)

var (
	version   string = cmd.VERSION
	commit    string
	date      string
	buildType string = "unclassified"
)

func main() {
	err := cmd.Execute(os.Args, cmd.BuildArgs{
		Version:   version,
		Commit:    commit,
		Date:      date,
		BuildType: buildType,
	})
	if err != nil {
		fmt.Printf("superlifter: %s\n", err.Error())
		os.Exit(1)
	}
}
