// The main package for the jobscraper executable.
package main

import (
	"github.com/scrapeworks/jobscraper/cmd"
)

func main() {
	cmd.Execute()
}
