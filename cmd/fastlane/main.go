/*
This command provides an executable version of fastlane with the builtin
backends and the default short-circuit binders.

For the list of command line options, run:

	fastlane -help

For details about the route definitions and the fast path, please see the
documentation of the root fastlane package.
*/
package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/zalando/fastlane"
	"github.com/zalando/fastlane/config"
)

func main() {
	cfg := config.NewConfig()
	if err := cfg.Parse(); err != nil {
		log.Fatalf("Error processing config: %s", err)
	}

	log.SetLevel(cfg.ApplicationLogLevel)

	if err := fastlane.Run(cfg.ToOptions()); err != nil {
		log.Fatal(err)
	}
}
