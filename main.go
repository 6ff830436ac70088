package main

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"
)

// BuildVersion is stamped by the release build.
var BuildVersion = "dev"

func main() {
	conf := flag.String("config", "", "path to a JSON config file or a http(s) url")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *version {
		fmt.Println(BuildVersion)
		return
	}

	config, err := loadConfig(*conf)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	logCloser, err := setupLogging(config.Log)
	if err != nil {
		logrus.Fatalf("setup logging: %v", err)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	var overrides *overrideWatcher
	if config.Manifest != nil && config.Manifest.ToolOverridesPath != "" {
		overrides, err = newOverrideWatcher(config.Manifest.ToolOverridesPath)
		if err != nil {
			logrus.Fatalf("load tool overrides: %v", err)
		}
	}

	proxy := newProxy(
		newUpstreamClient(config.Upstream),
		newCatalogSnapshotWriter(config.Manifest),
	)

	if err := startHTTPServer(config, proxy, overrides); err != nil {
		logrus.Fatalf("serve: %v", err)
	}
}
