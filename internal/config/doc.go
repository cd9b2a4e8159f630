// Package config provides configuration parsing for the dashboard server.
//
// The configuration is stored in meteo.json at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 8080,
//	    "shutdownTimeout": "10s"
//	  },
//	  "views": {
//	    "source": "fs",
//	    "loadTimeout": "15s",
//	    "preload": false,
//	    "s3": {
//	      "bucket": "meteo-views",
//	      "prefix": "views/",
//	      "region": "eu-west-3"
//	    }
//	  },
//	  "static": {
//	    "dir": "public/cesium",
//	    "prefix": "/cesium/"
//	  },
//	  "navigation": {
//	    "maxRedirects": 10,
//	    "rateLimit": 120,
//	    "rateWindow": "1m"
//	  },
//	  "metrics": { "enabled": true, "path": "/metrics", "namespace": "meteo" },
//	  "tracing": { "enabled": false, "tracerName": "meteo" },
//	  "log": { "level": "info", "format": "text" },
//	  "build": "meteo.build.yaml"
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
